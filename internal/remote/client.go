// Package remote is the annotation backend that talks to the HTTP
// rectangles endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pdfviewer/internal/domain"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 5 * 1024 * 1024

// Backend reads and appends rectangles through GET/POST on one URL.
type Backend struct {
	url    string
	client *http.Client
}

// New creates a Backend for the endpoint at url
// (e.g. http://localhost:8080/api/rectangles).
func New(url string, client *http.Client) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Backend{url: url, client: client}
}

func (b *Backend) Name() string { return "remote" }

// Load fetches the persisted set. A non-2xx status or a body that is not a
// JSON array of rectangles is an error.
func (b *Backend) Load(ctx context.Context) ([]domain.Rectangle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrPersistenceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrPersistenceUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: %s", domain.ErrPersistenceUnavailable, b.url, resp.Status)
	}

	var rects []domain.Rectangle
	if err := json.Unmarshal(data, &rects); err != nil {
		return nil, fmt.Errorf("%w: decode rectangles: %v", domain.ErrPersistenceUnavailable, err)
	}
	return rects, nil
}

// Save posts the single added rectangle. The snapshot is not needed: the
// server appends.
func (b *Backend) Save(ctx context.Context, added domain.Rectangle, _ []domain.Rectangle) error {
	body, err := json.Marshal(added)
	if err != nil {
		return fmt.Errorf("%w: encode rectangle: %v", domain.ErrPersistenceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrPersistenceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: POST %s: %s", domain.ErrPersistenceUnavailable, b.url, resp.Status)
	}
	return nil
}
