// Package localstore is a small per-device key/value store, one JSON file
// per key, with the semantics of browser local storage: whole values are
// overwritten and the last writer wins.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"

	"pdfviewer/internal/domain"
)

// RectanglesKey is the key holding the JSON array of rectangles.
const RectanglesKey = "rectangles"

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Storage stores values under dir.
type Storage struct {
	dir string
}

// Open creates dir if needed and returns a Storage rooted there.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create local storage dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// GetItem returns the value for key. ok is false when the key is absent.
func (s *Storage) GetItem(key string) (value []byte, ok bool, err error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	lock := flock.New(p + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// SetItem overwrites the value for key.
func (s *Storage) SetItem(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	lock := flock.New(p + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *Storage) RemoveItem(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// ── annotation backend ─────────────────────────────────────

// Backend keeps the rectangle collection under RectanglesKey.
type Backend struct {
	storage *Storage
}

// NewBackend wraps storage as an annotation backend.
func NewBackend(storage *Storage) *Backend {
	return &Backend{storage: storage}
}

func (b *Backend) Name() string { return "local" }

// Load reads the stored array. An absent key is an empty collection.
func (b *Backend) Load(_ context.Context) ([]domain.Rectangle, error) {
	data, ok, err := b.storage.GetItem(RectanglesKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var rects []domain.Rectangle
	if err := json.Unmarshal(data, &rects); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrPersistenceUnavailable, RectanglesKey, err)
	}
	return rects, nil
}

// Save overwrites the stored array with the full snapshot.
func (b *Backend) Save(_ context.Context, _ domain.Rectangle, all []domain.Rectangle) error {
	if all == nil {
		all = []domain.Rectangle{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistenceUnavailable, RectanglesKey, err)
	}
	if err := b.storage.SetItem(RectanglesKey, data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}
