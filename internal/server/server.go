// Package server implements the rectangles endpoint the viewer persists to.
//
//	GET  /api/rectangles[?page=n]  → JSON array of rectangles, insertion order
//	POST /api/rectangles           ← one JSON rectangle, → 201 + stored record
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pdfviewer/internal/domain"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
	limiterIdleTTL  = 10 * time.Minute
)

// Options tunes the endpoint.
type Options struct {
	// RateLimit is POSTs per second allowed per client address. Zero
	// disables limiting.
	RateLimit float64
	RateBurst int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Server serves the rectangles endpoint from a repository.
type Server struct {
	repo domain.RectangleRepository
	log  *logrus.Entry
	opts Options

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

// New creates a Server.
func New(repo domain.RectangleRepository, logger *logrus.Logger, opts Options) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = int(math.Max(1, math.Ceil(opts.RateLimit)))
	}
	return &Server{
		repo:     repo,
		log:      logger.WithField("component", "server"),
		opts:     opts,
		limiters: make(map[string]*clientLimiter),
	}
}

// Handler returns the HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/rectangles", s.handleList)
	mux.HandleFunc("POST /api/rectangles", s.handleCreate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		rects []domain.StoredRectangle
		err   error
	)
	if p := r.URL.Query().Get("page"); p != "" {
		page, convErr := strconv.Atoi(p)
		if convErr != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		rects, err = s.repo.ListByPage(page)
	} else {
		rects, err = s.repo.List()
	}
	if err != nil {
		s.log.WithError(err).Error("list rectangles")
		writeError(w, http.StatusInternalServerError, "could not list rectangles")
		return
	}
	if rects == nil {
		rects = []domain.StoredRectangle{}
	}
	writeJSON(w, http.StatusOK, rects)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.allow(clientAddr(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var rect domain.Rectangle
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rect); err != nil {
		writeError(w, http.StatusBadRequest, "body must be one JSON rectangle")
		return
	}
	if err := validate(rect); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored := &domain.StoredRectangle{Rectangle: rect}
	if err := s.repo.Create(stored); err != nil {
		s.log.WithError(err).Error("create rectangle")
		writeError(w, http.StatusInternalServerError, "could not store rectangle")
		return
	}

	s.log.WithFields(logrus.Fields{
		"id":   stored.ID,
		"page": stored.Page,
	}).Debug("rectangle stored")
	writeJSON(w, http.StatusCreated, stored)
}

func validate(r domain.Rectangle) error {
	if r.Page < 0 {
		return fmt.Errorf("%w: page must not be negative", domain.ErrInvalidRectangle)
	}
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coordinates must be finite", domain.ErrInvalidRectangle)
		}
	}
	return nil
}

func (s *Server) allow(client string) bool {
	if s.opts.RateLimit <= 0 {
		return true
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, cl := range s.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(s.limiters, addr)
		}
	}
	cl, ok := s.limiters[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.opts.RateLimit), s.opts.RateBurst)}
		s.limiters[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
