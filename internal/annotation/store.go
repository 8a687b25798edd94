// Package annotation keeps the ordered set of rectangles drawn in a
// session and mirrors every append to the configured backends.
package annotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pdfviewer/internal/domain"
)

// DefaultSaveTimeout bounds a single fire-and-forget save.
const DefaultSaveTimeout = 10 * time.Second

// Backend persists rectangles. Save receives the rectangle just appended
// and the whole collection as of the write; a backend uses whichever it needs.
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]domain.Rectangle, error)
	Save(ctx context.Context, added domain.Rectangle, all []domain.Rectangle) error
}

// Store is the in-memory annotation collection. Insertion order is the
// redraw z-order: later entries draw on top.
type Store struct {
	backends    []Backend
	log         *logrus.Entry
	saveTimeout time.Duration

	mu      sync.RWMutex
	rects   []domain.Rectangle
	pending map[string][]domain.Rectangle // backend name -> unsaved rectangles

	// saveMu serialises saves per backend, indexed like backends.
	saveMu   []sync.Mutex
	inflight sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithSaveTimeout overrides DefaultSaveTimeout.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Store) { s.saveTimeout = d }
}

// New creates a Store mirrored to backends. With no backends the store
// is session-only.
func New(logger *logrus.Logger, backends ...Backend) *Store {
	return NewWithOptions(logger, backends)
}

// NewWithOptions is New with options.
func NewWithOptions(logger *logrus.Logger, backends []Backend, opts ...Option) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Store{
		backends:    backends,
		log:         logger.WithField("component", "annotation"),
		saveTimeout: DefaultSaveTimeout,
		pending:     make(map[string][]domain.Rectangle),
		saveMu:      make([]sync.Mutex, len(backends)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the collection with the persisted set. Backends are tried
// in order; the first one that answers wins. Failures are logged and
// yield an empty collection, never an error.
func (s *Store) Load(ctx context.Context) []domain.Rectangle {
	var loaded []domain.Rectangle
	for _, b := range s.backends {
		rects, err := b.Load(ctx)
		if err != nil {
			s.log.WithError(err).WithField("backend", b.Name()).Warn("load failed, annotations are session-only")
			continue
		}
		loaded = normalizePages(rects)
		s.log.WithFields(logrus.Fields{
			"backend": b.Name(),
			"count":   len(loaded),
		}).Debug("annotations loaded")
		break
	}

	s.mu.Lock()
	s.rects = append([]domain.Rectangle(nil), loaded...)
	s.mu.Unlock()

	return s.All()
}

// Append adds r to the collection and persists it to every backend in the
// background. The in-memory add always succeeds.
func (s *Store) Append(ctx context.Context, r domain.Rectangle) {
	if r.Page <= 0 {
		r.Page = 1
	}

	s.mu.Lock()
	s.rects = append(s.rects, r)
	s.mu.Unlock()

	for i := range s.backends {
		s.inflight.Add(1)
		go func(i int) {
			defer s.inflight.Done()
			s.save(ctx, i, r)
		}(i)
	}
}

// save sends r to backend i. Saves to one backend run one at a time and
// each carries the collection as it is when the write starts, so a slow
// earlier save can never overwrite a newer whole-array write.
func (s *Store) save(ctx context.Context, i int, r domain.Rectangle) {
	b := s.backends[i]

	// The interaction that triggered the save may already be gone.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	s.saveMu[i].Lock()
	err := b.Save(ctx, r, s.All())
	s.saveMu[i].Unlock()

	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"backend": b.Name(),
			"page":    r.Page,
		}).Warn("save failed, rectangle kept in memory")
		s.mu.Lock()
		s.pending[b.Name()] = append(s.pending[b.Name()], r)
		s.mu.Unlock()
	}
}

// ForPage returns the rectangles on page in insertion order.
func (s *Store) ForPage(page int) []domain.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Rectangle
	for _, r := range s.rects {
		if r.Page == page {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of the whole collection.
func (s *Store) All() []domain.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Rectangle(nil), s.rects...)
}

// Len returns the number of rectangles held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rects)
}

// Pending returns how many rectangles are waiting to be re-sent, per backend.
func (s *Store) Pending() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.pending))
	for name, rects := range s.pending {
		if len(rects) > 0 {
			out[name] = len(rects)
		}
	}
	return out
}

// Wait blocks until every in-flight save has finished or ctx is done.
func (s *Store) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// RetryPending re-sends rectangles whose save failed. It returns the number
// of rectangles that were saved and the first error met, if any.
func (s *Store) RetryPending(ctx context.Context) (int, error) {
	s.Wait(ctx)

	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string][]domain.Rectangle)
	s.mu.Unlock()

	saved := 0
	var firstErr error
	for bi, b := range s.backends {
		rects := pending[b.Name()]
		for i, r := range rects {
			s.saveMu[bi].Lock()
			err := b.Save(ctx, r, s.All())
			s.saveMu[bi].Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("retry %s: %w", b.Name(), err)
				}
				s.mu.Lock()
				s.pending[b.Name()] = append(s.pending[b.Name()], rects[i:]...)
				s.mu.Unlock()
				break
			}
			saved++
		}
	}

	if saved > 0 {
		s.log.WithField("saved", saved).Info("pending annotations saved")
	}
	return saved, firstErr
}

func normalizePages(rects []domain.Rectangle) []domain.Rectangle {
	for i := range rects {
		if rects[i].Page <= 0 {
			rects[i].Page = 1
		}
	}
	return rects
}
