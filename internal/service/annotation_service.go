package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"pdfviewer/internal/annotation"
	"pdfviewer/internal/document"
	"pdfviewer/internal/domain"
	"pdfviewer/internal/geom"
	"pdfviewer/internal/interaction"
	"pdfviewer/internal/viewer"
)

// modifierKeys are the key names (KeyboardEvent.key) that arm drawing.
var modifierKeys = map[string]bool{
	"Control": true,
	"Meta":    true,
}

// IsModifier reports whether key arms rectangle drawing.
func IsModifier(key string) bool {
	return modifierKeys[key]
}

// ─────────────────────────────────────────────────────────────
// Annotation Service: viewer input, annotation model, redraws
// ─────────────────────────────────────────────────────────────

// AnnotationService ties the viewer, the drag state machine and the
// annotation store together, and reports every visible change to the
// frontend through the emitter.
type AnnotationService struct {
	store   *annotation.Store
	viewer  *viewer.Viewer
	surface *interaction.Recorder
	drawer  *interaction.Drawer
	emitter EventEmitter
	log     *logrus.Entry

	thumbnailWidth float64

	// input serialises UI events; the drawer is single-threaded.
	input sync.Mutex

	cronMu sync.Mutex
	sched  *cron.Cron
	retry  retryGate
}

// NewAnnotationService creates an AnnotationService.
func NewAnnotationService(store *annotation.Store, view *viewer.Viewer, emitter EventEmitter, logger *logrus.Logger, thumbnailWidth float64) *AnnotationService {
	if logger == nil {
		logger = logrus.New()
	}
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	surface := interaction.NewRecorder()
	return &AnnotationService{
		store:          store,
		viewer:         view,
		surface:        surface,
		drawer:         interaction.NewDrawer(store, surface),
		emitter:        emitter,
		log:            logger.WithField("component", "annotation-service"),
		thumbnailWidth: thumbnailWidth,
	}
}

// Store returns the underlying annotation store.
func (s *AnnotationService) Store() *annotation.Store {
	return s.store
}

// Load reads the persisted annotations and paints the visible pages.
func (s *AnnotationService) Load(ctx context.Context) []domain.Rectangle {
	rects := s.store.Load(ctx)
	s.emitter.Emit(ctx, EventAnnotationsLoaded, rects)
	s.Redraw(ctx)
	return rects
}

// ── Input ──────────────────────────────────────────────────

// KeyDown arms drawing when key is a modifier.
func (s *AnnotationService) KeyDown(key string) string {
	s.input.Lock()
	defer s.input.Unlock()
	if IsModifier(key) {
		s.drawer.ModifierDown()
	}
	return s.drawer.State().String()
}

// KeyUp disarms drawing when key is a modifier. Escape cancels a drag.
func (s *AnnotationService) KeyUp(ctx context.Context, key string) string {
	s.input.Lock()
	defer s.input.Unlock()
	switch {
	case IsModifier(key):
		s.drawer.ModifierUp()
	case key == "Escape":
		s.cancelDragLocked(ctx)
	}
	return s.drawer.State().String()
}

// CancelDrag abandons a drag in progress, e.g. when the pointer is
// released outside every page. It returns the drawing state.
func (s *AnnotationService) CancelDrag(ctx context.Context) string {
	s.input.Lock()
	defer s.input.Unlock()
	s.cancelDragLocked(ctx)
	return s.drawer.State().String()
}

func (s *AnnotationService) cancelDragLocked(ctx context.Context) {
	if _, ok := s.drawer.Preview(); !ok {
		return
	}
	page := s.drawer.Page()
	s.drawer.Cancel()
	s.emitFrame(ctx, page)
}

// PointerDown starts a drag at viewport (x, y) on page. page 0 means the
// current page.
func (s *AnnotationService) PointerDown(x, y float64, page int) bool {
	s.input.Lock()
	defer s.input.Unlock()
	if page <= 0 {
		page = s.viewer.Page()
	}
	return s.drawer.PointerDown(geom.Point{X: x, Y: y}, page, s.viewer.Scale())
}

// PointerMove updates the live preview and emits the repainted frame.
func (s *AnnotationService) PointerMove(ctx context.Context, x, y float64) bool {
	s.input.Lock()
	defer s.input.Unlock()
	if !s.drawer.PointerMove(geom.Point{X: x, Y: y}) {
		return false
	}
	s.emitFrame(ctx, s.drawer.Page())
	return true
}

// PointerUp finishes the drag. It returns the committed rectangle, or nil
// when nothing was committed.
func (s *AnnotationService) PointerUp(ctx context.Context, x, y float64) *domain.Rectangle {
	s.input.Lock()
	defer s.input.Unlock()

	rect, ok := s.drawer.PointerUp(ctx, geom.Point{X: x, Y: y})
	if !ok {
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"page":   rect.Page,
		"x":      rect.X,
		"y":      rect.Y,
		"width":  rect.Width,
		"height": rect.Height,
	}).Debug("rectangle committed")

	s.emitter.Emit(ctx, EventAnnotationAdded, rect)
	s.emitFrame(ctx, rect.Page)
	return &rect
}

// State returns the drag state name.
func (s *AnnotationService) State() string {
	s.input.Lock()
	defer s.input.Unlock()
	return s.drawer.State().String()
}

// ── Annotations ────────────────────────────────────────────

// ForPage returns the rectangles on page in draw order.
func (s *AnnotationService) ForPage(page int) []domain.Rectangle {
	return s.store.ForPage(page)
}

// All returns every rectangle in draw order.
func (s *AnnotationService) All() []domain.Rectangle {
	return s.store.All()
}

// AddRectangle appends a rectangle given in document space, as agents and
// imports do. Page 0 means the current page; degenerate rectangles are
// rejected like zero-area drags, and so are pages the open document does
// not have.
func (s *AnnotationService) AddRectangle(ctx context.Context, r domain.Rectangle) (domain.Rectangle, error) {
	if r.Page <= 0 {
		r.Page = s.viewer.Page()
	}
	if n := s.viewer.State().NumPages; n > 0 && r.Page > n {
		return domain.Rectangle{}, fmt.Errorf("%w: page %d of %d", domain.ErrInvalidRectangle, r.Page, n)
	}
	if r.Degenerate() {
		return domain.Rectangle{}, fmt.Errorf("%w: zero area", domain.ErrInvalidRectangle)
	}
	if r.Color == "" {
		r.Color = domain.ColorCommitted
	}

	s.input.Lock()
	s.store.Append(ctx, r)
	s.drawer.Redraw(r.Page, s.viewer.Scale())
	s.input.Unlock()

	s.emitter.Emit(ctx, EventAnnotationAdded, r)
	s.emitFrame(ctx, r.Page)
	return r, nil
}

// ── Viewer ─────────────────────────────────────────────────

// ViewerState returns the navigation state.
func (s *AnnotationService) ViewerState() viewer.State {
	return s.viewer.State()
}

// NextPage moves forward one page.
func (s *AnnotationService) NextPage(ctx context.Context) viewer.State {
	return s.navigate(ctx, func() { s.viewer.Next() })
}

// PrevPage moves back one page.
func (s *AnnotationService) PrevPage(ctx context.Context) viewer.State {
	return s.navigate(ctx, func() { s.viewer.Prev() })
}

// GoToPage jumps to page n.
func (s *AnnotationService) GoToPage(ctx context.Context, n int) viewer.State {
	return s.navigate(ctx, func() { s.viewer.GoTo(n) })
}

// ZoomIn increases the zoom by one step.
func (s *AnnotationService) ZoomIn(ctx context.Context) viewer.State {
	return s.navigate(ctx, func() { s.viewer.ZoomIn() })
}

// ZoomOut decreases the zoom by one step.
func (s *AnnotationService) ZoomOut(ctx context.Context) viewer.State {
	return s.navigate(ctx, func() { s.viewer.ZoomOut() })
}

// SetScale sets the zoom, clamped.
func (s *AnnotationService) SetScale(ctx context.Context, scale float64) viewer.State {
	return s.navigate(ctx, func() { s.viewer.SetScale(scale) })
}

// ToggleMode switches between single-page and continuous rendering.
func (s *AnnotationService) ToggleMode(ctx context.Context) viewer.State {
	return s.navigate(ctx, func() { s.viewer.ToggleMode() })
}

// navigate applies a viewer change. A drag in progress is abandoned since
// its start point was captured at the old page and scale.
func (s *AnnotationService) navigate(ctx context.Context, change func()) viewer.State {
	s.input.Lock()
	s.drawer.Cancel()
	change()
	s.input.Unlock()

	state := s.viewer.State()
	s.emitter.Emit(ctx, EventViewerState, state)
	s.Redraw(ctx)
	return state
}

// SetDocument swaps in a reopened document.
func (s *AnnotationService) SetDocument(ctx context.Context, doc *document.Document) {
	s.viewer.SetDocument(doc)
	s.emitter.Emit(ctx, EventDocumentChanged, s.viewer.State())
	s.Redraw(ctx)
}

// DocumentFailed reports a rendering collaborator failure. The viewer
// keeps whatever it had.
func (s *AnnotationService) DocumentFailed(ctx context.Context, err error) {
	s.log.WithError(err).Warn("document unavailable")
	s.emitter.Emit(ctx, EventDocumentError, err.Error())
}

// Layout returns the visible pages at the current zoom.
func (s *AnnotationService) Layout() []viewer.PageView {
	return s.viewer.Layout(s.store)
}

// Thumbnails returns the thumbnail rail.
func (s *AnnotationService) Thumbnails() []viewer.PageView {
	return s.viewer.Thumbnails(s.thumbnailWidth, s.store)
}

// PrintPlan returns every page at scale 1.0 with its rectangles.
func (s *AnnotationService) PrintPlan() []viewer.PageView {
	return s.viewer.PrintPlan(s.store)
}

// ── Redraw ─────────────────────────────────────────────────

// Redraw repaints every visible page with its committed rectangles.
func (s *AnnotationService) Redraw(ctx context.Context) {
	scale := s.viewer.Scale()
	for _, page := range s.viewer.VisiblePages() {
		s.input.Lock()
		s.drawer.Redraw(page, scale)
		s.input.Unlock()
		s.emitFrame(ctx, page)
	}
}

// Frame returns what is currently painted on page.
func (s *AnnotationService) Frame(page int) interaction.Frame {
	return s.surface.Frame(page)
}

func (s *AnnotationService) emitFrame(ctx context.Context, page int) {
	s.emitter.Emit(ctx, EventCanvasDraw, s.surface.Frame(page))
}

// ── Retry ──────────────────────────────────────────────────

// StartRetry schedules re-sending of failed saves. schedule is a cron
// expression such as "@every 30s".
func (s *AnnotationService) StartRetry(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.RetryNow(ctx) }); err != nil {
		return fmt.Errorf("schedule retry %q: %w", schedule, err)
	}

	s.cronMu.Lock()
	if s.sched != nil {
		s.sched.Stop()
	}
	s.sched = c
	s.cronMu.Unlock()

	c.Start()
	s.log.WithField("schedule", schedule).Debug("retry scheduled")
	return nil
}

// RetryNow re-sends failed saves unless a retry is already running.
// It returns the number of rectangles saved.
func (s *AnnotationService) RetryNow(ctx context.Context) int {
	if len(s.store.Pending()) == 0 {
		return 0
	}
	if !s.retry.Enter() {
		s.log.Debug("retry already running")
		return 0
	}
	defer s.retry.Leave()

	saved, err := s.store.RetryPending(ctx)
	if err != nil {
		s.log.WithError(err).Debug("retry incomplete")
	}
	s.emitter.Emit(ctx, EventPendingChanged, s.store.Pending())
	return saved
}

// Shutdown stops the retry schedule and waits for in-flight saves.
func (s *AnnotationService) Shutdown(ctx context.Context) {
	s.cronMu.Lock()
	if s.sched != nil {
		<-s.sched.Stop().Done()
		s.sched = nil
	}
	s.cronMu.Unlock()

	s.retry.Wait(ctx)
	s.store.Wait(ctx)
}
