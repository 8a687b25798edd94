package app

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"pdfviewer/internal/config"
	"pdfviewer/internal/domain"
	"pdfviewer/internal/service"
	"pdfviewer/internal/viewer"
)

const shutdownTimeout = 5 * time.Second

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx      context.Context
	cfg      *config.Config
	log      *logrus.Logger
	settings *service.ViewSettingsService

	mu      sync.Mutex
	session *Session
}

// New creates a new App. settings may be backed by a nil store.
func New(cfg *config.Config, logger *logrus.Logger, settings *service.ViewSettingsService) *App {
	if settings == nil {
		settings = service.NewViewSettingsService(nil)
	}
	return &App{cfg: cfg, log: logger, settings: settings}
}

// Emit implements service.EventEmitter via wailsRuntime.EventsEmit.
func (a *App) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	session, err := NewSession(ctx, a.cfg, a.log, a)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to start viewer session: %v", err)
		return
	}

	if a.cfg.Document != "" {
		if view, ok := a.settings.LoadDocumentView(a.cfg.Document); ok {
			session.ApplyView(ctx, view)
		}
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()
}

// BeforeClose saves the window size and where the viewer was left,
// while the window still exists.
func (a *App) BeforeClose(ctx context.Context) bool {
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.settings.SaveWindowSize(w, h); err != nil {
		a.log.WithError(err).Debug("window size not saved")
	}
	if s := a.current(); s != nil && a.cfg.Document != "" {
		if err := a.settings.SaveDocumentView(a.cfg.Document, s.Annotations.ViewerState()); err != nil {
			a.log.WithError(err).Debug("document view not saved")
		}
	}
	return false
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	session.Close(ctx)
}

func (a *App) current() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// ============================================================
// Input
// ============================================================

// KeyDown reports a key press; the returned string is the drawing state.
func (a *App) KeyDown(key string) string {
	s := a.current()
	if s == nil {
		return ""
	}
	return s.Annotations.KeyDown(key)
}

func (a *App) KeyUp(key string) string {
	s := a.current()
	if s == nil {
		return ""
	}
	return s.Annotations.KeyUp(a.ctx, key)
}

// PointerDown starts a drag at viewport pixel (x, y) on page.
func (a *App) PointerDown(x, y float64, page int) bool {
	s := a.current()
	if s == nil {
		return false
	}
	return s.Annotations.PointerDown(x, y, page)
}

func (a *App) PointerMove(x, y float64) bool {
	s := a.current()
	if s == nil {
		return false
	}
	return s.Annotations.PointerMove(a.ctx, x, y)
}

// PointerUp finishes a drag. It returns the committed rectangle, or nil
// when nothing was drawn.
func (a *App) PointerUp(x, y float64) *domain.Rectangle {
	s := a.current()
	if s == nil {
		return nil
	}
	return s.Annotations.PointerUp(a.ctx, x, y)
}

// CancelDrag abandons a drag in progress without committing it.
func (a *App) CancelDrag() string {
	s := a.current()
	if s == nil {
		return ""
	}
	return s.Annotations.CancelDrag(a.ctx)
}

// ============================================================
// Viewer
// ============================================================

func (a *App) GetViewerState() viewer.State {
	s := a.current()
	if s == nil {
		return viewer.State{}
	}
	return s.Annotations.ViewerState()
}

func (a *App) NextPage() viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.NextPage(a.ctx) })
}

func (a *App) PrevPage() viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.PrevPage(a.ctx) })
}

func (a *App) GoToPage(page int) viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.GoToPage(a.ctx, page) })
}

func (a *App) ZoomIn() viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.ZoomIn(a.ctx) })
}

func (a *App) ZoomOut() viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.ZoomOut(a.ctx) })
}

func (a *App) SetScale(scale float64) viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.SetScale(a.ctx, scale) })
}

func (a *App) ToggleMode() viewer.State {
	return a.navigate(func(s *Session) viewer.State { return s.Annotations.ToggleMode(a.ctx) })
}

func (a *App) navigate(fn func(*Session) viewer.State) viewer.State {
	s := a.current()
	if s == nil {
		return viewer.State{}
	}
	return fn(s)
}

// ============================================================
// Annotations
// ============================================================

// ForPage returns the committed rectangles of page in draw order.
func (a *App) ForPage(page int) []domain.Rectangle {
	s := a.current()
	if s == nil {
		return []domain.Rectangle{}
	}
	rects := s.Annotations.ForPage(page)
	if rects == nil {
		rects = []domain.Rectangle{}
	}
	return rects
}

// Layout returns the visible pages with rectangles at the current zoom.
func (a *App) Layout() []viewer.PageView {
	return a.pageViews(func(s *Session) []viewer.PageView { return s.Annotations.Layout() })
}

func (a *App) Thumbnails() []viewer.PageView {
	return a.pageViews(func(s *Session) []viewer.PageView { return s.Annotations.Thumbnails() })
}

// PrintPlan returns every page at scale 1.0 for rasterising to images.
func (a *App) PrintPlan() []viewer.PageView {
	return a.pageViews(func(s *Session) []viewer.PageView { return s.Annotations.PrintPlan() })
}

func (a *App) pageViews(fn func(*Session) []viewer.PageView) []viewer.PageView {
	s := a.current()
	if s == nil {
		return []viewer.PageView{}
	}
	views := fn(s)
	if views == nil {
		views = []viewer.PageView{}
	}
	return views
}

// Redraw repaints the visible pages, e.g. after the webview re-rendered
// its canvases.
func (a *App) Redraw() {
	if s := a.current(); s != nil {
		s.Annotations.Redraw(a.ctx)
	}
}

// RetryPending re-sends failed saves now instead of waiting for the
// schedule. It returns the number saved.
func (a *App) RetryPending() int {
	s := a.current()
	if s == nil {
		return 0
	}
	return s.Annotations.RetryNow(a.ctx)
}
