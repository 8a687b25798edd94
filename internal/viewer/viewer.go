// Package viewer holds the navigation state of one open document:
// current page, zoom and render mode, plus the derived views (thumbnail
// rail and print plan) built from it.
package viewer

import (
	"fmt"
	"math"
	"sync"

	"pdfviewer/internal/domain"
	"pdfviewer/internal/geom"
)

// Mode selects how many pages are rendered at once.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeContinuous Mode = "continuous"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeContinuous:
		return Mode(s), nil
	case "":
		return ModeSingle, nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// Pages answers page dimensions; *document.Document satisfies it.
type Pages interface {
	NumPages() int
	Page(n int) (domain.PageDims, bool)
}

// Annotations answers the rectangles of a page.
type Annotations interface {
	ForPage(page int) []domain.Rectangle
}

// State is a snapshot of the viewer, as sent to the frontend.
type State struct {
	Page     int     `json:"page"`
	NumPages int     `json:"numPages"`
	Scale    float64 `json:"scale"`
	Mode     Mode    `json:"mode"`
	Visible  []int   `json:"visible"`
}

// Viewer is safe for concurrent use.
type Viewer struct {
	mu    sync.RWMutex
	pages Pages
	page  int
	scale float64
	mode  Mode
}

// New creates a Viewer on page 1. scale is clamped.
func New(pages Pages, scale float64, mode Mode) *Viewer {
	if mode == "" {
		mode = ModeSingle
	}
	return &Viewer{pages: pages, page: 1, scale: geom.ClampScale(scale), mode: mode}
}

// SetDocument swaps the document, keeping the page when it still exists.
func (v *Viewer) SetDocument(pages Pages) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pages = pages
	v.page = v.clampPage(v.page)
}

func (v *Viewer) numPages() int {
	if v.pages == nil {
		return 0
	}
	return v.pages.NumPages()
}

func (v *Viewer) clampPage(n int) int {
	total := v.numPages()
	if n < 1 || total == 0 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}

// Page returns the current 1-based page.
func (v *Viewer) Page() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

// Scale returns the current zoom.
func (v *Viewer) Scale() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scale
}

// GoTo moves to page n, clamped to the document.
func (v *Viewer) GoTo(n int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page = v.clampPage(n)
	return v.page
}

// Next moves one page forward.
func (v *Viewer) Next() int {
	return v.GoTo(v.Page() + 1)
}

// Prev moves one page back.
func (v *Viewer) Prev() int {
	return v.GoTo(v.Page() - 1)
}

// SetScale sets the zoom, clamped to [geom.MinScale, geom.MaxScale].
func (v *Viewer) SetScale(scale float64) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scale = geom.ClampScale(scale)
	return v.scale
}

// ZoomIn increases the zoom by one step.
func (v *Viewer) ZoomIn() float64 {
	return v.SetScale(snap(v.Scale() + geom.ScaleStep))
}

// ZoomOut decreases the zoom by one step. The result never drops below
// geom.MinScale, so the mapper never sees zero.
func (v *Viewer) ZoomOut() float64 {
	return v.SetScale(snap(v.Scale() - geom.ScaleStep))
}

// snap rounds to the step grid so repeated steps do not drift.
func snap(scale float64) float64 {
	return math.Round(scale/geom.ScaleStep) * geom.ScaleStep
}

// Mode returns the render mode.
func (v *Viewer) Mode() Mode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mode
}

// ToggleMode switches between single and continuous rendering.
func (v *Viewer) ToggleMode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode == ModeSingle {
		v.mode = ModeContinuous
	} else {
		v.mode = ModeSingle
	}
	return v.mode
}

// VisiblePages lists the pages whose overlays are on screen.
func (v *Viewer) VisiblePages() []int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.visibleLocked()
}

func (v *Viewer) visibleLocked() []int {
	total := v.numPages()
	if total == 0 {
		return nil
	}
	if v.mode == ModeSingle {
		return []int{v.page}
	}
	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// State returns a snapshot for the frontend.
func (v *Viewer) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return State{
		Page:     v.page,
		NumPages: v.numPages(),
		Scale:    v.scale,
		Mode:     v.mode,
		Visible:  v.visibleLocked(),
	}
}

// PageView is one page laid out at some scale with its rectangles
// already mapped to viewport space.
type PageView struct {
	Page       int         `json:"page"`
	Scale      float64     `json:"scale"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Rectangles []geom.Rect `json:"rectangles"`
}

func layout(dims domain.PageDims, scale float64, rects []domain.Rectangle) PageView {
	w, h := geom.ToViewportSpace(dims.Width, dims.Height, scale)
	pv := PageView{Page: dims.Page, Scale: scale, Width: w, Height: h}
	for _, r := range rects {
		pv.Rectangles = append(pv.Rectangles, geom.FromRectangle(r).ToViewport(scale))
	}
	return pv
}

// Thumbnails lays every page out to fit railWidth pixels.
func (v *Viewer) Thumbnails(railWidth float64, annotations Annotations) []PageView {
	v.mu.RLock()
	pages := v.pages
	v.mu.RUnlock()

	return each(pages, func(dims domain.PageDims) PageView {
		return layout(dims, geom.FitScale(dims.Width, railWidth), annotations.ForPage(dims.Page))
	})
}

// PrintPlan lays every page out at scale 1.0 for rasterising to images.
func (v *Viewer) PrintPlan(annotations Annotations) []PageView {
	v.mu.RLock()
	pages := v.pages
	v.mu.RUnlock()

	return each(pages, func(dims domain.PageDims) PageView {
		return layout(dims, geom.DefaultScale, annotations.ForPage(dims.Page))
	})
}

// Layout lays out the visible pages at the current zoom.
func (v *Viewer) Layout(annotations Annotations) []PageView {
	v.mu.RLock()
	pages := v.pages
	scale := v.scale
	visible := v.visibleLocked()
	v.mu.RUnlock()

	var out []PageView
	for _, n := range visible {
		dims, ok := pages.Page(n)
		if !ok {
			continue
		}
		out = append(out, layout(dims, scale, annotations.ForPage(n)))
	}
	return out
}

func each(pages Pages, fn func(domain.PageDims) PageView) []PageView {
	if pages == nil {
		return nil
	}
	var out []PageView
	for n := 1; n <= pages.NumPages(); n++ {
		dims, ok := pages.Page(n)
		if !ok {
			continue
		}
		out = append(out, fn(dims))
	}
	return out
}
