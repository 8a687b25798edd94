// Package interaction turns modifier-gated pointer drags into rectangle
// annotations.
package interaction

import (
	"context"

	"pdfviewer/internal/domain"
	"pdfviewer/internal/geom"
)

// State is the drag state. It is the only source of truth for whether a
// drag is possible or in progress.
type State int

const (
	Idle State = iota
	Armed
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Surface is the per-page overlay the drawer paints on. Rects are in
// viewport pixels.
type Surface interface {
	Clear(page int)
	StrokeRect(page int, r geom.Rect, color string)
}

// Annotations is the part of the annotation store the drawer needs.
type Annotations interface {
	Append(ctx context.Context, r domain.Rectangle)
	ForPage(page int) []domain.Rectangle
}

// Drawer is the drag-to-rectangle state machine. It is not safe for
// concurrent use; input events arrive one at a time.
type Drawer struct {
	annotations Annotations
	surface     Surface

	state State
	// released records a modifier-up seen while dragging, so the drag
	// ends in Idle instead of Armed.
	released bool

	page       int
	scale      float64
	start, end geom.Point // document space
}

// NewDrawer creates a Drawer in the Idle state.
func NewDrawer(annotations Annotations, surface Surface) *Drawer {
	return &Drawer{annotations: annotations, surface: surface, state: Idle}
}

// State returns the current state.
func (d *Drawer) State() State {
	return d.state
}

// Page returns the page of the current or last drag.
func (d *Drawer) Page() int {
	return d.page
}

// ModifierDown arms the drawer.
func (d *Drawer) ModifierDown() {
	switch d.state {
	case Idle:
		d.state = Armed
	case Dragging:
		d.released = false
	}
}

// ModifierUp disarms the drawer. A drag in progress keeps going.
func (d *Drawer) ModifierUp() {
	switch d.state {
	case Armed:
		d.state = Idle
	case Dragging:
		d.released = true
	}
}

// PointerDown starts a drag at viewport point p on page. It reports whether
// a drag started; it does nothing unless the drawer is Armed.
func (d *Drawer) PointerDown(p geom.Point, page int, scale float64) bool {
	if d.state != Armed || !geom.ValidScale(scale) {
		return false
	}
	d.state = Dragging
	d.released = false
	d.page = page
	d.scale = scale
	d.start = p.ToDocument(scale)
	d.end = d.start
	return true
}

// PointerMove updates the drag end point and redraws the page with the
// live preview on top.
func (d *Drawer) PointerMove(p geom.Point) bool {
	if d.state != Dragging {
		return false
	}
	d.end = p.ToDocument(d.scale)
	d.paint(true)
	return true
}

// PointerUp finishes the drag and commits the rectangle. It returns the
// committed rectangle, or false when nothing was committed: no drag in
// progress, or a zero-area drag.
func (d *Drawer) PointerUp(ctx context.Context, p geom.Point) (domain.Rectangle, bool) {
	if d.state != Dragging {
		return domain.Rectangle{}, false
	}
	d.end = p.ToDocument(d.scale)

	if d.released {
		d.state = Idle
	} else {
		d.state = Armed
	}
	d.released = false

	rect := geom.RectFromDrag(d.start, d.end).Annotation(d.page, domain.ColorCommitted)
	if rect.Degenerate() {
		d.paint(false)
		return domain.Rectangle{}, false
	}

	d.annotations.Append(ctx, rect)
	d.paint(false)
	return rect, true
}

// Cancel abandons a drag in progress without committing anything.
func (d *Drawer) Cancel() {
	if d.state != Dragging {
		return
	}
	if d.released {
		d.state = Idle
	} else {
		d.state = Armed
	}
	d.released = false
	d.paint(false)
}

// Preview returns the document-space rectangle of the drag in progress.
func (d *Drawer) Preview() (geom.Rect, bool) {
	if d.state != Dragging {
		return geom.Rect{}, false
	}
	return geom.RectFromDrag(d.start, d.end), true
}

// Redraw repaints page at scale with its committed rectangles only.
func (d *Drawer) Redraw(page int, scale float64) {
	if d.surface == nil || !geom.ValidScale(scale) {
		return
	}
	d.surface.Clear(page)
	for _, r := range d.annotations.ForPage(page) {
		d.surface.StrokeRect(page, geom.FromRectangle(r).ToViewport(scale), colorOf(r))
	}
}

func (d *Drawer) paint(withPreview bool) {
	if d.surface == nil {
		return
	}
	d.Redraw(d.page, d.scale)
	if withPreview {
		preview := geom.RectFromDrag(d.start, d.end).ToViewport(d.scale)
		d.surface.StrokeRect(d.page, preview, domain.ColorPreview)
	}
}

func colorOf(r domain.Rectangle) string {
	if r.Color == "" {
		return domain.ColorCommitted
	}
	return r.Color
}
