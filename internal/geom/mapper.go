// Package geom converts between viewport pixels and document space.
//
// Document space is the page at scale 1.0. Viewport space is the pixel
// grid of the rendered, possibly zoomed, page element. Every function here
// is pure; callers keep the scale positive (see ClampScale).
package geom

import (
	"errors"
	"fmt"
	"math"

	"pdfviewer/internal/domain"
)

// Zoom limits used by the viewer.
const (
	MinScale     = 0.25
	MaxScale     = 4.0
	ScaleStep    = 0.25
	DefaultScale = 1.0
)

// ErrInvalidScale is returned for zero, negative or non-finite scales.
var ErrInvalidScale = errors.New("scale must be a positive finite number")

// ToDocumentSpace maps a viewport pixel to document space.
func ToDocumentSpace(px, py, scale float64) (float64, float64) {
	return px / scale, py / scale
}

// ToViewportSpace maps a document-space coordinate to viewport pixels.
func ToViewportSpace(dx, dy, scale float64) (float64, float64) {
	return dx * scale, dy * scale
}

// ValidScale reports whether scale can be used by the mapper.
func ValidScale(scale float64) bool {
	return scale > 0 && !math.IsInf(scale, 0) && !math.IsNaN(scale)
}

// CheckScale returns ErrInvalidScale when scale is unusable.
func CheckScale(scale float64) error {
	if !ValidScale(scale) {
		return fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	return nil
}

// ClampScale bounds scale to [MinScale, MaxScale]. Non-finite or
// non-positive input falls back to MinScale.
func ClampScale(scale float64) float64 {
	if !ValidScale(scale) || scale < MinScale {
		return MinScale
	}
	if scale > MaxScale {
		return MaxScale
	}
	return scale
}

// Point is a 2D coordinate. Which space it lives in is up to the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToDocument maps a viewport point to document space.
func (p Point) ToDocument(scale float64) Point {
	x, y := ToDocumentSpace(p.X, p.Y, scale)
	return Point{X: x, Y: y}
}

// ToViewport maps a document point to viewport pixels.
func (p Point) ToViewport(scale float64) Point {
	x, y := ToViewportSpace(p.X, p.Y, scale)
	return Point{X: x, Y: y}
}

// Rect is an axis-aligned rectangle with signed width and height.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromDrag builds the rectangle spanned by a drag. Both points must be
// in the same space; the size is the signed offset from start to end.
func RectFromDrag(start, end Point) Rect {
	return Rect{
		X:      start.X,
		Y:      start.Y,
		Width:  end.X - start.X,
		Height: end.Y - start.Y,
	}
}

// ToViewport scales every component of a document-space rect.
func (r Rect) ToViewport(scale float64) Rect {
	x, y := ToViewportSpace(r.X, r.Y, scale)
	w, h := ToViewportSpace(r.Width, r.Height, scale)
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// ToDocument scales every component of a viewport rect back to document space.
func (r Rect) ToDocument(scale float64) Rect {
	x, y := ToDocumentSpace(r.X, r.Y, scale)
	w, h := ToDocumentSpace(r.Width, r.Height, scale)
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// FromRectangle returns the geometry of a stored rectangle.
func FromRectangle(r domain.Rectangle) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Annotation turns a document-space rect into a rectangle record.
func (r Rect) Annotation(page int, color string) domain.Rectangle {
	return domain.Rectangle{
		Page:   page,
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		Color:  color,
	}
}

// FitScale returns the scale at which a page of the given width fills
// targetWidth. It is used for thumbnails.
func FitScale(pageWidth, targetWidth float64) float64 {
	if pageWidth <= 0 || targetWidth <= 0 {
		return DefaultScale
	}
	return targetWidth / pageWidth
}
