package domain

import (
	"errors"
	"time"
)

// Display hints for rectangles. Colour carries no meaning beyond rendering.
const (
	ColorCommitted = "red"
	ColorPreview   = "blue"
)

var (
	// ErrPersistenceUnavailable wraps every failure of a persistence backend.
	// Callers degrade to session-only annotations instead of failing.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrDocumentLoad wraps failures of the rendering collaborator.
	ErrDocumentLoad = errors.New("document load failure")

	// ErrInvalidRectangle is returned for records that cannot be stored.
	ErrInvalidRectangle = errors.New("invalid rectangle")
)

// Rectangle is an annotation drawn over a PDF page.
// X, Y, Width and Height are in document space (scale 1.0).
// Width and Height are signed: the sign encodes the drag direction.
type Rectangle struct {
	Page   int     `json:"page,omitempty"` // 1-based, 0 = unset
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color,omitempty"`
}

// Area returns the absolute area of r.
func (r Rectangle) Area() float64 {
	a := r.Width * r.Height
	if a < 0 {
		return -a
	}
	return a
}

// Degenerate reports whether r has zero area.
func (r Rectangle) Degenerate() bool {
	return r.Width == 0 || r.Height == 0
}

// Bounds returns a copy of r with non-negative width and height.
// Only used for hit-testing; stored rectangles keep their sign.
func (r Rectangle) Bounds() Rectangle {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Contains reports whether the document-space point (x, y) lies inside r.
func (r Rectangle) Contains(x, y float64) bool {
	b := r.Bounds()
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// StoredRectangle is a Rectangle as kept by the server-side repository.
type StoredRectangle struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
	Rectangle
}

// RectangleRepository is the server-side store behind the remote endpoint.
// List results are in insertion order.
type RectangleRepository interface {
	Create(r *StoredRectangle) error
	List() ([]StoredRectangle, error)
	ListByPage(page int) ([]StoredRectangle, error)
	Close() error
}

// PageDims is the size of one page in document space.
type PageDims struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
