package interaction

import (
	"sync"

	"pdfviewer/internal/geom"
)

// Stroke is one rectangle handed to a Surface.
type Stroke struct {
	Page  int       `json:"page"`
	Rect  geom.Rect `json:"rect"`
	Color string    `json:"color"`
}

// Frame is the list of strokes painted on a page since its last Clear.
type Frame struct {
	Page    int      `json:"page"`
	Strokes []Stroke `json:"strokes"`
}

// Recorder is a Surface that keeps the current frame of every page.
// The desktop shell ships frames to the webview; tests inspect them.
type Recorder struct {
	mu     sync.Mutex
	frames map[int][]Stroke
	clears int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{frames: make(map[int][]Stroke)}
}

func (r *Recorder) Clear(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[page] = nil
	r.clears++
}

func (r *Recorder) StrokeRect(page int, rect geom.Rect, color string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[page] = append(r.frames[page], Stroke{Page: page, Rect: rect, Color: color})
}

// Frame returns a copy of the strokes currently painted on page.
func (r *Recorder) Frame(page int) Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Frame{Page: page, Strokes: append([]Stroke(nil), r.frames[page]...)}
}

// Clears returns how many times any page was cleared.
func (r *Recorder) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}
