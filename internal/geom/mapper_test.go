package geom_test

import (
	"math"
	"testing"

	"pdfviewer/internal/geom"
)

func TestToDocumentSpace_RoundTrip(t *testing.T) {
	scales := []float64{0.25, 0.5, 1, 1.5, 2, 3.75, 4}
	points := [][2]float64{{0, 0}, {10, 10}, {123.5, 77.25}, {-40, 600}}

	for _, s := range scales {
		for _, p := range points {
			dx, dy := geom.ToDocumentSpace(p[0], p[1], s)
			px, py := geom.ToViewportSpace(dx, dy, s)
			if math.Abs(px-p[0]) > 1e-9 || math.Abs(py-p[1]) > 1e-9 {
				t.Errorf("scale %v: round trip of %v gave (%v, %v)", s, p, px, py)
			}
		}
	}
}

func TestToDocumentSpace_HalvesAtDoubleZoom(t *testing.T) {
	x, y := geom.ToDocumentSpace(20, 220, 2)
	if x != 10 || y != 110 {
		t.Errorf("expected (10, 110), got (%v, %v)", x, y)
	}
}

func TestRectFromDrag_ScaleOne(t *testing.T) {
	start := geom.Point{X: 10, Y: 10}.ToDocument(1)
	end := geom.Point{X: 110, Y: 60}.ToDocument(1)
	got := geom.RectFromDrag(start, end)
	want := geom.Rect{X: 10, Y: 10, Width: 100, Height: 50}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRectFromDrag_ScaleTwo(t *testing.T) {
	start := geom.Point{X: 20, Y: 20}.ToDocument(2)
	end := geom.Point{X: 220, Y: 120}.ToDocument(2)
	got := geom.RectFromDrag(start, end)
	want := geom.Rect{X: 10, Y: 10, Width: 100, Height: 50}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRectFromDrag_NegativeDirection(t *testing.T) {
	got := geom.RectFromDrag(geom.Point{X: 50, Y: 50}, geom.Point{X: 20, Y: 10})
	if got.Width != -30 || got.Height != -40 {
		t.Errorf("expected signed size (-30, -40), got (%v, %v)", got.Width, got.Height)
	}
	if got.X != 50 || got.Y != 50 {
		t.Errorf("origin must stay at the drag start, got (%v, %v)", got.X, got.Y)
	}
}

func TestRect_ToViewportScalesEachAxis(t *testing.T) {
	r := geom.Rect{X: 10, Y: 20, Width: -5, Height: 8}
	got := r.ToViewport(1.5)
	want := geom.Rect{X: 15, Y: 30, Width: -7.5, Height: 12}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if back := got.ToDocument(1.5); back != r {
		t.Errorf("expected %+v after inverse, got %+v", r, back)
	}
}

func TestClampScale(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1, 1},
		{0, geom.MinScale},
		{-2, geom.MinScale},
		{0.1, geom.MinScale},
		{10, geom.MaxScale},
		{math.NaN(), geom.MinScale},
		{math.Inf(1), geom.MinScale},
	}
	for _, c := range cases {
		if got := geom.ClampScale(c.in); got != c.want {
			t.Errorf("ClampScale(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCheckScale(t *testing.T) {
	if err := geom.CheckScale(0); err == nil {
		t.Error("expected error for zero scale")
	}
	if err := geom.CheckScale(1.25); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFitScale(t *testing.T) {
	if got := geom.FitScale(600, 150); got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
	if got := geom.FitScale(0, 150); got != geom.DefaultScale {
		t.Errorf("expected default scale for empty page, got %v", got)
	}
}
