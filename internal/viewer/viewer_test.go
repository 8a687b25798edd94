package viewer_test

import (
	"math"
	"testing"

	"pdfviewer/internal/domain"
	"pdfviewer/internal/geom"
	"pdfviewer/internal/viewer"
)

type fakePages []domain.PageDims

func (f fakePages) NumPages() int { return len(f) }

func (f fakePages) Page(n int) (domain.PageDims, bool) {
	if n < 1 || n > len(f) {
		return domain.PageDims{}, false
	}
	return f[n-1], true
}

type fakeAnnotations map[int][]domain.Rectangle

func (f fakeAnnotations) ForPage(page int) []domain.Rectangle { return f[page] }

func threePages() fakePages {
	return fakePages{
		{Page: 1, Width: 600, Height: 800},
		{Page: 2, Width: 600, Height: 800},
		{Page: 3, Width: 800, Height: 600},
	}
}

func TestViewer_Paging(t *testing.T) {
	v := viewer.New(threePages(), 1, viewer.ModeSingle)

	if v.Prev() != 1 {
		t.Error("prev on first page must stay on page 1")
	}
	if v.Next() != 2 || v.Next() != 3 {
		t.Error("expected next to advance to page 3")
	}
	if v.Next() != 3 {
		t.Error("next on last page must stay on page 3")
	}
	if v.GoTo(42) != 3 {
		t.Error("goto past the end must clamp")
	}
	if v.GoTo(-1) != 1 {
		t.Error("goto before the start must clamp")
	}
}

func TestViewer_ZoomIsClamped(t *testing.T) {
	v := viewer.New(threePages(), 1, viewer.ModeSingle)

	for i := 0; i < 20; i++ {
		v.ZoomOut()
	}
	if v.Scale() != geom.MinScale {
		t.Errorf("expected min scale %v, got %v", geom.MinScale, v.Scale())
	}
	for i := 0; i < 40; i++ {
		v.ZoomIn()
	}
	if v.Scale() != geom.MaxScale {
		t.Errorf("expected max scale %v, got %v", geom.MaxScale, v.Scale())
	}
	if got := v.SetScale(0); got <= 0 {
		t.Errorf("scale must stay positive, got %v", got)
	}
}

func TestViewer_ZoomSteps(t *testing.T) {
	v := viewer.New(threePages(), 1, viewer.ModeSingle)
	if got := v.ZoomIn(); got != 1.25 {
		t.Errorf("expected 1.25, got %v", got)
	}
	if got := v.ZoomOut(); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestViewer_ToggleMode(t *testing.T) {
	v := viewer.New(threePages(), 1, viewer.ModeSingle)
	v.GoTo(2)

	if got := v.VisiblePages(); len(got) != 1 || got[0] != 2 {
		t.Errorf("single mode should show only page 2, got %v", got)
	}
	if v.ToggleMode() != viewer.ModeContinuous {
		t.Fatal("expected continuous mode")
	}
	if got := v.VisiblePages(); len(got) != 3 {
		t.Errorf("continuous mode should show all pages, got %v", got)
	}
	if v.ToggleMode() != viewer.ModeSingle {
		t.Fatal("expected single mode")
	}
}

func TestViewer_LayoutMapsRectangles(t *testing.T) {
	v := viewer.New(threePages(), 2, viewer.ModeSingle)
	ann := fakeAnnotations{1: {{Page: 1, X: 10, Y: 10, Width: 100, Height: -50}}}

	views := v.Layout(ann)
	if len(views) != 1 {
		t.Fatalf("expected 1 page view, got %d", len(views))
	}
	pv := views[0]
	if pv.Width != 1200 || pv.Height != 1600 {
		t.Errorf("expected page laid out at 1200x1600, got %vx%v", pv.Width, pv.Height)
	}
	want := geom.Rect{X: 20, Y: 20, Width: 200, Height: -100}
	if len(pv.Rectangles) != 1 || pv.Rectangles[0] != want {
		t.Errorf("expected %+v, got %+v", want, pv.Rectangles)
	}
}

func TestViewer_Thumbnails(t *testing.T) {
	v := viewer.New(threePages(), 1, viewer.ModeSingle)
	ann := fakeAnnotations{3: {{Page: 3, X: 80, Y: 0, Width: 40, Height: 40}}}

	thumbs := v.Thumbnails(200, ann)
	if len(thumbs) != 3 {
		t.Fatalf("expected 3 thumbnails, got %d", len(thumbs))
	}
	for _, th := range thumbs {
		if math.Abs(th.Width-200) > 1e-9 {
			t.Errorf("page %d: expected width 200, got %v", th.Page, th.Width)
		}
	}
	if got := thumbs[2].Rectangles; len(got) != 1 || got[0].X != 20 || got[0].Width != 10 {
		t.Errorf("unexpected thumbnail rectangles %+v", got)
	}
}

func TestViewer_PrintPlanUsesDocumentSpace(t *testing.T) {
	v := viewer.New(threePages(), 3, viewer.ModeSingle)
	ann := fakeAnnotations{2: {{Page: 2, X: 1, Y: 2, Width: 3, Height: 4}}}

	plan := v.PrintPlan(ann)
	if len(plan) != 3 {
		t.Fatalf("expected every page in the print plan, got %d", len(plan))
	}
	if plan[1].Scale != 1 {
		t.Errorf("print plan must use scale 1, got %v", plan[1].Scale)
	}
	if got := plan[1].Rectangles; len(got) != 1 || got[0] != (geom.Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Errorf("unexpected print rectangles %+v", got)
	}
}

func TestViewer_SetDocumentKeepsValidPage(t *testing.T) {
	v := viewer.New(threePages(), 1, viewer.ModeSingle)
	v.GoTo(3)
	v.SetDocument(threePages()[:2])
	if v.Page() != 2 {
		t.Errorf("expected page clamped to 2, got %d", v.Page())
	}
}

func TestParseMode(t *testing.T) {
	if m, err := viewer.ParseMode(""); err != nil || m != viewer.ModeSingle {
		t.Errorf("empty mode should default to single, got %q %v", m, err)
	}
	if _, err := viewer.ParseMode("spread"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
