package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"pdfviewer/internal/annotation"
	"pdfviewer/internal/domain"
	"pdfviewer/internal/geom"
	"pdfviewer/internal/service"
	"pdfviewer/internal/viewer"
)

type testPages []domain.PageDims

func (p testPages) NumPages() int { return len(p) }

func (p testPages) Page(n int) (domain.PageDims, bool) {
	if n < 1 || n > len(p) {
		return domain.PageDims{}, false
	}
	return p[n-1], true
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	pages := testPages{
		{Page: 1, Width: 612, Height: 792},
		{Page: 2, Width: 792, Height: 612},
	}
	store := annotation.New(logger)
	view := viewer.New(pages, 1, viewer.ModeSingle)
	svc := service.NewAnnotationService(store, view, service.NoopEmitter{}, logger, 120)
	return New(Deps{Annotations: svc, Logger: logger, Version: "test"})
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %+v", res)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), v); err != nil {
		t.Fatalf("decode %q: %v", text.Text, err)
	}
}

func TestAddAndListRectangles(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleAddRectangle(ctx, callRequest(map[string]any{
		"page": float64(2), "x": float64(10), "y": float64(20), "width": float64(-30), "height": float64(40),
	}))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	var added domain.Rectangle
	decodeResult(t, res, &added)
	if added.Page != 2 || added.Width != -30 || added.Color != domain.ColorCommitted {
		t.Errorf("unexpected rectangle %+v", added)
	}

	if _, err := s.handleAddRectangle(ctx, callRequest(map[string]any{
		"x": float64(1), "y": float64(1), "width": float64(5), "height": float64(5),
	})); err != nil {
		t.Fatalf("add on current page: %v", err)
	}

	res, err = s.handleListRectangles(ctx, callRequest(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	var all []domain.Rectangle
	decodeResult(t, res, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 rectangles, got %d", len(all))
	}

	res, err = s.handleListRectangles(ctx, callRequest(map[string]any{"page": float64(1)}))
	if err != nil {
		t.Fatal(err)
	}
	var page1 []domain.Rectangle
	decodeResult(t, res, &page1)
	if len(page1) != 1 || page1[0].Page != 1 {
		t.Errorf("expected the current-page rectangle only, got %+v", page1)
	}
}

func TestAddRectangle_Rejects(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	cases := map[string]map[string]any{
		"missing width": {"x": float64(1), "y": float64(1), "height": float64(5)},
		"zero area":     {"x": float64(1), "y": float64(1), "width": float64(0), "height": float64(5)},
		"bad page":      {"page": 1.5, "x": float64(1), "y": float64(1), "width": float64(5), "height": float64(5)},
		"page past end": {"page": float64(3), "x": float64(1), "y": float64(1), "width": float64(5), "height": float64(5)},
	}
	for name, args := range cases {
		if _, err := s.handleAddRectangle(ctx, callRequest(args)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if n := len(s.annotations.All()); n != 0 {
		t.Errorf("expected nothing stored, got %d", n)
	}
}

func TestRectanglesAt_UsesNormalisedBounds(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Dragged up and to the left: covers x 60..100, y 60..100.
	if _, err := s.handleAddRectangle(ctx, callRequest(map[string]any{
		"x": float64(100), "y": float64(100), "width": float64(-40), "height": float64(-40),
	})); err != nil {
		t.Fatal(err)
	}

	res, err := s.handleRectanglesAt(ctx, callRequest(map[string]any{"x": float64(80), "y": float64(70)}))
	if err != nil {
		t.Fatal(err)
	}
	var hits []domain.Rectangle
	decodeResult(t, res, &hits)
	if len(hits) != 1 {
		t.Errorf("expected a hit inside the rectangle, got %+v", hits)
	}

	res, err = s.handleRectanglesAt(ctx, callRequest(map[string]any{"x": float64(120), "y": float64(70)}))
	if err != nil {
		t.Fatal(err)
	}
	hits = nil
	decodeResult(t, res, &hits)
	if len(hits) != 0 {
		t.Errorf("expected no hit outside, got %+v", hits)
	}
}

func TestConvertTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	toDoc := s.handleConvert(geom.ToDocumentSpace)
	res, err := toDoc(ctx, callRequest(map[string]any{"x": float64(200), "y": float64(100), "scale": float64(2)}))
	if err != nil {
		t.Fatal(err)
	}
	var p geom.Point
	decodeResult(t, res, &p)
	if p.X != 100 || p.Y != 50 {
		t.Errorf("expected (100, 50), got %+v", p)
	}

	toView := s.handleConvert(geom.ToViewportSpace)
	res, err = toView(ctx, callRequest(map[string]any{"x": float64(100), "y": float64(50), "scale": float64(2)}))
	if err != nil {
		t.Fatal(err)
	}
	decodeResult(t, res, &p)
	if p.X != 200 || p.Y != 100 {
		t.Errorf("expected (200, 100), got %+v", p)
	}

	if _, err := toDoc(ctx, callRequest(map[string]any{"x": float64(1), "y": float64(1), "scale": float64(0)})); err == nil {
		t.Error("expected error for zero scale")
	}
}

func TestPageInfoAndSetView(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleSetView(ctx, callRequest(map[string]any{"page": float64(2), "scale": float64(9)}))
	if err != nil {
		t.Fatal(err)
	}
	var state viewer.State
	decodeResult(t, res, &state)
	if state.Page != 2 || state.Scale != geom.MaxScale {
		t.Errorf("expected page 2 at max scale, got %+v", state)
	}

	res, err = s.handlePageInfo(ctx, callRequest(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	var info struct {
		Page domain.PageDims `json:"page"`
	}
	decodeResult(t, res, &info)
	if info.Page.Page != 2 || info.Page.Width != 792 {
		t.Errorf("unexpected page info %+v", info.Page)
	}

	if _, err := s.handlePageInfo(ctx, callRequest(map[string]any{"page": float64(7)})); err == nil {
		t.Error("expected error for missing page")
	}
}

func TestPageFromURI(t *testing.T) {
	page, err := pageFromURI("annotations://page/3/rectangles")
	if err != nil || page != 3 {
		t.Errorf("expected page 3, got %d (%v)", page, err)
	}
	for _, uri := range []string{"annotations://page/x/rectangles", "annotations://page/0/rectangles", "notes://page/1/blocks"} {
		if _, err := pageFromURI(uri); err == nil {
			t.Errorf("%s: expected error", uri)
		}
	}
}
