package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pdfviewer/internal/domain"
	"pdfviewer/internal/geom"
)

func (s *Server) registerAnnotationTools() {
	s.mcp.AddTool(mcp.NewTool("list_rectangles",
		mcp.WithDescription("List rectangle annotations in draw order. Coordinates are in document space (scale 1.0)."),
		mcp.WithNumber("page", mcp.Description("1-based page (optional, omit for every page)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListRectangles)

	s.mcp.AddTool(mcp.NewTool("add_rectangle",
		mcp.WithDescription("Add a rectangle annotation. x/y is the corner the drag started from; width/height are signed."),
		mcp.WithNumber("page", mcp.Description("1-based page (optional, defaults to the current page)")),
		mcp.WithNumber("x", mcp.Description("X in document space"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y in document space"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Signed width in document space"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Signed height in document space"), mcp.Required()),
		mcp.WithString("color", mcp.Description("Display colour (optional, default red)")),
	), s.handleAddRectangle)

	s.mcp.AddTool(mcp.NewTool("rectangles_at",
		mcp.WithDescription("List rectangles on a page that contain a document-space point"),
		mcp.WithNumber("page", mcp.Description("1-based page (optional, defaults to the current page)")),
		mcp.WithNumber("x", mcp.Description("X in document space"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y in document space"), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleRectanglesAt)
}

func (s *Server) handleListRectangles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["page"]; !ok {
		return jsonResult(nonNil(s.annotations.All()))
	}
	page, err := s.resolvePage(args)
	if err != nil {
		return nil, err
	}
	return jsonResult(nonNil(s.annotations.ForPage(page)))
}

func (s *Server) handleAddRectangle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	page, err := s.resolvePage(args)
	if err != nil {
		return nil, err
	}

	r := domain.Rectangle{Page: page}
	for name, dst := range map[string]*float64{"x": &r.X, "y": &r.Y, "width": &r.Width, "height": &r.Height} {
		v, err := requireNumber(args, name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	if color, ok := args["color"].(string); ok {
		r.Color = color
	}

	added, err := s.annotations.AddRectangle(ctx, r)
	if err != nil {
		return nil, err
	}
	s.log.WithField("page", added.Page).Debug("rectangle added by agent")
	return jsonResult(added)
}

func (s *Server) handleRectanglesAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	page, err := s.resolvePage(args)
	if err != nil {
		return nil, err
	}
	x, err := requireNumber(args, "x")
	if err != nil {
		return nil, err
	}
	y, err := requireNumber(args, "y")
	if err != nil {
		return nil, err
	}

	hits := []domain.Rectangle{}
	for _, r := range s.annotations.ForPage(page) {
		if r.Contains(x, y) {
			hits = append(hits, r)
		}
	}
	return jsonResult(hits)
}

func (s *Server) registerGeometryTools() {
	s.mcp.AddTool(mcp.NewTool("to_document_space",
		mcp.WithDescription("Convert a viewport pixel position to document space at a zoom scale"),
		mcp.WithNumber("x", mcp.Description("Viewport X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Viewport Y"), mcp.Required()),
		mcp.WithNumber("scale", mcp.Description("Zoom scale (> 0)"), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleConvert(geom.ToDocumentSpace))

	s.mcp.AddTool(mcp.NewTool("to_viewport_space",
		mcp.WithDescription("Convert a document-space position to viewport pixels at a zoom scale"),
		mcp.WithNumber("x", mcp.Description("Document X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Document Y"), mcp.Required()),
		mcp.WithNumber("scale", mcp.Description("Zoom scale (> 0)"), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleConvert(geom.ToViewportSpace))
}

func (s *Server) handleConvert(convert func(x, y, scale float64) (float64, float64)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		vals := make(map[string]float64, 3)
		for _, name := range []string{"x", "y", "scale"} {
			v, err := requireNumber(args, name)
			if err != nil {
				return nil, err
			}
			vals[name] = v
		}
		if err := geom.CheckScale(vals["scale"]); err != nil {
			return nil, err
		}
		x, y := convert(vals["x"], vals["y"], vals["scale"])
		return jsonResult(geom.Point{X: x, Y: y})
	}
}

func nonNil(rects []domain.Rectangle) []domain.Rectangle {
	if rects == nil {
		return []domain.Rectangle{}
	}
	return rects
}

func (s *Server) registerViewerTools() {
	s.mcp.AddTool(mcp.NewTool("page_info",
		mcp.WithDescription("Show the viewer state and the size of a page in document space"),
		mcp.WithNumber("page", mcp.Description("1-based page (optional, defaults to the current page)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handlePageInfo)

	s.mcp.AddTool(mcp.NewTool("set_view",
		mcp.WithDescription("Move the viewer to a page and/or zoom scale. The scale is clamped to the supported range."),
		mcp.WithNumber("page", mcp.Description("1-based page (optional)")),
		mcp.WithNumber("scale", mcp.Description("Zoom scale (optional)")),
		mcp.WithIdempotentHintAnnotation(true),
	), s.handleSetView)
}

func (s *Server) handlePageInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.resolvePage(req.GetArguments())
	if err != nil {
		return nil, err
	}
	var dims *domain.PageDims
	for _, pv := range s.annotations.PrintPlan() {
		if pv.Page == page {
			dims = &domain.PageDims{Page: pv.Page, Width: pv.Width, Height: pv.Height}
			break
		}
	}
	if dims == nil {
		return nil, fmt.Errorf("page %d does not exist", page)
	}
	return jsonResult(map[string]any{
		"viewer":     s.annotations.ViewerState(),
		"page":       dims,
		"rectangles": len(s.annotations.ForPage(page)),
	})
}

func (s *Server) handleSetView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if _, ok := args["page"]; ok {
		page, err := s.resolvePage(args)
		if err != nil {
			return nil, err
		}
		s.annotations.GoToPage(ctx, page)
	}
	if v, ok := args["scale"].(float64); ok {
		s.annotations.SetScale(ctx, v)
	}
	return jsonResult(s.annotations.ViewerState())
}
