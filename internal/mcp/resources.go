package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	rectanglesURI     = "annotations://rectangles"
	pageURIPrefix     = "annotations://page/"
	pageURISuffix     = "/rectangles"
	pageRectanglesURI = pageURIPrefix + "{page}" + pageURISuffix
)

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(
		rectanglesURI,
		"All Rectangles",
		mcp.WithMIMEType("application/json"),
	), s.handleRectanglesResource)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageRectanglesURI,
			"Rectangles on a Page",
		),
		s.handlePageRectanglesResource,
	)
}

func (s *Server) handleRectanglesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(rectanglesURI, nonNil(s.annotations.All()))
}

func (s *Server) handlePageRectanglesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	page, err := pageFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, nonNil(s.annotations.ForPage(page)))
}

// pageFromURI extracts n from annotations://page/{n}/rectangles.
func pageFromURI(uri string) (int, error) {
	if !strings.HasPrefix(uri, pageURIPrefix) || !strings.HasSuffix(uri, pageURISuffix) {
		return 0, fmt.Errorf("unexpected resource uri %q", uri)
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(uri, pageURIPrefix), pageURISuffix)
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page in %q", uri)
	}
	return page, nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
