package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"pdfviewer/internal/service"
)

// Server is the MCP server for the viewer.
// It exposes the annotation model so agents can read and add rectangles.
type Server struct {
	mcp         *server.MCPServer
	annotations *service.AnnotationService
	log         *logrus.Entry
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Annotations *service.AnnotationService
	Logger      *logrus.Logger
	Version     string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		annotations: deps.Annotations,
		log:         logger.WithField("component", "mcp"),
	}

	s.mcp = server.NewMCPServer(
		"pdfviewer-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerAnnotationTools()
	s.registerGeometryTools()
	s.registerViewerTools()
	s.registerResources()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCP returns the underlying server, for in-process clients and tests.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// resolvePage returns the page from tool args or falls back to the
// viewer's current page.
func (s *Server) resolvePage(args map[string]any) (int, error) {
	if v, ok := args["page"]; ok && v != nil {
		f, ok := v.(float64)
		if !ok || f < 1 || f != float64(int(f)) {
			return 0, fmt.Errorf("page must be a positive integer")
		}
		return int(f), nil
	}
	return s.annotations.ViewerState().Page, nil
}

func requireNumber(args map[string]any, name string) (float64, error) {
	f, ok := args[name].(float64)
	if !ok {
		return 0, fmt.Errorf("%s is required and must be a number", name)
	}
	return f, nil
}
