package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pdfviewer/internal/config"
	mcpserver "pdfviewer/internal/mcp"
	"pdfviewer/internal/server"
	"pdfviewer/internal/service"
	"pdfviewer/internal/storage"
)

// ServeMCP runs the annotation model as a standalone MCP server on
// stdin/stdout with no GUI, until interrupted.
func ServeMCP(cfg *config.Config, logger *logrus.Logger, version string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol.
	logger.SetOutput(os.Stderr)

	session, err := NewSession(ctx, cfg, logger, service.NoopEmitter{})
	if err != nil {
		return err
	}
	defer session.Close(context.Background())

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Annotations: session.Annotations,
		Logger:      logger,
		Version:     version,
	})
	if err := mcpSrv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// ServeHTTP runs the rectangles endpoint on cfg.Listen until interrupted.
func ServeHTTP(cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, err := storage.OpenRepository(cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	srv := server.New(repo, logger, server.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	return srv.ListenAndServe(ctx, cfg.Listen)
}
