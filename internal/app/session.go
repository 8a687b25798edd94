package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"pdfviewer/internal/annotation"
	"pdfviewer/internal/config"
	"pdfviewer/internal/document"
	"pdfviewer/internal/localstore"
	"pdfviewer/internal/remote"
	"pdfviewer/internal/service"
	"pdfviewer/internal/viewer"
)

// Session is one open document with its annotations. The desktop app and
// the standalone MCP server both run on a Session.
type Session struct {
	Annotations *service.AnnotationService

	watcher *document.Watcher
	log     *logrus.Entry
}

// Backends builds the persistence backends cfg enables, remote first so
// Load prefers it.
func Backends(cfg *config.Config) ([]annotation.Backend, error) {
	var backends []annotation.Backend
	if cfg.RemoteURL != "" {
		backends = append(backends, remote.New(cfg.RemoteURL, &http.Client{Timeout: 10 * time.Second}))
	}
	if cfg.LocalStorage {
		st, err := localstore.Open(cfg.LocalStorageDir())
		if err != nil {
			return nil, fmt.Errorf("open local storage: %w", err)
		}
		backends = append(backends, localstore.NewBackend(st))
	}
	return backends, nil
}

// NewSession wires the annotation model for cfg.Document. A document that
// fails to open is reported through the emitter and the session continues
// without pages; persistence failures never stop it either.
func NewSession(ctx context.Context, cfg *config.Config, logger *logrus.Logger, emitter service.EventEmitter) (*Session, error) {
	mode, err := viewer.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	backends, err := Backends(cfg)
	if err != nil {
		return nil, err
	}

	store := annotation.New(logger, backends...)
	view := viewer.New(nil, cfg.Scale, mode)
	svc := service.NewAnnotationService(store, view, emitter, logger, cfg.ThumbnailWidth)

	s := &Session{
		Annotations: svc,
		log:         logger.WithField("component", "session"),
	}

	if cfg.Document != "" {
		doc, err := document.Open(cfg.Document)
		if err != nil {
			svc.DocumentFailed(ctx, err)
		} else {
			svc.SetDocument(ctx, doc)
		}

		w, err := document.Watch(cfg.Document, logger, func(doc *document.Document, err error) {
			if err != nil {
				svc.DocumentFailed(ctx, err)
				return
			}
			svc.SetDocument(ctx, doc)
		})
		if err != nil {
			s.log.WithError(err).Warn("document watcher disabled")
		}
		s.watcher = w
	}

	svc.Load(ctx)

	if err := svc.StartRetry(ctx, cfg.RetrySchedule); err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ApplyView moves the viewer to a saved page, zoom and mode.
func (s *Session) ApplyView(ctx context.Context, v service.DocumentView) viewer.State {
	svc := s.Annotations
	svc.GoToPage(ctx, v.Page)
	if v.Scale > 0 {
		svc.SetScale(ctx, v.Scale)
	}
	if v.Mode != "" && v.Mode != svc.ViewerState().Mode {
		svc.ToggleMode(ctx)
	}
	return svc.ViewerState()
}

// Close stops the watcher and the retry schedule and waits for
// in-flight saves.
func (s *Session) Close(ctx context.Context) {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.log.WithError(err).Debug("close watcher")
		}
		s.watcher = nil
	}
	s.Annotations.Shutdown(ctx)
}
