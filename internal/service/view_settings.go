package service

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"pdfviewer/internal/viewer"
)

// ─────────────────────────────────────────────────────────────
// View Settings Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main Wails window size and, per document, the
// page, zoom and render mode the viewer was left at. Stored as one JSON
// value in device local storage.

const (
	settingsKey         = "view-settings"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 900
	minWindowWidth      = 640
	minWindowHeight     = 480
)

// SettingsStore is key/value device storage; *localstore.Storage
// satisfies it.
type SettingsStore interface {
	GetItem(key string) ([]byte, bool, error)
	SetItem(key string, value []byte) error
}

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DocumentView is where the viewer was left on one document.
type DocumentView struct {
	Page  int         `json:"page"`
	Scale float64     `json:"scale"`
	Mode  viewer.Mode `json:"mode"`
}

type viewSettings struct {
	Window    WindowSize              `json:"window"`
	Documents map[string]DocumentView `json:"documents"`
}

// ViewSettingsService persists window size and document views between
// sessions.
type ViewSettingsService struct {
	mu    sync.Mutex
	store SettingsStore
}

// NewViewSettingsService creates a ViewSettingsService. A nil store
// disables persistence.
func NewViewSettingsService(store SettingsStore) *ViewSettingsService {
	return &ViewSettingsService{store: store}
}

func (s *ViewSettingsService) read() viewSettings {
	vs := viewSettings{Documents: map[string]DocumentView{}}
	if s.store == nil {
		return vs
	}
	data, ok, err := s.store.GetItem(settingsKey)
	if err != nil || !ok {
		return vs
	}
	if json.Unmarshal(data, &vs) != nil || vs.Documents == nil {
		vs.Documents = map[string]DocumentView{}
	}
	return vs
}

func (s *ViewSettingsService) update(fn func(*viewSettings)) error {
	if s.store == nil {
		return fmt.Errorf("view settings: no store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	vs := s.read()
	fn(&vs)
	data, err := json.Marshal(vs)
	if err != nil {
		return fmt.Errorf("encode view settings: %w", err)
	}
	return s.store.SetItem(settingsKey, data)
}

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *ViewSettingsService) LoadWindowSize() WindowSize {
	s.mu.Lock()
	w := s.read().Window
	s.mu.Unlock()

	if w.Width < minWindowWidth {
		w.Width = defaultWindowWidth
	}
	if w.Height < minWindowHeight {
		w.Height = defaultWindowHeight
	}
	return w
}

// SaveWindowSize persists the current window dimensions.
func (s *ViewSettingsService) SaveWindowSize(width, height int) error {
	return s.update(func(vs *viewSettings) {
		vs.Window = WindowSize{Width: width, Height: height}
	})
}

func documentKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// LoadDocumentView returns the saved view of the document at path.
func (s *ViewSettingsService) LoadDocumentView(path string) (DocumentView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.read().Documents[documentKey(path)]
	return v, ok
}

// SaveDocumentView records where the viewer is on the document at path.
func (s *ViewSettingsService) SaveDocumentView(path string, state viewer.State) error {
	return s.update(func(vs *viewSettings) {
		vs.Documents[documentKey(path)] = DocumentView{
			Page:  state.Page,
			Scale: state.Scale,
			Mode:  state.Mode,
		}
	})
}
