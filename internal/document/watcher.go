package document

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ReloadHandler receives the reopened document, or the error that
// prevented reopening it.
type ReloadHandler func(doc *Document, err error)

// Watcher reopens a document whenever its file is rewritten.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload ReloadHandler
	log      *logrus.Entry

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// Watch starts watching path. fsnotify watches the parent directory so
// editors that replace the file by rename are seen too.
func Watch(path string, logger *logrus.Logger, onReload ReloadHandler) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	if logger == nil {
		logger = logrus.New()
	}
	w := &Watcher{
		watcher:  fw,
		path:     absPath,
		onReload: onReload,
		log:      logger.WithField("component", "document-watcher"),
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			if absPath != w.path {
				continue
			}
			doc, err := Open(w.path)
			if err != nil {
				w.log.WithError(err).WithField("path", w.path).Warn("reload failed")
			} else {
				w.log.WithFields(logrus.Fields{
					"path":  w.path,
					"pages": doc.NumPages(),
				}).Info("document reloaded")
			}
			if w.onReload != nil {
				w.onReload(doc, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("watcher error")
		}
	}
}
