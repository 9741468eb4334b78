package app

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ModelWatcher watches the model directory and triggers a callback when a
// model file is created or rewritten. This keeps a long-lived viewer current
// while models are retrained, without requiring a restart.
type ModelWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	debounce time.Duration
	onChange func(path string) // Called when a changed model settles
}

// NewModelWatcher creates a watcher over the given directory. The directory
// must already exist.
func NewModelWatcher(dir string) (*ModelWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &ModelWatcher{
		dir:      dir,
		watcher:  w,
		stopCh:   make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}, nil
}

// OnChange sets the callback to invoke when a model file changes. The
// callback is called from a background goroutine - use appropriate
// synchronization if updating UI.
func (m *ModelWatcher) OnChange(callback func(path string)) {
	m.onChange = callback
}

// Start begins watching in a background goroutine.
func (m *ModelWatcher) Start() {
	go m.watchLoop()
}

// Stop stops the watcher goroutine.
func (m *ModelWatcher) Stop() {
	close(m.stopCh)
	m.watcher.Close()
}

// Dir returns the watched directory.
func (m *ModelWatcher) Dir() string {
	return m.dir
}

// watchLoop coalesces bursts of filesystem events into one callback. Model
// files are written in chunks, so the callback waits until writes settle.
func (m *ModelWatcher) watchLoop() {
	var pending string
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-m.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !isModelFile(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending = ev.Name
			if timer == nil {
				timer = time.NewTimer(m.debounce)
				timerC = timer.C
			} else {
				timer.Reset(m.debounce)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("app: model watcher error", "error", err)

		case <-timerC:
			if m.onChange != nil && pending != "" {
				slog.Info("app: model file changed", "path", pending)
				m.onChange(pending)
			}
			pending = ""
			timer = nil
			timerC = nil
		}
	}
}

func isModelFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".onnx")
}
