package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tkrief1/doc-detective/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a ConfigStore when its file changes on disk and then
// notifies a callback. It watches the containing directory because editors
// and ConfigStore.Save replace the file by renaming over it.
type Watcher struct {
	store    *ConfigStore
	onChange func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for store. onChange runs after each
// successful reload and may be nil.
func NewWatcher(store *ConfigStore, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(store.Path())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(store.Path()), err)
	}

	return &Watcher{
		store:    store,
		onChange: onChange,
		debounce: DefaultDebounce,
		watcher:  fw,
	}, nil
}

// Run processes file events until ctx is cancelled. It closes the
// underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)

		case <-timer.C:
			w.reload()
		}
	}
}

// relevant reports whether event may have changed the config file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	if err := w.store.Load(); err != nil {
		logger.Warn("config reload failed, keeping previous values: %v", err)
		return
	}
	logger.Info("Reloaded %s", w.store.Path())
	if w.onChange != nil {
		w.onChange()
	}
}
