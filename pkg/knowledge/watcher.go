package knowledge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

var errWatcherClosed = errors.New("snapshot watcher closed")

// Watcher reports changes to the snapshot files of a FileLoader.
type Watcher struct {
	loader   *FileLoader
	onChange func()
	onError  func(error)
}

func NewWatcher(loader *FileLoader, onChange func(), onError func(error)) *Watcher {
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{loader: loader, onChange: onChange, onError: onError}
}

// Run watches the snapshot directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create snapshot watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.loader.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.loader.Dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errWatcherClosed
			}
			if w.matches(event) {
				w.onChange()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return errWatcherClosed
			}
			w.onError(watchErr)
		}
	}
}

func (w *Watcher) matches(event fsnotify.Event) bool {
	if event.Name == "" {
		return false
	}
	name := filepath.Clean(event.Name)
	if name != filepath.Clean(w.loader.ChunksPath()) && name != filepath.Clean(w.loader.EmbeddingsPath()) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
