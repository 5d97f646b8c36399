package cli

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher re-runs generation when Go source under the module changes.
//
// Generated output is ignored to prevent reload loops; rapid change bursts
// collapse into one run through a debounce timer.
type watcher struct {
	fsw            *fsnotify.Watcher
	log            *zap.SugaredLogger
	onChange       func(context.Context)
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
}

func newWatcher(dir string, log *zap.SugaredLogger, onChange func(context.Context)) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fsw:            fsw,
		log:            log,
		onChange:       onChange,
		debouncePeriod: 500 * time.Millisecond,
	}
	if err := w.addTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers every non-hidden directory under root, so new files in
// existing packages are observed. New directories are added as they appear.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run blocks processing events until ctx is cancelled.
func (w *watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watch error", "error", err)
		}
	}
}

func (w *watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		// Newly created package directories join the watch set.
		if err := w.addTree(event.Name); err == nil {
			w.log.Debugw("watching new path", "path", event.Name)
		}
	}
	if !relevantSource(event.Name) {
		return
	}
	w.log.Debugw("source change detected", "file", event.Name, "op", event.Op.String())
	w.schedule(ctx)
}

// relevantSource reports whether a changed path should trigger a run:
// Go source and configuration, excluding generated output.
func relevantSource(path string) bool {
	base := filepath.Base(path)
	if base == "odigen.yaml" {
		return true
	}
	if !strings.HasSuffix(base, ".go") {
		return false
	}
	return !strings.HasSuffix(base, "_gen.go")
}

func (w *watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx)
	})
}

func (w *watcher) Close() {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}
