// Package watcher observes module index directories and triggers a reload
// when an external index builder commits new segments. Events are debounced
// so a multi-file segment swap causes one reload, not one per file.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet window before a reload fires.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc reloads one module by name. Typically registry.Reload.
type ReloadFunc func(name string) error

// ReloadWatcher maps watched index directories to module names and invokes
// the reload function after changes settle.
type ReloadWatcher struct {
	reload   ReloadFunc
	debounce time.Duration

	fs *fsnotify.Watcher

	mu      sync.Mutex
	modules map[string]string // directory -> module name
	timers  map[string]*time.Timer
	closed  bool
}

// Option configures a ReloadWatcher.
type Option func(*ReloadWatcher)

// WithDebounce sets the quiet window before a reload fires.
func WithDebounce(d time.Duration) Option {
	return func(w *ReloadWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a ReloadWatcher that calls reload for each settled change.
func New(reload ReloadFunc, opts ...Option) (*ReloadWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ReloadWatcher{
		reload:   reload,
		debounce: DefaultDebounce,
		fs:       fs,
		modules:  make(map[string]string),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers a module's index directory.
func (w *ReloadWatcher) Watch(module, dir string) error {
	if err := w.fs.Add(dir); err != nil {
		return err
	}

	w.mu.Lock()
	w.modules[dir] = module
	w.mu.Unlock()

	slog.Debug("watch_added", slog.String("module", module), slog.String("dir", dir))
	return nil
}

// Unwatch removes a module's index directory.
func (w *ReloadWatcher) Unwatch(dir string) error {
	w.mu.Lock()
	delete(w.modules, dir)
	if timer, ok := w.timers[dir]; ok {
		timer.Stop()
		delete(w.timers, dir)
	}
	w.mu.Unlock()

	return w.fs.Remove(dir)
}

// Run processes filesystem events until the context is cancelled or Close
// is called. Watcher errors are logged, never fatal.
func (w *ReloadWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// handle debounces one filesystem event into a pending reload.
func (w *ReloadWatcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	var dir, module string
	for d, m := range w.modules {
		if d == event.Name || (len(event.Name) > len(d) && event.Name[:len(d)] == d) {
			dir, module = d, m
			break
		}
	}
	if module == "" {
		return
	}

	if timer, ok := w.timers[dir]; ok {
		timer.Stop()
	}
	w.timers[dir] = time.AfterFunc(w.debounce, func() {
		w.fire(dir, module)
	})
}

// fire runs the reload for one settled directory.
func (w *ReloadWatcher) fire(dir, module string) {
	w.mu.Lock()
	delete(w.timers, dir)
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	if err := w.reload(module); err != nil {
		slog.Warn("auto_reload_failed",
			slog.String("module", module),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("auto_reload", slog.String("module", module))
}

// Close stops the watcher and cancels pending reloads. Safe to call once.
func (w *ReloadWatcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for dir, timer := range w.timers {
		timer.Stop()
		delete(w.timers, dir)
	}
	w.mu.Unlock()

	return w.fs.Close()
}
