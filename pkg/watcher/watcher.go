// Package watcher re-runs a conversion whenever one of its source files
// changes.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports debounced changes of individual files. It watches the
// parent directories, so files replaced by rename-on-save keep being
// tracked. Callbacks run one at a time on the goroutine calling Run.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	callbacks map[string]func(string)
	dirs      map[string]bool
	timers    map[string]pending
	gen       uint64

	fired     chan firing
	done      chan struct{}
	closeOnce sync.Once

	// OnError receives errors from the underlying watcher. Nil drops them.
	OnError func(error)
}

// pending is the debounce timer of one file. gen tells a timer apart from
// its replacement.
type pending struct {
	timer *time.Timer
	gen   uint64
}

type firing struct {
	path string
	gen  uint64
}

// New creates a watcher that waits for debounce of quiet time after the
// last change of a file before reporting it
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fsw:       fsw,
		debounce:  debounce,
		callbacks: make(map[string]func(string)),
		dirs:      make(map[string]bool),
		timers:    make(map[string]pending),
		fired:     make(chan firing),
		done:      make(chan struct{}),
	}, nil
}

// Watch registers callback for changes of any of files
func (w *Watcher) Watch(files []string, callback func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}

		dir := filepath.Dir(absPath)
		if !w.dirs[dir] {
			if err := w.fsw.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			w.dirs[dir] = true
		}
		w.callbacks[absPath] = callback
	}
	return nil
}

// Run dispatches changes until ctx is cancelled or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule(filepath.Clean(event.Name))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}

		case f := <-w.fired:
			if callback := w.take(f); callback != nil {
				callback(f.path)
			}
		}
	}
}

// take returns the callback for a fired timer and forgets the timer unless
// a newer change has already replaced it
func (w *Watcher) take(f firing) func(string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.timers[f.path]; ok && p.gen == f.gen {
		delete(w.timers, f.path)
	}
	return w.callbacks[f.path]
}

// schedule restarts the debounce timer of a watched file
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watched := w.callbacks[path]; !watched {
		return
	}
	if p, exists := w.timers[path]; exists {
		p.timer.Stop()
	}
	w.gen++
	f := firing{path: path, gen: w.gen}
	w.timers[path] = pending{
		timer: time.AfterFunc(w.debounce, func() {
			select {
			case w.fired <- f:
			case <-w.done:
			}
		}),
		gen: f.gen,
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, p := range w.timers {
		p.timer.Stop()
		delete(w.timers, path)
	}
}

// Close stops the watcher and releases its resources
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
