package corefs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/codeintel/internal/telemetry"
)

// EventKind mirrors watcher.go's FileEventType enum.
type EventKind int

const (
	EventCreate EventKind = iota
	EventWrite
	EventRemove
	EventRename
)

// Event is a single debounced filesystem change.
type Event struct {
	Path string
	Kind EventKind
}

// Watcher incrementally re-ingests files on change, debounced, so a burst
// of writes (editor autosave, `go build`) produces one Event per path
// rather than one per fsnotify callback.
type Watcher struct {
	root      string
	debounce  time.Duration
	fsw       *fsnotify.Watcher
	onEvent   func(Event)
	mu        sync.Mutex
	pending   map[string]*time.Timer
	cancelCtx context.CancelFunc
}

// NewWatcher starts watching root (recursively) and calls onEvent, after
// debounce has elapsed with no further activity on that path.
func NewWatcher(root string, debounce time.Duration, onEvent func(Event)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{root: root, debounce: debounce, fsw: fsw, onEvent: onEvent, pending: map[string]*time.Timer{}}

	if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		return fsw.Add(path)
	}); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelCtx = cancel
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	log := telemetry.WithOp(ctx, "corefs", "watch")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.schedule(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ev fsnotify.Event) {
	kind := translateOp(ev.Op)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, exists := w.pending[ev.Name]; exists {
		t.Stop()
	}
	w.pending[ev.Name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, ev.Name)
		w.mu.Unlock()
		if ev.Op&fsnotify.Create == fsnotify.Create {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.fsw.Add(ev.Name)
			}
		}
		w.onEvent(Event{Path: ev.Name, Kind: kind})
	})
}

func translateOp(op fsnotify.Op) EventKind {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return EventCreate
	case op&fsnotify.Remove == fsnotify.Remove:
		return EventRemove
	case op&fsnotify.Rename == fsnotify.Rename:
		return EventRename
	default:
		return EventWrite
	}
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	w.cancelCtx()
	return w.fsw.Close()
}
