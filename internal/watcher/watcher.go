// Package watcher reports debounced changes to source files under the scan
// roots so the corpus tables can be regenerated while a tree is edited.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/imyousuf/srcgraph/internal/scanner"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event represents a change to one source file.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// Config holds configuration for the Watcher.
type Config struct {
	Roots           []string
	ExcludePatterns []string
	// Extensions limits events to files with these extensions. Empty means
	// every file.
	Extensions []string
	Debounce   time.Duration
	Logger     func(format string, args ...any) // optional logger, defaults to fmt.Fprintf(os.Stderr, ...)
}

// DefaultDebounce is the quiet period after the last event for a path before
// the event is emitted.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches the scan roots and emits debounced events.
type Watcher struct {
	cfg     Config
	matcher *scanner.IgnoreMatcher
	exts    map[string]bool
	log     func(format string, args ...any)

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a Watcher. Ignore rules are the same the scanner applies.
func New(cfg Config) (*Watcher, error) {
	matcher := scanner.NewIgnoreMatcher(cfg.Roots, cfg.ExcludePatterns)
	if err := matcher.LoadPatterns(); err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		exts[e] = true
	}
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Watcher{cfg: cfg, matcher: matcher, exts: exts, log: logFn}, nil
}

// Start begins watching and returns the event channel, which is closed when
// ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Event, 100)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if w.matcher.Match(path, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Relevant reports whether a change to path should be emitted.
func (w *Watcher) Relevant(path string, isDir bool) bool {
	if isDir || w.matcher.Match(path, false) {
		return false
	}
	return len(w.exts) == 0 || w.exts[filepath.Ext(path)]
}

// eventLoop owns out. Debounce timers only hand the path back to the loop,
// so nothing is sent on out after it is closed.
func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)

	done := make(chan struct{})
	defer close(done)

	pending := make(map[string]Event)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	fire := make(chan string, 16)
	arm := func(path string) {
		if t, ok := timers[path]; ok {
			t.Reset(w.cfg.Debounce)
			return
		}
		timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
			select {
			case fire <- path:
			case <-done:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return

		case path := <-fire:
			evt, ok := pending[path]
			if !ok {
				continue
			}
			delete(pending, path)
			delete(timers, path)
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			isDir := false
			if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
				isDir = true
				if op == Create && !w.matcher.Match(fsEvent.Name, true) {
					if err := w.addRecursive(fsEvent.Name); err != nil {
						w.log("Watch %s: %v", fsEvent.Name, err)
					}
				}
			}
			if !w.Relevant(fsEvent.Name, isDir) {
				continue
			}
			pending[fsEvent.Name] = Event{Path: fsEvent.Name, Op: op, Time: time.Now()}
			arm(fsEvent.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log("Watch error: %v", err)
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
