// Package watch re-runs build tasks when source files change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/logger"
)

// Observer is told about every handled change
type Observer interface {
	WatchTriggered(rule string)
}

// Options configure a Watcher
type Options struct {
	Root     string
	Rules    []Rule
	Debounce time.Duration
	// Run executes one leaf task by name
	Run      func(ctx context.Context, task string) error
	Observer Observer
}

// Watcher watches the directories the rules point at. Changes are
// debounced per rule and handled one at a time.
type Watcher struct {
	opts Options

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	dirs    map[string]bool
	pending map[int]*pendingChange
	fired   chan firedChange
	ready   chan struct{}
}

type pendingChange struct {
	paths map[string]bool
	timer *time.Timer
}

type firedChange struct {
	rule  int
	paths []string
}

// New creates a Watcher
func New(opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	return &Watcher{
		opts:    opts,
		dirs:    make(map[string]bool),
		pending: make(map[int]*pendingChange),
		fired:   make(chan firedChange, 64),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the initial directories are watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// WatchedDirs returns the watched directories, sorted
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Run watches until ctx is cancelled. All watches are removed on return.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return builderrors.NewIOError(builderrors.CodePathAccess, "Failed to start file watcher", "Watching sources").
			WithOriginalError(err)
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		for _, p := range w.pending {
			p.timer.Stop()
		}
		w.pending = make(map[int]*pendingChange)
		w.dirs = make(map[string]bool)
		w.mu.Unlock()
		fsw.Close()
	}()

	for _, rule := range w.opts.Rules {
		for _, base := range rule.baseDirs() {
			w.watchRecursive(filepath.Join(w.opts.Root, filepath.FromSlash(base)))
		}
	}
	close(w.ready)

	logger.Op.WithFields(map[string]interface{}{
		"dirs":  len(w.WatchedDirs()),
		"rules": len(w.opts.Rules),
	}).Debug("Watching for changes")

	var handlers sync.WaitGroup
	handlers.Add(1)
	go func() {
		defer handlers.Done()
		w.handleLoop(ctx)
	}()
	defer handlers.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Op.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Warn("File watcher error")
		}
	}
}

func (w *Watcher) watchRecursive(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Op.WithFields(map[string]interface{}{"dir": dir}).Debug("Skipping missing watch directory")
		return
	}

	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != dir && ignoredDir(d.Name()) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.dirs[path] {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			logger.Op.WithFields(map[string]interface{}{
				"dir":   path,
				"error": err.Error(),
			}).Warn("Failed to watch directory")
			return nil
		}
		w.dirs[path] = true
		return nil
	})
}

func ignoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchRecursive(event.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.opts.Root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	for i, rule := range w.opts.Rules {
		if rule.Matches(rel) {
			w.schedule(i, rel)
		}
	}
}

// schedule records a change and restarts the rule's debounce timer
func (w *Watcher) schedule(rule int, rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, exists := w.pending[rule]; exists {
		p.paths[rel] = true
		p.timer.Reset(w.opts.Debounce)
		return
	}

	p := &pendingChange{paths: map[string]bool{rel: true}}
	p.timer = time.AfterFunc(w.opts.Debounce, func() {
		w.fire(rule)
	})
	w.pending[rule] = p
}

func (w *Watcher) fire(rule int) {
	w.mu.Lock()
	p, exists := w.pending[rule]
	if !exists {
		w.mu.Unlock()
		return
	}
	delete(w.pending, rule)
	w.mu.Unlock()

	paths := make([]string, 0, len(p.paths))
	for path := range p.paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	select {
	case w.fired <- firedChange{rule: rule, paths: paths}:
	default:
		logger.Op.WithFields(map[string]interface{}{
			"rule": w.opts.Rules[rule].Name,
		}).Warn("Dropping change, handler is busy")
	}
}

func (w *Watcher) handleLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-w.fired:
			w.handle(ctx, w.opts.Rules[change.rule], change.paths)
		}
	}
}

// handle re-runs the rule's task; a failure is logged and nothing is notified
func (w *Watcher) handle(ctx context.Context, rule Rule, changed []string) {
	logger.User.Watchf("%s changed: %s", rule.Name, strings.Join(changed, ", "))
	if w.opts.Observer != nil {
		w.opts.Observer.WatchTriggered(rule.Name)
	}

	if rule.Task != "" && w.opts.Run != nil {
		if err := w.opts.Run(ctx, rule.Task); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.User.Errorf("'%s' failed, still watching: %s", rule.Task, builderrors.DisplayErrorSummary(err))
			logger.Op.WithFields(map[string]interface{}{
				"task":  rule.Task,
				"error": err.Error(),
			}).Debug("Watch re-run failed")
			return
		}
	}

	if rule.OnChange != nil {
		rule.OnChange(changed)
	}
}

// String describes the rule for logs
func (r Rule) String() string {
	if r.Task == "" {
		return fmt.Sprintf("%s -> reload", strings.Join(r.Patterns, ", "))
	}
	return fmt.Sprintf("%s -> %s", strings.Join(r.Patterns, ", "), r.Task)
}
