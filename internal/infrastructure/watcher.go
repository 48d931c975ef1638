package infrastructure

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

	"github.com/Francouer/proto-guard/internal/domain"
)

type SchemaWatcherImpl struct {
	logger domain.Logger
}

// NewSchemaWatcher creates a new schema watcher
func NewSchemaWatcher(logger domain.Logger) domain.SchemaWatcher {
	return &SchemaWatcherImpl{
		logger: logger,
	}
}

// Watch blocks until the context is cancelled, invoking onChange for every
// watched file that settled down after the debounce interval. Rapid saves
// of the same file collapse into one invocation.
func (w *SchemaWatcherImpl) Watch(ctx context.Context, dir string, cfg domain.WatchConfig, onChange func(path string) error) error {
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 500 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".proto"}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, dir, cfg.SkipHidden); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	debounce := newPathDebouncer(cfg.DebounceInterval, func(paths []string) {
		for _, path := range paths {
			if err := onChange(path); err != nil {
				w.logger.Error("change handler failed for %s: %v", path, err)
			}
		}
	})
	defer debounce.stop()

	w.logger.Info("watching %s (debounce %s)", dir, cfg.DebounceInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !shouldProcessEvent(event, cfg) {
				continue
			}
			w.logger.Debug("file event: %s %s", event.Op, event.Name)
			debounce.trigger(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching despite transient errors.
			w.logger.Error("watcher error: %v", err)
		}
	}
}

// addWatchDirs registers dir and every subdirectory. fsnotify watches are
// not recursive on their own.
func addWatchDirs(watcher *fsnotify.Watcher, dir string, skipHidden bool) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if skipHidden && strings.HasPrefix(filepath.Base(path), ".") && path != dir {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch directory %q: %w", path, err)
			}
		}
		return nil
	})
}

func shouldProcessEvent(event fsnotify.Event, cfg domain.WatchConfig) bool {
	// Chmod fires on permission churn without content changes.
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	found := false
	for _, valid := range cfg.Extensions {
		if ext == strings.ToLower(valid) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	if cfg.SkipHidden && strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}

	return true
}

// pathDebouncer collects changed paths and flushes them in one sorted
// batch once no new event arrived for a full interval.
type pathDebouncer struct {
	interval time.Duration
	flush    func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	stopped bool
}

func newPathDebouncer(interval time.Duration, flush func([]string)) *pathDebouncer {
	return &pathDebouncer{
		interval: interval,
		flush:    flush,
		pending:  map[string]struct{}{},
	}
}

func (d *pathDebouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *pathDebouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = map[string]struct{}{}
	d.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	d.flush(paths)
}

func (d *pathDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
