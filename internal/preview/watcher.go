package preview

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// RebuildFunc regenerates the site.
type RebuildFunc func(ctx context.Context) error

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events   int
	Rebuilds int
	Errors   int
	LastPath string
}

// Watcher watches input files (pools, config, personality) and rebuilds
// the site after they settle. Rebuilds never overlap: concurrent triggers
// share the in-flight run.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	files       map[string]bool
	rebuild     RebuildFunc
	group       singleflight.Group
	debounceDur time.Duration
	pendingAt   time.Time
	building    bool
	stats       WatcherStats
	stopCh      chan struct{}
	doneCh      chan struct{}
	wg          sync.WaitGroup
	running     bool
}

// NewWatcher creates a watcher for files. Their parent directories are
// watched so that editors that replace files on save are still seen.
func NewWatcher(files []string, rebuild RebuildFunc, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	w := &Watcher{
		watcher:     fw,
		files:       make(map[string]bool, len(files)),
		rebuild:     rebuild,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
	}
	return w, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := map[string]bool{}
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := w.watcher.Add(d); err != nil {
			logging.PreviewWarn("Watcher: cannot watch %s: %v", d, err)
			continue
		}
		logging.Preview("Watcher: watching %s", d)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for any in-flight rebuild.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.wg.Wait()

	if err := w.watcher.Close(); err != nil {
		logging.PreviewWarn("Watcher: error closing: %v", err)
	}
	logging.Preview("Watcher: stopped")
}

// Stats returns a copy of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Trigger runs a rebuild now, joining one already in flight.
func (w *Watcher) Trigger(ctx context.Context) error {
	_, err, shared := w.group.Do("rebuild", func() (interface{}, error) {
		w.mu.Lock()
		w.building = true
		w.mu.Unlock()

		timer := logging.StartTimer(logging.CategoryPreview, "rebuild")
		err := w.rebuild(ctx)
		timer.Stop()

		w.mu.Lock()
		w.building = false
		w.stats.Rebuilds++
		if err != nil {
			w.stats.Errors++
		}
		w.mu.Unlock()
		return nil, err
	})
	if shared {
		logging.PreviewDebug("Watcher: joined in-flight rebuild")
	}
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.PreviewWarn("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil || !w.files[abs] {
		return
	}

	logging.PreviewDebug("Watcher: %s %s", event.Op, abs)
	w.mu.Lock()
	w.stats.Events++
	w.stats.LastPath = abs
	w.pendingAt = time.Now()
	w.mu.Unlock()
}

// flush starts a rebuild once changes have settled. While a rebuild is
// running the change stays pending so it is picked up by the next one.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if w.pendingAt.IsZero() || w.building || time.Since(w.pendingAt) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pendingAt = time.Time{}
	w.building = true
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		if err := w.Trigger(ctx); err != nil {
			logging.PreviewWarn("Watcher: rebuild failed: %v", err)
		}
	}()
}
