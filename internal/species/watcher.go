package species

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watcher polls the calibration stores and reloads the catalog into a Holder
// when any of them changes. A reload that fails keeps the previous catalog.
type Watcher struct {
	paths    Paths
	holder   *Holder
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	baseline time.Time
	onReload func(*Catalog)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher. The current modification times become the
// baseline, so nothing is reloaded until a file changes after this call.
func NewWatcher(paths Paths, holder *Holder, interval time.Duration, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		paths:    paths,
		holder:   holder,
		interval: interval,
		log:      log.Named("watcher"),
	}
	w.baseline = w.latestModTime()
	return w
}

// OnReload sets a callback invoked after each successful reload.
// The callback runs on the watcher goroutine.
func (w *Watcher) OnReload(fn func(*Catalog)) {
	w.mu.Lock()
	w.onReload = fn
	w.mu.Unlock()
}

// Start begins polling in a background goroutine until ctx is done or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
}

// Stop halts polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check reloads the catalog if any store changed since the last successful
// load. It reports whether a new catalog was installed.
func (w *Watcher) Check(ctx context.Context) bool {
	latest := w.latestModTime()

	w.mu.Lock()
	changed := latest.After(w.baseline)
	w.mu.Unlock()
	if !changed {
		return false
	}

	cat, err := LoadCatalog(ctx, w.paths, w.log)
	if err != nil {
		w.log.Error("catalog reload failed, keeping previous catalog", zap.Error(err))
		w.mu.Lock()
		w.baseline = latest
		w.mu.Unlock()
		return false
	}

	w.holder.Swap(cat)

	w.mu.Lock()
	w.baseline = latest
	fn := w.onReload
	w.mu.Unlock()

	w.log.Info("catalog reloaded")
	if fn != nil {
		fn(cat)
	}
	return true
}

// latestModTime returns the newest modification time across the store files
// and the template directory's entries.
func (w *Watcher) latestModTime() time.Time {
	var latest time.Time
	bump := func(path string) {
		if info, err := os.Stat(path); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}

	bump(w.paths.Profiles)
	bump(w.paths.WaterModels)
	bump(w.paths.Targets)
	bump(w.paths.Templates)

	if entries, err := os.ReadDir(w.paths.Templates); err == nil {
		for _, e := range entries {
			bump(filepath.Join(w.paths.Templates, e.Name()))
		}
	}
	return latest
}
