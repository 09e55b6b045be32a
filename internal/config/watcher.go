package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vitrine/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands each
// successfully parsed config to a callback. The parent directory is watched
// so that editors which replace the file on save are followed.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    func(*Config)
	debounceDur time.Duration
	pending     time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for path. onChange runs on the watcher
// goroutine.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		watcher:     w,
		path:        abs,
		onChange:    onChange,
		debounceDur: 200 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is a no-op if already running.
func (cw *Watcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = true
	cw.mu.Unlock()

	dir := filepath.Dir(cw.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.ConfigWarn("config watcher: failed to create %s: %v", dir, err)
	}
	if err := cw.watcher.Add(dir); err != nil {
		cw.mu.Lock()
		cw.running = false
		cw.mu.Unlock()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Config("config watcher: watching %s", cw.path)

	go cw.run(ctx)
	return nil
}

// Stop ends watching and waits for the watcher goroutine to exit.
func (cw *Watcher) Stop() {
	cw.mu.Lock()
	wasRunning := cw.running
	cw.running = false
	cw.mu.Unlock()

	if wasRunning {
		close(cw.stopCh)
		<-cw.doneCh
	}
	if err := cw.watcher.Close(); err != nil {
		logging.ConfigWarn("config watcher: close: %v", err)
	}
}

func (cw *Watcher) run(ctx context.Context) {
	defer close(cw.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			cw.mu.Lock()
			cw.pending = time.Now()
			cw.mu.Unlock()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.ConfigWarn("config watcher error: %v", err)
		case <-ticker.C:
			cw.flush()
		}
	}
}

func (cw *Watcher) flush() {
	cw.mu.Lock()
	if cw.pending.IsZero() || time.Since(cw.pending) < cw.debounceDur {
		cw.mu.Unlock()
		return
	}
	cw.pending = time.Time{}
	cw.mu.Unlock()

	if _, err := os.Stat(cw.path); err != nil {
		return
	}
	cfg, err := Load(cw.path)
	if err != nil {
		logging.ConfigWarn("config reload rejected: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logging.ConfigWarn("config reload rejected: %v", err)
		return
	}
	logging.Config("config reloaded from %s", cw.path)
	if cw.onChange != nil {
		cw.onChange(cfg)
	}
}
