package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is how often [Watcher.Run] looks at the file.
const DefaultWatchInterval = 5 * time.Second

// Reload describes one accepted change of the config file.
type Reload struct {
	Old  *Config
	New  *Config
	Diff ConfigDiff
}

// Watcher keeps the last valid version of a config file and reports edits.
// A file that fails to parse or validate is rejected and the previous config
// stays current, so a half-saved edit never reaches the running process.
type Watcher struct {
	path     string
	interval time.Duration
	onReload func(Reload)
	onReject func(error)

	mu      sync.Mutex
	current *Config
	stamp   fileStamp
	sum     [sha256.Size]byte
}

// fileStamp is the cheap pre-check before the file is read and hashed.
type fileStamp struct {
	size  int64
	mtime time.Time
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval used by [Watcher.Run].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// OnReload registers the callback for accepted changes. It runs on the
// goroutine that called [Watcher.Check] or [Watcher.Run].
func OnReload(fn func(Reload)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// OnReject registers the callback for edits that failed to load. The
// default logs a warning.
func OnReject(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onReject = fn }
}

// NewWatcher loads path and returns a watcher holding it as the current
// config. Polling starts only when [Watcher.Run] is called.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onReject: func(err error) {
			slog.Warn("config: edit rejected; keeping previous config", "path", path, "err", err)
		},
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, stamp, sum, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.current, w.stamp, w.sum = cfg, stamp, sum
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls the file until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check looks at the file once. It reports whether a new config was
// accepted; rejected edits go to the OnReject callback.
func (w *Watcher) Check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		w.onReject(err)
		return false
	}

	w.mu.Lock()
	unchanged := w.stamp == stampOf(info)
	w.mu.Unlock()
	if unchanged {
		return false
	}

	cfg, stamp, sum, err := w.read()
	if err != nil {
		w.onReject(err)
		return false
	}

	w.mu.Lock()
	if sum == w.sum {
		// Touched but identical.
		w.stamp = stamp
		w.mu.Unlock()
		return false
	}
	r := Reload{Old: w.current, New: cfg, Diff: Diff(w.current, cfg)}
	w.current, w.stamp, w.sum = cfg, stamp, sum
	w.mu.Unlock()

	slog.Info("config: reloaded", "path", w.path,
		"log_level_changed", r.Diff.LogLevelChanged,
		"restart_required", r.Diff.RestartRequired)
	if w.onReload != nil {
		w.onReload(r)
	}
	return true
}

func (w *Watcher) read() (*Config, fileStamp, [sha256.Size]byte, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileStamp{}, [sha256.Size]byte{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fileStamp{}, [sha256.Size]byte{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileStamp{}, [sha256.Size]byte{}, err
	}
	return cfg, stampOf(info), sha256.Sum256(data), nil
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{size: info.Size(), mtime: info.ModTime()}
}
