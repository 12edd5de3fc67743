package config

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultReloadDebounce = 250 * time.Millisecond
	watchRestartBackoff   = 2 * time.Second
)

// Watcher reloads the config file when it changes on disk and delivers the
// parsed result to Updates. Invalid or unchanged files are skipped.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	updates  chan AppConfig

	mu   sync.Mutex
	last []byte
}

func NewWatcher(path string, current AppConfig, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default().With("component", "config.watcher")
	}
	last, _ := json.Marshal(current)

	return &Watcher{
		path:     filepath.Clean(path),
		logger:   logger,
		debounce: defaultReloadDebounce,
		updates:  make(chan AppConfig, 1),
		last:     last,
	}
}

func (w *Watcher) Updates() <-chan AppConfig {
	if w == nil {
		return nil
	}

	return w.updates
}

// Run blocks until ctx is done, recreating the fsnotify watcher if it breaks.
func (w *Watcher) Run(ctx context.Context) {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	for ctx.Err() == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("create config watcher", "error", err)
			if !sleepCtx(ctx, watchRestartBackoff) {
				return
			}

			continue
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			w.logger.Warn("watch config dir", "dir", dir, "error", err)
			if !sleepCtx(ctx, watchRestartBackoff) {
				return
			}

			continue
		}
		w.logger.Debug("config watcher started", "dir", dir, "file", file)

		w.consume(ctx, fsw, file)
		_ = fsw.Close()
	}
}

func (w *Watcher) consume(ctx context.Context, fsw *fsnotify.Watcher, file string) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("reload config", "path", w.path, "error", err)

		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("reloaded config rejected", "path", w.path, "error", err)

		return
	}

	raw, _ := json.Marshal(cfg)
	w.mu.Lock()
	unchanged := bytes.Equal(raw, w.last)
	if !unchanged {
		w.last = raw
	}
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("config unchanged, skipping reload", "path", w.path)

		return
	}

	select {
	case w.updates <- cfg:
	default:
		// keep only the newest config
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- cfg:
		default:
		}
	}
	w.logger.Info("config reloaded", "path", w.path)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
