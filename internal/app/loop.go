package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/skobkin/motdwatch/internal/config"
	"github.com/skobkin/motdwatch/internal/poller"
	"github.com/skobkin/motdwatch/internal/transport"
)

const defaultFrameInterval = 250 * time.Millisecond

var ErrLoopStopped = errors.New("frame loop stopped")

// LoopConfig wires a Loop.
type LoopConfig struct {
	Poller        *poller.Poller
	Completions   <-chan transport.Completion
	ConfigUpdates <-chan config.AppConfig
	OnConfig      func(p *poller.Poller, cfg config.AppConfig)
	FrameInterval time.Duration
	Logger        *slog.Logger
}

type loopCmd struct {
	fn   func(p *poller.Poller)
	done chan struct{}
}

// Loop is the single goroutine that owns the poller. Frames, transport
// completions, config reloads and console commands are all serialized here.
type Loop struct {
	poller        *poller.Poller
	completions   <-chan transport.Completion
	configUpdates <-chan config.AppConfig
	onConfig      func(p *poller.Poller, cfg config.AppConfig)
	interval      time.Duration
	logger        *slog.Logger
	now           func() time.Time

	commands chan loopCmd
	stopped  chan struct{}
}

func NewLoop(cfg LoopConfig) *Loop {
	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "app.loop")
	}

	return &Loop{
		poller:        cfg.Poller,
		completions:   cfg.Completions,
		configUpdates: cfg.ConfigUpdates,
		onConfig:      cfg.OnConfig,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
		commands:      make(chan loopCmd),
		stopped:       make(chan struct{}),
	}
}

// Run drives the poller until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := l.now()
	completions := l.completions
	configUpdates := l.configUpdates
	l.logger.Debug("frame loop started", "interval", l.interval.String())
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("frame loop stopped")

			return
		case <-ticker.C:
			now := l.now()
			l.poller.Tick(now.Sub(last))
			last = now
		case c, ok := <-completions:
			if !ok {
				completions = nil

				continue
			}
			l.poller.OnRequestCompleted(c)
		case cfg, ok := <-configUpdates:
			if !ok {
				configUpdates = nil

				continue
			}
			if l.onConfig != nil {
				l.onConfig(l.poller, cfg)
			}
		case cmd := <-l.commands:
			cmd.fn(l.poller)
			close(cmd.done)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(p *poller.Poller)) error {
	cmd := loopCmd{fn: fn, done: make(chan struct{})}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopStopped
	case l.commands <- cmd:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-cmd.done:
		return nil
	}
}

// Stopped is closed once Run returned.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
