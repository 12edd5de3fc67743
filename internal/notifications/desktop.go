package notifications

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"golang.org/x/time/rate"
)

// DesktopSender delivers payloads as native desktop notifications.
type DesktopSender struct {
	logger *slog.Logger
	notify func(title, message, icon string) error
}

func NewDesktopSender(logger *slog.Logger) *DesktopSender {
	if logger == nil {
		logger = slog.Default().With("component", "notifications.desktop")
	}

	return &DesktopSender{
		logger: logger,
		notify: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

func (s *DesktopSender) Send(payload Payload) {
	if s == nil {
		return
	}

	title := strings.TrimSpace(payload.Title)
	content := strings.TrimSpace(payload.Content)
	if title == "" && content == "" {
		return
	}
	icon := desktopIconPath(payload.Icon)
	if err := s.notify(title, content, icon); err != nil {
		s.logger.Warn("send desktop notification", "title", title, "error", err)

		return
	}
	s.logger.Debug("desktop notification sent", "title", title, "icon", icon)
}

// desktopIconPath returns icon when it names an image file. Game icon ids
// such as "ico_notify_flag_moving" have no desktop counterpart and yield "".
func desktopIconPath(icon string) string {
	icon = strings.TrimSpace(icon)
	if icon == "" {
		return ""
	}
	info, err := os.Stat(icon)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}

	return icon
}

// RateLimitedSender drops payloads beyond burst per interval so a flapping
// endpoint cannot flood the desktop.
type RateLimitedSender struct {
	next    Sender
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewRateLimitedSender(next Sender, burst int, interval time.Duration, logger *slog.Logger) *RateLimitedSender {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default().With("component", "notifications.limiter")
	}

	return &RateLimitedSender{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		logger:  logger,
	}
}

func (s *RateLimitedSender) Send(payload Payload) {
	if s == nil || s.next == nil {
		return
	}
	if !s.limiter.Allow() {
		s.logger.Debug("notification dropped by rate limit", "title", payload.Title)

		return
	}
	s.next.Send(payload)
}
