package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/skobkin/motdwatch/internal/bus"
	"github.com/skobkin/motdwatch/internal/events"
	"github.com/skobkin/motdwatch/internal/notifications"
)

// PopupService listens for popup requests on the bus and hands them to a sender.
type PopupService struct {
	bus           bus.MessageBus
	sender        notifications.Sender
	popupsEnabled func() bool
	logger        *slog.Logger
}

func NewPopupService(
	messageBus bus.MessageBus,
	sender notifications.Sender,
	popupsEnabled func() bool,
	logger *slog.Logger,
) *PopupService {
	if logger == nil {
		logger = slog.Default().With("component", "app.popups")
	}

	return &PopupService{
		bus:           messageBus,
		sender:        sender,
		popupsEnabled: popupsEnabled,
		logger:        logger,
	}
}

func (s *PopupService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	sub := s.bus.Subscribe(events.TopicPopup)
	go func() {
		defer s.bus.Unsubscribe(sub, events.TopicPopup)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				popup, ok := raw.(notifications.Popup)
				if !ok {
					continue
				}
				s.handlePopup(popup)
			}
		}
	}()
}

func (s *PopupService) handlePopup(popup notifications.Popup) {
	if s.popupsEnabled != nil && !s.popupsEnabled() {
		s.logger.Debug("popups disabled, skipping", "title", popup.Title)

		return
	}

	title := strings.TrimSpace(popup.Title)
	content := strings.TrimSpace(popup.Body)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending popup", "title", title, "team", popup.Team)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
		Icon:    popup.IconID,
	})
}
