package ui

import (
	"log/slog"

	"github.com/skobkin/motdwatch/internal/bus"
	"github.com/skobkin/motdwatch/internal/events"
	"github.com/skobkin/motdwatch/internal/notifications"
)

// BusPresenter is the UI collaborator of the poller. It does not render
// anything; it publishes list snapshots and popup requests for whatever
// front end subscribes to the bus.
type BusPresenter struct {
	bus    bus.MessageBus
	logger *slog.Logger
}

func NewBusPresenter(messageBus bus.MessageBus, logger *slog.Logger) *BusPresenter {
	if logger == nil {
		logger = slog.Default().With("component", "ui.presenter")
	}

	return &BusPresenter{bus: messageBus, logger: logger}
}

func (p *BusPresenter) NotificationListChanged(list *notifications.List) {
	if p == nil || p.bus == nil || list == nil {
		return
	}

	event := events.NotificationsChanged{
		Items:  list.Snapshot(),
		Unread: list.UnreadCount(),
	}
	p.logger.Debug("notification list changed", "count", len(event.Items), "unread", event.Unread)
	p.bus.Publish(events.TopicNotificationsChanged, event)
}

// SaveLastMessage announces an accepted message of the day so storage can
// remember it across restarts.
func (p *BusPresenter) SaveLastMessage(body string) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Publish(events.TopicMessageSeen, events.MessageSeen{Body: body})
}

func (p *BusPresenter) ShowPopup(popup notifications.Popup) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Publish(events.TopicPopup, popup)
}
