package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/skobkin/motdwatch/internal/bus"
	"github.com/skobkin/motdwatch/internal/events"
	"github.com/skobkin/motdwatch/internal/notifications"
	"github.com/skobkin/motdwatch/internal/persistence"
)

// NotificationWriter stores full list snapshots.
type NotificationWriter interface {
	ReplaceAll(ctx context.Context, items []notifications.Notification) error
}

// StateWriter stores poller key/value state.
type StateWriter interface {
	Set(ctx context.Context, key, value string) error
}

// lastMessageEnqueueWait bounds how long the projection waits for queue space
// before giving up on a last-message write.
const lastMessageEnqueueWait = 2 * time.Second

// StartPersistenceProjection mirrors notification list changes and accepted
// messages into storage through the writer queue.
func StartPersistenceProjection(
	ctx context.Context,
	messageBus bus.MessageBus,
	writer *persistence.WriterQueue,
	repo NotificationWriter,
	state StateWriter,
	logger *slog.Logger,
) {
	if messageBus == nil || writer == nil || repo == nil {
		return
	}
	if logger == nil {
		logger = slog.Default().With("component", "app.persistence")
	}

	topics := []string{events.TopicNotificationsChanged, events.TopicMessageSeen}
	sub := messageBus.Subscribe(topics...)
	go func() {
		defer messageBus.Unsubscribe(sub, topics...)

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				switch event := raw.(type) {
				case events.NotificationsChanged:
					items := event.Items
					logger.Debug("persisting notification list", "count", len(items))
					writer.Enqueue("replace_notifications", func(ctx context.Context) error {
						return repo.ReplaceAll(ctx, items)
					})
				case events.MessageSeen:
					if state == nil {
						continue
					}
					body := event.Body
					// a lost write re-announces the same message after restart
					if !writer.EnqueueWait(ctx, "save_last_message", lastMessageEnqueueWait, func(ctx context.Context) error {
						return state.Set(ctx, persistence.StateKeyLastMessage, body)
					}) {
						logger.Error("last message was not persisted", "size", len(body))
					}
				}
			}
		}
	}()
}
