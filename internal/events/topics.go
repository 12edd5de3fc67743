package events

import "github.com/skobkin/motdwatch/internal/notifications"

const (
	TopicNotificationsChanged = "notifications.changed"
	TopicPopup                = "notifications.popup"
	TopicMessageSeen          = "poller.message_seen"
)

// NotificationsChanged carries a copy of the list after every mutation.
type NotificationsChanged struct {
	Items  []notifications.Notification
	Unread int
}

// MessageSeen is published when a new message of the day was accepted.
type MessageSeen struct {
	Body string
}
