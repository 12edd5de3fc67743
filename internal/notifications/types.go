package notifications

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTextLength bounds notification titles and bodies, in bytes.
const MaxTextLength = 512

// Notification is a user-visible entry in the notification list.
type Notification struct {
	ID        string
	Title     string
	Body      string
	Unread    bool
	CreatedAt time.Time
}

func New(title, body string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Title:     clamp(title),
		Body:      clamp(body),
		Unread:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// Popup is the on-screen variant of a notification shown while a session is active.
type Popup struct {
	Title  string
	Body   string
	IconID string
	Team   int
}

// Payload is a generic user-facing notification payload.
type Payload struct {
	Title   string
	Content string
	Icon    string
}

// Sender sends notifications using a platform-specific backend.
type Sender interface {
	Send(payload Payload)
}

func clamp(s string) string {
	if len(s) <= MaxTextLength {
		return s
	}
	cut := s[:MaxTextLength]
	// drop a rune split by the cut
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}

	return strings.TrimRight(cut, "\r\n")
}
