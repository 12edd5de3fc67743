package notifications

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNewNotificationIsUnreadWithID(t *testing.T) {
	n := New("Title", "Body")
	if !n.Unread {
		t.Fatalf("expected new notification to be unread")
	}
	if n.ID == "" {
		t.Fatalf("expected notification id")
	}
	if n.CreatedAt.IsZero() {
		t.Fatalf("expected creation time")
	}
}

func TestNewNotificationClampsText(t *testing.T) {
	long := strings.Repeat("é", MaxTextLength)
	n := New(long, "ok")
	if len(n.Title) > MaxTextLength {
		t.Fatalf("expected title clamped to %d bytes, got %d", MaxTextLength, len(n.Title))
	}
	if !utf8.ValidString(n.Title) {
		t.Fatalf("clamped title is not valid utf-8")
	}
}

func TestListRemovePreservesOrder(t *testing.T) {
	l := NewList(New("a", ""), New("b", ""), New("c", ""))

	removed, err := l.Remove(1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Title != "b" {
		t.Fatalf("expected removed b, got %q", removed.Title)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", l.Len())
	}
	got := l.Snapshot()
	if got[0].Title != "a" || got[1].Title != "c" {
		t.Fatalf("unexpected order after remove: %q, %q", got[0].Title, got[1].Title)
	}
}

func TestListRemoveOutOfRange(t *testing.T) {
	l := NewList(New("a", ""))

	for _, idx := range []int{-1, 1, 5} {
		if _, err := l.Remove(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("Remove(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if l.Len() != 1 {
		t.Fatalf("list must be untouched, len = %d", l.Len())
	}
}

func TestListUnreadCountAndMarkRead(t *testing.T) {
	l := NewList(New("a", ""), New("b", ""))
	if got := l.UnreadCount(); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}
	if err := l.MarkRead(0); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if got := l.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread, got %d", got)
	}
	if err := l.MarkRead(2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestListSnapshotIsACopy(t *testing.T) {
	l := NewList(New("a", ""))
	snap := l.Snapshot()
	snap[0].Title = "changed"

	n, err := l.At(0)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	if n.Title != "a" {
		t.Fatalf("snapshot mutation leaked into list: %q", n.Title)
	}
}

func TestDesktopSenderSkipsEmptyPayload(t *testing.T) {
	var calls int
	s := NewDesktopSender(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.notify = func(_, _, _ string) error {
		calls++

		return nil
	}

	s.Send(Payload{Title: "  ", Content: ""})
	s.Send(Payload{Title: " Update! ", Content: "1.0.1\n"})

	if calls != 1 {
		t.Fatalf("expected one notify call, got %d", calls)
	}
}

func TestDesktopSenderPassesIconFile(t *testing.T) {
	iconPath := filepath.Join(t.TempDir(), "icon.png")
	if err := os.WriteFile(iconPath, []byte("png"), 0o600); err != nil {
		t.Fatalf("write icon: %v", err)
	}

	var icons []string
	s := NewDesktopSender(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.notify = func(_, _, icon string) error {
		icons = append(icons, icon)

		return nil
	}

	s.Send(Payload{Title: "Update!", Icon: iconPath})
	s.Send(Payload{Title: "Hello", Icon: "ico_notify_flag_moving"})
	s.Send(Payload{Title: "Dir", Icon: filepath.Dir(iconPath)})

	if len(icons) != 3 {
		t.Fatalf("expected 3 notify calls, got %d", len(icons))
	}
	if icons[0] != iconPath || icons[1] != "" || icons[2] != "" {
		t.Fatalf("unexpected icons %q", icons)
	}
}

func TestRateLimitedSenderDropsBeyondBurst(t *testing.T) {
	next := &collectingSender{}
	s := NewRateLimitedSender(next, 2, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 5; i++ {
		s.Send(Payload{Title: "t"})
	}

	if got := next.count(); got != 2 {
		t.Fatalf("expected 2 delivered payloads, got %d", got)
	}
}

type collectingSender struct {
	mu       sync.Mutex
	payloads []Payload
}

func (s *collectingSender) Send(p Payload) {
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()
}

func (s *collectingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.payloads)
}

func TestWriterSenderPrintsIndentedBody(t *testing.T) {
	var buf bytes.Buffer
	sender := NewWriterSender(&buf)

	sender.Send(Payload{Title: "Update!", Content: "line one\nline two"})
	sender.Send(Payload{})
	sender.Send(Payload{Title: "Title only"})

	want := "[popup] Update!\n  line one\n  line two\n[popup] Title only\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestListClear(t *testing.T) {
	list := NewList(New("a", ""), New("b", ""))
	list.Clear()
	if list.Len() != 0 || list.UnreadCount() != 0 {
		t.Fatalf("expected empty list after clear")
	}
}
