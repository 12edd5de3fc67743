package notifications

import (
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("notification index out of range")

// List is the ordered notification list shared by the poller and the UI.
// It is not safe for concurrent use; the frame loop owns it.
type List struct {
	items []Notification
}

func NewList(items ...Notification) *List {
	l := &List{}
	l.items = append(l.items, items...)

	return l
}

func (l *List) Append(n Notification) {
	l.items = append(l.items, n)
}

func (l *List) Clear() {
	l.items = nil
}

func (l *List) Len() int {
	return len(l.items)
}

func (l *List) At(index int) (Notification, error) {
	if err := l.checkIndex(index); err != nil {
		return Notification{}, err
	}

	return l.items[index], nil
}

// Remove deletes the entry at index keeping the order of the rest.
func (l *List) Remove(index int) (Notification, error) {
	if err := l.checkIndex(index); err != nil {
		return Notification{}, err
	}
	removed := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)

	return removed, nil
}

func (l *List) MarkRead(index int) error {
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.items[index].Unread = false

	return nil
}

func (l *List) UnreadCount() int {
	count := 0
	for _, n := range l.items {
		if n.Unread {
			count++
		}
	}

	return count
}

// Snapshot returns a copy that can be handed to other goroutines.
func (l *List) Snapshot() []Notification {
	out := make([]Notification, len(l.items))
	copy(out, l.items)

	return out
}

func (l *List) checkIndex(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(l.items))
	}

	return nil
}
