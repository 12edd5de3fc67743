package notifications

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// WriterSender prints payloads to a writer. It stands in for desktop
// popups on headless hosts.
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

func (s *WriterSender) Send(payload Payload) {
	if s == nil || s.w == nil {
		return
	}
	title := strings.TrimSpace(payload.Title)
	content := strings.TrimSpace(payload.Content)
	if title == "" && content == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if content == "" {
		_, _ = fmt.Fprintf(s.w, "[popup] %s\n", title)

		return
	}
	_, _ = fmt.Fprintf(s.w, "[popup] %s\n%s\n", title, indent(content))
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + strings.TrimRight(line, "\r")
	}

	return strings.Join(lines, "\n")
}
