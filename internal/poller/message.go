package poller

import "strings"

// SplitMessage splits a message of the day at its first line break. Without a
// line break the whole body is the title and the message is empty.
func SplitMessage(body string) (title, message string) {
	idx := strings.IndexByte(body, '\n')
	if idx < 0 {
		return body, ""
	}

	return strings.TrimSuffix(body[:idx], "\r"), body[idx+1:]
}

// normalizeBody drops trailing line breaks servers commonly append.
func normalizeBody(raw []byte) string {
	return strings.TrimRight(string(raw), "\r\n")
}
