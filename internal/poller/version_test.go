package poller

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseVersionDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "key value", in: "version=2.0.0\n", want: "2.0.0"},
		{name: "upper key with spaces", in: "VERSION = 2.0.1\r\n", want: "2.0.1"},
		{name: "bare token", in: "1.4.2", want: "1.4.2"},
		{name: "leading blank lines", in: "\n\n  \nversion=0.9\nignored=1", want: "0.9"},
		{name: "empty", in: "", want: ""},
		{name: "too long", in: "version=" + strings.Repeat("1", MaxVersionLength+1), wantErr: ErrVersionTooLong},
	}

	for _, tt := range tests {
		got, err := ParseVersionDescriptor([]byte(tt.in))
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
			}

			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestReadVersionFileMissing(t *testing.T) {
	if _, err := ReadVersionFile(filepath.Join(t.TempDir(), "version.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}

func TestCompareLexical(t *testing.T) {
	if CompareLexical("1.0.0", "1.0.1") >= 0 {
		t.Fatalf("expected 1.0.0 < 1.0.1")
	}
	if CompareLexical("1.0.1", "1.0.1") != 0 {
		t.Fatalf("expected equal versions to compare equal")
	}
	if CompareLexical("b", "a") <= 0 {
		t.Fatalf("expected b > a")
	}
}

func TestCompareSemver(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		remote string
		want   int
	}{
		{name: "numeric ordering", local: "1.9.0", remote: "1.10.0", want: -1},
		{name: "equal", local: "v1.2.3", remote: "1.2.3", want: 0},
		{name: "local newer", local: "2.0.0", remote: "1.9.9", want: 1},
		{name: "invalid remote ignored", local: "1.0.0", remote: "not-a-version", want: 0},
		{name: "invalid local treated older", local: "dev", remote: "0.1.0", want: -1},
	}

	for _, tt := range tests {
		if got := CompareSemver(tt.local, tt.remote); got != tt.want {
			t.Fatalf("%s: CompareSemver(%q, %q) = %d, want %d", tt.name, tt.local, tt.remote, got, tt.want)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantTitle   string
		wantMessage string
	}{
		{name: "title and body", in: "Title\nBody text", wantTitle: "Title", wantMessage: "Body text"},
		{name: "no line break", in: "Only title", wantTitle: "Only title", wantMessage: ""},
		{name: "crlf", in: "Title\r\nBody", wantTitle: "Title", wantMessage: "Body"},
		{name: "multi line body", in: "T\nline1\nline2", wantTitle: "T", wantMessage: "line1\nline2"},
		{name: "empty title", in: "\nBody", wantTitle: "", wantMessage: "Body"},
	}

	for _, tt := range tests {
		title, message := SplitMessage(tt.in)
		if title != tt.wantTitle || message != tt.wantMessage {
			t.Fatalf("%s: SplitMessage(%q) = %q, %q; want %q, %q", tt.name, tt.in, title, message, tt.wantTitle, tt.wantMessage)
		}
	}
}

func TestParseRequestKind(t *testing.T) {
	if k, ok := ParseRequestKind("motd"); !ok || k != RequestMessageCheck {
		t.Fatalf("expected motd to map to message check")
	}
	if _, ok := ParseRequestKind("idle"); ok {
		t.Fatalf("idle must not be requestable")
	}
	if RequestVersionCheck.String() != "version" {
		t.Fatalf("unexpected kind name %q", RequestVersionCheck.String())
	}
}
