package poller

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// MaxVersionLength bounds the version token read from the descriptor file.
const MaxVersionLength = 29

var ErrVersionTooLong = errors.New("version token too long")

// CompareFunc orders a local and a remote version like strings.Compare.
type CompareFunc func(local, remote string) int

// CompareLexical is a plain byte-wise comparison.
func CompareLexical(local, remote string) int {
	return strings.Compare(local, remote)
}

// CompareSemver orders versions by semantic versioning. An unparsable remote
// version never counts as newer, an unparsable local version is always older.
func CompareSemver(local, remote string) int {
	l := normalizeSemver(local)
	r := normalizeSemver(remote)

	if !semver.IsValid(r) {
		return 0
	}
	if !semver.IsValid(l) {
		return -1
	}

	return semver.Compare(l, r)
}

func normalizeSemver(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		return "v" + trimmed
	}

	return trimmed
}

// ReadVersionFile reads the local version descriptor. The token is taken from
// the first non-empty line, either bare ("1.2.3") or as "version=1.2.3".
func ReadVersionFile(path string) (string, error) {
	// #nosec G304 -- path comes from app config.
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read version file: %w", err)
	}

	return ParseVersionDescriptor(raw)
}

func ParseVersionDescriptor(raw []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, value, ok := strings.Cut(line, "="); ok {
			line = strings.TrimSpace(value)
		}
		if len(line) > MaxVersionLength {
			return "", fmt.Errorf("%w: %d bytes", ErrVersionTooLong, len(line))
		}

		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan version file: %w", err)
	}

	return "", nil
}
