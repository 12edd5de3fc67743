package platform

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
)

// ErrInstanceAlreadyRunning indicates another watcher already owns the lock for this config.
var ErrInstanceAlreadyRunning = errors.New("instance already running")

// ErrInstanceLockUnsupported indicates the current platform has no lock backend implementation.
var ErrInstanceLockUnsupported = errors.New("instance lock unsupported")

// InstanceLock represents an acquired single-instance lock.
type InstanceLock interface {
	Release() error
}

// AcquireInstanceLock takes a per-user lock for appID scoped to a config
// directory, so watchers with different configs can run side by side.
func AcquireInstanceLock(appID, scope string) (InstanceLock, error) {
	return acquireInstanceLock(instanceLockName(appID, scope))
}

func instanceLockName(appID, scope string) string {
	name := normalizeInstanceLockComponent(appID, "app")
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return name
	}
	sum := sha256.Sum256([]byte(filepath.Clean(scope)))

	return name + "-" + hex.EncodeToString(sum[:6])
}

func normalizeInstanceLockComponent(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	normalized := strings.Trim(b.String(), "_-.")
	if normalized == "" {
		return fallback
	}

	return normalized
}
