//go:build unix && !windows

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireInstanceLock_ContentionAndRelease(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	scope := t.TempDir()

	lock1, err := AcquireInstanceLock("motdwatch-test", scope)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}

	lock2, err := AcquireInstanceLock("motdwatch-test", scope)
	if !errors.Is(err, ErrInstanceAlreadyRunning) {
		t.Fatalf("expected %v, got %v", ErrInstanceAlreadyRunning, err)
	}
	if lock2 != nil {
		t.Fatalf("expected second lock to be nil, got %#v", lock2)
	}

	other, err := AcquireInstanceLock("motdwatch-test", t.TempDir())
	if err != nil {
		t.Fatalf("a different scope must not contend: %v", err)
	}
	_ = other.Release()

	if err := lock1.Release(); err != nil {
		t.Fatalf("release first lock: %v", err)
	}

	lock3, err := AcquireInstanceLock("motdwatch-test", scope)
	if err != nil {
		t.Fatalf("acquire lock after release: %v", err)
	}
	if err := lock3.Release(); err != nil {
		t.Fatalf("release third lock: %v", err)
	}
}

func TestUnixInstanceLockPathPrefersXDGRuntimeDir(t *testing.T) {
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	path, err := unixInstanceLockPath("motdwatch")
	if err != nil {
		t.Fatalf("resolve lock path: %v", err)
	}
	if path != filepath.Join(runtimeDir, "motdwatch.lock") {
		t.Fatalf("unexpected lock path %q", path)
	}
}

func TestUnixInstanceLockPathFallsBackToTemp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	path, err := unixInstanceLockPath("motdwatch")
	if err != nil {
		t.Fatalf("resolve lock path: %v", err)
	}

	wantFragment := "motdwatch-" + strconv.Itoa(os.Getuid())
	if !strings.Contains(path, wantFragment) {
		t.Fatalf("expected path to contain %q, got %q", wantFragment, path)
	}
}

func TestInstanceLockRecordsPID(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	lock, err := AcquireInstanceLock("motdwatch-pid", "")
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	path, err := unixInstanceLockPath("motdwatch-pid")
	if err != nil {
		t.Fatalf("resolve lock path: %v", err)
	}
	// #nosec G304 -- test controls XDG_RUNTIME_DIR.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if strings.TrimSpace(string(raw)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected lock file content %q", raw)
	}
}
