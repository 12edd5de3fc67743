//go:build !unix && !windows

package platform

import (
	"fmt"
	"runtime"
)

// acquireInstanceLock has no backend here; callers may run without a lock.
func acquireInstanceLock(name string) (InstanceLock, error) {
	return nil, fmt.Errorf("lock %q on %s: %w", name, runtime.GOOS, ErrInstanceLockUnsupported)
}
