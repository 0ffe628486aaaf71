//go:build linux

package isolate

import (
	"golang.org/x/sys/unix"

	"github.com/libinsane/libinsane-go/internal/logx"
)

// pinCPU pins the calling OS thread to CPU 0, grounded on the same
// pattern as ublk's queue runner (see other_examples): a driver that
// records thread/CPU identity and rejects commands from elsewhere
// needs that identity to stop moving under it, not just to stay on one
// thread. The worker process never runs more than this one goroutine,
// so there's no per-queue index to round-robin over as ublk does;
// pinning to CPU 0 is enough to give the driver a fixed core. Failure
// isn't fatal: plenty of sandboxes and containers refuse
// sched_setaffinity, and the driver still gets LockOSThread's thread
// pinning either way.
func pinCPU() {
	var mask unix.CPUSet
	mask.Set(0)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		logx.Default.Warningf("dedicated_process: could not set CPU affinity: %v", err)
	}
}
