//go:build !linux

package isolate

// pinCPU is a no-op on platforms without sched_setaffinity; the worker
// still gets LockOSThread's thread pinning regardless.
func pinCPU() {}
