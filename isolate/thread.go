// Package isolate contains the two workarounds that run a base
// backend away from the caller's own goroutine/process, for drivers
// that can't tolerate concurrent or repeated-crash-prone use: a
// dedicated goroutine serializing every call (this file) and a
// dedicated child process isolating crashes entirely (process.go,
// worker.go, protocol.go).
package isolate

import (
	"context"
	"runtime"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapDedicatedThread forces every call into backend, and everything
// it returns (items, options, scan sessions), through one dedicated
// goroutine, one at a time, FIFO. Some drivers (notably several Sane
// backends) corrupt their own state when called from more than one
// thread concurrently, even if the caller never overlaps two calls in
// wall-clock time but migrates between OS threads.
//
// Grounded on original_source's src/workarounds/dedicated_thread.c:
// main_loop's linked list of pending `struct op`, each carrying its
// own condition variable, becomes a buffered channel of closures
// (jobs) drained by one goroutine; run()'s "enqueue then wait" becomes
// enqueuing a closure that closes a per-call done channel when it
// finishes, with the caller blocking on that channel. Every dt_*
// forwarding function in the C source (one per interface method,
// wrapping its call in exactly this enqueue-and-wait dance) collapses
// to the run helper below called once per method.
func WrapDedicatedThread(backend libinsane.Backend) *Backend {
	b := &Backend{
		wrapped: backend,
		jobs:    make(chan func(), 16),
		log:     logx.Default.Named("dedicated_thread"),
	}
	go b.loop()
	return b
}

// Backend runs every libinsane.Backend method on the dedicated
// goroutine started by WrapDedicatedThread.
type Backend struct {
	wrapped libinsane.Backend
	jobs    chan func()
	log     *logx.Logger
}

func (b *Backend) loop() {
	// A pthread in the original keeps one fixed OS thread identity for
	// every call by construction; a goroutine doesn't, Go's scheduler
	// is free to resume it on a different OS thread after any blocking
	// point. LockOSThread pins this goroutine to the OS thread it
	// starts on for its whole lifetime, which is what actually gives
	// the "called from the same thread every time" guarantee some
	// drivers depend on; without it the channel alone would only
	// guarantee no two calls overlap, not that they share a thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	b.log.Infof("dedicated thread started")
	for job := range b.jobs {
		job()
	}
	b.log.Infof("dedicated thread stopped")
}

// run submits fn to the dedicated goroutine and blocks until it has
// run to completion.
func (b *Backend) run(fn func()) {
	done := make(chan struct{})
	b.jobs <- func() {
		fn()
		close(done)
	}
	<-done
}

func (b *Backend) BaseName() string { return b.wrapped.BaseName() }

func (b *Backend) Cleanup() {
	b.run(func() { b.wrapped.Cleanup() })
	close(b.jobs)
}

func (b *Backend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	var descs []libinsane.DeviceDescriptor
	var err error
	b.run(func() { descs, err = b.wrapped.ListDevices(ctx, loc) })
	return descs, err
}

func (b *Backend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	var item libinsane.Item
	var err error
	b.run(func() { item, err = b.wrapped.GetDevice(ctx, devID) })
	if err != nil {
		return nil, err
	}
	return &threadItem{backend: b, wrapped: item}, nil
}

type threadItem struct {
	backend *Backend
	wrapped libinsane.Item
}

func (it *threadItem) Name() string             { return it.wrapped.Name() }
func (it *threadItem) Type() libinsane.ItemType { return it.wrapped.Type() }

func (it *threadItem) Close() {
	it.backend.run(func() { it.wrapped.Close() })
}

func (it *threadItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	var kids []libinsane.Item
	var err error
	it.backend.run(func() { kids, err = it.wrapped.GetChildren(ctx) })
	if err != nil {
		return nil, err
	}
	out := make([]libinsane.Item, len(kids))
	for i, k := range kids {
		out[i] = &threadItem{backend: it.backend, wrapped: k}
	}
	return out, nil
}

func (it *threadItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	var opts []libinsane.OptionDescriptor
	var err error
	it.backend.run(func() { opts, err = it.wrapped.GetOptions(ctx) })
	if err != nil {
		return nil, err
	}
	out := make([]libinsane.OptionDescriptor, len(opts))
	for i, o := range opts {
		out[i] = &threadOption{backend: it.backend, wrapped: o}
	}
	return out, nil
}

func (it *threadItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	var p libinsane.ScanParameters
	var err error
	it.backend.run(func() { p, err = it.wrapped.GetScanParameters(ctx) })
	return p, err
}

func (it *threadItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	var sess libinsane.ScanSession
	var err error
	it.backend.run(func() { sess, err = it.wrapped.ScanStart(ctx) })
	if err != nil {
		return nil, err
	}
	return &threadSession{backend: it.backend, wrapped: sess}, nil
}

type threadOption struct {
	backend *Backend
	wrapped libinsane.OptionDescriptor
}

func (o *threadOption) Name() string                       { return o.wrapped.Name() }
func (o *threadOption) Title() string                       { return o.wrapped.Title() }
func (o *threadOption) Desc() string                        { return o.wrapped.Desc() }
func (o *threadOption) Group() string                       { return o.wrapped.Group() }
func (o *threadOption) Capabilities() libinsane.Capabilities { return o.wrapped.Capabilities() }
func (o *threadOption) ValueType() libinsane.ValueKind       { return o.wrapped.ValueType() }
func (o *threadOption) Unit() libinsane.Unit                 { return o.wrapped.Unit() }
func (o *threadOption) Constraint() libinsane.Constraint     { return o.wrapped.Constraint() }

func (o *threadOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	var v libinsane.Value
	var err error
	o.backend.run(func() { v, err = o.wrapped.GetValue(ctx) })
	return v, err
}

func (o *threadOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	var flags libinsane.SetFlags
	var err error
	o.backend.run(func() { flags, err = o.wrapped.SetValue(ctx, v) })
	return flags, err
}

type threadSession struct {
	backend *Backend
	wrapped libinsane.ScanSession
}

func (s *threadSession) GetScanParameters() (libinsane.ScanParameters, error) {
	var p libinsane.ScanParameters
	var err error
	s.backend.run(func() { p, err = s.wrapped.GetScanParameters() })
	return p, err
}

func (s *threadSession) EndOfFeed() bool {
	var done bool
	s.backend.run(func() { done = s.wrapped.EndOfFeed() })
	return done
}

func (s *threadSession) EndOfPage() bool {
	var done bool
	s.backend.run(func() { done = s.wrapped.EndOfPage() })
	return done
}

func (s *threadSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	var n int
	var err error
	s.backend.run(func() { n, err = s.wrapped.ScanRead(ctx, buf) })
	return n, err
}

func (s *threadSession) Cancel() {
	s.backend.run(func() { s.wrapped.Cancel() })
}
