package normalize

import (
	"context"
	"sync"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapSourceNodes makes every device's sources show up as children,
// synthesizing one child per value of a "source" or "feeder_enabled"
// option when the wrapped root doesn't already expose children of its
// own. It also enforces DeviceBusy across a device's root and all of
// its (real or synthesized) children, since they all end up sharing
// one physical scanner.
//
// Grounded on original_source's src/normalizers/source_nodes.c. Not
// built on basewrapper: basewrapper's ItemFilter can rename/retype
// items basewrapper already sees, but it has no hook for fabricating
// additional children out of nothing, which is this normalizer's main
// job, so it implements libinsane.Backend/Item/ScanSession directly
// like source_nodes.c does (it isn't basewrapper-based there either).
// lis_sn_dev_get_children becomes sourceNodesItem.GetChildren; the
// per-device source_ptrs cache and scan_running flag become fields of
// sourceNodesDevice, shared by the root and every synthesized child
// instead of hanging off a struct lis_device; set_source's tolerance
// of a failing set_value on an inactive/read-only source option
// (citing HP's Sane "net" backend and a Canon LiDE 220/genesys bug
// report) is kept as a warning log, not an error return. The C
// source's separate "expose scan_start on the root item" step has no
// Go counterpart to add: libinsane.Item already requires ScanStart on
// every item, root or not.
func WrapSourceNodes(backend libinsane.Backend) libinsane.Backend {
	return &sourceNodesBackend{wrapped: backend, log: logx.Default.Named("source_nodes")}
}

type sourceNodesBackend struct {
	wrapped libinsane.Backend
	log     *logx.Logger
}

func (b *sourceNodesBackend) BaseName() string { return b.wrapped.BaseName() }
func (b *sourceNodesBackend) Cleanup()         { b.wrapped.Cleanup() }

func (b *sourceNodesBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return b.wrapped.ListDevices(ctx, loc)
}

func (b *sourceNodesBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	inner, err := b.wrapped.GetDevice(ctx, devID)
	if err != nil {
		return nil, err
	}
	root := &sourceNodesItem{
		backend: b,
		wrapped: inner,
		device:  &sourceNodesDevice{},
		isRoot:  true,
		name:    inner.Name(),
		itype:   inner.Type(),
	}
	return root, nil
}

// sourceNodesDevice is shared by a root item and every child
// synthesized for it: the scan_running flag that makes ScanStart
// return ErrDeviceBusy for the whole device while any one of its
// items has an open session, and the cached list of synthesized
// children (built once, like the original's device->source_ptrs).
type sourceNodesDevice struct {
	mu          sync.Mutex
	scanRunning bool
	built       bool
	sources     []*sourceNodesItem
}

type sourceNodesItem struct {
	backend *sourceNodesBackend
	wrapped libinsane.Item // shared by root and every synthesized child
	device  *sourceNodesDevice
	isRoot  bool

	name     string
	itype    libinsane.ItemType
	optName  string // "source" or "feeder_enabled"; only set on synthesized children
	optValue libinsane.Value
}

func (it *sourceNodesItem) Name() string              { return it.name }
func (it *sourceNodesItem) Type() libinsane.ItemType { return it.itype }

func (it *sourceNodesItem) Close() {
	if it.isRoot {
		it.wrapped.Close()
	}
}

func (it *sourceNodesItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.wrapped.GetScanParameters(ctx)
}

func (it *sourceNodesItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	if it.isRoot {
		return it.wrapped.GetOptions(ctx)
	}
	// Apply this source's value before returning: no options of our
	// own, to avoid reporting "source"/"feeder_enabled" redundantly
	// once all_opts_on_all_sources copies the root's options down.
	if err := it.setSource(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func (it *sourceNodesItem) setSource(ctx context.Context) error {
	opts, err := it.wrapped.GetOptions(ctx)
	if err != nil {
		return err
	}
	opt := findOption(opts, it.optName)
	if opt == nil {
		return nil
	}
	if !opt.Capabilities().Writable() {
		it.backend.log.Warningf(
			"option %q is not currently writable, cannot select source %q on item %q "+
				"(tolerated: some backends, e.g. Sane's net backend on HP devices, "+
				"report their active source as read-only/inactive)",
			it.optName, it.name, it.name)
		return nil
	}
	if _, err := opt.SetValue(ctx, it.optValue); err != nil {
		it.backend.log.Warningf("failed to set %q=%v on item %q: %v (tolerated)", it.optName, it.optValue, it.name, err)
	}
	return nil
}

func (it *sourceNodesItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	if !it.isRoot {
		return nil, nil
	}

	kids, err := it.wrapped.GetChildren(ctx)
	if err != nil {
		return nil, err
	}
	if len(kids) > 0 {
		it.backend.log.Infof("device %q already exposes its own children, leaving them as is", it.name)
		return kids, nil
	}

	it.device.mu.Lock()
	defer it.device.mu.Unlock()
	if it.device.built {
		out := make([]libinsane.Item, len(it.device.sources))
		for i, s := range it.device.sources {
			out[i] = s
		}
		return out, nil
	}
	it.device.built = true

	opts, err := it.wrapped.GetOptions(ctx)
	if err != nil {
		return nil, err
	}
	optName, values := findSourceConstraint(opts)
	if optName == "" {
		it.backend.log.Infof("device %q has no source/feeder_enabled option, no sources to synthesize", it.name)
		return nil, nil
	}

	sources := make([]*sourceNodesItem, 0, len(values))
	for _, v := range values {
		sources = append(sources, &sourceNodesItem{
			backend:  it.backend,
			wrapped:  it.wrapped,
			device:   it.device,
			name:     sourceValueName(v),
			optName:  optName,
			optValue: v,
		})
	}
	it.device.sources = sources

	out := make([]libinsane.Item, len(sources))
	for i, s := range sources {
		out[i] = s
	}
	return out, nil
}

// findSourceConstraint looks for a "source" or "feeder_enabled" option
// with a non-empty list constraint, returning its name and values, or
// ("", nil) if neither is present in that shape.
func findSourceConstraint(opts []libinsane.OptionDescriptor) (string, []libinsane.Value) {
	for _, name := range []string{libinsane.OptNameSource, libinsane.OptNameFeederEnabled} {
		opt := findOption(opts, name)
		if opt == nil {
			continue
		}
		c := opt.Constraint()
		if c.Kind == libinsane.ConstraintList && len(c.List) > 0 {
			return opt.Name(), c.List
		}
	}
	return "", nil
}

// sourceValueName turns a source constraint value into a child item
// name: string values (Sane's "source") are used as-is, boolean values
// (TWAIN's "feeder_enabled") map to the feeder/flatbed constants.
func sourceValueName(v libinsane.Value) string {
	if v.Kind == libinsane.KindBool {
		if v.Bool {
			return libinsane.OptValueSourceADF
		}
		return libinsane.OptValueSourceFlatbed
	}
	return v.Str
}

func (it *sourceNodesItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	it.device.mu.Lock()
	if it.device.scanRunning {
		it.device.mu.Unlock()
		return nil, libinsane.NewError(libinsane.ErrKindDeviceBusy, "source_nodes.ScanStart")
	}
	it.device.scanRunning = true
	it.device.mu.Unlock()

	release := func() {
		it.device.mu.Lock()
		it.device.scanRunning = false
		it.device.mu.Unlock()
	}

	if !it.isRoot {
		if err := it.setSource(ctx); err != nil {
			release()
			return nil, err
		}
	}

	sess, err := it.wrapped.ScanStart(ctx)
	if err != nil {
		release()
		return nil, err
	}
	return &sourceNodesSession{wrapped: sess, device: it.device}, nil
}

// sourceNodesSession clears device.scanRunning as soon as the session
// can no longer produce data, mirroring the original's reset of
// scan_running on end_of_feed, a failing scan_read, and cancel.
type sourceNodesSession struct {
	wrapped libinsane.ScanSession
	device  *sourceNodesDevice
	done    bool
}

func (s *sourceNodesSession) GetScanParameters() (libinsane.ScanParameters, error) {
	return s.wrapped.GetScanParameters()
}

func (s *sourceNodesSession) EndOfPage() bool { return s.wrapped.EndOfPage() }

func (s *sourceNodesSession) EndOfFeed() bool {
	done := s.wrapped.EndOfFeed()
	if done {
		s.release()
	}
	return done
}

func (s *sourceNodesSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	n, err := s.wrapped.ScanRead(ctx, buf)
	if err != nil {
		s.release()
	}
	return n, err
}

func (s *sourceNodesSession) Cancel() {
	s.wrapped.Cancel()
	s.release()
}

func (s *sourceNodesSession) release() {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	if !s.done {
		s.done = true
		s.device.scanRunning = false
	}
}
