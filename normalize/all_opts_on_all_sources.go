package normalize

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapAllOptsOnAllSources copies every option the device root exposes
// onto each of its sources, so an application that only ever looks at
// a source's own GetOptions still sees device-wide settings like
// "resolution" there. A source's own option of the same name (matched
// case-insensitively) always wins over the copied one.
//
// Grounded on original_source's src/normalizers/all_opts_on_all_sources.c.
// Not basewrapper-based there either: it implements lis_api directly,
// leaving get_device's own options untouched and only merging on
// sources. The WORKAROUND comment in opts_source_get_options, that
// this relies on a Sane/TWAIN/WIA root-only option list staying valid
// alongside a source's own, carries over unchanged: it's a property of
// the backends being wrapped, not of this code.
func WrapAllOptsOnAllSources(backend libinsane.Backend) libinsane.Backend {
	return &allOptsBackend{wrapped: backend, log: logx.Default.Named("all_opts_on_all_sources")}
}

type allOptsBackend struct {
	wrapped libinsane.Backend
	log     *logx.Logger
}

func (b *allOptsBackend) BaseName() string { return b.wrapped.BaseName() }
func (b *allOptsBackend) Cleanup()         { b.wrapped.Cleanup() }

func (b *allOptsBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return b.wrapped.ListDevices(ctx, loc)
}

func (b *allOptsBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	inner, err := b.wrapped.GetDevice(ctx, devID)
	if err != nil {
		return nil, err
	}
	return &allOptsItem{backend: b, wrapped: inner, isRoot: true}, nil
}

type allOptsItem struct {
	backend *allOptsBackend
	wrapped libinsane.Item
	root    libinsane.Item // the device root's wrapped item; nil when isRoot
	isRoot  bool
}

func (it *allOptsItem) Name() string              { return it.wrapped.Name() }
func (it *allOptsItem) Type() libinsane.ItemType { return it.wrapped.Type() }
func (it *allOptsItem) Close()                    { it.wrapped.Close() }

func (it *allOptsItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.wrapped.GetScanParameters(ctx)
}

func (it *allOptsItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.wrapped.ScanStart(ctx)
}

func (it *allOptsItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	kids, err := it.wrapped.GetChildren(ctx)
	if err != nil {
		return nil, err
	}
	rootItem := it.root
	if it.isRoot {
		rootItem = it.wrapped
	}
	out := make([]libinsane.Item, len(kids))
	for i, k := range kids {
		out[i] = &allOptsItem{backend: it.backend, wrapped: k, root: rootItem}
	}
	return out, nil
}

func (it *allOptsItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	own, err := it.wrapped.GetOptions(ctx)
	if err != nil {
		return nil, err
	}
	if it.isRoot {
		return own, nil
	}

	rootOpts, err := it.root.GetOptions(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]libinsane.OptionDescriptor, len(own), len(own)+len(rootOpts))
	copy(merged, own)
	for _, ro := range rootOpts {
		if findOption(merged, ro.Name()) != nil {
			continue
		}
		it.backend.log.Infof("adding device option %q to source %q", ro.Name(), it.wrapped.Name())
		merged = append(merged, ro)
	}
	return merged, nil
}
