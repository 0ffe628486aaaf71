package normalize

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapMinOneSource guarantees every device exposes at least one
// source child, even when the wrapped root (after source_nodes has
// had its chance) still reports none: it fakes a single child that
// forwards everything to the root's own wrapped item.
//
// Grounded on original_source's src/normalizers/min_one_source.c: the
// same root-only short circuit (children already produced upstream
// are left untouched) and the same "fake child closes over the
// wrapped root item" shape the C source builds via mos_child +
// lis_bw_item_get_user_ptr, here a plain struct field instead of a
// user-ptr cast. Like source_nodes, it isn't basewrapper-based:
// fabricating a child basewrapper never saw isn't something
// basewrapper's ItemFilter can do.
func WrapMinOneSource(backend libinsane.Backend) libinsane.Backend {
	return &minOneSourceBackend{wrapped: backend, log: logx.Default.Named("min_one_source")}
}

type minOneSourceBackend struct {
	wrapped libinsane.Backend
	log     *logx.Logger
}

func (b *minOneSourceBackend) BaseName() string { return b.wrapped.BaseName() }
func (b *minOneSourceBackend) Cleanup()         { b.wrapped.Cleanup() }

func (b *minOneSourceBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return b.wrapped.ListDevices(ctx, loc)
}

func (b *minOneSourceBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	inner, err := b.wrapped.GetDevice(ctx, devID)
	if err != nil {
		return nil, err
	}
	return &minOneSourceItem{backend: b, wrapped: inner}, nil
}

type minOneSourceItem struct {
	backend *minOneSourceBackend
	wrapped libinsane.Item
}

func (it *minOneSourceItem) Name() string              { return it.wrapped.Name() }
func (it *minOneSourceItem) Type() libinsane.ItemType { return it.wrapped.Type() }
func (it *minOneSourceItem) Close()                    { it.wrapped.Close() }

func (it *minOneSourceItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	return it.wrapped.GetOptions(ctx)
}

func (it *minOneSourceItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.wrapped.GetScanParameters(ctx)
}

func (it *minOneSourceItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.wrapped.ScanStart(ctx)
}

func (it *minOneSourceItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	kids, err := it.wrapped.GetChildren(ctx)
	if err != nil {
		return nil, err
	}
	if len(kids) > 0 {
		return kids, nil
	}
	it.backend.log.Infof("device %q has no sources at all, faking one", it.wrapped.Name())
	itype := it.wrapped.Type()
	if itype == libinsane.ItemUnidentified {
		itype = libinsane.ItemAdf
	}
	return []libinsane.Item{&fakeSourceItem{root: it.wrapped, name: libinsane.OptValueSourceADF, itype: itype}}, nil
}

// fakeSourceItem forwards every operation except GetChildren/Close to
// the device root it pretends to be a child of. It has no children of
// its own, and closing it is a no-op: only the root's Close matters,
// mirroring mos_child_close in the original.
type fakeSourceItem struct {
	root  libinsane.Item
	name  string
	itype libinsane.ItemType
}

func (it *fakeSourceItem) Name() string              { return it.name }
func (it *fakeSourceItem) Type() libinsane.ItemType { return it.itype }
func (it *fakeSourceItem) Close()                    {}

func (it *fakeSourceItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	return nil, nil
}

func (it *fakeSourceItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	return it.root.GetOptions(ctx)
}

func (it *fakeSourceItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.root.GetScanParameters(ctx)
}

func (it *fakeSourceItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.root.ScanStart(ctx)
}
