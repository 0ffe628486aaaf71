package workaround

import (
	"context"
	"sync"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
	"golang.org/x/sync/singleflight"
)

// WrapCache memoizes an item's GetOptions result for the item's
// lifetime: many drivers rebuild their whole option list (and query
// the hardware) on every call, which is wasteful when a caller polls
// the same item's options repeatedly between scans.
//
// Grounded on original_source's src/workarounds/cache.c:
// cache_get_options's "return private->opts_ptrs if already populated"
// becomes cacheItem.GetOptions's mutex-guarded cached flag. Unlike the C
// source, a singleflight.Group collapses concurrent first calls into
// one underlying GetOptions instead of racing two callers into a
// double fetch, since a libinsane.Item can be shared across goroutines
// in Go in a way the original single-threaded implementation never
// had to consider. cache_get_children's unconditional refetch-and-close
// dance exists only to free the C source's manually managed item
// structs; Go's GetChildren forwards the call once and wraps each child
// in its own cacheItem, since there is nothing to free and nothing in
// this module calls it more than it needs to. The option descriptors themselves aren't deep-copied: this
// only caches the list and its metadata, not GetValue results, exactly
// like the original only caching opts_ptrs, not option values.
func WrapCache(backend libinsane.Backend) libinsane.Backend {
	return &cacheBackend{wrapped: backend, log: logx.Default.Named("cache")}
}

type cacheBackend struct {
	wrapped libinsane.Backend
	log     *logx.Logger
}

func (b *cacheBackend) BaseName() string { return b.wrapped.BaseName() }
func (b *cacheBackend) Cleanup()         { b.wrapped.Cleanup() }

func (b *cacheBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return b.wrapped.ListDevices(ctx, loc)
}

func (b *cacheBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	inner, err := b.wrapped.GetDevice(ctx, devID)
	if err != nil {
		return nil, err
	}
	return &cacheItem{backend: b, wrapped: inner}, nil
}

type cacheItem struct {
	backend *cacheBackend
	wrapped libinsane.Item

	mu    sync.Mutex
	group singleflight.Group
	opts  []libinsane.OptionDescriptor
	cached bool
}

func (it *cacheItem) Name() string                 { return it.wrapped.Name() }
func (it *cacheItem) Type() libinsane.ItemType      { return it.wrapped.Type() }
func (it *cacheItem) Close()                        { it.wrapped.Close() }
func (it *cacheItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.wrapped.GetScanParameters(ctx)
}

func (it *cacheItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	kids, err := it.wrapped.GetChildren(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]libinsane.Item, len(kids))
	for i, k := range kids {
		out[i] = &cacheItem{backend: it.backend, wrapped: k}
	}
	return out, nil
}

func (it *cacheItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	it.mu.Lock()
	if it.cached {
		opts := it.opts
		it.mu.Unlock()
		it.backend.log.Infof("%s->get_options(): returning cached options", it.wrapped.Name())
		return opts, nil
	}
	it.mu.Unlock()

	v, err, _ := it.group.Do("get_options", func() (interface{}, error) {
		return it.wrapped.GetOptions(ctx)
	})
	if err != nil {
		// Not cached: like the original, a failed fetch is retried on
		// the next call rather than remembered as a permanent failure.
		return nil, err
	}

	opts := v.([]libinsane.OptionDescriptor)
	it.mu.Lock()
	if !it.cached {
		it.opts = opts
		it.cached = true
		it.backend.log.Debugf("%s: cached %d options", it.wrapped.Name(), len(opts))
	}
	cached := it.opts
	it.mu.Unlock()
	return cached, nil
}

func (it *cacheItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.wrapped.ScanStart(ctx)
}
