// Package basewrapper is the generic decorator skeleton every
// normalizer and workaround in this module builds on. By itself it
// changes nothing: every call is forwarded to the wrapped Backend
// unless one of its filter/hook callbacks is set.
//
// Grounded 1:1 on original_source's src/basewrapper.c and
// basewrapper.h. lis_bw_set_item_filter/lis_bw_set_opt_desc_filter
// become SetItemFilter/SetOptionFilter; lis_bw_item_set_user_ptr and
// its option counterpart become the generic UserData/SetUserData
// methods below (the original's separate free_fn callback has no
// counterpart here: Go's garbage collector reclaims whatever a
// UserData value holds, so there is nothing to free explicitly);
// lis_bw_get_original_item/opt become OriginalItem/OriginalOption;
// lis_bw_get_root_item becomes Item.RootOf; lis_bw_set_on_scan_start,
// lis_bw_set_on_close_item and lis_bw_set_clean_impl become
// SetOnScanStart/SetOnCloseItem/SetCleanImpl.
package basewrapper

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// ItemFilter may replace an item's name/type, override its option or
// scan-session behavior, or attach user data. root reports whether
// item is a device's root item (as opposed to one of its children).
type ItemFilter func(item *Item, root bool) error

// OptionFilter may replace an option descriptor's metadata, override
// its GetValue/SetValue, or attach user data.
type OptionFilter func(item *Item, opt *OptionDescriptor) error

// ScanStartHook replaces the default forwarding ScanStart behavior.
type ScanStartHook func(item *Item) (libinsane.ScanSession, error)

// CloseItemHook runs when any item (root or child) is closed, before
// the wrapped item's own Close.
type CloseItemHook func(item *Item, root bool)

// CleanImplHook runs when the backend is cleaned up, before the
// wrapped backend's own Cleanup.
type CleanImplHook func()

// Backend wraps a libinsane.Backend and applies whichever
// filters/hooks have been set via the Set* methods. Embedders
// (normalizers, workarounds) call New, then configure it in their own
// constructor.
type Backend struct {
	wrapped libinsane.Backend
	name    string
	log     *logx.Logger

	itemFilter   ItemFilter
	optionFilter OptionFilter
	onScanStart  ScanStartHook
	onCloseItem  CloseItemHook
	cleanImpl    CleanImplHook
}

// New wraps wrapped. name identifies the wrapper in log lines
// (mirrors the original's wrapper_name, used in every
// lis_log_error/warning call in basewrapper.c).
func New(wrapped libinsane.Backend, name string) *Backend {
	return &Backend{
		wrapped: wrapped,
		name:    name,
		log:     logx.Default.Named(name),
	}
}

func (b *Backend) SetItemFilter(f ItemFilter)       { b.itemFilter = f }
func (b *Backend) SetOptionFilter(f OptionFilter)   { b.optionFilter = f }
func (b *Backend) SetOnScanStart(f ScanStartHook)   { b.onScanStart = f }
func (b *Backend) SetOnCloseItem(f CloseItemHook)   { b.onCloseItem = f }
func (b *Backend) SetCleanImpl(f CleanImplHook)     { b.cleanImpl = f }
func (b *Backend) SetLogger(l *logx.Logger)         { b.log = l }

func (b *Backend) BaseName() string { return b.wrapped.BaseName() }

func (b *Backend) ListDevices(ctx context.Context, locations libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return b.wrapped.ListDevices(ctx, locations)
}

func (b *Backend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	inner, err := b.wrapped.GetDevice(ctx, devID)
	if err != nil {
		b.log.Warningf("get_device(%s) failed: %v", devID, err)
		return nil, err
	}

	item := newItem(b, inner, nil, true)
	if b.itemFilter != nil {
		if err := b.itemFilter(item, true); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (b *Backend) Cleanup() {
	if b.cleanImpl != nil {
		b.cleanImpl()
	}
	b.wrapped.Cleanup()
}

// Item decorates a wrapped libinsane.Item. Its Name/Type start out
// mirroring the wrapped item and may be overridden by an ItemFilter;
// everything else forwards to the wrapped item unless a hook
// intercepts it.
type Item struct {
	backend *Backend
	wrapped libinsane.Item
	root    *Item // nil when this item is itself the root
	isRoot  bool

	name     string
	itemType libinsane.ItemType
	userData interface{}
}

func newItem(b *Backend, wrapped libinsane.Item, root *Item, isRoot bool) *Item {
	return &Item{
		backend:  b,
		wrapped:  wrapped,
		root:     root,
		isRoot:   isRoot,
		name:     wrapped.Name(),
		itemType: wrapped.Type(),
	}
}

func (it *Item) Name() string                 { return it.name }
func (it *Item) SetName(name string)          { it.name = name }
func (it *Item) Type() libinsane.ItemType      { return it.itemType }
func (it *Item) SetType(t libinsane.ItemType)  { it.itemType = t }
func (it *Item) SetUserData(v interface{})    { it.userData = v }
func (it *Item) UserData() interface{}        { return it.userData }

// OriginalItem returns the item beneath this wrapper's
// modifications, mirroring lis_bw_get_original_item. Callers must not
// mutate it.
func (it *Item) OriginalItem() libinsane.Item { return it.wrapped }

// RootOf returns the root item this item descends from, or itself if
// it already is the root, mirroring lis_bw_get_root_item.
func (it *Item) RootOf() *Item {
	if it.isRoot {
		return it
	}
	return it.root
}

func (it *Item) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	kids, err := it.wrapped.GetChildren(ctx)
	if err != nil {
		it.backend.log.Warningf("get_children() failed: %v", err)
		return nil, err
	}

	root := it.RootOf()
	out := make([]libinsane.Item, len(kids))
	for i, k := range kids {
		child := newItem(it.backend, k, root, false)
		if it.backend.itemFilter != nil {
			if err := it.backend.itemFilter(child, false); err != nil {
				return nil, err
			}
		}
		out[i] = child
	}
	return out, nil
}

func (it *Item) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	descs, err := it.wrapped.GetOptions(ctx)
	if err != nil {
		return nil, err
	}
	if it.backend.optionFilter == nil {
		it.backend.log.Infof("no option filter defined, returning options as is")
		return descs, nil
	}

	out := make([]libinsane.OptionDescriptor, len(descs))
	for i, d := range descs {
		opt := newOption(it, d)
		if err := it.backend.optionFilter(it, opt); err != nil {
			it.backend.log.Warningf("option filter returned an error: %v", err)
			return nil, err
		}
		out[i] = opt
	}
	return out, nil
}

func (it *Item) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.wrapped.GetScanParameters(ctx)
}

func (it *Item) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	if it.backend.onScanStart != nil {
		return it.backend.onScanStart(it)
	}
	return it.wrapped.ScanStart(ctx)
}

// WrappedScanStart lets an OnScanStart hook fall through to the
// default forwarding behavior instead of reimplementing it.
func (it *Item) WrappedScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.wrapped.ScanStart(ctx)
}

func (it *Item) Close() {
	if it.backend.onCloseItem != nil {
		it.backend.onCloseItem(it, it.isRoot)
	}
	it.wrapped.Close()
}

// OptionDescriptor decorates a wrapped libinsane.OptionDescriptor.
// Every accessor starts out forwarding to the wrapped descriptor; an
// OptionFilter overrides whichever fields it needs via the Set*
// methods.
type OptionDescriptor struct {
	item    *Item
	wrapped libinsane.OptionDescriptor

	name, title, desc, group string
	caps                     libinsane.Capabilities
	valueType                libinsane.ValueKind
	unit                     libinsane.Unit
	constraint               libinsane.Constraint

	getValue func(ctx context.Context) (libinsane.Value, error)
	setValue func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error)

	userData interface{}
}

func newOption(item *Item, wrapped libinsane.OptionDescriptor) *OptionDescriptor {
	return &OptionDescriptor{
		item:       item,
		wrapped:    wrapped,
		name:       wrapped.Name(),
		title:      wrapped.Title(),
		desc:       wrapped.Desc(),
		group:      wrapped.Group(),
		caps:       wrapped.Capabilities(),
		valueType:  wrapped.ValueType(),
		unit:       wrapped.Unit(),
		constraint: wrapped.Constraint(),
		getValue:   wrapped.GetValue,
		setValue:   wrapped.SetValue,
	}
}

func (o *OptionDescriptor) Name() string  { return o.name }
func (o *OptionDescriptor) Title() string { return o.title }
func (o *OptionDescriptor) Desc() string  { return o.desc }
func (o *OptionDescriptor) Group() string { return o.group }

func (o *OptionDescriptor) Capabilities() libinsane.Capabilities { return o.caps }
func (o *OptionDescriptor) ValueType() libinsane.ValueKind       { return o.valueType }
func (o *OptionDescriptor) Unit() libinsane.Unit                 { return o.unit }
func (o *OptionDescriptor) Constraint() libinsane.Constraint     { return o.constraint }

func (o *OptionDescriptor) SetName(name string)                     { o.name = name }
func (o *OptionDescriptor) SetTitle(title string)                   { o.title = title }
func (o *OptionDescriptor) SetDesc(desc string)                     { o.desc = desc }
func (o *OptionDescriptor) SetGroup(group string)                   { o.group = group }
func (o *OptionDescriptor) SetCapabilities(c libinsane.Capabilities) { o.caps = c }
func (o *OptionDescriptor) SetValueType(k libinsane.ValueKind)      { o.valueType = k }
func (o *OptionDescriptor) SetUnit(u libinsane.Unit)                { o.unit = u }
func (o *OptionDescriptor) SetConstraint(c libinsane.Constraint)    { o.constraint = c }

func (o *OptionDescriptor) SetUserData(v interface{}) { o.userData = v }
func (o *OptionDescriptor) UserData() interface{}     { return o.userData }

// Item returns the item this option descriptor belongs to.
func (o *OptionDescriptor) Item() *Item { return o.item }

// OriginalOption returns the descriptor beneath this wrapper's
// modifications, mirroring lis_bw_get_original_opt. Callers must not
// mutate it.
func (o *OptionDescriptor) OriginalOption() libinsane.OptionDescriptor { return o.wrapped }

// SetGetValue overrides GetValue's behavior, e.g. to reject reads on
// an option a workaround considers non-readable.
func (o *OptionDescriptor) SetGetValue(f func(ctx context.Context) (libinsane.Value, error)) {
	o.getValue = f
}

// SetSetValue overrides SetValue's behavior.
func (o *OptionDescriptor) SetSetValue(f func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error)) {
	o.setValue = f
}

func (o *OptionDescriptor) GetValue(ctx context.Context) (libinsane.Value, error) {
	return o.getValue(ctx)
}

func (o *OptionDescriptor) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	return o.setValue(ctx, v)
}

// WrappedGetValue/WrappedSetValue let a filter fall through to the
// original descriptor's behavior instead of reimplementing it.
func (o *OptionDescriptor) WrappedGetValue(ctx context.Context) (libinsane.Value, error) {
	return o.wrapped.GetValue(ctx)
}

func (o *OptionDescriptor) WrappedSetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	return o.wrapped.SetValue(ctx, v)
}
