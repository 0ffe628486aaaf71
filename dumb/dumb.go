// Package dumb is a configurable fake backend that returns zero scanners
// by default. It exists for tests: every wrapper's own test builds a
// dumb.Backend, configures the fake devices/options/scan content it
// needs, and wraps it the same way compose.Safebet would wrap a real
// base backend.
//
// Grounded on original_source's src/bases/dumb.c: the same knobs
// (SetNbDevices, SetListDevicesReturn, SetGetDeviceReturn,
// SetOptSourceConstraint, SetScanResult) are exposed as methods instead of lis_dumb_set_*
// functions taking a struct lis_api*.
package dumb

import (
	"context"
	"fmt"
	"sync"

	"github.com/libinsane/libinsane-go"
)

// DefaultDevID is the identifier of the first device created by
// SetNbDevices, matching LIS_DUMB_DEV_ID_FIRST.
const DefaultDevID = "dumb dev0"

func devID(i int) string { return fmt.Sprintf("dumb dev%d", i) }

// Backend is the fake base backend. The zero value (via New) behaves
// like lis_api_dumb: ListDevices returns an empty list until
// SetNbDevices or SetDevDescs populates it.
type Backend struct {
	name string

	mu sync.Mutex

	listDevicesErr error
	descs          []libinsane.DeviceDescriptor

	getDeviceErr error
	devices      map[string]*Item

	sourceConstraint []string
}

// New creates a dumb backend identified by name (the string a caller
// would see as Backend.BaseName()).
func New(name string) *Backend {
	return &Backend{
		name:             name,
		devices:          map[string]*Item{},
		sourceConstraint: []string{"flatbed"},
	}
}

func (b *Backend) BaseName() string { return b.name }

func (b *Backend) Cleanup() {}

// SetListDevicesReturn makes every ListDevices call fail with err
// until it is called again with nil, which restores normal behavior, mirroring lis_dumb_set_list_devices_return.
func (b *Backend) SetListDevicesReturn(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listDevicesErr = err
}

// SetGetDeviceReturn makes every GetDevice call fail with err until it
// is called again with nil, which restores normal behavior, mirroring lis_dumb_set_get_device_return.
func (b *Backend) SetGetDeviceReturn(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getDeviceErr = err
}

// SetDevDescs replaces the device descriptors ListDevices reports,
// without necessarily creating matching Items (mirrors
// lis_dumb_set_dev_descs, used by normalizer tests that only exercise
// clean_dev_descs / source_names against descriptor lists).
func (b *Backend) SetDevDescs(descs []libinsane.DeviceDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.descs = descs
}

// SetNbDevices replaces the device set with n freshly created devices
// named "dumb dev0".."dumb dev<n-1>", each vendor "Microsoft" model
// "Bugware" (the same placeholder values as the original, chosen
// precisely because no real driver reports them).
func (b *Backend) SetNbDevices(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.descs = make([]libinsane.DeviceDescriptor, n)
	b.devices = make(map[string]*Item, n)
	for i := 0; i < n; i++ {
		id := devID(i)
		b.descs[i] = libinsane.DeviceDescriptor{
			ID:     id,
			Name:   id,
			Vendor: "Microsoft",
			Model:  "Bugware",
		}
		b.devices[id] = newItem(b, id)
	}
}

// SetOptSourceConstraint replaces the list constraint on the "source"
// option exposed by every device, mirroring
// lis_dumb_set_opt_source_constraint.
func (b *Backend) SetOptSourceConstraint(values []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sourceConstraint = values
}

func (b *Backend) ListDevices(ctx context.Context, _ libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listDevicesErr != nil {
		return nil, b.listDevicesErr
	}
	return b.descs, nil
}

func (b *Backend) GetDevice(ctx context.Context, id string) (libinsane.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getDeviceErr != nil {
		return nil, b.getDeviceErr
	}
	item, ok := b.devices[id]
	if !ok {
		return nil, libinsane.NewError(libinsane.ErrKindInvalidValue, "dumb.GetDevice")
	}
	return item, nil
}

// DumbRead is one chunk of canned ScanRead output, mirroring
// struct lis_dumb_read.
type DumbRead struct {
	Content []byte
}

// Item is the single root item every dumb device exposes: it has no
// children (LIS_ITEM_DEVICE with g_dumb_default_children), one
// "source" option, and scan output configured via SetScanResult.
type Item struct {
	backend *Backend
	id      string

	source *sourceOption

	scanResult []DumbRead
	params     *libinsane.ScanParameters
}

func newItem(b *Backend, id string) *Item {
	return &Item{
		backend: b,
		id:      id,
		source:  newSourceOption(b),
	}
}

// SetScanParameters overrides the fixed 256x256 RAW_RGB_24 template
// GetScanParameters otherwise reports. Format-pipeline wrappers
// (bmp2raw, raw24) need a dumb device that reports BMP/GRAYSCALE_8/
// BW_1 so their on_scan_start hooks engage; the original's template is
// hardcoded since it never had to exercise those wrappers against
// this fixture.
func (it *Item) SetScanParameters(p libinsane.ScanParameters) {
	it.params = &p
}

func (it *Item) Name() string          { return "dumb-o-jet" }
func (it *Item) Type() libinsane.ItemType { return libinsane.ItemDevice }
func (it *Item) Close()                {}

func (it *Item) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	return nil, nil
}

func (it *Item) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	return []libinsane.OptionDescriptor{it.source}, nil
}

func (it *Item) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	if it.params != nil {
		return *it.params, nil
	}
	return libinsane.ScanParameters{
		Format:    libinsane.ImageFormatRawRGB24,
		Width:     256,
		Height:    256,
		ImageSize: 256 * 256 * 3,
	}, nil
}

// SetScanResult configures the bytes ScanStart's session will hand
// back across one or more ScanRead calls, mirroring
// lis_dumb_set_scan_result. Each DumbRead is delivered as a single
// chunk regardless of the caller's buffer size, except when the
// buffer is too small: then ScanRead returns (0, nil) and keeps the
// remainder for the next call, same as every other ScanSession in
// this module.
func (it *Item) SetScanResult(reads []DumbRead) {
	it.scanResult = reads
}

func (it *Item) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	if it.scanResult == nil {
		return nil, libinsane.NewError(libinsane.ErrKindNotImplemented, "dumb.ScanStart")
	}
	return &session{item: it, pending: it.scanResult}, nil
}

type session struct {
	item    *Item
	pending []DumbRead
	cur     []byte
	cancel  bool
}

func (s *session) GetScanParameters() (libinsane.ScanParameters, error) {
	return s.item.GetScanParameters(context.Background())
}

func (s *session) EndOfPage() bool {
	return len(s.cur) == 0 && len(s.pending) == 0
}

// EndOfFeed always matches EndOfPage: the dumb backend has a single
// fixed page per scan, like the original's lack of an ADF story.
func (s *session) EndOfFeed() bool { return s.EndOfPage() }

func (s *session) ScanRead(ctx context.Context, buf []byte) (int, error) {
	if s.cancel {
		return 0, libinsane.ErrCancelled
	}
	if len(s.cur) == 0 {
		if len(s.pending) == 0 {
			return 0, libinsane.NewError(libinsane.ErrKindInvalidValue, "dumb.ScanRead")
		}
		s.cur = s.pending[0].Content
		s.pending = s.pending[1:]
	}
	if len(buf) < len(s.cur) {
		return 0, nil
	}
	n := copy(buf, s.cur)
	s.cur = nil
	return n, nil
}

func (s *session) Cancel() { s.cancel = true }

// sourceOption is the single "source" string option every dumb item
// exposes, defaulting to "flatbed" with a list constraint taken from
// Backend.sourceConstraint, matching dumb_get_options' opt_source_template.
type sourceOption struct {
	backend  *Backend
	value    *string
}

func newSourceOption(b *Backend) *sourceOption {
	return &sourceOption{backend: b}
}

func (o *sourceOption) Name() string  { return "source" }
func (o *sourceOption) Title() string { return "source title" }
func (o *sourceOption) Desc() string  { return "source desc" }
func (o *sourceOption) Group() string { return "" }

func (o *sourceOption) Capabilities() libinsane.Capabilities { return libinsane.CapSwSelect }
func (o *sourceOption) ValueType() libinsane.ValueKind       { return libinsane.KindString }
func (o *sourceOption) Unit() libinsane.Unit                 { return libinsane.UnitNone }

func (o *sourceOption) Constraint() libinsane.Constraint {
	o.backend.mu.Lock()
	defer o.backend.mu.Unlock()
	values := make([]libinsane.Value, len(o.backend.sourceConstraint))
	for i, s := range o.backend.sourceConstraint {
		values[i] = libinsane.String(s)
	}
	return libinsane.ListConstraint(values...)
}

func (o *sourceOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	if o.value != nil {
		return libinsane.String(*o.value), nil
	}
	return libinsane.String("flatbed"), nil
}

func (o *sourceOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	s := v.Str
	o.value = &s
	return libinsane.SetFlags{MustReloadParams: true}, nil
}
