// Package sane also provides the adapter that lets this binding serve
// as this module's "sane" base backend: Backend implements
// libinsane.Backend directly over Conn, the same way the rest of the
// module's base backends (e.g. dumb.Backend) sit at the bottom of a
// compose pipeline. It registers itself under "sane" so compose.Safebet,
// compose.Str2Impls and compose.Build can all reach it by name, the
// way SPEC_FULL anticipates a real driver binding being "plugged in...
// generalized from a SANE-only Conn to the five-operation Backend
// contract" without the rest of the module depending on cgo to build.
//
// Grounded on dumb.Backend/dumb.Item/dumb's session type for the shape
// of a base backend, and on original_source's src/bases/sane.c for
// what a SANE-backed base actually has to translate: device listing,
// option descriptor conversion (including SANE's own "source" option,
// left alone here since normalize.WrapSourceNodes already knows how to
// turn a flat "source" option into child items), and frame reads.
package sane

import (
	"context"
	"fmt"
	"sync"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/compose"
	"github.com/libinsane/libinsane-go/isolate"
)

func init() {
	factory := func() (libinsane.Backend, error) {
		return newBackend()
	}
	compose.RegisterBase("sane", factory)
	// Lets "dedicated_process" wrap a "sane" base: the re-exec'd worker
	// rebuilds its own Backend from this factory rather than inheriting
	// the master's (see compose/builtins.go's matching dumb registration).
	isolate.RegisterWorkerFactory("sane", factory)
}

// Backend is the "sane" base backend: libinsane.Backend implemented
// directly over package sane's Conn/Device/Option, the same relation
// src/bases/sane.c has to the C library's own sane_* calls.
type Backend struct {
	mu      sync.Mutex
	devices map[string]*Item
}

func newBackend() (*Backend, error) {
	if err := Init(); err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "sane.Init", err)
	}
	return &Backend{devices: map[string]*Item{}}, nil
}

func (b *Backend) BaseName() string { return "sane" }

// Cleanup calls Exit once, same as lis_sane_cleanup's single
// sane_exit call regardless of how many devices were opened.
func (b *Backend) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, item := range b.devices {
		item.conn.Close()
		delete(b.devices, id)
	}
	Exit()
}

func (b *Backend) ListDevices(ctx context.Context, _ libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	devs, err := Devices()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, "sane.Devices", err)
	}
	descs := make([]libinsane.DeviceDescriptor, len(devs))
	for i, d := range devs {
		descs[i] = libinsane.DeviceDescriptor{
			ID:     d.Name,
			Name:   d.Name,
			Vendor: d.Vendor,
			Model:  d.Model,
			Type:   libinsane.ItemDevice,
		}
	}
	return descs, nil
}

func (b *Backend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	conn, err := Open(devID)
	if err != nil {
		return nil, wrapSaneErr("sane.Open", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	item := &Item{backend: b, conn: conn, id: devID}
	b.devices[devID] = item
	return item, nil
}

func (b *Backend) forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, id)
}

// Item is a device's root item. SANE has no structural notion of
// sources distinct from the device itself; it exposes them as the
// "source" option picked up by GetOptions like any other, and relies
// on normalize.WrapSourceNodes further up the pipeline to synthesize
// child items from it the same way it would for any other flat base.
type Item struct {
	backend *Backend
	conn    *Conn
	id      string

	mu      sync.Mutex
	session *scanSession
}

func (it *Item) Name() string            { return it.id }
func (it *Item) Type() libinsane.ItemType { return libinsane.ItemDevice }

func (it *Item) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	return nil, nil
}

func (it *Item) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	opts := it.conn.Options()
	descs := make([]libinsane.OptionDescriptor, len(opts))
	for i, o := range opts {
		descs[i] = &optionDescriptor{conn: it.conn, opt: o}
	}
	return descs, nil
}

func (it *Item) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	params, err := it.conn.Params()
	if err != nil {
		return libinsane.ScanParameters{}, wrapSaneErr("sane.Params", err)
	}
	return toScanParameters(params), nil
}

// ScanStart fails with ErrDeviceBusy if a session from this item is
// already open, matching Item's own contract (spec §3.1) since
// package sane's Conn has no such guard of its own.
func (it *Item) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.session != nil {
		return nil, libinsane.NewError(libinsane.ErrKindDeviceBusy, "sane.ScanStart")
	}
	if err := it.conn.Start(); err != nil {
		return nil, wrapSaneErr("sane.Start", err)
	}
	s := &scanSession{item: it}
	it.session = s
	return s, nil
}

func (it *Item) Close() {
	it.conn.Close()
	it.backend.forget(it.id)
}

type scanSession struct {
	item *Item
	eop  bool
}

func (s *scanSession) GetScanParameters() (libinsane.ScanParameters, error) {
	params, err := s.item.conn.Params()
	if err != nil {
		return libinsane.ScanParameters{}, wrapSaneErr("sane.Params", err)
	}
	return toScanParameters(params), nil
}

// EndOfFeed always matches EndOfPage: both turn true at the first EOF
// Conn.Read reports, so a session covers a single frame. Params().IsLast
// is not consulted, and the session does not go on to further frames or
// pages.
func (s *scanSession) EndOfFeed() bool { return s.eop }
func (s *scanSession) EndOfPage() bool { return s.eop }

func (s *scanSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	n, err := s.item.conn.Read(buf)
	if err == ErrIo {
		return 0, libinsane.WrapError(libinsane.ErrKindIO, "sane.Read", err)
	}
	if err != nil {
		if isEOF(err) {
			s.eop = true
			return 0, nil
		}
		return 0, wrapSaneErr("sane.Read", err)
	}
	return n, nil
}

func (s *scanSession) Cancel() {
	s.item.conn.Cancel()
	s.item.mu.Lock()
	s.item.session = nil
	s.item.mu.Unlock()
}

func toScanParameters(p Params) libinsane.ScanParameters {
	format := libinsane.ImageFormatUnknown
	switch p.Format {
	case FrameGray:
		if p.Depth == 1 {
			format = libinsane.ImageFormatBW1
		} else {
			format = libinsane.ImageFormatGrayscale8
		}
	case FrameRgb:
		format = libinsane.ImageFormatRawRGB24
	}
	height := p.Lines
	if height < 0 {
		height = 0
	}
	return libinsane.ScanParameters{
		Format:    format,
		Width:     p.PixelsPerLine,
		Height:    height,
		ImageSize: p.BytesPerLine * p.Lines,
	}
}

// optionDescriptor adapts one package-sane Option, looked up again by
// name on every call since Conn.Options/GetOption/SetOption are
// themselves name-keyed and re-resolve the underlying index.
type optionDescriptor struct {
	conn *Conn
	opt  Option
}

func (o *optionDescriptor) Name() string  { return o.opt.Name }
func (o *optionDescriptor) Title() string { return o.opt.Title }
func (o *optionDescriptor) Desc() string  { return o.opt.Desc }
func (o *optionDescriptor) Group() string { return o.opt.Group }

func (o *optionDescriptor) Capabilities() libinsane.Capabilities {
	var c libinsane.Capabilities
	if !o.opt.IsActive {
		c |= libinsane.CapInactive
	}
	if o.opt.IsSettable {
		c |= libinsane.CapSwSelect
	}
	if o.opt.IsAutomatic {
		c |= libinsane.CapAutomatic
	}
	if o.opt.IsEmulated {
		c |= libinsane.CapEmulated
	}
	c |= libinsane.CapReadable
	return c
}

func (o *optionDescriptor) ValueType() libinsane.ValueKind {
	switch o.opt.Type {
	case TypeBool:
		return libinsane.KindBool
	case TypeInt, TypeFixed:
		return libinsane.KindInt
	default:
		return libinsane.KindString
	}
}

func (o *optionDescriptor) Unit() libinsane.Unit {
	switch o.opt.Unit {
	case UnitPixel:
		return libinsane.UnitPixel
	case UnitBit:
		return libinsane.UnitBit
	case UnitMm:
		return libinsane.UnitMm
	case UnitDpi:
		return libinsane.UnitDpi
	case UnitPercent:
		return libinsane.UnitPercent
	case UnitUsec:
		return libinsane.UnitMicrosecond
	default:
		return libinsane.UnitNone
	}
}

func (o *optionDescriptor) Constraint() libinsane.Constraint {
	if o.opt.ConstrRange != nil {
		r := o.opt.ConstrRange
		return libinsane.RangeConstraint(
			libinsane.Int(r.Min), libinsane.Int(r.Max), libinsane.Int(r.Quant))
	}
	if o.opt.ConstrSet != nil {
		values := make([]libinsane.Value, len(o.opt.ConstrSet))
		for i, v := range o.opt.ConstrSet {
			values[i] = toValue(v)
		}
		return libinsane.ListConstraint(values...)
	}
	return libinsane.NoConstraint()
}

func toValue(v interface{}) libinsane.Value {
	switch x := v.(type) {
	case bool:
		return libinsane.Bool(x)
	case int:
		return libinsane.Int(x)
	case string:
		return libinsane.String(x)
	default:
		return libinsane.String(fmt.Sprintf("%v", x))
	}
}

func (o *optionDescriptor) GetValue(ctx context.Context) (libinsane.Value, error) {
	val, err := o.conn.GetOption(o.opt.Name)
	if err != nil {
		return libinsane.Value{}, wrapSaneErr("sane.GetOption", err)
	}
	return toValue(val), nil
}

func (o *optionDescriptor) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	var native interface{}
	switch v.Kind {
	case libinsane.KindBool:
		native = v.Bool
	case libinsane.KindInt:
		native = v.Int
	case libinsane.KindDouble:
		native = v.AsInt()
	default:
		native = v.Str
	}
	info, err := o.conn.SetOption(o.opt.Name, native)
	if err != nil {
		return libinsane.SetFlags{}, wrapSaneErr("sane.SetOption", err)
	}
	return libinsane.SetFlags{
		Inexact:           info.Inexact,
		MustReloadOptions: info.ReloadOpts,
		MustReloadParams:  info.ReloadParams,
	}, nil
}

func isEOF(err error) bool {
	return err != nil && err.Error() == "EOF"
}

// wrapSaneErr maps package sane's sentinel Errors onto this module's
// error taxonomy, mirroring lis_sane_error_to_lis_error's switch over
// SANE_Status.
func wrapSaneErr(op string, err error) error {
	switch err {
	case ErrCancelled:
		return libinsane.NewError(libinsane.ErrKindCancelled, op)
	case ErrBusy:
		return libinsane.NewError(libinsane.ErrKindDeviceBusy, op)
	case ErrInvalid:
		return libinsane.NewError(libinsane.ErrKindInvalidValue, op)
	case ErrJammed:
		return libinsane.NewError(libinsane.ErrKindJammed, op)
	case ErrEmpty:
		return libinsane.NewError(libinsane.ErrKindJammed, op)
	case ErrCoverOpen:
		return libinsane.NewError(libinsane.ErrKindAccessDenied, op)
	case ErrIo:
		return libinsane.WrapError(libinsane.ErrKindIO, op, err)
	case ErrNoMem:
		return libinsane.NewError(libinsane.ErrKindNoMem, op)
	case ErrUnsupported:
		return libinsane.NewError(libinsane.ErrKindUnsupported, op)
	default:
		return libinsane.WrapError(libinsane.ErrKindUnknown, op, err)
	}
}
