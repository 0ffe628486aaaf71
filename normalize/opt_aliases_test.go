package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

// simpleOption is a minimal OptionDescriptor backing the opt_aliases
// tests: a plain in-memory value with a range or list constraint.
type simpleOption struct {
	name       string
	value      libinsane.Value
	kind       libinsane.ValueKind
	constraint libinsane.Constraint
	caps       libinsane.Capabilities
}

func newSimpleOption(name string, v libinsane.Value, c libinsane.Constraint) *simpleOption {
	return &simpleOption{name: name, value: v, kind: v.Kind, constraint: c, caps: libinsane.CapSwSelect}
}

func (o *simpleOption) Name() string                        { return o.name }
func (o *simpleOption) Title() string                        { return "" }
func (o *simpleOption) Desc() string                         { return "" }
func (o *simpleOption) Group() string                        { return "" }
func (o *simpleOption) Capabilities() libinsane.Capabilities { return o.caps }
func (o *simpleOption) ValueType() libinsane.ValueKind       { return o.kind }
func (o *simpleOption) Unit() libinsane.Unit                 { return libinsane.UnitNone }
func (o *simpleOption) Constraint() libinsane.Constraint     { return o.constraint }
func (o *simpleOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	return o.value, nil
}
func (o *simpleOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	o.value = v
	return libinsane.SetFlags{}, nil
}

type optsItem struct {
	opts []libinsane.OptionDescriptor
}

func (it *optsItem) Name() string              { return "item" }
func (it *optsItem) Type() libinsane.ItemType { return libinsane.ItemDevice }
func (it *optsItem) Close()                    {}
func (it *optsItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) { return nil, nil }
func (it *optsItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	return it.opts, nil
}
func (it *optsItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return libinsane.ScanParameters{}, nil
}
func (it *optsItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return nil, libinsane.NewError(libinsane.ErrKindNotImplemented, "optsItem.ScanStart")
}

type optsBackend struct{ item *optsItem }

func (b *optsBackend) BaseName() string { return "opts" }
func (b *optsBackend) Cleanup()         {}
func (b *optsBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return nil, nil
}
func (b *optsBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	return b.item, nil
}

func TestOptAliasesResolutionProxiesWhicheverAxisExists(t *testing.T) {
	xres := newSimpleOption("x-resolution", libinsane.Int(300), libinsane.ListConstraint(libinsane.Int(150), libinsane.Int(300), libinsane.Int(600)))
	backend := &optsBackend{item: &optsItem{opts: []libinsane.OptionDescriptor{xres}}}

	wrapped := WrapOptAliases(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	alias := findOption(opts, libinsane.OptNameResolution)
	if alias == nil {
		t.Fatal("expected a synthesized \"resolution\" alias")
	}
	v, err := alias.GetValue(context.Background())
	if err != nil || v.Int != 300 {
		t.Fatalf("expected alias to proxy x-resolution's value, got %+v (err %v)", v, err)
	}
	if _, err := alias.SetValue(context.Background(), libinsane.Int(600)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if xres.value.Int != 600 {
		t.Fatalf("expected SetValue on the alias to propagate to x-resolution, got %d", xres.value.Int)
	}
}

func TestOptAliasesResolutionSetPropagatesToEveryAxis(t *testing.T) {
	xres := newSimpleOption("xres", libinsane.Int(300), libinsane.ListConstraint(libinsane.Int(150), libinsane.Int(300), libinsane.Int(600)))
	yres := newSimpleOption("yres", libinsane.Int(300), libinsane.ListConstraint(libinsane.Int(150), libinsane.Int(300), libinsane.Int(600)))
	backend := &optsBackend{item: &optsItem{opts: []libinsane.OptionDescriptor{xres, yres}}}

	wrapped := WrapOptAliases(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	alias := findOption(opts, libinsane.OptNameResolution)
	if alias == nil {
		t.Fatal("expected a synthesized \"resolution\" alias")
	}
	if _, err := alias.SetValue(context.Background(), libinsane.Int(200)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if xres.value.Int != 200 || yres.value.Int != 200 {
		t.Fatalf("expected SetValue on the alias to propagate to both axes, got xres=%d yres=%d", xres.value.Int, yres.value.Int)
	}
}

func TestOptAliasesTLAndBRHoldOppositeCornerFixed(t *testing.T) {
	xpos := newSimpleOption("xpos", libinsane.Int(10), libinsane.RangeConstraint(libinsane.Int(0), libinsane.Int(200), libinsane.Int(1)))
	xextent := newSimpleOption("xextent", libinsane.Int(50), libinsane.RangeConstraint(libinsane.Int(0), libinsane.Int(200), libinsane.Int(1)))
	backend := &optsBackend{item: &optsItem{opts: []libinsane.OptionDescriptor{xpos, xextent}}}

	wrapped := WrapOptAliases(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}

	tlx := findOption(opts, libinsane.OptNameTLX)
	brx := findOption(opts, libinsane.OptNameBRX)
	if tlx == nil || brx == nil {
		t.Fatal("expected both tl-x and br-x aliases")
	}

	v, err := tlx.GetValue(context.Background())
	if err != nil || v.Int != 10 {
		t.Fatalf("expected tl-x == xpos (10), got %+v (err %v)", v, err)
	}
	v, err = brx.GetValue(context.Background())
	if err != nil || v.Int != 60 {
		t.Fatalf("expected br-x == xpos+xextent (60), got %+v (err %v)", v, err)
	}

	// Moving tl-x to 20 should hold br-x (60) fixed by shrinking xextent.
	if _, err := tlx.SetValue(context.Background(), libinsane.Int(20)); err != nil {
		t.Fatalf("SetValue tl-x: %v", err)
	}
	if xpos.value.Int != 20 || xextent.value.Int != 40 {
		t.Fatalf("expected xpos=20 xextent=40, got xpos=%d xextent=%d", xpos.value.Int, xextent.value.Int)
	}
}
