package workaround

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

type valueOption struct {
	name       string
	value      libinsane.Value
	constraint libinsane.Constraint
}

func (o *valueOption) Name() string                       { return o.name }
func (o *valueOption) Title() string                       { return o.name }
func (o *valueOption) Desc() string                        { return "" }
func (o *valueOption) Group() string                       { return "" }
func (o *valueOption) Capabilities() libinsane.Capabilities { return 0 }
func (o *valueOption) ValueType() libinsane.ValueKind       { return libinsane.KindString }
func (o *valueOption) Unit() libinsane.Unit                 { return libinsane.UnitNone }
func (o *valueOption) Constraint() libinsane.Constraint     { return o.constraint }
func (o *valueOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	return o.value, nil
}
func (o *valueOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	o.value = v
	return libinsane.SetFlags{}, nil
}

type valueItem struct{ opt *valueOption }

func (it *valueItem) Name() string                                       { return "item" }
func (it *valueItem) Type() libinsane.ItemType                            { return libinsane.ItemFlatbed }
func (it *valueItem) Close()                                              {}
func (it *valueItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) { return nil, nil }
func (it *valueItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return libinsane.ScanParameters{}, nil
}
func (it *valueItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	return []libinsane.OptionDescriptor{it.opt}, nil
}
func (it *valueItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return nil, nil
}

type valueBackend struct{ item *valueItem }

func (b *valueBackend) BaseName() string { return "opt_values" }
func (b *valueBackend) Cleanup()         {}
func (b *valueBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return nil, nil
}
func (b *valueBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	return b.item, nil
}

func TestOptValuesTranslatesConstraintAndGetValue(t *testing.T) {
	opt := &valueOption{
		name:  libinsane.OptNameMode,
		value: libinsane.String("Couleur"),
		constraint: libinsane.ListConstraint(
			libinsane.String("Couleur"),
			libinsane.String("Gris"),
			libinsane.String("Noir et blanc"),
		),
	}
	backend := &valueBackend{item: &valueItem{opt: opt}}

	wrapped := WrapOptValues(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}

	c := opts[0].Constraint()
	if len(c.List) != 3 || c.List[0].Str != libinsane.OptValueModeColor {
		t.Fatalf("expected the constraint list to be translated to canonical values, got %+v", c.List)
	}

	v, err := opts[0].GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v.Str != libinsane.OptValueModeColor {
		t.Fatalf("expected GetValue to report the canonical value, got %q", v.Str)
	}
}

func TestOptValuesTranslatesSetValueBack(t *testing.T) {
	opt := &valueOption{
		name:  libinsane.OptNameMode,
		value: libinsane.String("Couleur"),
		constraint: libinsane.ListConstraint(
			libinsane.String("Couleur"),
			libinsane.String("Noir et blanc"),
		),
	}
	backend := &valueBackend{item: &valueItem{opt: opt}}

	wrapped := WrapOptValues(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}

	if _, err := opts[0].SetValue(context.Background(), libinsane.String(libinsane.OptValueModeBW)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if opt.value.Str != "Noir et blanc" {
		t.Fatalf("expected the underlying driver value to be set to its own string, got %q", opt.value.Str)
	}
}

func TestOptValuesLeavesUnmappedOptionsAlone(t *testing.T) {
	opt := &valueOption{
		name:       libinsane.OptNameResolution,
		value:      libinsane.String("300"),
		constraint: libinsane.ListConstraint(libinsane.String("300")),
	}
	backend := &valueBackend{item: &valueItem{opt: opt}}

	wrapped := WrapOptValues(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if opts[0].Constraint().List[0].Str != "300" {
		t.Fatal("expected an option with no known mapping to be left untouched")
	}
}
