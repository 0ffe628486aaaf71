package workaround

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

type nameOption struct {
	name string
}

func (o *nameOption) Name() string                       { return o.name }
func (o *nameOption) Title() string                       { return o.name }
func (o *nameOption) Desc() string                        { return "" }
func (o *nameOption) Group() string                       { return "" }
func (o *nameOption) Capabilities() libinsane.Capabilities { return 0 }
func (o *nameOption) ValueType() libinsane.ValueKind       { return libinsane.KindString }
func (o *nameOption) Unit() libinsane.Unit                 { return libinsane.UnitNone }
func (o *nameOption) Constraint() libinsane.Constraint     { return libinsane.NoConstraint() }
func (o *nameOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	return libinsane.String(""), nil
}
func (o *nameOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	return libinsane.SetFlags{}, nil
}

type nameItem struct {
	opts []libinsane.OptionDescriptor
}

func (it *nameItem) Name() string                                       { return "item" }
func (it *nameItem) Type() libinsane.ItemType                            { return libinsane.ItemFlatbed }
func (it *nameItem) Close()                                              {}
func (it *nameItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) { return nil, nil }
func (it *nameItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return libinsane.ScanParameters{}, nil
}
func (it *nameItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	return it.opts, nil
}
func (it *nameItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return nil, nil
}

type nameBackend struct{ item *nameItem }

func (b *nameBackend) BaseName() string { return "opt_names" }
func (b *nameBackend) Cleanup()         {}
func (b *nameBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return nil, nil
}
func (b *nameBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	return b.item, nil
}

func TestOptNamesRenamesKnownAlias(t *testing.T) {
	item := &nameItem{opts: []libinsane.OptionDescriptor{&nameOption{name: "scan-resolution"}}}
	backend := &nameBackend{item: item}

	wrapped := WrapOptNames(backend)
	wItem, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := wItem.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if len(opts) != 1 || opts[0].Name() != libinsane.OptNameResolution {
		t.Fatalf("expected scan-resolution to be renamed to %q, got %+v", libinsane.OptNameResolution, opts)
	}
}

func TestOptNamesLeavesCollidingNameAlone(t *testing.T) {
	item := &nameItem{opts: []libinsane.OptionDescriptor{
		&nameOption{name: "scan-resolution"},
		&nameOption{name: libinsane.OptNameResolution},
	}}
	backend := &nameBackend{item: item}

	wrapped := WrapOptNames(backend)
	wItem, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := wItem.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}

	found := false
	for _, o := range opts {
		if o.Name() == "scan-resolution" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected scan-resolution to be left alone since resolution already exists on the item")
	}
}
