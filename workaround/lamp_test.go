package workaround

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

type lampOption struct {
	name  string
	value libinsane.Value
	fail  bool
}

func (o *lampOption) Name() string                      { return o.name }
func (o *lampOption) Title() string                      { return o.name }
func (o *lampOption) Desc() string                       { return "" }
func (o *lampOption) Group() string                      { return "" }
func (o *lampOption) Capabilities() libinsane.Capabilities { return 0 }
func (o *lampOption) ValueType() libinsane.ValueKind      { return libinsane.KindBool }
func (o *lampOption) Unit() libinsane.Unit                { return libinsane.UnitNone }
func (o *lampOption) Constraint() libinsane.Constraint    { return libinsane.NoConstraint() }
func (o *lampOption) GetValue(ctx context.Context) (libinsane.Value, error) {
	return o.value, nil
}
func (o *lampOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	if o.fail {
		return libinsane.SetFlags{}, libinsane.NewError(libinsane.ErrKindIO, "lamp_test.SetValue")
	}
	o.value = v
	return libinsane.SetFlags{}, nil
}

type lampItem struct {
	name    string
	itype   libinsane.ItemType
	lamp    *lampOption
	session *fakeSession
}

func (it *lampItem) Name() string                                       { return it.name }
func (it *lampItem) Type() libinsane.ItemType                            { return it.itype }
func (it *lampItem) Close()                                              {}
func (it *lampItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) { return nil, nil }
func (it *lampItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.session.GetScanParameters()
}
func (it *lampItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	if it.lamp == nil {
		return nil, nil
	}
	return []libinsane.OptionDescriptor{it.lamp}, nil
}
func (it *lampItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.session, nil
}

type lampBackend struct{ item *lampItem }

func (b *lampBackend) BaseName() string { return "lamp" }
func (b *lampBackend) Cleanup()         {}
func (b *lampBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return nil, nil
}
func (b *lampBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	return b.item, nil
}

func TestLampTurnsOnThenOffOnEndOfFeed(t *testing.T) {
	lamp := &lampOption{name: libinsane.OptNameLampSwitch, value: libinsane.Bool(false)}
	session := &fakeSession{page: true, feed: false}
	item := &lampItem{name: "dev0", itype: libinsane.ItemFlatbed, lamp: lamp, session: session}
	backend := &lampBackend{item: item}

	wrapped := WrapLamp(backend)
	wItem, _ := wrapped.GetDevice(context.Background(), "dev0")
	sess, err := wItem.ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}
	if !lamp.value.Bool {
		t.Fatal("expected the lamp to be switched on before scanning")
	}

	session.feed = true
	if !sess.EndOfFeed() {
		t.Fatal("expected end of feed to be reported")
	}
	if lamp.value.Bool {
		t.Fatal("expected the lamp to be switched off once the feed ends")
	}
}

func TestLampToleratesMissingSwitch(t *testing.T) {
	session := &fakeSession{page: true, feed: true}
	item := &lampItem{name: "dev0", itype: libinsane.ItemFlatbed, lamp: nil, session: session}
	backend := &lampBackend{item: item}

	wrapped := WrapLamp(backend)
	wItem, _ := wrapped.GetDevice(context.Background(), "dev0")
	if _, err := wItem.ScanStart(context.Background()); err != nil {
		t.Fatalf("expected ScanStart to succeed despite no lamp-switch option: %v", err)
	}
}
