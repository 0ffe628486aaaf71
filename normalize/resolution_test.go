package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

func TestResolutionConvertsDoubleRangeToIntList(t *testing.T) {
	res := newSimpleOption("resolution", libinsane.Double(150), libinsane.RangeConstraint(libinsane.Double(50), libinsane.Double(200), libinsane.Double(0)))
	backend := &optsBackend{item: &optsItem{opts: []libinsane.OptionDescriptor{res}}}

	wrapped := WrapResolution(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	r := findOption(opts, libinsane.OptNameResolution)
	if r == nil {
		t.Fatal("expected the resolution option")
	}
	if r.ValueType() != libinsane.KindInt {
		t.Fatalf("expected resolution forced to int type, got %s", r.ValueType())
	}
	c := r.Constraint()
	if c.Kind != libinsane.ConstraintList {
		t.Fatalf("expected a list constraint, got kind %d", c.Kind)
	}
	if c.List[0].Int != 50 || c.List[len(c.List)-1].Int != 200 {
		t.Fatalf("expected the list to span [50, 200], got %+v", c.List)
	}
	if c.List[1].Int-c.List[0].Int != minResolutionInterval {
		t.Fatalf("expected a %d step when no interval is declared, got %+v", minResolutionInterval, c.List)
	}

	v, err := r.GetValue(context.Background())
	if err != nil || v.Kind != libinsane.KindInt || v.Int != 150 {
		t.Fatalf("expected GetValue to report an int, got %+v (err %v)", v, err)
	}
	if _, err := r.SetValue(context.Background(), libinsane.Int(175)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if res.value.Kind != libinsane.KindDouble || res.value.Double != 175 {
		t.Fatalf("expected SetValue to convert back to double on the underlying option, got %+v", res.value)
	}
}

func TestResolutionAppliesDefaultTableWhenUnconstrainedInt(t *testing.T) {
	res := newSimpleOption("resolution", libinsane.Int(300), libinsane.NoConstraint())
	backend := &optsBackend{item: &optsItem{opts: []libinsane.OptionDescriptor{res}}}

	wrapped := WrapResolution(backend)
	item, _ := wrapped.GetDevice(context.Background(), "dev0")
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	r := findOption(opts, libinsane.OptNameResolution)
	c := r.Constraint()
	if c.Kind != libinsane.ConstraintList || len(c.List) != len(defaultResolutionValues) {
		t.Fatalf("expected the default resolution table, got %+v", c)
	}
	if c.List[0].Int != defaultResolutionValues[0] {
		t.Fatalf("unexpected first entry: %+v", c.List[0])
	}
}
