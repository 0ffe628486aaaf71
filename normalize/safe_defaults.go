package normalize

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

type safeDefault struct {
	optName string
	value   func(opt libinsane.OptionDescriptor) (libinsane.Value, bool)
}

// safeDefaults mirrors original_source's g_safe_setters: mode starts
// at full color, the crop region starts at the whole scan area, and a
// Sane-test-backend-specific quirk forces "test-picture" to a stable
// pattern (its driver default otherwise produces noise, which makes
// tests against the Sane test backend non-reproducible).
var safeDefaults = []safeDefault{
	{libinsane.OptNameMode, func(libinsane.OptionDescriptor) (libinsane.Value, bool) {
		return libinsane.String(libinsane.OptValueModeColor), true
	}},
	{libinsane.OptNameTLX, rangeMinDefault},
	{libinsane.OptNameTLY, rangeMinDefault},
	{libinsane.OptNameBRX, rangeMaxDefault},
	{libinsane.OptNameBRY, rangeMaxDefault},
	{"test-picture", func(libinsane.OptionDescriptor) (libinsane.Value, bool) {
		return libinsane.String("Color pattern"), true
	}},
}

func rangeMinDefault(opt libinsane.OptionDescriptor) (libinsane.Value, bool) {
	c := opt.Constraint()
	if c.Kind != libinsane.ConstraintRange {
		return libinsane.Value{}, false
	}
	return c.Range.Min, true
}

func rangeMaxDefault(opt libinsane.OptionDescriptor) (libinsane.Value, bool) {
	c := opt.Constraint()
	if c.Kind != libinsane.ConstraintRange {
		return libinsane.Value{}, false
	}
	return c.Range.Max, true
}

// WrapSafeDefaults applies safeDefaults to every item as soon as it's
// opened (root or child), so an application that never touches these
// options still gets full-color, whole-area scans instead of whatever
// a driver happens to default to.
//
// Grounded on original_source's src/normalizers/safe_defaults.c.
// Applied once per item at ItemFilter time rather than on every
// GetOptions call, so a value an application later sets explicitly
// isn't silently reverted the next time it calls GetOptions.
func WrapSafeDefaults(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "safe_defaults")
	log := logx.Default.Named("safe_defaults")

	bw.SetItemFilter(func(item *basewrapper.Item, root bool) error {
		ctx := context.Background()
		opts, err := item.GetOptions(ctx)
		if err != nil {
			return nil
		}
		for _, d := range safeDefaults {
			opt := findOption(opts, d.optName)
			if opt == nil || !opt.Capabilities().Writable() {
				continue
			}
			v, ok := d.value(opt)
			if !ok {
				continue
			}
			if _, err := opt.SetValue(ctx, v); err != nil {
				log.Warningf("failed to set safe default %q=%v on item %q: %v", d.optName, v, item.Name(), err)
			}
		}
		return nil
	})

	return bw
}
