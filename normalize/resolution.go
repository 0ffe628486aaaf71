package normalize

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// minResolutionInterval is the step used to turn a continuous
// resolution range into a list when the driver didn't declare an
// interval, matching original_source's MIN_RESOLUTION_INTERVAL.
const minResolutionInterval = 25

// defaultResolutionValues is the same fallback table as the
// original's DEFAULT_CONSTRAINT, sized after a Brother DS-620.
var defaultResolutionValues = []int{
	75, 100, 125, 150, 175, 200, 225, 250, 275, 300,
	325, 350, 375, 400, 425, 450, 475, 500, 525, 550, 575, 600,
}

// WrapResolution forces the "resolution" option, wherever it exists,
// to integer type with a list constraint, regardless of whether the
// backend beneath reports it as a double, a range, or leaves it
// unconstrained. Applications that only know how to enumerate a list
// of integer resolutions then work against every backend uniformly.
//
// Grounded on original_source's src/normalizers/resolution.c:
// fix_range_type/fix_list_type become rangeToIntList/listToIntList,
// range_to_list's interval-or-MIN_RESOLUTION_INTERVAL step generation
// is kept, and the DEFAULT_CONSTRAINT fallback for an unconstrained
// option is applied under the same condition the original uses it
// (only when the underlying value was already integer; a double with
// no declared constraint has nothing safe to synthesize a list from,
// so it's left alone with a warning instead of guessing). Built on
// basewrapper's OptionFilter, unlike opt_aliases: this normalizer only
// ever transforms the resolution descriptor that's already there, it
// never needs to add one that doesn't exist. Per-item user data for
// the generated list (freed via on_close_item in the C source) has no
// Go counterpart: SetConstraint's value is owned by this call's
// GetOptions result already, nothing to free separately.
func WrapResolution(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "resolution")
	log := logx.Default.Named("resolution")

	bw.SetOptionFilter(func(item *basewrapper.Item, opt *basewrapper.OptionDescriptor) error {
		if !equalFoldName(opt.Name(), libinsane.OptNameResolution) {
			return nil
		}

		origType := opt.ValueType()
		if origType != libinsane.KindInt && origType != libinsane.KindDouble {
			return nil
		}

		if origType == libinsane.KindDouble {
			wrappedGet := opt.WrappedGetValue
			wrappedSet := opt.WrappedSetValue
			opt.SetValueType(libinsane.KindInt)
			opt.SetGetValue(func(ctx context.Context) (libinsane.Value, error) {
				v, err := wrappedGet(ctx)
				if err != nil {
					return libinsane.Value{}, err
				}
				return libinsane.Int(v.AsInt()), nil
			})
			opt.SetSetValue(func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
				return wrappedSet(ctx, libinsane.Double(v.AsDouble()))
			})
		}

		switch opt.Constraint().Kind {
		case libinsane.ConstraintRange:
			opt.SetConstraint(rangeToIntList(opt.Constraint()))
		case libinsane.ConstraintList:
			if origType == libinsane.KindDouble {
				opt.SetConstraint(listToIntList(opt.Constraint()))
			}
		case libinsane.ConstraintNone:
			if origType == libinsane.KindInt {
				opt.SetConstraint(defaultResolutionConstraint())
			} else {
				log.Warningf("resolution option %q has no constraint and a non-integer underlying type, leaving it unconstrained", opt.Name())
			}
		}
		return nil
	})

	return bw
}

func rangeToIntList(c libinsane.Constraint) libinsane.Constraint {
	min := int(c.Range.Min.AsDouble())
	max := int(c.Range.Max.AsDouble())
	interval := int(c.Range.Interval.AsDouble())
	if interval <= 1 {
		interval = minResolutionInterval
	}

	var values []int
	for v := min; v <= max; v += interval {
		values = append(values, v)
	}
	if len(values) == 0 || values[len(values)-1] != max {
		values = append(values, max)
	}
	if values[0] != min {
		values = append([]int{min}, values...)
	}

	out := make([]libinsane.Value, len(values))
	for i, v := range values {
		out[i] = libinsane.Int(v)
	}
	return libinsane.ListConstraint(out...)
}

func listToIntList(c libinsane.Constraint) libinsane.Constraint {
	out := make([]libinsane.Value, len(c.List))
	for i, v := range c.List {
		out[i] = libinsane.Int(v.AsInt())
	}
	return libinsane.ListConstraint(out...)
}

func defaultResolutionConstraint() libinsane.Constraint {
	out := make([]libinsane.Value, len(defaultResolutionValues))
	for i, v := range defaultResolutionValues {
		out[i] = libinsane.Int(v)
	}
	return libinsane.ListConstraint(out...)
}
