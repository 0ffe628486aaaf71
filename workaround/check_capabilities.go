// Package workaround implements the driver-quirk compensators of the
// image format pipeline's downstream half (spec §4.4-§4.5): unlike
// normalize, these don't reshape the canonical tree, they paper over
// individual drivers misbehaving within it.
package workaround

import (
	"context"
	"strings"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapCheckCapabilities enforces an option's declared Capabilities
// before forwarding Get/SetValue to the underlying driver, and adds
// one exception: a SetValue whose only possible value (a one-entry
// list constraint) already matches the requested value succeeds
// without ever reaching the driver, instead of being rejected as
// non-writable.
//
// Grounded on original_source's src/workarounds/check_capabilities.c.
// get_value/set_value become the closures inline in the option filter
// below; opt_filter's two fn overrides become the filter always
// installing SetValue and conditionally installing GetValue. The
// item_filter's detection of a "source" option wrongly marked
// INACTIVE despite having more than one possible value (seen on a
// Canon LiDE 220 with Sane) becomes a bool stored with
// item.SetUserData (false leaves GetValue unwrapped), computed once per
// item instead of a user-ptr cast to a fake boolean.
func WrapCheckCapabilities(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "check_capabilities")
	log := logx.Default.Named("check_capabilities")

	bw.SetItemFilter(func(item *basewrapper.Item, root bool) error {
		item.SetUserData(true)

		orig := item.OriginalItem()
		opts, err := orig.GetOptions(context.Background())
		if err != nil {
			log.Warningf("failed to get options: %v, assuming INACTIVE flags are correctly set", err)
			return nil
		}

		for _, opt := range opts {
			if !strings.EqualFold(opt.Name(), libinsane.OptNameSource) {
				continue
			}

			if !opt.Capabilities().Has(libinsane.CapInactive) {
				log.Infof("option %q marked as active, assuming flags are correctly set on other options", opt.Name())
				return nil
			}

			c := opt.Constraint()
			if c.Kind != libinsane.ConstraintList {
				log.Warningf("unexpected constraint type for option %q (%d), assuming flags are correctly set on other options", opt.Name(), c.Kind)
				return nil
			}
			if len(c.List) <= 1 {
				log.Warningf("option %q has only one possible value, assuming flags are correctly set on other options", opt.Name())
				return nil
			}

			log.Warningf(
				"option %q is marked INACTIVE but has many possible values, assuming the driver doesn't set INACTIVE correctly",
				opt.Name(),
			)
			item.SetUserData(false)
			return nil
		}

		log.Warningf("failed to find option %q, assuming INACTIVE flags are correctly set", libinsane.OptNameSource)
		return nil
	})

	bw.SetOptionFilter(func(item *basewrapper.Item, opt *basewrapper.OptionDescriptor) error {
		checkGetCaps, _ := item.UserData().(bool)

		opt.SetSetValue(func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
			c := opt.Constraint()
			if c.Kind == libinsane.ConstraintList && len(c.List) == 1 {
				if c.List[0].Equal(v) {
					log.Infof("set_value(%s): only one value possible, option not set", opt.Name())
					return libinsane.SetFlags{}, nil
				}
				log.Warningf("set_value(%s): only one value possible, and it differs from the request, denied", opt.Name())
				return libinsane.SetFlags{}, libinsane.NewError(libinsane.ErrKindInvalidValue, "check_capabilities.SetValue")
			}

			// A Canon LiDE 220 under Sane reports its "source"
			// option as INACTIVE yet SW_SELECT. Writability alone
			// (not readability) gates SetValue here, and Writable()
			// is false for an INACTIVE option, so such a write is
			// denied; normalize's source_nodes checks Writable()
			// first and skips the write with a warning.
			if !opt.Capabilities().Writable() {
				log.Warningf("set_value(%s): capabilities prevent setting the value", opt.Name())
				return libinsane.SetFlags{}, libinsane.NewError(libinsane.ErrKindAccessDenied, "check_capabilities.SetValue")
			}
			return opt.WrappedSetValue(ctx, v)
		})

		if checkGetCaps {
			opt.SetGetValue(func(ctx context.Context) (libinsane.Value, error) {
				if !opt.Capabilities().Readable() {
					log.Warningf("get_value(%s): capabilities prevent getting the value", opt.Name())
					return libinsane.Value{}, libinsane.NewError(libinsane.ErrKindAccessDenied, "check_capabilities.GetValue")
				}
				return opt.WrappedGetValue(ctx)
			})
		}
		return nil
	})

	return bw
}
