package workaround

import (
	"context"
	"strings"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// lateOptionNames lists the options whose SetValue is deferred until
// ScanStart instead of applied immediately, mirroring original_source's
// g_opt_to_set_late. "bit_depth" only exists under TWAIN.
var lateOptionNames = []string{libinsane.OptNameMode, "bit_depth"}

func isLateOptionName(name string) bool {
	for _, n := range lateOptionNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// WrapSetOptLate delays applying a SetValue on "mode" (and TWAIN's
// "bit_depth") until the next ScanStart instead of writing it through
// right away: some drivers mishandle an immediate set of these options
// and only behave correctly when it's applied right before scanning.
//
// Grounded on original_source's src/workarounds/set_opt_late.c. The C
// source keeps pending values in one process-global linked list keyed
// by (item pointer, option name), manually pruned by on_item_closed
// when an item closes. That shape doesn't translate: a package-level
// Go map shared by every wrapped backend instance would leak pending
// values across unrelated devices and race under concurrent access.
// Here the pending values for a given item live in a
// map[string]libinsane.Value stored via basewrapper.Item.SetUserData,
// scoped to that item exactly like every other per-item workaround in
// this package, and dropped outright when the item closes.
func WrapSetOptLate(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "set_opt_late")
	log := logx.Default.Named("set_opt_late")

	bw.SetOptionFilter(func(item *basewrapper.Item, opt *basewrapper.OptionDescriptor) error {
		if !isLateOptionName(opt.Name()) {
			return nil
		}
		log.Infof("wrapping option %q to delay setting its value", opt.Name())

		opt.SetGetValue(func(ctx context.Context) (libinsane.Value, error) {
			if v, ok := pendingLateValue(item, opt.Name()); ok {
				return v, nil
			}
			return opt.WrappedGetValue(ctx)
		})
		opt.SetSetValue(func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
			log.Infof("delaying update of option %q", opt.Name())
			setPendingLateValue(item, opt.Name(), v)
			return libinsane.SetFlags{}, nil
		})
		return nil
	})

	bw.SetOnScanStart(func(item *basewrapper.Item) (libinsane.ScanSession, error) {
		ctx := context.Background()
		pending, _ := item.UserData().(map[string]libinsane.Value)
		if len(pending) > 0 {
			opts, err := item.OriginalItem().GetOptions(ctx)
			if err != nil {
				log.Errorf("failed to get options to apply delayed values: %v", err)
				return nil, err
			}
			log.Infof("setting late options...")
			for _, opt := range opts {
				v, ok := pending[strings.ToLower(opt.Name())]
				if !ok {
					continue
				}
				log.Infof("setting option %q late...", opt.Name())
				if _, err := opt.SetValue(ctx, v); err != nil {
					log.Errorf("failed to set option %q late: %v", opt.Name(), err)
					return nil, err
				}
			}
		}
		return item.WrappedScanStart(ctx)
	})

	bw.SetOnCloseItem(func(item *basewrapper.Item, root bool) {
		item.SetUserData(nil)
	})

	return bw
}

func pendingLateValue(item *basewrapper.Item, name string) (libinsane.Value, bool) {
	m, _ := item.UserData().(map[string]libinsane.Value)
	v, ok := m[strings.ToLower(name)]
	return v, ok
}

func setPendingLateValue(item *basewrapper.Item, name string, v libinsane.Value) {
	m, _ := item.UserData().(map[string]libinsane.Value)
	if m == nil {
		m = map[string]libinsane.Value{}
	}
	m[strings.ToLower(name)] = v
	item.SetUserData(m)
}
