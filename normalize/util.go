package normalize

import (
	"context"
	"strings"

	"github.com/libinsane/libinsane-go"
)

func equalFoldName(a, b string) bool { return strings.EqualFold(a, b) }

// findOption returns the option named name (case-insensitively) among
// opts, or nil if none matches.
func findOption(opts []libinsane.OptionDescriptor, name string) libinsane.OptionDescriptor {
	for _, o := range opts {
		if equalFoldName(o.Name(), name) {
			return o
		}
	}
	return nil
}

// getOptionValue is a small convenience used by normalizers that only
// need to read one option's current value out of a full GetOptions
// call.
func getOptionValue(ctx context.Context, opts []libinsane.OptionDescriptor, name string) (libinsane.Value, bool, error) {
	o := findOption(opts, name)
	if o == nil {
		return libinsane.Value{}, false, nil
	}
	v, err := o.GetValue(ctx)
	if err != nil {
		return libinsane.Value{}, true, err
	}
	return v, true, nil
}
