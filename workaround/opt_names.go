package workaround

import (
	"context"
	"strings"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// optNameMapping pairs a non-standard option name some driver uses
// with the canonical name this module expects everywhere else.
type optNameMapping struct {
	original    string
	replacement string
}

// optNameMappings mirrors original_source's g_opt_name_mapping table.
var optNameMappings = []optNameMapping{
	{"scan-resolution", libinsane.OptNameResolution}, // Sane + Lexmark
	{"doc-source", libinsane.OptNameSource},           // Sane + Samsung
}

// WrapOptNames renames a handful of known non-standard option names to
// their canonical equivalent, but only on items where the canonical
// name isn't already in use by another option (renaming would then
// create a collision worse than leaving the odd name alone).
//
// Grounded on original_source's src/workarounds/opt_names.c:
// item_filter's per-item enabled_mappings array (whether, for a given
// mapping, the replacement name is not already present among this
// item's own options) becomes a []bool stashed via
// basewrapper.Item.SetUserData, computed once per item instead of
// freed/reallocated across on_close_item/item_filter calls.
func WrapOptNames(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "opt_names")
	log := logx.Default.Named("opt_names")

	bw.SetItemFilter(func(item *basewrapper.Item, root bool) error {
		orig := item.OriginalItem()
		opts, err := orig.GetOptions(context.Background())
		if err != nil {
			log.Warningf("failed to get options: %v, disabling name aliases on this item", err)
			return nil
		}

		enabled := make([]bool, len(optNameMappings))
		for i, mapping := range optNameMappings {
			enabled[i] = findOptionByName(opts, mapping.replacement) == nil
		}
		item.SetUserData(enabled)
		return nil
	})

	bw.SetOptionFilter(func(item *basewrapper.Item, opt *basewrapper.OptionDescriptor) error {
		idx := -1
		for i, mapping := range optNameMappings {
			if strings.EqualFold(mapping.original, opt.Name()) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}

		enabled, _ := item.UserData().([]bool)
		if enabled == nil || !enabled[idx] {
			log.Warningf(
				"found option %q but option %q already exists too, so it can't be renamed",
				opt.Name(), optNameMappings[idx].replacement,
			)
			return nil
		}

		log.Debugf("renaming option %q into %q", opt.Name(), optNameMappings[idx].replacement)
		opt.SetName(optNameMappings[idx].replacement)
		return nil
	})

	return bw
}

func findOptionByName(opts []libinsane.OptionDescriptor, name string) libinsane.OptionDescriptor {
	for _, o := range opts {
		if strings.EqualFold(o.Name(), name) {
			return o
		}
	}
	return nil
}
