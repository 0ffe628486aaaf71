// Package normalize implements the topology and option normalizers of
// the image format pipeline's upstream half (spec §4.2-§4.3): they
// reshape whatever tree of items/options a base backend (or a prior
// normalizer) exposes into the one canonical shape every application
// can rely on, regardless of whether the backend underneath is Sane,
// WIA, TWAIN, or the dumb fixture.
package normalize

import (
	"regexp"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

var sourceTypeMappings = []struct {
	regex *regexp.Regexp
	typ   libinsane.ItemType
}{
	{regexp.MustCompile(`(?i)^flatbed`), libinsane.ItemFlatbed},
	{regexp.MustCompile(`(?i)automatic document feeder`), libinsane.ItemAdf},
	{regexp.MustCompile(`(?i)adf`), libinsane.ItemAdf},
}

// WrapSourceTypes classifies every item whose Type is still
// ItemUnidentified: the root becomes ItemDevice, and each child is
// matched by name against sourceTypeMappings (flatbed / ADF), falling
// back to leaving it unidentified with a warning log if nothing
// matches.
//
// Grounded on original_source's src/normalizers/source_types.c: same
// three regexes (compiled once like the original's g_refcount-guarded
// globals, here simply package-level vars since Go has no per-instance
// teardown to race against), same root-is-always-device rule, same
// leave-as-is-if-already-typed short circuit.
func WrapSourceTypes(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "source_types")
	log := logx.Default.Named("source_types")

	bw.SetItemFilter(func(item *basewrapper.Item, root bool) error {
		if item.Type() != libinsane.ItemUnidentified {
			return nil
		}
		if root {
			item.SetType(libinsane.ItemDevice)
			return nil
		}
		for _, m := range sourceTypeMappings {
			if m.regex.MatchString(item.Name()) {
				item.SetType(m.typ)
				return nil
			}
		}
		log.Warningf("failed to identify type of item %q", item.Name())
		return nil
	})

	return bw
}
