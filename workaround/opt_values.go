package workaround

import (
	"context"
	"strings"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

type optValueMapping struct {
	original    string
	replacement string
}

// optModeValueMappings mirrors original_source's g_opt_mode_mapping:
// one entry per driver-specific string seen in the wild for "mode".
var optModeValueMappings = []optValueMapping{
	// Sane + Brother MFC-7360N
	{"Black & White", libinsane.OptValueModeBW},
	{"True Gray", libinsane.OptValueModeGrayscale},
	{"24bit Color", libinsane.OptValueModeColor},
	// Sane + OKI MC363 (French localization)
	{"Couleur", libinsane.OptValueModeColor},
	{"Gris", libinsane.OptValueModeGrayscale},
	{"Noir et blanc", libinsane.OptValueModeBW},
}

// optSourceValueMappings mirrors original_source's g_opt_source_mapping.
// The OKI MC363 originals are mojibake-prone single-byte/UTF-8 accented
// strings in the C source; written here as their intended UTF-8 text
// ("Scanneur à plat", "à" either Latin-1 or UTF-8 encoded there) since Go
// source is UTF-8 natively and doesn't need the original's raw byte-array
// workaround for embedding non-ASCII literals in a C string.
var optSourceValueMappings = []optValueMapping{
	{"Scanneur à plat", libinsane.OptValueSourceFlatbed},
	{"Chargeur automatique de documents (ADF)", libinsane.OptValueSourceADF},
}

var optValuesMappings = map[string][]optValueMapping{
	libinsane.OptNameMode:   optModeValueMappings,
	libinsane.OptNameSource: optSourceValueMappings,
}

func getOptValueMapping(optName string) []optValueMapping {
	for name, mapping := range optValuesMappings {
		if strings.EqualFold(name, optName) {
			return mapping
		}
	}
	return nil
}

func findMappingByOriginal(mapping []optValueMapping, value string) *optValueMapping {
	for i := range mapping {
		if strings.EqualFold(mapping[i].original, value) {
			return &mapping[i]
		}
	}
	return nil
}

// findMappingByReplacement finds the mapping entry whose replacement
// matches value, but only if its original string is still among
// constraintValues: mirrors get_opt_modified_value_mapping checking the
// underlying driver's constraint before translating back, so a
// canonical value this driver never actually offered isn't silently
// substituted for the wrong original string.
func findMappingByReplacement(mapping []optValueMapping, value string, constraintValues []libinsane.Value) *optValueMapping {
	for i := range mapping {
		if !strings.EqualFold(value, mapping[i].replacement) {
			continue
		}
		for _, cv := range constraintValues {
			if cv.Kind == libinsane.KindString && strings.EqualFold(mapping[i].original, cv.Str) {
				return &mapping[i]
			}
		}
	}
	return nil
}

// WrapOptValues translates known driver-specific string values (e.g.
// a French Sane backend's "Couleur"/"Gris"/"Noir et blanc" for "mode")
// to this module's canonical value vocabulary, for any option whose
// name and constraint shape (string type, list constraint) matches one
// of optValuesMappings.
//
// Grounded on original_source's src/workarounds/opt_values.c:
// get_opt_original_value_mapping/get_opt_modified_value_mapping become
// findMappingByOriginal/findMappingByReplacement; opt_desc_filter's
// constraint-list pointer-swap becomes rewriting the list in place with
// SetConstraint; get_value/set_value become closures installed via
// SetGetValue/SetSetValue exactly when at least one constraint value
// was translated.
func WrapOptValues(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "opt_values")
	log := logx.Default.Named("opt_values")

	bw.SetOptionFilter(func(item *basewrapper.Item, opt *basewrapper.OptionDescriptor) error {
		if opt.ValueType() != libinsane.KindString {
			return nil
		}
		c := opt.Constraint()
		if c.Kind != libinsane.ConstraintList {
			return nil
		}

		mapping := getOptValueMapping(opt.Name())
		if mapping == nil {
			return nil
		}

		translated := false
		newList := make([]libinsane.Value, len(c.List))
		for i, v := range c.List {
			newList[i] = v
			if v.Kind != libinsane.KindString {
				continue
			}
			if m := findMappingByOriginal(mapping, v.Str); m != nil {
				log.Debugf("replacing %q value %q with %q", opt.Name(), v.Str, m.replacement)
				newList[i] = libinsane.String(m.replacement)
				translated = true
			}
		}
		if !translated {
			return nil
		}
		opt.SetConstraint(libinsane.ListConstraint(newList...))

		originalList := c.List
		wrappedGet := opt.WrappedGetValue
		wrappedSet := opt.WrappedSetValue
		opt.SetGetValue(func(ctx context.Context) (libinsane.Value, error) {
			v, err := wrappedGet(ctx)
			if err != nil {
				return libinsane.Value{}, err
			}
			if v.Kind == libinsane.KindString {
				if m := findMappingByOriginal(mapping, v.Str); m != nil {
					return libinsane.String(m.replacement), nil
				}
			}
			return v, nil
		})
		opt.SetSetValue(func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
			if v.Kind == libinsane.KindString {
				if m := findMappingByReplacement(mapping, v.Str, originalList); m != nil {
					v = libinsane.String(m.original)
				}
			}
			return wrappedSet(ctx, v)
		})
		return nil
	})

	return bw
}
