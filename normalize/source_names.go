package normalize

import (
	"regexp"
	"strings"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// sourceNameMappings is tried in order against every non-root item
// name; "#" in template is replaced by the regex's capture group.
// Grounded on original_source's src/normalizers/source_names.c's
// g_source_name_mappings table: flatbed/feeder names are normalized
// to a canonical lowercase prefix, "adf"/"automatic document feeder"
// map to "feeder", Epson's "document table" (seen on the Perfection
// v19) maps to "flatbed", and WIA's "<n>\Root\<suffix>" item paths are
// reduced to just the lowercased suffix.
var sourceNameMappings = []struct {
	regex     *regexp.Regexp
	template  string
	lowercase bool
}{
	{regexp.MustCompile(`(?i)^flatbed(.*)$`), "flatbed#", false},
	{regexp.MustCompile(`(?i)^feeder(.*)$`), "feeder#", false},
	{regexp.MustCompile(`(?i)^adf(.*)$`), "feeder#", false},
	{regexp.MustCompile(`(?i)^automatic document feeder(.*)$`), "feeder#", false},
	{regexp.MustCompile(`(?i)^document table(.*)$`), "flatbed#", false},
	{regexp.MustCompile(`^[0-9]+\\Root\\(.*)$`), "#", true},
}

// WrapSourceNames renames every non-root item according to
// sourceNameMappings, warning (not failing) when nothing matches.
func WrapSourceNames(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "source_names")
	log := logx.Default.Named("source_names")

	bw.SetItemFilter(func(item *basewrapper.Item, root bool) error {
		if root {
			return nil
		}
		name := item.Name()
		for _, m := range sourceNameMappings {
			matches := m.regex.FindStringSubmatch(name)
			if matches == nil {
				continue
			}
			suffix := ""
			if len(matches) > 1 {
				suffix = matches[1]
			}
			item.SetName(spliceSourceName(m.template, suffix, m.lowercase))
			return nil
		}
		log.Warningf("failed to recognize source name %q, leaving it as is", name)
		return nil
	})

	return bw
}

func spliceSourceName(template, suffix string, lowercase bool) string {
	if lowercase {
		suffix = strings.ToLower(suffix)
	}
	return strings.Replace(template, "#", suffix, 1)
}
