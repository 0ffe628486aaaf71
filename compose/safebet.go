package compose

import (
	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// safebetEntry is one row of safebet.c's g_implementations table: a
// wrapper name, the env var that gates it, and whether it runs when
// that env var is unset.
type safebetEntry struct {
	name             string
	env              string
	enabledByDefault bool
}

// safebetTable mirrors g_implementations verbatim, in the same order;
// the comment on dedicated_thread's row there ("dedicated thread
// wrapper should be loaded last") is why it's last here too: every
// wrapper above it must still run on the caller's own goroutine during
// construction (they only forward calls, they don't issue any),  but
// once it's in place every call from here on serializes onto the one
// goroutine it owns, so nothing should wrap *outside* it and bypass
// that goroutine.
var safebetTable = []safebetEntry{
	{"check_capabilities", "LIBINSANE_WORKAROUND_CHECK_CAPABILITIES", true},
	{"cache", "LIBINSANE_WORKAROUND_CACHE", true},
	{"lamp", "LIBINSANE_WORKAROUND_LAMP", true},
	{"opt_aliases", "LIBINSANE_NORMALIZER_OPT_ALIASES", false},
	{"opt_values", "LIBINSANE_WORKAROUND_OPT_VALUES", true},
	{"opt_names", "LIBINSANE_WORKAROUND_OPT_NAMES", true},
	{"set_opt_late", "LIBINSANE_WORKAROUND_SET_OPT_LATE", true},
	{"bmp2raw", "LIBINSANE_NORMALIZER_BMP2RAW", false},
	{"raw24", "LIBINSANE_NORMALIZER_RAW24", true},
	{"resolution", "LIBINSANE_NORMALIZER_RESOLUTION", true},
	{"clean_dev_descs", "LIBINSANE_NORMALIZER_CLEAN_DEV_DESCS", true},
	{"safe_defaults", "LIBINSANE_NORMALIZER_SAFE_DEFAULTS", true},
	{"source_nodes", "LIBINSANE_NORMALIZER_SOURCE_NODES", true},
	{"min_one_source", "LIBINSANE_NORMALIZER_MIN_ONE_SOURCE", true},
	{"source_names", "LIBINSANE_NORMALIZER_SOURCE_NAMES", true},
	{"source_types", "LIBINSANE_NORMALIZER_SOURCE_TYPES", true},
	{"one_page_flatbed", "LIBINSANE_WORKAROUND_ONE_PAGE_FLATBED", true},
	{"all_opts_on_all_sources", "LIBINSANE_NORMALIZER_ALL_OPTS_ON_ALL_SOURCES", true},
	{"dedicated_thread", "LIBINSANE_WORKAROUND_DEDICATED_THREAD", true},
}

// envNameForWrapper returns the LIBINSANE_* env var name a config file
// override should check for a given wrapper: safebetTable's own name
// when the wrapper is one of the defaults, otherwise a best-effort
// LIBINSANE_<NAME> for wrappers registered outside this module.
func envNameForWrapper(name string) string {
	for _, entry := range safebetTable {
		if entry.name == name {
			return entry.env
		}
	}
	return "LIBINSANE_" + envUpper(name)
}

// baseOrder mirrors safebet.c's base-selection block: try each base in
// turn, first one whose env var is on (and whose factory is actually
// registered) wins. dumb is last and, per LIBINSANE_DUMB's own
// enabled-by-default rule, only defaults to on when nothing picked
// before it did (handled in Safebet below, not in this table, since
// that default depends on what ran, not a fixed bool).
var baseOrder = []string{"sane", "twain", "wia_automation", "wia_ll", "dumb"}

// Safebet builds the default pipeline: a base backend (§1's "whichever
// real backend is registered and enabled, falling back to dumb") with
// every wrapper in safebetTable applied in order, each gated by its own
// env var via env.go's envBool. Grounded on lis_safebet, minus the
// multiplexer step (lis_api_multiplexer over several concurrently-usable
// bases): the original builds it to let Sane and WIA coexist on the same
// host, but this port's registry only ever has one base binding per
// process in practice, so Safebet picks the first enabled, registered
// base instead of fanning out to a multiplexer nothing in this pack
// would exercise.
func Safebet() (libinsane.Backend, error) {
	log := logx.Default.Named("compose")
	log.Infof("initializing base implementation...")

	var backend libinsane.Backend
	var chosen string
	for _, name := range baseOrder {
		defaultOn := name != "dumb"
		if !envBool("LIBINSANE_"+envUpper(name), defaultOn) {
			continue
		}
		factory, ok := lookupBase(name)
		if !ok {
			continue
		}
		b, err := factory()
		if err != nil {
			return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "safebet:"+name, err)
		}
		backend, chosen = b, name
		break
	}
	if backend == nil {
		// Nothing enabled or registered: fall back to dumb regardless of
		// LIBINSANE_DUMB, the same way the original only checks
		// LIBINSANE_DUMB with a default of "1 if nb_impls == 0".
		factory, ok := lookupBase("dumb")
		if !ok {
			return nil, libinsane.NewError(libinsane.ErrKindNotImplemented, "safebet: no base backend registered")
		}
		b, err := factory()
		if err != nil {
			return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "safebet:dumb", err)
		}
		backend, chosen = b, "dumb"
	}
	log.Infof("base implementation: %s", chosen)

	log.Infof("initializing workarounds & normalizers...")
	applied := 0
	for _, entry := range safebetTable {
		on := envBool(entry.env, entry.enabledByDefault)
		log.Infof("%s=%v", entry.env, on)
		if !on {
			continue
		}
		factory, ok := lookupWrapper(entry.name)
		if !ok {
			return nil, errUnknownWrapper(entry.name)
		}
		next, err := factory(backend)
		if err != nil {
			return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "safebet:"+entry.name, err)
		}
		backend = next
		applied++
	}
	log.Infof("%d workarounds & normalizers initialized", applied)

	return backend, nil
}
