package compose

import (
	"os"
	"strconv"
	"strings"
)

// envBool mirrors safebet.c's lis_getenv: an env var is "on" unless
// it's set and parses to a falsy value (0, false, off, no — case
// insensitive), and "unset" means defaultOn. The original only ever
// checks for the literal string "0"; this is slightly more permissive
// so a config file's `enabled = false` (config.go) and an env var
// agree on what counts as off.
func envBool(name string, defaultOn bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return defaultOn
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "off", "no":
		return false
	case "1", "true", "on", "yes", "":
		return true
	}
	// Anything else: best effort via strconv, falling back to "on" the
	// way an unparseable-but-non-"0" value behaved in the C source
	// (atoi("garbage") == 0 would actually disable it there; Go's
	// ParseBool is stricter, so unparseable values keep the var's
	// presence meaning "the caller cared enough to set it to something").
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// envUpper turns a registry name like "source_nodes" into the
// SOURCE_NODES suffix safebet.go appends to "LIBINSANE_" for base
// backends (LIBINSANE_SANE, LIBINSANE_WIA_LL, ...).
func envUpper(name string) string {
	return strings.ToUpper(name)
}
