package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/libinsane/libinsane-go"
)

// Config is an alternative, explicit pipeline description to Safebet's
// env-driven defaults: which base to use and which wrappers to layer
// on top, in order. Grounded on `mstrhakr-printmaster/common/config`'s
// direct use of github.com/BurntSushi/toml for exactly this shape of
// problem (a small, human-edited settings file), generalized from that
// package's flat key/value config to the ordered wrapper list this
// pipeline needs.
type Config struct {
	Base     string          `toml:"base"`
	Wrappers []WrapperConfig `toml:"wrapper"`
}

// WrapperConfig is one entry of Config.Wrappers. Name must be a
// registered wrapper name (see builtins.go); Enabled defaults to true
// when the TOML table for a wrapper is present at all (omitting a
// wrapper from the list entirely is how a config file leaves it out,
// the same as Safebet's default-enabled table: being named is opting
// in, Enabled=false is an explicit override).
type WrapperConfig struct {
	Name    string `toml:"name"`
	Enabled *bool  `toml:"enabled"`
}

func (w WrapperConfig) enabled() bool {
	if w.Enabled == nil {
		return true
	}
	return *w.Enabled
}

// ConfigSearchPaths returns the platform-appropriate places to look for
// a libinsane.toml, in priority order, adapted from printmaster's
// GetConfigSearchPaths (system directory, user config directory,
// executable directory, current directory) with the printer-fleet
// component/service split stripped out: this is a single in-process
// library, not a daemon with a "server"/"agent" identity to branch on.
func ConfigSearchPaths() []string {
	const filename = "libinsane.toml"
	var paths []string

	switch runtime.GOOS {
	case "windows":
		paths = append(paths, filepath.Join(os.Getenv("ProgramData"), "libinsane", filename))
	case "darwin":
		paths = append(paths, filepath.Join("/Library/Application Support", "libinsane", filename))
	default:
		paths = append(paths, filepath.Join("/etc/libinsane", filename))
	}

	if home, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			paths = append(paths, filepath.Join(home, "AppData", "Local", "libinsane", filename))
		case "darwin":
			paths = append(paths, filepath.Join(home, "Library", "Application Support", "libinsane", filename))
		default:
			paths = append(paths, filepath.Join(home, ".config", "libinsane", filename))
		}
	}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), filename))
	}
	paths = append(paths, filepath.Join(".", filename))

	return paths
}

// FindConfig reads the first config file found along
// ConfigSearchPaths, or returns (nil, nil) if none exists: a missing
// config file is not an error, it just means Safebet's env-driven
// defaults apply untouched.
func FindConfig() (*Config, error) {
	for _, path := range ConfigSearchPaths() {
		cfg, err := LoadConfig(path)
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("compose: reading %s: %w", path, err)
		}
	}
	return nil, nil
}

// LoadConfig decodes a TOML config file at path.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Build instantiates cfg's base and wrapper chain, the explicit
// counterpart to Safebet: every wrapper named in cfg.Wrappers runs
// unless its entry sets enabled = false or its own LIBINSANE_<NAME>
// env var is explicitly off, matching
// §2's "env vars still take precedence" rule over the config file.
func Build(cfg *Config) (libinsane.Backend, error) {
	baseFactory, ok := lookupBase(cfg.Base)
	if !ok {
		return nil, errUnknownBase(cfg.Base)
	}
	backend, err := baseFactory()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "config:"+cfg.Base, err)
	}

	for _, w := range cfg.Wrappers {
		if !w.enabled() {
			continue
		}
		if !envBool(envNameForWrapper(w.Name), true) {
			continue
		}
		factory, ok := lookupWrapper(w.Name)
		if !ok {
			return nil, errUnknownWrapper(w.Name)
		}
		backend, err = factory(backend)
		if err != nil {
			return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "config:"+w.Name, err)
		}
	}

	return backend, nil
}
