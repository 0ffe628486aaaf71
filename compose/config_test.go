package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/libinsane/libinsane-go"
)

func TestLoadConfigDecodesWrapperList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libinsane.toml")
	doc := `
base = "dumb"

[[wrapper]]
name = "resolution"

[[wrapper]]
name = "cache"
enabled = false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Base != "dumb" {
		t.Fatalf("unexpected base: %q", cfg.Base)
	}
	if len(cfg.Wrappers) != 2 {
		t.Fatalf("expected 2 wrapper entries, got %d", len(cfg.Wrappers))
	}
	if !cfg.Wrappers[0].enabled() {
		t.Fatal("resolution should default to enabled")
	}
	if cfg.Wrappers[1].enabled() {
		t.Fatal("cache was explicitly disabled")
	}
}

func TestBuildSkipsDisabledWrapper(t *testing.T) {
	cfg := &Config{
		Base: "dumb",
		Wrappers: []WrapperConfig{
			{Name: "resolution"},
			{Name: "cache", Enabled: boolPtr(false)},
		},
	}

	backend, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer backend.Cleanup()

	if _, err := backend.ListDevices(context.Background(), libinsane.LocationAny); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
}

func TestBuildRejectsUnknownWrapperName(t *testing.T) {
	cfg := &Config{
		Base:     "dumb",
		Wrappers: []WrapperConfig{{Name: "does_not_exist"}},
	}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected an error for an unregistered wrapper name")
	}
}

func TestFindConfigReturnsNilWithoutError(t *testing.T) {
	// ConfigSearchPaths' last entry is "./libinsane.toml"; running the
	// test from a scratch temp dir ensures none of the search paths
	// resolve to a real file.
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	t.Setenv("HOME", dir)

	cfg, err := FindConfig()
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected no config file found, got %+v", cfg)
	}
}

func boolPtr(b bool) *bool { return &b }
