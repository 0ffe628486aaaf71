package compose

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

func TestSafebetFallsBackToDumbWithNoOtherBaseRegistered(t *testing.T) {
	backend, err := Safebet()
	if err != nil {
		t.Fatalf("Safebet: %v", err)
	}
	defer backend.Cleanup()

	if backend.BaseName() != "dumb" {
		t.Fatalf("expected dumb to win by default, got %q", backend.BaseName())
	}

	if _, err := backend.ListDevices(context.Background(), libinsane.LocationAny); err != nil {
		t.Fatalf("ListDevices on a safebet-composed backend: %v", err)
	}
}

func TestSafebetHonorsDisabledEnvVar(t *testing.T) {
	t.Setenv("LIBINSANE_WORKAROUND_CACHE", "0")

	backend, err := Safebet()
	if err != nil {
		t.Fatalf("Safebet: %v", err)
	}
	defer backend.Cleanup()

	// Nothing in this module exposes "is cache wrapped" directly; the
	// meaningful check is that composition didn't error and still
	// produced a working pipeline with that one wrapper skipped.
	if _, err := backend.ListDevices(context.Background(), libinsane.LocationAny); err != nil {
		t.Fatalf("ListDevices with cache disabled: %v", err)
	}
}

func TestStr2ImplsBuildsNamedPipeline(t *testing.T) {
	backend, err := Str2Impls("dumb,resolution,clean_dev_descs")
	if err != nil {
		t.Fatalf("Str2Impls: %v", err)
	}
	defer backend.Cleanup()

	if backend.BaseName() != "dumb" {
		t.Fatalf("unexpected base: %q", backend.BaseName())
	}
}

func TestStr2ImplsRejectsUnknownBase(t *testing.T) {
	if _, err := Str2Impls("not_a_real_base"); err == nil {
		t.Fatal("expected an error for an unregistered base")
	}
}

func TestStr2ImplsRejectsUnknownWrapper(t *testing.T) {
	if _, err := Str2Impls("dumb,not_a_real_wrapper"); err == nil {
		t.Fatal("expected an error for an unregistered wrapper")
	}
}
