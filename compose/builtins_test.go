package compose

import "testing"

// TestDedicatedWrappersAreRegistered guards against the registry gap a
// prior revision had: dedicated_thread and dedicated_process must both
// resolve through the same lookup Safebet/Str2Impls/Build use, even
// though dedicated_process isn't in safebetTable and so needs a test
// of its own to prove it's reachable at all. It doesn't drive
// WrapDedicatedProcess's actual os/exec re-exec (see isolate/
// process_test.go for why that's exercised at the protocol level
// instead), only that the name resolves to a registered factory.
func TestDedicatedWrappersAreRegistered(t *testing.T) {
	for _, name := range []string{"dedicated_thread", "dedicated_process"} {
		if _, ok := lookupWrapper(name); !ok {
			t.Fatalf("expected %q to be registered", name)
		}
	}
}

func TestStr2ImplsBuildsDedicatedThreadPipeline(t *testing.T) {
	backend, err := Str2Impls("dumb,dedicated_thread")
	if err != nil {
		t.Fatalf("Str2Impls: %v", err)
	}
	defer backend.Cleanup()

	if backend.BaseName() != "dumb" {
		t.Fatalf("unexpected base: %q", backend.BaseName())
	}
}
