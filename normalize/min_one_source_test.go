package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/dumb"
)

func TestMinOneSourceFakesAChildWhenNoneExist(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)

	backend := WrapMinOneSource(d)
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(kids) != 1 {
		t.Fatalf("expected exactly one faked source, got %d", len(kids))
	}
	if kids[0].Name() != libinsane.OptValueSourceADF {
		t.Fatalf("unexpected faked source name: %q", kids[0].Name())
	}
	if kids[0].Type() != root.Type() {
		t.Fatalf("expected the faked source to carry the root's own type, got %v", kids[0].Type())
	}

	opts, err := kids[0].GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions on faked source: %v", err)
	}
	if findOption(opts, libinsane.OptNameSource) == nil {
		t.Fatal("expected the faked source to forward the root's options")
	}
}

func TestMinOneSourceLeavesRealChildrenAlone(t *testing.T) {
	// Composed on top of source_nodes so the synthesized sources are
	// what min_one_source sees; since they're non-empty, it should
	// pass them through untouched.
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{"flatbed", "feeder"})

	backend := WrapMinOneSource(WrapSourceNodes(d))
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(kids) != 2 {
		t.Fatalf("expected the 2 sources synthesized upstream, got %d", len(kids))
	}
}
