package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go/dumb"
)

func TestSourceNamesNormalizesADFPrefix(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{"flatbed", "adf-duplex"})

	backend := WrapSourceNames(WrapSourceNodes(d))
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(kids) != 2 {
		t.Fatalf("expected 2 children, got %d", len(kids))
	}
	if kids[0].Name() != "flatbed" {
		t.Fatalf("expected flatbed name preserved, got %q", kids[0].Name())
	}
	if kids[1].Name() != "feeder-duplex" {
		t.Fatalf("expected adf- renamed to feeder-, got %q", kids[1].Name())
	}
}

func TestSourceNamesRewritesWIARootPath(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{`0\Root\Flatbed`})

	backend := WrapSourceNames(WrapSourceNodes(d))
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(kids) != 1 {
		t.Fatalf("expected 1 child, got %d", len(kids))
	}
	if kids[0].Name() != "flatbed" {
		t.Fatalf("expected WIA item path reduced to lowercased suffix, got %q", kids[0].Name())
	}
}
