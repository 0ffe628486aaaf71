package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/dumb"
)

func TestSourceTypesClassifiesRootAsDevice(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)

	backend := WrapSourceTypes(d)
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if root.Type() != libinsane.ItemDevice {
		t.Fatalf("expected root to be classified as a device, got %s", root.Type())
	}
}

func TestSourceTypesClassifiesChildrenByName(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{"flatbed", "Automatic Document Feeder"})

	backend := WrapSourceTypes(WrapSourceNodes(d))
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
	if kids[0].Type() != libinsane.ItemFlatbed {
		t.Fatalf("expected flatbed classification, got %s", kids[0].Type())
	}
	if kids[1].Type() != libinsane.ItemAdf {
		t.Fatalf("expected ADF classification, got %s", kids[1].Type())
	}
}
