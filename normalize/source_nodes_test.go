package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/dumb"
)

func TestSourceNodesSynthesizesChildrenFromSourceOption(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{"flatbed", "feeder"})

	backend := WrapSourceNodes(d)
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}

	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(kids) != 2 {
		t.Fatalf("expected 2 synthesized sources, got %d", len(kids))
	}
	if kids[0].Name() != "flatbed" || kids[1].Name() != "feeder" {
		t.Fatalf("unexpected source names: %q, %q", kids[0].Name(), kids[1].Name())
	}

	// Selecting a child applies its value to the underlying "source"
	// option before returning its (empty) option list.
	if _, err := kids[1].GetOptions(context.Background()); err != nil {
		t.Fatalf("GetOptions on source: %v", err)
	}
	rootOpts, err := root.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions on root: %v", err)
	}
	src := findOption(rootOpts, libinsane.OptNameSource)
	if src == nil {
		t.Fatal("expected a source option on the root")
	}
	v, err := src.GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v.Str != "feeder" {
		t.Fatalf("expected source set to feeder, got %q", v.Str)
	}
}

func TestSourceNodesSynthesizesSingleSourceWhenNoChildrenExist(t *testing.T) {
	// The dumb fixture never reports pre-existing children on its
	// own, so this checks that a one-value source list still yields
	// exactly one synthesized child; passing existing children
	// through is not exercised here.
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{"flatbed"})

	backend := WrapSourceNodes(d)
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}
	if len(kids) != 1 || kids[0].Name() != "flatbed" {
		t.Fatalf("unexpected children: %+v", kids)
	}
}

func TestSourceNodesEnforcesDeviceBusyAcrossSources(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	d.SetOptSourceConstraint([]string{"flatbed", "feeder"})
	item, _ := d.GetDevice(context.Background(), dumb.DefaultDevID)
	item.(*dumb.Item).SetScanResult([]dumb.DumbRead{{Content: []byte{1, 2, 3}}})

	backend := WrapSourceNodes(d)
	root, err := backend.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	kids, err := root.GetChildren(context.Background())
	if err != nil {
		t.Fatalf("GetChildren: %v", err)
	}

	sess, err := kids[0].ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}
	if _, err := kids[1].ScanStart(context.Background()); !libinsane.IsError(err) {
		t.Fatal("expected DeviceBusy from a second concurrent ScanStart")
	}
	sess.Cancel()
	if _, err := kids[1].ScanStart(context.Background()); err != nil {
		t.Fatalf("expected ScanStart to succeed again after Cancel: %v", err)
	}
}
