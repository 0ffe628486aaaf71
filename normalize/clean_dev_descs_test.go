package normalize

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/dumb"
)

func TestCleanDevDescsShortensManufacturer(t *testing.T) {
	d := dumb.New("dumb")
	d.SetDevDescs([]libinsane.DeviceDescriptor{
		{ID: "dev0", Vendor: "Hewlett-Packard", Model: "OfficeJet_4500"},
	})

	backend := WrapCleanDevDescs(d)
	descs, err := backend.ListDevices(context.Background(), libinsane.LocationAny)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(descs) != 1 {
		t.Fatalf("expected 1 device, got %d", len(descs))
	}
	if descs[0].Vendor != "HP" {
		t.Fatalf("expected vendor shortened to HP, got %q", descs[0].Vendor)
	}
	if descs[0].Model != "OfficeJet 4500" {
		t.Fatalf("expected underscores replaced with spaces, got %q", descs[0].Model)
	}
}

func TestCleanDevDescsStripsVendorPrefixFromModel(t *testing.T) {
	// filter_manufacturer runs after shorten_manufacturer, so it only
	// strips a prefix that matches the (possibly already-shortened)
	// vendor string, not the pre-shortening original.
	d := dumb.New("dumb")
	d.SetDevDescs([]libinsane.DeviceDescriptor{
		{ID: "dev0", Vendor: "Epson", Model: "Epson_Perfection_V19"},
	})

	backend := WrapCleanDevDescs(d)
	descs, err := backend.ListDevices(context.Background(), libinsane.LocationAny)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if descs[0].Model != "Perfection V19" {
		t.Fatalf("expected vendor prefix stripped from model, got %q", descs[0].Model)
	}
}

func TestCleanDevDescsLeavesUnrelatedNamesAlone(t *testing.T) {
	d := dumb.New("dumb")
	d.SetDevDescs([]libinsane.DeviceDescriptor{
		{ID: "dev0", Vendor: "Canon", Model: "LiDE 220"},
	})

	backend := WrapCleanDevDescs(d)
	descs, err := backend.ListDevices(context.Background(), libinsane.LocationAny)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if descs[0].Vendor != "Canon" || descs[0].Model != "LiDE 220" {
		t.Fatalf("unexpected rewrite: %+v", descs[0])
	}
}
