package dumb

import (
	"context"
	"testing"

	"github.com/libinsane/libinsane-go"
)

func TestNewBackendHasNoDevices(t *testing.T) {
	b := New("dumb")
	descs, err := b.ListDevices(context.Background(), libinsane.LocationAny)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(descs) != 0 {
		t.Fatalf("expected no devices, got %d", len(descs))
	}
}

func TestSetNbDevices(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(2)

	descs, err := b.ListDevices(context.Background(), libinsane.LocationAny)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(descs))
	}
	if descs[0].ID != "dumb dev0" || descs[1].ID != "dumb dev1" {
		t.Fatalf("unexpected device ids: %+v", descs)
	}
	if descs[0].Vendor != "Microsoft" || descs[0].Model != "Bugware" {
		t.Fatalf("unexpected device descriptor: %+v", descs[0])
	}

	item, err := b.GetDevice(context.Background(), DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if item.Name() != "dumb-o-jet" {
		t.Fatalf("unexpected item name %q", item.Name())
	}
	if item.Type() != libinsane.ItemDevice {
		t.Fatalf("unexpected item type %v", item.Type())
	}
}

func TestListDevicesReturnOverride(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(1)
	want := libinsane.NewError(libinsane.ErrKindIO, "injected")
	b.SetListDevicesReturn(want)

	_, err := b.ListDevices(context.Background(), libinsane.LocationAny)
	if err != want {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestGetDeviceUnknownID(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(1)
	_, err := b.GetDevice(context.Background(), "no such device")
	if err == nil {
		t.Fatal("expected an error for an unknown device id")
	}
}

func TestSourceOption(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(1)
	item, err := b.GetDevice(context.Background(), DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}

	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	if len(opts) != 1 || opts[0].Name() != "source" {
		t.Fatalf("expected a single source option, got %+v", opts)
	}

	v, err := opts[0].GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v.Str != "flatbed" {
		t.Fatalf("expected default value flatbed, got %q", v.Str)
	}

	if !opts[0].Constraint().Contains(libinsane.String("flatbed")) {
		t.Fatal("expected flatbed to satisfy the default constraint")
	}

	flags, err := opts[0].SetValue(context.Background(), libinsane.String("adf"))
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if !flags.MustReloadParams {
		t.Fatal("expected MustReloadParams after changing source")
	}

	v, err = opts[0].GetValue(context.Background())
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if v.Str != "adf" {
		t.Fatalf("expected updated value adf, got %q", v.Str)
	}
}

func TestScanResult(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(1)
	item, err := b.GetDevice(context.Background(), DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}

	dumbItem := item.(*Item)
	dumbItem.SetScanResult([]DumbRead{
		{Content: []byte("hello")},
		{Content: []byte("world")},
	})

	session, err := item.ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}

	buf := make([]byte, 5)
	n, err := session.ScanRead(context.Background(), buf)
	if err != nil {
		t.Fatalf("ScanRead: %v", err)
	}
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("unexpected first chunk: %d %q", n, buf[:n])
	}

	n, err = session.ScanRead(context.Background(), buf)
	if err != nil {
		t.Fatalf("ScanRead: %v", err)
	}
	if n != 5 || string(buf) != "world" {
		t.Fatalf("unexpected second chunk: %d %q", n, buf[:n])
	}

	if !session.EndOfPage() || !session.EndOfFeed() {
		t.Fatal("expected end of page/feed after draining all chunks")
	}
}

func TestScanReadTooSmallBufferAsksForMore(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(1)
	item, _ := b.GetDevice(context.Background(), DefaultDevID)
	dumbItem := item.(*Item)
	dumbItem.SetScanResult([]DumbRead{{Content: []byte("hello")}})

	session, err := item.ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}

	n, err := session.ScanRead(context.Background(), make([]byte, 2))
	if err != nil {
		t.Fatalf("ScanRead: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes with an undersized buffer, got %d", n)
	}

	n, err = session.ScanRead(context.Background(), make([]byte, 5))
	if err != nil {
		t.Fatalf("ScanRead: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes once the buffer is big enough, got %d", n)
	}
}

func TestScanCancel(t *testing.T) {
	b := New("dumb")
	b.SetNbDevices(1)
	item, _ := b.GetDevice(context.Background(), DefaultDevID)
	dumbItem := item.(*Item)
	dumbItem.SetScanResult([]DumbRead{{Content: []byte("hello")}})

	session, err := item.ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}
	session.Cancel()

	_, err = session.ScanRead(context.Background(), make([]byte, 5))
	if err != libinsane.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestOptSourceConstraintOverride(t *testing.T) {
	b := New("dumb")
	b.SetOptSourceConstraint([]string{"flatbed", "adf"})
	b.SetNbDevices(1)
	item, _ := b.GetDevice(context.Background(), DefaultDevID)
	opts, err := item.GetOptions(context.Background())
	if err != nil {
		t.Fatalf("GetOptions: %v", err)
	}
	c := opts[0].Constraint()
	if len(c.List) != 2 {
		t.Fatalf("expected 2 constrained values, got %d", len(c.List))
	}
}
