package format

import (
	"context"
	"image/color"
	"testing"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/dumb"
)

func TestReadPageBuildsFrame(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	item, err := d.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	di := item.(*dumb.Item)
	content := []byte{
		0x01, 0x02, 0x03,
		0x04, 0x05, 0x06,
	}
	di.SetScanParameters(libinsane.ScanParameters{
		Format: libinsane.ImageFormatRawRGB24, Width: 2, Height: 1, ImageSize: len(content),
	})
	di.SetScanResult([]dumb.DumbRead{{Content: content}})

	session, err := item.ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}
	frame, err := ReadPage(context.Background(), session)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if frame.Width != 2 || frame.Height != 1 {
		t.Fatalf("unexpected dims: %dx%d", frame.Width, frame.Height)
	}
	if c := frame.At(0, 0); c != (color.RGBA{R: 1, G: 2, B: 3, A: 0xFF}) {
		t.Fatalf("unexpected pixel 0: %+v", c)
	}
	if c := frame.At(1, 0); c != (color.RGBA{R: 4, G: 5, B: 6, A: 0xFF}) {
		t.Fatalf("unexpected pixel 1: %+v", c)
	}
}

func TestReadPageRejectsNonRawFormat(t *testing.T) {
	d := dumb.New("dumb")
	d.SetNbDevices(1)
	item, err := d.GetDevice(context.Background(), dumb.DefaultDevID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	di := item.(*dumb.Item)
	di.SetScanParameters(libinsane.ScanParameters{Format: libinsane.ImageFormatBMP})
	di.SetScanResult([]dumb.DumbRead{{Content: []byte{0}}})

	session, err := item.ScanStart(context.Background())
	if err != nil {
		t.Fatalf("ScanStart: %v", err)
	}
	if _, err := ReadPage(context.Background(), session); err == nil {
		t.Fatal("expected an error for a non-raw_rgb_24 session")
	}
}
