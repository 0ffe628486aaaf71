package format

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/libinsane/libinsane-go"
)

// Frame holds one fully-read RAW_RGB_24 page: width/height plus the
// packed pixel bytes (3 per pixel, no row padding). It implements
// image.Image so it can be handed directly to png.Encode,
// jpeg.Encode, tiff.Encode and similar encoders. Adapted from
// tjgq-sane's Frame/Image split, but fixed to the one canonical
// format every normalizer in this package converges on, instead of
// tracking SANE's five wire frame types.
type Frame struct {
	Width, Height int
	Pix           []byte
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) At(x, y int) color.Color {
	i := (y*f.Width + x) * 3
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 0xFF}
}

var _ image.Image = (*Frame)(nil)

// ReadPage drains one full page from an open RAW_RGB_24 session into a
// Frame, growing its read buffer on the "buffer too small, ask again"
// signal every session in this module (and the dumb fixture) honors.
// It stops at EndOfPage.
func ReadPage(ctx context.Context, session libinsane.ScanSession) (*Frame, error) {
	const op = "format.ReadPage"

	params, err := session.GetScanParameters()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindIO, op, err)
	}
	if params.Format != libinsane.ImageFormatRawRGB24 {
		return nil, libinsane.WrapError(libinsane.ErrKindImgFormatNotSupported, op,
			fmt.Errorf("unexpected format %s, expected raw_rgb_24", params.Format))
	}

	out := make([]byte, 0, params.ImageSize)
	bufSize := 4096
	for !session.EndOfPage() {
		buf := make([]byte, bufSize)
		n, err := session.ScanRead(ctx, buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			bufSize *= 2
			continue
		}
		out = append(out, buf[:n]...)
	}

	return &Frame{Width: params.Width, Height: params.Height, Pix: out}, nil
}
