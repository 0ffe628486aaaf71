package format

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
)

// WrapRaw24 installs the raw24 normalizer: a session reporting
// GRAYSCALE_8 or BW_1 is presented to the caller as RAW_RGB_24,
// expanding each byte (grayscale) or bit (black & white) to an RGB
// triple as it streams through ScanRead. RAW_RGB_24 sessions pass
// through untouched.
//
// Grounded on original_source's src/normalizers/raw24.c:
// lis_raw24_get_scan_parameters's format/image_size rewrite,
// unpack_8_to_24/unpack_1_to_24's backwards-iteration in-place
// expansion, and raw8_scan_read/raw1_scan_read's "ask for a bigger
// buffer" convention on an undersized destination.
func WrapRaw24(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "raw24")

	bw.SetOnScanStart(func(item *basewrapper.Item) (libinsane.ScanSession, error) {
		wrapped, err := item.WrappedScanStart(context.Background())
		if err != nil {
			return nil, err
		}

		params, err := wrapped.GetScanParameters()
		if err != nil {
			wrapped.Cancel()
			return nil, err
		}

		switch params.Format {
		case libinsane.ImageFormatGrayscale8:
			return &raw8Session{wrapped: wrapped}, nil
		case libinsane.ImageFormatBW1:
			return &raw1Session{wrapped: wrapped}, nil
		default:
			return wrapped, nil
		}
	})

	return bw
}

// unpack8To24 triples each of the n grayscale bytes at the front of
// buf into RGB triples occupying the first n*3 bytes of buf. buf must
// be at least n*3 bytes long. Like the original, this walks backwards
// so a byte is never overwritten before it has been expanded.
func unpack8To24(buf []byte, n int) {
	for i := n - 1; i >= 0; i-- {
		v := buf[i]
		buf[i*3], buf[i*3+1], buf[i*3+2] = v, v, v
	}
}

// unpack1To24 expands n bits (MSB first, packed 8 per byte at the
// front of buf) into n RGB triples occupying the first n*3 bytes of
// buf. A set bit becomes black, a clear bit becomes white, matching
// BW_1's polarity. buf must be at least n*3 bytes long.
func unpack1To24(buf []byte, n int) {
	for i := n - 1; i >= 0; i-- {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		bit := (buf[byteIdx] >> uint(bitIdx)) & 1

		var v byte = 0xFF
		if bit == 1 {
			v = 0x00
		}
		buf[i*3], buf[i*3+1], buf[i*3+2] = v, v, v
	}
}

type raw8Session struct {
	wrapped libinsane.ScanSession
}

func (s *raw8Session) GetScanParameters() (libinsane.ScanParameters, error) {
	p, err := s.wrapped.GetScanParameters()
	if err != nil {
		return p, err
	}
	p.Format = libinsane.ImageFormatRawRGB24
	p.ImageSize *= 3
	return p, nil
}

func (s *raw8Session) EndOfPage() bool { return s.wrapped.EndOfPage() }
func (s *raw8Session) EndOfFeed() bool { return s.wrapped.EndOfFeed() }

func (s *raw8Session) ScanRead(ctx context.Context, buf []byte) (int, error) {
	if len(buf) < 3 {
		return 0, nil
	}
	n := len(buf) / 3
	got, err := s.wrapped.ScanRead(ctx, buf[:n])
	if err != nil {
		return 0, err
	}
	if got == 0 {
		return 0, nil
	}
	unpack8To24(buf, got)
	return got * 3, nil
}

func (s *raw8Session) Cancel() { s.wrapped.Cancel() }

type raw1Session struct {
	wrapped libinsane.ScanSession
}

func (s *raw1Session) GetScanParameters() (libinsane.ScanParameters, error) {
	p, err := s.wrapped.GetScanParameters()
	if err != nil {
		return p, err
	}
	p.Format = libinsane.ImageFormatRawRGB24
	p.ImageSize *= 8 * 3
	return p, nil
}

func (s *raw1Session) EndOfPage() bool { return s.wrapped.EndOfPage() }
func (s *raw1Session) EndOfFeed() bool { return s.wrapped.EndOfFeed() }

func (s *raw1Session) ScanRead(ctx context.Context, buf []byte) (int, error) {
	const pixelsPerByte = 8
	const outBytesPerByte = pixelsPerByte * 3

	usable := (len(buf) / outBytesPerByte) * outBytesPerByte
	if usable < outBytesPerByte {
		return 0, nil
	}

	nbBytes := usable / outBytesPerByte
	got, err := s.wrapped.ScanRead(ctx, buf[:nbBytes])
	if err != nil {
		return 0, err
	}
	if got == 0 {
		return 0, nil
	}

	unpack1To24(buf, got*pixelsPerByte)
	return got * outBytesPerByte, nil
}

func (s *raw1Session) Cancel() { s.wrapped.Cancel() }
