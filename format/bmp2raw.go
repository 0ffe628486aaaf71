package format

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapBMP2Raw installs the bmp2raw normalizer on top of backend: when
// the wrapped scan session reports format BMP, it reads the header
// (and any palette/surplus bytes up to offset_to_data) at scan_start
// and presents a canonical RAW_RGB_24 session instead. Any other
// format passes through untouched, mirroring bmp2raw_scan_start's
// "Unexpected image format: %d. Returning it as is" branch.
//
// Grounded on original_source's src/normalizers/bmp2raw.c: the same
// on_scan_start hook (no on_close_item hook is installed), the same
// delayed-error-on-next-
// scan_read behavior (read_err), and the same re-parse-on-page-
// boundary behavior (read_bmp_header called again from end_of_page
// unless end_of_feed). Unlike the C source — which treats the BMP
// body as an opaque 24-bit blob and never touches the palette — this
// wrapper decodes 1/8/24-bit pixels per spec, since the C source
// never implemented non-24-bit BMP bodies at all.
func WrapBMP2Raw(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "bmp2raw")
	log := logx.Default.Named("bmp2raw")

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

		if params.Format != libinsane.ImageFormatBMP {
			log.Infof("unexpected image format %s, returning as is", params.Format)
			return wrapped, nil
		}

		s := &bmpSession{wrapped: wrapped, log: log}
		if err := s.loadPage(context.Background()); err != nil {
			wrapped.Cancel()
			return nil, err
		}
		return s, nil
	})

	return bw
}

type bmpSession struct {
	wrapped libinsane.ScanSession
	log     *logx.Logger

	width, height int
	buf           []byte
	pos           int
	readErr       error
}

// readExact drains exactly n bytes from s.wrapped, mirroring
// bmp2raw.c's local scan_read helper.
func readExact(ctx context.Context, s libinsane.ScanSession, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		k, err := s.ScanRead(ctx, buf[got:])
		if err != nil {
			return nil, err
		}
		if k == 0 && s.EndOfPage() {
			return nil, libinsane.NewError(libinsane.ErrKindImgFormatNotSupported, "format.bmp2raw: truncated BMP header")
		}
		got += k
	}
	return buf, nil
}

func (s *bmpSession) loadPage(ctx context.Context) error {
	headerBuf, err := readExact(ctx, s.wrapped, HeaderSize)
	if err != nil {
		return err
	}
	h, err := ParseBMPHeader(headerBuf)
	if err != nil {
		return err
	}

	extra := int(h.OffsetToData) - HeaderSize
	paletteBytes := int(h.NbColorsInPalette) * 4
	if paletteBytes > extra {
		paletteBytes = extra
	}

	var palette []RGB
	if paletteBytes > 0 {
		raw, err := readExact(ctx, s.wrapped, paletteBytes)
		if err != nil {
			return err
		}
		palette, err = DecodePalette(raw, paletteBytes/4)
		if err != nil {
			return err
		}
	}

	surplus := extra - paletteBytes
	if surplus > 0 {
		s.log.Infof("extra BMP header: %d B", surplus)
		if _, err := readExact(ctx, s.wrapped, surplus); err != nil {
			return err
		}
	}

	width := int(h.Width)
	height := h.AbsHeight()
	stride := h.RowStride()

	raw, err := readExact(ctx, s.wrapped, stride*height)
	if err != nil {
		return err
	}

	rows := make([][]byte, height)
	for y := 0; y < height; y++ {
		row := raw[y*stride : (y+1)*stride]
		switch h.BitsPerPixel {
		case 24:
			rows[y] = DecodeRow24(row, width)
		case 8:
			rows[y] = DecodeRow8(row, width, palette)
		case 1:
			rows[y] = DecodeRow1(row, width, palette)
		}
	}

	if !h.TopDown() {
		for l, r := 0, len(rows)-1; l < r; l, r = l+1, r-1 {
			rows[l], rows[r] = rows[r], rows[l]
		}
	}

	buf := make([]byte, 0, width*height*3)
	for _, row := range rows {
		buf = append(buf, row...)
	}

	s.width, s.height = width, height
	s.buf = buf
	s.pos = 0
	return nil
}

func (s *bmpSession) GetScanParameters() (libinsane.ScanParameters, error) {
	return libinsane.ScanParameters{
		Format:    libinsane.ImageFormatRawRGB24,
		Width:     s.width,
		Height:    s.height,
		ImageSize: s.width * s.height * 3,
	}, nil
}

func (s *bmpSession) EndOfPage() bool { return s.pos >= len(s.buf) }

func (s *bmpSession) EndOfFeed() bool { return s.wrapped.EndOfFeed() }

func (s *bmpSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	if s.readErr != nil {
		s.log.Warningf("delayed error: %v", s.readErr)
		return 0, s.readErr
	}

	if s.pos >= len(s.buf) && !s.EndOfFeed() {
		if err := s.loadPage(ctx); err != nil {
			s.readErr = err
			return 0, err
		}
	}

	n := copy(buf, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

func (s *bmpSession) Cancel() { s.wrapped.Cancel() }
