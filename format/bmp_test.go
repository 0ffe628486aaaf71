package format

import (
	"encoding/binary"
	"testing"
)

func buildHeader(width, height int32, bpp uint16, offsetToData, nbColors uint32) []byte {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1] = 'B', 'M'
	le := binary.LittleEndian
	le.PutUint32(buf[2:6], uint32(HeaderSize)) // file size filled in by caller if needed
	le.PutUint32(buf[10:14], offsetToData)
	le.PutUint32(buf[14:18], DIBHeaderSize)
	le.PutUint32(buf[18:22], uint32(width))
	le.PutUint32(buf[22:26], uint32(height))
	le.PutUint16(buf[26:28], 1)
	le.PutUint16(buf[28:30], bpp)
	le.PutUint32(buf[30:34], 0)
	le.PutUint32(buf[34:38], 0)
	le.PutUint32(buf[46:50], nbColors)
	return buf
}

func TestParseBMPHeaderValid24Bit(t *testing.T) {
	buf := buildHeader(4, -3, 24, HeaderSize, 0)
	h, err := ParseBMPHeader(buf)
	if err != nil {
		t.Fatalf("ParseBMPHeader: %v", err)
	}
	if h.Width != 4 || h.Height != -3 {
		t.Fatalf("unexpected dims: %+v", h)
	}
	if !h.TopDown() {
		t.Fatal("expected negative height to mean top-down")
	}
	if h.AbsHeight() != 3 {
		t.Fatalf("expected abs height 3, got %d", h.AbsHeight())
	}
}

func TestParseBMPHeaderRejectsBadMagic(t *testing.T) {
	buf := buildHeader(4, 3, 24, HeaderSize, 0)
	buf[0] = 'X'
	if _, err := ParseBMPHeader(buf); err == nil {
		t.Fatal("expected error on bad magic")
	}
}

func TestParseBMPHeaderRejectsBadDepth(t *testing.T) {
	buf := buildHeader(4, 3, 16, HeaderSize, 0)
	if _, err := ParseBMPHeader(buf); err == nil {
		t.Fatal("expected error on unsupported bit depth")
	}
}

func TestParseBMPHeaderRejectsShortBuffer(t *testing.T) {
	if _, err := ParseBMPHeader(make([]byte, 10)); err == nil {
		t.Fatal("expected error on short header")
	}
}

func TestRowStridePadsTo4Bytes(t *testing.T) {
	h := &BMPHeader{Width: 5, BitsPerPixel: 24}
	if got := h.RowStride(); got != 16 {
		t.Fatalf("5px*3B=15, padded to 16, got %d", got)
	}
	h8 := &BMPHeader{Width: 5, BitsPerPixel: 8}
	if got := h8.RowStride(); got != 8 {
		t.Fatalf("5B padded to 8, got %d", got)
	}
	h1 := &BMPHeader{Width: 10, BitsPerPixel: 1}
	if got := h1.RowStride(); got != 4 {
		t.Fatalf("10 bits = 2B padded to 4, got %d", got)
	}
}

func TestDecodeRow24SwapsBGRToRGB(t *testing.T) {
	row := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06} // BGR, BGR
	out := DecodeRow24(row, 2)
	want := []byte{0x03, 0x02, 0x01, 0x06, 0x05, 0x04}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestDecodeRow8UsesPalette(t *testing.T) {
	palette := []RGB{{0x10, 0x20, 0x30}, {0x40, 0x50, 0x60}}
	row := []byte{1, 0}
	out := DecodeRow8(row, 2, palette)
	want := []byte{0x40, 0x50, 0x60, 0x10, 0x20, 0x30}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestDecodeRow8FallsBackToGrayscaleWithoutPalette(t *testing.T) {
	row := []byte{0x7F}
	out := DecodeRow8(row, 1, nil)
	want := []byte{0x7F, 0x7F, 0x7F}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestDecodeRow1WithoutPaletteIsBlackAndWhite(t *testing.T) {
	row := []byte{0b10100000}
	out := DecodeRow1(row, 3, nil)
	want := []byte{
		0x00, 0x00, 0x00, // bit 1 -> black
		0xFF, 0xFF, 0xFF, // bit 0 -> white
		0x00, 0x00, 0x00, // bit 1 -> black
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestDecodeRow1WithPaletteUsesFirstTwoEntries(t *testing.T) {
	palette := []RGB{{0xAA, 0xAA, 0xAA}, {0xBB, 0xBB, 0xBB}}
	row := []byte{0b01000000}
	out := DecodeRow1(row, 2, palette)
	want := []byte{
		0xBB, 0xBB, 0xBB, // bit 0 -> palette[1]
		0xAA, 0xAA, 0xAA, // bit 1 -> palette[0]
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, out[i], want[i])
		}
	}
}

func TestDecodePaletteDropsAlpha(t *testing.T) {
	raw := []byte{0x30, 0x20, 0x10, 0xFF, 0x60, 0x50, 0x40, 0x00}
	out, err := DecodePalette(raw, 2)
	if err != nil {
		t.Fatalf("DecodePalette: %v", err)
	}
	if out[0] != (RGB{0x10, 0x20, 0x30}) || out[1] != (RGB{0x40, 0x50, 0x60}) {
		t.Fatalf("unexpected palette: %+v", out)
	}
}
