package workaround

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
)

// WrapOnePageFlatbed makes EndOfFeed report done as soon as a flatbed
// session's first (and only) page ends, instead of relying on the
// driver to do so itself: some Sane flatbed backends otherwise keep
// reporting more pages available forever.
//
// Grounded on original_source's src/workarounds/one_page_flatbed.c:
// one_end_of_feed's switch on item type becomes the same switch below;
// an ADF or a device/unidentified item (the original warns and assumes
// the driver already behaves, since it has no "only one page" story to
// enforce) forwards straight to the wrapped session's own EndOfFeed.
// The rest of the session (get_scan_parameters/end_of_page/scan_read)
// is pure forwarding, same as the C template's unmodified members. The
// C source's on_close_item hook, which frees a session left dangling
// by an item closed mid-scan, has no Go counterpart: nothing but the
// closure above ever references the *onePageSession, so it is GC'd
// once unreachable.
func WrapOnePageFlatbed(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "one_page_flatbed")

	bw.SetOnScanStart(func(item *basewrapper.Item) (libinsane.ScanSession, error) {
		sess, err := item.WrappedScanStart(context.Background())
		if err != nil {
			return nil, err
		}
		return &onePageSession{wrapped: sess, itemType: item.Type()}, nil
	})

	return bw
}

type onePageSession struct {
	wrapped  libinsane.ScanSession
	itemType libinsane.ItemType
}

func (s *onePageSession) GetScanParameters() (libinsane.ScanParameters, error) {
	return s.wrapped.GetScanParameters()
}

func (s *onePageSession) EndOfPage() bool { return s.wrapped.EndOfPage() }

func (s *onePageSession) EndOfFeed() bool {
	switch s.itemType {
	case libinsane.ItemFlatbed:
		if s.wrapped.EndOfPage() {
			return true
		}
	case libinsane.ItemAdf:
		// ADFs are expected to report end_of_feed accurately on their own.
	default:
		// Unexpected source type: assume the driver reports end_of_feed
		// correctly rather than guessing whether to stop at one page.
	}
	return s.wrapped.EndOfFeed()
}

func (s *onePageSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	return s.wrapped.ScanRead(ctx, buf)
}

func (s *onePageSession) Cancel() { s.wrapped.Cancel() }
