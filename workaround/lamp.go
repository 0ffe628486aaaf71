package workaround

import (
	"context"

	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/basewrapper"
	"github.com/libinsane/libinsane-go/internal/logx"
)

// WrapLamp turns a device's lamp on before a scan and off again once
// the session is done (or cancelled), for drivers whose own
// auto-lamp-management isn't trustworthy enough to leave alone.
//
// Grounded on original_source's src/workarounds/lamp.c: set_lamp_switch
// becomes setLampSwitch, tolerating a missing or failing "lamp-switch"
// option by logging instead of failing the scan. lamp_scan_start's
// struct stashed on the device root item's user_ptr (via
// lis_bw_get_root_item, since the lamp is a whole-device resource
// shared by every synthesized source, not the particular item that
// happened to issue ScanStart) becomes the *lampSession stored via
// item.RootOf().SetUserData. lamp_on_item_close's "only act on the
// root item's own close" guard becomes the root bool basewrapper's
// CloseItemHook already provides.
func WrapLamp(backend libinsane.Backend) *basewrapper.Backend {
	bw := basewrapper.New(backend, "lamp")
	log := logx.Default.Named("lamp")

	bw.SetOnScanStart(func(item *basewrapper.Item) (libinsane.ScanSession, error) {
		ctx := context.Background()
		root := item.RootOf()

		setLampSwitch(ctx, item, true, log)

		sess, err := item.WrappedScanStart(ctx)
		if err != nil {
			setLampSwitch(ctx, item, false, log)
			return nil, err
		}

		lampSess := &lampSession{wrapped: sess, item: item, root: root, log: log}
		root.SetUserData(lampSess)
		return lampSess, nil
	})

	bw.SetOnCloseItem(func(item *basewrapper.Item, root bool) {
		if !root {
			return
		}
		sess, _ := item.UserData().(*lampSession)
		if sess == nil {
			return
		}
		sess.turnOff()
		item.SetUserData(nil)
	})

	return bw
}

// setLampSwitch looks up the lamp-switch option among item's own
// options and sets it, never propagating a failure up to the caller:
// plenty of drivers don't expose the option at all, and the scan
// should proceed regardless.
func setLampSwitch(ctx context.Context, item *basewrapper.Item, on bool, log *logx.Logger) {
	state := "off"
	if on {
		state = "on"
	}

	opts, err := item.OriginalItem().GetOptions(ctx)
	if err != nil {
		log.Warningf("failed to get options to turn the lamp %s: %v", state, err)
		return
	}
	opt := findOptionByName(opts, libinsane.OptNameLampSwitch)
	if opt == nil {
		log.Infof("no %q option, cannot turn the lamp %s", libinsane.OptNameLampSwitch, state)
		return
	}
	if _, err := opt.SetValue(ctx, libinsane.Bool(on)); err != nil {
		log.Warningf("failed to turn the lamp %s: %v", state, err)
	}
}

// lampSession turns the lamp back off the first time the wrapped
// session reports end of feed or is cancelled, whichever comes first.
type lampSession struct {
	wrapped libinsane.ScanSession
	item    *basewrapper.Item
	root    *basewrapper.Item
	log     *logx.Logger
	off     bool
}

func (s *lampSession) GetScanParameters() (libinsane.ScanParameters, error) {
	return s.wrapped.GetScanParameters()
}

func (s *lampSession) EndOfPage() bool { return s.wrapped.EndOfPage() }

func (s *lampSession) EndOfFeed() bool {
	done := s.wrapped.EndOfFeed()
	if done {
		s.turnOff()
	}
	return done
}

func (s *lampSession) ScanRead(ctx context.Context, buf []byte) (int, error) {
	return s.wrapped.ScanRead(ctx, buf)
}

func (s *lampSession) Cancel() {
	s.wrapped.Cancel()
	s.turnOff()
}

func (s *lampSession) turnOff() {
	if s.off {
		return
	}
	s.off = true
	setLampSwitch(context.Background(), s.item, false, s.log)
	if cur, _ := s.root.UserData().(*lampSession); cur == s {
		s.root.SetUserData(nil)
	}
}
