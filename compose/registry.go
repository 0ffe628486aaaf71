// Package compose builds a working libinsane.Backend pipeline out of
// named pieces: a base backend plus an ordered chain of wrappers, the
// way safebet.c, str2impls.c and the env-var overrides of the original
// do it. None of the other packages in this module know about each
// other by name; compose is the only place that does, and the only
// place a real Sane/WIA/TWAIN binding needs to touch to participate.
package compose

import (
	"fmt"
	"sync"

	"github.com/libinsane/libinsane-go"
)

// BaseFactory builds a fresh base backend, e.g. dumb.New or a real
// driver binding registered by an importer of this package.
type BaseFactory func() (libinsane.Backend, error)

// WrapperFactory wraps an already-built backend. Every wrapper in
// workaround/normalize/format returns one concretely typed value with
// no construction error of its own (none of them open a device or a
// file); WrapperFactory's error return exists for parity with the
// original's fallible wrap_cb and for bases/wrappers added later that
// might actually fail to construct (a real isolate.WrapDedicatedProcess
// call, for instance, does).
type WrapperFactory func(libinsane.Backend) (libinsane.Backend, error)

var (
	mu       sync.Mutex
	bases    = map[string]BaseFactory{}
	wrappers = map[string]WrapperFactory{}
)

// RegisterBase makes a base backend available to safebet, Str2Impls
// and config-file pipelines under name. Grounded on spec §1: the real
// Sane/WIA/TWAIN backends stay out of this module entirely, but
// whatever binds them (a package shaped like the teacher's own
// tjgq-sane, generalized to the Backend contract) calls this from its
// own init to plug in, the same way lis_str2impls / safebet.c's
// #ifdef OS_LINUX / OS_WINDOWS blocks pick a base API by name.
func RegisterBase(name string, factory BaseFactory) {
	mu.Lock()
	defer mu.Unlock()
	bases[name] = factory
}

// RegisterWrapper makes a wrapper available under name, for wrappers
// added outside this module. Every wrapper built in this repo is
// registered by builtins.go's init; this exists so a consumer adding
// its own quirk workaround doesn't have to fork compose to use
// Str2Impls or a config file.
func RegisterWrapper(name string, factory WrapperFactory) {
	mu.Lock()
	defer mu.Unlock()
	wrappers[name] = factory
}

func lookupBase(name string) (BaseFactory, bool) {
	mu.Lock()
	defer mu.Unlock()
	f, ok := bases[name]
	return f, ok
}

func lookupWrapper(name string) (WrapperFactory, bool) {
	mu.Lock()
	defer mu.Unlock()
	f, ok := wrappers[name]
	return f, ok
}

func errUnknownBase(name string) error {
	return libinsane.NewError(libinsane.ErrKindNotImplemented, fmt.Sprintf("base %q", name))
}

func errUnknownWrapper(name string) error {
	return libinsane.NewError(libinsane.ErrKindNotImplemented, fmt.Sprintf("wrapper %q", name))
}
