package compose

import (
	"strings"

	"github.com/libinsane/libinsane-go"
)

// Str2Impls builds a pipeline from a comma-separated
// "<base>,<wrapper>,<wrapper>,..." spec, grounded on str2impls.h/
// str2impls.c. Useful for tests and tools that want one exact,
// reproducible pipeline instead of Safebet's env-driven defaults; the
// original's own doc comment says as much ("Useful for testing").
// Unlike lis_str2impls, which hard-codes one if/else chain per base and
// per wrapper, this looks both up through the same registry RegisterBase/
// RegisterWrapper populate, so a base or wrapper added after this module
// ships works here for free.
func Str2Impls(spec string) (libinsane.Backend, error) {
	toks := strings.Split(spec, ",")
	if len(toks) == 0 || toks[0] == "" {
		return nil, libinsane.NewError(libinsane.ErrKindNotImplemented, "str2impls: empty spec")
	}

	baseFactory, ok := lookupBase(toks[0])
	if !ok {
		return nil, errUnknownBase(toks[0])
	}
	backend, err := baseFactory()
	if err != nil {
		return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "str2impls:"+toks[0], err)
	}

	for _, tok := range toks[1:] {
		wrapperFactory, ok := lookupWrapper(tok)
		if !ok {
			return nil, errUnknownWrapper(tok)
		}
		backend, err = wrapperFactory(backend)
		if err != nil {
			return nil, libinsane.WrapError(libinsane.ErrKindUnsupported, "str2impls:"+tok, err)
		}
	}

	return backend, nil
}
