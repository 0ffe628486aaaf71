package compose

import (
	"github.com/libinsane/libinsane-go"
	"github.com/libinsane/libinsane-go/dumb"
	"github.com/libinsane/libinsane-go/format"
	"github.com/libinsane/libinsane-go/isolate"
	"github.com/libinsane/libinsane-go/normalize"
	"github.com/libinsane/libinsane-go/workaround"
)

// init registers every base and wrapper this module ships with, under
// the same names safebet.c/str2impls.c use, so Safebet/Str2Impls/
// Build never need to know these packages exist.
func init() {
	dumbFactory := func() (libinsane.Backend, error) {
		return dumb.New("dumb"), nil
	}
	RegisterBase("dumb", dumbFactory)
	// WrapDedicatedProcess re-execs this same binary and hands the
	// worker only a factory name (see isolate/process.go); the worker
	// has to rebuild the base from scratch rather than inherit it, so
	// every registered base needs a matching WorkerFactory under the
	// same name.
	isolate.RegisterWorkerFactory("dumb", dumbFactory)

	registerPure := func(name string, wrap func(libinsane.Backend) libinsane.Backend) {
		RegisterWrapper(name, func(b libinsane.Backend) (libinsane.Backend, error) {
			return wrap(b), nil
		})
	}

	registerPure("check_capabilities", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapCheckCapabilities(b) })
	registerPure("cache", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapCache(b) })
	registerPure("lamp", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapLamp(b) })
	registerPure("opt_aliases", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapOptAliases(b) })
	registerPure("opt_values", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapOptValues(b) })
	registerPure("opt_names", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapOptNames(b) })
	registerPure("set_opt_late", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapSetOptLate(b) })
	registerPure("bmp2raw", func(b libinsane.Backend) libinsane.Backend { return format.WrapBMP2Raw(b) })
	registerPure("raw24", func(b libinsane.Backend) libinsane.Backend { return format.WrapRaw24(b) })
	registerPure("resolution", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapResolution(b) })
	registerPure("clean_dev_descs", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapCleanDevDescs(b) })
	registerPure("safe_defaults", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapSafeDefaults(b) })
	registerPure("source_nodes", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapSourceNodes(b) })
	registerPure("min_one_source", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapMinOneSource(b) })
	registerPure("source_names", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapSourceNames(b) })
	registerPure("source_types", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapSourceTypes(b) })
	registerPure("one_page_flatbed", func(b libinsane.Backend) libinsane.Backend { return workaround.WrapOnePageFlatbed(b) })
	registerPure("all_opts_on_all_sources", func(b libinsane.Backend) libinsane.Backend { return normalize.WrapAllOptsOnAllSources(b) })

	// The last row of safebetTable, so Safebet applies it last (see
	// safebet.go): once a backend runs on its own dedicated goroutine, nothing further
	// up the chain should still be able to reach the unwrapped backend
	// directly.
	RegisterWrapper("dedicated_thread", func(b libinsane.Backend) (libinsane.Backend, error) {
		return isolate.WrapDedicatedThread(b), nil
	})

	// dedicated_process isn't a safebetTable entry (it isn't auto-
	// enabled for every base the way dedicated_thread is): a base's
	// own package opts into it by registering a matching
	// isolate.WorkerFactory (as dumb's does above), and whoever builds
	// a pipeline asks for it by name through Str2Impls or a config
	// file's [[wrapper]] list, same as any other wrapper. The backend
	// passed in here is whatever the pipeline already built up to this
	// point; its BaseName (unchanged by every wrapper ahead of it in
	// the chain, see contract.go) is also the WorkerFactory name the
	// re-exec'd worker looks up, so it rebuilds the matching base
	// rather than inheriting this process's live backend.
	RegisterWrapper("dedicated_process", func(b libinsane.Backend) (libinsane.Backend, error) {
		return isolate.WrapDedicatedProcess(b.BaseName())
	})
}
