//go:build cgo

package main

// Pulling in legacy_sane only under cgo keeps a default `go build` of
// this command free of any dependency on libsane; building with cgo
// enabled (and libsane installed) additionally registers a real "sane"
// base backend that compose.Safebet/Str2Impls/Build can pick up by
// name, alongside the always-available "dumb" one.
import _ "github.com/libinsane/libinsane-go/legacy_sane"
