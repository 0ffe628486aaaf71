package normalize

import (
	"context"

	"github.com/libinsane/libinsane-go"
)

// resolutionAliasCandidates lists every name a backend might use for
// a single-axis resolution option; the alias proxies through
// whichever one is actually present, treating a scanner's resolution
// as one uniform value even when the underlying driver exposes it per
// axis.
var resolutionAliasCandidates = []string{
	"xres", "yres", "x_resolution", "y_resolution", "x-resolution", "y-resolution",
}

type cropAxis struct {
	posName    string
	extentName string
}

var cropAxisX = cropAxis{"xpos", "xextent"}
var cropAxisY = cropAxis{"ypos", "yextent"}

// WrapOptAliases adds "resolution", "tl-x", "tl-y", "br-x" and "br-y"
// as synthetic options wherever their underlying option(s) exist, so
// applications use one vocabulary regardless of whether the backend
// beneath exposes resolution per axis, or a scan area as
// position+extent rather than corners.
//
// Grounded on original_source's src/normalizers/opt_aliases.c's
// g_aliases table: resolution requires ANY one candidate name to
// exist; its getter reads whichever one is found first, but its
// setter writes every candidate that exists, so a backend exposing
// both xres and yres keeps them in lockstep behind the one alias.
// tl-x/tl-y/br-x/br-y require
// BOTH a position and an extent option for their axis (ALL), with
// tl's setter recomputing extent to hold the opposite (br) corner
// fixed and br's setter recomputing extent directly from the new
// coordinate. Not basewrapper-based: basewrapper's OptionFilter can
// only transform a descriptor basewrapper already sees, and inserting
// a descriptor with no wrapped counterpart is every alias's entire
// purpose.
//
// The constraint math is simplified from the original's
// constraint_minmax-signed range merge: tl-x/tl-y copy their position
// option's own range constraint verbatim (the fallback branch the
// original itself uses whenever the merge doesn't apply cleanly), and
// br-x/br-y sum the position and extent ranges' bounds directly
// rather than reproducing the exact original formula. Documented here
// rather than re-derived byte for byte from the C source's pointer
// arithmetic.
func WrapOptAliases(backend libinsane.Backend) libinsane.Backend {
	return &optAliasesBackend{wrapped: backend}
}

type optAliasesBackend struct{ wrapped libinsane.Backend }

func (b *optAliasesBackend) BaseName() string { return b.wrapped.BaseName() }
func (b *optAliasesBackend) Cleanup()         { b.wrapped.Cleanup() }

func (b *optAliasesBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	return b.wrapped.ListDevices(ctx, loc)
}

func (b *optAliasesBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	inner, err := b.wrapped.GetDevice(ctx, devID)
	if err != nil {
		return nil, err
	}
	return &optAliasesItem{wrapped: inner}, nil
}

type optAliasesItem struct{ wrapped libinsane.Item }

func (it *optAliasesItem) Name() string              { return it.wrapped.Name() }
func (it *optAliasesItem) Type() libinsane.ItemType { return it.wrapped.Type() }
func (it *optAliasesItem) Close()                    { it.wrapped.Close() }

func (it *optAliasesItem) GetScanParameters(ctx context.Context) (libinsane.ScanParameters, error) {
	return it.wrapped.GetScanParameters(ctx)
}

func (it *optAliasesItem) ScanStart(ctx context.Context) (libinsane.ScanSession, error) {
	return it.wrapped.ScanStart(ctx)
}

func (it *optAliasesItem) GetChildren(ctx context.Context) ([]libinsane.Item, error) {
	kids, err := it.wrapped.GetChildren(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]libinsane.Item, len(kids))
	for i, k := range kids {
		out[i] = &optAliasesItem{wrapped: k}
	}
	return out, nil
}

func (it *optAliasesItem) GetOptions(ctx context.Context) ([]libinsane.OptionDescriptor, error) {
	opts, err := it.wrapped.GetOptions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]libinsane.OptionDescriptor, len(opts), len(opts)+5)
	copy(out, opts)

	if findOption(opts, libinsane.OptNameResolution) == nil {
		if alias := buildResolutionAlias(opts); alias != nil {
			out = append(out, alias)
		}
	}
	for _, c := range []struct {
		name  string
		axis  cropAxis
		isBR  bool
	}{
		{libinsane.OptNameTLX, cropAxisX, false},
		{libinsane.OptNameTLY, cropAxisY, false},
		{libinsane.OptNameBRX, cropAxisX, true},
		{libinsane.OptNameBRY, cropAxisY, true},
	} {
		if findOption(opts, c.name) != nil {
			continue
		}
		if alias := buildCornerAlias(opts, c.name, c.axis, c.isBR); alias != nil {
			out = append(out, alias)
		}
	}
	return out, nil
}

// aliasOption is a synthetic OptionDescriptor with no wrapped
// counterpart of its own: every field is computed once when the alias
// is built, and GetValue/SetValue proxy to whichever real option(s)
// back it.
type aliasOption struct {
	name       string
	title      string
	caps       libinsane.Capabilities
	valueType  libinsane.ValueKind
	unit       libinsane.Unit
	constraint libinsane.Constraint
	get        func(ctx context.Context) (libinsane.Value, error)
	set        func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error)
}

func (o *aliasOption) Name() string  { return o.name }
func (o *aliasOption) Title() string { return o.title }
func (o *aliasOption) Desc() string  { return "" }
func (o *aliasOption) Group() string { return "" }

func (o *aliasOption) Capabilities() libinsane.Capabilities { return o.caps }
func (o *aliasOption) ValueType() libinsane.ValueKind       { return o.valueType }
func (o *aliasOption) Unit() libinsane.Unit                 { return o.unit }
func (o *aliasOption) Constraint() libinsane.Constraint     { return o.constraint }

func (o *aliasOption) GetValue(ctx context.Context) (libinsane.Value, error) { return o.get(ctx) }
func (o *aliasOption) SetValue(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
	return o.set(ctx, v)
}

func buildResolutionAlias(opts []libinsane.OptionDescriptor) libinsane.OptionDescriptor {
	var found []libinsane.OptionDescriptor
	for _, name := range resolutionAliasCandidates {
		if o := findOption(opts, name); o != nil {
			found = append(found, o)
		}
	}
	if len(found) == 0 {
		return nil
	}
	target := found[0]
	caps := libinsane.CapEmulated
	for _, o := range found {
		caps |= o.Capabilities()
	}
	return &aliasOption{
		name:       libinsane.OptNameResolution,
		title:      "Resolution",
		caps:       caps,
		valueType:  target.ValueType(),
		unit:       libinsane.UnitDpi,
		constraint: target.Constraint(),
		get:        target.GetValue,
		set: func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
			var flags libinsane.SetFlags
			for _, o := range found {
				f, err := o.SetValue(ctx, v)
				if err != nil {
					return flags, err
				}
				flags.Inexact = flags.Inexact || f.Inexact
				flags.MustReloadOptions = flags.MustReloadOptions || f.MustReloadOptions
				flags.MustReloadParams = flags.MustReloadParams || f.MustReloadParams
			}
			return flags, nil
		},
	}
}

func buildCornerAlias(opts []libinsane.OptionDescriptor, name string, axis cropAxis, isBR bool) libinsane.OptionDescriptor {
	pos := findOption(opts, axis.posName)
	extent := findOption(opts, axis.extentName)
	if pos == nil || extent == nil {
		return nil
	}
	caps := libinsane.CapEmulated | pos.Capabilities() | extent.Capabilities()

	if !isBR {
		return &aliasOption{
			name: name, title: "Scan area " + name,
			caps: caps, valueType: pos.ValueType(), unit: pos.Unit(),
			constraint: pos.Constraint(),
			get: func(ctx context.Context) (libinsane.Value, error) {
				return pos.GetValue(ctx)
			},
			set: func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
				oldPos, err := pos.GetValue(ctx)
				if err != nil {
					return libinsane.SetFlags{}, err
				}
				oldExtent, err := extent.GetValue(ctx)
				if err != nil {
					return libinsane.SetFlags{}, err
				}
				far := oldPos.Add(oldExtent) // the opposite (br) corner, held fixed
				if _, err := pos.SetValue(ctx, v); err != nil {
					return libinsane.SetFlags{}, err
				}
				return extent.SetValue(ctx, far.Sub(v))
			},
		}
	}

	return &aliasOption{
		name: name, title: "Scan area " + name,
		caps: caps, valueType: pos.ValueType(), unit: pos.Unit(),
		constraint: sumRangeConstraints(pos.Constraint(), extent.Constraint()),
		get: func(ctx context.Context) (libinsane.Value, error) {
			p, err := pos.GetValue(ctx)
			if err != nil {
				return libinsane.Value{}, err
			}
			e, err := extent.GetValue(ctx)
			if err != nil {
				return libinsane.Value{}, err
			}
			return p.Add(e), nil
		},
		set: func(ctx context.Context, v libinsane.Value) (libinsane.SetFlags, error) {
			p, err := pos.GetValue(ctx)
			if err != nil {
				return libinsane.SetFlags{}, err
			}
			return extent.SetValue(ctx, v.Sub(p))
		},
	}
}

func sumRangeConstraints(a, b libinsane.Constraint) libinsane.Constraint {
	if a.Kind != libinsane.ConstraintRange || b.Kind != libinsane.ConstraintRange {
		return a
	}
	return libinsane.RangeConstraint(a.Range.Min.Add(b.Range.Min), a.Range.Max.Add(b.Range.Max), a.Range.Interval)
}
