// Package libinsane provides a uniform device/option/scan-session
// abstraction over heterogeneous scanner driver stacks (Sane on Unix,
// WIA and TWAIN on Windows).
//
// The package itself only defines the contract every driver and every
// normalizer/workaround wrapper implements: Backend, Item,
// OptionDescriptor and ScanSession. Applications don't usually construct
// these by hand; instead they call compose.Safebet or compose.Str2Impls
// to obtain a fully normalized Backend built on top of whatever base
// backend is available, e.g.
//
//	backend, err := compose.Safebet()
//	item, err := backend.GetDevice(ctx, "")
//	opts, err := item.GetOptions(ctx)
//	err = opts[0].SetValue(ctx, libinsane.String("Color"))
//	session, err := item.ScanStart(ctx)
//	params, err := session.GetScanParameters()
//	n, err := session.ScanRead(ctx, buf)
//
// After the default pipeline runs, every scan session reports
// ImageFormatRawRGB24 regardless of what the underlying driver natively
// produces, so applications never need to branch on pixel format.
//
// See the normalize, workaround, format and isolate packages for the
// individual wrappers, and compose for how they're assembled.
package libinsane
