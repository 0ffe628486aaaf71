package normalize

import (
	"context"
	"strings"

	"github.com/libinsane/libinsane-go"
)

// manufacturerShorthands maps a verbose vendor string to the short
// form applications actually want to display, matching the original's
// exact-match shorten_manufacturer table.
var manufacturerShorthands = map[string]string{
	"hewlett-packard": "HP",
	"hewlett packard": "HP",
}

// WrapCleanDevDescs tidies up vendor/model strings in ListDevices:
// underscores become spaces, a handful of known verbose vendor names
// are shortened, and a model string that repeats its own vendor name
// as a prefix has that prefix stripped. GetDevice is untouched.
//
// Grounded on original_source's src/normalizers/clean_dev_descs.c: not
// basewrapper-based there either (it only needs to touch
// list_devices, proxying get_device unchanged), and the three filters
// run in the same order: filter_underscores, shorten_manufacturer,
// filter_manufacturer.
func WrapCleanDevDescs(backend libinsane.Backend) libinsane.Backend {
	return &cleanDevDescsBackend{wrapped: backend}
}

type cleanDevDescsBackend struct {
	wrapped libinsane.Backend
}

func (b *cleanDevDescsBackend) BaseName() string { return b.wrapped.BaseName() }
func (b *cleanDevDescsBackend) Cleanup()         { b.wrapped.Cleanup() }

func (b *cleanDevDescsBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	return b.wrapped.GetDevice(ctx, devID)
}

func (b *cleanDevDescsBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	descs, err := b.wrapped.ListDevices(ctx, loc)
	if err != nil {
		return nil, err
	}
	out := make([]libinsane.DeviceDescriptor, len(descs))
	for i, d := range descs {
		d.Vendor = filterUnderscores(d.Vendor)
		d.Model = filterUnderscores(d.Model)
		d.Vendor = shortenManufacturer(d.Vendor)
		d.Model = filterManufacturerPrefix(d.Vendor, d.Model)
		out[i] = d
	}
	return out, nil
}

func filterUnderscores(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func shortenManufacturer(vendor string) string {
	if short, ok := manufacturerShorthands[strings.ToLower(vendor)]; ok {
		return short
	}
	return vendor
}

// filterManufacturerPrefix strips a leading "<vendor> " (or just
// "<vendor>") from model, avoiding the vendor name appearing twice
// when an application concatenates vendor and model.
func filterManufacturerPrefix(vendor, model string) string {
	if vendor == "" || !strings.HasPrefix(strings.ToLower(model), strings.ToLower(vendor)) {
		return model
	}
	rest := model[len(vendor):]
	rest = strings.TrimPrefix(rest, " ")
	return rest
}
