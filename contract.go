package libinsane

import "context"

// ItemType classifies a device's root item or one of its sources.
type ItemType int

const (
	// ItemUnidentified is the zero value: a source whose role hasn't
	// been determined yet (see the normalize package's source_types).
	ItemUnidentified ItemType = iota
	ItemDevice
	ItemFlatbed
	ItemAdf
)

func (t ItemType) String() string {
	switch t {
	case ItemDevice:
		return "device"
	case ItemFlatbed:
		return "flatbed"
	case ItemAdf:
		return "feeder"
	default:
		return "unidentified"
	}
}

// DeviceLocations restricts ListDevices to devices reachable through
// particular transports. A backend that doesn't distinguish locations
// may ignore the filter and return everything it knows about.
type DeviceLocations int

const (
	LocationAny DeviceLocations = 0
	LocationLocalOnly DeviceLocations = 1 << iota
	LocationNetworkOnly
)

// DeviceDescriptor is one entry of Backend.ListDevices: enough
// information to decide whether to open the device, without opening it.
type DeviceDescriptor struct {
	ID       string
	Name     string
	Vendor   string
	Model    string
	Type     ItemType
}

// Backend is the five-operation surface every base backend and every
// wrapper in the pipeline implements identically (spec §3.1).
type Backend interface {
	// BaseName identifies the backend family at the bottom of the
	// pipeline (e.g. "dumb", "sane"), unchanged by any wrapper.
	BaseName() string

	ListDevices(ctx context.Context, locations DeviceLocations) ([]DeviceDescriptor, error)

	// GetDevice opens a device and returns its root Item. Only the
	// root may be closed; closing it invalidates everything obtained
	// through it (children, option descriptors, in-flight sessions).
	GetDevice(ctx context.Context, devID string) (Item, error)

	// Cleanup releases all resources held by this backend and cascades
	// to whatever backend it wraps.
	Cleanup()
}

// Item is a scanner root or one of its sources (spec §3.1, §3.3).
type Item interface {
	Name() string
	Type() ItemType

	GetChildren(ctx context.Context) ([]Item, error)
	GetOptions(ctx context.Context) ([]OptionDescriptor, error)

	// GetScanParameters is a best-effort pre-scan estimate; it is only
	// guaranteed accurate between ScanStart and the end of that
	// session.
	GetScanParameters(ctx context.Context) (ScanParameters, error)

	// ScanStart fails with ErrDeviceBusy if a session obtained from
	// this device (root or any of its children) is still open.
	ScanStart(ctx context.Context) (ScanSession, error)

	Close()
}

// OptionDescriptor is a scanner setting, reachable by name, with a
// value type, a constraint and a get/set pair (spec §3.1, §3.2).
//
// The descriptor array returned by Item.GetOptions, and every
// OptionDescriptor in it, is valid only until the next call that may
// reload options: another GetOptions, a ScanStart, or Close.
type OptionDescriptor interface {
	Name() string
	Title() string
	Desc() string
	Group() string

	Capabilities() Capabilities
	ValueType() ValueKind
	Unit() Unit
	Constraint() Constraint

	GetValue(ctx context.Context) (Value, error)

	// SetValue returns flags describing side effects: whether the
	// driver rounded the value, and whether the caller must reload
	// options and/or scan parameters.
	SetValue(ctx context.Context, v Value) (SetFlags, error)
}

// SetFlags reports the side effects of a successful SetValue call.
type SetFlags struct {
	Inexact           bool
	MustReloadOptions bool
	MustReloadParams  bool
}

// ScanSession is a live scan operation bound to one source (spec §3.1).
type ScanSession interface {
	GetScanParameters() (ScanParameters, error)

	// EndOfFeed reports whether the source (e.g. the ADF) has run out
	// of pages. EndOfPage reports whether the current page/frame is
	// fully read. Neither blocks.
	EndOfFeed() bool
	EndOfPage() bool

	// ScanRead reads up to len(buf) bytes of the current page. A
	// return of (0, nil) asks the caller to retry with a larger
	// buffer; it is not EOF.
	ScanRead(ctx context.Context, buf []byte) (int, error)

	// Cancel requests cancellation; it does not block for completion.
	// A ScanRead in progress returns ErrCancelled once the driver
	// honors the request.
	Cancel()
}
