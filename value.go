package libinsane

import "fmt"

// ValueKind is the tag of the Value union (spec §3.2).
type ValueKind int

const (
	KindBool ValueKind = iota
	KindInt
	KindDouble
	KindString
	KindImageFormat
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindImageFormat:
		return "image_format"
	default:
		return fmt.Sprintf("value_kind(%d)", int(k))
	}
}

// Value is a tagged union over {bool, int, double, string, image_format}.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int    int
	Double float64
	Str    string
	Format ImageFormat
}

func Bool(b bool) Value            { return Value{Kind: KindBool, Bool: b} }
func Int(i int) Value              { return Value{Kind: KindInt, Int: i} }
func Double(d float64) Value       { return Value{Kind: KindDouble, Double: d} }
func String(s string) Value        { return Value{Kind: KindString, Str: s} }
func FormatValue(f ImageFormat) Value { return Value{Kind: KindImageFormat, Format: f} }

// Copy returns an independent copy of v. Since Value holds no pointers
// shared with driver memory, this is a plain value copy; it exists (and
// is named after util.c's lis_copy) so callers that ported from the
// union-typed original don't have to special-case Go's value semantics.
func (v Value) Copy() Value { return v }

// Equal reports whether v and other hold the same kind and value.
// Strings compare case-insensitively, matching lis_compare's
// strcasecmp for LIS_TYPE_STRING.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindDouble:
		return v.Double == other.Double
	case KindString:
		return equalFold(v.Str, other.Str)
	case KindImageFormat:
		return v.Format == other.Format
	default:
		return false
	}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Add returns v+delta for numeric kinds. It is used by opt_aliases to
// keep tl+extent == br when either side moves. Non-numeric kinds panic:
// callers only ever call Add on resolved Int/Double option values.
func (v Value) Add(delta Value) Value {
	switch v.Kind {
	case KindInt:
		return Int(v.Int + delta.asInt())
	case KindDouble:
		return Double(v.Double + delta.asDouble())
	default:
		panic(fmt.Sprintf("libinsane: Add not defined for kind %s", v.Kind))
	}
}

// Sub returns v-delta; see Add.
func (v Value) Sub(delta Value) Value {
	switch v.Kind {
	case KindInt:
		return Int(v.Int - delta.asInt())
	case KindDouble:
		return Double(v.Double - delta.asDouble())
	default:
		panic(fmt.Sprintf("libinsane: Sub not defined for kind %s", v.Kind))
	}
}

func (v Value) asInt() int {
	if v.Kind == KindDouble {
		return int(v.Double)
	}
	return v.Int
}

func (v Value) asDouble() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Double
}

// AsInt coerces a Double value to Int by truncation, and returns Int
// values unchanged. Used by the resolution normalizer.
func (v Value) AsInt() int { return v.asInt() }

// AsDouble widens an Int value to Double, and returns Double values
// unchanged. Used by the resolution normalizer and opt_aliases.
func (v Value) AsDouble() float64 { return v.asDouble() }

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindDouble:
		return fmt.Sprintf("%g", v.Double)
	case KindString:
		return v.Str
	case KindImageFormat:
		return v.Format.String()
	default:
		return "?"
	}
}

// Unit is the physical unit an option's value is expressed in.
type Unit int

const (
	UnitNone Unit = iota
	UnitPixel
	UnitBit
	UnitMm
	UnitDpi
	UnitPercent
	UnitMicrosecond
)

// Capabilities is a bitset of option properties (spec §3.2).
type Capabilities uint

const (
	CapEmulated Capabilities = 1 << iota
	CapAutomatic
	CapHwSelect
	CapSwSelect
	CapReadable
	CapInactive
)

func (c Capabilities) Has(flag Capabilities) bool { return c&flag != 0 }

// Readable and Writable mirror the original's LIS_OPT_IS_READABLE /
// LIS_OPT_IS_WRITABLE macros: a capability set with no READABLE/
// SW_SELECT/HW_SELECT flags at all is treated as fully accessible
// (drivers that don't report capabilities), but an explicit INACTIVE
// flag always wins.
func (c Capabilities) Readable() bool {
	if c.Has(CapInactive) {
		return false
	}
	if !c.Has(CapReadable) && !c.Has(CapSwSelect) && !c.Has(CapHwSelect) {
		return true
	}
	return c.Has(CapReadable)
}

func (c Capabilities) Writable() bool {
	if c.Has(CapInactive) {
		return false
	}
	if !c.Has(CapReadable) && !c.Has(CapSwSelect) && !c.Has(CapHwSelect) {
		return true
	}
	return c.Has(CapSwSelect)
}

// ConstraintKind distinguishes the three shapes a Constraint can take.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintRange
	ConstraintList
)

// Range is an inclusive [Min, Max] constraint with an optional
// quantization step (0/1 meaning "continuous").
type Range struct {
	Min      Value
	Max      Value
	Interval Value
}

// Constraint restricts the legal values of an option (spec §3.2).
type Constraint struct {
	Kind  ConstraintKind
	Range Range
	List  []Value
}

func NoConstraint() Constraint { return Constraint{Kind: ConstraintNone} }

func RangeConstraint(min, max, interval Value) Constraint {
	return Constraint{Kind: ConstraintRange, Range: Range{Min: min, Max: max, Interval: interval}}
}

func ListConstraint(values ...Value) Constraint {
	return Constraint{Kind: ConstraintList, List: values}
}

// Contains reports whether v satisfies the constraint. A ConstraintNone
// constraint accepts everything.
func (c Constraint) Contains(v Value) bool {
	switch c.Kind {
	case ConstraintNone:
		return true
	case ConstraintRange:
		lo, hi := c.Range.Min.asDouble(), c.Range.Max.asDouble()
		x := v.asDouble()
		return x >= lo && x <= hi
	case ConstraintList:
		for _, candidate := range c.List {
			if candidate.Equal(v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ImageFormat enumerates the pixel/container formats a driver stack may
// emit (spec §3.2).
type ImageFormat int

const (
	ImageFormatUnknown ImageFormat = iota
	ImageFormatRawRGB24
	ImageFormatGrayscale8
	ImageFormatBW1
	ImageFormatBMP
	ImageFormatJPEG
	ImageFormatPNG
	ImageFormatTIFF
)

func (f ImageFormat) String() string {
	switch f {
	case ImageFormatRawRGB24:
		return "raw_rgb_24"
	case ImageFormatGrayscale8:
		return "grayscale_8"
	case ImageFormatBW1:
		return "bw_1"
	case ImageFormatBMP:
		return "bmp"
	case ImageFormatJPEG:
		return "jpeg"
	case ImageFormatPNG:
		return "png"
	case ImageFormatTIFF:
		return "tiff"
	default:
		return "unknown"
	}
}

// ScanParameters describes the shape of the data a ScanSession produces
// (spec §3.2).
type ScanParameters struct {
	Format    ImageFormat
	Width     int
	Height    int
	ImageSize int
}
