package libinsane

// Canonical option and value names the normalize/workaround packages
// converge every backend's naming onto (spec §9's "global mapping
// tables"), matching original_source's constants.h.
const (
	OptNameSource        = "source"
	OptValueSourceFlatbed = "flatbed"
	OptValueSourceADF     = "feeder"

	OptNameFeederEnabled = "feeder_enabled"

	OptNameResolution = "resolution"

	OptNameMode           = "mode"
	OptValueModeColor     = "Color"
	OptValueModeBW        = "LineArt"
	OptValueModeGrayscale = "Gray"

	OptNameTLX = "tl-x"
	OptNameTLY = "tl-y"
	OptNameBRX = "br-x"
	OptNameBRY = "br-y"

	OptNamePreview    = "preview"
	OptNameLampSwitch = "lamp-switch"
)
