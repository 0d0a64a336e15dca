package rotcalc

// Limits is a hard mechanical travel range in degrees.
type Limits struct {
	MinDeg float64 `json:"min_deg"`
	MaxDeg float64 `json:"max_deg"`
}

// DefaultRotatorLimits is used for instruments missing from the table.
var DefaultRotatorLimits = Limits{MinDeg: -270, MaxDeg: +270}

// AzimuthLimits is the fixed azimuth travel range of the mount.
var AzimuthLimits = Limits{MinDeg: -270, MaxDeg: +270}

// Geometry describes how an instrument's rotator relates to the sky:
// the zero-point offset of the image rotator and whether the optical
// train mirror-flips the field.
type Geometry struct {
	OffsetDeg float64 `json:"offset_deg"`
	Flip      bool    `json:"flip"`
}

// instrumentLimits maps instrument name to its rotator travel range.
// Values outside this table fall back to DefaultRotatorLimits.
var instrumentLimits = map[string]Limits{
	"PFS":    {MinDeg: -270, MaxDeg: +270},
	"HSC":    {MinDeg: -270, MaxDeg: +270},
	"FOCAS":  {MinDeg: -175, MaxDeg: +175},
	"HDS":    {MinDeg: -270, MaxDeg: +270},
	"IRCS":   {MinDeg: -178, MaxDeg: +178},
	"MOIRCS": {MinDeg: -178, MaxDeg: +178},
}

// instrumentGeometry maps instrument name to rotator geometry.
// Missing entries use the zero geometry (no offset, no flip).
var instrumentGeometry = map[string]Geometry{
	"FOCAS": {OffsetDeg: 180},
	"HDS":   {OffsetDeg: 180},
}

// RotatorLimits returns the rotator travel range for the named instrument.
func RotatorLimits(instrument string) Limits {
	if lim, ok := instrumentLimits[instrument]; ok {
		return lim
	}
	return DefaultRotatorLimits
}

// InstrumentGeometry returns the rotator geometry for the named instrument.
func InstrumentGeometry(instrument string) Geometry {
	return instrumentGeometry[instrument]
}

// Instruments returns the names with explicit rotator limit entries.
func Instruments() []string {
	names := make([]string, 0, len(instrumentLimits))
	for name := range instrumentLimits {
		names = append(names, name)
	}
	return names
}

// SetRotatorLimits overrides or adds the travel range for an instrument.
// Intended for configuration-time use only; not safe for concurrent calls
// with RotatorLimits.
func SetRotatorLimits(instrument string, lim Limits) {
	instrumentLimits[instrument] = lim
}
