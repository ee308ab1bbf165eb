package format

// Unit conversion constants for imperial tank bookkeeping.
const (
	CuFtToLiter = 28.316846592 // one cubic foot in liters
	PsiToBar    = 0.0689475729 // one psi in bar
	AtmToBar    = 1.01325      // one standard atmosphere in bar
	BarToMbar   = 1000.0
)

// GasMix is one breathing-gas blend. Oxygen and Helium are integer
// percentages; the remainder up to 100 is nitrogen.
type GasMix struct {
	Oxygen  uint8
	Helium  uint8
	Usage   GasUsage
	ID      uint32 // vendor gas id, when the format records one
	Diluent bool
}

// Nitrogen returns the nitrogen percentage of the mix.
func (g GasMix) Nitrogen() uint8 {
	return 100 - g.Oxygen - g.Helium
}

// Equal reports whether two mixes describe the same blend. Vendor id and
// the diluent flag do not participate; the dedup key is (O2, He, usage).
func (g GasMix) Equal(other GasMix) bool {
	return g.Oxygen == other.Oxygen && g.Helium == other.Helium && g.Usage == other.Usage
}

// Tank is one cylinder tracked by the computer. Pressures are in bar,
// Volume in deciliters with 0 meaning unknown.
type Tank struct {
	Volume          uint32
	WorkPressure    float64
	BeginPressure   float64
	EndPressure     float64
	Units           TankUnits
	GasMix          int // index into the mix table, -1 when unlinked
	TransmitterID   uint32
	HasTransmitter  bool
	Active          bool
}

// WaterVolume returns the tank's internal volume in liters. Metric
// tanks store deciliters directly; imperial tanks store the gas volume
// (1/100 cu ft) the cylinder delivers at its working pressure, so the
// conversion divides out that pressure in atmospheres.
func (t Tank) WaterVolume() float64 {
	switch t.Units {
	case TankImperial:
		if t.WorkPressure == 0 {
			return 0
		}

		return float64(t.Volume) / 100.0 * CuFtToLiter / (t.WorkPressure / AtmToBar)
	case TankMetric:
		return float64(t.Volume) / 10.0
	default:
		return 0
	}
}

// DecoModel describes the decompression algorithm the dive ran with.
// GfLow/GfHigh are only meaningful for Bühlmann.
type DecoModel struct {
	Type         DecoModelType
	Conservatism int
	GfLow        uint8
	GfHigh       uint8
}

type DecoModelType uint8

const (
	DecoModelNone DecoModelType = iota
	DecoModelBuhlmann
	DecoModelVPM
	DecoModelRGBM
	DecoModelDCIEM
)

func (t DecoModelType) String() string {
	switch t {
	case DecoModelNone:
		return "None"
	case DecoModelBuhlmann:
		return "Buhlmann"
	case DecoModelVPM:
		return "VPM"
	case DecoModelRGBM:
		return "RGBM"
	case DecoModelDCIEM:
		return "DCIEM"
	default:
		return "Unknown"
	}
}

// Salinity is the water type plus an optional density in g/l; Density 0
// means the device stored only the fresh/salt flag.
type Salinity struct {
	Type    WaterType
	Density float64
}

// Location is a GPS fix attached to the dive.
type Location struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}
