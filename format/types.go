package format

type (
	Family    uint8
	DiveMode  uint8
	WaterType uint8
	DecoType  uint8
	FieldType uint8
	TankUnits uint8
	GasUsage  uint8
)

// Parser families. Each family selects one on-disk representation; model
// ids distinguish layout variants inside a family.
const (
	FamilyDivesystemIDive Family = iota + 1 // FamilyDivesystemIDive covers iDive, iX3M and iX3M2.
	FamilyDivesoftFreedom                   // FamilyDivesoftFreedom is the TLV 16-byte record log.
	FamilyMaresIconHD                       // FamilyMaresIconHD covers Icon HD, Quad (Air), Smart (Air, Apnea).
	FamilyMaresGenius                       // FamilyMaresGenius is the framed DSTR/DPRS/DEND log.
	FamilyOceanicAtom2
	FamilyOceanicVTPro
	FamilyOceanicVeo250
	FamilyMcLeanExtreme
	FamilySporasubSP2
	FamilySuuntoD9
	FamilySuuntoVyper
	FamilySuuntoSolution
	FamilyHwOstc
	FamilyCressiEdy
	FamilyReefnetSensus
	FamilyUwatecSmart // FamilyUwatecSmart covers Smart, Aladin Tec and Galileo.
)

func (f Family) String() string {
	switch f {
	case FamilyDivesystemIDive:
		return "Divesystem iDive"
	case FamilyDivesoftFreedom:
		return "Divesoft Freedom"
	case FamilyMaresIconHD:
		return "Mares Icon HD"
	case FamilyMaresGenius:
		return "Mares Genius"
	case FamilyOceanicAtom2:
		return "Oceanic Atom 2"
	case FamilyOceanicVTPro:
		return "Oceanic VT Pro"
	case FamilyOceanicVeo250:
		return "Oceanic Veo 250"
	case FamilyMcLeanExtreme:
		return "McLean Extreme"
	case FamilySporasubSP2:
		return "Sporasub SP2"
	case FamilySuuntoD9:
		return "Suunto D9"
	case FamilySuuntoVyper:
		return "Suunto Vyper"
	case FamilySuuntoSolution:
		return "Suunto Solution"
	case FamilyHwOstc:
		return "Heinrichs Weikamp OSTC"
	case FamilyCressiEdy:
		return "Cressi Edy"
	case FamilyReefnetSensus:
		return "Reefnet Sensus"
	case FamilyUwatecSmart:
		return "Uwatec Smart"
	default:
		return "Unknown"
	}
}

// Dive modes as stored by the device.
const (
	ModeOpenCircuit DiveMode = iota + 1
	ModeClosedCircuit
	ModeSemiClosed
	ModeGauge
	ModeFreedive
)

func (m DiveMode) String() string {
	switch m {
	case ModeOpenCircuit:
		return "OC"
	case ModeClosedCircuit:
		return "CCR"
	case ModeSemiClosed:
		return "SCR"
	case ModeGauge:
		return "Gauge"
	case ModeFreedive:
		return "Freedive"
	default:
		return "Unknown"
	}
}

const (
	WaterFresh WaterType = iota + 1
	WaterSalt
)

func (w WaterType) String() string {
	switch w {
	case WaterFresh:
		return "Fresh"
	case WaterSalt:
		return "Salt"
	default:
		return "Unknown"
	}
}

// Deco sample classification.
const (
	DecoNDL DecoType = iota + 1
	DecoStop
	DecoSafetyStop
	DecoDeepStop
)

func (d DecoType) String() string {
	switch d {
	case DecoNDL:
		return "NDL"
	case DecoStop:
		return "Deco stop"
	case DecoSafetyStop:
		return "Safety stop"
	case DecoDeepStop:
		return "Deep stop"
	default:
		return "Unknown"
	}
}

// Whole-dive fields queryable through Parser.Field.
const (
	FieldDivetime FieldType = iota + 1
	FieldMaxDepth
	FieldAvgDepth
	FieldTemperatureMinimum
	FieldTemperatureMaximum
	FieldAtmospheric
	FieldSalinity
	FieldDiveMode
	FieldDecoModel
	FieldGasMixCount
	FieldGasMix
	FieldTankCount
	FieldTank
	FieldLocation
)

func (f FieldType) String() string {
	switch f {
	case FieldDivetime:
		return "Divetime"
	case FieldMaxDepth:
		return "MaxDepth"
	case FieldAvgDepth:
		return "AvgDepth"
	case FieldTemperatureMinimum:
		return "TemperatureMinimum"
	case FieldTemperatureMaximum:
		return "TemperatureMaximum"
	case FieldAtmospheric:
		return "Atmospheric"
	case FieldSalinity:
		return "Salinity"
	case FieldDiveMode:
		return "DiveMode"
	case FieldDecoModel:
		return "DecoModel"
	case FieldGasMixCount:
		return "GasMixCount"
	case FieldGasMix:
		return "GasMix"
	case FieldTankCount:
		return "TankCount"
	case FieldTank:
		return "Tank"
	case FieldLocation:
		return "Location"
	default:
		return "Unknown"
	}
}

// Tank volume bookkeeping units.
const (
	TankNone TankUnits = iota
	TankMetric
	TankImperial
)

func (t TankUnits) String() string {
	switch t {
	case TankNone:
		return "None"
	case TankMetric:
		return "Metric"
	case TankImperial:
		return "Imperial"
	default:
		return "Unknown"
	}
}

// Gas usage tags; UsageNone means the device recorded no role.
const (
	UsageNone GasUsage = iota
	UsageOxygen
	UsageDiluent
)

func (u GasUsage) String() string {
	switch u {
	case UsageNone:
		return "None"
	case UsageOxygen:
		return "Oxygen"
	case UsageDiluent:
		return "Diluent"
	default:
		return "Unknown"
	}
}
