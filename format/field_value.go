package format

// Value holds the result of a Parser.Field query. The populated member
// depends on the requested FieldType:
//
//	FieldDivetime                       Duration (seconds)
//	FieldMaxDepth, FieldAvgDepth        Float (meters)
//	FieldTemperatureMinimum/Maximum     Float (Celsius)
//	FieldAtmospheric                    Float (bar)
//	FieldGasMixCount, FieldTankCount    Count
//	FieldDiveMode                       DiveMode
//	FieldSalinity                       Salinity
//	FieldDecoModel                      DecoModel
//	FieldGasMix                         GasMix
//	FieldTank                           Tank
//	FieldLocation                       Location
type Value struct {
	Duration  uint32
	Float     float64
	Count     int
	DiveMode  DiveMode
	Salinity  Salinity
	DecoModel DecoModel
	GasMix    GasMix
	Tank      Tank
	Location  Location
}
