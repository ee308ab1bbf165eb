package parser

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

func smartHeader(halfsec uint32) []byte {
	hdr := make([]byte, smartHeaderSize)
	binary.LittleEndian.PutUint32(hdr[smartTimestamp:], halfsec)
	binary.LittleEndian.PutUint16(hdr[smartAtm:], 1013)
	hdr[smartGasmixes] = 21
	hdr[smartMode] = 0

	return hdr
}

// Scenario from the Smart Pro prefix stream:
//
//	TIME(60)             '110' + 5 high bits + 1 extra byte
//	ABS_DEPTH(500)       '11110' + 2 extra bytes (calibrates to 5 m)
//	DELTA_DEPTH(+50)     '0' + 7 high bits + 1 extra byte (+1 m)
//	DELTA_DEPTH(-100)    same, two's complement (-2 m)
//	ABS_TEMP(50)         '111110' + 2 extra bytes (20.0 C)
func TestUwatecSmartProStream(t *testing.T) {
	blob := smartHeader(0)
	blob = append(blob,
		0xc0, 60, // TIME: 60 s gap
		0xf0, 0x01, 0xf4, // ABS_DEPTH: 500
		0x00, 50, // DELTA_DEPTH: +50
		0x7f, 0x9c, // DELTA_DEPTH: -100 (15-bit two's complement)
		0xf8, 0x00, 50, // ABS_TEMP: 50
	)

	p, err := NewUwatecSmart(blob, ModelSmartPro)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))

	require.Equal(t, []uint32{60, 64, 68}, rec.Times())
	require.Equal(t, []float64{0, 1, -1}, rec.Depths())

	var temps []float64
	for _, s := range rec.Samples {
		if s.Kind == sample.KindTemperature {
			temps = append(temps, s.Temperature)
		}
	}
	require.Equal(t, []float64{20.0}, temps)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), dt)
}

func TestUwatecSmartTruncatedRecord(t *testing.T) {
	blob := smartHeader(0)
	blob = append(blob, 0xf0, 0x01) // ABS_DEPTH missing its second byte

	p, err := NewUwatecSmart(blob, ModelSmartPro)
	require.NoError(t, err)
	require.ErrorIs(t, p.Samples(&sample.Recorder{}), errs.ErrDataFormat)
}

func TestUwatecSmartDerivedDivetime(t *testing.T) {
	blob := smartHeader(0)
	blob = append(blob,
		0xf0, 0x01, 0xf4, // ABS_DEPTH
		0x00, 50, // DELTA_DEPTH
	)

	p, err := NewUwatecSmart(blob, ModelSmartPro)
	require.NoError(t, err)

	v, err := p.Field(format.FieldDivetime, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(2*smartInterval), v.Duration)
}

func TestUwatecSmartComPressure(t *testing.T) {
	blob := smartHeader(0)
	blob = append(blob,
		0xfc, 0x03, 0x20, // '1111110' + ignored bit: ABS_PRESSURE 800 -> 200 bar
		0xf8, 0x01, 0xf4, // '111110': ABS_DEPTH 500
		0xbf, 0xfc, // '10' + 6 bits: DELTA_PRESSURE -4 -> -1 bar
	)

	p, err := NewUwatecSmart(blob, ModelSmartCom)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))

	var pressures []float64
	for _, s := range rec.Samples {
		if s.Kind == sample.KindPressure {
			pressures = append(pressures, s.Pressure.Value)
		}
	}
	require.Equal(t, []float64{200, 199}, pressures)

	v, err := p.Field(format.FieldTankCount, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)

	v, err = p.Field(format.FieldTank, 0)
	require.NoError(t, err)
	require.Equal(t, 200.0, v.Tank.BeginPressure)
	require.Equal(t, 199.0, v.Tank.EndPressure)
}

func TestUwatecGalileoStream(t *testing.T) {
	blob := smartHeader(7200) // one hour in half-seconds
	blob = append(blob,
		0xe0, 0x01, 0xf4, // ABS_DEPTH 500 -> calibration 5 m
		0x32,       // DELTA_DEPTH +50 -> +1 m
		0xf8, 72,   // heartrate 72
		0xf9, 0x01, 0x0e, // bearing 270
		0xfa, 0x03, 0x20, // ABS_PRESSURE 800 -> 200 bar
	)

	p, err := NewUwatecSmart(blob, ModelGalileoSol)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))

	require.Equal(t, []uint32{0, 4}, rec.Times())
	require.Equal(t, []float64{0, 1}, rec.Depths())

	var heart, bearing uint32
	for _, s := range rec.Samples {
		switch s.Kind {
		case sample.KindHeartbeat:
			heart = s.Heartbeat
		case sample.KindBearing:
			bearing = s.Bearing
		}
	}
	require.Equal(t, uint32(72), heart)
	require.Equal(t, uint32(270), bearing)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2000, 1, 1, 1, 0, 0, 0, time.UTC), dt)
}

func TestUwatecGalileoUnknownByte(t *testing.T) {
	blob := smartHeader(0)
	blob = append(blob, 0xff)

	p, err := NewUwatecSmart(blob, ModelGalileoSol)
	require.NoError(t, err)
	require.ErrorIs(t, p.Samples(&sample.Recorder{}), errs.ErrDataFormat)
}

func TestUwatecSmartUnknownModel(t *testing.T) {
	_, err := NewUwatecSmart(smartHeader(0), 0x99)
	require.ErrorIs(t, err, errs.ErrInvalidArgs)
}
