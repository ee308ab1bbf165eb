package parser

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

func apos4Sample(ts uint32, depth uint16, temp int16, o2, he byte) []byte {
	rec := make([]byte, apos4SampleSize)
	binary.LittleEndian.PutUint32(rec[apos4Time:], ts)
	binary.LittleEndian.PutUint16(rec[apos4Depth:], depth)
	binary.LittleEndian.PutUint16(rec[apos4Temp:], uint16(temp))
	rec[apos4O2] = o2
	rec[apos4He] = he
	rec[apos4Algorithm] = 0 // Buhlmann
	rec[apos4GfHigh] = 85
	rec[apos4GfLow] = 30
	binary.LittleEndian.PutUint16(rec[apos4TTS:], 300)
	binary.LittleEndian.PutUint16(rec[apos4CNS:], 1200) // 12%
	rec[apos4Tank] = apos4TankNone
	binary.LittleEndian.PutUint16(rec[apos4Bearing:], 0xffff)

	return rec
}

func ix3mBlob(nsamples int) []byte {
	hdr := make([]byte, idiveHeaderSize)
	binary.LittleEndian.PutUint32(hdr[idiveTimestamp:], 3600)
	binary.LittleEndian.PutUint32(hdr[idiveFirmware:], apos4Firmware)
	binary.LittleEndian.PutUint16(hdr[idiveNSamples:], uint16(nsamples))
	binary.LittleEndian.PutUint16(hdr[idiveDivetime:], 50)
	binary.LittleEndian.PutUint16(hdr[idiveMaxDepth:], 123) // 12.3 m
	binary.LittleEndian.PutUint16(hdr[idiveAtm:], 10130)    // 1.013 bar, APOS4 scale
	hdr[idiveMode] = 0
	hdr[idiveWater] = 1
	hdr[idiveGasmixes] = 21

	return hdr
}

func TestDivesystemIX3MApos4(t *testing.T) {
	blob := ix3mBlob(5)
	blob = append(blob, apos4Sample(0, 50, 152, 21, 0)...)
	blob = append(blob, apos4Sample(10, 100, 150, 21, 0)...)

	// 300-bar transmitter on tank 1, raw pressure 100.
	s := apos4Sample(20, 123, 148, 21, 0)
	s[apos4Tank] = apos4Tank300Bar | 0x01
	s[apos4Pressure] = 100
	blob = append(blob, s...)

	// Gas change to trimix mid-dive.
	blob = append(blob, apos4Sample(30, 110, 148, 18, 45)...)
	blob = append(blob, apos4Sample(40, 80, 149, 18, 45)...)

	p, err := NewDivesystemIDive(blob, ModelIX3M)
	require.NoError(t, err)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2008, 1, 1, 1, 0, 0, 0, time.UTC), dt)

	v, err := p.Field(format.FieldAtmospheric, 0)
	require.NoError(t, err)
	require.InDelta(t, 1.013, v.Float, 1e-9)

	v, err = p.Field(format.FieldGasMixCount, 0)
	require.NoError(t, err)
	require.Equal(t, 2, v.Count)

	v, err = p.Field(format.FieldTankCount, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)

	v, err = p.Field(format.FieldTank, 0)
	require.NoError(t, err)
	require.Equal(t, 200.0, v.Tank.EndPressure) // doubled by the 300-bar flag

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{0, 10, 20, 30, 40}, rec.Times())

	var pressures []float64
	var cns []float64
	gasChanges := 0
	for _, s := range rec.Samples {
		switch s.Kind {
		case sample.KindPressure:
			pressures = append(pressures, s.Pressure.Value)
		case sample.KindGasMix:
			gasChanges++
		case sample.KindCNS:
			cns = append(cns, s.CNS)
		}
	}
	require.Equal(t, []float64{200}, pressures)
	require.Equal(t, 2, gasChanges) // initial air, then trimix
	require.Len(t, cns, 5)
	require.Equal(t, 12.0, cns[0])

	v, err = p.Field(format.FieldDecoModel, 0)
	require.NoError(t, err)
	require.Equal(t, format.DecoModelBuhlmann, v.DecoModel.Type)
	require.Equal(t, uint8(30), v.DecoModel.GfLow)
}

func TestDivesystemIX3MInfoRecord(t *testing.T) {
	blob := ix3mBlob(2)
	blob = append(blob, apos4Sample(0, 50, 150, 21, 0)...)

	info := make([]byte, apos4SampleSize)
	binary.LittleEndian.PutUint16(info[apos4RecType:], 1)
	binary.LittleEndian.PutUint32(info[apos4Latitude:], uint32(int32(451234567)))   // 45.1234567
	lon := int32(-73123456)
	binary.LittleEndian.PutUint32(info[apos4Longitude:], uint32(lon)) // -7.3123456
	binary.LittleEndian.PutUint16(info[apos4Timezone:], uint16(int16(120)))        // +2 h
	blob = append(blob, info...)

	p, err := NewDivesystemIDive(blob, ModelIX3M)
	require.NoError(t, err)

	v, err := p.Field(format.FieldLocation, 0)
	require.NoError(t, err)
	require.InDelta(t, 45.1234567, v.Location.Latitude, 1e-9)
	require.InDelta(t, -7.3123456, v.Location.Longitude, 1e-9)

	dt, err := p.Datetime()
	require.NoError(t, err)
	_, offset := dt.Zone()
	require.Equal(t, 2*3600, offset)
}

func TestDivesystemIDivePreApos4(t *testing.T) {
	hdr := ix3mBlob(1)
	binary.LittleEndian.PutUint32(hdr[idiveFirmware:], 30_000_000)
	binary.LittleEndian.PutUint16(hdr[idiveAtm:], 1013) // 1/1000 scale pre-APOS4

	rec := apos4Sample(0, 50, 150, 21, 0)[:idiveSampleSize]
	blob := append(hdr, rec...)

	p, err := NewDivesystemIDive(blob, ModelIX3M)
	require.NoError(t, err)

	v, err := p.Field(format.FieldAtmospheric, 0)
	require.NoError(t, err)
	require.InDelta(t, 1.013, v.Float, 1e-9)

	recd := &sample.Recorder{}
	require.NoError(t, p.Samples(recd))
	require.Equal(t, []uint32{0}, recd.Times())
}
