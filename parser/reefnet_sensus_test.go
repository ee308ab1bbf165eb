package parser

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

func sensusBlob() []byte {
	hdr := make([]byte, sensusHeaderSize)
	binary.LittleEndian.PutUint32(hdr[sensusTimestamp:], 100)
	binary.LittleEndian.PutUint16(hdr[sensusInterval:], 2)
	binary.LittleEndian.PutUint16(hdr[sensusNSamples:], 3)
	binary.LittleEndian.PutUint16(hdr[sensusAtm:], 1013)

	blob := hdr
	for _, s := range []struct {
		pressure uint16
		temp     int16
	}{
		{1013, 1850},  // at the surface
		{2026, 1430},  // ~10 m
		{1000, 1400},  // sensor noise above the surface: clamped
	} {
		blob = binary.LittleEndian.AppendUint16(blob, s.pressure)
		blob = binary.LittleEndian.AppendUint16(blob, uint16(s.temp))
	}

	return blob
}

func TestReefnetSensus(t *testing.T) {
	p, err := NewReefnetSensus(sensusBlob(), 0)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{2, 4, 6}, rec.Times())

	depths := rec.Depths()
	require.Equal(t, 0.0, depths[0])
	require.InDelta(t, 1013*100.0/(sensusDensity*gravity), depths[1], 1e-9)
	require.Equal(t, 0.0, depths[2])

	v, err := p.Field(format.FieldDiveMode, 0)
	require.NoError(t, err)
	require.Equal(t, format.ModeGauge, v.DiveMode)

	v, err = p.Field(format.FieldTemperatureMaximum, 0)
	require.NoError(t, err)
	require.InDelta(t, 18.5, v.Float, 1e-9)
}
