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

func iconhdHeader(nsamples int) []byte {
	hdr := make([]byte, iconhdHeaderSize)
	binary.LittleEndian.PutUint32(hdr[iconhdTimestamp:], 600_000_000)
	binary.LittleEndian.PutUint32(hdr[iconhdDivetime:], uint32(nsamples*5))
	binary.LittleEndian.PutUint32(hdr[iconhdMaxDepth:], 22500) // 22.5 m
	binary.LittleEndian.PutUint16(hdr[iconhdAtm:], 1000)
	hdr[iconhdMode] = 0
	hdr[iconhdWater] = 1
	hdr[iconhdGasmixes] = 21
	hdr[iconhdGasmixes+2] = 50 // EAN50 deco gas
	binary.LittleEndian.PutUint16(hdr[iconhdInterval:], 5)
	binary.LittleEndian.PutUint16(hdr[iconhdNSamples:], uint16(nsamples))

	return hdr
}

func iconhdSample(size int, depth uint16, temp int16, mix byte) []byte {
	rec := make([]byte, size)
	binary.LittleEndian.PutUint16(rec[iconhdSmpDepth:], depth)
	binary.LittleEndian.PutUint16(rec[iconhdSmpTemp:], uint16(temp))
	if size > iconhdSmpMix {
		rec[iconhdSmpMix] = mix
	}

	return rec
}

func TestMaresIconHD(t *testing.T) {
	blob := iconhdHeader(3)
	blob = append(blob, iconhdSample(8, 1000, 241, 0)...)
	blob = append(blob, iconhdSample(8, 2250, 235, 0)...)
	blob = append(blob, iconhdSample(8, 600, 240, 1)...)

	p, err := NewMaresIconHD(blob, ModelIconHD)
	require.NoError(t, err)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(600_000_000*time.Second), dt)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{5, 10, 15}, rec.Times())
	require.Equal(t, []float64{10.0, 22.5, 6.0}, rec.Depths())

	var gasmixes []int
	for _, s := range rec.Samples {
		if s.Kind == sample.KindGasMix {
			gasmixes = append(gasmixes, s.GasMix)
		}
	}
	require.Equal(t, []int{0, 1}, gasmixes)
}

func TestMaresIconHDQuadAir(t *testing.T) {
	blob := iconhdHeader(2)
	// Declare the first header tank: transmitter 0xcafe, 12 l, active,
	// linked to mix 0.
	off := iconhdTanks
	binary.LittleEndian.PutUint32(blob[off+iconhdTankID:], 0xcafe)
	binary.LittleEndian.PutUint16(blob[off+iconhdTankVolume:], 120)
	blob[off+iconhdTankWork] = 116 // 232 bar
	blob[off+iconhdTankFlags] = 0x01

	s1 := iconhdSample(12, 1500, 200, 0)
	binary.LittleEndian.PutUint16(s1[iconhdSmpPressure:], 20050) // 200.5 bar
	blob = append(blob, s1...)

	s2 := iconhdSample(12, 1800, 195, 0)
	binary.LittleEndian.PutUint16(s2[iconhdSmpPressure:], 19000) // 190 bar
	blob = append(blob, s2...)

	p, err := NewMaresIconHD(blob, ModelQuadAir)
	require.NoError(t, err)

	v, err := p.Field(format.FieldTankCount, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)

	v, err = p.Field(format.FieldTank, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(120), v.Tank.Volume)
	require.Equal(t, 232.0, v.Tank.WorkPressure)
	require.Equal(t, 200.5, v.Tank.BeginPressure)
	require.Equal(t, 190.0, v.Tank.EndPressure)
	require.Equal(t, 0, v.Tank.GasMix)
}

func TestMaresIconHDSmartApnea(t *testing.T) {
	blob := iconhdHeader(2)
	blob = append(blob, iconhdSample(6, 800, 190, 0)...)
	blob = append(blob, iconhdSample(6, 1200, 185, 0)...)

	p, err := NewMaresIconHD(blob, ModelSmartApnea)
	require.NoError(t, err)

	v, err := p.Field(format.FieldDiveMode, 0)
	require.NoError(t, err)
	require.Equal(t, format.ModeFreedive, v.DiveMode)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []float64{8.0, 12.0}, rec.Depths())
}

func TestMaresIconHDUnknownModel(t *testing.T) {
	_, err := NewMaresIconHD(iconhdHeader(0), 0x7f)
	require.ErrorIs(t, err, errs.ErrInvalidArgs)
}

func TestMaresIconHDBadMixIndex(t *testing.T) {
	blob := iconhdHeader(1)
	blob = append(blob, iconhdSample(8, 1000, 200, 4)...) // only 2 mixes declared

	p, err := NewMaresIconHD(blob, ModelIconHD)
	require.NoError(t, err)
	require.ErrorIs(t, p.Samples(&sample.Recorder{}), errs.ErrDataFormat)
}
