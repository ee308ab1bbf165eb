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

func oceanicHeader(nsamples int, intervalIdx byte) []byte {
	hdr := make([]byte, oceanicHeaderSize)
	hdr[oceanicYear] = 24
	hdr[oceanicMonth] = 6
	hdr[oceanicDay] = 1
	hdr[oceanicHour] = 10
	hdr[oceanicMinute] = 15
	hdr[oceanicInterval] = intervalIdx
	hdr[oceanicOxygen] = 0 // air
	binary.LittleEndian.PutUint16(hdr[oceanicNSamples:], uint16(nsamples))

	return hdr
}

func TestOceanicAtom2(t *testing.T) {
	blob := oceanicHeader(2, 1) // 15 s interval

	s1 := make([]byte, atom2SampleSize)
	binary.LittleEndian.PutUint16(s1[0:], 16*33) // 33 ft
	s1[2] = 68                                   // 20 C
	binary.LittleEndian.PutUint16(s1[4:], 3000)  // psi
	blob = append(blob, s1...)

	s2 := make([]byte, atom2SampleSize)
	binary.LittleEndian.PutUint16(s2[0:], 16*66) // 66 ft
	s2[2] = 50                                   // 10 C
	binary.LittleEndian.PutUint16(s2[4:], 2800)  // psi
	s2[6] = 0x01                                 // ascent alarm
	blob = append(blob, s2...)

	p, err := NewOceanicAtom2(blob, 0)
	require.NoError(t, err)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC), dt)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{15, 30}, rec.Times())
	require.InDelta(t, 33*feetToMeter, rec.Depths()[0], 1e-9)
	require.InDelta(t, 66*feetToMeter, rec.Depths()[1], 1e-9)

	v, err := p.Field(format.FieldMaxDepth, 0)
	require.NoError(t, err)
	require.InDelta(t, 66*feetToMeter, v.Float, 1e-9)

	v, err = p.Field(format.FieldTemperatureMinimum, 0)
	require.NoError(t, err)
	require.InDelta(t, 10.0, v.Float, 1e-9)

	v, err = p.Field(format.FieldTank, 0)
	require.NoError(t, err)
	require.Equal(t, format.TankImperial, v.Tank.Units)
	require.InDelta(t, 3000*format.PsiToBar, v.Tank.BeginPressure, 1e-9)
	require.InDelta(t, 2800*format.PsiToBar, v.Tank.EndPressure, 1e-9)

	v, err = p.Field(format.FieldGasMix, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(21), v.GasMix.Oxygen)
}

func TestOceanicVTProWordBE(t *testing.T) {
	blob := oceanicHeader(1, 0)

	s := make([]byte, vtproSampleSize)
	// Word-big-endian 32-bit value with depth in the high half.
	binary.LittleEndian.PutUint16(s[0:], 16*10) // high LE half
	s[6] = 41                                   // 5 C
	blob = append(blob, s...)

	p, err := NewOceanicVTPro(blob, 0)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.InDelta(t, 10*feetToMeter, rec.Depths()[0], 1e-9)
}

func TestOceanicVeo250(t *testing.T) {
	blob := oceanicHeader(3, 2) // 30 s interval
	for _, ft := range []uint16{16 * 20, 16 * 40, 16 * 30} {
		s := make([]byte, veo250SampleSize)
		binary.LittleEndian.PutUint16(s[0:], ft)
		s[2] = 59 // 15 C
		blob = append(blob, s...)
	}

	p, err := NewOceanicVeo250(blob, 0)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{30, 60, 90}, rec.Times())

	v, err := p.Field(format.FieldDivetime, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(90), v.Duration)
}

func TestOceanicBadInterval(t *testing.T) {
	_, err := NewOceanicAtom2(oceanicHeader(0, 9), 0)
	require.ErrorIs(t, err, errs.ErrDataFormat)
}
