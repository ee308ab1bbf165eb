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

func d9Header() []byte {
	hdr := make([]byte, d9HeaderSize)
	binary.LittleEndian.PutUint16(hdr[d9Year:], 2023)
	hdr[d9Month] = 9
	hdr[d9Day] = 12
	hdr[d9Hour] = 14
	hdr[d9Minute] = 5
	hdr[d9Interval] = 10
	hdr[d9Gasmixes] = 21   // air
	hdr[d9Gasmixes+2] = 18 // 18/45
	hdr[d9Gasmixes+3] = 45
	binary.LittleEndian.PutUint16(hdr[d9MaxDepth:], 3540) // 35.4 m
	binary.LittleEndian.PutUint16(hdr[d9Divetime:], 40)

	return hdr
}

func d9Sample(depth uint16, temp int8, event byte) []byte {
	rec := make([]byte, d9SampleSize)
	binary.LittleEndian.PutUint16(rec[0:], depth)
	rec[2] = byte(temp)
	rec[3] = event

	return rec
}

func TestSuuntoD9(t *testing.T) {
	blob := d9Header()
	blob = append(blob, d9Sample(1000, 12, 0)...)
	blob = append(blob, d9Sample(2000, 11, d9EventGasChange<<4|1)...)
	blob = append(blob, d9Sample(3540, 10, d9EventAscent<<4|2)...)
	blob = append(blob, d9Sample(500, 11, d9EventSafetyStop<<4)...)

	p, err := NewSuuntoD9(blob, ModelD9)
	require.NoError(t, err)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 9, 12, 14, 5, 0, 0, time.UTC), dt)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{10, 20, 30, 40}, rec.Times())
	require.Equal(t, []float64{10.0, 20.0, 35.4, 5.0}, rec.Depths())

	var gasmixes []int
	events := map[sample.EventType]int{}
	for _, s := range rec.Samples {
		switch s.Kind {
		case sample.KindGasMix:
			gasmixes = append(gasmixes, s.GasMix)
		case sample.KindEvent:
			events[s.Event.Type]++
		}
	}
	require.Equal(t, []int{1}, gasmixes)
	require.Equal(t, 1, events[sample.EventAscent])
	require.Equal(t, 1, events[sample.EventSafetyStop])
}

func TestSuuntoD9HelO2Shift(t *testing.T) {
	blob := d9Header()
	blob = append(blob, helO2Gate[:]...)
	blob = append(blob, make([]byte, helO2Shift-len(helO2Gate))...)
	blob = append(blob, d9Sample(1500, 8, 0)...)

	p, err := NewSuuntoD9(blob, ModelHelO2)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []float64{15.0}, rec.Depths())
}

func TestSuuntoD9MisalignedProfile(t *testing.T) {
	blob := d9Header()
	blob = append(blob, 0x01, 0x02)
	_, err := NewSuuntoD9(blob, ModelD9)
	require.ErrorIs(t, err, errs.ErrDataFormat)
}

func vyperHeader() []byte {
	hdr := make([]byte, vyperHeaderSize)
	hdr[vyperYear] = 22
	hdr[vyperMonth] = 3
	hdr[vyperDay] = 8
	hdr[vyperHour] = 11
	hdr[vyperMinute] = 45
	hdr[vyperInterval] = 20
	hdr[vyperOxygen] = 32

	return hdr
}

func TestSuuntoVyper(t *testing.T) {
	blob := vyperHeader()
	blob = append(blob,
		33,             // +33 ft
		vyperMarkTemp, 250, // -6 C
		33,                   // +66 ft
		vyperMarkBookmark,    //
		0xdf,                 // -33 ft
		vyperMarkGasChange, 50, // EAN50
		vyperMarkSurface, // back at 0
	)

	p, err := NewSuuntoVyper(blob, 0)
	require.NoError(t, err)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{20, 40, 60, 80}, rec.Times())
	require.InDelta(t, 66*feetToMeter, rec.Depths()[1], 1e-9)
	require.Equal(t, 0.0, rec.Depths()[3])

	v, err := p.Field(format.FieldGasMixCount, 0)
	require.NoError(t, err)
	require.Equal(t, 2, v.Count)

	v, err = p.Field(format.FieldTemperatureMinimum, 0)
	require.NoError(t, err)
	require.Equal(t, -6.0, v.Float)

	v, err = p.Field(format.FieldDivetime, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(80), v.Duration)
}

func TestSuuntoVyperNegativeDepth(t *testing.T) {
	blob := vyperHeader()
	blob = append(blob, 0xdf) // -33 ft from the surface

	p, err := NewSuuntoVyper(blob, 0)
	require.NoError(t, err)
	require.ErrorIs(t, p.Samples(&sample.Recorder{}), errs.ErrDataFormat)
}

func TestSuuntoSolution(t *testing.T) {
	blob := make([]byte, solutionHeaderSize)
	blob[solutionInterval] = 10
	blob[solutionMaxDepth] = 66
	blob = append(blob, 33, 66, solutionMarkSurface, solutionEnd)

	p, err := NewSuuntoSolution(blob, 0)
	require.NoError(t, err)

	// The Solution has no clock.
	_, err = p.Datetime()
	require.ErrorIs(t, err, errs.ErrUnsupported)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{10, 20, 30}, rec.Times())
	require.InDelta(t, 66*feetToMeter, rec.Depths()[1], 1e-9)
	require.Equal(t, 0.0, rec.Depths()[2])

	v, err := p.Field(format.FieldDivetime, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(30), v.Duration)
}

func TestSuuntoSolutionMissingEnd(t *testing.T) {
	blob := make([]byte, solutionHeaderSize)
	blob = append(blob, 33, 66)

	p, err := NewSuuntoSolution(blob, 0)
	require.NoError(t, err)
	require.ErrorIs(t, p.Samples(&sample.Recorder{}), errs.ErrDataFormat)
}
