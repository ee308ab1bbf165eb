package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

func mcleanBlob(t *testing.T) []byte {
	t.Helper()

	blob := make([]byte, mcleanHeaderSize)
	le := func(off int, v uint32, n int) {
		for i := 0; i < n; i++ {
			blob[off+i] = byte(v >> (8 * i))
		}
	}

	le(mcleanTimestamp, 0, 4)      // 2000-01-01 00:00:00 UTC
	le(mcleanStart, 0, 4)          //
	le(mcleanEnd, 600, 4)          // divetime 600 s
	le(mcleanAtmospheric, 1013, 2) //
	blob[mcleanDensity] = 1        // salt, 1020 g/l
	blob[mcleanMode] = 0           // REC
	blob[mcleanGasmixes] = 21      // air
	le(mcleanNSamples, 2, 2)       //
	le(mcleanInterval, 300, 2)     //

	blob = append(blob,
		100, 0, 20, 0, // 100 mbar, 20 C
		150, 0, 20, 0, // 150 mbar, 20 C
	)

	return blob
}

func TestMcLeanExtreme(t *testing.T) {
	p, err := NewMcLeanExtreme(mcleanBlob(t), 0)
	require.NoError(t, err)

	dt, err := p.Datetime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), dt)

	v, err := p.Field(format.FieldDivetime, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(600), v.Duration)

	v, err = p.Field(format.FieldMaxDepth, 0)
	require.NoError(t, err)
	require.InDelta(t, 150.0*100.0/(1020.0*gravity), v.Float, 1e-9)

	v, err = p.Field(format.FieldDiveMode, 0)
	require.NoError(t, err)
	require.Equal(t, format.ModeOpenCircuit, v.DiveMode)

	v, err = p.Field(format.FieldSalinity, 0)
	require.NoError(t, err)
	require.Equal(t, format.WaterSalt, v.Salinity.Type)
	require.Equal(t, 1020.0, v.Salinity.Density)

	v, err = p.Field(format.FieldGasMixCount, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)

	v, err = p.Field(format.FieldGasMix, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(21), v.GasMix.Oxygen)

	_, err = p.Field(format.FieldLocation, 0)
	require.ErrorIs(t, err, errs.ErrUnsupported)

	rec := &sample.Recorder{}
	require.NoError(t, p.Samples(rec))
	require.Equal(t, []uint32{300, 600}, rec.Times())
	require.Len(t, rec.Depths(), 2)
}

func TestMcLeanExtremeShortHeader(t *testing.T) {
	_, err := NewMcLeanExtreme(make([]byte, 0x20), 0)
	require.ErrorIs(t, err, errs.ErrDataFormat)
}

func TestMcLeanExtremeTruncatedSamples(t *testing.T) {
	blob := mcleanBlob(t)
	_, err := NewMcLeanExtreme(blob[:len(blob)-4], 0)
	require.ErrorIs(t, err, errs.ErrDataFormat)
}

func TestMcLeanExtremeFieldIdempotent(t *testing.T) {
	p, err := NewMcLeanExtreme(mcleanBlob(t), 0)
	require.NoError(t, err)

	a, err := p.Field(format.FieldMaxDepth, 0)
	require.NoError(t, err)
	b, err := p.Field(format.FieldMaxDepth, 0)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
