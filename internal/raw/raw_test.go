package raw

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/divewire/errs"
)

func TestLoads(t *testing.T) {
	data := []byte{0x34, 0x12, 0x78, 0x56}

	require.Equal(t, uint16(0x1234), U16LE(data[0:2]))
	require.Equal(t, uint16(0x3412), U16BE(data[0:2]))
	require.Equal(t, uint32(0x781234), U24LE(data[0:3]))
	require.Equal(t, uint32(0x341278), U24BE(data[0:3]))
	require.Equal(t, uint32(0x56781234), U32LE(data))
	require.Equal(t, uint32(0x34127856), U32BE(data))
	// Word-big-endian: LE halves 0x1234 and 0x5678, high word first.
	require.Equal(t, uint32(0x12345678), U32WordBE(data))
}

func TestBCD(t *testing.T) {
	require.Equal(t, uint8(0), BCD(0x00))
	require.Equal(t, uint8(59), BCD(0x59))
	require.Equal(t, uint8(99), BCD(0x99))
	require.Equal(t, uint8(7), BCD(0x07))
}

func TestSignExtend(t *testing.T) {
	// Exhaustive over small widths, spot checks above.
	for n := uint(1); n <= 16; n++ {
		limit := uint32(1) << n
		for v := uint32(0); v < limit; v++ {
			got := SignExtend(v, n)

			var want int32
			if v >= limit/2 {
				want = int32(v) - int32(limit)
			} else {
				want = int32(v)
			}
			require.Equal(t, want, got, "n=%d v=%d", n, v)
		}
	}

	require.Equal(t, int32(-1), SignExtend(0xffffffff, 32))
	require.Equal(t, int32(-1), SignExtend(0x01ffff, 17))
	require.Equal(t, int32(0x00ffff), SignExtend(0x00ffff, 17))
}

func TestAllEqual(t *testing.T) {
	require.True(t, AllEqual(nil, 0xff))
	require.True(t, AllEqual([]byte{0xff, 0xff}, 0xff))
	require.False(t, AllEqual([]byte{0xff, 0xfe}, 0xff))
}

func TestHexDump(t *testing.T) {
	require.Equal(t, "", HexDump(nil))
	require.Equal(t, "de ad be ef", HexDump([]byte{0xde, 0xad, 0xbe, 0xef}))
}

func TestBuffer(t *testing.T) {
	buf := NewBuffer([]byte{0x01, 0x02, 0x03, 0x04})

	v8, err := buf.U8At(3)
	require.NoError(t, err)
	require.Equal(t, uint8(0x04), v8)

	v16, err := buf.U16LEAt(1)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0302), v16)

	v32, err := buf.U32BEAt(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v32)

	_, err = buf.U32LEAt(1)
	require.ErrorIs(t, err, errs.ErrDataFormat)

	_, err = buf.U8At(-1)
	require.ErrorIs(t, err, errs.ErrDataFormat)

	_, err = buf.Slice(2, 3)
	require.ErrorIs(t, err, errs.ErrDataFormat)
}
