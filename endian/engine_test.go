package endian

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngines(t *testing.T) {
	data := []byte{0x34, 0x12, 0xcd, 0xab}

	le := GetLittleEndianEngine()
	require.Equal(t, uint16(0x1234), le.Uint16(data[0:2]))
	require.Equal(t, uint32(0xabcd1234), le.Uint32(data))

	be := GetBigEndianEngine()
	require.Equal(t, uint16(0x3412), be.Uint16(data[0:2]))
	require.Equal(t, uint32(0x3412cdab), be.Uint32(data))
}

func TestAppend(t *testing.T) {
	le := GetLittleEndianEngine()
	buf := le.AppendUint16(nil, 0x1234)
	require.Equal(t, []byte{0x34, 0x12}, buf)

	be := GetBigEndianEngine()
	buf = be.AppendUint32(nil, 0x44535452)
	require.Equal(t, []byte{'D', 'S', 'T', 'R'}, buf)
}
