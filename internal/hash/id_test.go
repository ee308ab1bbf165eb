package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiveID(t *testing.T) {
	a := DiveID([]byte{0x01, 0x02, 0x03})
	b := DiveID([]byte{0x01, 0x02, 0x03})
	c := DiveID([]byte{0x01, 0x02, 0x04})

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.NotZero(t, a)
}
