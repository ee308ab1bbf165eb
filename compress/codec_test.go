package compress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleBlob fakes a fixed-stride dive profile: repetitive headers and
// slowly changing sample words, the shape real archives contain.
func sampleBlob(n int) []byte {
	blob := make([]byte, 0, n*4+32)
	for i := 0; i < 32; i++ {
		blob = append(blob, byte(i))
	}
	depth := uint16(0)
	for i := 0; i < n; i++ {
		depth += uint16(i % 7)
		blob = append(blob, byte(depth), byte(depth>>8), byte(20), 0x00)
	}

	return blob
}

func TestRoundTrip(t *testing.T) {
	blob := sampleBlob(512)

	for _, typ := range []Type{TypeNone, TypeZstd, TypeS2, TypeLZ4} {
		t.Run(typ.String(), func(t *testing.T) {
			archived, err := Encode(typ, blob)
			require.NoError(t, err)
			require.Equal(t, byte(typ), archived[0])

			restored, err := Decode(archived)
			require.NoError(t, err)
			require.Equal(t, blob, restored)
		})
	}
}

func TestDecodePassthrough(t *testing.T) {
	// A raw vendor blob whose first byte is not a codec tag must come
	// back untouched.
	raw := []byte{0xa5, 0x01, 0x02, 0x03}
	out, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestGetCodecUnknown(t *testing.T) {
	_, err := GetCodec(Type(0x7f))
	require.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	for _, typ := range []Type{TypeZstd, TypeS2, TypeLZ4} {
		codec, err := GetCodec(typ)
		require.NoError(t, err)

		out, err := codec.Compress(nil)
		require.NoError(t, err)
		require.Nil(t, out)

		out, err = codec.Decompress(nil)
		require.NoError(t, err)
		require.Nil(t, out)
	}
}
