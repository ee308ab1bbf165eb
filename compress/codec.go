package compress

import "fmt"

// Type identifies the codec an archived dive blob was stored with.
type Type uint8

const (
	TypeNone Type = 0x1 // TypeNone stores the blob uncompressed.
	TypeZstd Type = 0x2 // TypeZstd uses Zstandard.
	TypeS2   Type = 0x3 // TypeS2 uses S2 (Snappy-compatible).
	TypeLZ4  Type = 0x4 // TypeLZ4 uses LZ4 block compression.
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Compressor compresses one archived dive blob.
//
// The returned slice is newly allocated and owned by the caller; the
// input is never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores an archived dive blob to the raw bytes the
// parser consumes. It validates the payload and fails on corrupted or
// mismatched input.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// GetCodec returns the built-in codec for the given type.
func GetCodec(t Type) (Codec, error) {
	switch t {
	case TypeNone:
		return NoOpCompressor{}, nil
	case TypeZstd:
		return ZstdCompressor{}, nil
	case TypeS2:
		return S2Compressor{}, nil
	case TypeLZ4:
		return LZ4Compressor{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// Encode frames data with a one-byte codec tag and the compressed
// payload. Archives produced by Encode round-trip through Decode.
func Encode(t Type, data []byte) ([]byte, error) {
	codec, err := GetCodec(t)
	if err != nil {
		return nil, err
	}

	payload, err := codec.Compress(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(t))

	return append(out, payload...), nil
}

// Decode sniffs the codec tag of an archived blob and returns the raw
// dive bytes. Untagged input (anything whose first byte is not a known
// tag) is returned as-is, so raw blobs pass through unchanged.
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	t := Type(data[0])
	if t < TypeNone || t > TypeLZ4 {
		return data, nil
	}

	codec, err := GetCodec(t)
	if err != nil {
		return nil, err
	}

	return codec.Decompress(data[1:])
}
