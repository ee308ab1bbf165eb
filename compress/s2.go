package compress

import "github.com/klauspost/compress/s2"

// S2Compressor compresses archived blobs with S2, a faster
// Snappy-compatible codec. A good default when archive reads dominate.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// Compress compresses the blob using S2.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress restores an S2-compressed blob.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
