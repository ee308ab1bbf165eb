package compress

// ZstdCompressor compresses archived blobs with Zstandard. Best ratio
// of the built-in codecs; the right choice for long-term logbook
// retention.
//
// The implementation is selected at build time: the cgo build links
// valyala/gozstd, pure-Go builds fall back to klauspost/compress/zstd.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)
