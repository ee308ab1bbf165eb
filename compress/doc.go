// Package compress provides transparent codecs for archived dive blobs.
//
// Dive computers hand over raw per-dive byte blobs; logbook software
// commonly stores those blobs compressed. This package frames a blob
// with a one-byte codec tag (zstd, s2, lz4 or none) so archives can be
// restored without knowing how they were written. The parser itself
// always consumes raw bytes; callers run Decode first when reading from
// an archive.
package compress
