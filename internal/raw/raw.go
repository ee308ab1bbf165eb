// Package raw provides the primitive byte loads every family decoder is
// built on: fixed-width integer reads at an offset, BCD decode, N-bit
// sign extension and slice predicates.
//
// The functions here are total: callers guarantee bounds. The decoders
// above bounds-check through Buffer, which turns a short read into a
// data-format error instead of a panic.
package raw

import (
	"fmt"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/internal/pool"
)

// U16LE loads a little-endian 16-bit value.
func U16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// U16BE loads a big-endian 16-bit value.
func U16BE(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// U24LE loads a little-endian 24-bit value.
func U24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// U24BE loads a big-endian 24-bit value.
func U24BE(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// U32LE loads a little-endian 32-bit value.
func U32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// U32BE loads a big-endian 32-bit value.
func U32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// U32WordBE loads two little-endian 16-bit halves stored in big-endian
// word order, a layout several Oceanic models use for 32-bit fields.
func U32WordBE(b []byte) uint32 {
	return uint32(U16LE(b[0:2]))<<16 | uint32(U16LE(b[2:4]))
}

// BCD decodes one binary-coded-decimal byte as high nibble times ten
// plus low nibble, giving 0..99 for valid BCD. Nibbles above 9 are not
// checked or clamped (0x0f decodes to 15).
func BCD(b byte) uint8 {
	hi := (b >> 4) & 0x0f
	lo := b & 0x0f

	return hi*10 + lo
}

// SignExtend interprets the low n bits of value as a two's-complement
// number and returns it widened to 32 bits. n must be in 1..32.
func SignExtend(value uint32, n uint) int32 {
	if n == 0 || n > 32 {
		return int32(value)
	}
	if n < 32 && value&(1<<(n-1)) != 0 {
		value |= ^uint32(0) << n
	}

	return int32(value)
}

// AllEqual reports whether every byte of b equals v. An empty slice is
// all-equal by convention.
func AllEqual(b []byte, v byte) bool {
	for _, c := range b {
		if c != v {
			return false
		}
	}

	return true
}

// HexDump renders data as space-separated hex bytes for diagnostics,
// e.g. unknown-event warnings. The assembly runs through the scratch
// pool so warning paths stay allocation-light.
func HexDump(data []byte) string {
	const digits = "0123456789abcdef"

	bb := pool.GetScratchBuffer()
	defer pool.PutScratchBuffer(bb)

	for i, c := range data {
		if i > 0 {
			_ = bb.WriteByte(' ')
		}
		_ = bb.WriteByte(digits[c>>4])
		_ = bb.WriteByte(digits[c&0x0f])
	}

	return bb.String()
}

// Buffer is a bounds-checked view over a dive blob. Reads past the end
// return errs.ErrDataFormat instead of panicking, so the sample loops
// stay safe against truncated or misaligned input.
type Buffer struct {
	data []byte
}

// NewBuffer wraps data without copying.
func NewBuffer(data []byte) Buffer {
	return Buffer{data: data}
}

// Len returns the blob length.
func (b Buffer) Len() int {
	return len(b.data)
}

// Bytes returns the underlying blob.
func (b Buffer) Bytes() []byte {
	return b.data
}

// Slice returns data[off:off+n] after bounds validation.
func (b Buffer) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return nil, fmt.Errorf("%w: read of %d bytes at offset %d beyond size %d",
			errs.ErrDataFormat, n, off, len(b.data))
	}

	return b.data[off : off+n], nil
}

// U8At reads one byte at off.
func (b Buffer) U8At(off int) (uint8, error) {
	s, err := b.Slice(off, 1)
	if err != nil {
		return 0, err
	}

	return s[0], nil
}

// U16LEAt reads a little-endian 16-bit value at off.
func (b Buffer) U16LEAt(off int) (uint16, error) {
	s, err := b.Slice(off, 2)
	if err != nil {
		return 0, err
	}

	return U16LE(s), nil
}

// U16BEAt reads a big-endian 16-bit value at off.
func (b Buffer) U16BEAt(off int) (uint16, error) {
	s, err := b.Slice(off, 2)
	if err != nil {
		return 0, err
	}

	return U16BE(s), nil
}

// U24LEAt reads a little-endian 24-bit value at off.
func (b Buffer) U24LEAt(off int) (uint32, error) {
	s, err := b.Slice(off, 3)
	if err != nil {
		return 0, err
	}

	return U24LE(s), nil
}

// U32LEAt reads a little-endian 32-bit value at off.
func (b Buffer) U32LEAt(off int) (uint32, error) {
	s, err := b.Slice(off, 4)
	if err != nil {
		return 0, err
	}

	return U32LE(s), nil
}

// U32BEAt reads a big-endian 32-bit value at off.
func (b Buffer) U32BEAt(off int) (uint32, error) {
	s, err := b.Slice(off, 4)
	if err != nil {
		return 0, err
	}

	return U32BE(s), nil
}

// U32WordBEAt reads a word-big-endian 32-bit value at off.
func (b Buffer) U32WordBEAt(off int) (uint32, error) {
	s, err := b.Slice(off, 4)
	if err != nil {
		return 0, err
	}

	return U32WordBE(s), nil
}
