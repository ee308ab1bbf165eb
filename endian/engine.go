// Package endian provides byte order utilities for the dive blob
// decoders.
//
// It combines the ByteOrder and AppendByteOrder interfaces from the
// standard encoding/binary package into a single EndianEngine interface,
// so a family decoder can hold one engine value matching the byte order
// its vendor uses on disk. Most families are little-endian; the framed
// Mares Genius log and a few Suunto headers read big-endian words.
//
// The returned engines are immutable and safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from
// encoding/binary into one interface. binary.LittleEndian and
// binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
