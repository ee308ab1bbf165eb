// Package errs defines the sentinel errors shared by every divewire
// decoder. Callers classify failures with errors.Is; decoders attach
// context with fmt.Errorf("...: %w", ...) wrapping.
package errs

import "errors"

var (
	// ErrInvalidArgs reports an invalid argument from the caller, such as
	// a nil blob or an out-of-range field index.
	ErrInvalidArgs = errors.New("divewire: invalid arguments")

	// ErrNoMemory reports that a decoder refused to allocate an
	// unreasonable amount of memory for a declared record count.
	ErrNoMemory = errors.New("divewire: out of memory")

	// ErrDataFormat reports a malformed dive blob: short input, bad
	// signature, CRC mismatch, record misalignment, capacity overflow or
	// a timestamp regression beyond the family tolerance. The dive is
	// unusable and subsequent queries on the same parser fail.
	ErrDataFormat = errors.New("divewire: data format error")

	// ErrUnsupported reports a field the device did not record (for
	// example a GPS location on a computer without a receiver). It is a
	// per-field condition, not a parse failure.
	ErrUnsupported = errors.New("divewire: unsupported field")

	// ErrCancelled reports that the caller's cancel flag was observed
	// between records and the decode stopped early.
	ErrCancelled = errors.New("divewire: cancelled")
)
