// Package divewire decodes the binary per-dive blobs produced by dive
// computers into whole-dive fields and a time-ordered stream of sample
// events.
//
// Each supported vendor family has its own on-disk representation:
// fixed-stride records with per-model layout tables (Divesystem iDive,
// Mares Icon HD, Oceanic, McLean, Sporasub, Suunto, HW OSTC, Cressi,
// Reefnet), TLV-framed record logs with signatures and checksums
// (Divesoft Freedom, Mares Genius), or the Uwatec Smart bit-packed
// delta stream. The parser consumes already-materialized blobs; device
// transport and logbook extraction live elsewhere.
//
// # Basic Usage
//
// Decoding one dive:
//
//	p, err := divewire.NewParser(format.FamilyDivesoftFreedom, 0, blob)
//	if err != nil {
//	    return err
//	}
//	when, _ := p.Datetime()
//	depth, _ := p.Field(format.FieldMaxDepth, 0)
//	err = p.Samples(sample.SinkFunc(func(s sample.Sample) {
//	    fmt.Println(s.Kind, s.Time, s.Depth)
//	}))
//
// Parsers are idempotent and cheap to query repeatedly; one parser
// belongs to one goroutine at a time, but independent parsers can run
// concurrently. Use DecodeAll to fan a whole logbook out over a worker
// pool.
//
// # Package Structure
//
// This package provides convenient top-level wrappers. The parser
// package holds the family decoders, format the shared value types,
// sample the sink contract, compress the archived-blob codecs, and
// checksum/endian the wire-level primitives.
package divewire

import (
	"errors"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/hash"
	"github.com/arloliu/divewire/parser"
)

// Option configures a parser; see parser.WithWarnFunc and
// parser.WithCancel.
type Option = parser.Option

// WithWarnFunc installs a handler for diagnostic warnings.
func WithWarnFunc(fn func(format string, args ...any)) Option {
	return parser.WithWarnFunc(fn)
}

// WithCancel installs a cancellation probe polled between records.
func WithCancel(fn func() bool) Option {
	return parser.WithCancel(fn)
}

// NewParser constructs the decoder for one dive blob.
func NewParser(family format.Family, model uint32, data []byte, opts ...Option) (parser.Parser, error) {
	return parser.New(family, model, data, opts...)
}

// DiveID computes the 64-bit fingerprint of a dive blob, used to spot
// duplicate downloads of the same dive.
func DiveID(data []byte) uint64 {
	return hash.DiveID(data)
}

// SummaryInfo is the whole-dive digest produced by Summary.
type SummaryInfo struct {
	Datetime time.Time
	Divetime uint32 // seconds, 0 when not recorded
	MaxDepth float64
	Mode     format.DiveMode
	Mixes    []format.GasMix
	Tanks    []format.Tank
}

// Summary reads the common whole-dive fields from a parser, skipping
// the ones the dive did not record.
func Summary(p parser.Parser) (SummaryInfo, error) {
	var info SummaryInfo

	dt, err := p.Datetime()
	if err == nil {
		info.Datetime = dt
	} else if !errors.Is(err, errs.ErrUnsupported) {
		return SummaryInfo{}, err
	}

	if v, err := p.Field(format.FieldDivetime, 0); err == nil {
		info.Divetime = v.Duration
	}
	if v, err := p.Field(format.FieldMaxDepth, 0); err == nil {
		info.MaxDepth = v.Float
	}
	if v, err := p.Field(format.FieldDiveMode, 0); err == nil {
		info.Mode = v.DiveMode
	}

	if v, err := p.Field(format.FieldGasMixCount, 0); err == nil {
		for i := 0; i < v.Count; i++ {
			m, err := p.Field(format.FieldGasMix, i)
			if err != nil {
				return SummaryInfo{}, err
			}
			info.Mixes = append(info.Mixes, m.GasMix)
		}
	}
	if v, err := p.Field(format.FieldTankCount, 0); err == nil {
		for i := 0; i < v.Count; i++ {
			tk, err := p.Field(format.FieldTank, i)
			if err != nil {
				return SummaryInfo{}, err
			}
			info.Tanks = append(info.Tanks, tk.Tank)
		}
	}

	return info, nil
}
