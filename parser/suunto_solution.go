package parser

import (
	"fmt"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

// Suunto Solution dive blob: an 8-byte header and a profile of absolute
// depth bytes in feet. The Solution has no clock, so no datetime is
// ever reported.
const (
	solutionHeaderSize = 0x08

	solutionInterval = 0x00 // u8, seconds, 0 means ten seconds
	solutionMaxDepth = 0x02 // u8, feet

	solutionMarkSurface = 0xfd // pause at the surface for one interval
	solutionEnd         = 0xff
)

// SuuntoSolution parses Suunto Solution dive blobs.
type SuuntoSolution struct {
	base
	interval uint32
}

var _ Parser = (*SuuntoSolution)(nil)

// NewSuuntoSolution creates a parser for a Suunto Solution dive blob.
func NewSuuntoSolution(data []byte, model uint32, opts ...Option) (*SuuntoSolution, error) {
	b, err := newBase(format.FamilySuuntoSolution, model, data, 1, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &SuuntoSolution{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *SuuntoSolution) header() error {
	if p.buf.Len() < solutionHeaderSize {
		return fmt.Errorf("%w: solution header needs %d bytes, have %d",
			errs.ErrDataFormat, solutionHeaderSize, p.buf.Len())
	}

	interval, _ := p.buf.U8At(solutionInterval)
	if interval == 0 {
		interval = 10
	}
	p.interval = uint32(interval)

	maxdepth, _ := p.buf.U8At(solutionMaxDepth)
	p.dive.maxdepth = float64(maxdepth) * feetToMeter
	p.dive.hasMaxdepth = true

	// Air only; the Solution predates nitrox support.
	if _, err := p.dive.addMix(format.GasMix{Oxygen: 21}); err != nil {
		return err
	}
	p.dive.divemode = format.ModeOpenCircuit
	p.dive.hasDivemode = true

	return nil
}

// Samples walks the profile bytes: absolute depth in feet per interval,
// a surface marker, and the end marker.
func (p *SuuntoSolution) Samples(sink sample.Sink) error {
	t := uint32(0)

	for off := solutionHeaderSize; off < p.buf.Len(); off++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		b, _ := p.buf.U8At(off)

		switch b {
		case solutionEnd:
			if !p.dive.hasDivetime {
				p.dive.divetime = t
				p.dive.hasDivetime = true
			}

			return nil
		case solutionMarkSurface:
			t += p.interval
			emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})
			emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: 0})
		default:
			t += p.interval
			depth := float64(b) * feetToMeter
			p.dive.trackDepth(depth)
			emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})
			emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})
		}
	}

	return fmt.Errorf("%w: profile not closed by end marker", errs.ErrDataFormat)
}
