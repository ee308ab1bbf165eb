package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Cressi Edy dive header, 32 bytes of BCD-encoded fields followed by
// 2-byte BCD depth samples terminated by 0xFF.
const (
	edyHeaderSize = 0x20

	edyYear     = 0x02 // BCD, years since 2000
	edyMonth    = 0x03 // BCD
	edyDay      = 0x04 // BCD
	edyHour     = 0x05 // BCD
	edyMinute   = 0x06 // BCD
	edyOxygen   = 0x08 // BCD percent, 0 means air
	edyHours    = 0x0a // BCD, divetime hours
	edyMinutes  = 0x0b // BCD, divetime minutes
	edySampleSz = 2
)

// edyIntervalDefault is the sample interval in seconds. The parser uses
// it for every model, 0x08 included.
const edyIntervalDefault = 30

// edyModelQuirk is the undocumented model variant whose divetime is
// derived from the sample count instead of the header field. What
// hardware reports model 0x08 is unknown; callers own the mapping.
const edyModelQuirk = 0x08

// CressiEdy parses Cressi Edy dive blobs.
type CressiEdy struct {
	base
	interval uint32
	nsamples int
}

var _ Parser = (*CressiEdy)(nil)

// NewCressiEdy creates a parser for a Cressi Edy dive blob.
func NewCressiEdy(data []byte, model uint32, opts ...Option) (*CressiEdy, error) {
	b, err := newBase(format.FamilyCressiEdy, model, data, 1, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &CressiEdy{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *CressiEdy) header() error {
	if p.buf.Len() < edyHeaderSize {
		return fmt.Errorf("%w: edy header needs %d bytes, have %d",
			errs.ErrDataFormat, edyHeaderSize, p.buf.Len())
	}

	year, _ := p.buf.U8At(edyYear)
	month, _ := p.buf.U8At(edyMonth)
	day, _ := p.buf.U8At(edyDay)
	hour, _ := p.buf.U8At(edyHour)
	minute, _ := p.buf.U8At(edyMinute)

	m := int(raw.BCD(month))
	d := int(raw.BCD(day))
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return fmt.Errorf("%w: invalid BCD date %02x-%02x", errs.ErrDataFormat, month, day)
	}
	p.dive.datetime = time.Date(2000+int(raw.BCD(year)), time.Month(m), d,
		int(raw.BCD(hour)), int(raw.BCD(minute)), 0, 0, time.UTC)
	p.dive.hasDatetime = true

	o2, _ := p.buf.U8At(edyOxygen)
	mix := format.GasMix{Oxygen: raw.BCD(o2)}
	if mix.Oxygen == 0 {
		mix.Oxygen = 21
	}
	if _, err := p.dive.addMix(mix); err != nil {
		return err
	}

	p.interval = edyIntervalDefault
	p.nsamples = p.countSamples()

	if p.model == edyModelQuirk {
		// Model 0x08 stores no usable divetime field; derive it from
		// the profile length.
		p.dive.divetime = uint32(p.nsamples) * p.interval
	} else {
		hours, _ := p.buf.U8At(edyHours)
		minutes, _ := p.buf.U8At(edyMinutes)
		p.dive.divetime = (uint32(raw.BCD(hours))*60 + uint32(raw.BCD(minutes))) * 60
	}
	p.dive.hasDivetime = true

	p.dive.divemode = format.ModeOpenCircuit
	p.dive.hasDivemode = true

	return nil
}

// countSamples scans the profile up to the 0xFF terminator or the end
// of the blob.
func (p *CressiEdy) countSamples() int {
	n := 0
	for off := edyHeaderSize; off+edySampleSz <= p.buf.Len(); off += edySampleSz {
		b, _ := p.buf.U8At(off)
		if b == 0xff {
			break
		}
		n++
	}

	return n
}

// Samples walks the 2-byte records: depth as four BCD digits in 1/10 m,
// most significant byte first.
func (p *CressiEdy) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		off := edyHeaderSize + i*edySampleSz

		hi, err := p.buf.U8At(off)
		if err != nil {
			return err
		}
		lo, _ := p.buf.U8At(off + 1)

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(uint32(raw.BCD(hi))*100+uint32(raw.BCD(lo))) / 10.0
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})
	}

	return nil
}
