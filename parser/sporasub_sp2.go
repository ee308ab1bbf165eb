package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Sporasub SP2 freedive header, 32 bytes with a BCD date and binary
// counters, followed by 2-byte depth samples.
const (
	sp2HeaderSize = 0x20

	sp2Year     = 0x00 // BCD, years since 2000
	sp2Month    = 0x01 // BCD
	sp2Day      = 0x02 // BCD
	sp2Hour     = 0x03 // BCD
	sp2Minute   = 0x04 // BCD
	sp2Interval = 0x06 // u8, seconds, 0 means one second
	sp2NSamples = 0x08 // u16le
	sp2Temp     = 0x0a // i16le, 1/10 C, water temperature at depth
	sp2Surface  = 0x0c // u16le, seconds of surface interval before the dive

	sp2SampleSize = 2
)

// SporasubSP2 parses Sporasub SP2 freedive blobs.
type SporasubSP2 struct {
	base
	interval uint32
	nsamples int
}

var _ Parser = (*SporasubSP2)(nil)

// NewSporasubSP2 creates a parser for a Sporasub SP2 dive blob.
func NewSporasubSP2(data []byte, model uint32, opts ...Option) (*SporasubSP2, error) {
	b, err := newBase(format.FamilySporasubSP2, model, data, 1, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &SporasubSP2{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *SporasubSP2) header() error {
	if p.buf.Len() < sp2HeaderSize {
		return fmt.Errorf("%w: sp2 header needs %d bytes, have %d",
			errs.ErrDataFormat, sp2HeaderSize, p.buf.Len())
	}

	year, _ := p.buf.U8At(sp2Year)
	month, _ := p.buf.U8At(sp2Month)
	day, _ := p.buf.U8At(sp2Day)
	hour, _ := p.buf.U8At(sp2Hour)
	minute, _ := p.buf.U8At(sp2Minute)

	m := int(raw.BCD(month))
	d := int(raw.BCD(day))
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return fmt.Errorf("%w: invalid BCD date %02x-%02x", errs.ErrDataFormat, month, day)
	}
	p.dive.datetime = time.Date(2000+int(raw.BCD(year)), time.Month(m), d,
		int(raw.BCD(hour)), int(raw.BCD(minute)), 0, 0, time.UTC)
	p.dive.hasDatetime = true

	interval, _ := p.buf.U8At(sp2Interval)
	if interval == 0 {
		interval = 1
	}
	p.interval = uint32(interval)

	nsamples, _ := p.buf.U16LEAt(sp2NSamples)
	p.nsamples = int(nsamples)
	if p.buf.Len() < sp2HeaderSize+p.nsamples*sp2SampleSize {
		return fmt.Errorf("%w: truncated sample data (%d samples declared)", errs.ErrDataFormat, p.nsamples)
	}

	if rawTemp, _ := p.buf.U16LEAt(sp2Temp); rawTemp != 0 {
		temp := float64(raw.SignExtend(uint32(rawTemp), 16)) / 10.0
		p.dive.trackTemperature(temp)
	}

	p.dive.divetime = uint32(p.nsamples) * p.interval
	p.dive.hasDivetime = true
	p.dive.divemode = format.ModeFreedive
	p.dive.hasDivemode = true
	p.dive.salinity = format.Salinity{Type: format.WaterSalt}
	p.dive.hasSalinity = true

	return nil
}

// Samples walks the 2-byte records: depth in cm.
func (p *SporasubSP2) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}

		depth16, err := p.buf.U16LEAt(sp2HeaderSize + i*sp2SampleSize)
		if err != nil {
			return err
		}

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(depth16) / 100.0
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})
	}

	return nil
}
