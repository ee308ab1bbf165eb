package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Reefnet Sensus dive header, 16 bytes followed by 4-byte samples of
// absolute pressure and temperature. The Sensus is a recorder, not a
// computer: depth is derived from pressure against the atmospheric
// reading it took at the start of the dive.
const (
	sensusHeaderSize = 0x10

	sensusTimestamp = 0x00 // u32le, seconds since 2000-01-01
	sensusInterval  = 0x04 // u16le, seconds
	sensusNSamples  = 0x06 // u16le
	sensusAtm       = 0x08 // u16le, mbar

	sensusSampleSize = 4

	// Depth conversion assumes standard seawater.
	sensusDensity = 1025.0
)

// ReefnetSensus parses Reefnet Sensus dive blobs.
type ReefnetSensus struct {
	base
	interval uint32
	nsamples int
	atm      float64 // mbar
}

var _ Parser = (*ReefnetSensus)(nil)

var sensusEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewReefnetSensus creates a parser for a Reefnet Sensus dive blob.
func NewReefnetSensus(data []byte, model uint32, opts ...Option) (*ReefnetSensus, error) {
	b, err := newBase(format.FamilyReefnetSensus, model, data, 1, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &ReefnetSensus{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *ReefnetSensus) header() error {
	if p.buf.Len() < sensusHeaderSize {
		return fmt.Errorf("%w: sensus header needs %d bytes, have %d",
			errs.ErrDataFormat, sensusHeaderSize, p.buf.Len())
	}

	ticks, _ := p.buf.U32LEAt(sensusTimestamp)
	p.dive.datetime = sensusEpoch.Add(time.Duration(ticks) * time.Second)
	p.dive.hasDatetime = true

	interval, _ := p.buf.U16LEAt(sensusInterval)
	if interval == 0 {
		interval = 1
	}
	p.interval = uint32(interval)

	nsamples, _ := p.buf.U16LEAt(sensusNSamples)
	p.nsamples = int(nsamples)
	if p.buf.Len() < sensusHeaderSize+p.nsamples*sensusSampleSize {
		return fmt.Errorf("%w: truncated sample data (%d samples declared)", errs.ErrDataFormat, p.nsamples)
	}

	atm, _ := p.buf.U16LEAt(sensusAtm)
	if atm == 0 {
		atm = 1013
	}
	p.atm = float64(atm)
	p.dive.atmospheric = p.atm / format.BarToMbar
	p.dive.hasAtmospheric = true

	p.dive.divetime = uint32(p.nsamples) * p.interval
	p.dive.hasDivetime = true
	p.dive.divemode = format.ModeGauge
	p.dive.hasDivemode = true

	return nil
}

// Samples walks the 4-byte records: absolute pressure (u16le, mbar) and
// temperature (i16le, 1/100 C).
func (p *ReefnetSensus) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		off := sensusHeaderSize + i*sensusSampleSize

		pressure16, err := p.buf.U16LEAt(off)
		if err != nil {
			return err
		}
		rawTemp, _ := p.buf.U16LEAt(off + 2)

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		// Clamp to the surface: the recorder keeps logging above water.
		gauge := float64(pressure16) - p.atm
		if gauge < 0 {
			gauge = 0
		}
		depth := gauge * 100.0 / (sensusDensity * gravity)
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := float64(raw.SignExtend(uint32(rawTemp), 16)) / 100.0
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})
	}

	return nil
}
