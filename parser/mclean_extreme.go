package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

// McLean Extreme dive header, 0x5E bytes followed by 4-byte samples.
const (
	mcleanHeaderSize = 0x5e

	mcleanTimestamp   = 0x00 // u32le, seconds since 2000-01-01
	mcleanStart       = 0x04 // u32le, seconds
	mcleanEnd         = 0x08 // u32le, seconds
	mcleanAtmospheric = 0x0c // u16le, mbar
	mcleanDensity     = 0x0e // u8, water density index
	mcleanMode        = 0x0f // u8, dive mode
	mcleanGasmixes    = 0x10 // 1 slot of (o2, he), o2 0 means no mix
	mcleanNSamples    = 0x12 // u16le
	mcleanInterval    = 0x14 // u16le, seconds

	mcleanSampleSize = 4
	mcleanNGasMixes  = 1
)

const gravity = 9.80665

// mcleanDensities maps the recorded density index to g/l. The device
// stores an index, not a value, so the table is part of the format.
var mcleanDensities = [4]float64{1000.0, 1020.0, 1025.0, 1030.0}

// McLeanExtreme parses McLean Extreme dive blobs. Sample depths are
// stored as gauge pressure in millibar and converted through the
// recorded water density.
type McLeanExtreme struct {
	base
	nsamples int
	interval uint32
	density  float64
}

var _ Parser = (*McLeanExtreme)(nil)

var mcleanEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewMcLeanExtreme creates a parser for a McLean Extreme dive blob.
func NewMcLeanExtreme(data []byte, model uint32, opts ...Option) (*McLeanExtreme, error) {
	b, err := newBase(format.FamilyMcLeanExtreme, model, data, mcleanNGasMixes, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &McLeanExtreme{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *McLeanExtreme) header() error {
	if p.buf.Len() < mcleanHeaderSize {
		return fmt.Errorf("%w: mclean header needs %d bytes, have %d",
			errs.ErrDataFormat, mcleanHeaderSize, p.buf.Len())
	}

	ticks, _ := p.buf.U32LEAt(mcleanTimestamp)
	p.dive.datetime = mcleanEpoch.Add(time.Duration(ticks) * time.Second)
	p.dive.hasDatetime = true

	start, _ := p.buf.U32LEAt(mcleanStart)
	end, _ := p.buf.U32LEAt(mcleanEnd)
	if end < start {
		return fmt.Errorf("%w: dive ends (%d) before it starts (%d)", errs.ErrDataFormat, end, start)
	}
	p.dive.divetime = end - start
	p.dive.hasDivetime = true

	atm, _ := p.buf.U16LEAt(mcleanAtmospheric)
	p.dive.atmospheric = float64(atm) / format.BarToMbar
	p.dive.hasAtmospheric = true

	density, _ := p.buf.U8At(mcleanDensity)
	if int(density) >= len(mcleanDensities) {
		return fmt.Errorf("%w: unknown water density index %d", errs.ErrDataFormat, density)
	}
	p.density = mcleanDensities[density]
	if density == 0 {
		p.dive.salinity = format.Salinity{Type: format.WaterFresh, Density: p.density}
	} else {
		p.dive.salinity = format.Salinity{Type: format.WaterSalt, Density: p.density}
	}
	p.dive.hasSalinity = true

	mode, _ := p.buf.U8At(mcleanMode)
	switch mode {
	case 0, 1: // REC and TEC are both open circuit
		p.dive.divemode = format.ModeOpenCircuit
	case 2:
		p.dive.divemode = format.ModeGauge
	case 3:
		p.dive.divemode = format.ModeFreedive
	default:
		return fmt.Errorf("%w: unknown dive mode %d", errs.ErrDataFormat, mode)
	}
	p.dive.hasDivemode = true

	for i := 0; i < mcleanNGasMixes; i++ {
		o2, _ := p.buf.U8At(mcleanGasmixes + 2*i)
		he, _ := p.buf.U8At(mcleanGasmixes + 2*i + 1)
		if o2 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	nsamples, _ := p.buf.U16LEAt(mcleanNSamples)
	p.nsamples = int(nsamples)

	interval, _ := p.buf.U16LEAt(mcleanInterval)
	if interval == 0 {
		interval = 1
	}
	p.interval = uint32(interval)

	if p.buf.Len() < mcleanHeaderSize+p.nsamples*mcleanSampleSize {
		return fmt.Errorf("%w: truncated sample data (%d samples declared)", errs.ErrDataFormat, p.nsamples)
	}

	return nil
}

// Samples walks the 4-byte sample records: gauge pressure (u16le,
// mbar), temperature (i8, Celsius) and a flag byte.
func (p *McLeanExtreme) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		off := mcleanHeaderSize + i*mcleanSampleSize

		pressure, err := p.buf.U16LEAt(off)
		if err != nil {
			return err
		}
		rawTemp, _ := p.buf.U8At(off + 2)
		flags, _ := p.buf.U8At(off + 3)

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		// Gauge pressure in mbar to depth through the recorded density.
		depth := float64(pressure) * 100.0 / (p.density * gravity)
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := float64(int8(rawTemp))
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

		if flags&0x01 != 0 {
			emit(sink, sample.Sample{
				Kind:  sample.KindEvent,
				Event: sample.Event{Type: sample.EventBookmark, Time: t},
			})
		}
	}

	return nil
}
