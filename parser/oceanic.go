package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// The Oceanic families store everything imperial: depths in 1/16 ft,
// temperatures in Fahrenheit, tank pressure in psi.
const (
	feetToMeter = 0.3048

	oceanicHeaderSize = 0x10

	oceanicYear     = 0x00 // u8, years since 2000
	oceanicMonth    = 0x01 // u8
	oceanicDay      = 0x02 // u8
	oceanicHour     = 0x03 // u8
	oceanicMinute   = 0x04 // u8
	oceanicInterval = 0x05 // u8, index into oceanicIntervals
	oceanicOxygen   = 0x06 // u8, percent, 0 means air
	oceanicNSamples = 0x08 // u16le
)

var oceanicIntervals = [4]uint32{2, 15, 30, 60}

// Sample strides per family.
const (
	atom2SampleSize  = 8
	vtproSampleSize  = 8
	veo250SampleSize = 4
)

// oceanicCommon is the shared Oceanic parser chassis; the three
// families differ in the sample record layout only.
type oceanicCommon struct {
	base
	interval   uint32
	nsamples   int
	sampleSize int
}

func newOceanic(family format.Family, model uint32, data []byte, sampleSize int, opts []Option) (oceanicCommon, error) {
	b, err := newBase(family, model, data, 2, 1, opts)
	if err != nil {
		return oceanicCommon{}, err
	}

	p := oceanicCommon{base: b, sampleSize: sampleSize}
	if err := p.header(); err != nil {
		return oceanicCommon{}, err
	}

	return p, nil
}

func (p *oceanicCommon) header() error {
	if p.buf.Len() < oceanicHeaderSize {
		return fmt.Errorf("%w: oceanic header needs %d bytes, have %d",
			errs.ErrDataFormat, oceanicHeaderSize, p.buf.Len())
	}

	year, _ := p.buf.U8At(oceanicYear)
	month, _ := p.buf.U8At(oceanicMonth)
	day, _ := p.buf.U8At(oceanicDay)
	hour, _ := p.buf.U8At(oceanicHour)
	minute, _ := p.buf.U8At(oceanicMinute)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fmt.Errorf("%w: invalid date %d-%d", errs.ErrDataFormat, month, day)
	}
	p.dive.datetime = time.Date(2000+int(year), time.Month(month), int(day),
		int(hour), int(minute), 0, 0, time.UTC)
	p.dive.hasDatetime = true

	idx, _ := p.buf.U8At(oceanicInterval)
	if int(idx) >= len(oceanicIntervals) {
		return fmt.Errorf("%w: unknown sample interval index %d", errs.ErrDataFormat, idx)
	}
	p.interval = oceanicIntervals[idx]

	o2, _ := p.buf.U8At(oceanicOxygen)
	if o2 == 0 {
		o2 = 21
	}
	if _, err := p.dive.addMix(format.GasMix{Oxygen: o2}); err != nil {
		return err
	}

	p.dive.divemode = format.ModeOpenCircuit
	p.dive.hasDivemode = true

	nsamples, _ := p.buf.U16LEAt(oceanicNSamples)
	p.nsamples = int(nsamples)
	if p.buf.Len() < oceanicHeaderSize+p.nsamples*p.sampleSize {
		return fmt.Errorf("%w: truncated sample data (%d samples of %d bytes declared)",
			errs.ErrDataFormat, p.nsamples, p.sampleSize)
	}

	p.dive.divetime = uint32(p.nsamples) * p.interval
	p.dive.hasDivetime = true

	return nil
}

func fahrenheit(f float64) float64 {
	return (f - 32.0) / 1.8
}

// OceanicAtom2 parses Oceanic Atom 2 dive blobs: 8-byte samples with
// depth, temperature and hoseless tank pressure.
type OceanicAtom2 struct {
	oceanicCommon
}

var _ Parser = (*OceanicAtom2)(nil)

// NewOceanicAtom2 creates a parser for an Oceanic Atom 2 dive blob.
func NewOceanicAtom2(data []byte, model uint32, opts ...Option) (*OceanicAtom2, error) {
	c, err := newOceanic(format.FamilyOceanicAtom2, model, data, atom2SampleSize, opts)
	if err != nil {
		return nil, err
	}

	p := &OceanicAtom2{oceanicCommon: c}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

// Samples walks the 8-byte records: depth (u16le, 1/16 ft),
// temperature (u8, F), tank pressure (u16le, psi) and an event byte.
func (p *OceanicAtom2) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		rec, err := p.buf.Slice(oceanicHeaderSize+i*atom2SampleSize, atom2SampleSize)
		if err != nil {
			return err
		}

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(raw.U16LE(rec[0:2])) / 16.0 * feetToMeter
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := fahrenheit(float64(rec[2]))
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

		if psi := raw.U16LE(rec[4:6]); psi != 0 {
			pressure := float64(psi) * format.PsiToBar
			if len(p.dive.tanks) == 0 {
				if _, err := p.dive.addTank(format.Tank{Units: format.TankImperial, GasMix: 0}); err != nil {
					return err
				}
			}
			p.dive.pressureReading(0, pressure)
			emit(sink, sample.Sample{
				Kind:     sample.KindPressure,
				Pressure: sample.Pressure{Tank: 0, Value: pressure},
			})
		}

		if events := rec[6]; events != 0 {
			p.events(sink, t, events)
		}
	}

	return nil
}

func (p *oceanicCommon) events(sink sample.Sink, t uint32, events byte) {
	if events&0x01 != 0 {
		emit(sink, sample.Sample{
			Kind:  sample.KindEvent,
			Event: sample.Event{Type: sample.EventAscent, Time: t},
		})
	}
	if events&0x02 != 0 {
		emit(sink, sample.Sample{
			Kind:  sample.KindEvent,
			Event: sample.Event{Type: sample.EventBookmark, Time: t},
		})
	}
	if events&^byte(0x03) != 0 {
		p.warnf("unknown event bits %#02x", events&^byte(0x03))
	}
}

// OceanicVTPro parses Oceanic VT Pro dive blobs: 8-byte samples without
// tank pressure, with the depth stored word-big-endian.
type OceanicVTPro struct {
	oceanicCommon
}

var _ Parser = (*OceanicVTPro)(nil)

// NewOceanicVTPro creates a parser for an Oceanic VT Pro dive blob.
func NewOceanicVTPro(data []byte, model uint32, opts ...Option) (*OceanicVTPro, error) {
	c, err := newOceanic(format.FamilyOceanicVTPro, model, data, vtproSampleSize, opts)
	if err != nil {
		return nil, err
	}

	p := &OceanicVTPro{oceanicCommon: c}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

// Samples walks the 8-byte records: a 32-bit word-big-endian field
// whose high half is depth in 1/16 ft, temperature (u8, F) and events.
func (p *OceanicVTPro) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		rec, err := p.buf.Slice(oceanicHeaderSize+i*vtproSampleSize, vtproSampleSize)
		if err != nil {
			return err
		}

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		word := raw.U32WordBE(rec[0:4])
		depth := float64(word>>16) / 16.0 * feetToMeter
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := fahrenheit(float64(rec[6]))
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

		if events := rec[7]; events != 0 {
			p.events(sink, t, events)
		}
	}

	return nil
}

// OceanicVeo250 parses Oceanic Veo 250 dive blobs: compact 4-byte
// samples of depth and temperature.
type OceanicVeo250 struct {
	oceanicCommon
}

var _ Parser = (*OceanicVeo250)(nil)

// NewOceanicVeo250 creates a parser for an Oceanic Veo 250 dive blob.
func NewOceanicVeo250(data []byte, model uint32, opts ...Option) (*OceanicVeo250, error) {
	c, err := newOceanic(format.FamilyOceanicVeo250, model, data, veo250SampleSize, opts)
	if err != nil {
		return nil, err
	}

	p := &OceanicVeo250{oceanicCommon: c}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

// Samples walks the 4-byte records: depth (u16le, 1/16 ft), temperature
// (u8, F) and events.
func (p *OceanicVeo250) Samples(sink sample.Sink) error {
	t := uint32(0)
	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		rec, err := p.buf.Slice(oceanicHeaderSize+i*veo250SampleSize, veo250SampleSize)
		if err != nil {
			return err
		}

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(raw.U16LE(rec[0:2])) / 16.0 * feetToMeter
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := fahrenheit(float64(rec[2]))
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

		if events := rec[3]; events != 0 {
			p.events(sink, t, events)
		}
	}

	return nil
}
