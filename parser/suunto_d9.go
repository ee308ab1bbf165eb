package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Suunto D9 family models.
const (
	ModelD9    = 0x0e
	ModelD6    = 0x0f
	ModelHelO2 = 0x15
)

// Suunto D9 dive header, 0x20 bytes followed by 4-byte samples.
const (
	d9HeaderSize = 0x20

	d9Year     = 0x00 // u16le
	d9Month    = 0x02 // u8
	d9Day      = 0x03 // u8
	d9Hour     = 0x04 // u8
	d9Minute   = 0x05 // u8
	d9Interval = 0x06 // u8, seconds
	d9Gasmixes = 0x08 // 3 slots of (o2, he)
	d9MaxDepth = 0x10 // u16le, 1/100 m
	d9Divetime = 0x12 // u16le, seconds

	d9SampleSize = 4
	d9NGasMixes  = 3

	// helO2Shift is the undocumented profile displacement applied when
	// the gate sequence appears at the start of the HelO2 profile.
	helO2Shift = 12
)

// helO2Gate is the 3-byte sequence that marks a shifted HelO2 profile.
// Its origin is unknown; the rule is preserved from observed dives.
var helO2Gate = [3]byte{0x01, 0x00, 0x00}

// Sample events, packed in the fourth sample byte: the high nibble is
// the event type, the low nibble its argument.
const (
	d9EventNone       = 0x0
	d9EventGasChange  = 0x1
	d9EventBookmark   = 0x2
	d9EventAscent     = 0x3
	d9EventSafetyStop = 0x4
)

// SuuntoD9 parses Suunto D9, D6 and HelO2 dive blobs.
type SuuntoD9 struct {
	base
	interval uint32
	profile  int // profile start offset
}

var _ Parser = (*SuuntoD9)(nil)

// NewSuuntoD9 creates a parser for a Suunto D9 dive blob.
func NewSuuntoD9(data []byte, model uint32, opts ...Option) (*SuuntoD9, error) {
	b, err := newBase(format.FamilySuuntoD9, model, data, d9NGasMixes, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &SuuntoD9{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *SuuntoD9) header() error {
	if p.buf.Len() < d9HeaderSize {
		return fmt.Errorf("%w: d9 header needs %d bytes, have %d",
			errs.ErrDataFormat, d9HeaderSize, p.buf.Len())
	}

	year, _ := p.buf.U16LEAt(d9Year)
	month, _ := p.buf.U8At(d9Month)
	day, _ := p.buf.U8At(d9Day)
	hour, _ := p.buf.U8At(d9Hour)
	minute, _ := p.buf.U8At(d9Minute)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fmt.Errorf("%w: invalid date %d-%d", errs.ErrDataFormat, month, day)
	}
	p.dive.datetime = time.Date(int(year), time.Month(month), int(day),
		int(hour), int(minute), 0, 0, time.UTC)
	p.dive.hasDatetime = true

	interval, _ := p.buf.U8At(d9Interval)
	if interval == 0 {
		interval = 10
	}
	p.interval = uint32(interval)

	for i := 0; i < d9NGasMixes; i++ {
		o2, _ := p.buf.U8At(d9Gasmixes + 2*i)
		he, _ := p.buf.U8At(d9Gasmixes + 2*i + 1)
		if o2 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	maxdepth, _ := p.buf.U16LEAt(d9MaxDepth)
	p.dive.maxdepth = float64(maxdepth) / 100.0
	p.dive.hasMaxdepth = true

	divetime, _ := p.buf.U16LEAt(d9Divetime)
	p.dive.divetime = uint32(divetime)
	p.dive.hasDivetime = true

	p.dive.divemode = format.ModeOpenCircuit
	p.dive.hasDivemode = true

	p.profile = d9HeaderSize
	if p.model == ModelHelO2 {
		gate, err := p.buf.Slice(p.profile, len(helO2Gate))
		if err == nil && [3]byte(gate) == helO2Gate {
			p.profile += helO2Shift
		}
	}

	if (p.buf.Len()-p.profile)%d9SampleSize != 0 {
		return fmt.Errorf("%w: profile is not a whole number of samples", errs.ErrDataFormat)
	}

	return nil
}

// Samples walks the 4-byte records: depth (u16le, 1/100 m), temperature
// (i8, C) and an event byte.
func (p *SuuntoD9) Samples(sink sample.Sink) error {
	t := uint32(0)
	for off := p.profile; off < p.buf.Len(); off += d9SampleSize {
		if p.cancelled() {
			return errs.ErrCancelled
		}

		rec, err := p.buf.Slice(off, d9SampleSize)
		if err != nil {
			return err
		}

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(raw.U16LE(rec[0:2])) / 100.0
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := float64(int8(rec[2]))
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

		if err := p.event(sink, t, rec[3]); err != nil {
			return err
		}
	}

	return nil
}

func (p *SuuntoD9) event(sink sample.Sink, t uint32, ev byte) error {
	kind := ev >> 4
	arg := ev & 0x0f

	switch kind {
	case d9EventNone:
	case d9EventGasChange:
		if int(arg) >= len(p.dive.mixes) {
			return fmt.Errorf("%w: gas mix index %d of %d", errs.ErrDataFormat, arg, len(p.dive.mixes))
		}
		emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: int(arg)})
	case d9EventBookmark:
		emit(sink, sample.Sample{
			Kind:  sample.KindEvent,
			Event: sample.Event{Type: sample.EventBookmark, Time: t},
		})
	case d9EventAscent:
		emit(sink, sample.Sample{
			Kind:  sample.KindEvent,
			Event: sample.Event{Type: sample.EventAscent, Time: t, Value: uint32(arg)},
		})
	case d9EventSafetyStop:
		emit(sink, sample.Sample{
			Kind:  sample.KindEvent,
			Event: sample.Event{Type: sample.EventSafetyStop, Time: t},
		})
	default:
		p.warnf("unknown event byte %#02x", ev)
	}

	return nil
}
