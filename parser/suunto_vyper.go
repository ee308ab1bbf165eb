package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

// Suunto Vyper dive header, 16 bytes followed by a byte-stream profile
// of signed depth deltas in feet, with marker bytes for everything
// else.
const (
	vyperHeaderSize = 0x10

	vyperYear     = 0x00 // u8, years since 2000
	vyperMonth    = 0x01 // u8
	vyperDay      = 0x02 // u8
	vyperHour     = 0x03 // u8
	vyperMinute   = 0x04 // u8
	vyperInterval = 0x05 // u8, seconds
	vyperOxygen   = 0x06 // u8, percent, 0 means air
)

// Profile marker bytes. Every other byte is a signed depth delta, so
// deltas of +122, +125, +126 and +127 ft cannot be encoded; real
// descents never reach them within one interval.
const (
	vyperMarkGasChange = 0x7a // next byte is the new o2 percent
	vyperMarkTemp      = 0x7d // next byte is the temperature in C
	vyperMarkBookmark  = 0x7e
	vyperMarkSurface   = 0x7f
)

// SuuntoVyper parses Suunto Vyper dive blobs.
type SuuntoVyper struct {
	base
	interval uint32
}

var _ Parser = (*SuuntoVyper)(nil)

// NewSuuntoVyper creates a parser for a Suunto Vyper dive blob.
func NewSuuntoVyper(data []byte, model uint32, opts ...Option) (*SuuntoVyper, error) {
	b, err := newBase(format.FamilySuuntoVyper, model, data, 2, 1, opts)
	if err != nil {
		return nil, err
	}

	p := &SuuntoVyper{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *SuuntoVyper) header() error {
	if p.buf.Len() < vyperHeaderSize {
		return fmt.Errorf("%w: vyper header needs %d bytes, have %d",
			errs.ErrDataFormat, vyperHeaderSize, p.buf.Len())
	}

	year, _ := p.buf.U8At(vyperYear)
	month, _ := p.buf.U8At(vyperMonth)
	day, _ := p.buf.U8At(vyperDay)
	hour, _ := p.buf.U8At(vyperHour)
	minute, _ := p.buf.U8At(vyperMinute)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fmt.Errorf("%w: invalid date %d-%d", errs.ErrDataFormat, month, day)
	}
	p.dive.datetime = time.Date(2000+int(year), time.Month(month), int(day),
		int(hour), int(minute), 0, 0, time.UTC)
	p.dive.hasDatetime = true

	interval, _ := p.buf.U8At(vyperInterval)
	if interval == 0 {
		interval = 20
	}
	p.interval = uint32(interval)

	o2, _ := p.buf.U8At(vyperOxygen)
	if o2 == 0 {
		o2 = 21
	}
	if _, err := p.dive.addMix(format.GasMix{Oxygen: o2}); err != nil {
		return err
	}

	p.dive.divemode = format.ModeOpenCircuit
	p.dive.hasDivemode = true

	return nil
}

// Samples walks the marker-byte profile.
func (p *SuuntoVyper) Samples(sink sample.Sink) error {
	t := uint32(0)
	depthFt := 0.0
	nsamples := 0

	for off := vyperHeaderSize; off < p.buf.Len(); off++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		b, _ := p.buf.U8At(off)

		switch b {
		case vyperMarkTemp:
			arg, err := p.buf.U8At(off + 1)
			if err != nil {
				return err
			}
			off++
			temp := float64(int8(arg))
			p.dive.trackTemperature(temp)
			emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})
		case vyperMarkGasChange:
			arg, err := p.buf.U8At(off + 1)
			if err != nil {
				return err
			}
			off++
			idx, err := p.dive.addMix(format.GasMix{Oxygen: arg})
			if err != nil {
				return err
			}
			emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: idx})
		case vyperMarkBookmark:
			emit(sink, sample.Sample{
				Kind:  sample.KindEvent,
				Event: sample.Event{Type: sample.EventBookmark, Time: t},
			})
		case vyperMarkSurface:
			depthFt = 0
			t += p.interval
			nsamples++
			emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})
			emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: 0})
		default:
			depthFt += float64(int8(b))
			if depthFt < 0 {
				return fmt.Errorf("%w: depth went negative at offset %d", errs.ErrDataFormat, off)
			}
			t += p.interval
			nsamples++
			depth := depthFt * feetToMeter
			p.dive.trackDepth(depth)
			emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})
			emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})
		}
	}

	if !p.dive.hasDivetime {
		p.dive.divetime = t
		p.dive.hasDivetime = true
	}

	return nil
}
