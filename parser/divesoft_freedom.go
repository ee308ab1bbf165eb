package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/checksum"
	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Divesoft Freedom log: a 64-byte header with signature and CRC,
// followed by fixed 16-byte TLV records.
const (
	divesoftHeaderSize = 0x40
	divesoftRecordSize = 16

	divesoftSignature = 0x00 // "DiVE"
	divesoftCRC       = 0x04 // u16le, CRC-16-ANSI(0xFFFF) over bytes 6..64
	divesoftVersion   = 0x06 // u8
	divesoftMode      = 0x07 // u8
	divesoftTimestamp = 0x08 // u32le, seconds since 2000-01-01
	divesoftDivetime  = 0x0c // u32le, seconds
	divesoftMaxDepth  = 0x10 // u16le, 1/100 m, 0 when not recorded
	divesoftAtm       = 0x12 // u16le, mbar
	divesoftTimezone  = 0x14 // i8, 15-minute units east of UTC (v2 only)
	divesoftOxygen    = 0x15 // u8, initial mix
	divesoftHelium    = 0x16 // u8

	// Backward timestamp jumps of at most this many seconds are skipped
	// with a warning; larger ones abort the dive.
	divesoftTolerance = 5

	divesoftNGasMixes = 15
	divesoftNTanks    = 4
)

// Record kinds, stored in the low nibble of the first record word.
const (
	divesoftRecPoint = iota
	divesoftRecManipulation
	divesoftRecAuto
	divesoftRecDiverError
	divesoftRecInternalError
	divesoftRecActivity
	divesoftRecConfiguration
	divesoftRecMeasure
	divesoftRecState
	divesoftRecInfo
)

// Manipulation and configuration sub-ids.
const (
	divesoftSubGasSwitch  = 2
	divesoftSubDecoConfig = 1
)

// DivesoftFreedom parses Divesoft Freedom and Liberty dive logs.
type DivesoftFreedom struct {
	base
	version uint8

	// Pre-release Liberty firmware numbered CCR diluents 0..9 counting
	// down; once a decreasing id below 10 is seen, all later ids below
	// 10 are shifted into the 10..19 range the released firmware uses.
	remapCCR  bool
	lastGasID int
}

var _ Parser = (*DivesoftFreedom)(nil)

var divesoftEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewDivesoftFreedom creates a parser for a Divesoft Freedom dive blob.
func NewDivesoftFreedom(data []byte, model uint32, opts ...Option) (*DivesoftFreedom, error) {
	b, err := newBase(format.FamilyDivesoftFreedom, model, data, divesoftNGasMixes, divesoftNTanks, opts)
	if err != nil {
		return nil, err
	}

	p := &DivesoftFreedom{base: b, lastGasID: -1}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *DivesoftFreedom) header() error {
	if p.buf.Len() < divesoftHeaderSize {
		return fmt.Errorf("%w: freedom header needs %d bytes, have %d",
			errs.ErrDataFormat, divesoftHeaderSize, p.buf.Len())
	}

	sig, _ := p.buf.Slice(divesoftSignature, 4)
	if string(sig) != "DiVE" {
		return fmt.Errorf("%w: bad signature %q", errs.ErrDataFormat, sig)
	}

	want, _ := p.buf.U16LEAt(divesoftCRC)
	body, _ := p.buf.Slice(6, divesoftHeaderSize-6)
	if got := checksum.CRC16ANSI(body, 0xffff); got != want {
		return fmt.Errorf("%w: header CRC mismatch (%#04x != %#04x)", errs.ErrDataFormat, got, want)
	}

	p.version, _ = p.buf.U8At(divesoftVersion)

	mode, _ := p.buf.U8At(divesoftMode)
	switch mode {
	case 0:
		p.dive.divemode = format.ModeOpenCircuit
	case 1:
		p.dive.divemode = format.ModeClosedCircuit
	case 2:
		p.dive.divemode = format.ModeGauge
	case 3:
		p.dive.divemode = format.ModeFreedive
	case 4:
		p.dive.divemode = format.ModeSemiClosed
	default:
		return fmt.Errorf("%w: unknown dive mode %d", errs.ErrDataFormat, mode)
	}
	p.dive.hasDivemode = true

	ticks, _ := p.buf.U32LEAt(divesoftTimestamp)
	loc := time.UTC
	if p.version >= 2 {
		tz, _ := p.buf.U8At(divesoftTimezone)
		offset := int(int8(tz)) * 15 * 60
		if offset != 0 {
			loc = time.FixedZone(fmt.Sprintf("UTC%+d", offset/3600), offset)
		}
	}
	p.dive.datetime = divesoftEpoch.Add(time.Duration(ticks) * time.Second).In(loc)
	p.dive.hasDatetime = true

	divetime, _ := p.buf.U32LEAt(divesoftDivetime)
	p.dive.divetime = divetime
	p.dive.hasDivetime = true

	if maxdepth, _ := p.buf.U16LEAt(divesoftMaxDepth); maxdepth > 0 {
		p.dive.maxdepth = float64(maxdepth) / 100.0
		p.dive.hasMaxdepth = true
	}

	atm, _ := p.buf.U16LEAt(divesoftAtm)
	p.dive.atmospheric = float64(atm) / format.BarToMbar
	p.dive.hasAtmospheric = true

	o2, _ := p.buf.U8At(divesoftOxygen)
	he, _ := p.buf.U8At(divesoftHelium)
	if o2 > 0 {
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	if (p.buf.Len()-divesoftHeaderSize)%divesoftRecordSize != 0 {
		return fmt.Errorf("%w: profile is not a whole number of records", errs.ErrDataFormat)
	}

	return nil
}

// Samples walks the 16-byte records. The first word packs the record
// kind (bits 0..3), the timestamp in seconds (bits 4..20) and a sub-id
// (bits 21..30).
func (p *DivesoftFreedom) Samples(sink sample.Sink) error {
	tracker := timeTracker{warn: p.warnf, tolerance: divesoftTolerance}
	p.lastGasID = -1
	p.remapCCR = false

	for off := divesoftHeaderSize; off < p.buf.Len(); off += divesoftRecordSize {
		if p.cancelled() {
			return errs.ErrCancelled
		}

		word, err := p.buf.U32LEAt(off)
		if err != nil {
			return err
		}
		kind := word & 0x0f
		ts := (word >> 4) & 0x1ffff
		sub := (word >> 21) & 0x3ff
		body, _ := p.buf.Slice(off+4, divesoftRecordSize-4)

		switch kind {
		case divesoftRecPoint:
			skip, err := tracker.advance(ts)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			p.point(sink, ts, body)
		case divesoftRecManipulation:
			if sub == divesoftSubGasSwitch {
				if err := p.gasSwitch(sink, body); err != nil {
					return err
				}
			} else {
				p.warnf("unknown manipulation record %d: %s", sub, raw.HexDump(body))
			}
		case divesoftRecConfiguration:
			if sub == divesoftSubDecoConfig {
				p.decoConfig(body)
			} else {
				p.warnf("unknown configuration record %d: %s", sub, raw.HexDump(body))
			}
		case divesoftRecAuto, divesoftRecActivity, divesoftRecState:
			emit(sink, sample.Sample{
				Kind:   sample.KindVendor,
				Vendor: sample.Vendor{Type: kind, Data: body},
			})
		case divesoftRecDiverError, divesoftRecInternalError:
			emit(sink, sample.Sample{
				Kind:  sample.KindEvent,
				Event: sample.Event{Type: sample.EventViolation, Time: ts, Value: sub},
			})
		case divesoftRecMeasure, divesoftRecInfo:
			// Calibration and free-text records carry nothing for the
			// profile.
		default:
			p.warnf("unknown record kind %d: %s", kind, raw.HexDump(body))
		}
	}

	return nil
}

// point decodes one profile point: depth (u16le, 1/100 m), temperature
// (i16le, 1/10 C, 0x7fff absent), ppO2 (u16le, mbar, 0 absent), ceiling
// (u16le, 1/100 m) and TTS (u16le, seconds).
func (p *DivesoftFreedom) point(sink sample.Sink, ts uint32, body []byte) {
	emit(sink, sample.Sample{Kind: sample.KindTime, Time: ts})

	depth := float64(raw.U16LE(body[0:2])) / 100.0
	p.dive.trackDepth(depth)
	emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

	if rawTemp := raw.U16LE(body[2:4]); rawTemp != 0x7fff {
		temp := float64(raw.SignExtend(uint32(rawTemp), 16)) / 10.0
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})
	}

	if ppo2 := raw.U16LE(body[4:6]); ppo2 != 0 {
		emit(sink, sample.Sample{
			Kind: sample.KindPPO2,
			PPO2: sample.PPO2{Sensor: -1, Value: float64(ppo2) / 1000.0},
		})
	}

	ceiling := float64(raw.U16LE(body[6:8])) / 100.0
	tts := uint32(raw.U16LE(body[8:10]))
	if ceiling > 0 {
		emit(sink, sample.Sample{
			Kind: sample.KindDeco,
			Deco: sample.Deco{Type: format.DecoStop, Depth: ceiling, TTS: tts},
		})
	} else {
		emit(sink, sample.Sample{
			Kind: sample.KindDeco,
			Deco: sample.Deco{Type: format.DecoNDL, Time: tts},
		})
	}
}

// gasSwitch decodes a gas change: o2, he and the vendor gas id.
func (p *DivesoftFreedom) gasSwitch(sink sample.Sink, body []byte) error {
	o2 := body[0]
	he := body[1]
	id := int(body[2])

	if p.dive.divemode == format.ModeClosedCircuit && id < 10 {
		if p.remapCCR || (p.lastGasID >= 0 && id < p.lastGasID) {
			p.remapCCR = true
		}
		p.lastGasID = id
		if p.remapCCR {
			id += 10
		}
	} else {
		p.lastGasID = id
	}

	mix := format.GasMix{
		Oxygen:  o2,
		Helium:  he,
		ID:      uint32(id),
		Diluent: p.dive.divemode == format.ModeClosedCircuit && id >= 10,
	}
	idx, err := p.dive.addMix(mix)
	if err != nil {
		return err
	}
	emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: idx})

	return nil
}

// decoConfig decodes the DECO configuration record: gradient factors,
// water type and the VPM flag.
func (p *DivesoftFreedom) decoConfig(body []byte) {
	gfLow := body[0]
	gfHigh := body[1]
	flags := body[2]
	conservatism := int(body[3])

	if flags&0x02 != 0 {
		p.dive.decomodel = format.DecoModel{Type: format.DecoModelVPM, Conservatism: conservatism}
	} else {
		p.dive.decomodel = format.DecoModel{
			Type:   format.DecoModelBuhlmann,
			GfLow:  gfLow,
			GfHigh: gfHigh,
		}
	}
	p.dive.hasDecomodel = true

	if flags&0x01 != 0 {
		p.dive.salinity = format.Salinity{Type: format.WaterSalt}
	} else {
		p.dive.salinity = format.Salinity{Type: format.WaterFresh}
	}
	p.dive.hasSalinity = true
}
