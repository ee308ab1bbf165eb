package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Heinrichs Weikamp hardware lines, stored in the header.
const (
	ostcHwTech  = 0
	ostcHwSport = 1
	ostcHwFour  = 2
)

// HW OSTC dive header, 0x40 bytes followed by variable-length samples.
const (
	ostcHeaderSize = 0x40

	ostcVersion  = 0x00 // u8, header version
	ostcFirmware = 0x01 // u16le, see ostcFw* below
	ostcHardware = 0x03 // u8, hardware line
	ostcDate     = 0x04 // y (since 2000), m, d, h, min, s
	// Divetime location depends on the header version; see divetime().
	ostcDivetimeA = 0x0a // version 0x20: u16le minutes + u8 seconds
	ostcDivetimeB = 0x0d // version > 0x20: u24le seconds
	ostcMaxDepth  = 0x10 // u16le, mbar
	ostcGases     = 0x13 // 5 slots of (o2, he, flags)
	ostcMode      = 0x22 // u8
	ostcSalinity  = 0x23 // u8, 100..104 = density / 10
	ostcGfLow     = 0x24 // u8
	ostcGfHigh    = 0x25 // u8
	ostcDecoModel = 0x26 // u8
	ostcAtm       = 0x27 // u16le, mbar
	ostcInterval  = 0x29 // u8, seconds

	ostcNFixedGases = 5
	ostcNGasMixes   = 10
	ostcNTanks      = 3

	// ostcEndDepth terminates the profile.
	ostcEndDepth = 0xffff
)

// Sample extension TLV types.
const (
	ostcExtTemp      = 0x01
	ostcExtDeco      = 0x02
	ostcExtPPO2      = 0x03
	ostcExtCNS       = 0x04
	ostcExtTank      = 0x05
	ostcExtGasChange = 0x06
	ostcExtSetpoint  = 0x07
)

// Firmware windows with known decoding quirks. hwOS firmware is
// major<<8|minor; OSTC4 firmware is major<<12|minor<<8|patch.
const (
	ostcFwTechStaleLo  = 0x0303 // hwOS Tech 3.3
	ostcFwTechStaleHi  = 0x0308 // hwOS Tech 3.8
	ostcFwSportStaleLo = 0x0a39 // hwOS Sport 10.57
	ostcFwSportStaleHi = 0x0a3f // hwOS Sport 10.63
	ostcFwSportDeciLo  = 0x0a28 // hwOS Sport 10.40
	ostcFwSportDeciHi  = 0x0a32 // hwOS Sport 10.50
	ostcFwFourDecoFix  = 0x1008 // OSTC4 1.0.8
)

// HwOstc parses Heinrichs Weikamp OSTC dive blobs.
type HwOstc struct {
	base
	version  uint8
	firmware uint16
	hardware uint8
	interval uint32
}

var _ Parser = (*HwOstc)(nil)

// NewHwOstc creates a parser for a Heinrichs Weikamp OSTC dive blob.
func NewHwOstc(data []byte, model uint32, opts ...Option) (*HwOstc, error) {
	b, err := newBase(format.FamilyHwOstc, model, data, ostcNGasMixes, ostcNTanks, opts)
	if err != nil {
		return nil, err
	}

	p := &HwOstc{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

// stalePPO2 reports whether this firmware can leave a stale ppO2
// divisor behind, making overflowed readings meaningless.
func (p *HwOstc) stalePPO2() bool {
	switch p.hardware {
	case ostcHwTech:
		return p.firmware >= ostcFwTechStaleLo && p.firmware <= ostcFwTechStaleHi
	case ostcHwSport:
		return p.firmware >= ostcFwSportStaleLo && p.firmware <= ostcFwSportStaleHi
	default:
		return false
	}
}

// deciBarTanks reports whether tank pressure is stored in 0.1 bar
// instead of 1 bar.
func (p *HwOstc) deciBarTanks() bool {
	return p.hardware == ostcHwSport &&
		p.firmware >= ostcFwSportDeciLo && p.firmware <= ostcFwSportDeciHi
}

// brokenDeco reports whether the deco/NDL extension is known bad and
// must be skipped.
func (p *HwOstc) brokenDeco() bool {
	return p.hardware == ostcHwFour && p.firmware < ostcFwFourDecoFix
}

func (p *HwOstc) header() error {
	if p.buf.Len() < ostcHeaderSize {
		return fmt.Errorf("%w: ostc header needs %d bytes, have %d",
			errs.ErrDataFormat, ostcHeaderSize, p.buf.Len())
	}

	p.version, _ = p.buf.U8At(ostcVersion)
	if p.version != 0x20 && p.version != 0x21 && p.version != 0x23 {
		return fmt.Errorf("%w: unknown header version %#02x", errs.ErrDataFormat, p.version)
	}
	p.firmware, _ = p.buf.U16LEAt(ostcFirmware)
	p.hardware, _ = p.buf.U8At(ostcHardware)
	if p.hardware > ostcHwFour {
		return fmt.Errorf("%w: unknown hardware id %d", errs.ErrDataFormat, p.hardware)
	}

	date, _ := p.buf.Slice(ostcDate, 6)
	month := int(date[1])
	day := int(date[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return fmt.Errorf("%w: invalid date %d-%d", errs.ErrDataFormat, month, day)
	}
	p.dive.datetime = time.Date(2000+int(date[0]), time.Month(month), day,
		int(date[3]), int(date[4]), int(date[5]), 0, time.UTC)
	p.dive.hasDatetime = true

	// The two header generations encode divetime incompatibly; the rule
	// is kept exactly as the devices behave, unreconciled.
	if p.version > 0x20 {
		secs, _ := p.buf.U24LEAt(ostcDivetimeB)
		p.dive.divetime = secs
	} else {
		minutes, _ := p.buf.U16LEAt(ostcDivetimeA)
		secs, _ := p.buf.U8At(ostcDivetimeA + 2)
		p.dive.divetime = uint32(minutes)*60 + uint32(secs)
	}
	p.dive.hasDivetime = true

	maxdepth, _ := p.buf.U16LEAt(ostcMaxDepth)
	p.dive.maxdepth = float64(maxdepth) / 100.0
	p.dive.hasMaxdepth = true

	for i := 0; i < ostcNFixedGases; i++ {
		off := ostcGases + 3*i
		o2, _ := p.buf.U8At(off)
		he, _ := p.buf.U8At(off + 1)
		flags, _ := p.buf.U8At(off + 2)
		if flags&0x01 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	mode, _ := p.buf.U8At(ostcMode)
	switch mode {
	case 0:
		p.dive.divemode = format.ModeOpenCircuit
	case 1:
		p.dive.divemode = format.ModeClosedCircuit
	case 2:
		p.dive.divemode = format.ModeGauge
	case 3:
		p.dive.divemode = format.ModeFreedive
	default:
		return fmt.Errorf("%w: unknown dive mode %d", errs.ErrDataFormat, mode)
	}
	p.dive.hasDivemode = true

	if sal, _ := p.buf.U8At(ostcSalinity); sal >= 100 && sal <= 104 {
		wt := format.WaterFresh
		if sal > 100 {
			wt = format.WaterSalt
		}
		p.dive.salinity = format.Salinity{Type: wt, Density: float64(sal) * 10}
		p.dive.hasSalinity = true
	}

	gfLow, _ := p.buf.U8At(ostcGfLow)
	gfHigh, _ := p.buf.U8At(ostcGfHigh)
	model, _ := p.buf.U8At(ostcDecoModel)
	switch model {
	case 0:
		p.dive.decomodel = format.DecoModel{Type: format.DecoModelBuhlmann, GfLow: 100, GfHigh: 100}
	case 1:
		p.dive.decomodel = format.DecoModel{Type: format.DecoModelBuhlmann, GfLow: gfLow, GfHigh: gfHigh}
	case 2:
		p.dive.decomodel = format.DecoModel{Type: format.DecoModelVPM}
	default:
		return fmt.Errorf("%w: unknown deco model %d", errs.ErrDataFormat, model)
	}
	p.dive.hasDecomodel = true

	atm, _ := p.buf.U16LEAt(ostcAtm)
	p.dive.atmospheric = float64(atm) / format.BarToMbar
	p.dive.hasAtmospheric = true

	interval, _ := p.buf.U8At(ostcInterval)
	if interval == 0 {
		interval = 2
	}
	p.interval = uint32(interval)

	return nil
}

// Samples walks the variable-length records: depth (u16le, mbar), a
// profile byte, and an optional extension block of TLVs.
func (p *HwOstc) Samples(sink sample.Sink) error {
	t := uint32(0)
	currentMix := -1

	off := ostcHeaderSize
	for off < p.buf.Len() {
		if p.cancelled() {
			return errs.ErrCancelled
		}

		depth16, err := p.buf.U16LEAt(off)
		if err != nil {
			return err
		}
		if depth16 == ostcEndDepth {
			return nil
		}
		pbyte, err := p.buf.U8At(off + 2)
		if err != nil {
			return err
		}
		off += 3

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(depth16) / 100.0
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		if pbyte&0x80 == 0 {
			continue
		}

		extlen, err := p.buf.U8At(off)
		if err != nil {
			return err
		}
		ext, err := p.buf.Slice(off+1, int(extlen))
		if err != nil {
			return err
		}
		off += 1 + int(extlen)

		if err := p.extensions(sink, t, ext, &currentMix); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: profile not closed by end marker", errs.ErrDataFormat)
}

// extensions dispatches the TLV block of one sample.
func (p *HwOstc) extensions(sink sample.Sink, t uint32, ext []byte, currentMix *int) error {
	for len(ext) >= 2 {
		typ := ext[0]
		length := int(ext[1])
		if length > len(ext)-2 {
			return fmt.Errorf("%w: extension %#02x overruns its block", errs.ErrDataFormat, typ)
		}
		data := ext[2 : 2+length]
		ext = ext[2+length:]

		switch typ {
		case ostcExtTemp:
			if length < 2 {
				return fmt.Errorf("%w: short temperature extension", errs.ErrDataFormat)
			}
			temp := float64(raw.SignExtend(uint32(raw.U16LE(data)), 16)) / 10.0
			p.dive.trackTemperature(temp)
			emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})
		case ostcExtDeco:
			if p.brokenDeco() {
				continue
			}
			if length < 4 {
				return fmt.Errorf("%w: short deco extension", errs.ErrDataFormat)
			}
			stopDepth := float64(data[0])
			stopTime := uint32(data[1]) * 60
			tts := uint32(raw.U16LE(data[2:4]))
			if stopDepth > 0 {
				emit(sink, sample.Sample{
					Kind: sample.KindDeco,
					Deco: sample.Deco{Type: format.DecoStop, Depth: stopDepth, Time: stopTime, TTS: tts},
				})
			} else {
				emit(sink, sample.Sample{
					Kind: sample.KindDeco,
					Deco: sample.Deco{Type: format.DecoNDL, Time: tts},
				})
			}
		case ostcExtPPO2:
			for i := 0; i+2 <= length; i += 2 {
				mbar := raw.U16LE(data[i : i+2])
				value := float64(mbar) / 1000.0
				if mbar > 6550 && p.stalePPO2() {
					// Stale divisor: the reading overflowed, report a
					// cleared sensor instead of garbage.
					p.warnf("ppO2 sensor %d overflow (%d mbar), resetting to zero", i/2, mbar)
					value = 0
				}
				emit(sink, sample.Sample{
					Kind: sample.KindPPO2,
					PPO2: sample.PPO2{Sensor: i / 2, Value: value},
				})
			}
		case ostcExtCNS:
			if length < 2 {
				return fmt.Errorf("%w: short CNS extension", errs.ErrDataFormat)
			}
			emit(sink, sample.Sample{Kind: sample.KindCNS, CNS: float64(raw.U16LE(data)) / 10.0})
		case ostcExtTank:
			if length < 3 {
				return fmt.Errorf("%w: short tank extension", errs.ErrDataFormat)
			}
			if err := p.tankReading(sink, data); err != nil {
				return err
			}
		case ostcExtGasChange:
			if length < 1 {
				return fmt.Errorf("%w: short gas change extension", errs.ErrDataFormat)
			}
			if err := p.gasChange(sink, int(data[0]), currentMix); err != nil {
				return err
			}
		case ostcExtSetpoint:
			if length < 1 {
				return fmt.Errorf("%w: short setpoint extension", errs.ErrDataFormat)
			}
			emit(sink, sample.Sample{Kind: sample.KindSetpoint, Setpoint: float64(data[0]) / 100.0})
		default:
			p.warnf("unknown extension %#02x: %s", typ, raw.HexDump(data))
		}
	}

	return nil
}

func (p *HwOstc) tankReading(sink sample.Sink, data []byte) error {
	id := uint32(data[0])
	pressure := float64(raw.U16LE(data[1:3]))
	if p.deciBarTanks() {
		pressure /= 10.0
	}
	if pressure == 0 {
		return nil
	}

	idx := p.dive.findTank(id)
	if idx < 0 {
		var err error
		idx, err = p.dive.addTank(format.Tank{
			Units:          format.TankMetric,
			GasMix:         -1,
			TransmitterID:  id,
			HasTransmitter: true,
		})
		if err != nil {
			return err
		}
	}
	p.dive.pressureReading(idx, pressure)
	emit(sink, sample.Sample{
		Kind:     sample.KindPressure,
		Pressure: sample.Pressure{Tank: idx, Value: pressure},
	})

	return nil
}

func (p *HwOstc) gasChange(sink sample.Sink, idx int, currentMix *int) error {
	diluent := false
	if p.hardware == ostcHwFour && p.dive.divemode == format.ModeClosedCircuit && idx >= ostcNFixedGases {
		// OSTC4 numbers CCR diluents above the fixed gas list.
		idx -= ostcNFixedGases
		diluent = true
	}
	if idx < 0 || idx >= len(p.dive.mixes) {
		return fmt.Errorf("%w: gas mix index %d of %d", errs.ErrDataFormat, idx, len(p.dive.mixes))
	}
	if diluent {
		p.dive.mixes[idx].Diluent = true
	}
	if idx != *currentMix {
		emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: idx})
		*currentMix = idx
	}

	return nil
}
