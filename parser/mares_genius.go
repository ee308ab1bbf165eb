package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/checksum"
	"github.com/arloliu/divewire/endian"
	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// The record framing is big-endian; everything inside a body is
// little-endian.
var geniusEngine = endian.GetBigEndianEngine()

// Mares Genius log: a fixed header, then framed records. Each record is
// a 4-byte big-endian ASCII magic, a fixed-size body, a CRC-16-CCITT
// over the body, and the magic repeated.
const (
	geniusHeaderSize = 0x40

	geniusSignature = 0x00 // "GENI"
	geniusVersion   = 0x04 // u16le
	geniusHdrSize   = 0x06 // u16le, must equal geniusHeaderSize
	geniusCRC       = 0x08 // u16le, CRC-16-CCITT(0x0000) over bytes 0x0a..0x40
	geniusTimestamp = 0x0a // u32le, seconds since 2000-01-01
	geniusDivetime  = 0x0e // u32le, seconds
	geniusMaxDepth  = 0x12 // u32le, mm
	geniusAtm       = 0x16 // u16le, mbar
	geniusMode      = 0x18 // u8
	geniusWater     = 0x19 // u8
	geniusInterval  = 0x1a // u16le, seconds
	geniusGasmixes  = 0x1c // 3 slots of (o2, he)
	geniusTanks     = 0x22 // 3 slots of u16le volume (dl) + u16le work pressure (bar)

	geniusNGasMixes = 3
	geniusNTanks    = 3

	geniusFrameOverhead = 10 // magic + crc + repeated magic
)

// Record magics, read big-endian.
const (
	geniusDSTR = 0x44535452 // dive start
	geniusTISS = 0x54495353 // tissue loadings
	geniusDPRS = 0x44505253 // profile sample
	geniusSDPT = 0x53445054 // sub dive point
	geniusAIRS = 0x41495253 // tank pressure
	geniusDEND = 0x44454e44 // dive end
)

// geniusBodyLen maps a record magic to its fixed body length.
var geniusBodyLen = map[uint32]int{
	geniusDSTR: 58,
	geniusTISS: 138,
	geniusDPRS: 34,
	geniusSDPT: 78,
	geniusAIRS: 16,
	geniusDEND: 162,
}

// DPRS body offsets.
const (
	dprsDepth     = 0  // u16le, cm
	dprsTemp      = 2  // i16le, 1/10 C
	dprsMix       = 4  // u8, index into the header mix table
	dprsFlags     = 5  // u8
	dprsDecoDepth = 6  // u16le, cm
	dprsDecoTime  = 8  // u16le, seconds
	dprsTTS       = 10 // u16le, seconds
	dprsSetpoint  = 12 // u16le, mbar
)

// AIRS body offsets.
const (
	airsTank     = 0 // u8, tank slot
	airsFlags    = 1 // u8
	airsPressure = 2 // u16le, 1/100 bar
)

// MaresGenius parses Mares Genius dive blobs.
type MaresGenius struct {
	base
	interval uint32
}

var _ Parser = (*MaresGenius)(nil)

var geniusEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewMaresGenius creates a parser for a Mares Genius dive blob.
func NewMaresGenius(data []byte, model uint32, opts ...Option) (*MaresGenius, error) {
	b, err := newBase(format.FamilyMaresGenius, model, data, geniusNGasMixes, geniusNTanks, opts)
	if err != nil {
		return nil, err
	}

	p := &MaresGenius{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *MaresGenius) header() error {
	if p.buf.Len() < geniusHeaderSize {
		return fmt.Errorf("%w: genius header needs %d bytes, have %d",
			errs.ErrDataFormat, geniusHeaderSize, p.buf.Len())
	}

	sig, _ := p.buf.Slice(geniusSignature, 4)
	if string(sig) != "GENI" {
		return fmt.Errorf("%w: bad signature %q", errs.ErrDataFormat, sig)
	}
	if hs, _ := p.buf.U16LEAt(geniusHdrSize); int(hs) != geniusHeaderSize {
		return fmt.Errorf("%w: unexpected header size %d", errs.ErrDataFormat, hs)
	}

	want, _ := p.buf.U16LEAt(geniusCRC)
	body, _ := p.buf.Slice(geniusTimestamp, geniusHeaderSize-geniusTimestamp)
	if got := checksum.CRC16CCITT(body, 0x0000, 0x0000); got != want {
		return fmt.Errorf("%w: header CRC mismatch (%#04x != %#04x)", errs.ErrDataFormat, got, want)
	}

	ticks, _ := p.buf.U32LEAt(geniusTimestamp)
	p.dive.datetime = geniusEpoch.Add(time.Duration(ticks) * time.Second)
	p.dive.hasDatetime = true

	divetime, _ := p.buf.U32LEAt(geniusDivetime)
	p.dive.divetime = divetime
	p.dive.hasDivetime = true

	maxdepth, _ := p.buf.U32LEAt(geniusMaxDepth)
	p.dive.maxdepth = float64(maxdepth) / 1000.0
	p.dive.hasMaxdepth = true

	atm, _ := p.buf.U16LEAt(geniusAtm)
	p.dive.atmospheric = float64(atm) / format.BarToMbar
	p.dive.hasAtmospheric = true

	mode, _ := p.buf.U8At(geniusMode)
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

	water, _ := p.buf.U8At(geniusWater)
	if water == 0 {
		p.dive.salinity = format.Salinity{Type: format.WaterFresh}
	} else {
		p.dive.salinity = format.Salinity{Type: format.WaterSalt}
	}
	p.dive.hasSalinity = true

	interval, _ := p.buf.U16LEAt(geniusInterval)
	if interval == 0 {
		interval = 5
	}
	p.interval = uint32(interval)

	for i := 0; i < geniusNGasMixes; i++ {
		o2, _ := p.buf.U8At(geniusGasmixes + 2*i)
		he, _ := p.buf.U8At(geniusGasmixes + 2*i + 1)
		if o2 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	for i := 0; i < geniusNTanks; i++ {
		volume, _ := p.buf.U16LEAt(geniusTanks + 4*i)
		work, _ := p.buf.U16LEAt(geniusTanks + 4*i + 2)
		if volume == 0 {
			break
		}
		mixIdx := i
		if mixIdx >= len(p.dive.mixes) {
			mixIdx = -1
		}
		if _, err := p.dive.addTank(format.Tank{
			Volume:       uint32(volume),
			WorkPressure: float64(work),
			Units:        format.TankMetric,
			GasMix:       mixIdx,
		}); err != nil {
			return err
		}
	}

	return nil
}

// Samples walks the framed records. The profile must open with DSTR and
// close with DEND; every record checksum is verified before dispatch.
func (p *MaresGenius) Samples(sink sample.Sink) error {
	t := uint32(0)
	currentMix := -1
	currentTank := 0
	started := false

	off := geniusHeaderSize
	for off < p.buf.Len() {
		if p.cancelled() {
			return errs.ErrCancelled
		}

		head, err := p.buf.Slice(off, 4)
		if err != nil {
			return err
		}
		magic := geniusEngine.Uint32(head)
		bodyLen, ok := geniusBodyLen[magic]
		if !ok {
			return fmt.Errorf("%w: unknown record magic %#08x at offset %d", errs.ErrDataFormat, magic, off)
		}
		body, err := p.buf.Slice(off+4, bodyLen)
		if err != nil {
			return err
		}

		want, _ := p.buf.U16LEAt(off + 4 + bodyLen)
		if got := checksum.CRC16CCITT(body, 0x0000, 0x0000); got != want {
			return fmt.Errorf("%w: record %#08x CRC mismatch (%#04x != %#04x)",
				errs.ErrDataFormat, magic, got, want)
		}
		tailBytes, err := p.buf.Slice(off+4+bodyLen+2, 4)
		if err != nil || geniusEngine.Uint32(tailBytes) != magic {
			return fmt.Errorf("%w: record %#08x not closed by its magic", errs.ErrDataFormat, magic)
		}

		if !started && magic != geniusDSTR {
			return fmt.Errorf("%w: profile does not start with DSTR", errs.ErrDataFormat)
		}

		switch magic {
		case geniusDSTR:
			started = true
			p.diveStart(body)
		case geniusDPRS:
			t += p.interval
			if err := p.profileSample(sink, t, body, &currentMix); err != nil {
				return err
			}
		case geniusAIRS:
			if err := p.airSample(sink, body, &currentTank); err != nil {
				return err
			}
		case geniusTISS, geniusSDPT:
			emit(sink, sample.Sample{
				Kind:   sample.KindVendor,
				Vendor: sample.Vendor{Type: magic, Data: body},
			})
		case geniusDEND:
			p.diveEnd(body)
			return nil
		}

		off += 4 + bodyLen + geniusFrameOverhead - 4
	}

	return fmt.Errorf("%w: profile not closed by DEND", errs.ErrDataFormat)
}

// diveStart decodes the DSTR record: the deco model configuration.
func (p *MaresGenius) diveStart(body []byte) {
	gfLow := body[0]
	gfHigh := body[1]
	if gfHigh > 0 {
		p.dive.decomodel = format.DecoModel{
			Type:   format.DecoModelBuhlmann,
			GfLow:  gfLow,
			GfHigh: gfHigh,
		}
		p.dive.hasDecomodel = true
	}
}

// diveEnd decodes the DEND record: closing statistics.
func (p *MaresGenius) diveEnd(body []byte) {
	if avg := raw.U16LE(body[0:2]); avg > 0 {
		p.dive.avgdepth = float64(avg) / 100.0
		p.dive.hasAvgdepth = true
	}
}

// profileSample decodes one DPRS record.
func (p *MaresGenius) profileSample(sink sample.Sink, t uint32, body []byte, currentMix *int) error {
	emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

	depth := float64(raw.U16LE(body[dprsDepth:dprsDepth+2])) / 100.0
	p.dive.trackDepth(depth)
	emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

	temp := float64(raw.SignExtend(uint32(raw.U16LE(body[dprsTemp:dprsTemp+2])), 16)) / 10.0
	p.dive.trackTemperature(temp)
	emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

	mix := int(body[dprsMix])
	if mix >= len(p.dive.mixes) {
		return fmt.Errorf("%w: gas mix index %d of %d", errs.ErrDataFormat, mix, len(p.dive.mixes))
	}
	if mix != *currentMix {
		emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: mix})
		*currentMix = mix
	}

	if p.dive.divemode == format.ModeClosedCircuit {
		setpoint := float64(raw.U16LE(body[dprsSetpoint:dprsSetpoint+2])) / 1000.0
		emit(sink, sample.Sample{Kind: sample.KindSetpoint, Setpoint: setpoint})
	}

	decoDepth := float64(raw.U16LE(body[dprsDecoDepth:dprsDecoDepth+2])) / 100.0
	decoTime := uint32(raw.U16LE(body[dprsDecoTime : dprsDecoTime+2]))
	tts := uint32(raw.U16LE(body[dprsTTS : dprsTTS+2]))
	if decoDepth > 0 {
		emit(sink, sample.Sample{
			Kind: sample.KindDeco,
			Deco: sample.Deco{Type: format.DecoStop, Depth: decoDepth, Time: decoTime, TTS: tts},
		})
	} else {
		emit(sink, sample.Sample{
			Kind: sample.KindDeco,
			Deco: sample.Deco{Type: format.DecoNDL, Time: tts},
		})
	}

	if body[dprsFlags]&0x01 != 0 {
		emit(sink, sample.Sample{
			Kind:  sample.KindEvent,
			Event: sample.Event{Type: sample.EventBookmark, Time: t},
		})
	}

	return nil
}

// airSample decodes one AIRS record, attaching the pressure to the
// selected tank.
func (p *MaresGenius) airSample(sink sample.Sink, body []byte, currentTank *int) error {
	slot := int(body[airsTank])
	if slot >= geniusNTanks {
		return fmt.Errorf("%w: tank slot %d of %d", errs.ErrDataFormat, slot, geniusNTanks)
	}
	*currentTank = slot

	// A pressure for a tank the header did not declare discovers it.
	for len(p.dive.tanks) <= slot {
		if _, err := p.dive.addTank(format.Tank{Units: format.TankMetric, GasMix: -1}); err != nil {
			return err
		}
	}

	if body[airsFlags]&0x01 != 0 {
		p.warnf("tank %d transmitter connection lost", slot)
		return nil
	}

	pressure := float64(raw.U16LE(body[airsPressure:airsPressure+2])) / 100.0
	p.dive.pressureReading(slot, pressure)
	emit(sink, sample.Sample{
		Kind:     sample.KindPressure,
		Pressure: sample.Pressure{Tank: slot, Value: pressure},
	})

	return nil
}
