package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Divesystem iDive family models. The iX3M line shares the iDive layout
// with a larger sample record and a different atmospheric scale.
const (
	ModelIDive = 0x01
	ModelIX3M  = 0x02
	ModelIX3M2 = 0x03
)

// Divesystem dive header, 0x36 bytes followed by fixed-size samples.
const (
	idiveHeaderSize = 0x36

	idiveTimestamp = 0x00 // u32le, seconds since 2008-01-01
	idiveFirmware  = 0x04 // u32le
	idiveNSamples  = 0x08 // u16le
	idiveDivetime  = 0x0a // u16le, seconds
	idiveMaxDepth  = 0x0c // u16le, 1/10 m
	idiveAtm       = 0x0e // u16le, scaled by model
	idiveMode      = 0x10 // u8
	idiveWater     = 0x11 // u8
	idiveGasmixes  = 0x12 // 8 slots of (o2, he)

	idiveNGasMixes = 8
	idiveNTanks    = 4

	// Samples grew to 0x40 bytes with the APOS4 firmware line.
	idiveSampleSize = 0x20
	apos4SampleSize = 0x40

	// apos4Firmware is the first firmware with the expanded sample
	// layout, separate decotime, tank pressure and compass bearing.
	apos4Firmware = 40_000_000
)

// APOS4 sample record offsets.
const (
	apos4Time      = 2  // u32le, seconds
	apos4Depth     = 6  // u16le, 1/10 m
	apos4Temp      = 8  // i16le, 1/10 C
	apos4O2        = 10 // u8, percent
	apos4He        = 11 // u8, percent
	apos4Algorithm = 14 // u8
	apos4GfHigh    = 15 // u8
	apos4GfLow     = 16 // u8
	apos4Mode      = 18 // u8
	apos4Setpoint  = 19 // u16le, 1/1000 bar
	apos4DecoDepth = 21 // u16le, 1/10 m
	apos4DecoTime  = 23 // u16le, seconds
	apos4TTS       = 25 // u16le, seconds
	apos4CNS       = 29 // u16le, percent x100
	apos4Tank      = 47 // low nibble tank id, high nibble flags
	apos4Pressure  = 49 // u8, bar
	apos4Bearing   = 50 // u16le, degrees, 0xffff absent
	apos4RecType   = 52 // u16le, 0 sample, 1 info

	// Info record payload.
	apos4Latitude  = 40 // i32le, degrees x1e7
	apos4Longitude = 44 // i32le, degrees x1e7
	apos4Altitude  = 48 // i16le, meters
	apos4Timezone  = 36 // i16le, minutes east of UTC
)

// Tank flag bits in the high nibble of the tank byte.
const (
	apos4TankNone     = 0x10 // no transmitter paired
	apos4Tank300Bar   = 0x20 // 300-bar transmitter, pressure stored halved
	apos4TankConnLost = 0x40 // transmitter connection lost
)

// DivesystemIDive parses Divesystem iDive and iX3M dive blobs.
type DivesystemIDive struct {
	base
	firmware   uint32
	nsamples   int
	sampleSize int
	gotGPS     bool
}

var _ Parser = (*DivesystemIDive)(nil)

var idiveEpoch = time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)

// NewDivesystemIDive creates a parser for a Divesystem dive blob.
func NewDivesystemIDive(data []byte, model uint32, opts ...Option) (*DivesystemIDive, error) {
	b, err := newBase(format.FamilyDivesystemIDive, model, data, idiveNGasMixes, idiveNTanks, opts)
	if err != nil {
		return nil, err
	}

	p := &DivesystemIDive{base: b}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

// apos4 reports whether the blob uses the expanded APOS4 sample layout.
func (p *DivesystemIDive) apos4() bool {
	return p.model != ModelIDive && p.firmware >= apos4Firmware
}

func (p *DivesystemIDive) header() error {
	if p.buf.Len() < idiveHeaderSize {
		return fmt.Errorf("%w: idive header needs %d bytes, have %d",
			errs.ErrDataFormat, idiveHeaderSize, p.buf.Len())
	}

	p.firmware, _ = p.buf.U32LEAt(idiveFirmware)
	p.sampleSize = idiveSampleSize
	if p.apos4() {
		p.sampleSize = apos4SampleSize
	}

	ticks, _ := p.buf.U32LEAt(idiveTimestamp)
	p.dive.datetime = idiveEpoch.Add(time.Duration(ticks) * time.Second)
	p.dive.hasDatetime = true

	divetime, _ := p.buf.U16LEAt(idiveDivetime)
	p.dive.divetime = uint32(divetime)
	p.dive.hasDivetime = true

	maxdepth, _ := p.buf.U16LEAt(idiveMaxDepth)
	p.dive.maxdepth = float64(maxdepth) / 10.0
	p.dive.hasMaxdepth = true

	// The iX3M APOS4 firmware stores pressure in 1/10000 bar, older
	// firmware and the iDive in 1/1000.
	atm, _ := p.buf.U16LEAt(idiveAtm)
	divisor := 1000.0
	if p.apos4() {
		divisor = 10000.0
	}
	p.dive.atmospheric = float64(atm) / divisor
	p.dive.hasAtmospheric = true

	mode, _ := p.buf.U8At(idiveMode)
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

	water, _ := p.buf.U8At(idiveWater)
	if water == 0 {
		p.dive.salinity = format.Salinity{Type: format.WaterFresh}
	} else {
		p.dive.salinity = format.Salinity{Type: format.WaterSalt}
	}
	p.dive.hasSalinity = true

	for i := 0; i < idiveNGasMixes; i++ {
		o2, _ := p.buf.U8At(idiveGasmixes + 2*i)
		he, _ := p.buf.U8At(idiveGasmixes + 2*i + 1)
		if o2 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	nsamples, _ := p.buf.U16LEAt(idiveNSamples)
	p.nsamples = int(nsamples)
	if p.buf.Len() < idiveHeaderSize+p.nsamples*p.sampleSize {
		return fmt.Errorf("%w: truncated sample data (%d samples of %d bytes declared)",
			errs.ErrDataFormat, p.nsamples, p.sampleSize)
	}

	return nil
}

// Samples walks the fixed-size sample records.
func (p *DivesystemIDive) Samples(sink sample.Sink) error {
	tracker := timeTracker{warn: p.warnf}
	currentMix := -1
	p.gotGPS = false

	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		off := idiveHeaderSize + i*p.sampleSize

		rec, err := p.buf.Slice(off, p.sampleSize)
		if err != nil {
			return err
		}

		if p.apos4() && raw.U16LE(rec[apos4RecType:apos4RecType+2]) == 1 {
			p.info(rec)
			continue
		}

		ts := raw.U32LE(rec[apos4Time : apos4Time+4])
		skip, err := tracker.advance(ts)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		if currentMix, err = p.sample(sink, ts, rec, currentMix); err != nil {
			return err
		}
	}

	return nil
}

func (p *DivesystemIDive) sample(sink sample.Sink, ts uint32, rec []byte, currentMix int) (int, error) {
	emit(sink, sample.Sample{Kind: sample.KindTime, Time: ts})

	depth := float64(raw.U16LE(rec[apos4Depth:apos4Depth+2])) / 10.0
	p.dive.trackDepth(depth)
	emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

	temp := float64(raw.SignExtend(uint32(raw.U16LE(rec[apos4Temp:apos4Temp+2])), 16)) / 10.0
	p.dive.trackTemperature(temp)
	emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

	mix := format.GasMix{Oxygen: rec[apos4O2], Helium: rec[apos4He]}
	if mix.Oxygen > 0 {
		idx, err := p.dive.addMix(mix)
		if err != nil {
			return currentMix, err
		}
		if idx != currentMix {
			emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: idx})
			currentMix = idx
		}
	}

	if !p.dive.hasDecomodel {
		switch rec[apos4Algorithm] {
		case 0:
			p.dive.decomodel = format.DecoModel{
				Type:   format.DecoModelBuhlmann,
				GfLow:  rec[apos4GfLow],
				GfHigh: rec[apos4GfHigh],
			}
			p.dive.hasDecomodel = true
		case 1:
			p.dive.decomodel = format.DecoModel{Type: format.DecoModelVPM}
			p.dive.hasDecomodel = true
		default:
			return currentMix, fmt.Errorf("%w: unknown deco algorithm %d", errs.ErrDataFormat, rec[apos4Algorithm])
		}
	}

	if rec[apos4Mode] == 1 { // CCR: setpoint is live
		setpoint := float64(raw.U16LE(rec[apos4Setpoint:apos4Setpoint+2])) / 1000.0
		emit(sink, sample.Sample{Kind: sample.KindSetpoint, Setpoint: setpoint})
	}

	decoDepth := float64(raw.U16LE(rec[apos4DecoDepth:apos4DecoDepth+2])) / 10.0
	decoTime := uint32(raw.U16LE(rec[apos4DecoTime : apos4DecoTime+2]))
	tts := uint32(raw.U16LE(rec[apos4TTS : apos4TTS+2]))
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

	cns := float64(raw.U16LE(rec[apos4CNS:apos4CNS+2])) / 100.0
	emit(sink, sample.Sample{Kind: sample.KindCNS, CNS: cns})

	if p.apos4() {
		if err := p.tank(sink, rec); err != nil {
			return currentMix, err
		}
		if bearing := raw.U16LE(rec[apos4Bearing : apos4Bearing+2]); bearing != 0xffff {
			emit(sink, sample.Sample{Kind: sample.KindBearing, Bearing: uint32(bearing)})
		}
	}

	return currentMix, nil
}

// tank decodes the transmitter byte and pressure of an APOS4 sample.
func (p *DivesystemIDive) tank(sink sample.Sink, rec []byte) error {
	tb := rec[apos4Tank]
	if tb&apos4TankNone != 0 {
		return nil
	}
	pressure := float64(rec[apos4Pressure])
	if pressure == 0 {
		return nil
	}
	if tb&apos4Tank300Bar != 0 {
		pressure *= 2
	}

	id := uint32(tb & 0x0f)
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

	if tb&apos4TankConnLost != 0 {
		p.warnf("tank %d transmitter connection lost", id)
		return nil
	}
	emit(sink, sample.Sample{
		Kind:     sample.KindPressure,
		Pressure: sample.Pressure{Tank: idx, Value: pressure},
	})

	return nil
}

// info decodes a type-1 record: a GPS fix and the recorded timezone.
func (p *DivesystemIDive) info(rec []byte) {
	lat := raw.SignExtend(raw.U32LE(rec[apos4Latitude:apos4Latitude+4]), 32)
	lon := raw.SignExtend(raw.U32LE(rec[apos4Longitude:apos4Longitude+4]), 32)
	alt := raw.SignExtend(uint32(raw.U16LE(rec[apos4Altitude:apos4Altitude+2])), 16)

	if lat != 0 || lon != 0 {
		if p.gotGPS {
			p.warnf("multiple GPS fixes, keeping the first")
		} else {
			p.dive.location = format.Location{
				Latitude:  float64(lat) / 1e7,
				Longitude: float64(lon) / 1e7,
				Altitude:  float64(alt),
			}
			p.dive.hasLocation = true
			p.gotGPS = true
		}
	}

	if tz := raw.SignExtend(uint32(raw.U16LE(rec[apos4Timezone:apos4Timezone+2])), 16); tz != 0 {
		offset := int(tz) * 60
		loc := time.FixedZone(fmt.Sprintf("UTC%+d", offset/3600), offset)
		p.dive.datetime = p.dive.datetime.In(loc)
	}
}
