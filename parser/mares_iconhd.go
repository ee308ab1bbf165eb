package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Mares Icon HD family models.
const (
	ModelIconHD     = 0x14
	ModelIconHDNet  = 0x15
	ModelQuad       = 0x23
	ModelQuadAir    = 0x24
	ModelSmartDive  = 0x10
	ModelSmartApnea = 0x11
	ModelSmartAir   = 0x12
)

// iconhdLayout captures the per-model differences: the sample stride
// and whether the record carries tank pressure.
type iconhdLayout struct {
	sampleSize int
	hasAir     bool
	freedive   bool
}

var iconhdLayouts = map[uint32]iconhdLayout{
	ModelIconHD:     {sampleSize: 8},
	ModelIconHDNet:  {sampleSize: 8},
	ModelQuad:       {sampleSize: 8},
	ModelQuadAir:    {sampleSize: 12, hasAir: true},
	ModelSmartDive:  {sampleSize: 8},
	ModelSmartApnea: {sampleSize: 6, freedive: true},
	ModelSmartAir:   {sampleSize: 12, hasAir: true},
}

// Icon HD dive header, 0x80 bytes followed by fixed-size samples.
const (
	iconhdHeaderSize = 0x80

	iconhdTimestamp = 0x00 // u32le, seconds since 2000-01-01
	iconhdDivetime  = 0x04 // u32le, seconds
	iconhdMaxDepth  = 0x08 // u32le, mm
	iconhdAtm       = 0x0c // u16le, mbar
	iconhdMode      = 0x0e // u8
	iconhdWater     = 0x0f // u8
	iconhdGasmixes  = 0x10 // 5 slots of (o2, he)
	iconhdInterval  = 0x1a // u16le, seconds
	iconhdNSamples  = 0x1c // u16le
	iconhdTanks     = 0x20 // 3 slots of 8 bytes

	iconhdNGasMixes = 5
	iconhdNTanks    = 3
)

// Tank slot layout inside the header.
const (
	iconhdTankID     = 0 // u32le, transmitter id, 0 unpaired
	iconhdTankVolume = 4 // u16le, dl
	iconhdTankWork   = 6 // u8, work pressure x2 bar
	iconhdTankFlags  = 7 // bit0 active, bits 4..7 linked mix
)

// Sample record offsets.
const (
	iconhdSmpDepth    = 0  // u16le, cm
	iconhdSmpTemp     = 2  // i16le, 1/10 C
	iconhdSmpMix      = 4  // u8
	iconhdSmpEvents   = 5  // u8
	iconhdSmpDeco     = 6  // u16le, packed deco word
	iconhdSmpPressure = 8  // u16le, 1/100 bar (air models)
	iconhdSmpTank     = 10 // u8, tank slot (air models)
)

// MaresIconHD parses Mares Icon HD, Quad and Smart dive blobs.
type MaresIconHD struct {
	base
	layout   iconhdLayout
	interval uint32
	nsamples int
}

var _ Parser = (*MaresIconHD)(nil)

var iconhdEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewMaresIconHD creates a parser for a Mares Icon HD dive blob.
func NewMaresIconHD(data []byte, model uint32, opts ...Option) (*MaresIconHD, error) {
	layout, ok := iconhdLayouts[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mares model %#x", errs.ErrInvalidArgs, model)
	}

	b, err := newBase(format.FamilyMaresIconHD, model, data, iconhdNGasMixes, iconhdNTanks, opts)
	if err != nil {
		return nil, err
	}

	p := &MaresIconHD{base: b, layout: layout}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *MaresIconHD) header() error {
	if p.buf.Len() < iconhdHeaderSize {
		return fmt.Errorf("%w: iconhd header needs %d bytes, have %d",
			errs.ErrDataFormat, iconhdHeaderSize, p.buf.Len())
	}

	ticks, _ := p.buf.U32LEAt(iconhdTimestamp)
	p.dive.datetime = iconhdEpoch.Add(time.Duration(ticks) * time.Second)
	p.dive.hasDatetime = true

	divetime, _ := p.buf.U32LEAt(iconhdDivetime)
	p.dive.divetime = divetime
	p.dive.hasDivetime = true

	maxdepth, _ := p.buf.U32LEAt(iconhdMaxDepth)
	p.dive.maxdepth = float64(maxdepth) / 1000.0
	p.dive.hasMaxdepth = true

	atm, _ := p.buf.U16LEAt(iconhdAtm)
	p.dive.atmospheric = float64(atm) / format.BarToMbar
	p.dive.hasAtmospheric = true

	if p.layout.freedive {
		p.dive.divemode = format.ModeFreedive
	} else {
		mode, _ := p.buf.U8At(iconhdMode)
		switch mode {
		case 0:
			p.dive.divemode = format.ModeOpenCircuit
		case 1:
			p.dive.divemode = format.ModeGauge
		default:
			return fmt.Errorf("%w: unknown dive mode %d", errs.ErrDataFormat, mode)
		}
	}
	p.dive.hasDivemode = true

	water, _ := p.buf.U8At(iconhdWater)
	if water == 0 {
		p.dive.salinity = format.Salinity{Type: format.WaterFresh}
	} else {
		p.dive.salinity = format.Salinity{Type: format.WaterSalt}
	}
	p.dive.hasSalinity = true

	for i := 0; i < iconhdNGasMixes; i++ {
		o2, _ := p.buf.U8At(iconhdGasmixes + 2*i)
		he, _ := p.buf.U8At(iconhdGasmixes + 2*i + 1)
		if o2 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2, Helium: he}); err != nil {
			return err
		}
	}

	if p.layout.hasAir {
		if err := p.headerTanks(); err != nil {
			return err
		}
	}

	interval, _ := p.buf.U16LEAt(iconhdInterval)
	if interval == 0 {
		interval = 5
	}
	p.interval = uint32(interval)

	nsamples, _ := p.buf.U16LEAt(iconhdNSamples)
	p.nsamples = int(nsamples)
	if p.buf.Len() < iconhdHeaderSize+p.nsamples*p.layout.sampleSize {
		return fmt.Errorf("%w: truncated sample data (%d samples of %d bytes declared)",
			errs.ErrDataFormat, p.nsamples, p.layout.sampleSize)
	}

	return nil
}

func (p *MaresIconHD) headerTanks() error {
	for i := 0; i < iconhdNTanks; i++ {
		off := iconhdTanks + 8*i

		id, _ := p.buf.U32LEAt(off + iconhdTankID)
		volume, _ := p.buf.U16LEAt(off + iconhdTankVolume)
		work, _ := p.buf.U8At(off + iconhdTankWork)
		flags, _ := p.buf.U8At(off + iconhdTankFlags)
		if flags&0x01 == 0 {
			continue
		}

		mixIdx := int(flags >> 4)
		if mixIdx >= len(p.dive.mixes) {
			mixIdx = -1
		}
		if _, err := p.dive.addTank(format.Tank{
			Volume:         uint32(volume),
			WorkPressure:   float64(work) * 2,
			Units:          format.TankMetric,
			GasMix:         mixIdx,
			TransmitterID:  id,
			HasTransmitter: id != 0,
		}); err != nil {
			return err
		}
	}

	return nil
}

// Samples walks the fixed-size sample records.
func (p *MaresIconHD) Samples(sink sample.Sink) error {
	t := uint32(0)
	currentMix := -1

	for i := 0; i < p.nsamples; i++ {
		if p.cancelled() {
			return errs.ErrCancelled
		}
		off := iconhdHeaderSize + i*p.layout.sampleSize

		rec, err := p.buf.Slice(off, p.layout.sampleSize)
		if err != nil {
			return err
		}

		t += p.interval
		emit(sink, sample.Sample{Kind: sample.KindTime, Time: t})

		depth := float64(raw.U16LE(rec[iconhdSmpDepth:iconhdSmpDepth+2])) / 100.0
		p.dive.trackDepth(depth)
		emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

		temp := float64(raw.SignExtend(uint32(raw.U16LE(rec[iconhdSmpTemp:iconhdSmpTemp+2])), 16)) / 10.0
		p.dive.trackTemperature(temp)
		emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: temp})

		if p.layout.freedive {
			continue
		}

		mix := int(rec[iconhdSmpMix])
		if mix >= len(p.dive.mixes) {
			return fmt.Errorf("%w: gas mix index %d of %d", errs.ErrDataFormat, mix, len(p.dive.mixes))
		}
		if mix != currentMix {
			emit(sink, sample.Sample{Kind: sample.KindGasMix, GasMix: mix})
			currentMix = mix
		}

		// The deco word packs a stop flag in the high bit; the rest is
		// stop time or NDL in minutes.
		deco := raw.U16LE(rec[iconhdSmpDeco : iconhdSmpDeco+2])
		if deco&0x8000 != 0 {
			emit(sink, sample.Sample{
				Kind: sample.KindDeco,
				Deco: sample.Deco{Type: format.DecoStop, Time: uint32(deco&0x7fff) * 60},
			})
		} else {
			emit(sink, sample.Sample{
				Kind: sample.KindDeco,
				Deco: sample.Deco{Type: format.DecoNDL, Time: uint32(deco) * 60},
			})
		}

		if rec[iconhdSmpEvents]&0x01 != 0 {
			emit(sink, sample.Sample{
				Kind:  sample.KindEvent,
				Event: sample.Event{Type: sample.EventAscent, Time: t},
			})
		}

		if p.layout.hasAir {
			if err := p.airSample(sink, rec); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *MaresIconHD) airSample(sink sample.Sink, rec []byte) error {
	pressure := float64(raw.U16LE(rec[iconhdSmpPressure:iconhdSmpPressure+2])) / 100.0
	if pressure == 0 {
		return nil
	}

	slot := int(rec[iconhdSmpTank])
	if slot >= iconhdNTanks {
		return fmt.Errorf("%w: tank slot %d of %d", errs.ErrDataFormat, slot, iconhdNTanks)
	}
	for len(p.dive.tanks) <= slot {
		if _, err := p.dive.addTank(format.Tank{Units: format.TankMetric, GasMix: -1}); err != nil {
			return err
		}
	}

	p.dive.pressureReading(slot, pressure)
	emit(sink, sample.Sample{
		Kind:     sample.KindPressure,
		Pressure: sample.Pressure{Tank: slot, Value: pressure},
	})

	return nil
}
