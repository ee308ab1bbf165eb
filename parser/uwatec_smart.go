package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Uwatec Smart family models.
const (
	ModelSmartPro    = 0x10
	ModelGalileoSol  = 0x11
	ModelAladinTec   = 0x12
	ModelAladinTec2G = 0x13
	ModelSmartCom    = 0x14
	ModelSmartTec    = 0x18
	ModelSmartZ      = 0x19
)

// Uwatec dive header, 0x1c bytes followed by the bit-packed sample
// stream.
const (
	smartHeaderSize = 0x1c

	smartTimestamp = 0x00 // u32le, half-seconds since 2000-01-01
	smartAtm       = 0x04 // u16le, mbar
	smartGasmixes  = 0x06 // 3 slots of o2 percent, no helium
	smartMode      = 0x09 // u8
	smartDivetime  = 0x0a // u16le, seconds, 0 when not recorded

	smartNGasMixes = 3
	smartNTanks    = 2

	// smartInterval is the fixed sample rate: every depth sample
	// advances the clock by four seconds.
	smartInterval = 4
)

// Sample semantics shared by the Smart prefix-code tables and the
// Galileo first-byte switch.
type smartSemantic uint8

const (
	semDeltaDepth smartSemantic = iota + 1
	semDeltaTemp
	semDeltaPressure
	semDeltaRBT
	semTime
	semAlarms
	semAbsDepth
	semAbsTemp
	semAbsPressure
	semAbsRBT
	semHeartrate
	semBearing
)

// Depth scales. Absolute depths are stored in 1/100 m, deltas in
// 1/50 m; temperatures in 0.4 C units, pressures in 1/4 bar.
const (
	smartAbsDepthScale   = 0.01
	smartDeltaDepthScale = 0.02
	smartTempScale       = 0.4
	smartPressureScale   = 0.25
)

// smartOpcode describes one prefix code: the total type length in bits
// (leading ones plus the zero terminator, when present), whether the
// unused bits of the last type byte join the value, how many value
// bytes follow, and whether the value is a signed delta.
type smartOpcode struct {
	semantic   smartSemantic
	ntypebits  uint
	extrabytes int
	ignoretype bool
	signed     bool
}

// smartProTable is indexed by the number of leading 1-bits. It also
// serves the Aladin Tec and Prime, which log the same stream.
var smartProTable = []smartOpcode{
	{semantic: semDeltaDepth, ntypebits: 1, extrabytes: 1, signed: true},
	{semantic: semDeltaTemp, ntypebits: 2, signed: true},
	{semantic: semTime, ntypebits: 3, extrabytes: 1},
	{semantic: semAlarms, ntypebits: 4},
	{semantic: semAbsDepth, ntypebits: 5, extrabytes: 2, ignoretype: true},
	{semantic: semAbsTemp, ntypebits: 6, extrabytes: 2, ignoretype: true, signed: true},
}

// aladinTec2GTable extends the Smart Pro stream with a second alarm
// opcode.
var aladinTec2GTable = append(smartProTable[:len(smartProTable):len(smartProTable)],
	smartOpcode{semantic: semAlarms, ntypebits: 7, extrabytes: 1},
)

// smartComTable interleaves tank pressure into the stream.
var smartComTable = []smartOpcode{
	{semantic: semDeltaDepth, ntypebits: 1, extrabytes: 1, signed: true},
	{semantic: semDeltaPressure, ntypebits: 2, extrabytes: 1, signed: true},
	{semantic: semDeltaTemp, ntypebits: 3, signed: true},
	{semantic: semTime, ntypebits: 4, extrabytes: 1},
	{semantic: semAlarms, ntypebits: 5},
	{semantic: semAbsDepth, ntypebits: 6, extrabytes: 2, ignoretype: true},
	{semantic: semAbsPressure, ntypebits: 7, extrabytes: 2, ignoretype: true},
	{semantic: semAbsTemp, ntypebits: 8, extrabytes: 2, signed: true},
}

// smartTecTable adds remaining bottom time on top of the Smart Com
// stream.
var smartTecTable = []smartOpcode{
	{semantic: semDeltaDepth, ntypebits: 1, extrabytes: 1, signed: true},
	{semantic: semDeltaPressure, ntypebits: 2, extrabytes: 1, signed: true},
	{semantic: semDeltaTemp, ntypebits: 3, signed: true},
	{semantic: semTime, ntypebits: 4, extrabytes: 1},
	{semantic: semDeltaRBT, ntypebits: 5, signed: true},
	{semantic: semAlarms, ntypebits: 6},
	{semantic: semAbsDepth, ntypebits: 7, extrabytes: 2, ignoretype: true},
	{semantic: semAbsPressure, ntypebits: 8, extrabytes: 2},
	{semantic: semAbsTemp, ntypebits: 9, extrabytes: 2, ignoretype: true, signed: true},
	{semantic: semAbsRBT, ntypebits: 10, extrabytes: 1, ignoretype: true},
}

// galileoOpcode describes one first-byte switch entry of the Galileo
// stream: how many low bits of the first byte carry value, then the
// same shape as the Smart opcodes.
type galileoOpcode struct {
	semantic   smartSemantic
	valuebits  uint
	extrabytes int
	signed     bool
}

// galileoLookup maps the first byte of a record to its descriptor.
func galileoLookup(b byte) (galileoOpcode, bool) {
	switch {
	case b < 0x80:
		return galileoOpcode{semantic: semDeltaDepth, valuebits: 7, signed: true}, true
	case b < 0xc0:
		return galileoOpcode{semantic: semDeltaTemp, valuebits: 6, signed: true}, true
	case b < 0xd0:
		return galileoOpcode{semantic: semTime, valuebits: 4, extrabytes: 1}, true
	case b < 0xe0:
		return galileoOpcode{semantic: semAlarms, valuebits: 4}, true
	case b < 0xf0:
		return galileoOpcode{semantic: semAbsDepth, extrabytes: 2}, true
	case b < 0xf8:
		return galileoOpcode{semantic: semAbsTemp, extrabytes: 2, signed: true}, true
	case b == 0xf8:
		return galileoOpcode{semantic: semHeartrate, extrabytes: 1}, true
	case b == 0xf9:
		return galileoOpcode{semantic: semBearing, extrabytes: 2}, true
	case b == 0xfa:
		return galileoOpcode{semantic: semAbsPressure, extrabytes: 2}, true
	case b == 0xfb:
		return galileoOpcode{semantic: semAbsRBT, extrabytes: 1}, true
	default:
		return galileoOpcode{}, false
	}
}

// smartTables selects the opcode table for a Smart model.
func smartTables(model uint32) []smartOpcode {
	switch model {
	case ModelSmartPro, ModelAladinTec:
		return smartProTable
	case ModelAladinTec2G:
		return aladinTec2GTable
	case ModelSmartCom:
		return smartComTable
	case ModelSmartTec, ModelSmartZ:
		return smartTecTable
	default:
		return nil
	}
}

// UwatecSmart parses the Uwatec Smart and Galileo bit-packed delta
// streams.
type UwatecSmart struct {
	base
	table []smartOpcode // nil for Galileo
}

var _ Parser = (*UwatecSmart)(nil)

var smartEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewUwatecSmart creates a parser for an Uwatec Smart dive blob.
func NewUwatecSmart(data []byte, model uint32, opts ...Option) (*UwatecSmart, error) {
	b, err := newBase(format.FamilyUwatecSmart, model, data, smartNGasMixes, smartNTanks, opts)
	if err != nil {
		return nil, err
	}

	p := &UwatecSmart{base: b}
	if model != ModelGalileoSol {
		p.table = smartTables(model)
		if p.table == nil {
			return nil, fmt.Errorf("%w: unknown uwatec model %#x", errs.ErrInvalidArgs, model)
		}
	}
	if err := p.header(); err != nil {
		return nil, err
	}
	p.fill = func() error {
		return p.Samples(nil)
	}

	return p, nil
}

func (p *UwatecSmart) header() error {
	if p.buf.Len() < smartHeaderSize {
		return fmt.Errorf("%w: smart header needs %d bytes, have %d",
			errs.ErrDataFormat, smartHeaderSize, p.buf.Len())
	}

	halfsec, _ := p.buf.U32LEAt(smartTimestamp)
	p.dive.datetime = smartEpoch.Add(time.Duration(halfsec) * time.Second / 2)
	p.dive.hasDatetime = true

	atm, _ := p.buf.U16LEAt(smartAtm)
	if atm > 0 {
		p.dive.atmospheric = float64(atm) / format.BarToMbar
		p.dive.hasAtmospheric = true
	}

	for i := 0; i < smartNGasMixes; i++ {
		o2, _ := p.buf.U8At(smartGasmixes + i)
		if o2 == 0 {
			break
		}
		if _, err := p.dive.addMix(format.GasMix{Oxygen: o2}); err != nil {
			return err
		}
	}

	mode, _ := p.buf.U8At(smartMode)
	switch mode {
	case 0:
		p.dive.divemode = format.ModeOpenCircuit
	case 1:
		p.dive.divemode = format.ModeGauge
	default:
		return fmt.Errorf("%w: unknown dive mode %d", errs.ErrDataFormat, mode)
	}
	p.dive.hasDivemode = true

	if divetime, _ := p.buf.U16LEAt(smartDivetime); divetime > 0 {
		p.dive.divetime = uint32(divetime)
		p.dive.hasDivetime = true
	}

	return nil
}

// smartState is the rolling accumulator state of one decode pass.
type smartState struct {
	t           uint32
	depth       float64
	calibration float64
	temp        float64
	pressure    float64
	rbt         uint32
	calibrated  bool
	anyTime     bool
}

// Samples decodes the variable-length record stream. The cursor must
// land exactly on the end of the blob; a partial trailing record is a
// data-format error.
func (p *UwatecSmart) Samples(sink sample.Sink) error {
	var s smartState
	var err error

	off := smartHeaderSize
	for off < p.buf.Len() {
		if p.cancelled() {
			return errs.ErrCancelled
		}

		if p.model == ModelGalileoSol {
			off, err = p.galileoRecord(sink, &s, off)
		} else {
			off, err = p.smartRecord(sink, &s, off)
		}
		if err != nil {
			return err
		}
	}

	if !p.dive.hasDivetime {
		p.dive.divetime = s.t
		p.dive.hasDivetime = true
	}

	return nil
}

// smartRecord decodes one record of the leading-ones prefix stream and
// returns the new cursor.
func (p *UwatecSmart) smartRecord(sink sample.Sink, s *smartState, off int) (int, error) {
	data := p.buf.Bytes()

	// Count the leading 1-bits selecting the opcode; the prefix may
	// span type bytes.
	count := uint(0)
	maxbits := uint(len(p.table) - 1)
	for count < maxbits {
		idx := off + int(count/8)
		if idx >= len(data) {
			return 0, fmt.Errorf("%w: truncated type prefix at offset %d", errs.ErrDataFormat, off)
		}
		if data[idx]&(0x80>>(count%8)) == 0 {
			break
		}
		count++
	}
	op := p.table[count]

	typebytes := int((op.ntypebits + 7) / 8)
	if off+typebytes+op.extrabytes > len(data) {
		return 0, fmt.Errorf("%w: truncated record at offset %d", errs.ErrDataFormat, off)
	}

	var value uint32
	var nbits uint
	if rem := op.ntypebits % 8; rem != 0 && !op.ignoretype {
		nbits = 8 - rem
		value = uint32(data[off+typebytes-1]) & (0xff >> rem)
	}
	for i := 0; i < op.extrabytes; i++ {
		value = value<<8 | uint32(data[off+typebytes+i])
		nbits += 8
	}

	var sval int32
	if op.signed {
		sval = raw.SignExtend(value, nbits)
	}

	p.apply(sink, s, op.semantic, value, sval)

	return off + typebytes + op.extrabytes, nil
}

// galileoRecord decodes one record of the first-byte switch stream and
// returns the new cursor.
func (p *UwatecSmart) galileoRecord(sink sample.Sink, s *smartState, off int) (int, error) {
	data := p.buf.Bytes()

	op, ok := galileoLookup(data[off])
	if !ok {
		return 0, fmt.Errorf("%w: unknown record byte %#02x at offset %d", errs.ErrDataFormat, data[off], off)
	}
	if off+1+op.extrabytes > len(data) {
		return 0, fmt.Errorf("%w: truncated record at offset %d", errs.ErrDataFormat, off)
	}

	value := uint32(data[off]) & (1<<op.valuebits - 1)
	nbits := op.valuebits
	for i := 0; i < op.extrabytes; i++ {
		value = value<<8 | uint32(data[off+1+i])
		nbits += 8
	}

	var sval int32
	if op.signed {
		sval = raw.SignExtend(value, nbits)
	}

	p.apply(sink, s, op.semantic, value, sval)

	return off + 1 + op.extrabytes, nil
}

// apply runs one opcode against the rolling state and emits.
func (p *UwatecSmart) apply(sink sample.Sink, s *smartState, sem smartSemantic, value uint32, sval int32) {
	switch sem {
	case semTime:
		// Surface gap in seconds; nothing is emitted for it.
		s.t += value
	case semAbsDepth:
		depth := float64(value) * smartAbsDepthScale
		if !s.calibrated {
			// The first absolute depth calibrates the surface offset
			// subtracted from every emitted depth.
			s.calibration = depth
			s.calibrated = true
		}
		s.depth = depth
		p.emitDepth(sink, s)
	case semDeltaDepth:
		s.depth += float64(sval) * smartDeltaDepthScale
		p.emitDepth(sink, s)
	case semAbsTemp:
		s.temp = float64(sval) * smartTempScale
		p.emitTemp(sink, s)
	case semDeltaTemp:
		s.temp += float64(sval) * smartTempScale
		p.emitTemp(sink, s)
	case semAbsPressure:
		s.pressure = float64(value) * smartPressureScale
		p.emitPressure(sink, s)
	case semDeltaPressure:
		s.pressure += float64(sval) * smartPressureScale
		p.emitPressure(sink, s)
	case semAbsRBT:
		s.rbt = value
		p.emitTimeOnce(sink, s)
		emit(sink, sample.Sample{Kind: sample.KindRBT, RBT: s.rbt})
	case semDeltaRBT:
		s.rbt = uint32(int32(s.rbt) + sval)
		p.emitTimeOnce(sink, s)
		emit(sink, sample.Sample{Kind: sample.KindRBT, RBT: s.rbt})
	case semHeartrate:
		p.emitTimeOnce(sink, s)
		emit(sink, sample.Sample{Kind: sample.KindHeartbeat, Heartbeat: value})
	case semBearing:
		p.emitTimeOnce(sink, s)
		emit(sink, sample.Sample{Kind: sample.KindBearing, Bearing: value})
	case semAlarms:
		if value != 0 {
			p.emitTimeOnce(sink, s)
			emit(sink, sample.Sample{
				Kind:  sample.KindEvent,
				Event: sample.Event{Type: sample.EventViolation, Time: s.t, Flags: value},
			})
		}
	}
}

// emitDepth opens a new sample instant: time, then the calibrated
// depth, then the clock advances by the sample interval.
func (p *UwatecSmart) emitDepth(sink sample.Sink, s *smartState) {
	emit(sink, sample.Sample{Kind: sample.KindTime, Time: s.t})
	s.anyTime = true

	depth := s.depth - s.calibration
	p.dive.trackDepth(depth)
	emit(sink, sample.Sample{Kind: sample.KindDepth, Depth: depth})

	s.t += smartInterval
}

func (p *UwatecSmart) emitTemp(sink sample.Sink, s *smartState) {
	p.emitTimeOnce(sink, s)
	p.dive.trackTemperature(s.temp)
	emit(sink, sample.Sample{Kind: sample.KindTemperature, Temperature: s.temp})
}

func (p *UwatecSmart) emitPressure(sink sample.Sink, s *smartState) {
	p.emitTimeOnce(sink, s)
	if len(p.dive.tanks) == 0 {
		if _, err := p.dive.addTank(format.Tank{Units: format.TankMetric, GasMix: 0}); err != nil {
			return
		}
	}
	p.dive.pressureReading(0, s.pressure)
	emit(sink, sample.Sample{
		Kind:     sample.KindPressure,
		Pressure: sample.Pressure{Tank: 0, Value: s.pressure},
	})
}

// emitTimeOnce opens an instant for a non-depth value when no depth
// sample has produced one yet.
func (p *UwatecSmart) emitTimeOnce(sink sample.Sink, s *smartState) {
	if s.anyTime {
		return
	}
	emit(sink, sample.Sample{Kind: sample.KindTime, Time: s.t})
	s.anyTime = true
}
