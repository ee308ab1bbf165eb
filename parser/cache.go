package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
)

// diveCache holds every derived whole-dive field. Families populate it
// from the header in their constructor and from the first sample pass;
// absent fields stay unset and query as errs.ErrUnsupported.
type diveCache struct {
	warn func(format string, args ...any)

	datetime    time.Time
	divetime    uint32 // seconds
	maxdepth    float64
	avgdepth    float64
	atmospheric float64 // bar
	tempMin     float64
	tempMax     float64
	salinity    format.Salinity
	divemode    format.DiveMode
	decomodel   format.DecoModel
	location    format.Location

	hasDatetime    bool
	hasDivetime    bool
	hasMaxdepth    bool
	hasAvgdepth    bool
	hasAtmospheric bool
	hasTempMin     bool
	hasTempMax     bool
	hasSalinity    bool
	hasDivemode    bool
	hasDecomodel   bool
	hasLocation    bool

	mixes    []format.GasMix
	tanks    []format.Tank
	maxMixes int
	maxTanks int
}

func newDiveCache(maxMixes, maxTanks int) diveCache {
	return diveCache{
		maxMixes: maxMixes,
		maxTanks: maxTanks,
	}
}

// findMix returns the slot holding an equal mix, or -1.
func (d *diveCache) findMix(mix format.GasMix) int {
	for i := range d.mixes {
		if d.mixes[i].Equal(mix) {
			return i
		}
	}

	return -1
}

// addMix returns the slot of mix, appending it on first sight. The
// table is family-bounded; overflow is a data-format error.
func (d *diveCache) addMix(mix format.GasMix) (int, error) {
	if idx := d.findMix(mix); idx >= 0 {
		return idx, nil
	}
	if len(d.mixes) >= d.maxMixes {
		return -1, fmt.Errorf("%w: gas mix table overflow (%d slots)", errs.ErrDataFormat, d.maxMixes)
	}
	d.mixes = append(d.mixes, mix)

	return len(d.mixes) - 1, nil
}

// findTank returns the slot of the tank with the given transmitter id,
// or -1.
func (d *diveCache) findTank(transmitter uint32) int {
	for i := range d.tanks {
		if d.tanks[i].HasTransmitter && d.tanks[i].TransmitterID == transmitter {
			return i
		}
	}

	return -1
}

// addTank appends a tank slot; overflow is a data-format error.
func (d *diveCache) addTank(tank format.Tank) (int, error) {
	if len(d.tanks) >= d.maxTanks {
		return -1, fmt.Errorf("%w: tank table overflow (%d slots)", errs.ErrDataFormat, d.maxTanks)
	}
	d.tanks = append(d.tanks, tank)

	return len(d.tanks) - 1, nil
}

// pressureReading records a tank pressure sample: the first nonzero
// reading seeds beginpressure, every reading moves endpressure.
func (d *diveCache) pressureReading(idx int, pressure float64) {
	if idx < 0 || idx >= len(d.tanks) {
		return
	}
	t := &d.tanks[idx]
	if !t.Active && pressure > 0 {
		t.Active = true
		t.BeginPressure = pressure
	}
	t.EndPressure = pressure
}

// trackDepth folds one depth sample into maxdepth.
func (d *diveCache) trackDepth(depth float64) {
	if !d.hasMaxdepth || depth > d.maxdepth {
		d.maxdepth = depth
		d.hasMaxdepth = true
	}
}

// trackTemperature folds one temperature sample into the min/max pair.
func (d *diveCache) trackTemperature(temp float64) {
	if !d.hasTempMin || temp < d.tempMin {
		d.tempMin = temp
		d.hasTempMin = true
	}
	if !d.hasTempMax || temp > d.tempMax {
		d.tempMax = temp
		d.hasTempMax = true
	}
}

func (d *diveCache) field(ft format.FieldType, index int) (format.Value, error) {
	switch ft {
	case format.FieldDivetime:
		if !d.hasDivetime {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Duration: d.divetime}, nil
	case format.FieldMaxDepth:
		if !d.hasMaxdepth {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Float: d.maxdepth}, nil
	case format.FieldAvgDepth:
		if !d.hasAvgdepth {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Float: d.avgdepth}, nil
	case format.FieldTemperatureMinimum:
		if !d.hasTempMin {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Float: d.tempMin}, nil
	case format.FieldTemperatureMaximum:
		if !d.hasTempMax {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Float: d.tempMax}, nil
	case format.FieldAtmospheric:
		if !d.hasAtmospheric {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Float: d.atmospheric}, nil
	case format.FieldSalinity:
		if !d.hasSalinity {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Salinity: d.salinity}, nil
	case format.FieldDiveMode:
		if !d.hasDivemode {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{DiveMode: d.divemode}, nil
	case format.FieldDecoModel:
		if !d.hasDecomodel {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{DecoModel: d.decomodel}, nil
	case format.FieldGasMixCount:
		return format.Value{Count: len(d.mixes)}, nil
	case format.FieldGasMix:
		if index < 0 || index >= len(d.mixes) {
			return format.Value{}, fmt.Errorf("%w: gas mix index %d of %d", errs.ErrInvalidArgs, index, len(d.mixes))
		}

		return format.Value{GasMix: d.mixes[index]}, nil
	case format.FieldTankCount:
		return format.Value{Count: len(d.tanks)}, nil
	case format.FieldTank:
		if index < 0 || index >= len(d.tanks) {
			return format.Value{}, fmt.Errorf("%w: tank index %d of %d", errs.ErrInvalidArgs, index, len(d.tanks))
		}

		return format.Value{Tank: d.tanks[index]}, nil
	case format.FieldLocation:
		if !d.hasLocation {
			return format.Value{}, errs.ErrUnsupported
		}

		return format.Value{Location: d.location}, nil
	default:
		return format.Value{}, errs.ErrUnsupported
	}
}

// timeTracker enforces the non-decreasing timestamp invariant. A
// regression within tolerance skips the sample with a warning; a larger
// one is fatal.
type timeTracker struct {
	warn      func(format string, args ...any)
	last      uint32
	tolerance uint32
	started   bool
}

// advance accepts the next timestamp. skip means "drop this sample and
// continue"; a non-nil error aborts the dive.
func (t *timeTracker) advance(now uint32) (bool, error) {
	if !t.started {
		t.started = true
		t.last = now

		return false, nil
	}
	if now >= t.last {
		t.last = now

		return false, nil
	}
	if t.last-now <= t.tolerance {
		if t.warn != nil {
			t.warn("timestamp moved backwards (%d -> %d), skipping sample", t.last, now)
		}

		return true, nil
	}

	return false, fmt.Errorf("%w: timestamp moved backwards (%d -> %d)", errs.ErrDataFormat, t.last, now)
}
