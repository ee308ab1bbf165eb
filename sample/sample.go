// Package sample defines the event stream a dive parser emits and the
// sink contract that receives it.
//
// The decoder visits the sink synchronously, in time order. Between
// samples the sink observes a strict grouping: one Time event, followed
// by zero or more non-time events for that instant, then the next Time
// event. The sink must not retain pointer-valued payloads (vendor raw
// bytes) beyond the call.
package sample

import "github.com/arloliu/divewire/format"

// Kind tags the active member of a Sample.
type Kind uint8

const (
	KindTime Kind = iota + 1
	KindDepth
	KindTemperature
	KindPressure
	KindGasMix
	KindSetpoint
	KindPPO2
	KindDeco
	KindCNS
	KindHeartbeat
	KindBearing
	KindRBT
	KindVendor
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindTime:
		return "Time"
	case KindDepth:
		return "Depth"
	case KindTemperature:
		return "Temperature"
	case KindPressure:
		return "Pressure"
	case KindGasMix:
		return "GasMix"
	case KindSetpoint:
		return "Setpoint"
	case KindPPO2:
		return "PPO2"
	case KindDeco:
		return "Deco"
	case KindCNS:
		return "CNS"
	case KindHeartbeat:
		return "Heartbeat"
	case KindBearing:
		return "Bearing"
	case KindRBT:
		return "RBT"
	case KindVendor:
		return "Vendor"
	case KindEvent:
		return "Event"
	default:
		return "Unknown"
	}
}

// EventType classifies discrete events a computer flags on a sample.
type EventType uint8

const (
	EventNone EventType = iota
	EventDecoStop
	EventAscent
	EventCeiling
	EventWorkload
	EventTransmitter
	EventViolation
	EventBookmark
	EventSurface
	EventSafetyStop
	EventGasChange
	EventDeepStop
	EventCeilingSafetyStop
	EventDiveTime
	EventBattery
	EventAirTime
	EventMaxDepth
	EventOLF
	EventPO2
)

func (e EventType) String() string {
	switch e {
	case EventNone:
		return "None"
	case EventDecoStop:
		return "DecoStop"
	case EventAscent:
		return "Ascent"
	case EventCeiling:
		return "Ceiling"
	case EventWorkload:
		return "Workload"
	case EventTransmitter:
		return "Transmitter"
	case EventViolation:
		return "Violation"
	case EventBookmark:
		return "Bookmark"
	case EventSurface:
		return "Surface"
	case EventSafetyStop:
		return "SafetyStop"
	case EventGasChange:
		return "GasChange"
	case EventDeepStop:
		return "DeepStop"
	case EventCeilingSafetyStop:
		return "CeilingSafetyStop"
	case EventDiveTime:
		return "DiveTime"
	case EventBattery:
		return "Battery"
	case EventAirTime:
		return "AirTime"
	case EventMaxDepth:
		return "MaxDepth"
	case EventOLF:
		return "OLF"
	case EventPO2:
		return "PO2"
	default:
		return "Unknown"
	}
}

// Pressure is a tank pressure reading in bar, attached to a tank slot.
type Pressure struct {
	Tank  int
	Value float64
}

// PPO2 is an oxygen partial pressure reading in bar from one sensor;
// Sensor -1 means the computed/voted value.
type PPO2 struct {
	Sensor int
	Value  float64
}

// Deco is the decompression state at a sample: the stop (or NDL) the
// computer showed, with depth in meters and durations in seconds.
type Deco struct {
	Type  format.DecoType
	Depth float64
	Time  uint32
	TTS   uint32
}

// Vendor carries a format-specific raw payload. Data aliases the dive
// blob and is only valid during the Emit call.
type Vendor struct {
	Type uint32
	Data []byte
}

// Event is a discrete flagged occurrence with vendor flags and value.
type Event struct {
	Type  EventType
	Time  uint32
	Flags uint32
	Value uint32
}

// Sample is one emitted sample event; Kind selects the populated
// member. Depth is in meters, Temperature in Celsius, Setpoint and
// PPO2 in bar, Time in seconds since the start of the dive.
type Sample struct {
	Kind        Kind
	Time        uint32
	Depth       float64
	Temperature float64
	Pressure    Pressure
	GasMix      int
	Setpoint    float64
	PPO2        PPO2
	Deco        Deco
	CNS         float64
	Heartbeat   uint32
	Bearing     uint32
	RBT         uint32
	Vendor      Vendor
	Event       Event
}

// Sink receives decoded samples. Emit is called synchronously from the
// decode loop; implementations must not block indefinitely.
type Sink interface {
	Emit(s Sample)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(s Sample)

// Emit calls fn(s).
func (fn SinkFunc) Emit(s Sample) {
	fn(s)
}

// Recorder is a Sink that appends every sample to Samples. Vendor
// payloads are copied so the record stays valid after the decode.
type Recorder struct {
	Samples []Sample
}

// Emit implements Sink.
func (r *Recorder) Emit(s Sample) {
	if s.Kind == KindVendor && s.Vendor.Data != nil {
		s.Vendor.Data = append([]byte(nil), s.Vendor.Data...)
	}
	r.Samples = append(r.Samples, s)
}

// Times returns the value of every time sample, in emission order.
func (r *Recorder) Times() []uint32 {
	var times []uint32
	for _, s := range r.Samples {
		if s.Kind == KindTime {
			times = append(times, s.Time)
		}
	}

	return times
}

// Depths returns the value of every depth sample, in emission order.
func (r *Recorder) Depths() []float64 {
	var depths []float64
	for _, s := range r.Samples {
		if s.Kind == KindDepth {
			depths = append(depths, s.Depth)
		}
	}

	return depths
}
