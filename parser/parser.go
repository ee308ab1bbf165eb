// Package parser implements the per-family dive blob decoders.
//
// A parser is created over one immutable dive blob and queried any
// number of times; queries are idempotent. Header-derived fields come
// straight from the blob's fixed layout; sample-derived fields are
// populated by one cached pass over the sample stream. One parser
// belongs to one goroutine at a time, but any number of parsers may run
// concurrently on disjoint blobs.
package parser

import (
	"fmt"
	"time"

	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/internal/options"
	"github.com/arloliu/divewire/internal/raw"
	"github.com/arloliu/divewire/sample"
)

// Parser decodes one dive blob.
type Parser interface {
	// Family returns the parser family the blob was decoded with.
	Family() format.Family
	// Model returns the model id supplied at construction.
	Model() uint32
	// Datetime returns the dive start time. The location carries the
	// device's UTC offset when the format records one; otherwise the
	// time is in time.UTC and holds the device's local wall-clock
	// reading, its real offset unknown.
	Datetime() (time.Time, error)
	// Field returns a whole-dive field. For indexed fields (GasMix,
	// Tank) index selects a slot below the corresponding count; other
	// fields ignore it. Fields the dive did not record fail with
	// errs.ErrUnsupported.
	Field(ft format.FieldType, index int) (format.Value, error)
	// Samples walks the sample stream in time order, invoking sink for
	// every event. A nil sink decodes for cache side effects only.
	Samples(sink sample.Sink) error
}

// Options configures a parser.
type Options struct {
	// Warn receives diagnostic messages for recoverable oddities
	// (timestamp blips within tolerance, unknown event codes). Nil
	// discards them.
	Warn func(format string, args ...any)
	// Cancel is polled between records; returning true aborts the
	// decode with errs.ErrCancelled.
	Cancel func() bool
}

// Option is a functional option for parser construction.
type Option = options.Option[*Options]

// WithWarnFunc installs a warning handler.
func WithWarnFunc(fn func(format string, args ...any)) Option {
	return options.NoError(func(o *Options) {
		o.Warn = fn
	})
}

// WithCancel installs a cancellation probe polled between records.
func WithCancel(fn func() bool) Option {
	return options.NoError(func(o *Options) {
		o.Cancel = fn
	})
}

// New constructs the parser for the given family over data. The blob is
// borrowed, not copied; it must stay unmodified while the parser lives.
func New(family format.Family, model uint32, data []byte, opts ...Option) (Parser, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil dive data", errs.ErrInvalidArgs)
	}

	switch family {
	case format.FamilyDivesystemIDive:
		return NewDivesystemIDive(data, model, opts...)
	case format.FamilyDivesoftFreedom:
		return NewDivesoftFreedom(data, model, opts...)
	case format.FamilyMaresIconHD:
		return NewMaresIconHD(data, model, opts...)
	case format.FamilyMaresGenius:
		return NewMaresGenius(data, model, opts...)
	case format.FamilyOceanicAtom2:
		return NewOceanicAtom2(data, model, opts...)
	case format.FamilyOceanicVTPro:
		return NewOceanicVTPro(data, model, opts...)
	case format.FamilyOceanicVeo250:
		return NewOceanicVeo250(data, model, opts...)
	case format.FamilyMcLeanExtreme:
		return NewMcLeanExtreme(data, model, opts...)
	case format.FamilySporasubSP2:
		return NewSporasubSP2(data, model, opts...)
	case format.FamilySuuntoD9:
		return NewSuuntoD9(data, model, opts...)
	case format.FamilySuuntoVyper:
		return NewSuuntoVyper(data, model, opts...)
	case format.FamilySuuntoSolution:
		return NewSuuntoSolution(data, model, opts...)
	case format.FamilyHwOstc:
		return NewHwOstc(data, model, opts...)
	case format.FamilyCressiEdy:
		return NewCressiEdy(data, model, opts...)
	case format.FamilyReefnetSensus:
		return NewReefnetSensus(data, model, opts...)
	case format.FamilyUwatecSmart:
		return NewUwatecSmart(data, model, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown parser family %d", errs.ErrInvalidArgs, family)
	}
}

// base carries the state shared by every family parser: the borrowed
// blob, the model id, the option set and the derived-field cache.
type base struct {
	buf    raw.Buffer
	opts   Options
	fill   func() error
	family format.Family
	model  uint32
	cached bool
	dive   diveCache
}

func newBase(family format.Family, model uint32, data []byte, maxMixes, maxTanks int, opts []Option) (base, error) {
	b := base{
		buf:    raw.NewBuffer(data),
		family: family,
		model:  model,
		dive:   newDiveCache(maxMixes, maxTanks),
	}
	if err := options.Apply(&b.opts, opts...); err != nil {
		return base{}, err
	}
	b.dive.warn = b.warnf

	return b, nil
}

func (b *base) Family() format.Family {
	return b.family
}

func (b *base) Model() uint32 {
	return b.model
}

func (b *base) Datetime() (time.Time, error) {
	// The cached sample pass can refine the header datetime with a
	// recorded timezone, so it runs first.
	if err := b.ensureCached(); err != nil {
		return time.Time{}, err
	}
	if !b.dive.hasDatetime {
		return time.Time{}, errs.ErrUnsupported
	}

	return b.dive.datetime, nil
}

// Field resolves a whole-dive field, running the cached sample pass
// first when the family derives fields from samples.
func (b *base) Field(ft format.FieldType, index int) (format.Value, error) {
	if err := b.ensureCached(); err != nil {
		return format.Value{}, err
	}

	return b.dive.field(ft, index)
}

func (b *base) ensureCached() error {
	if b.cached {
		return nil
	}
	if b.fill != nil {
		if err := b.fill(); err != nil {
			return err
		}
	}
	b.cached = true

	return nil
}

func (b *base) warnf(msg string, args ...any) {
	if b.opts.Warn != nil {
		b.opts.Warn(msg, args...)
	}
}

func (b *base) cancelled() bool {
	return b.opts.Cancel != nil && b.opts.Cancel()
}

// emit forwards a sample to the sink, tolerating a nil sink for
// cache-only passes.
func emit(sink sample.Sink, s sample.Sample) {
	if sink != nil {
		sink.Emit(s)
	}
}
