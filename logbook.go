package divewire

import (
	"context"
	"time"

	"github.com/alitto/pond"
	"github.com/samber/lo"

	"github.com/arloliu/divewire/compress"
	"github.com/arloliu/divewire/format"
)

// LogbookEntry is one dive to decode: its family, model and blob. The
// blob may be a raw vendor blob or an archive produced by
// compress.Encode; archives are restored transparently. The two are told
// apart by the first byte only, so a raw blob that starts with a codec
// tag byte (0x01..0x04) is decoded as an archive.
type LogbookEntry struct {
	Family format.Family
	Model  uint32
	Data   []byte
}

// DiveSummary is the result of decoding one logbook entry.
type DiveSummary struct {
	SummaryInfo
	ID    uint64 // blob fingerprint
	Index int    // position in the input slice
	Err   error  // per-dive failure, nil on success
}

// DecodeAll decodes a batch of dives on a bounded worker pool and
// returns one summary per entry, in input order. Per-dive failures are
// recorded in the summary; only a cancelled context aborts the batch.
func DecodeAll(ctx context.Context, entries []LogbookEntry, workers int, opts ...Option) ([]DiveSummary, error) {
	if workers <= 0 {
		workers = 4
	}

	results := make([]DiveSummary, len(entries))
	pool := pond.New(workers, len(entries))
	defer pool.StopAndWait()

	group, _ := pool.GroupContext(ctx)
	for i, entry := range entries {
		i, entry := i, entry
		group.Submit(func() error {
			results[i] = decodeOne(i, entry, opts)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func decodeOne(index int, entry LogbookEntry, opts []Option) DiveSummary {
	result := DiveSummary{Index: index}

	data, err := compress.Decode(entry.Data)
	if err != nil {
		result.Err = err
		return result
	}
	result.ID = DiveID(data)

	p, err := NewParser(entry.Family, entry.Model, data, opts...)
	if err != nil {
		result.Err = err
		return result
	}

	info, err := Summary(p)
	if err != nil {
		result.Err = err
		return result
	}
	result.SummaryInfo = info

	return result
}

// LogbookQA is the digest produced by QA over a decoded batch.
type LogbookQA struct {
	Dives        int
	Failed       int
	DuplicateIDs []uint64
	MaxDepth     float64
	First        time.Time
	Last         time.Time
}

// QA sweeps a decoded batch for the anomalies worth surfacing before
// import: duplicate dives and the overall time and depth envelope.
func QA(summaries []DiveSummary) LogbookQA {
	qa := LogbookQA{Dives: len(summaries)}

	ok := lo.Filter(summaries, func(s DiveSummary, _ int) bool {
		return s.Err == nil
	})
	qa.Failed = len(summaries) - len(ok)
	if len(ok) == 0 {
		return qa
	}

	qa.DuplicateIDs = lo.FindDuplicates(lo.Map(ok, func(s DiveSummary, _ int) uint64 {
		return s.ID
	}))
	qa.MaxDepth = lo.Max(lo.Map(ok, func(s DiveSummary, _ int) float64 {
		return s.MaxDepth
	}))

	dated := lo.Filter(ok, func(s DiveSummary, _ int) bool {
		return !s.Datetime.IsZero()
	})
	if len(dated) > 0 {
		qa.First = lo.MinBy(dated, func(a, b DiveSummary) bool {
			return a.Datetime.Before(b.Datetime)
		}).Datetime
		qa.Last = lo.MaxBy(dated, func(a, b DiveSummary) bool {
			return a.Datetime.After(b.Datetime)
		}).Datetime
	}

	return qa
}
