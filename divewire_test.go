package divewire

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/divewire/compress"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

// mcleanBlob builds a minimal McLean Extreme dive for the wrapper
// tests: 600 s, one sample per depth, air.
func mcleanBlob(depths ...uint16) []byte {
	blob := make([]byte, 0x5e)
	binary.LittleEndian.PutUint32(blob[0x08:], 600)  // end
	binary.LittleEndian.PutUint16(blob[0x0c:], 1013) // atmospheric
	blob[0x0e] = 1                                   // salt
	blob[0x10] = 21                                  // air
	binary.LittleEndian.PutUint16(blob[0x12:], uint16(len(depths)))
	binary.LittleEndian.PutUint16(blob[0x14:], 60)

	for _, d := range depths {
		blob = binary.LittleEndian.AppendUint16(blob, d)
		blob = append(blob, 20, 0)
	}

	return blob
}

func TestNewParserAndSummary(t *testing.T) {
	p, err := NewParser(format.FamilyMcLeanExtreme, 0, mcleanBlob(100, 150))
	require.NoError(t, err)

	info, err := Summary(p)
	require.NoError(t, err)
	require.Equal(t, uint32(600), info.Divetime)
	require.Equal(t, format.ModeOpenCircuit, info.Mode)
	require.Len(t, info.Mixes, 1)
	require.Equal(t, uint8(21), info.Mixes[0].Oxygen)
	require.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), info.Datetime)
	require.Greater(t, info.MaxDepth, 0.0)
}

func TestDiveID(t *testing.T) {
	a := mcleanBlob(100)
	b := mcleanBlob(150)

	require.Equal(t, DiveID(a), DiveID(a))
	require.NotEqual(t, DiveID(a), DiveID(b))
}

func TestDecodeAll(t *testing.T) {
	// One raw blob, one zstd archive of the same dive, one broken blob.
	raw := mcleanBlob(100, 150)
	archived, err := compress.Encode(compress.TypeZstd, raw)
	require.NoError(t, err)

	entries := []LogbookEntry{
		{Family: format.FamilyMcLeanExtreme, Data: raw},
		{Family: format.FamilyMcLeanExtreme, Data: archived},
		{Family: format.FamilyMcLeanExtreme, Data: []byte{0x01, 0x02}},
	}

	summaries, err := DecodeAll(context.Background(), entries, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	require.NoError(t, summaries[0].Err)
	require.NoError(t, summaries[1].Err)
	require.Error(t, summaries[2].Err)

	// The archive decodes to the same dive, so the fingerprints match.
	require.Equal(t, summaries[0].ID, summaries[1].ID)
	require.Equal(t, summaries[0].Divetime, summaries[1].Divetime)

	qa := QA(summaries)
	require.Equal(t, 3, qa.Dives)
	require.Equal(t, 1, qa.Failed)
	require.Equal(t, []uint64{summaries[0].ID}, qa.DuplicateIDs)
	require.Equal(t, summaries[0].MaxDepth, qa.MaxDepth)
	require.False(t, qa.First.IsZero())
}

func TestWithCancel(t *testing.T) {
	p, err := NewParser(format.FamilyMcLeanExtreme, 0, mcleanBlob(100),
		WithCancel(func() bool { return true }))
	require.NoError(t, err)

	err = p.Samples(sample.SinkFunc(func(sample.Sample) {}))
	require.Error(t, err)
}
