package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/reader"
	"github.com/Doomsbay/FeedKit/feedkit/store"
)

func buildCSVReader(t *testing.T, content string) *reader.Reader {
	t.Helper()
	params := reader.DefaultParams()
	params.Dataset = []store.Store{store.NewInMemory(memory.SliceOf([]byte(content)), 0)}
	params.BatchSize = 2

	r, err := reader.NewCSVReader(params, reader.DefaultCSVParams())
	require.NoError(t, err)
	return r
}

func TestAnalyzeNumericColumn(t *testing.T) {
	r := buildCSVReader(t, "v\n2\n4\n4\n4\n5\n5\n7\n9\n")
	defer func() {
		_ = r.Close()
	}()

	stats, err := Analyze(r, Options{})
	require.NoError(t, err)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, "v", s.Name)
	assert.Equal(t, uint64(8), s.Rows)
	assert.Equal(t, uint64(8), s.NumericCount)
	assert.Equal(t, float64(2), s.NumericMin)
	assert.Equal(t, float64(9), s.NumericMax)
	assert.InDelta(t, 5.0, s.Mean(), 1e-9)
	// Sample variance of the classic 2,4,4,4,5,5,7,9 sequence.
	assert.InDelta(t, 32.0/7.0, s.Variance(), 1e-9)
}

func TestAnalyzeMissingValues(t *testing.T) {
	r := buildCSVReader(t, "name,age\nalice,30\n,40\nNone,50\nbob,60\n")
	defer func() {
		_ = r.Close()
	}()

	stats, err := Analyze(r, Options{NullLikeValues: []string{"None"}})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	s := stats[0]
	assert.Equal(t, uint64(4), s.Rows)
	assert.Equal(t, uint64(2), s.Missing)
	assert.Equal(t, uint64(3), s.StrMinLen)
	assert.Equal(t, uint64(5), s.StrMaxLen)
	assert.Equal(t, "alice", s.ExampleValue)
}

func TestAnalyzeEmptyColumnMeanIsNaN(t *testing.T) {
	s := &ColumnStatistics{Name: "empty"}
	assert.True(t, s.Mean() != s.Mean()) // NaN
	assert.True(t, s.Variance() != s.Variance())
}

type countingEstimator struct {
	seen map[string]bool
}

func (e *countingEstimator) Add(v []byte)     { e.seen[string(v)] = true }
func (e *countingEstimator) Estimate() uint64 { return uint64(len(e.seen)) }

func TestAnalyzeDistinctEstimator(t *testing.T) {
	r := buildCSVReader(t, "v\na\nb\na\nc\n")
	defer func() {
		_ = r.Close()
	}()

	stats, err := Analyze(r, Options{
		NewEstimator: func() CardinalityEstimator {
			return &countingEstimator{seen: make(map[string]bool)}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats[0].EstimatedDistinct())
}
