package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

func memDataset(contents ...string) []store.Store {
	stores := make([]store.Store, 0, len(contents))
	for _, c := range contents {
		stores = append(stores, store.NewInMemory(memory.SliceOf([]byte(c)), 0))
	}
	return stores
}

func stringFeature(t *testing.T, ex *tensor.Example, name string) []string {
	t.Helper()
	feature := ex.Feature(name)
	require.NotNil(t, feature)
	dense, ok := feature.(*tensor.Dense)
	require.True(t, ok)
	return dense.Data().Strings()
}

const threeLines = "this is line 1\nthis is line 2\nthis is line 3\n"

func TestCSVBasics(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset(threeLines)
	params.BatchSize = 3

	r, err := NewCSVReader(params, CSVParams{})
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, []string{"this is line 1", "this is line 2", "this is line 3"}, stringFeature(t, ex, "0"))

	ex, err = r.ReadExample()
	require.NoError(t, err)
	assert.Nil(t, ex)

	require.NoError(t, r.Reset())

	ex, err = r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, []string{"this is line 1", "this is line 2", "this is line 3"}, stringFeature(t, ex, "0"))
}

func TestCSVBatchLargerThanDataset(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset(threeLines)
	params.BatchSize = 5

	r, err := NewCSVReader(params, CSVParams{})
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	values := stringFeature(t, ex, "0")
	assert.Len(t, values, 3)
	assert.Equal(t, uint64(0), ex.Padding)

	ex, err = r.ReadExample()
	require.NoError(t, err)
	assert.Nil(t, ex)
}

func TestCSVBatchSmallerThanDataset(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset(threeLines)
	params.BatchSize = 2

	r, err := NewCSVReader(params, CSVParams{})
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, []string{"this is line 1", "this is line 2"}, stringFeature(t, ex, "0"))

	ex, err = r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, []string{"this is line 3"}, stringFeature(t, ex, "0"))

	ex, err = r.ReadExample()
	require.NoError(t, err)
	assert.Nil(t, ex)
}

func TestRecordIOCorruptHeader(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("\x00\x00\x00\x00\x00\x00\x00\x00")

	r, err := NewRecordIOProtobufReader(params)
	require.NoError(t, err)

	_, err = r.ReadExample()
	assert.ErrorIs(t, err, records.ErrCorruptHeader)
}

func TestSplitRecords(t *testing.T) {
	var data []byte
	data = records.AppendRecordIO(data, []byte("begin-"), records.KindBegin)
	data = records.AppendRecordIO(data, []byte("middle-"), records.KindMiddle)
	data = records.AppendRecordIO(data, []byte("end"), records.KindEnd)
	data = records.AppendRecordIO(data, []byte("complete"), records.KindComplete)

	core := newCoreReader(memDataset(string(data)), func(s store.Store) (records.Reader, error) {
		stream, err := s.OpenRead()
		if err != nil {
			return nil, err
		}
		return records.NewRecordIOReader(stream), nil
	})

	assert.Equal(t, []string{"begin-middle-end", "complete"}, drainInstances(t, core))
}

func TestSplitRecordOutOfOrder(t *testing.T) {
	var data []byte
	data = records.AppendRecordIO(data, []byte("m"), records.KindMiddle)

	core := newCoreReader(memDataset(string(data)), func(s store.Store) (records.Reader, error) {
		stream, err := s.OpenRead()
		if err != nil {
			return nil, err
		}
		return records.NewRecordIOReader(stream), nil
	})

	_, err := core.ReadInstance()
	assert.ErrorIs(t, err, ErrCorruptSplitRecord)
}

func TestSplitRecordTruncatedAtEOF(t *testing.T) {
	var data []byte
	data = records.AppendRecordIO(data, []byte("b"), records.KindBegin)
	data = records.AppendRecordIO(data, []byte("m"), records.KindMiddle)

	core := newCoreReader(memDataset(string(data)), func(s store.Store) (records.Reader, error) {
		stream, err := s.OpenRead()
		if err != nil {
			return nil, err
		}
		return records.NewRecordIOReader(stream), nil
	})

	_, err := core.ReadInstance()
	assert.ErrorIs(t, err, ErrCorruptSplitRecord)
}

func TestCoreReaderSpansStores(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("a\nb\n", "c\n", "d\ne\n")
	params.BatchSize = 5

	r, err := NewTextLineReader(params)
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, stringFeature(t, ex, "value"))
}

func TestTextLineSchemaAndBytes(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("aa\nbb\n")
	params.BatchSize = 2

	r, err := NewTextLineReader(params)
	require.NoError(t, err)

	schema, err := r.ReadSchema()
	require.NoError(t, err)
	require.Len(t, schema.Attributes(), 1)
	attr := schema.Attributes()[0]
	assert.Equal(t, "value", attr.Name)
	assert.Equal(t, tensor.String, attr.DataType)
	assert.Equal(t, []uint64{2, 1}, attr.Shape)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	// Every emitted example carries the cached schema.
	assert.Same(t, schema, ex.Schema)

	// Both payloads were decoded.
	assert.Equal(t, uint64(4), r.NumBytesRead())

	// The schema survives a reset.
	require.NoError(t, r.Reset())
	again, err := r.ReadSchema()
	require.NoError(t, err)
	assert.Same(t, schema, again)
	assert.Equal(t, uint64(0), r.NumBytesRead())
}

func TestPeekExample(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("x\ny\n")
	params.BatchSize = 1

	r, err := NewTextLineReader(params)
	require.NoError(t, err)

	peeked, err := r.PeekExample()
	require.NoError(t, err)
	require.NotNil(t, peeked)

	read, err := r.ReadExample()
	require.NoError(t, err)
	assert.Same(t, peeked, read)
}

func TestLastExamplePad(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("a\nb\nc\n")
	params.BatchSize = 2
	params.LastExampleHandling = LastExamplePad

	r, err := NewTextLineReader(params)
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, uint64(0), ex.Padding)

	ex, err = r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, uint64(1), ex.Padding)
	assert.Equal(t, []string{"c", ""}, stringFeature(t, ex, "value"))
}

func TestDeterministicShuffleAcrossEpochs(t *testing.T) {
	var content string
	for i := 0; i < 40; i++ {
		content += string(rune('a'+i%26)) + "\n"
	}

	params := DefaultParams()
	params.Dataset = memDataset(content)
	params.BatchSize = 4
	params.ShuffleInstances = true
	params.ShuffleWindow = 8
	params.ShuffleSeed = Uint64(42)
	params.ReshuffleEachEpoch = false

	r, err := NewTextLineReader(params)
	require.NoError(t, err)

	drain := func() [][]string {
		var out [][]string
		for {
			ex, err := r.ReadExample()
			require.NoError(t, err)
			if ex == nil {
				return out
			}
			out = append(out, stringFeature(t, ex, "value"))
		}
	}

	first := drain()
	require.NoError(t, r.Reset())
	second := drain()
	assert.Equal(t, first, second)
}

func TestShardsPartitionTheDataset(t *testing.T) {
	var content string
	for i := 0; i < 26; i++ {
		content += string(rune('a'+i)) + "\n"
	}

	read := func(shardIdx, numShards uint64) []string {
		params := DefaultParams()
		params.Dataset = memDataset(content)
		params.BatchSize = 1
		params.NumShards = numShards
		params.ShardIndex = shardIdx

		r, err := NewTextLineReader(params)
		require.NoError(t, err)
		defer func() {
			_ = r.Close()
		}()

		var out []string
		for {
			ex, err := r.ReadExample()
			require.NoError(t, err)
			if ex == nil {
				return out
			}
			out = append(out, stringFeature(t, ex, "value")...)
		}
	}

	union := make(map[string]int)
	var total int
	for idx := uint64(0); idx < 2; idx++ {
		for _, v := range read(idx, 2) {
			union[v]++
			total++
		}
	}

	assert.Equal(t, 26, total)
	assert.Len(t, union, 26)
}

func TestBadExampleSkip(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("a,b\nc\nd,e\n")
	params.BatchSize = 1
	params.BadExampleHandling = BadExampleSkip

	r, err := NewCSVReader(params, CSVParams{})
	require.NoError(t, err)

	var rows [][]string
	for {
		ex, err := r.ReadExample()
		require.NoError(t, err)
		if ex == nil {
			break
		}
		rows = append(rows, []string{
			stringFeature(t, ex, "0")[0],
			stringFeature(t, ex, "1")[0],
		})
	}
	assert.Equal(t, [][]string{{"a", "b"}, {"d", "e"}}, rows)
}

func TestBadExampleError(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("a,b\nc\n")
	params.BatchSize = 1

	r, err := NewCSVReader(params, CSVParams{})
	require.NoError(t, err)

	var sawError bool
	for i := 0; i < 4; i++ {
		_, err := r.ReadExample()
		if err != nil {
			sawError = true
			assert.ErrorIs(t, err, ErrInvalidInstance)
			assert.ErrorIs(t, err, ErrFaulted)
			break
		}
	}
	assert.True(t, sawError)

	// The reader stays faulted until a reset clears the latched error.
	_, err = r.ReadExample()
	assert.Error(t, err)
}

func TestBadExamplePad(t *testing.T) {
	params := DefaultParams()
	params.Dataset = memDataset("a,b\nc\nd,e\n")
	params.BatchSize = 3
	params.BadExampleHandling = BadExamplePad

	r, err := NewCSVReader(params, CSVParams{})
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)
	assert.Equal(t, uint64(1), ex.Padding)
	assert.Equal(t, []string{"a", "d", ""}, stringFeature(t, ex, "0"))
	assert.Equal(t, []string{"b", "e", ""}, stringFeature(t, ex, "1"))
}

func TestInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.BatchSize = 0
	_, err := NewTextLineReader(params)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	params = DefaultParams()
	params.NumShards = 2
	params.ShardIndex = 2
	_, err = NewTextLineReader(params)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	params = DefaultParams()
	params.SampleRatio = Float64(1.5)
	_, err = NewTextLineReader(params)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEmptyDataset(t *testing.T) {
	params := DefaultParams()

	r, err := NewTextLineReader(params)
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	assert.Nil(t, ex)
}
