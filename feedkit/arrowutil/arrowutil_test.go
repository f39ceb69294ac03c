package arrowutil

import (
	"io"
	"testing"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

func TestBufferIsZeroCopy(t *testing.T) {
	slice := memory.SliceOf([]byte("arrow view"))
	buf := Buffer(slice)
	assert.Equal(t, []byte("arrow view"), buf.Bytes())

	// Mutations through the slice are visible in the buffer.
	slice.Bytes()[0] = 'A'
	assert.Equal(t, []byte("Arrow view"), buf.Bytes())
}

func TestExampleRecord(t *testing.T) {
	schema, err := tensor.NewSchema([]tensor.Attribute{
		{Name: "id", DataType: tensor.Int64, Shape: []uint64{2, 1}},
		{Name: "label", DataType: tensor.String, Shape: []uint64{2, 1}},
	})
	require.NoError(t, err)

	ids, err := tensor.NewDense([]uint64{2, 1}, tensor.NewInt64Array([]int64{10, 20}))
	require.NoError(t, err)
	labels, err := tensor.NewDense([]uint64{2, 1}, tensor.NewStringArray([]string{"cat", "dog"}))
	require.NoError(t, err)

	ex := &tensor.Example{Schema: schema, Features: []tensor.Tensor{ids, labels}}

	rec, err := ExampleRecord(ex)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, int64(2), rec.NumCols())

	idCol := rec.Column(0).(*array.Int64)
	assert.Equal(t, int64(10), idCol.Value(0))
	assert.Equal(t, int64(20), idCol.Value(1))

	labelCol := rec.Column(1).(*array.String)
	assert.Equal(t, "cat", labelCol.Value(0))
	assert.Equal(t, "dog", labelCol.Value(1))
}

func TestSchemaOf(t *testing.T) {
	schema, err := tensor.NewSchema([]tensor.Attribute{
		{Name: "f", DataType: tensor.Float32, Shape: []uint64{1, 1}},
	})
	require.NoError(t, err)

	arrowSchema, err := SchemaOf(schema)
	require.NoError(t, err)
	require.Equal(t, 1, arrowSchema.NumFields())
	assert.Equal(t, arrow.PrimitiveTypes.Float32, arrowSchema.Field(0).Type)
}

func TestSchemaOfRejectsSparse(t *testing.T) {
	schema, err := tensor.NewSchema([]tensor.Attribute{
		{Name: "s", DataType: tensor.Float32, Shape: []uint64{1, 10}, Sparse: true},
	})
	require.NoError(t, err)

	_, err = SchemaOf(schema)
	assert.Error(t, err)
}

func TestFileRandomAccess(t *testing.T) {
	f := NewFile(memory.SliceOf([]byte("0123456789")))

	assert.Equal(t, int64(10), f.Size())

	buf := make([]byte, 4)
	n, err := f.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(buf[:n]))

	pos, err := f.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(8), pos)

	n, err = f.Read(buf)
	assert.Equal(t, 2, n)
	assert.Equal(t, "89", string(buf[:n]))
}
