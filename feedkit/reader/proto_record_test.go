package reader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// encodeFloat32Tensor encodes a Float32Tensor submessage.
func encodeFloat32Tensor(values []float32, keys, shape []uint64) []byte {
	var body []byte

	var packed []byte
	for _, v := range values {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	body = protowire.AppendTag(body, 1, protowire.BytesType)
	body = protowire.AppendBytes(body, packed)

	if len(keys) > 0 {
		var packedKeys []byte
		for _, k := range keys {
			packedKeys = protowire.AppendVarint(packedKeys, k)
		}
		body = protowire.AppendTag(body, 2, protowire.BytesType)
		body = protowire.AppendBytes(body, packedKeys)
	}
	if len(shape) > 0 {
		var packedShape []byte
		for _, d := range shape {
			packedShape = protowire.AppendVarint(packedShape, d)
		}
		body = protowire.AppendTag(body, 3, protowire.BytesType)
		body = protowire.AppendBytes(body, packedShape)
	}
	return body
}

// encodeRecord encodes a Record with one float32 feature per entry.
func encodeRecord(entries map[string][]byte, fieldNum protowire.Number) []byte {
	var record []byte
	for name, tensorBody := range entries {
		var value []byte
		value = protowire.AppendTag(value, 2, protowire.BytesType)
		value = protowire.AppendBytes(value, tensorBody)

		var entry []byte
		entry = protowire.AppendTag(entry, 1, protowire.BytesType)
		entry = protowire.AppendBytes(entry, []byte(name))
		entry = protowire.AppendTag(entry, 2, protowire.BytesType)
		entry = protowire.AppendBytes(entry, value)

		record = protowire.AppendTag(record, fieldNum, protowire.BytesType)
		record = protowire.AppendBytes(record, entry)
	}
	return record
}

func TestParseProtobufRecordDense(t *testing.T) {
	record := encodeRecord(map[string][]byte{
		"features": encodeFloat32Tensor([]float32{1, 2, 3}, nil, []uint64{3}),
	}, 1)

	features, err := parseProtobufRecord(record)
	require.NoError(t, err)
	require.Len(t, features, 1)

	ft := features[0]
	assert.Equal(t, "features", ft.name)
	assert.Equal(t, tensor.Float32, ft.dtype)
	assert.Equal(t, []float32{1, 2, 3}, ft.f32)
	assert.Empty(t, ft.keys)
	assert.Equal(t, []uint64{3}, ft.shape)
}

func TestParseProtobufRecordSparse(t *testing.T) {
	record := encodeRecord(map[string][]byte{
		"weights": encodeFloat32Tensor([]float32{0.5, 0.25}, []uint64{3, 17}, []uint64{100}),
	}, 1)

	features, err := parseProtobufRecord(record)
	require.NoError(t, err)
	require.Len(t, features, 1)

	ft := features[0]
	assert.Equal(t, []uint64{3, 17}, ft.keys)
	assert.Equal(t, []uint64{100}, ft.shape)
}

func TestRecordIOProtobufEndToEnd(t *testing.T) {
	payload := encodeRecord(map[string][]byte{
		"values": encodeFloat32Tensor([]float32{1, 2}, nil, []uint64{2}),
	}, 1)

	var data []byte
	data = records.AppendRecordIO(data, payload, records.KindComplete)
	data = records.AppendRecordIO(data, payload, records.KindComplete)

	params := DefaultParams()
	params.Dataset = memDataset(string(data))
	params.BatchSize = 2

	r, err := NewRecordIOProtobufReader(params)
	require.NoError(t, err)

	schema, err := r.ReadSchema()
	require.NoError(t, err)
	require.Len(t, schema.Attributes(), 1)
	attr := schema.Attributes()[0]
	assert.Equal(t, "values", attr.Name)
	assert.Equal(t, tensor.Float32, attr.DataType)
	assert.Equal(t, []uint64{2, 2}, attr.Shape)
	assert.False(t, attr.Sparse)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)

	dense := ex.Features[0].(*tensor.Dense)
	assert.Equal(t, []uint64{2, 2}, dense.Shape())
	assert.Equal(t, []float32{1, 2, 1, 2}, dense.Data().Float32s())
}

func TestRecordIOProtobufSparseEndToEnd(t *testing.T) {
	makePayload := func(values []float32, keys []uint64) []byte {
		return encodeRecord(map[string][]byte{
			"sparse": encodeFloat32Tensor(values, keys, []uint64{10}),
		}, 1)
	}

	var data []byte
	data = records.AppendRecordIO(data, makePayload([]float32{1}, []uint64{4}), records.KindComplete)
	data = records.AppendRecordIO(data, makePayload([]float32{2, 3}, []uint64{1, 9}), records.KindComplete)

	params := DefaultParams()
	params.Dataset = memDataset(string(data))
	params.BatchSize = 2

	r, err := NewRecordIOProtobufReader(params)
	require.NoError(t, err)

	ex, err := r.ReadExample()
	require.NoError(t, err)
	require.NotNil(t, ex)

	coo := ex.Features[0].(*tensor.COO)
	assert.Equal(t, []uint64{2, 10}, coo.Shape())
	assert.Equal(t, []float32{1, 2, 3}, coo.Values().Float32s())
	assert.Equal(t, []uint64{0, 1, 1}, coo.Coordinates()[0])
	assert.Equal(t, []uint64{4, 1, 9}, coo.Coordinates()[1])
}
