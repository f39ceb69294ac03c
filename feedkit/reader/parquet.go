package reader

import (
	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// parquetFormat frames concatenated Parquet files into one opaque byte-string
// record each; column decoding is delegated to a Parquet library downstream,
// e.g. through the arrowutil package.
type parquetFormat struct {
	params Params
	schema *tensor.Schema
}

// NewParquetReader creates a reader over Parquet-framed datasets.
func NewParquetReader(params Params) (*Reader, error) {
	f := &parquetFormat{params: params}
	return NewReader(params, f)
}

func (f *parquetFormat) MakeRecordReader(s store.Store) (records.Reader, error) {
	stream, err := s.OpenRead()
	if err != nil {
		return nil, err
	}
	return records.NewParquetReader(stream), nil
}

func (f *parquetFormat) InferSchema(*Instance) (*tensor.Schema, error) {
	schema, err := tensor.NewSchema([]tensor.Attribute{{
		Name:     "record",
		DataType: tensor.String,
		Shape:    []uint64{uint64(f.params.BatchSize), 1},
	}})
	if err != nil {
		return nil, err
	}
	f.schema = schema
	return schema, nil
}

func (f *parquetFormat) Decode(batch *InstanceBatch) (*tensor.Example, error) {
	values := make([]string, 0, len(batch.Instances))
	for _, ins := range batch.Instances[:len(batch.Instances)-batch.Padding] {
		values = append(values, string(ins.Bits.Bytes()))
	}
	for i := 0; i < batch.Padding; i++ {
		values = append(values, "")
	}

	shape := []uint64{uint64(len(batch.Instances)), 1}
	dense, err := tensor.NewDense(shape, tensor.NewStringArray(values))
	if err != nil {
		return nil, err
	}
	return &tensor.Example{
		Schema:   f.schema,
		Features: []tensor.Tensor{dense},
		Padding:  uint64(batch.Padding),
	}, nil
}
