package reader

import (
	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// textLineFormat reads plain text datasets, one line per instance. The
// schema is a single string attribute named "value".
type textLineFormat struct {
	params Params
	schema *tensor.Schema
}

// NewTextLineReader creates a reader over text-line datasets.
func NewTextLineReader(params Params) (*Reader, error) {
	f := &textLineFormat{params: params}
	return NewReader(params, f)
}

func (f *textLineFormat) MakeRecordReader(s store.Store) (records.Reader, error) {
	raw, err := s.OpenRead()
	if err != nil {
		return nil, err
	}
	stream, err := streams.NewUTF8Stream(raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return records.NewTextLineReader(stream, records.TextLineConfig{}), nil
}

func (f *textLineFormat) InferSchema(*Instance) (*tensor.Schema, error) {
	schema, err := tensor.NewSchema([]tensor.Attribute{{
		Name:     "value",
		DataType: tensor.String,
		Shape:    []uint64{uint64(f.params.BatchSize), 1},
	}})
	if err != nil {
		return nil, err
	}
	f.schema = schema
	return schema, nil
}

func (f *textLineFormat) Decode(batch *InstanceBatch) (*tensor.Example, error) {
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
