package reader

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// recordioProtobufFormat reads SageMaker RecordIO-protobuf datasets. Each
// RecordIO payload is a Record message holding feature and label maps whose
// values are dense or sparse float32/float64/int32 tensors.
type recordioProtobufFormat struct {
	params Params
	schema *tensor.Schema

	// Per-attribute layout, fixed after schema inference.
	layouts []attrLayout
}

type attrLayout struct {
	name   string
	dtype  tensor.DataType
	sparse bool
	// valuesPerInstance is the dense row width.
	valuesPerInstance uint64
	// dims are the per-instance dimensions.
	dims []uint64
}

// NewRecordIOProtobufReader creates a reader over RecordIO-protobuf
// datasets.
func NewRecordIOProtobufReader(params Params) (*Reader, error) {
	f := &recordioProtobufFormat{params: params}
	return NewReader(params, f)
}

func (f *recordioProtobufFormat) MakeRecordReader(s store.Store) (records.Reader, error) {
	stream, err := s.OpenRead()
	if err != nil {
		return nil, err
	}
	return records.NewRecordIOReader(stream), nil
}

func (f *recordioProtobufFormat) InferSchema(ins *Instance) (*tensor.Schema, error) {
	if ins == nil {
		schema, err := tensor.NewSchema(nil)
		if err != nil {
			return nil, err
		}
		f.schema = schema
		return schema, nil
	}

	features, err := parseProtobufRecord(ins.Bits.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: instance %d of %s: %v", ErrInvalidInstance, ins.Index, ins.Store, err)
	}

	attrs := make([]tensor.Attribute, 0, len(features))
	for _, ft := range features {
		layout := attrLayout{name: ft.name, dtype: ft.dtype, sparse: len(ft.keys) > 0}

		if len(ft.shape) > 0 {
			layout.dims = ft.shape
		} else {
			layout.dims = []uint64{uint64(ft.numValues())}
		}
		layout.valuesPerInstance = 1
		for _, d := range layout.dims {
			layout.valuesPerInstance *= d
		}

		shape := append([]uint64{uint64(f.params.BatchSize)}, layout.dims...)
		attrs = append(attrs, tensor.Attribute{
			Name:     ft.name,
			DataType: ft.dtype,
			Shape:    shape,
			Sparse:   layout.sparse,
		})
		f.layouts = append(f.layouts, layout)
	}

	schema, err := tensor.NewSchema(attrs)
	if err != nil {
		return nil, err
	}
	f.schema = schema
	return schema, nil
}

func (f *recordioProtobufFormat) Decode(batch *InstanceBatch) (*tensor.Example, error) {
	rows := len(batch.Instances)
	real := batch.Instances[:rows-batch.Padding]

	builders := make([]*protoTensorBuilder, len(f.layouts))
	for i, layout := range f.layouts {
		builders[i] = newProtoTensorBuilder(layout)
	}

	good := 0
	for i := range real {
		ins := &real[i]
		err := f.decodeInstance(builders, ins, good)
		if err == nil {
			good++
			continue
		}

		if f.params.WarnBadInstances {
			logrus.Warnf("reader: instance %d of %s is bad: %v", ins.Index, ins.Store, err)
		}
		switch f.params.BadExampleHandling {
		case BadExampleError:
			return nil, err
		case BadExampleSkipWarn:
			logrus.Warnf("reader: skipping example %d: %v", batch.Index, err)
			fallthrough
		case BadExampleSkip:
			return nil, nil
		case BadExamplePadWarn:
			logrus.Warnf("reader: padding example %d past a bad instance: %v", batch.Index, err)
		case BadExamplePad:
		}
	}

	padding := rows - good
	features := make([]tensor.Tensor, 0, len(builders))
	for _, b := range builders {
		t, err := b.build(rows, good)
		if err != nil {
			return nil, err
		}
		features = append(features, t)
	}
	return &tensor.Example{
		Schema:   f.schema,
		Features: features,
		Padding:  uint64(padding),
	}, nil
}

// decodeInstance appends one record's features at dense row `row`, undoing
// partial appends on mismatch.
func (f *recordioProtobufFormat) decodeInstance(builders []*protoTensorBuilder, ins *Instance, row int) error {
	features, err := parseProtobufRecord(ins.Bits.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstance, err)
	}
	if len(features) != len(f.layouts) {
		return fmt.Errorf("%w: the record has %d feature(s), the schema expects %d",
			ErrInvalidInstance, len(features), len(f.layouts))
	}

	for i, ft := range features {
		layout := &f.layouts[i]
		if ft.name != layout.name || ft.dtype != layout.dtype {
			undoAll(builders[:i])
			return fmt.Errorf("%w: feature %d is '%s' (%v), the schema expects '%s' (%v)",
				ErrInvalidInstance, i, ft.name, ft.dtype, layout.name, layout.dtype)
		}
		if err := builders[i].append(ft, row); err != nil {
			undoAll(builders[:i])
			return err
		}
	}
	return nil
}

func undoAll(builders []*protoTensorBuilder) {
	for _, b := range builders {
		b.undo()
	}
}

// protoTensorBuilder accumulates one attribute across a batch, densely or as
// COO coordinates.
type protoTensorBuilder struct {
	layout attrLayout

	f32 []float32
	f64 []float64
	i32 []int32

	// Sparse accumulation.
	coordsRow []uint64
	coordsCol []uint64

	marks []int
}

func newProtoTensorBuilder(layout attrLayout) *protoTensorBuilder {
	return &protoTensorBuilder{layout: layout}
}

func (b *protoTensorBuilder) len() int {
	switch b.layout.dtype {
	case tensor.Float32:
		return len(b.f32)
	case tensor.Float64:
		return len(b.f64)
	default:
		return len(b.i32)
	}
}

func (b *protoTensorBuilder) append(ft protoFeature, row int) error {
	if !b.layout.sparse && uint64(ft.numValues()) != b.layout.valuesPerInstance {
		return fmt.Errorf("%w: feature '%s' has %d value(s), the schema expects %d",
			ErrInvalidInstance, ft.name, ft.numValues(), b.layout.valuesPerInstance)
	}
	if b.layout.sparse && len(ft.keys) != ft.numValues() {
		return fmt.Errorf("%w: feature '%s' has %d key(s) for %d value(s)",
			ErrInvalidInstance, ft.name, len(ft.keys), ft.numValues())
	}

	b.marks = append(b.marks, b.len())

	switch b.layout.dtype {
	case tensor.Float32:
		b.f32 = append(b.f32, ft.f32...)
	case tensor.Float64:
		b.f64 = append(b.f64, ft.f64...)
	default:
		b.i32 = append(b.i32, ft.i32...)
	}

	if b.layout.sparse {
		for _, key := range ft.keys {
			b.coordsRow = append(b.coordsRow, uint64(row))
			b.coordsCol = append(b.coordsCol, key)
		}
	}
	return nil
}

func (b *protoTensorBuilder) undo() {
	if len(b.marks) == 0 {
		return
	}
	mark := b.marks[len(b.marks)-1]
	b.marks = b.marks[:len(b.marks)-1]
	switch b.layout.dtype {
	case tensor.Float32:
		b.f32 = b.f32[:mark]
	case tensor.Float64:
		b.f64 = b.f64[:mark]
	default:
		b.i32 = b.i32[:mark]
	}
	if b.layout.sparse {
		b.coordsRow = b.coordsRow[:mark]
		b.coordsCol = b.coordsCol[:mark]
	}
}

func (b *protoTensorBuilder) array() tensor.Array {
	switch b.layout.dtype {
	case tensor.Float32:
		return tensor.NewFloat32Array(b.f32)
	case tensor.Float64:
		return tensor.NewFloat64Array(b.f64)
	default:
		return tensor.NewInt32Array(b.i32)
	}
}

func (b *protoTensorBuilder) build(rows, good int) (tensor.Tensor, error) {
	shape := append([]uint64{uint64(rows)}, b.layout.dims...)

	if b.layout.sparse {
		return tensor.NewCOO(shape, b.array(), [][]uint64{b.coordsRow, b.coordsCol})
	}

	// Zero rows for padding and skipped bad instances.
	for n := good; n < rows; n++ {
		switch b.layout.dtype {
		case tensor.Float32:
			b.f32 = append(b.f32, make([]float32, b.layout.valuesPerInstance)...)
		case tensor.Float64:
			b.f64 = append(b.f64, make([]float64, b.layout.valuesPerInstance)...)
		default:
			b.i32 = append(b.i32, make([]int32, b.layout.valuesPerInstance)...)
		}
	}
	return tensor.NewDense(shape, b.array())
}
