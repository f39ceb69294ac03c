// Package arrowutil bridges reader output into Apache Arrow: zero-copy
// buffer views over memory slices, record batches built from examples, and a
// random-access file adapter so framed Parquet records can be handed to a
// Parquet reader.
package arrowutil

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	arrowmem "github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// Buffer wraps a memory slice as an Arrow buffer without copying. The caller
// must keep the slice alive while the buffer is in use.
func Buffer(s memory.Slice) *arrowmem.Buffer {
	return arrowmem.NewBufferBytes(s.Bytes())
}

// DataTypeOf maps a reader data type to its Arrow equivalent.
func DataTypeOf(dt tensor.DataType) (arrow.DataType, error) {
	switch dt {
	case tensor.Float16:
		return arrow.FixedWidthTypes.Float16, nil
	case tensor.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case tensor.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case tensor.Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case tensor.Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case tensor.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case tensor.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case tensor.UInt8:
		return arrow.PrimitiveTypes.Uint8, nil
	case tensor.UInt16:
		return arrow.PrimitiveTypes.Uint16, nil
	case tensor.UInt32:
		return arrow.PrimitiveTypes.Uint32, nil
	case tensor.UInt64, tensor.SizeType:
		return arrow.PrimitiveTypes.Uint64, nil
	case tensor.String:
		return arrow.BinaryTypes.String, nil
	}
	return nil, fmt.Errorf("arrowutil: no Arrow equivalent for %v", dt)
}

// SchemaOf converts a reader schema to an Arrow schema. Multi-dimensional
// attributes flatten into one value column per row group; sparse attributes
// are rejected.
func SchemaOf(s *tensor.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(s.Attributes()))
	for _, attr := range s.Attributes() {
		if attr.Sparse {
			return nil, fmt.Errorf("arrowutil: sparse attribute '%s' has no Arrow record form", attr.Name)
		}
		dt, err := DataTypeOf(attr.DataType)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrow.Field{Name: attr.Name, Type: dt})
	}
	return arrow.NewSchema(fields, nil), nil
}

// ExampleRecord builds an Arrow record batch from an example's dense
// tensors. The caller releases the returned record.
func ExampleRecord(ex *tensor.Example) (arrow.Record, error) {
	schema, err := SchemaOf(ex.Schema)
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(arrowmem.DefaultAllocator, schema)
	defer builder.Release()

	for i, t := range ex.Features {
		dense, ok := t.(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("arrowutil: feature %d is not dense", i)
		}
		if err := appendColumn(builder.Field(i), dense.Data()); err != nil {
			return nil, err
		}
	}
	return builder.NewRecord(), nil
}

func appendColumn(b array.Builder, data tensor.Array) error {
	switch b := b.(type) {
	case *array.Float32Builder:
		b.AppendValues(data.Float32s(), nil)
	case *array.Float64Builder:
		b.AppendValues(data.Float64s(), nil)
	case *array.Int32Builder:
		b.AppendValues(data.Int32s(), nil)
	case *array.Int64Builder:
		b.AppendValues(data.Int64s(), nil)
	case *array.Uint8Builder:
		b.AppendValues(data.UInt8s(), nil)
	case *array.Uint64Builder:
		b.AppendValues(data.UInt64s(), nil)
	case *array.StringBuilder:
		b.AppendValues(data.Strings(), nil)
	default:
		return fmt.Errorf("arrowutil: no column builder for %v", data.DataType())
	}
	return nil
}

// File adapts a memory slice to the random-access interface Parquet readers
// expect. Useful for opening a framed Parquet record emitted by the Parquet
// reader.
type File struct {
	data memory.Slice
	pos  int64
}

func NewFile(data memory.Slice) *File {
	return &File{data: data}
}

func (f *File) Read(p []byte) (int, error) {
	if f.pos >= int64(f.data.Len()) {
		return 0, io.EOF
	}
	n := copy(p, f.data.Bytes()[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(f.data.Len()) {
		return 0, fmt.Errorf("arrowutil: offset %d out of range", off)
	}
	n := copy(p, f.data.Bytes()[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = int64(f.data.Len()) + offset
	default:
		return 0, fmt.Errorf("arrowutil: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("arrowutil: negative seek position %d", pos)
	}
	f.pos = pos
	return pos, nil
}

func (f *File) Size() int64 { return int64(f.data.Len()) }

func (f *File) Close() error { return nil }
