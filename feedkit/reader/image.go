package reader

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// ImageFrame tells how images are framed in the dataset.
type ImageFrame int

const (
	// ImageFrameNone reads one image per store.
	ImageFrameNone ImageFrame = iota
	// ImageFrameRecordIO reads MXNet image records, skipping the image
	// record header of each payload.
	ImageFrameRecordIO
)

// recordIOImageHeaderSize is the fixed MXNet image-record header preceding
// the pixel data.
const recordIOImageHeaderSize = 24

// ImageParams configure image datasets.
type ImageParams struct {
	Frame ImageFrame
	// Dimensions is the per-image shape in (channels, height, width)
	// order. Payloads must match the implied byte size exactly.
	Dimensions []uint64
}

// imageFormat reads pre-decoded image bytes into fixed-shape uint8 tensors.
// Pixel decoding and augmentation live outside the reader.
type imageFormat struct {
	params      Params
	imageParams ImageParams
	schema      *tensor.Schema
	pixelsPer   int
}

// NewImageReader creates a reader over image datasets.
func NewImageReader(params Params, imageParams ImageParams) (*Reader, error) {
	if len(imageParams.Dimensions) != 3 {
		return nil, fmt.Errorf("%w: image dimensions must be (channels, height, width)", ErrInvalidArgument)
	}
	pixels := 1
	for _, d := range imageParams.Dimensions {
		pixels *= int(d)
	}
	f := &imageFormat{params: params, imageParams: imageParams, pixelsPer: pixels}
	return NewReader(params, f)
}

func (f *imageFormat) MakeRecordReader(s store.Store) (records.Reader, error) {
	stream, err := s.OpenRead()
	if err != nil {
		return nil, err
	}
	if f.imageParams.Frame == ImageFrameRecordIO {
		return records.NewRecordIOReader(stream), nil
	}
	return records.NewBlobReader(stream), nil
}

func (f *imageFormat) InferSchema(*Instance) (*tensor.Schema, error) {
	shape := append([]uint64{uint64(f.params.BatchSize)}, f.imageParams.Dimensions...)
	schema, err := tensor.NewSchema([]tensor.Attribute{{
		Name:     "value",
		DataType: tensor.UInt8,
		Shape:    shape,
	}})
	if err != nil {
		return nil, err
	}
	f.schema = schema
	return schema, nil
}

func (f *imageFormat) Decode(batch *InstanceBatch) (*tensor.Example, error) {
	rows := len(batch.Instances)
	real := batch.Instances[:rows-batch.Padding]

	out := make([]uint8, rows*f.pixelsPer)

	good := 0
	for i := range real {
		ins := &real[i]
		err := f.decodePixels(out[good*f.pixelsPer:(good+1)*f.pixelsPer], ins)
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

	shape := append([]uint64{uint64(rows)}, f.imageParams.Dimensions...)
	dense, err := tensor.NewDense(shape, tensor.NewUInt8Array(out))
	if err != nil {
		return nil, err
	}
	return &tensor.Example{
		Schema:   f.schema,
		Features: []tensor.Tensor{dense},
		Padding:  uint64(rows - good),
	}, nil
}

func (f *imageFormat) decodePixels(dst []uint8, ins *Instance) error {
	data := ins.Bits.Bytes()
	if f.imageParams.Frame == ImageFrameRecordIO {
		if len(data) < recordIOImageHeaderSize {
			return fmt.Errorf("%w: the payload is shorter than the image record header", ErrInvalidInstance)
		}
		data = data[recordIOImageHeaderSize:]
	}
	if len(data) != len(dst) {
		return fmt.Errorf("%w: the image has %d byte(s), the configured dimensions need %d",
			ErrInvalidInstance, len(data), len(dst))
	}
	copy(dst, data)
	return nil
}
