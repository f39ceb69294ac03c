package reader

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// Wire parsing of the SageMaker Record protobuf message:
//
//	message Record {
//	    map<string, Value> features = 1;
//	    map<string, Value> label    = 2;
//	}
//	message Value {
//	    oneof value {
//	        Float32Tensor float32_tensor = 2;
//	        Float64Tensor float64_tensor = 3;
//	        Int32Tensor   int32_tensor   = 7;
//	    }
//	}
//	message *Tensor {
//	    repeated <elem>  values = 1 [packed = true];
//	    repeated uint64  keys   = 2 [packed = true];
//	    repeated uint64  shape  = 3 [packed = true];
//	}
//
// Parsing works directly on the wire format; the features and labels are
// returned in encounter order, features first.
type protoFeature struct {
	name  string
	dtype tensor.DataType
	f32   []float32
	f64   []float64
	i32   []int32
	keys  []uint64
	shape []uint64
}

func (f *protoFeature) numValues() int {
	switch f.dtype {
	case tensor.Float32:
		return len(f.f32)
	case tensor.Float64:
		return len(f.f64)
	default:
		return len(f.i32)
	}
}

func parseProtobufRecord(data []byte) ([]protoFeature, error) {
	var features, labels []protoFeature

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, wireError("record tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case (num == 1 || num == 2) && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, wireError("map entry", protowire.ParseError(n))
			}
			data = data[n:]

			ft, err := parseMapEntry(entry)
			if err != nil {
				return nil, err
			}
			if num == 1 {
				features = append(features, ft)
			} else {
				labels = append(labels, ft)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, wireError("record field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return append(features, labels...), nil
}

func parseMapEntry(data []byte) (protoFeature, error) {
	var ft protoFeature
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ft, wireError("map entry tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			key, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ft, wireError("map key", protowire.ParseError(n))
			}
			data = data[n:]
			ft.name = string(key)
		case num == 2 && typ == protowire.BytesType:
			value, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ft, wireError("map value", protowire.ParseError(n))
			}
			data = data[n:]
			if err := parseValue(value, &ft); err != nil {
				return ft, err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ft, wireError("map entry field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if ft.name == "" {
		return ft, fmt.Errorf("a record feature has an empty name")
	}
	return ft, nil
}

func parseValue(data []byte, ft *protoFeature) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return wireError("value tag", protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return wireError("value field", protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		body, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return wireError("value body", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case 2:
			ft.dtype = tensor.Float32
			if err := parseTensor(body, ft); err != nil {
				return err
			}
		case 3:
			ft.dtype = tensor.Float64
			if err := parseTensor(body, ft); err != nil {
				return err
			}
		case 7:
			ft.dtype = tensor.Int32
			if err := parseTensor(body, ft); err != nil {
				return err
			}
		default:
			return fmt.Errorf("the value of feature '%s' has the unsupported field %d", ft.name, num)
		}
	}
	return nil
}

func parseTensor(data []byte, ft *protoFeature) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return wireError("tensor tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case 1:
			var err error
			data, err = parseValues(data, typ, ft)
			if err != nil {
				return err
			}
		case 2:
			var err error
			data, err = parseUint64s(data, typ, &ft.keys)
			if err != nil {
				return err
			}
		case 3:
			var err error
			data, err = parseUint64s(data, typ, &ft.shape)
			if err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return wireError("tensor field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

// parseValues handles the packed and unpacked encodings of the element
// field.
func parseValues(data []byte, typ protowire.Type, ft *protoFeature) ([]byte, error) {
	if typ == protowire.BytesType {
		packed, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, wireError("packed values", protowire.ParseError(n))
		}
		data = data[n:]
		for len(packed) > 0 {
			m, err := consumeValue(packed, ft)
			if err != nil {
				return nil, err
			}
			packed = packed[m:]
		}
		return data, nil
	}
	n, err := consumeValue(data, ft)
	if err != nil {
		return nil, err
	}
	return data[n:], nil
}

func consumeValue(data []byte, ft *protoFeature) (int, error) {
	switch ft.dtype {
	case tensor.Float32:
		v, n := protowire.ConsumeFixed32(data)
		if n < 0 {
			return 0, wireError("float32 value", protowire.ParseError(n))
		}
		ft.f32 = append(ft.f32, math.Float32frombits(v))
		return n, nil
	case tensor.Float64:
		v, n := protowire.ConsumeFixed64(data)
		if n < 0 {
			return 0, wireError("float64 value", protowire.ParseError(n))
		}
		ft.f64 = append(ft.f64, math.Float64frombits(v))
		return n, nil
	default:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, wireError("int32 value", protowire.ParseError(n))
		}
		ft.i32 = append(ft.i32, int32(v))
		return n, nil
	}
}

func parseUint64s(data []byte, typ protowire.Type, dst *[]uint64) ([]byte, error) {
	if typ == protowire.BytesType {
		packed, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, wireError("packed uint64s", protowire.ParseError(n))
		}
		data = data[n:]
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return nil, wireError("uint64 value", protowire.ParseError(m))
			}
			*dst = append(*dst, v)
			packed = packed[m:]
		}
		return data, nil
	}
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, wireError("uint64 value", protowire.ParseError(n))
	}
	*dst = append(*dst, v)
	return data[n:], nil
}

func wireError(what string, err error) error {
	return fmt.Errorf("invalid protobuf wire data at %s: %w", what, err)
}
