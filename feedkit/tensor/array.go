package tensor

import (
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
)

// Array is a typed element container. It may alias external backing memory,
// in which case the array keeps the backing alive until released.
type Array struct {
	dtype   DataType
	length  int
	data    any
	backing memory.Slice
}

func NewFloat32Array(values []float32) Array {
	return Array{dtype: Float32, length: len(values), data: values}
}

func NewFloat64Array(values []float64) Array {
	return Array{dtype: Float64, length: len(values), data: values}
}

func NewInt32Array(values []int32) Array {
	return Array{dtype: Int32, length: len(values), data: values}
}

func NewInt64Array(values []int64) Array {
	return Array{dtype: Int64, length: len(values), data: values}
}

func NewUInt8Array(values []uint8) Array {
	return Array{dtype: UInt8, length: len(values), data: values}
}

func NewUInt64Array(values []uint64) Array {
	return Array{dtype: UInt64, length: len(values), data: values}
}

func NewStringArray(values []string) Array {
	return Array{dtype: String, length: len(values), data: values}
}

// WrapBytes aliases a memory slice as a uint8 array without copying. The
// array adopts the slice reference and releases it with Release.
func WrapBytes(backing memory.Slice) Array {
	return Array{dtype: UInt8, length: backing.Len(), data: backing.Bytes(), backing: backing}
}

func (a Array) DataType() DataType { return a.dtype }
func (a Array) Len() int           { return a.length }

// External reports whether the array aliases externally owned memory.
func (a Array) External() bool { return a.backing.Block() != nil }

// Release drops the external backing reference, if any.
func (a Array) Release() {
	a.backing.Release()
}

func (a Array) Float32s() []float32 { return a.data.([]float32) }
func (a Array) Float64s() []float64 { return a.data.([]float64) }
func (a Array) Int32s() []int32     { return a.data.([]int32) }
func (a Array) Int64s() []int64     { return a.data.([]int64) }
func (a Array) UInt8s() []uint8     { return a.data.([]uint8) }
func (a Array) UInt64s() []uint64   { return a.data.([]uint64) }
func (a Array) Strings() []string   { return a.data.([]string) }

// Value returns the element at i boxed; convenient for diagnostics and
// column statistics, not for hot paths.
func (a Array) Value(i int) any {
	switch a.dtype {
	case Float32:
		return a.Float32s()[i]
	case Float64:
		return a.Float64s()[i]
	case Int32:
		return a.Int32s()[i]
	case Int64:
		return a.Int64s()[i]
	case UInt8:
		return a.UInt8s()[i]
	case UInt64:
		return a.UInt64s()[i]
	case String:
		return a.Strings()[i]
	}
	panic(fmt.Sprintf("tensor: no boxed accessor for %v", a.dtype))
}
