// Package tensor holds the typed data model the reader emits: data types,
// element arrays with optional zero-copy backing, dense and sparse tensors,
// and the schema an example conforms to.
package tensor

import "fmt"

// DataType enumerates the element types a tensor can carry.
type DataType uint8

const (
	Float16 DataType = iota
	Float32
	Float64
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	String
	// SizeType is the platform-width unsigned integer used for indices.
	SizeType
)

func (dt DataType) String() string {
	switch dt {
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case String:
		return "string"
	case SizeType:
		return "size"
	}
	return fmt.Sprintf("DataType(%d)", uint8(dt))
}

// ItemSize returns the byte width of one element, or zero for variable-width
// types.
func (dt DataType) ItemSize() int {
	switch dt {
	case Int8, UInt8:
		return 1
	case Float16, Int16, UInt16:
		return 2
	case Float32, Int32, UInt32:
		return 4
	case Float64, Int64, UInt64, SizeType:
		return 8
	}
	return 0
}
