package tensor

import "fmt"

// Tensor is a dense or sparse typed value. Shape()[0] is the batch
// dimension.
type Tensor interface {
	DataType() DataType
	Shape() []uint64
	sealed()
}

func numElements(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// Dense is a contiguous row-major tensor.
type Dense struct {
	shape []uint64
	data  Array
}

// NewDense validates that the element count matches the shape.
func NewDense(shape []uint64, data Array) (*Dense, error) {
	if numElements(shape) != uint64(data.Len()) {
		return nil, fmt.Errorf("tensor: shape %v needs %d element(s), array has %d",
			shape, numElements(shape), data.Len())
	}
	return &Dense{shape: shape, data: data}, nil
}

func (t *Dense) DataType() DataType { return t.data.DataType() }
func (t *Dense) Shape() []uint64    { return t.shape }
func (t *Dense) Data() Array        { return t.data }
func (t *Dense) sealed()            {}

// COO is a coordinate-format sparse tensor: value i sits at position
// (Coordinates()[0][i], ..., Coordinates()[d-1][i]).
type COO struct {
	shape  []uint64
	values Array
	coords [][]uint64
}

func NewCOO(shape []uint64, values Array, coords [][]uint64) (*COO, error) {
	if len(coords) != len(shape) {
		return nil, fmt.Errorf("tensor: COO needs %d coordinate vector(s), got %d", len(shape), len(coords))
	}
	for d, c := range coords {
		if len(c) != values.Len() {
			return nil, fmt.Errorf("tensor: COO coordinate vector %d has %d entry(ies), values have %d",
				d, len(c), values.Len())
		}
	}
	return &COO{shape: shape, values: values, coords: coords}, nil
}

func (t *COO) DataType() DataType      { return t.values.DataType() }
func (t *COO) Shape() []uint64         { return t.shape }
func (t *COO) Values() Array           { return t.values }
func (t *COO) Coordinates() [][]uint64 { return t.coords }
func (t *COO) sealed()                 {}

// CSR is a compressed-sparse-row matrix; RowOffsets has shape[0]+1 entries.
type CSR struct {
	shape      []uint64
	values     Array
	columns    []uint64
	rowOffsets []uint64
}

func NewCSR(shape []uint64, values Array, columns, rowOffsets []uint64) (*CSR, error) {
	if len(shape) != 2 {
		return nil, fmt.Errorf("tensor: CSR needs a rank-2 shape, got %v", shape)
	}
	if len(columns) != values.Len() {
		return nil, fmt.Errorf("tensor: CSR has %d column index(es) for %d value(s)", len(columns), values.Len())
	}
	if uint64(len(rowOffsets)) != shape[0]+1 {
		return nil, fmt.Errorf("tensor: CSR needs %d row offset(s), got %d", shape[0]+1, len(rowOffsets))
	}
	return &CSR{shape: shape, values: values, columns: columns, rowOffsets: rowOffsets}, nil
}

func (t *CSR) DataType() DataType   { return t.values.DataType() }
func (t *CSR) Shape() []uint64      { return t.shape }
func (t *CSR) Values() Array        { return t.values }
func (t *CSR) Columns() []uint64    { return t.columns }
func (t *CSR) RowOffsets() []uint64 { return t.rowOffsets }
func (t *CSR) sealed()              {}
