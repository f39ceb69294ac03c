package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema marks a schema violating its invariants.
var ErrSchema = errors.New("tensor: invalid schema")

// Attribute describes one feature of an example. Shape[0] is the batch
// dimension.
type Attribute struct {
	Name     string
	DataType DataType
	Shape    []uint64
	// Sparse attributes decode into COO tensors.
	Sparse bool
}

func (a Attribute) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v %v", a.Name, a.DataType, a.Shape)
	if a.Sparse {
		b.WriteString(" sparse")
	}
	return b.String()
}

// Schema is an ordered sequence of uniquely named attributes. It is computed
// once per reader and never changes across resets.
type Schema struct {
	attrs []Attribute
	index map[string]int
}

func NewSchema(attrs []Attribute) (*Schema, error) {
	index := make(map[string]int, len(attrs))
	for i, a := range attrs {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: attribute %d has an empty name", ErrSchema, i)
		}
		if prev, ok := index[a.Name]; ok {
			return nil, fmt.Errorf("%w: attributes %d and %d share the name '%s'", ErrSchema, prev, i, a.Name)
		}
		index[a.Name] = i
	}
	return &Schema{attrs: attrs, index: index}, nil
}

func (s *Schema) Attributes() []Attribute { return s.attrs }

// Lookup returns the position of the named attribute.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Schema) String() string {
	parts := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		parts[i] = a.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Example is one batched unit produced by a reader: per-attribute tensors
// conforming to the schema positionally, plus the number of zero-padded tail
// rows.
type Example struct {
	Schema   *Schema
	Features []Tensor
	Padding  uint64
}

// Feature returns the tensor of the named attribute, or nil.
func (e *Example) Feature(name string) Tensor {
	i, ok := e.Schema.Lookup(name)
	if !ok {
		return nil
	}
	return e.Features[i]
}
