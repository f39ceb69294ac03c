package memory

import "fmt"

// Slice is a shared-ownership window [off, end) into a Block. Copying a Slice
// copies the window, not the reference count; use Retain to create an
// independently released handle. The zero Slice is empty and owns nothing.
type Slice struct {
	block Block
	off   int
	end   int
}

// NewSlice adopts the block's existing reference and covers its full extent.
func NewSlice(b Block) Slice {
	return Slice{block: b, off: 0, end: b.Size()}
}

// Bytes returns the window contents. Valid only while the block is alive.
func (s Slice) Bytes() []byte {
	if s.block == nil {
		return nil
	}
	return s.block.Data()[s.off:s.end]
}

func (s Slice) Len() int      { return s.end - s.off }
func (s Slice) IsEmpty() bool { return s.Len() == 0 }
func (s Slice) Block() Block  { return s.block }

// SubSlice returns the window [i, j) relative to s, sharing the same block.
// The reference count is unchanged; the caller decides which handle owns the
// reference.
func (s Slice) SubSlice(i, j int) Slice {
	if i < 0 || j < i || s.off+j > s.end {
		panic(fmt.Sprintf("memory: subslice [%d, %d) out of range for slice of %d byte(s)", i, j, s.Len()))
	}
	return Slice{block: s.block, off: s.off + i, end: s.off + j}
}

// First returns the window containing the first n bytes.
func (s Slice) First(n int) Slice { return s.SubSlice(0, n) }

// From returns the window with the first n bytes removed.
func (s Slice) From(n int) Slice { return s.SubSlice(n, s.Len()) }

// Retain adds a reference to the underlying block and returns s unchanged, so
// payloads can be handed to another owner in one expression.
func (s Slice) Retain() Slice {
	if s.block != nil {
		s.block.Retain()
	}
	return s
}

// Release drops a reference to the underlying block.
func (s Slice) Release() {
	if s.block != nil {
		s.block.Release()
	}
}

// Copy materializes the window into a fresh heap block.
func (s Slice) Copy() Slice {
	b := NewHeapBlock(s.Len())
	copy(b.Data(), s.Bytes())
	return NewSlice(b)
}

// Concat joins the given windows into one freshly allocated slice. The inputs
// keep their references.
func Concat(a Allocator, parts ...Slice) (Slice, error) {
	var total int
	for _, p := range parts {
		total += p.Len()
	}
	block, err := a.Allocate(total)
	if err != nil {
		return Slice{}, err
	}
	data := block.Data()
	var off int
	for _, p := range parts {
		off += copy(data[off:], p.Bytes())
	}
	return NewSlice(block), nil
}

// SliceOf wraps a byte slice in an external block. Used by tests and by
// in-memory data stores.
func SliceOf(data []byte) Slice {
	return NewSlice(NewExternalBlock(data, nil))
}
