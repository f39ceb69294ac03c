// Package memory provides reference-counted byte blocks and shared-ownership
// slices over them. Blocks back the chunk buffers and record payloads that
// flow through the reader pipeline; a block is freed only when the last slice
// referencing it is released.
package memory

import (
	"fmt"
	"sync/atomic"
)

// Block is a contiguous byte region with shared ownership. Retain/Release
// manage the reference count; a freshly constructed block has a count of one.
type Block interface {
	// Data returns the full byte region. The returned slice must not be
	// accessed after the last reference is released.
	Data() []byte
	Size() int
	Retain()
	Release()
	RefCount() int
	Resizable() bool
}

// MutableBlock is a Block whose contents may be written and resized.
type MutableBlock interface {
	Block
	Resize(size int) error
}

type refCount struct {
	n atomic.Int32
}

func (r *refCount) init()          { r.n.Store(1) }
func (r *refCount) retain()        { r.n.Add(1) }
func (r *refCount) release() bool  { return r.n.Add(-1) == 0 }
func (r *refCount) count() int     { return int(r.n.Load()) }

// HeapBlock is a mutable, resizable block on the Go heap.
type HeapBlock struct {
	refs refCount
	data []byte
}

// NewHeapBlock allocates a zeroed heap block of the given size.
func NewHeapBlock(size int) *HeapBlock {
	b := &HeapBlock{data: make([]byte, size)}
	b.refs.init()
	return b
}

func (b *HeapBlock) Data() []byte { return b.data }
func (b *HeapBlock) Size() int    { return len(b.data) }
func (b *HeapBlock) Retain()      { b.refs.retain() }

func (b *HeapBlock) Release() {
	if b.refs.release() {
		b.data = nil
	}
}

func (b *HeapBlock) RefCount() int   { return b.refs.count() }
func (b *HeapBlock) Resizable() bool { return true }

func (b *HeapBlock) Resize(size int) error {
	if size < 0 {
		return fmt.Errorf("memory: invalid block size %d", size)
	}
	if size <= cap(b.data) {
		// Zero the grown region so reused capacity never leaks stale bytes.
		old := len(b.data)
		b.data = b.data[:size]
		for i := old; i < size; i++ {
			b.data[i] = 0
		}
		return nil
	}
	data := make([]byte, size)
	copy(data, b.data)
	b.data = data
	return nil
}

// ExternalBlock wraps caller-owned bytes in the Block interface. The optional
// release hook runs when the last reference is dropped.
type ExternalBlock struct {
	refs   refCount
	data   []byte
	onFree func()
}

// NewExternalBlock wraps data without copying. onFree may be nil.
func NewExternalBlock(data []byte, onFree func()) *ExternalBlock {
	b := &ExternalBlock{data: data, onFree: onFree}
	b.refs.init()
	return b
}

func (b *ExternalBlock) Data() []byte { return b.data }
func (b *ExternalBlock) Size() int    { return len(b.data) }
func (b *ExternalBlock) Retain()      { b.refs.retain() }

func (b *ExternalBlock) Release() {
	if b.refs.release() {
		if b.onFree != nil {
			b.onFree()
		}
		b.data = nil
	}
}

func (b *ExternalBlock) RefCount() int   { return b.refs.count() }
func (b *ExternalBlock) Resizable() bool { return false }
