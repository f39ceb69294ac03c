package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapBlockResize(t *testing.T) {
	b := NewHeapBlock(4)
	copy(b.Data(), []byte{1, 2, 3, 4})

	require.NoError(t, b.Resize(8))
	assert.Equal(t, 8, b.Size())
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, b.Data())

	require.NoError(t, b.Resize(2))
	assert.Equal(t, []byte{1, 2}, b.Data())

	// Shrink then grow again; the reused capacity must come back zeroed.
	require.NoError(t, b.Resize(4))
	assert.Equal(t, []byte{1, 2, 0, 0}, b.Data())
}

func TestBlockRefCounting(t *testing.T) {
	b := NewHeapBlock(4)
	assert.Equal(t, 1, b.RefCount())

	b.Retain()
	assert.Equal(t, 2, b.RefCount())

	b.Release()
	assert.Equal(t, 1, b.RefCount())

	b.Release()
	assert.Nil(t, b.Data())
}

func TestSliceSubSlice(t *testing.T) {
	s := SliceOf([]byte("hello world"))

	sub := s.SubSlice(6, 11)
	assert.Equal(t, "world", string(sub.Bytes()))

	// Subslicing the full window is the identity.
	assert.Equal(t, s.Bytes(), s.SubSlice(0, s.Len()).Bytes())

	// Subslicing is idempotent in content.
	assert.Equal(t, sub.Bytes(), sub.SubSlice(0, sub.Len()).Bytes())

	assert.Equal(t, "hello", string(s.First(5).Bytes()))
	assert.Equal(t, "world", string(s.From(6).Bytes()))
}

func TestSliceSharesBlock(t *testing.T) {
	s := SliceOf([]byte("abcdef"))
	sub := s.SubSlice(2, 4)
	assert.Same(t, s.Block(), sub.Block())

	sub.Retain()
	assert.Equal(t, 2, s.Block().RefCount())
	sub.Release()
	assert.Equal(t, 1, s.Block().RefCount())
}

func TestSliceOutOfRangePanics(t *testing.T) {
	s := SliceOf([]byte("abc"))
	assert.Panics(t, func() { s.SubSlice(2, 1) })
	assert.Panics(t, func() { s.SubSlice(0, 4) })
}

func TestConcat(t *testing.T) {
	a := SliceOf([]byte("begin-"))
	b := SliceOf([]byte("middle-"))
	c := SliceOf([]byte("end"))

	joined, err := Concat(HeapAllocator{}, a, b, c)
	require.NoError(t, err)
	assert.Equal(t, "begin-middle-end", string(joined.Bytes()))
}

func TestFileBackedAllocatorMigration(t *testing.T) {
	alloc := FileBackedAllocator{OversizeThreshold: 16}

	block, err := alloc.Allocate(8)
	require.NoError(t, err)
	copy(block.Data(), []byte("12345678"))

	// Growing past the threshold moves the data off the heap.
	require.NoError(t, block.Resize(64))
	require.NoError(t, block.Resize(128))
	assert.Equal(t, 128, block.Size())
	assert.Equal(t, []byte("12345678"), block.Data()[:8])

	block.Release()
}

func TestFileBackedBlock(t *testing.T) {
	block, err := NewFileBackedBlock(16)
	require.NoError(t, err)

	copy(block.Data(), []byte("feedkit"))
	require.NoError(t, block.Resize(32))
	assert.Equal(t, []byte("feedkit"), block.Data()[:7])

	block.Release()
}
