package records

import (
	"io"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// DefaultChunkSize is the initial chunk buffer size. The buffer doubles
// whenever a whole chunk turns out to be leftover, i.e. no record fit.
const DefaultChunkSize = 32 << 20

// ChunkReader fills resizable buffers from a stream, prepending the
// undecoded leftover of the previous chunk.
type ChunkReader interface {
	// ReadChunk returns a new chunk starting with leftover followed by
	// freshly read bytes, or an empty slice once the stream is exhausted.
	// The caller owns the returned reference and must release its previous
	// chunk after the call.
	ReadChunk(leftover memory.Slice) (memory.Slice, error)
	ChunkSizeHint() int
	SetChunkSizeHint(n int)
	EOF() bool
	Close() error
}

// NewChunkReader picks the zero-copy path when the stream can serve its whole
// content as a single slice.
func NewChunkReader(stream streams.Stream) ChunkReader {
	if _, sized := stream.Size(); sized && streams.SupportsZeroCopy(stream) {
		return &inMemoryChunkReader{stream: stream}
	}
	return NewChunkReaderSize(stream, DefaultChunkSize)
}

// NewChunkReaderSize creates a buffered chunk reader with an explicit initial
// chunk size.
func NewChunkReaderSize(stream streams.Stream, chunkSize int) ChunkReader {
	return &defaultChunkReader{
		stream:        stream,
		alloc:         memory.DefaultAllocator(),
		nextChunkSize: chunkSize,
	}
}

type defaultChunkReader struct {
	stream        streams.Stream
	alloc         memory.Allocator
	block         memory.MutableBlock
	nextChunkSize int
	eof           bool
}

func (r *defaultChunkReader) ReadChunk(leftover memory.Slice) (memory.Slice, error) {
	if r.eof {
		return memory.Slice{}, nil
	}

	reuse := false
	if r.block != nil {
		switch {
		case r.block.Size() == leftover.Len():
			// The whole chunk is leftover: no record fit, so grow.
			// The leftover already sits at the buffer start.
			if r.block.Size() == r.nextChunkSize {
				r.nextChunkSize <<= 1
			}
			reuse = true
		case r.block.RefCount() <= 2:
			// Only this reader and its single consumer reference the
			// buffer, so it can be refilled in place.
			if !leftover.IsEmpty() {
				copy(r.block.Data(), leftover.Bytes())
			}
			reuse = true
		}
	}

	if reuse {
		if r.block.Size() != r.nextChunkSize {
			block, err := memory.Resize(r.alloc, r.block, r.nextChunkSize)
			if err != nil {
				return memory.Slice{}, err
			}
			r.block = block
		}
	} else {
		block, err := r.alloc.Allocate(r.nextChunkSize)
		if err != nil {
			return memory.Slice{}, err
		}
		if !leftover.IsEmpty() {
			copy(block.Data(), leftover.Bytes())
		}
		if r.block != nil {
			r.block.Release()
		}
		r.block = block
	}

	data := r.block.Data()
	filled := leftover.Len()
	for filled < len(data) {
		n, err := r.stream.Read(data[filled:])
		filled += n
		if err == io.EOF || (n == 0 && err == nil) {
			r.eof = true
			break
		}
		if err != nil {
			return memory.Slice{}, err
		}
	}

	chunk := memory.NewSlice(r.block).First(filled)
	if r.eof {
		// Hand the reader's reference over; there is no next fill.
		r.block = nil
		return chunk, nil
	}
	return chunk.Retain(), nil
}

func (r *defaultChunkReader) ChunkSizeHint() int { return r.nextChunkSize }

func (r *defaultChunkReader) SetChunkSizeHint(n int) {
	for n > r.nextChunkSize {
		r.nextChunkSize <<= 1
	}
}

func (r *defaultChunkReader) EOF() bool { return r.eof }

func (r *defaultChunkReader) Close() error {
	if r.block != nil {
		r.block.Release()
		r.block = nil
	}
	return r.stream.Close()
}

// inMemoryChunkReader serves the whole stream as one zero-copy chunk.
type inMemoryChunkReader struct {
	stream streams.Stream
	eof    bool
}

func (r *inMemoryChunkReader) ReadChunk(leftover memory.Slice) (memory.Slice, error) {
	if r.eof {
		return memory.Slice{}, nil
	}
	r.eof = true
	return r.stream.(streams.ZeroCopy).Slice()
}

func (r *inMemoryChunkReader) ChunkSizeHint() int  { return 0 }
func (r *inMemoryChunkReader) SetChunkSizeHint(int) {}
func (r *inMemoryChunkReader) EOF() bool           { return r.eof }
func (r *inMemoryChunkReader) Close() error        { return r.stream.Close() }
