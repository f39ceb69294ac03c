package records

import (
	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// DecodeFunc carves the next record out of the chunk, advancing the chunk
// window past the consumed bytes. It returns (nil, nil) when no complete
// record fits; with ignoreLeftover set the caller will refill the chunk and
// retry, otherwise a partial record is a framing error.
type DecodeFunc func(chunk *memory.Slice, ignoreLeftover bool) (*Record, error)

// StreamReader is the shared loop of all record readers: decode from the
// current chunk, refill on demand, preserve leftover across refills. Concrete
// readers embed it and install their decode function.
type StreamReader struct {
	chunkReader ChunkReader
	chunk       memory.Slice
	decode      DecodeFunc
	peeked      *Record
	hasPeeked   bool
}

func (r *StreamReader) init(stream streams.Stream, decode DecodeFunc) {
	r.chunkReader = NewChunkReader(stream)
	r.decode = decode
}

func (r *StreamReader) initSize(stream streams.Stream, decode DecodeFunc, chunkSize int) {
	r.chunkReader = NewChunkReaderSize(stream, chunkSize)
	r.decode = decode
}

func (r *StreamReader) ReadRecord() (*Record, error) {
	if r.hasPeeked {
		rec := r.peeked
		r.peeked = nil
		r.hasPeeked = false
		return rec, nil
	}
	return r.readRecordCore()
}

func (r *StreamReader) PeekRecord() (*Record, error) {
	if !r.hasPeeked {
		rec, err := r.readRecordCore()
		if err != nil {
			return nil, err
		}
		r.peeked = rec
		r.hasPeeked = true
	}
	return r.peeked, nil
}

func (r *StreamReader) readRecordCore() (*Record, error) {
	for {
		rec, err := r.decode(&r.chunk, !r.chunkReader.EOF())
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}

		chunk, err := r.chunkReader.ReadChunk(r.chunk)
		if err != nil {
			return nil, err
		}
		r.chunk.Release()
		r.chunk = chunk
		if r.chunk.IsEmpty() {
			return nil, nil
		}
	}
}

// RecordSizeHint is the chunk size the reader will grow to at minimum.
func (r *StreamReader) RecordSizeHint() int { return r.chunkReader.ChunkSizeHint() }

// SetRecordSizeHint asks the chunk reader to fit records of at least n bytes.
func (r *StreamReader) SetRecordSizeHint(n int) { r.chunkReader.SetChunkSizeHint(n) }

func (r *StreamReader) Close() error {
	if r.hasPeeked && r.peeked != nil {
		r.peeked.Payload.Release()
		r.peeked = nil
		r.hasPeeked = false
	}
	r.chunk.Release()
	r.chunk = memory.Slice{}
	return r.chunkReader.Close()
}
