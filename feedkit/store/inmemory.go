package store

import (
	"fmt"
	"sync/atomic"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

var inMemoryID atomic.Uint64

// InMemory is a data store over a memory slice.
type InMemory struct {
	data        memory.Slice
	id          string
	compression streams.Compression
}

// NewInMemory adopts the given slice reference. Compression defaults to none;
// there is no pathname to infer from.
func NewInMemory(data memory.Slice, compression streams.Compression) *InMemory {
	if compression == streams.CompressionInfer {
		compression = streams.CompressionNone
	}
	return &InMemory{
		data:        data,
		id:          fmt.Sprintf("mem://%d/%d", inMemoryID.Add(1), data.Len()),
		compression: compression,
	}
}

func (s *InMemory) OpenRead() (streams.Stream, error) {
	stream := streams.NewMemoryStream(s.data.Retain())
	return streams.NewInflateStream(stream, s.compression)
}

func (s *InMemory) ID() string     { return s.id }
func (s *InMemory) String() string { return quoteID("in-memory", s.id) }
