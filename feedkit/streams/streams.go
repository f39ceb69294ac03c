// Package streams defines the input-stream contract the reader pipeline
// consumes bytes through, plus file, in-memory, inflate, and UTF-8
// implementations.
package streams

import (
	"errors"
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
)

// Stream is a readable byte source. Read follows io.Reader semantics: it may
// return fewer bytes than requested without signalling end-of-stream, and
// returns io.EOF once exhausted.
type Stream interface {
	Read(p []byte) (int, error)
	// Size returns the total stream length when known.
	Size() (int64, bool)
	Position() int64
	Close() error
	Closed() bool
	Seekable() bool
}

// Seeker is implemented by streams that support repositioning.
type Seeker interface {
	SeekTo(pos int64) error
}

// ZeroCopy is implemented by streams whose whole remaining content can be
// handed out as a memory slice without copying.
type ZeroCopy interface {
	// Slice returns the remaining content and advances the stream to its
	// end. The caller owns the returned reference.
	Slice() (memory.Slice, error)
}

// SupportsZeroCopy reports whether s can serve its content without copying.
func SupportsZeroCopy(s Stream) bool {
	_, ok := s.(ZeroCopy)
	return ok
}

var (
	// ErrClosed is returned by operations on a closed stream.
	ErrClosed = errors.New("streams: the stream is closed")

	// ErrNotSupported is returned when a stream cannot satisfy a requested
	// operation, such as zip inflation over a pipe.
	ErrNotSupported = errors.New("streams: operation not supported")
)

// InflateError wraps a decompression failure.
type InflateError struct {
	Err error
}

func (e *InflateError) Error() string {
	return fmt.Sprintf("streams: inflate failed: %v", e.Err)
}

func (e *InflateError) Unwrap() error { return e.Err }
