// Package records frames raw byte streams into records. A record reader owns
// a chunk reader that amortizes stream reads into large reusable buffers and
// a decoder that carves records out of the current chunk, carrying any
// undecoded leftover into the next chunk.
package records

import (
	"errors"
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
)

// Kind tells whether a record carries a whole instance or one part of a split
// instance.
type Kind uint8

const (
	KindComplete Kind = iota
	KindBegin
	KindMiddle
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindComplete:
		return "complete"
	case KindBegin:
		return "begin"
	case KindMiddle:
		return "middle"
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Record is a framed payload. The payload slice owns a reference to its
// backing block; the consumer releases it.
type Record struct {
	Payload memory.Slice
	Kind    Kind
}

// Reader reads records from an underlying stream. ReadRecord returns
// (nil, nil) once the stream is exhausted.
type Reader interface {
	ReadRecord() (*Record, error)
	PeekRecord() (*Record, error)
	Close() error
}

var (
	// ErrCorruptRecord is the base of all framing corruption errors.
	ErrCorruptRecord = errors.New("records: the record is corrupt")

	// ErrCorruptHeader marks an invalid or inconsistent record header.
	ErrCorruptHeader = fmt.Errorf("%w: invalid header", ErrCorruptRecord)

	// ErrCorruptFooter marks a missing or invalid record footer.
	ErrCorruptFooter = fmt.Errorf("%w: invalid footer", ErrCorruptRecord)

	// ErrRecordTooLarge marks a record exceeding the configured maximum.
	ErrRecordTooLarge = errors.New("records: the record exceeds the maximum size")
)

// RecordTooLargeError reports the limit that was exceeded.
type RecordTooLargeError struct {
	MaxSize int
}

func (e *RecordTooLargeError) Error() string {
	return fmt.Sprintf("records: the record exceeds the maximum size of %d byte(s)", e.MaxSize)
}

func (e *RecordTooLargeError) Unwrap() error { return ErrRecordTooLarge }
