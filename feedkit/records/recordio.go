package records

import (
	"encoding/binary"
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// The MXNet RecordIO framing. There is no formal specification of the byte
// order; it is assumed to be little-endian everywhere.
const (
	recordIOMagic      uint32 = 0xced7230a
	recordIOHeaderSize        = 8
	recordIOAlignment         = 4
	recordIOSizeMask   uint32 = 1<<29 - 1
)

// RecordIOReader frames a stream into length-prefixed RecordIO records,
// including the begin/middle/end kinds of split instances.
type RecordIOReader struct {
	StreamReader
}

func NewRecordIOReader(stream streams.Stream) *RecordIOReader {
	r := &RecordIOReader{}
	r.init(stream, r.decodeRecord)
	return r
}

func (r *RecordIOReader) decodeRecord(chunk *memory.Slice, ignoreLeftover bool) (*Record, error) {
	if chunk.IsEmpty() {
		return nil, nil
	}

	data := chunk.Bytes()
	if len(data) < recordIOHeaderSize {
		if ignoreLeftover {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: the record does not have a valid RecordIO header", ErrCorruptHeader)
	}

	if binary.LittleEndian.Uint32(data) != recordIOMagic {
		return nil, fmt.Errorf("%w: the header does not start with the RecordIO magic number", ErrCorruptHeader)
	}

	word := binary.LittleEndian.Uint32(data[4:])
	kind := Kind(word >> 29 & 0b111)
	payloadSize := int(word & recordIOSizeMask)

	// Payloads sit on a 4-byte boundary.
	alignedPayloadSize := (payloadSize + recordIOAlignment - 1) &^ (recordIOAlignment - 1)
	recordSize := recordIOHeaderSize + alignedPayloadSize

	if recordSize > chunk.Len() {
		if ignoreLeftover {
			r.SetRecordSizeHint(recordSize)
			return nil, nil
		}
		return nil, fmt.Errorf(
			"%w: the record payload has a size of %d byte(s), while the size specified in the RecordIO header is %d byte(s)",
			ErrCorruptHeader, chunk.Len()-recordIOHeaderSize, alignedPayloadSize)
	}

	payload := chunk.SubSlice(recordIOHeaderSize, recordIOHeaderSize+payloadSize).Retain()
	*chunk = chunk.From(recordSize)

	return &Record{Payload: payload, Kind: kind}, nil
}

// AppendRecordIO frames payload with a RecordIO header and padding and
// appends it to dst. Used by tests and dataset tooling.
func AppendRecordIO(dst []byte, payload []byte, kind Kind) []byte {
	var hdr [recordIOHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:], recordIOMagic)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(kind)<<29|uint32(len(payload))&recordIOSizeMask)
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	if pad := (recordIOAlignment - len(payload)%recordIOAlignment) % recordIOAlignment; pad > 0 {
		dst = append(dst, make([]byte, pad)...)
	}
	return dst
}
