package records

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// See https://github.com/apache/parquet-format for the Parquet file layout.
var parquetMagic = []byte("PAR1")

const parquetMagicSize = 4

// ParquetReader frames a stream of concatenated Parquet files into one record
// per file. Record boundaries are found by scanning for the trailing magic
// number backed by a plausible Thrift-compact file metadata right before it.
type ParquetReader struct {
	StreamReader
}

func NewParquetReader(stream streams.Stream) *ParquetReader {
	r := &ParquetReader{}
	r.init(stream, decodeParquetRecord)
	return r
}

func decodeParquetRecord(chunk *memory.Slice, ignoreLeftover bool) (*Record, error) {
	if chunk.IsEmpty() {
		return nil, nil
	}

	data := chunk.Bytes()
	if len(data) < parquetMagicSize {
		if ignoreLeftover {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: the record does not start with the Parquet magic number", ErrCorruptHeader)
	}
	if !bytes.Equal(data[:parquetMagicSize], parquetMagic) {
		return nil, fmt.Errorf("%w: the record does not start with the Parquet magic number", ErrCorruptHeader)
	}

	// The absolute minimum Parquet record is 12 bytes: two magic numbers
	// plus the 4-byte metadata length field.
	if len(data) < 2*parquetMagicSize+4 {
		if ignoreLeftover {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: the record does not have a valid Parquet footer", ErrCorruptFooter)
	}

	// Scan past the head magic and the metadata length field. A naive
	// search for the trailing magic alone would hit false positives in
	// the payload, so each candidate is validated against the metadata
	// heuristic.
	for pos := parquetMagicSize + 4; pos <= len(data)-parquetMagicSize; pos++ {
		if bytes.Equal(data[pos:pos+parquetMagicSize], parquetMagic) && isParquetFooter(data, pos) {
			end := pos + parquetMagicSize
			payload := chunk.First(end).Retain()
			*chunk = chunk.From(end)
			return &Record{Payload: payload, Kind: KindComplete}, nil
		}
	}

	if ignoreLeftover {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: the record does not have a valid Parquet footer", ErrCorruptFooter)
}

// isParquetFooter checks whether the magic number at pos terminates a file:
// the 4 bytes before it hold the metadata size, the metadata ends with the
// Thrift-compact stop field, and it begins with one of the known field
// headers.
func isParquetFooter(data []byte, pos int) bool {
	metadataEnd := pos - 4
	metadataSize := int(binary.LittleEndian.Uint32(data[metadataEnd:]))

	// The minimum metadata is 9 bytes: the four required fields, each
	// with a 1-byte header and 1-byte value, plus the stop field.
	if metadataSize < 9 {
		return false
	}

	// The metadata must fit in the bytes preceding the length field.
	if parquetMagicSize+metadataSize > metadataEnd {
		return false
	}

	// A Thrift-compact struct always ends with a zero stop field.
	if data[metadataEnd-1] != 0 {
		return false
	}

	return isParquetMetadataBegin(data[metadataEnd-metadataSize])
}

// isParquetMetadataBegin matches the encoded Thrift-compact headers of the
// file metadata's possible first fields.
func isParquetMetadataBegin(b byte) bool {
	switch b {
	case 0x15, // version
		0x29, // schema
		0x36, // num_rows
		0x49, // row_groups
		0x59, // key_value_metadata
		0x68, // created_by
		0x79: // column_orders
		return true
	}
	return false
}

// BlobReader returns the entire remaining stream content as one complete
// record. Used when record boundaries are known externally, e.g. one image
// per file.
type BlobReader struct {
	StreamReader
}

func NewBlobReader(stream streams.Stream) *BlobReader {
	r := &BlobReader{}
	r.init(stream, decodeBlobRecord)
	return r
}

func decodeBlobRecord(chunk *memory.Slice, ignoreLeftover bool) (*Record, error) {
	if chunk.IsEmpty() {
		return nil, nil
	}
	if ignoreLeftover {
		// More bytes may follow; wait for the full stream.
		return nil, nil
	}
	payload := chunk.First(chunk.Len()).Retain()
	*chunk = chunk.From(chunk.Len())
	return &Record{Payload: payload, Kind: KindComplete}, nil
}
