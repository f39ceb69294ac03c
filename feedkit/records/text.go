package records

import (
	"bytes"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM removes a UTF-8 byte-order mark at the very beginning of the first
// chunk. It reports false when more bytes are needed to decide.
func stripBOM(chunk *memory.Slice, ignoreLeftover bool) bool {
	data := chunk.Bytes()
	if len(data) < len(utf8BOM) {
		if bytes.HasPrefix(utf8BOM, data) && ignoreLeftover {
			return false
		}
		return true
	}
	if bytes.HasPrefix(data, utf8BOM) {
		*chunk = chunk.From(len(utf8BOM))
	}
	return true
}

// decodeLine frames one text line. CR, LF, and CRLF all terminate a line; a
// lone CR terminates only once the following byte is known not to be LF.
// Assumes a non-empty chunk.
func decodeLine(chunk *memory.Slice, ignoreLeftover bool, maxLineLength int) (*Record, error) {
	data := chunk.Bytes()

	contentEnd := -1
	consumed := -1
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\n' {
			contentEnd, consumed = i, i+1
			break
		}
		if c != '\r' {
			continue
		}
		if i+1 == len(data) && ignoreLeftover {
			// CR at the chunk edge: the terminator shape is unknown
			// until the next byte arrives.
			return nil, nil
		}
		if i+1 < len(data) && data[i+1] == '\n' {
			contentEnd, consumed = i, i+2
		} else {
			contentEnd, consumed = i, i+1
		}
		break
	}

	scanned := consumed
	if scanned < 0 {
		scanned = len(data)
	}
	if maxLineLength > 0 && scanned >= maxLineLength {
		return nil, &RecordTooLargeError{MaxSize: maxLineLength}
	}

	if consumed < 0 {
		// No terminator in the chunk.
		if ignoreLeftover {
			return nil, nil
		}
		payload := chunk.First(len(data)).Retain()
		*chunk = chunk.From(len(data))
		return &Record{Payload: payload, Kind: KindComplete}, nil
	}

	payload := chunk.First(contentEnd).Retain()
	*chunk = chunk.From(consumed)
	return &Record{Payload: payload, Kind: KindComplete}, nil
}

// TextLineReader frames a stream into text-line records.
type TextLineReader struct {
	StreamReader
	maxLineLength  int
	skipBlankLines bool
	firstChunk     bool
}

// TextLineConfig tunes text-line framing. A zero MaxLineLength means
// unbounded.
type TextLineConfig struct {
	MaxLineLength  int
	SkipBlankLines bool
}

func NewTextLineReader(stream streams.Stream, config TextLineConfig) *TextLineReader {
	r := &TextLineReader{
		maxLineLength:  config.MaxLineLength,
		skipBlankLines: config.SkipBlankLines,
		firstChunk:     true,
	}
	r.init(stream, r.decodeRecord)
	return r
}

func (r *TextLineReader) decodeRecord(chunk *memory.Slice, ignoreLeftover bool) (*Record, error) {
	if r.firstChunk {
		if !stripBOM(chunk, ignoreLeftover) {
			return nil, nil
		}
		if !chunk.IsEmpty() {
			r.firstChunk = false
		}
	}
	for !chunk.IsEmpty() {
		rec, err := decodeLine(chunk, ignoreLeftover, r.maxLineLength)
		if err != nil || rec == nil {
			return nil, err
		}
		if !r.skipBlankLines || !rec.Payload.IsEmpty() {
			return rec, nil
		}
		rec.Payload.Release()
	}
	return nil, nil
}
