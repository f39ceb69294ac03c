package records

import (
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
)

// CSVConfig tunes CSV line framing.
type CSVConfig struct {
	// Delimiter separates fields; defaults to ','.
	Delimiter byte
	// Quote opens and closes quoted fields; defaults to '"'.
	Quote byte
	// Comment, when non-zero, makes lines starting with it skipped
	// entirely.
	Comment byte
	// AllowQuotedNewLines lets quoted fields span physical lines.
	AllowQuotedNewLines bool
	SkipBlankLines      bool
	// MaxLineLength bounds a single record; zero means unbounded.
	MaxLineLength int
}

func (c CSVConfig) withDefaults() CSVConfig {
	if c.Delimiter == 0 {
		c.Delimiter = ','
	}
	if c.Quote == 0 {
		c.Quote = '"'
	}
	return c
}

// CSVReader frames a stream into CSV records, one logical line per record.
// With AllowQuotedNewLines set, quoting is honored while scanning so a record
// may span physical lines.
type CSVReader struct {
	StreamReader
	config     CSVConfig
	firstChunk bool
}

func NewCSVReader(stream streams.Stream, config CSVConfig) *CSVReader {
	r := &CSVReader{config: config.withDefaults(), firstChunk: true}
	r.init(stream, r.decodeRecord)
	return r
}

func (r *CSVReader) decodeRecord(chunk *memory.Slice, ignoreLeftover bool) (*Record, error) {
	if r.firstChunk {
		if !stripBOM(chunk, ignoreLeftover) {
			return nil, nil
		}
		if !chunk.IsEmpty() {
			r.firstChunk = false
		}
	}

	for !chunk.IsEmpty() {
		if r.isCommentLine(*chunk) {
			rec, err := decodeLine(chunk, ignoreLeftover, 0)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, nil
			}
			rec.Payload.Release()
			continue
		}

		var rec *Record
		var err error
		if r.config.AllowQuotedNewLines {
			rec, err = r.readQuotedLine(chunk, ignoreLeftover)
		} else {
			rec, err = decodeLine(chunk, ignoreLeftover, r.config.MaxLineLength)
		}
		if err != nil || rec == nil {
			return nil, err
		}
		if !r.config.SkipBlankLines || !rec.Payload.IsEmpty() {
			return rec, nil
		}
		rec.Payload.Release()
	}
	return nil, nil
}

func (r *CSVReader) isCommentLine(chunk memory.Slice) bool {
	if r.config.Comment == 0 {
		return false
	}
	data := chunk.Bytes()
	return len(data) > 0 && data[0] == r.config.Comment
}

type csvState int

const (
	csvNewField csvState = iota
	csvInField
	csvInQuotedField
	csvQuoteInQuotedField
	csvHasCarriage
)

// readQuotedLine scans one record with the quoting automaton. A quoted field
// may contain the delimiter and literal newlines; a doubled quote inside a
// quoted field is a literal quote. Outside quotes CR, LF and CRLF end the
// record; a CR inside a quoted field is kept as is.
func (r *CSVReader) readQuotedLine(chunk *memory.Slice, ignoreLeftover bool) (*Record, error) {
	data := chunk.Bytes()
	delim, quote := r.config.Delimiter, r.config.Quote

	state := csvNewField
	i := 0
	foundLine := false

scan:
	for i < len(data) {
		c := data[i]
		i++
		switch state {
		case csvNewField:
			switch c {
			case delim:
				// Empty field; stay on a field boundary.
			case quote:
				state = csvInQuotedField
			case '\n':
				foundLine = true
				break scan
			case '\r':
				state = csvHasCarriage
			default:
				state = csvInField
			}
		case csvInField:
			switch c {
			case delim:
				state = csvNewField
			case '\n':
				foundLine = true
				break scan
			case '\r':
				state = csvHasCarriage
			}
		case csvInQuotedField:
			if c == quote {
				state = csvQuoteInQuotedField
			}
		case csvQuoteInQuotedField:
			switch c {
			case delim:
				state = csvNewField
			case quote:
				state = csvInQuotedField
			case '\n':
				foundLine = true
				break scan
			case '\r':
				state = csvHasCarriage
			default:
				state = csvInField
			}
		case csvHasCarriage:
			// A carriage not followed by a new line ends the record on
			// its own; the byte after it is left to start the next one.
			if c != '\n' {
				state = csvNewField
				i--
			}
			foundLine = true
			break scan
		}
	}

	if maxLen := r.config.MaxLineLength; maxLen > 0 && i >= maxLen {
		return nil, &RecordTooLargeError{MaxSize: maxLen}
	}

	if foundLine {
		cut := 1
		if state == csvHasCarriage {
			cut = 2
		}
		payload := chunk.First(i - cut).Retain()
		*chunk = chunk.From(i)
		return &Record{Payload: payload, Kind: KindComplete}, nil
	}

	// Ran out of chunk before a terminator.
	if ignoreLeftover {
		return nil, nil
	}

	size := chunk.Len()
	switch state {
	case csvNewField, csvInField, csvQuoteInQuotedField:
		payload := chunk.First(size).Retain()
		*chunk = chunk.From(size)
		return &Record{Payload: payload, Kind: KindComplete}, nil
	case csvHasCarriage:
		payload := chunk.First(size - 1).Retain()
		*chunk = chunk.From(size)
		return &Record{Payload: payload, Kind: KindComplete}, nil
	}
	return nil, fmt.Errorf("%w: EOF reached inside a quoted field", ErrCorruptRecord)
}

// TokenizeCSV splits one framed CSV record into fields using the same
// quoting rules as the framer. Fields are appended to dst and returned.
func TokenizeCSV(dst []string, line []byte, config CSVConfig) []string {
	config = config.withDefaults()
	delim, quote := config.Delimiter, config.Quote

	var value []byte
	state := csvNewField
	for _, c := range line {
		switch state {
		case csvNewField:
			switch c {
			case delim:
				dst = append(dst, "")
			case quote:
				state = csvInQuotedField
			default:
				value = append(value, c)
				state = csvInField
			}
		case csvInField:
			if c == delim {
				dst = append(dst, string(value))
				value = value[:0]
				state = csvNewField
			} else {
				value = append(value, c)
			}
		case csvInQuotedField:
			if c == quote {
				state = csvQuoteInQuotedField
			} else {
				value = append(value, c)
			}
		case csvQuoteInQuotedField:
			switch c {
			case delim:
				dst = append(dst, string(value))
				value = value[:0]
				state = csvNewField
			case quote:
				value = append(value, c)
				state = csvInQuotedField
			default:
				value = append(value, c)
				state = csvInField
			}
		}
	}
	dst = append(dst, string(value))
	return dst
}
