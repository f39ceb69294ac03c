package streams

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewUTF8Stream wraps stream so downstream readers always observe UTF-8. The
// encoding is inferred from the stream's byte-order mark; without a mark the
// content is assumed to be UTF-8 already and passes through untouched. A
// UTF-8 byte-order mark is preserved; record readers strip it where the
// format requires.
func NewUTF8Stream(stream Stream) (Stream, error) {
	preamble := make([]byte, 0, 3)
	buf := make([]byte, 3)
	for len(preamble) < 3 {
		n, err := stream.Read(buf[:3-len(preamble)])
		preamble = append(preamble, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case len(preamble) >= 2 && preamble[0] == 0xFF && preamble[1] == 0xFE:
		return newTranscodeStream(stream, preamble[2:], unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)), nil
	case len(preamble) >= 2 && preamble[0] == 0xFE && preamble[1] == 0xFF:
		return newTranscodeStream(stream, preamble[2:], unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)), nil
	}
	return &prefixStream{prefix: preamble, inner: stream}, nil
}

// NewTranscodeStream converts stream from the given source encoding to UTF-8.
func NewTranscodeStream(stream Stream, enc encoding.Encoding) Stream {
	return newTranscodeStream(stream, nil, enc)
}

// prefixStream replays already-consumed preamble bytes before the inner
// stream's remaining content.
type prefixStream struct {
	prefix []byte
	off    int
	inner  Stream
	pos    int64
}

func (s *prefixStream) Read(p []byte) (int, error) {
	if s.off < len(s.prefix) {
		n := copy(p, s.prefix[s.off:])
		s.off += n
		s.pos += int64(n)
		return n, nil
	}
	n, err := s.inner.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *prefixStream) Size() (int64, bool) { return s.inner.Size() }
func (s *prefixStream) Position() int64     { return s.pos }
func (s *prefixStream) Seekable() bool      { return false }
func (s *prefixStream) Closed() bool        { return s.inner.Closed() }
func (s *prefixStream) Close() error        { return s.inner.Close() }

type transcodeStream struct {
	reader io.Reader
	inner  Stream
	pos    int64
	closed bool
}

func newTranscodeStream(stream Stream, rest []byte, enc encoding.Encoding) Stream {
	src := io.MultiReader(bytes.NewReader(rest), stream)
	return &transcodeStream{
		reader: transform.NewReader(src, enc.NewDecoder()),
		inner:  stream,
	}
}

func (s *transcodeStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.reader.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *transcodeStream) Size() (int64, bool) { return 0, false }
func (s *transcodeStream) Position() int64     { return s.pos }
func (s *transcodeStream) Seekable() bool      { return false }
func (s *transcodeStream) Closed() bool        { return s.closed }

func (s *transcodeStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.inner.Close()
}
