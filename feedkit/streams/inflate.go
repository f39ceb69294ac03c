package streams

import (
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Compression identifies how a data store's bytes are deflated on the wire.
type Compression int

const (
	// CompressionInfer derives the codec from the pathname extension. It
	// is the zero value so stores infer by default.
	CompressionInfer Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBzip2
	CompressionZip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionInfer:
		return "infer"
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionZip:
		return "zip"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// InferCompression maps a pathname to a compression codec by extension.
func InferCompression(pathname string) Compression {
	switch {
	case strings.HasSuffix(pathname, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(pathname, ".bz2"):
		return CompressionBzip2
	case strings.HasSuffix(pathname, ".zip"):
		return CompressionZip
	case strings.HasSuffix(pathname, ".zst"):
		return CompressionZstd
	}
	return CompressionNone
}

// inflateStream adapts a decompressor over an inner stream. Inflated size and
// seekability are unknown.
type inflateStream struct {
	inner  Stream
	dec    io.Reader
	closer func() error
	pos    int64
	closed bool
}

// NewInflateStream wraps stream with the given codec's decompressor. The
// returned stream owns the inner stream and closes it on Close.
func NewInflateStream(stream Stream, compression Compression) (Stream, error) {
	switch compression {
	case CompressionNone:
		return stream, nil
	case CompressionGzip:
		gz, err := pgzip.NewReader(stream)
		if err != nil {
			return nil, &InflateError{Err: err}
		}
		return &inflateStream{inner: stream, dec: gz, closer: gz.Close}, nil
	case CompressionBzip2:
		return &inflateStream{inner: stream, dec: bzip2.NewReader(stream)}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(stream)
		if err != nil {
			return nil, &InflateError{Err: err}
		}
		return &inflateStream{inner: stream, dec: zr, closer: func() error {
			zr.Close()
			return nil
		}}, nil
	case CompressionZip:
		return newZipStream(stream)
	}
	return nil, fmt.Errorf("%w: compression %v", ErrNotSupported, compression)
}

func (s *inflateStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.dec.Read(p)
	s.pos += int64(n)
	if err != nil && err != io.EOF {
		return n, &InflateError{Err: err}
	}
	return n, err
}

func (s *inflateStream) Size() (int64, bool) { return 0, false }
func (s *inflateStream) Position() int64     { return s.pos }
func (s *inflateStream) Seekable() bool      { return false }
func (s *inflateStream) Closed() bool        { return s.closed }

func (s *inflateStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		_ = s.closer()
	}
	return s.inner.Close()
}

// zipStream concatenates the entries of a zip archive in order. It needs a
// seekable inner stream of known size.
type zipStream struct {
	inner   Stream
	archive *zip.Reader
	entries []*zip.File
	current io.ReadCloser
	next    int
	pos     int64
	closed  bool
}

func newZipStream(stream Stream) (Stream, error) {
	size, ok := stream.Size()
	if !ok || !stream.Seekable() {
		return nil, fmt.Errorf("%w: zip inflation needs a seekable stream of known size", ErrNotSupported)
	}
	archive, err := zip.NewReader(&streamReaderAt{stream: stream}, size)
	if err != nil {
		return nil, &InflateError{Err: err}
	}
	var entries []*zip.File
	for _, f := range archive.File {
		if !f.FileInfo().IsDir() {
			entries = append(entries, f)
		}
	}
	return &zipStream{inner: stream, archive: archive, entries: entries}, nil
}

func (s *zipStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	for {
		if s.current == nil {
			if s.next == len(s.entries) {
				return 0, io.EOF
			}
			rc, err := s.entries[s.next].Open()
			if err != nil {
				return 0, &InflateError{Err: err}
			}
			s.current = rc
			s.next++
		}
		n, err := s.current.Read(p)
		s.pos += int64(n)
		if err == io.EOF {
			_ = s.current.Close()
			s.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			return n, &InflateError{Err: err}
		}
		return n, nil
	}
}

func (s *zipStream) Size() (int64, bool) { return 0, false }
func (s *zipStream) Position() int64     { return s.pos }
func (s *zipStream) Seekable() bool      { return false }
func (s *zipStream) Closed() bool        { return s.closed }

func (s *zipStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.current != nil {
		_ = s.current.Close()
	}
	return s.inner.Close()
}

// streamReaderAt adapts a seekable stream to io.ReaderAt for archive/zip.
type streamReaderAt struct {
	stream Stream
}

func (r *streamReaderAt) ReadAt(p []byte, off int64) (int, error) {
	seeker, ok := r.stream.(Seeker)
	if !ok {
		return 0, ErrNotSupported
	}
	if err := seeker.SeekTo(off); err != nil {
		return 0, err
	}
	var n int
	for n < len(p) {
		m, err := r.stream.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
