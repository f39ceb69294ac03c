package streams

import (
	"fmt"
	"io"
	"os"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
)

// FileStream reads a regular file sequentially with optional seeking.
type FileStream struct {
	file   *os.File
	size   int64
	pos    int64
	closed bool
}

// OpenFile opens path for reading.
func OpenFile(path string) (*FileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("streams: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("streams: stat %s: %w", path, err)
	}
	return &FileStream{file: f, size: info.Size()}, nil
}

func (s *FileStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.file.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *FileStream) SeekTo(pos int64) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.file.Seek(pos, 0); err != nil {
		return fmt.Errorf("streams: seek %s: %w", s.file.Name(), err)
	}
	s.pos = pos
	return nil
}

func (s *FileStream) Size() (int64, bool) { return s.size, true }
func (s *FileStream) Position() int64     { return s.pos }
func (s *FileStream) Seekable() bool      { return true }
func (s *FileStream) Closed() bool        { return s.closed }

func (s *FileStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// MemoryStream reads from a memory slice and serves zero-copy reads. The
// stream owns one reference to the slice and releases it on Close.
type MemoryStream struct {
	data   memory.Slice
	pos    int
	closed bool
}

// NewMemoryStream adopts the given slice reference.
func NewMemoryStream(data memory.Slice) *MemoryStream {
	return &MemoryStream{data: data}
}

func (s *MemoryStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.pos == s.data.Len() {
		return 0, io.EOF
	}
	n := copy(p, s.data.Bytes()[s.pos:])
	s.pos += n
	return n, nil
}

// Slice hands out the remaining content without copying.
func (s *MemoryStream) Slice() (memory.Slice, error) {
	if s.closed {
		return memory.Slice{}, ErrClosed
	}
	rest := s.data.From(s.pos).Retain()
	s.pos = s.data.Len()
	return rest, nil
}

func (s *MemoryStream) SeekTo(pos int64) error {
	if s.closed {
		return ErrClosed
	}
	if pos < 0 || pos > int64(s.data.Len()) {
		return fmt.Errorf("streams: seek position %d out of range", pos)
	}
	s.pos = int(pos)
	return nil
}

func (s *MemoryStream) Size() (int64, bool) { return int64(s.data.Len()), true }
func (s *MemoryStream) Position() int64     { return int64(s.pos) }
func (s *MemoryStream) Seekable() bool      { return true }
func (s *MemoryStream) Closed() bool        { return s.closed }

func (s *MemoryStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.data.Release()
	s.data = memory.Slice{}
	return nil
}
