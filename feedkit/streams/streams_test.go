package streams

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
)

func readAll(t *testing.T, s Stream) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 7)
	for {
		n, err := s.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func TestFileStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("file stream content"), 0o644))

	s, err := OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	size, known := s.Size()
	assert.True(t, known)
	assert.Equal(t, int64(19), size)
	assert.True(t, s.Seekable())

	assert.Equal(t, "file stream content", string(readAll(t, s)))

	require.NoError(t, s.SeekTo(5))
	assert.Equal(t, "stream content", string(readAll(t, s)))
}

func TestMemoryStreamZeroCopy(t *testing.T) {
	s := NewMemoryStream(memory.SliceOf([]byte("zero copy bytes")))

	assert.True(t, SupportsZeroCopy(s))

	slice, err := s.Slice()
	require.NoError(t, err)
	assert.Equal(t, "zero copy bytes", string(slice.Bytes()))

	// The stream is positioned at its end afterwards.
	n, err := s.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestMemoryStreamClosed(t *testing.T) {
	s := NewMemoryStream(memory.SliceOf([]byte("abc")))
	require.NoError(t, s.Close())

	_, err := s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInflateGzip(t *testing.T) {
	var deflated bytes.Buffer
	w := pgzip.NewWriter(&deflated)
	_, err := w.Write([]byte("inflate me please"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	inner := NewMemoryStream(memory.SliceOf(deflated.Bytes()))
	s, err := NewInflateStream(inner, CompressionGzip)
	require.NoError(t, err)

	assert.Equal(t, "inflate me please", string(readAll(t, s)))
	require.NoError(t, s.Close())
}

func TestInflateNonePassesThrough(t *testing.T) {
	inner := NewMemoryStream(memory.SliceOf([]byte("plain")))
	s, err := NewInflateStream(inner, CompressionNone)
	require.NoError(t, err)
	assert.Same(t, Stream(inner), s)
}

func TestInflateGarbage(t *testing.T) {
	inner := NewMemoryStream(memory.SliceOf([]byte("definitely not gzip")))
	_, err := NewInflateStream(inner, CompressionGzip)
	var inflateErr *InflateError
	assert.ErrorAs(t, err, &inflateErr)
}

func TestInferCompression(t *testing.T) {
	assert.Equal(t, CompressionGzip, InferCompression("data.csv.gz"))
	assert.Equal(t, CompressionBzip2, InferCompression("data.csv.bz2"))
	assert.Equal(t, CompressionZip, InferCompression("data.zip"))
	assert.Equal(t, CompressionZstd, InferCompression("data.zst"))
	assert.Equal(t, CompressionNone, InferCompression("data.csv"))
}

func TestUTF8StreamPassesThroughUTF8(t *testing.T) {
	inner := NewMemoryStream(memory.SliceOf([]byte("plain utf-8 text")))
	s, err := NewUTF8Stream(inner)
	require.NoError(t, err)
	assert.Equal(t, "plain utf-8 text", string(readAll(t, s)))
}

func TestUTF8StreamKeepsUTF8BOM(t *testing.T) {
	inner := NewMemoryStream(memory.SliceOf([]byte("\xEF\xBB\xBFwith bom")))
	s, err := NewUTF8Stream(inner)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFwith bom", string(readAll(t, s)))
}

func TestUTF8StreamDecodesUTF16LE(t *testing.T) {
	raw := []byte{0xFF, 0xFE} // BOM
	for _, r := range "héllo" {
		raw = append(raw, byte(r), byte(r>>8))
	}

	inner := NewMemoryStream(memory.SliceOf(raw))
	s, err := NewUTF8Stream(inner)
	require.NoError(t, err)
	assert.Equal(t, "héllo", string(readAll(t, s)))
}

func TestUTF8StreamDecodesUTF16BE(t *testing.T) {
	raw := []byte{0xFE, 0xFF}
	for _, r := range "héllo" {
		raw = append(raw, byte(r>>8), byte(r))
	}

	inner := NewMemoryStream(memory.SliceOf(raw))
	s, err := NewUTF8Stream(inner)
	require.NoError(t, err)
	assert.Equal(t, "héllo", string(readAll(t, s)))
}

func TestUTF8StreamShortInput(t *testing.T) {
	inner := NewMemoryStream(memory.SliceOf([]byte("ab")))
	s, err := NewUTF8Stream(inner)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(readAll(t, s)))
}
