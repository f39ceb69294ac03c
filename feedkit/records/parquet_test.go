package records

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildParquetRecord assembles a minimal plausible Parquet file: head magic,
// payload, Thrift-compact-looking metadata, metadata length, tail magic.
func buildParquetRecord(payload []byte) []byte {
	metadata := []byte{0x15, 1, 2, 3, 4, 5, 6, 7, 0x00}

	var data []byte
	data = append(data, parquetMagic...)
	data = append(data, payload...)
	data = append(data, metadata...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(metadata)))
	data = append(data, parquetMagic...)
	return data
}

func TestParquetSingleRecord(t *testing.T) {
	file := buildParquetRecord([]byte("column data"))

	r := NewParquetReader(memStream(string(file)))
	records := drainRecords(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, string(file), records[0])
}

func TestParquetConcatenatedRecords(t *testing.T) {
	first := buildParquetRecord([]byte("first file"))
	second := buildParquetRecord([]byte("second file"))

	r := NewParquetReader(memStream(string(first) + string(second)))
	records := drainRecords(t, r)
	require.Len(t, records, 2)
	assert.Equal(t, string(first), records[0])
	assert.Equal(t, string(second), records[1])
}

func TestParquetFalsePositiveMagicInPayload(t *testing.T) {
	// The payload embeds "PAR1" without a valid footer before it; the
	// scanner must skip past it.
	file := buildParquetRecord([]byte("xxxxPAR1xxxx"))

	r := NewParquetReader(memStream(string(file)))
	records := drainRecords(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, string(file), records[0])
}

func TestParquetCorruptHeader(t *testing.T) {
	r := NewParquetReader(memStream("NOPE....rest of data"))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrCorruptHeader)
}

func TestParquetCorruptFooter(t *testing.T) {
	r := NewParquetReader(memStream("PAR1 payload without a footer"))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrCorruptFooter)
}

func TestBlobReaderSingleRecord(t *testing.T) {
	r := NewBlobReader(memStream("entire blob content"))
	records := drainRecords(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, "entire blob content", records[0])
}

func TestBlobReaderStreamed(t *testing.T) {
	// With a buffered stream the blob reader must still return one
	// record holding everything.
	r := &BlobReader{}
	r.initSize(newPlainStream("blob spanning several chunks"), decodeBlobRecord, 4)

	records := drainRecords(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, "blob spanning several chunks", records[0])
}
