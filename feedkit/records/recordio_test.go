package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIORoundTrip(t *testing.T) {
	var data []byte
	data = AppendRecordIO(data, []byte("first"), KindComplete)
	data = AppendRecordIO(data, []byte("second record"), KindComplete)
	data = AppendRecordIO(data, nil, KindComplete)

	r := NewRecordIOReader(memStream(string(data)))
	assert.Equal(t, []string{"first", "second record", ""}, drainRecords(t, r))
	require.NoError(t, r.Close())
}

func TestRecordIOKinds(t *testing.T) {
	var data []byte
	data = AppendRecordIO(data, []byte("b"), KindBegin)
	data = AppendRecordIO(data, []byte("m"), KindMiddle)
	data = AppendRecordIO(data, []byte("e"), KindEnd)

	r := NewRecordIOReader(memStream(string(data)))
	var kinds []Kind
	for {
		rec, err := r.ReadRecord()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		kinds = append(kinds, rec.Kind)
		rec.Payload.Release()
	}
	assert.Equal(t, []Kind{KindBegin, KindMiddle, KindEnd}, kinds)
}

func TestRecordIOCorruptMagic(t *testing.T) {
	r := NewRecordIOReader(memStream("\x00\x00\x00\x00\x00\x00\x00\x00"))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrCorruptHeader)
}

func TestRecordIOTruncatedPayload(t *testing.T) {
	var data []byte
	data = AppendRecordIO(data, []byte("full payload body"), KindComplete)
	data = data[:len(data)-6]

	r := NewRecordIOReader(memStream(string(data)))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrCorruptHeader)
}

func TestRecordIOAcrossChunks(t *testing.T) {
	// Records larger than the initial chunk make the decoder hint the
	// chunk reader to grow.
	var data []byte
	data = AppendRecordIO(data, make([]byte, 64), KindComplete)
	data = AppendRecordIO(data, []byte("tail"), KindComplete)

	r := &RecordIOReader{}
	r.initSize(newPlainStream(string(data)), r.decodeRecord, 16)

	rec, err := r.ReadRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 64, rec.Payload.Len())
	rec.Payload.Release()

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "tail", string(rec.Payload.Bytes()))
	rec.Payload.Release()

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordIOPayloadAlignment(t *testing.T) {
	var data []byte
	data = AppendRecordIO(data, []byte("abc"), KindComplete)
	// 3-byte payload pads to 4; total record = 8 + 4.
	assert.Equal(t, 12, len(data))
}
