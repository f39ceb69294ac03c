package reader

import (
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
)

// ErrCorruptSplitRecord marks a begin/middle/end sequence that deviates from
// the required order or crosses a store boundary.
var ErrCorruptSplitRecord = fmt.Errorf("%w: corrupt split record", records.ErrCorruptRecord)

// RecordReaderFactory opens a format-specific record reader over a store.
type RecordReaderFactory func(s store.Store) (records.Reader, error)

// coreReader turns records into instances, assembling split records and
// walking the dataset's stores in order.
type coreReader struct {
	readerBase
	dataset      []store.Store
	factory      RecordReaderFactory
	storeIdx     int
	recordReader records.Reader
	instanceIdx  uint64
	recordIdx    uint64
}

func newCoreReader(dataset []store.Store, factory RecordReaderFactory) *coreReader {
	r := &coreReader{dataset: dataset, factory: factory}
	r.readCore = r.read
	r.resetCore = r.reset
	return r
}

func (r *coreReader) read() (*Instance, error) {
	rec, err := r.readRecord()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var payload memory.Slice
	if rec.Kind == records.KindComplete {
		payload = rec.Payload
	} else {
		payload, err = r.readSplitPayload(rec)
		if err != nil {
			return nil, err
		}
	}

	ins := &Instance{Bits: payload, Index: r.instanceIdx, Store: r.currentStore()}
	r.instanceIdx++
	return ins, nil
}

// readSplitPayload assembles begin -> middle* -> end into one payload. The
// parts must all come from the store the begin record came from.
func (r *coreReader) readSplitPayload(first *records.Record) (memory.Slice, error) {
	if first.Kind != records.KindBegin {
		first.Payload.Release()
		return memory.Slice{}, r.splitError(first.Kind)
	}

	parts := []memory.Slice{first.Payload}
	release := func() {
		for _, p := range parts {
			p.Release()
		}
	}

	for {
		// Split records never span stores, so read from the current
		// record reader only.
		rec, err := r.recordReader.ReadRecord()
		if err != nil {
			release()
			return memory.Slice{}, r.wrapStoreError(err)
		}
		if rec == nil {
			release()
			return memory.Slice{}, fmt.Errorf(
				"%w: %s ends with a partial split record", ErrCorruptSplitRecord, r.currentStore())
		}
		switch rec.Kind {
		case records.KindMiddle:
			parts = append(parts, rec.Payload)
		case records.KindEnd:
			parts = append(parts, rec.Payload)
			payload, err := memory.Concat(memory.DefaultAllocator(), parts...)
			release()
			if err != nil {
				return memory.Slice{}, err
			}
			return payload, nil
		default:
			rec.Payload.Release()
			release()
			return memory.Slice{}, r.splitError(rec.Kind)
		}
	}
}

func (r *coreReader) splitError(kind records.Kind) error {
	return fmt.Errorf("%w: %s contains an unexpected '%v' record in a split sequence",
		ErrCorruptSplitRecord, r.currentStore(), kind)
}

func (r *coreReader) readRecord() (*records.Record, error) {
	for {
		if r.recordReader == nil {
			if r.storeIdx == len(r.dataset) {
				return nil, nil
			}
			reader, err := r.factory(r.dataset[r.storeIdx])
			if err != nil {
				return nil, fmt.Errorf("reader: %s cannot be opened: %w", r.dataset[r.storeIdx], err)
			}
			r.recordReader = reader
			r.recordIdx = 0
		}

		rec, err := r.recordReader.ReadRecord()
		if err != nil {
			return nil, r.wrapStoreError(err)
		}
		if rec != nil {
			r.recordIdx++
			return rec, nil
		}

		// The store is exhausted; move on.
		if err = r.recordReader.Close(); err != nil {
			return nil, err
		}
		r.recordReader = nil
		r.storeIdx++
	}
}

func (r *coreReader) wrapStoreError(err error) error {
	return fmt.Errorf("reader: %s, record %d: %w", r.currentStore(), r.recordIdx, err)
}

func (r *coreReader) currentStore() store.Store {
	if r.storeIdx < len(r.dataset) {
		return r.dataset[r.storeIdx]
	}
	return nil
}

func (r *coreReader) reset() error {
	if r.recordReader != nil {
		if err := r.recordReader.Close(); err != nil {
			return err
		}
		r.recordReader = nil
	}
	r.storeIdx = 0
	r.instanceIdx = 0
	r.recordIdx = 0
	return nil
}

// makeInstanceReader composes the configured stages bottom-up; a stage is
// layered only when its parameters are non-default. Reading order, outer to
// inner: shuffle, sample, shard, range, core.
func makeInstanceReader(params *Params, factory RecordReaderFactory) (InstanceReader, error) {
	var r InstanceReader = newCoreReader(params.Dataset, factory)

	if params.NumInstancesToSkip > 0 || params.NumInstancesToRead != nil {
		r = newRangeReader(params, r)
	}
	if params.NumShards > 1 {
		r = newShardReader(params, r)
	}
	if params.SampleRatio != nil {
		r = newSampleReader(params, r)
	}
	if params.ShuffleInstances {
		var err error
		r, err = newShuffleReader(params, r)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}
