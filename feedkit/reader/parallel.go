package reader

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// Format supplies the data-format-specific pieces of a reader: record
// framing, schema inference, and batch decoding. Decode runs on multiple
// goroutines at once and must not mutate shared state after InferSchema.
type Format interface {
	MakeRecordReader(s store.Store) (records.Reader, error)
	// InferSchema sees the first instance of the dataset, or nil when the
	// dataset is empty.
	InferSchema(instance *Instance) (*tensor.Schema, error)
	// Decode converts a batch into an example. Returning (nil, nil) drops
	// the batch, e.g. after the skip bad-example policy consumed it; an
	// error faults the reader.
	Decode(batch *InstanceBatch) (*tensor.Example, error)
}

type runState int

const (
	stateNotStarted runState = iota
	stateRunning
	stateStopped
	stateFaulted
)

type decodeResult struct {
	idx     uint64
	example *tensor.Example
	err     error
}

// Reader is the public data reader: a single background pipeline that reads
// batches sequentially, decodes them in parallel, and re-serializes the
// decoded examples by batch index with bounded prefetch.
//
// ReadExample, PeekExample, and Reset must be called from one goroutine at a
// time; NumBytesRead is safe from any goroutine.
type Reader struct {
	params  Params
	format  Format
	chain   InstanceReader
	batches *batchReader

	prefetch int
	parallel int

	schema *tensor.Schema

	peeked    *tensor.Example
	hasPeeked bool
	readQueue []*tensor.Example

	mu        sync.Mutex
	readCond  *sync.Cond
	fillCond  *sync.Cond
	fillQueue []*tensor.Example
	state     runState
	err       error

	cancel context.CancelFunc
	wg     sync.WaitGroup

	bytesRead atomic.Uint64
}

// NewReader builds a reader over the given format. Construction validates
// the configuration; reading starts lazily on the first ReadExample.
func NewReader(params Params, format Format) (*Reader, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	prefetch := params.NumPrefetchedExamples
	if prefetch == 0 {
		prefetch = runtime.NumCPU()
	}
	parallel := params.NumParallelReads
	if parallel == 0 || parallel > prefetch {
		parallel = prefetch
	}

	r := &Reader{
		params:   params,
		format:   format,
		prefetch: prefetch,
		parallel: parallel,
	}
	r.readCond = sync.NewCond(&r.mu)
	r.fillCond = sync.NewCond(&r.mu)

	chain, err := makeInstanceReader(&r.params, format.MakeRecordReader)
	if err != nil {
		return nil, err
	}
	r.chain = chain
	r.batches = newBatchReader(&r.params, chain)
	return r, nil
}

// ReadSchema infers the schema on first use and returns the cached value
// afterwards. The schema never changes across resets.
func (r *Reader) ReadSchema() (*tensor.Schema, error) {
	if err := r.ensureSchemaInferred(); err != nil {
		return nil, err
	}
	return r.schema, nil
}

// ReadExample returns the next example, or (nil, nil) at the end of the
// epoch.
func (r *Reader) ReadExample() (*tensor.Example, error) {
	if r.hasPeeked {
		ex := r.peeked
		r.peeked = nil
		r.hasPeeked = false
		return ex, nil
	}
	return r.readExampleCore()
}

// PeekExample returns the next example without consuming it.
func (r *Reader) PeekExample() (*tensor.Example, error) {
	if !r.hasPeeked {
		ex, err := r.readExampleCore()
		if err != nil {
			return nil, err
		}
		r.peeked = ex
		r.hasPeeked = true
	}
	return r.peeked, nil
}

func (r *Reader) readExampleCore() (*tensor.Example, error) {
	if err := r.ensureSchemaInferred(); err != nil {
		return nil, err
	}

	// The pipeline fills one queue while the caller drains the other;
	// when the read queue empties the two are swapped under the lock.
	if len(r.readQueue) == 0 {
		r.mu.Lock()
		if r.state == stateFaulted {
			err := r.err
			r.mu.Unlock()
			return nil, err
		}
		if r.state == stateNotStarted {
			r.startPipelineLocked()
		}
		for r.state == stateRunning && len(r.fillQueue) == 0 {
			r.readCond.Wait()
		}
		if r.state == stateFaulted {
			err := r.err
			r.mu.Unlock()
			return nil, err
		}
		r.readQueue, r.fillQueue = r.fillQueue, r.readQueue
		r.mu.Unlock()
		r.fillCond.Broadcast()
	}

	if len(r.readQueue) == 0 {
		return nil, nil
	}
	ex := r.readQueue[0]
	r.readQueue = r.readQueue[1:]
	return ex, nil
}

func (r *Reader) ensureSchemaInferred() error {
	if r.schema != nil {
		return nil
	}
	// Inference peeks through the chain before the pipeline starts, so
	// this is the only goroutine touching it.
	ins, err := r.chain.PeekInstance()
	if err != nil {
		return err
	}
	schema, err := r.format.InferSchema(ins)
	if err != nil {
		return err
	}
	r.schema = schema
	return nil
}

// startPipelineLocked builds and launches the decode graph. Caller holds mu.
func (r *Reader) startPipelineLocked() {
	r.state = stateRunning

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	// The limiter bounds in-flight batches; a token is taken by the
	// source per batch and returned by the sequencer once the decoded
	// example left the graph.
	tokens := make(chan struct{}, r.parallel)
	batchCh := make(chan *InstanceBatch)
	resultCh := make(chan decodeResult)

	var producers sync.WaitGroup

	// Source: the only goroutine touching the instance-reader chain.
	producers.Add(1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer producers.Done()
		defer close(batchCh)

		var nextIdx uint64
		for {
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				return
			}

			batch, err := r.batches.ReadBatch()
			if err != nil {
				select {
				case resultCh <- decodeResult{idx: nextIdx, err: err}:
				case <-ctx.Done():
				}
				return
			}
			if batch == nil {
				return
			}
			nextIdx = batch.Index + 1

			select {
			case batchCh <- batch:
			case <-ctx.Done():
				batch.release()
				return
			}
		}
	}()

	// Decode workers; they may finish out of order.
	for i := 0; i < r.parallel; i++ {
		producers.Add(1)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer producers.Done()

			for batch := range batchCh {
				example, err := r.format.Decode(batch)
				if err == nil && example != nil {
					r.bytesRead.Add(batch.SizeBytes)
				}
				batch.release()

				select {
				case resultCh <- decodeResult{idx: batch.Index, example: example, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		producers.Wait()
		close(resultCh)
	}()

	// Sequencer: re-serializes results by batch index and feeds the
	// bounded fill queue, producing backpressure through the limiter.
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		pending := make(map[uint64]decodeResult)
		next := uint64(0)

		for res := range resultCh {
			pending[res.idx] = res
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				if ready.err != nil {
					r.fault(ready.err)
					return
				}
				if ready.example != nil {
					if !r.enqueue(ctx, ready.example) {
						return
					}
				}

				select {
				case <-tokens:
				default:
				}
			}
		}
		r.finish()
	}()
}

// enqueue blocks while the fill queue is at capacity. Returns false when the
// pipeline was cancelled.
func (r *Reader) enqueue(ctx context.Context, example *tensor.Example) bool {
	r.mu.Lock()
	for len(r.fillQueue) >= r.prefetch && ctx.Err() == nil {
		r.fillCond.Wait()
	}
	if ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	r.fillQueue = append(r.fillQueue, example)
	r.mu.Unlock()
	r.readCond.Signal()
	return true
}

func (r *Reader) fault(err error) {
	r.mu.Lock()
	r.state = stateFaulted
	r.err = fmt.Errorf("%w: %w", ErrFaulted, err)
	r.mu.Unlock()
	r.cancel()
	r.readCond.Broadcast()
	r.fillCond.Broadcast()
}

func (r *Reader) finish() {
	r.mu.Lock()
	if r.state == stateRunning {
		r.state = stateStopped
	}
	r.mu.Unlock()
	r.readCond.Broadcast()
}

// stop cancels in-flight work, clears both queues, and joins the pipeline.
func (r *Reader) stop() {
	r.mu.Lock()
	if r.state == stateNotStarted {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.cancel()
	r.readCond.Broadcast()
	r.fillCond.Broadcast()
	r.wg.Wait()

	r.mu.Lock()
	r.fillQueue = nil
	r.mu.Unlock()
	r.readQueue = nil
}

// Reset cancels all in-flight work, rewinds the whole pipeline, clears the
// byte counter and any latched error, and returns once the pipeline is idle.
// The cached schema is kept.
func (r *Reader) Reset() error {
	r.stop()

	r.mu.Lock()
	r.state = stateNotStarted
	r.err = nil
	r.mu.Unlock()

	r.peeked = nil
	r.hasPeeked = false
	r.bytesRead.Store(0)

	return r.batches.Reset()
}

// Close releases the pipeline. The reader must not be used afterwards.
func (r *Reader) Close() error {
	r.stop()
	return nil
}

// NumBytesRead returns the decoded payload bytes consumed so far. It can run
// ahead of what ReadExample returned because the pipeline prefetches.
func (r *Reader) NumBytesRead() uint64 { return r.bytesRead.Load() }
