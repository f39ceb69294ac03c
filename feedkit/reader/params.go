// Package reader assembles the full pipeline: an instance-reader chain over
// framed records, a batcher, and a parallel decode graph that emits schema-
// conforming examples in strict batch order.
package reader

import (
	"errors"
	"fmt"

	"github.com/Doomsbay/FeedKit/feedkit/store"
)

// LastExampleHandling selects what happens when the dataset size is not
// evenly divisible by the batch size.
type LastExampleHandling int

const (
	// LastExampleNone emits a final short example.
	LastExampleNone LastExampleHandling = iota
	LastExampleDrop
	LastExampleDropWarn
	// LastExamplePad zero-pads the final example up to the batch size and
	// records the padding amount on the example.
	LastExamplePad
	LastExamplePadWarn
)

// BadExampleHandling selects what happens when a batch fails to decode.
type BadExampleHandling int

const (
	// BadExampleError latches the failure and surfaces it on the next
	// read, after which the reader is faulted.
	BadExampleError BadExampleHandling = iota
	BadExampleSkip
	BadExampleSkipWarn
	// BadExamplePad drops the bad instances and zero-pads the example up
	// to the batch size.
	BadExamplePad
	BadExamplePadWarn
)

var (
	// ErrInvalidArgument marks configuration or API misuse detected at
	// construction.
	ErrInvalidArgument = errors.New("reader: invalid argument")

	// ErrNotSupported marks a recognized but unimplemented configuration.
	ErrNotSupported = errors.New("reader: not supported")

	// ErrInvalidInstance marks an instance failing format validation.
	ErrInvalidInstance = errors.New("reader: invalid instance")

	// ErrFaulted is wrapped by errors surfaced after the pipeline entered
	// its terminal faulted state.
	ErrFaulted = errors.New("reader: the reader is in a faulted state")
)

// Params are common to all data readers.
type Params struct {
	// Dataset is the ordered list of data stores to read.
	Dataset []store.Store
	// BatchSize is the number of instances packed into one example.
	BatchSize int
	// NumPrefetchedExamples is the output queue capacity; zero defaults to
	// the number of processor cores.
	NumPrefetchedExamples int
	// NumParallelReads is the decoder concurrency; zero defaults to
	// NumPrefetchedExamples.
	NumParallelReads    int
	LastExampleHandling LastExampleHandling
	BadExampleHandling  BadExampleHandling
	// WarnBadInstances emits a diagnostic for every discarded bad
	// instance.
	WarnBadInstances bool
	// NumInstancesToSkip is the prefix skip applied before any shard,
	// sample, or shuffle layer.
	NumInstancesToSkip uint64
	// NumInstancesToRead, when set, is the post-skip hard limit.
	NumInstancesToRead *uint64
	ShardIndex         uint64
	// NumShards splits the dataset into that many modular shards; zero or
	// one disables sharding.
	NumShards uint64
	// SampleRatio, when set, proportionally subsamples the instance
	// stream; must be in (0, 1) exclusive.
	SampleRatio *float64
	// ShuffleInstances enables the windowed shuffle layer.
	ShuffleInstances bool
	// ShuffleWindow bounds the shuffle reservoir; one passes instances
	// through, zero shuffles the whole epoch in memory.
	ShuffleWindow uint64
	// ShuffleSeed, when set, makes orderings reproducible.
	ShuffleSeed *uint64
	// ReshuffleEachEpoch reshuffles after every Reset instead of
	// replaying the same order.
	ReshuffleEachEpoch bool
}

// DefaultParams returns the baseline configuration.
func DefaultParams() Params {
	return Params{
		BatchSize:          1,
		ReshuffleEachEpoch: true,
	}
}

func (p *Params) validate() error {
	if p.BatchSize < 1 {
		return fmt.Errorf("%w: the batch size must be at least 1", ErrInvalidArgument)
	}
	if p.NumShards > 1 && p.ShardIndex >= p.NumShards {
		return fmt.Errorf("%w: the shard index must be less than the number of shards", ErrInvalidArgument)
	}
	if p.SampleRatio != nil && (*p.SampleRatio <= 0 || *p.SampleRatio >= 1) {
		return fmt.Errorf("%w: the sample ratio must be greater than 0 and less than 1", ErrInvalidArgument)
	}
	return nil
}

// Uint64 returns a pointer to v for optional parameters.
func Uint64(v uint64) *uint64 { return &v }

// Float64 returns a pointer to v for optional parameters.
func Float64(v float64) *float64 { return &v }
