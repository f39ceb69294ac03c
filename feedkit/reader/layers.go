package reader

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	randv2 "math/rand/v2"
)

// rangeReader applies skip-N / take-N to the inner stream. The skip replays
// on every reset.
type rangeReader struct {
	readerBase
	inner     InstanceReader
	skip      uint64
	limit     *uint64
	firstRead bool
	numRead   uint64
}

func newRangeReader(params *Params, inner InstanceReader) *rangeReader {
	r := &rangeReader{
		inner:     inner,
		skip:      params.NumInstancesToSkip,
		limit:     params.NumInstancesToRead,
		firstRead: true,
	}
	r.readCore = r.read
	r.resetCore = r.reset
	return r
}

func (r *rangeReader) read() (*Instance, error) {
	if r.firstRead {
		r.firstRead = false
		for i := uint64(0); i < r.skip; i++ {
			ins, err := r.inner.ReadInstance()
			if err != nil {
				return nil, err
			}
			if ins == nil {
				return nil, nil
			}
			ins.Release()
		}
	}

	if r.limit != nil && r.numRead == *r.limit {
		return nil, nil
	}

	ins, err := r.inner.ReadInstance()
	if err != nil || ins == nil {
		return nil, err
	}
	r.numRead++
	return ins, nil
}

func (r *rangeReader) reset() error {
	if err := r.inner.Reset(); err != nil {
		return err
	}
	r.firstRead = true
	r.numRead = 0
	return nil
}

// shardReader keeps every NumShards-th instance starting at ShardIndex.
type shardReader struct {
	readerBase
	inner      InstanceReader
	shardIndex uint64
	numShards  uint64
	firstRead  bool
}

func newShardReader(params *Params, inner InstanceReader) *shardReader {
	r := &shardReader{
		inner:      inner,
		shardIndex: params.ShardIndex,
		numShards:  params.NumShards,
		firstRead:  true,
	}
	r.readCore = r.read
	r.resetCore = r.reset
	return r
}

func (r *shardReader) read() (*Instance, error) {
	var skip uint64
	if r.firstRead {
		r.firstRead = false
		skip = r.shardIndex
	} else {
		skip = r.numShards - 1
	}

	for i := uint64(0); i < skip; i++ {
		ins, err := r.inner.ReadInstance()
		if err != nil {
			return nil, err
		}
		if ins == nil {
			return nil, nil
		}
		ins.Release()
	}
	return r.inner.ReadInstance()
}

func (r *shardReader) reset() error {
	if err := r.inner.Reset(); err != nil {
		return err
	}
	r.firstRead = true
	return nil
}

// sampleBufferSize is how many instances a sampling block collects before the
// proportional truncation.
const sampleBufferSize = 100

// sampleReader takes the first floor(ratio * n) instances of every
// sampleBufferSize-instance block, a deterministic proportional sample.
type sampleReader struct {
	readerBase
	inner  InstanceReader
	ratio  float64
	buffer []*Instance
	pos    int
}

func newSampleReader(params *Params, inner InstanceReader) *sampleReader {
	r := &sampleReader{inner: inner, ratio: *params.SampleRatio}
	r.readCore = r.read
	r.resetCore = r.reset
	return r
}

func (r *sampleReader) read() (*Instance, error) {
	if r.pos == len(r.buffer) {
		if err := r.fillBuffer(); err != nil {
			return nil, err
		}
	}
	if len(r.buffer) == 0 {
		return nil, nil
	}
	ins := r.buffer[r.pos]
	r.buffer[r.pos] = nil
	r.pos++
	return ins, nil
}

func (r *sampleReader) fillBuffer() error {
	r.buffer = r.buffer[:0]

	for len(r.buffer) < sampleBufferSize {
		ins, err := r.inner.ReadInstance()
		if err != nil {
			r.drain()
			return err
		}
		if ins == nil {
			break
		}
		r.buffer = append(r.buffer, ins)
	}

	if len(r.buffer) > 0 {
		keep := int(r.ratio * float64(len(r.buffer)))
		for _, ins := range r.buffer[keep:] {
			ins.Release()
		}
		r.buffer = r.buffer[:keep]
	}
	r.pos = 0
	return nil
}

func (r *sampleReader) drain() {
	for _, ins := range r.buffer {
		if ins != nil {
			ins.Release()
		}
	}
	r.buffer = r.buffer[:0]
	r.pos = 0
}

func (r *sampleReader) reset() error {
	if err := r.inner.Reset(); err != nil {
		return err
	}
	r.drain()
	return nil
}

// shuffleReader holds up to window instances and emits uniformly chosen ones,
// replacing the taken slot lazily on the next read. Once the inner reader is
// exhausted the remainder is shuffled once and drained in that order. A
// window of zero materializes the whole epoch for a perfect shuffle.
type shuffleReader struct {
	readerBase
	inner     InstanceReader
	window    uint64
	seed      uint64
	reshuffle bool
	rng       *randv2.Rand
	buffer    []*Instance
	innerHas  bool
}

func newShuffleReader(params *Params, inner InstanceReader) (*shuffleReader, error) {
	window := params.ShuffleWindow
	if window == 0 {
		window = math.MaxUint64
	}

	var seed uint64
	if params.ShuffleSeed != nil {
		seed = *params.ShuffleSeed
	} else {
		var raw [8]byte
		if _, err := rand.Read(raw[:]); err != nil {
			return nil, err
		}
		seed = binary.LittleEndian.Uint64(raw[:])
	}

	r := &shuffleReader{
		inner:     inner,
		window:    window,
		seed:      seed,
		reshuffle: params.ReshuffleEachEpoch,
		rng:       randv2.New(randv2.NewPCG(seed, seed)),
		innerHas:  true,
	}
	if params.ShuffleWindow > 1 {
		r.buffer = make([]*Instance, 0, params.ShuffleWindow)
	}
	r.readCore = r.read
	r.resetCore = r.reset
	return r, nil
}

func (r *shuffleReader) read() (*Instance, error) {
	if r.window == 1 {
		return r.inner.ReadInstance()
	}

	if err := r.fillBuffer(); err != nil {
		return nil, err
	}
	if len(r.buffer) == 0 {
		return nil, nil
	}

	if r.innerHas {
		return r.popRandom(), nil
	}
	ins := r.buffer[len(r.buffer)-1]
	r.buffer = r.buffer[:len(r.buffer)-1]
	return ins, nil
}

func (r *shuffleReader) fillBuffer() error {
	for r.innerHas && uint64(len(r.buffer)) < r.window {
		ins, err := r.inner.ReadInstance()
		if err != nil {
			return err
		}
		if ins == nil {
			r.innerHas = false
			r.rng.Shuffle(len(r.buffer), func(i, j int) {
				r.buffer[i], r.buffer[j] = r.buffer[j], r.buffer[i]
			})
			break
		}
		r.buffer = append(r.buffer, ins)
	}
	return nil
}

func (r *shuffleReader) popRandom() *Instance {
	idx := r.rng.IntN(len(r.buffer))
	ins := r.buffer[idx]
	last := len(r.buffer) - 1
	if idx != last {
		r.buffer[idx] = r.buffer[last]
	}
	r.buffer = r.buffer[:last]
	return ins
}

func (r *shuffleReader) reset() error {
	if err := r.inner.Reset(); err != nil {
		return err
	}
	for _, ins := range r.buffer {
		ins.Release()
	}
	r.buffer = r.buffer[:0]
	r.innerHas = true

	// Replaying an epoch needs the generator back in its initial state.
	if !r.reshuffle {
		r.rng = randv2.New(randv2.NewPCG(r.seed, r.seed))
	}
	return nil
}
