package reader

import (
	"github.com/Doomsbay/FeedKit/feedkit/memory"
	"github.com/Doomsbay/FeedKit/feedkit/store"
)

// Instance is one logical datum: a parsed record payload or the concatenation
// of a split record's parts. The index is monotonic within an epoch.
type Instance struct {
	Bits  memory.Slice
	Index uint64
	// Store identifies where the instance came from, for diagnostics.
	Store store.Store
}

// Release drops the payload reference.
func (i *Instance) Release() {
	i.Bits.Release()
	i.Bits = memory.Slice{}
}

// InstanceBatch is an ordered group of instances assembled by the batch
// reader. When the last-example policy padded the batch, the trailing Padding
// instances are empty sentinels.
type InstanceBatch struct {
	Instances []Instance
	Index     uint64
	SizeBytes uint64
	Padding   int
}

func (b *InstanceBatch) release() {
	for i := range b.Instances {
		b.Instances[i].Release()
	}
}

// InstanceReader is one stage of the layered instance pipeline. Stages are
// not safe for concurrent use; the pipeline's source goroutine is the only
// caller.
type InstanceReader interface {
	// ReadInstance returns the next instance, or (nil, nil) at the end of
	// the epoch.
	ReadInstance() (*Instance, error)
	// PeekInstance returns the next instance without consuming it.
	PeekInstance() (*Instance, error)
	// Reset rewinds the stage and everything below it to the beginning of
	// the dataset.
	Reset() error
	// NumBytesRead accumulates the payload sizes of returned instances.
	NumBytesRead() uint64
}

// readerBase implements peeking and byte accounting once; concrete stages
// plug in their core read and reset.
type readerBase struct {
	readCore  func() (*Instance, error)
	resetCore func() error

	peeked    *Instance
	hasPeeked bool
	bytesRead uint64
}

func (b *readerBase) ReadInstance() (*Instance, error) {
	var ins *Instance
	var err error
	if b.hasPeeked {
		ins = b.peeked
		b.peeked = nil
		b.hasPeeked = false
	} else {
		ins, err = b.readCore()
		if err != nil {
			return nil, err
		}
	}
	if ins != nil {
		b.bytesRead += uint64(ins.Bits.Len())
	}
	return ins, nil
}

func (b *readerBase) PeekInstance() (*Instance, error) {
	if !b.hasPeeked {
		ins, err := b.readCore()
		if err != nil {
			return nil, err
		}
		b.peeked = ins
		b.hasPeeked = true
	}
	return b.peeked, nil
}

func (b *readerBase) Reset() error {
	if err := b.resetCore(); err != nil {
		return err
	}
	if b.hasPeeked && b.peeked != nil {
		b.peeked.Release()
	}
	b.peeked = nil
	b.hasPeeked = false
	b.bytesRead = 0
	return nil
}

func (b *readerBase) NumBytesRead() uint64 { return b.bytesRead }
