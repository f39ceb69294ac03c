package memory

import "github.com/sirupsen/logrus"

// hybridBlock starts on the heap and migrates to a file-backed block when a
// resize pushes it past the oversize threshold. Once file-backed it stays
// file-backed; a mapped region has no extra access latency after the first
// touch.
type hybridBlock struct {
	refs       refCount
	inner      MutableBlock
	threshold  int
	fileBacked bool
}

func (b *hybridBlock) Data() []byte   { return b.inner.Data() }
func (b *hybridBlock) Size() int      { return b.inner.Size() }
func (b *hybridBlock) Retain()        { b.refs.retain() }
func (b *hybridBlock) RefCount() int  { return b.refs.count() }
func (b *hybridBlock) Resizable() bool { return true }

func (b *hybridBlock) Release() {
	if b.refs.release() {
		b.inner.Release()
		b.inner = nil
	}
}

func (b *hybridBlock) Resize(size int) error {
	if !b.fileBacked && size > b.threshold {
		logrus.Debugf("memory: moving %d byte(s) from heap to file-backed block, new size %d", b.inner.Size(), size)

		fresh, err := NewFileBackedBlock(size)
		if err != nil {
			return err
		}
		copy(fresh.Data(), b.inner.Data())
		b.inner.Release()
		b.inner = fresh
		b.fileBacked = true
		return nil
	}
	return b.inner.Resize(size)
}

// FileBackedAllocator allocates heap blocks that spill to unlinked temporary
// files once they grow past the oversize threshold.
type FileBackedAllocator struct {
	// OversizeThreshold in bytes; zero selects min(total RAM / 4, 512 MiB).
	OversizeThreshold int
}

func (a FileBackedAllocator) Allocate(size int) (MutableBlock, error) {
	threshold := a.OversizeThreshold
	if threshold == 0 {
		threshold = defaultOversizeThreshold()
	}
	if size > threshold {
		return NewFileBackedBlock(size)
	}
	b := &hybridBlock{inner: NewHeapBlock(size), threshold: threshold}
	b.refs.init()
	return b, nil
}
