package memory

import (
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Allocator produces mutable blocks for chunk buffers and assembled payloads.
type Allocator interface {
	Allocate(size int) (MutableBlock, error)
}

// HeapAllocator allocates plain heap blocks.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(size int) (MutableBlock, error) {
	return NewHeapBlock(size), nil
}

var (
	allocatorMu sync.RWMutex
	allocator   Allocator = HeapAllocator{}
)

// SetDefaultAllocator replaces the process-wide allocator. It must be called
// before any reader is constructed.
func SetDefaultAllocator(a Allocator) {
	allocatorMu.Lock()
	allocator = a
	allocatorMu.Unlock()
}

// DefaultAllocator returns the process-wide allocator.
func DefaultAllocator() Allocator {
	allocatorMu.RLock()
	defer allocatorMu.RUnlock()
	return allocator
}

// Resize grows or shrinks a block, replacing it with a fresh allocation when
// the block cannot resize in place. Contents are preserved up to the smaller
// of the two sizes.
func Resize(a Allocator, block MutableBlock, size int) (MutableBlock, error) {
	if block.Resizable() {
		if err := block.Resize(size); err != nil {
			return nil, err
		}
		return block, nil
	}
	fresh, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	n := size
	if n > block.Size() {
		n = block.Size()
	}
	copy(fresh.Data(), block.Data()[:n])
	block.Release()
	return fresh, nil
}

const maxOversizeThreshold = 512 << 20 // 512 MiB

var (
	thresholdOnce  sync.Once
	totalRAMThresh int
)

// defaultOversizeThreshold is min(total RAM / 4, 512 MiB); falls back to the
// cap when the host memory size cannot be determined.
func defaultOversizeThreshold() int {
	thresholdOnce.Do(func() {
		totalRAMThresh = maxOversizeThreshold
		vm, err := mem.VirtualMemory()
		if err != nil || vm.Total == 0 {
			return
		}
		if t := vm.Total >> 2; t < maxOversizeThreshold {
			totalRAMThresh = int(t)
		}
		logrus.Debugf("memory: default oversize threshold is %d byte(s)", totalRAMThresh)
	})
	return totalRAMThresh
}
