//go:build unix

package memory

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileMappedBlock is a read-only block over a mapped file region.
type fileMappedBlock struct {
	refs refCount
	data []byte
}

// NewFileMappedBlock maps the whole file at path read-only. The descriptor is
// closed once the mapping is established; the mapping lives until the last
// reference is released.
func NewFileMappedBlock(path string) (Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("memory: stat %s: %w", path, err)
	}
	size := int(info.Size())

	b := &fileMappedBlock{}
	b.refs.init()
	if size == 0 {
		return b, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("memory: mmap %s: %w", path, err)
	}
	b.data = data
	return b, nil
}

func (b *fileMappedBlock) Data() []byte { return b.data }
func (b *fileMappedBlock) Size() int    { return len(b.data) }
func (b *fileMappedBlock) Retain()      { b.refs.retain() }

func (b *fileMappedBlock) Release() {
	if b.refs.release() {
		if b.data != nil {
			_ = unix.Munmap(b.data)
			b.data = nil
		}
	}
}

func (b *fileMappedBlock) RefCount() int   { return b.refs.count() }
func (b *fileMappedBlock) Resizable() bool { return false }

// fileBackedBlock is a mutable block over a mapping of an unlinked temporary
// file, so its pages can be reclaimed by the OS under memory pressure.
type fileBackedBlock struct {
	refs refCount
	file *os.File
	data []byte
}

// NewFileBackedBlock creates a block of the given size backed by an unlinked
// temporary file.
func NewFileBackedBlock(size int) (MutableBlock, error) {
	f, err := os.CreateTemp("", "feedkit-*")
	if err != nil {
		return nil, fmt.Errorf("memory: create backing file: %w", err)
	}
	// Unlink right away; the kernel reclaims the file when the descriptor
	// closes.
	if err = os.Remove(f.Name()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("memory: unlink backing file: %w", err)
	}

	b := &fileBackedBlock{file: f}
	b.refs.init()
	if err = b.remap(size); err != nil {
		_ = f.Close()
		return nil, err
	}
	return b, nil
}

func (b *fileBackedBlock) remap(size int) error {
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			return fmt.Errorf("memory: munmap backing file: %w", err)
		}
		b.data = nil
	}
	if err := b.file.Truncate(int64(size)); err != nil {
		return fmt.Errorf("memory: truncate backing file: %w", err)
	}
	if size == 0 {
		return nil
	}
	data, err := unix.Mmap(int(b.file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("memory: mmap backing file: %w", err)
	}
	b.data = data
	return nil
}

func (b *fileBackedBlock) Data() []byte { return b.data }
func (b *fileBackedBlock) Size() int    { return len(b.data) }
func (b *fileBackedBlock) Retain()      { b.refs.retain() }

func (b *fileBackedBlock) Release() {
	if b.refs.release() {
		if b.data != nil {
			_ = unix.Munmap(b.data)
			b.data = nil
		}
		_ = b.file.Close()
	}
}

func (b *fileBackedBlock) RefCount() int   { return b.refs.count() }
func (b *fileBackedBlock) Resizable() bool { return true }

func (b *fileBackedBlock) Resize(size int) error {
	if size < 0 {
		return fmt.Errorf("memory: invalid block size %d", size)
	}
	return b.remap(size)
}
