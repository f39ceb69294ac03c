//go:build !unix

package memory

import (
	"fmt"
	"os"
)

// Hosts without mmap fall back to heap blocks; file mapping degrades to a
// plain read and file-backed growth to heap reallocation.

func NewFileMappedBlock(path string) (Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read %s: %w", path, err)
	}
	return NewExternalBlock(data, nil), nil
}

func NewFileBackedBlock(size int) (MutableBlock, error) {
	return NewHeapBlock(size), nil
}
