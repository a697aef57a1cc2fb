//go:build unix

package flexrec

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator gives every record its own anonymous private mapping. Regions
// are page aligned and live outside the Go heap, so they are returned to the
// operating system as soon as the record is freed.
type MmapAllocator struct{}

// NewMmapAllocator returns an allocator backed by anonymous mappings.
func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{}
}

func newMmapAllocator() (Allocator, error) {
	return NewMmapAllocator(), nil
}

// Allocate maps size bytes. Alignments above the page size cannot be honored.
func (m *MmapAllocator) Allocate(size, align uintptr) ([]byte, error) {
	if !validAlign(align) || align > uintptr(unix.Getpagesize()) {
		return nil, fmt.Errorf("%w: alignment %d not supported by mmap", ErrAllocationFailed, align)
	}
	if size == 0 || size > maxObjectSize {
		return nil, fmt.Errorf("%w: cannot map %d bytes", ErrAllocationFailed, size)
	}
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrAllocationFailed, size, err)
	}
	return b, nil
}

// Free unmaps b. Any later access through b faults.
func (m *MmapAllocator) Free(b []byte, _, _ uintptr) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("flexrec: munmap: %w", err)
	}
	return nil
}
