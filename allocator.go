package flexrec

import (
	"fmt"
	"unsafe"
)

// Allocator supplies the backing memory of records. Allocate returns a region
// of exactly size bytes whose first byte is aligned to align; Free receives
// the same region with the same size and alignment.
type Allocator interface {
	Allocate(size, align uintptr) ([]byte, error)
	Free(b []byte, size, align uintptr) error
}

// DefaultAllocator is used by records constructed without WithAllocator.
var DefaultAllocator Allocator = HeapAllocator{}

// HeapAllocator allocates from the Go heap. Freed regions are cleared and left
// to the garbage collector.
type HeapAllocator struct{}

// Allocate over-allocates by align-1 bytes and returns the aligned window.
func (HeapAllocator) Allocate(size, align uintptr) (b []byte, err error) {
	if !validAlign(align) {
		return nil, fmt.Errorf("%w: alignment %d", ErrAllocationFailed, align)
	}
	total, ok := addNoOverflow(size, align-1)
	if !ok || size > maxObjectSize {
		return nil, fmt.Errorf("%w: %d bytes aligned to %d exceeds the object size limit", ErrAllocationFailed, size, align)
	}
	if size == 0 {
		return []byte{}, nil
	}

	defer func() {
		// makeslice panics on lengths the runtime cannot represent
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("%w: %v", ErrAllocationFailed, r)
		}
	}()

	raw := make([]byte, total)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	off := (align - (addr & (align - 1))) & (align - 1)
	return raw[off : off+size : off+size], nil
}

// Free clears b so stale reads through leaked slices observe zeros.
func (HeapAllocator) Free(b []byte, _, _ uintptr) error {
	clear(b)
	return nil
}

// AllocatorByName returns the allocator registered under name: "heap" or
// "mmap" (unix only).
func AllocatorByName(name string) (Allocator, error) {
	switch name {
	case "", "heap":
		return HeapAllocator{}, nil
	case "mmap":
		return newMmapAllocator()
	default:
		return nil, fmt.Errorf("flexrec: unknown allocator %q", name)
	}
}

func addNoOverflow(a, b uintptr) (uintptr, bool) {
	if b > maxObjectSize || a > maxObjectSize-b {
		return 0, false
	}
	return a + b, true
}
