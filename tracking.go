package flexrec

import (
	"sync"
	"unsafe"
)

// TrackingAllocator is a mutex-protected wrapper around another Allocator that
// accounts for every region it hands out. Records themselves are not
// goroutine-safe, but one TrackingAllocator may back records owned by
// different goroutines.
//
// Freeing a region the tracker does not know about, or freeing it with a
// different size or alignment, panics: it is a double free or a foreign region.
type TrackingAllocator struct {
	mu   sync.Mutex
	next Allocator
	live map[uintptr]region
	// zero-size regions may share a base address, so they are counted
	// per alignment instead of keyed
	empty map[uintptr]int

	allocations uint64
	frees       uint64
	failures    uint64
	bytesInUse  uint64
	peakBytes   uint64
}

type region struct {
	size, align uintptr
}

// NewTrackingAllocator wraps next. If next is nil, HeapAllocator is used.
func NewTrackingAllocator(next Allocator) *TrackingAllocator {
	if next == nil {
		next = HeapAllocator{}
	}
	return &TrackingAllocator{next: next, live: make(map[uintptr]region), empty: make(map[uintptr]int)}
}

// Allocate thread-safely allocates from the wrapped allocator and records the region.
func (t *TrackingAllocator) Allocate(size, align uintptr) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.next.Allocate(size, align)
	if err != nil {
		t.failures++
		return nil, err
	}
	if size == 0 {
		t.empty[align]++
	} else {
		t.live[regionKey(b)] = region{size: size, align: align}
	}
	t.allocations++
	t.bytesInUse += uint64(size)
	t.peakBytes = max(t.peakBytes, t.bytesInUse)
	return b, nil
}

// Free thread-safely releases b through the wrapped allocator.
func (t *TrackingAllocator) Free(b []byte, size, align uintptr) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if size == 0 {
		if t.empty[align] == 0 {
			panic(msgUntrackedFree)
		}
		t.empty[align]--
		if t.empty[align] == 0 {
			delete(t.empty, align)
		}
	} else {
		key := regionKey(b)
		r, ok := t.live[key]
		if !ok {
			panic(msgUntrackedFree)
		}
		if r.size != size || r.align != align {
			panic(msgAllocSizeDrift)
		}
		delete(t.live, key)
	}
	t.frees++
	t.bytesInUse -= uint64(size)
	return t.next.Free(b, size, align)
}

// regionKey identifies a non-empty region by its base address.
func regionKey(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// outstanding returns the number of live regions. t.mu must be held.
func (t *TrackingAllocator) outstanding() int {
	n := len(t.live)
	for _, c := range t.empty {
		n += c
	}
	return n
}
