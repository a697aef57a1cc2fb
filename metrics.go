package flexrec

// Outstanding returns the number of regions allocated and not yet freed.
func (t *TrackingAllocator) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outstanding()
}

// BytesInUse returns the total size of the outstanding regions.
func (t *TrackingAllocator) BytesInUse() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytesInUse
}

// Metrics returns a snapshot of allocation statistics.
func (t *TrackingAllocator) Metrics() AllocatorMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return AllocatorMetrics{
		Allocations:    t.allocations,
		Frees:          t.frees,
		Failures:       t.failures,
		Outstanding:    t.outstanding(),
		BytesInUse:     t.bytesInUse,
		PeakBytesInUse: t.peakBytes,
	}
}

// AllocatorMetrics contains statistical information about a TrackingAllocator.
type AllocatorMetrics struct {
	Allocations    uint64 // Successful Allocate calls
	Frees          uint64 // Free calls
	Failures       uint64 // Allocate calls that returned an error
	Outstanding    int    // Regions allocated and not freed
	BytesInUse     uint64 // Bytes in outstanding regions
	PeakBytesInUse uint64 // High-water mark of BytesInUse
}

// Leaked reports whether any region is still outstanding.
func (m AllocatorMetrics) Leaked() bool {
	return m.Outstanding != 0
}
