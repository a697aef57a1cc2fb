// Package flexrec implements variable-length records: a fixed header (a
// uint32 id and a uint16 element count) followed by an inline array of
// fixed-size elements, all in a single allocation.
//
// # Overview
//
// The memory of a record matches the C struct
//
//	struct {
//	    uint32_t id;
//	    uint16_t length;
//	    T        data[length]; // aligned to T
//	};
//
// with the total size padded to the struct's alignment. The layout is
// computed by hand (ComputeLayout, LayoutOf) so the bytes can be handed to
// code that reinterprets them directly, for example across an FFI boundary.
//
// # Basic Usage
//
//	rec, err := flexrec.New(5, 4, func(i uint16) flexrec.FieldValue {
//	    return flexrec.Invalid()
//	})
//	if err != nil {
//	    return err
//	}
//	defer rec.Free() // Release the allocation exactly once
//
//	rec.Set(0, flexrec.IntValue(42))
//	v, ok := rec.Get(0)
//
//	rec.UpdateAll(func(elems []flexrec.FieldValue) {
//	    for i := range elems {
//	        elems[i].SetInt(elems[i].Int() * 2)
//	    }
//	})
//
// # Ownership and Borrowing
//
// A *Record is the single owner of its allocation. Copying the Record value
// is not allowed (go vet reports it). Free consumes the handle: it releases
// every element, returns the memory to its Allocator and makes every later
// access panic. Calling Free twice is harmless.
//
// Views follow exclusive-borrow rules, checked at run time: any number of
// shared views (Get, View, All, Values) may be open at once, but an exclusive
// view (Update, Set, UpdateAll) cannot coexist with any other view. Opening a
// conflicting view panics.
//
// # Thread Safety
//
// Records are not safe for concurrent use. A TrackingAllocator may be shared
// between goroutines.
//
// # Element Types
//
// Elements must be plain, fixed-size values without pointers, such as
// FieldValue. Construction reports ErrUnsupportedElement otherwise. Element
// types whose pointer implements Releaser have Release called on every
// element when the record is freed.
//
// # Memory and Metrics
//
// Records allocate from the Go heap by default (HeapAllocator). MmapAllocator
// places each record in its own anonymous mapping. TrackingAllocator wraps
// either and counts outstanding allocations:
//
//	tracker := flexrec.NewTrackingAllocator(nil)
//	rec, _ := flexrec.New(1, 8, init, flexrec.WithAllocator(tracker))
//	rec.Free()
//	fmt.Println(tracker.Outstanding()) // 0
//
// NewCollector exports those counters to Prometheus.
//
// A record that becomes unreachable without Free has its allocation returned
// by a runtime cleanup, with a warning logged. Release is not called on its
// elements in that case. If Bytes was called on the record, the cleanup keeps
// the region instead, so slices it handed out stay readable.
package flexrec
