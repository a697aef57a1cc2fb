package flexrec_test

import (
	"runtime"
	"testing"

	"github.com/pavanmanishd/flexrec"
)

type fieldRecord struct {
	id     uint32
	fields []flexrec.FieldValue
}

// BenchmarkRealisticUsage compares records with an equivalent struct plus slice
func BenchmarkRealisticUsage(b *testing.B) {
	init := func(i uint16) flexrec.FieldValue { return flexrec.IntValue(int32(i)) }

	// Test 1: Many short-lived small records
	b.Run("ManySmallRecords/Record", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			for j := 0; j < 100; j++ {
				rec, err := flexrec.New(uint32(j), 8, init)
				if err != nil {
					b.Fatal(err)
				}
				rec.Free()
			}
		}
	})

	b.Run("ManySmallRecords/Builtin", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			for j := 0; j < 100; j++ {
				r := &fieldRecord{id: uint32(j), fields: make([]flexrec.FieldValue, 8)}
				for k := range r.fields {
					r.fields[k] = init(uint16(k))
				}
			}
			if i%10 == 0 {
				runtime.GC()
			}
		}
	})

	// Test 2: Large records
	b.Run("LargeRecord/Heap", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			rec, err := flexrec.New(1, 4096, init)
			if err != nil {
				b.Fatal(err)
			}
			rec.Free()
		}
	})

	b.Run("LargeRecord/Tracked", func(b *testing.B) {
		tracker := flexrec.NewTrackingAllocator(nil)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			rec, err := flexrec.New(1, 4096, init, flexrec.WithAllocator(tracker))
			if err != nil {
				b.Fatal(err)
			}
			rec.Free()
		}
	})

	// Test 3: Element access
	b.Run("Sum/View", func(b *testing.B) {
		rec, err := flexrec.New(1, 1024, init)
		if err != nil {
			b.Fatal(err)
		}
		defer rec.Free()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var sum int64
			rec.View(func(elems []flexrec.FieldValue) {
				for _, v := range elems {
					sum += int64(v.Int())
				}
			})
			_ = sum
		}
	})

	b.Run("Sum/Get", func(b *testing.B) {
		rec, err := flexrec.New(1, 1024, init)
		if err != nil {
			b.Fatal(err)
		}
		defer rec.Free()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var sum int64
			for j := range rec.Len() {
				v, _ := rec.Get(j)
				sum += int64(v.Int())
			}
			_ = sum
		}
	})
}

// BenchmarkConcurrencyPatterns measures a TrackingAllocator shared by goroutines
func BenchmarkConcurrencyPatterns(b *testing.B) {
	init := func(uint16) uint64 { return 0 }

	b.Run("Tracked_Sequential", func(b *testing.B) {
		tracker := flexrec.NewTrackingAllocator(nil)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			rec, _ := flexrec.New(1, 8, init, flexrec.WithAllocator(tracker))
			rec.Free()
		}
	})

	b.Run("Tracked_Parallel", func(b *testing.B) {
		tracker := flexrec.NewTrackingAllocator(nil)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				rec, _ := flexrec.New(1, 8, init, flexrec.WithAllocator(tracker))
				rec.Free()
			}
		})
	})

	b.Run("Heap_Parallel", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				rec, _ := flexrec.New(1, 8, init)
				rec.Free()
			}
		})
	})
}
