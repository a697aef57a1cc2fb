//go:build unix

package flexrec

import (
	"encoding/binary"
	"runtime"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"
)

func TestMmapAllocator(t *testing.T) {
	m := NewMmapAllocator()

	b, err := m.Allocate(40, 8)
	require.NoError(t, err)
	assert.Len(t, b, 40)
	assert.Zero(t, uintptr(unsafe.Pointer(&b[0]))%uintptr(unix.Getpagesize()))
	assert.Equal(t, make([]byte, 40), b, "fresh mappings are zero filled")

	b[0], b[39] = 1, 2
	assert.NoError(t, m.Free(b, 40, 8))
}

func TestMmapAllocatorRejects(t *testing.T) {
	m := NewMmapAllocator()

	_, err := m.Allocate(0, 8)
	assert.ErrorIs(t, err, ErrAllocationFailed)

	_, err = m.Allocate(64, uintptr(unix.Getpagesize())*2)
	assert.ErrorIs(t, err, ErrAllocationFailed)

	_, err = m.Allocate(64, 3)
	assert.ErrorIs(t, err, ErrAllocationFailed)
}

func TestAllocatorByNameMmap(t *testing.T) {
	a, err := AllocatorByName("mmap")
	require.NoError(t, err)
	assert.IsType(t, &MmapAllocator{}, a)
}

func TestRecordOnMmap(t *testing.T) {
	tracker := NewTrackingAllocator(NewMmapAllocator())

	rec, err := New(9, 512, func(i uint16) FieldValue {
		return LongValue(int64(i) * 3)
	}, WithAllocator(tracker))
	require.NoError(t, err)

	v, ok := rec.Get(511)
	require.True(t, ok)
	assert.Equal(t, int64(1533), v.Long())
	assert.Equal(t, 1, tracker.Outstanding())

	rec.Free()
	assert.Zero(t, tracker.Outstanding())
}

func TestMmapBytesOutliveUnreachableRecord(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	b := func() []byte {
		rec, err := New(0xdeadbeef, 4, func(i uint16) uint64 { return uint64(i) },
			WithAllocator(NewMmapAllocator()), WithLogger(zap.New(core)))
		require.NoError(t, err)
		return rec.Bytes()
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return logs.FilterMessageSnippet("region retained").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	// the mapping is still in place, so this read does not fault
	assert.Equal(t, uint32(0xdeadbeef), binary.NativeEndian.Uint32(b))
	assert.Equal(t, uint64(3), binary.NativeEndian.Uint64(b[8+3*8:]))
}
