package flexrec

import (
	"errors"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"
)

// Record is the owning handle of one record: a single allocation holding a
// uint32 id, a uint16 length and length elements of T, laid out as described
// by Layout.
//
// A Record must not be copied, and it is not safe for concurrent use. Free
// releases it; every method except Free and Freed panics afterwards.
type Record[T any] struct {
	_ noCopy

	buf     []byte
	layout  Layout
	alloc   Allocator
	log     *zap.Logger
	borrow  borrowState
	cleanup runtime.Cleanup
	exposed *atomic.Bool // set once Bytes has handed out the region
}

// New constructs a record with the given id and length. init is called once
// for every index in ascending order and its result stored in that slot.
//
// If init panics, the slots written so far are released, the allocation is
// freed and the panic continues.
func New[T any](id uint32, length uint16, init func(i uint16) T, opts ...Option) (*Record[T], error) {
	return construct(id, length, func(i uint16) (T, error) {
		return init(i), nil
	}, opts)
}

// TryNew is like New but init may fail. The first error stops construction
// and is returned wrapped in a *ConstructionError.
func TryNew[T any](id uint32, length uint16, init func(i uint16) (T, error), opts ...Option) (*Record[T], error) {
	return construct(id, length, init, opts)
}

func construct[T any](id uint32, length uint16, init func(uint16) (T, error), opts []Option) (*Record[T], error) {
	t := elemType[T]()
	return build(id, length, t.Size(), uintptr(t.Align()), init, opts)
}

// build constructs a record whose elements have the given size and alignment,
// which must be those of T.
func build[T any](id uint32, length uint16, elemSize, elemAlign uintptr, init func(uint16) (T, error), opts []Option) (*Record[T], error) {
	o := buildOptions(opts)
	fail := func(cause error) (*Record[T], error) {
		o.logger.Debug("record construction failed",
			zap.Uint32("id", id), zap.Uint16("length", length), zap.Error(cause))
		return nil, &ConstructionError{ID: id, Length: length, cause: cause}
	}

	if err := checkElem[T](); err != nil {
		return fail(err)
	}
	layout, err := ComputeLayout(elemSize, elemAlign, length)
	if err != nil {
		return fail(err)
	}

	buf, err := o.allocator.Allocate(layout.Size, layout.Align)
	if err != nil {
		if !errors.Is(err, ErrAllocationFailed) {
			err = fmt.Errorf("%w: %w", ErrAllocationFailed, err)
		}
		return fail(err)
	}
	if uintptr(len(buf)) != layout.Size || !isAligned(buf, layout.Align) {
		if ferr := o.allocator.Free(buf, layout.Size, layout.Align); ferr != nil {
			o.logger.Warn("failed to release rejected region", zap.Error(ferr))
		}
		return fail(fmt.Errorf("%w: allocator returned %d bytes, want %d aligned to %d",
			ErrAllocationFailed, len(buf), layout.Size, layout.Align))
	}

	r := &Record[T]{buf: buf, layout: layout, alloc: o.allocator, log: o.logger, exposed: new(atomic.Bool)}
	*r.idPtr() = id
	*r.lengthPtr() = length

	written := 0
	complete := false
	defer func() {
		if !complete {
			r.teardown(written)
		}
	}()
	slots := r.slotsN(int(length))
	for i := range slots {
		v, err := init(uint16(i))
		if err != nil {
			return fail(fmt.Errorf("initialize slot %d: %w", i, err))
		}
		slots[i] = v
		written++
	}
	complete = true

	r.cleanup = runtime.AddCleanup(r, releaseLeaked, leakedRegion{
		buf:     buf,
		size:    layout.Size,
		align:   layout.Align,
		alloc:   o.allocator,
		log:     o.logger,
		exposed: r.exposed,
	})
	o.logger.Debug("record constructed",
		zap.Uint32("id", id), zap.Uint16("length", length), zap.Uintptr("size", layout.Size))
	return r, nil
}

// ID returns the record's identifier.
func (r *Record[T]) ID() uint32 {
	id := *r.idPtr()
	runtime.KeepAlive(r)
	return id
}

// Len returns the number of elements in the record.
func (r *Record[T]) Len() uint16 {
	n := *r.lengthPtr()
	runtime.KeepAlive(r)
	return n
}

// Layout returns the layout the record was allocated with.
func (r *Record[T]) Layout() Layout {
	r.mustLive()
	return r.layout
}

// Get returns a copy of element i, or false if i >= Len().
func (r *Record[T]) Get(i uint16) (T, bool) {
	var zero T
	slots := r.slots()
	if int(i) >= len(slots) {
		return zero, false
	}
	r.borrow.acquireShared()
	defer r.borrow.releaseShared()
	return slots[i], true
}

// Update calls fn with exclusive access to element i. It reports false, and
// does not call fn, if i >= Len(). The pointer must not be retained after fn
// returns.
func (r *Record[T]) Update(i uint16, fn func(v *T)) bool {
	slots := r.slots()
	if int(i) >= len(slots) {
		return false
	}
	r.borrow.acquireExclusive()
	defer r.borrow.releaseExclusive()
	fn(&slots[i])
	return true
}

// Set stores v in slot i, reporting false if i >= Len().
func (r *Record[T]) Set(i uint16, v T) bool {
	return r.Update(i, func(p *T) { *p = v })
}

// View calls fn with a read-only view of all elements in index order. fn must
// not modify or retain the slice.
func (r *Record[T]) View(fn func(elems []T)) {
	slots := r.slots()
	r.borrow.acquireShared()
	defer r.borrow.releaseShared()
	fn(slots)
}

// UpdateAll calls fn with exclusive, writable access to all elements in index
// order. fn must not retain the slice.
func (r *Record[T]) UpdateAll(fn func(elems []T)) {
	slots := r.slots()
	r.borrow.acquireExclusive()
	defer r.borrow.releaseExclusive()
	fn(slots)
}

// All returns an iterator over the elements in index order. The record is
// borrowed for the duration of the iteration.
func (r *Record[T]) All() iter.Seq2[uint16, T] {
	return func(yield func(uint16, T) bool) {
		slots := r.slots()
		r.borrow.acquireShared()
		defer r.borrow.releaseShared()
		for i, v := range slots {
			if !yield(uint16(i), v) {
				return
			}
		}
	}
}

// Values returns a copy of all elements in index order.
func (r *Record[T]) Values() []T {
	slots := r.slots()
	r.borrow.acquireShared()
	defer r.borrow.releaseShared()
	return slices.Clone(slots)
}

// Bytes returns the record's backing memory: the header and element array at
// the offsets given by Layout, in native byte order. The slice aliases the
// record and is valid until Free. It must be treated as read-only.
//
// Once Bytes has been called, a record that becomes unreachable without Free
// keeps its region: the garbage collector reclaims heap regions when the last
// alias is dropped, and mapped regions stay mapped until the process exits.
func (r *Record[T]) Bytes() []byte {
	r.mustLive()
	r.exposed.Store(true)
	return r.buf
}

// Free releases every element (calling Release on those that implement
// Releaser) and returns the allocation to its allocator. Calling Free again
// has no effect. Free panics if a view of the record is open.
func (r *Record[T]) Free() {
	if r.buf == nil {
		return
	}
	if r.borrow.active() {
		panic(msgFreeBorrowed)
	}
	r.cleanup.Stop()
	r.log.Debug("freeing record", zap.Uint32("id", r.ID()), zap.Uint16("length", r.Len()))
	r.teardown(int(r.Len()))
}

// Freed reports whether Free has been called.
func (r *Record[T]) Freed() bool {
	return r.buf == nil
}

// teardown releases the first n slots in ascending order, then the allocation.
// The handle is invalidated before the allocator sees the region. A panicking
// Release does not stop the remaining slots from being released; the first
// panic is raised again once the allocation is returned.
func (r *Record[T]) teardown(n int) {
	var (
		panicked bool
		first    any
	)
	defer func() {
		r.release()
		if panicked {
			panic(first)
		}
	}()

	slots := r.slotsN(n)
	var zero T
	for i := range slots {
		v := slots[i]
		slots[i] = zero
		rel, ok := any(&v).(Releaser)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if p := recover(); p != nil && !panicked {
					panicked, first = true, p
				}
			}()
			rel.Release()
		}()
	}
}

func (r *Record[T]) release() {
	buf := r.buf
	r.buf = nil
	if err := r.alloc.Free(buf, r.layout.Size, r.layout.Align); err != nil {
		r.log.Warn("failed to release record memory", zap.Error(err))
	}
}

func (r *Record[T]) mustLive() {
	if r.buf == nil {
		panic(msgUseAfterFree)
	}
}

func (r *Record[T]) idPtr() *uint32 {
	r.mustLive()
	return (*uint32)(unsafe.Pointer(&r.buf[r.layout.IDOffset]))
}

func (r *Record[T]) lengthPtr() *uint16 {
	r.mustLive()
	return (*uint16)(unsafe.Pointer(&r.buf[r.layout.LengthOffset]))
}

// slots returns the element array, sized by the length stored in the record.
func (r *Record[T]) slots() []T {
	return r.slotsN(int(r.Len()))
}

// slotsN returns the first n slots of the element array. It panics rather
// than reach past the allocation.
func (r *Record[T]) slotsN(n int) []T {
	r.mustLive()
	if n == 0 {
		return nil
	}
	if n > int(r.layout.Length) {
		panic(fmt.Sprintf("flexrec: stored length %d exceeds allocated length %d", n, r.layout.Length))
	}
	if r.layout.ElemSize == 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(r.buf))), n)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&r.buf[r.layout.ArrayOffset])), n)
}

func isAligned(b []byte, align uintptr) bool {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))&(align-1) == 0
}

// leakedRegion is what a record's cleanup needs to return its allocation if
// the handle becomes unreachable without Free.
type leakedRegion struct {
	buf     []byte
	size    uintptr
	align   uintptr
	alloc   Allocator
	log     *zap.Logger
	exposed *atomic.Bool
}

func releaseLeaked(l leakedRegion) {
	if l.exposed.Load() {
		l.log.Warn("record garbage collected without Free; region retained for Bytes aliases",
			zap.Uintptr("size", l.size))
		return
	}
	l.log.Warn("record garbage collected without Free", zap.Uintptr("size", l.size))
	if err := l.alloc.Free(l.buf, l.size, l.align); err != nil {
		l.log.Warn("failed to release leaked record memory", zap.Error(err))
	}
}

// noCopy lets go vet's copylocks check flag copies of a Record.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
