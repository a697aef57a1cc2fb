package flexrec

import (
	"fmt"
	"math"
	"math/bits"
	"reflect"
	"unsafe"
)

// maxObjectSize is the largest size (and offset) a layout may describe: the
// range of a signed machine word.
const maxObjectSize = uintptr(math.MaxInt)

// Header field sizes. The id is a uint32 aligned to its size, the length a uint16.
const (
	idSize      = unsafe.Sizeof(uint32(0))
	idAlign     = unsafe.Alignof(uint32(0))
	lengthSize  = unsafe.Sizeof(uint16(0))
	lengthAlign = unsafe.Alignof(uint16(0))
)

// Layout describes the byte layout of one record: a uint32 id, a uint16
// length and Length elements, laid out the way a C compiler lays out
//
//	struct { uint32_t id; uint16_t length; T data[length]; }
type Layout struct {
	Size  uintptr // total allocation size, a multiple of Align
	Align uintptr // allocation alignment

	IDOffset     uintptr
	LengthOffset uintptr
	ArrayOffset  uintptr // aligned to ElemAlign

	ElemSize  uintptr
	ElemAlign uintptr
	Length    uint16
}

// ArraySize returns the number of bytes occupied by the element array.
func (l Layout) ArraySize() uintptr {
	return l.ElemSize * uintptr(l.Length)
}

func (l Layout) String() string {
	return fmt.Sprintf("size=%d align=%d id@%d length@%d array@%d (%d x %d bytes, align %d)",
		l.Size, l.Align, l.IDOffset, l.LengthOffset, l.ArrayOffset, l.Length, l.ElemSize, l.ElemAlign)
}

// LayoutOf computes the layout of a record holding length elements of T.
func LayoutOf[T any](length uint16) (Layout, error) {
	t := elemType[T]()
	return ComputeLayout(t.Size(), uintptr(t.Align()), length)
}

// elemType returns T's type without materializing a T, which may be large.
func elemType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ComputeLayout computes the layout of a record holding length elements of
// elemSize bytes each, aligned to elemAlign. elemAlign must be a power of two.
// It never wraps: any size or offset past the signed word range is reported
// as ErrLayoutOverflow.
func ComputeLayout(elemSize, elemAlign uintptr, length uint16) (Layout, error) {
	fail := func(field string, cause error) (Layout, error) {
		return Layout{}, &LayoutError{
			Field:     field,
			ElemSize:  elemSize,
			ElemAlign: elemAlign,
			Length:    length,
			cause:     cause,
		}
	}

	if !validAlign(elemAlign) {
		return fail("data", ErrInvalidAlignment)
	}

	arraySize, ok := checkedMul(elemSize, uintptr(length))
	if !ok || arraySize > maxObjectSize {
		return fail("data", ErrLayoutOverflow)
	}

	b := layoutBuilder{align: 1}
	idOff, err := b.extend(idSize, idAlign)
	if err != nil {
		return fail("id", err)
	}
	lenOff, err := b.extend(lengthSize, lengthAlign)
	if err != nil {
		return fail("length", err)
	}
	arrOff, err := b.extend(arraySize, elemAlign)
	if err != nil {
		return fail("data", err)
	}
	size, ok := alignUp(b.size, b.align)
	if !ok {
		return fail("padding", ErrLayoutOverflow)
	}

	return Layout{
		Size:         size,
		Align:        b.align,
		IDOffset:     idOff,
		LengthOffset: lenOff,
		ArrayOffset:  arrOff,
		ElemSize:     elemSize,
		ElemAlign:    elemAlign,
		Length:       length,
	}, nil
}

// layoutBuilder appends fields in declaration order, starting from an empty
// (size 0, align 1) layout.
type layoutBuilder struct {
	size  uintptr
	align uintptr
}

// extend places a field after the current end of the layout and returns its offset.
func (b *layoutBuilder) extend(size, align uintptr) (uintptr, error) {
	off, ok := alignUp(b.size, align)
	if !ok {
		return 0, ErrLayoutOverflow
	}
	end, carry := bits.Add(uint(off), uint(size), 0)
	if carry != 0 || uintptr(end) > maxObjectSize {
		return 0, ErrLayoutOverflow
	}
	b.size = uintptr(end)
	b.align = max(b.align, align)
	return off, nil
}

// alignUp rounds n up to a multiple of align. The result must stay within
// maxObjectSize.
func alignUp(n, align uintptr) (uintptr, bool) {
	mask := align - 1
	if n > maxObjectSize-mask {
		return 0, false
	}
	return (n + mask) &^ mask, true
}

func checkedMul(a, b uintptr) (uintptr, bool) {
	hi, lo := bits.Mul(uint(a), uint(b))
	return uintptr(lo), hi == 0
}

func validAlign(align uintptr) bool {
	return align != 0 && align&(align-1) == 0
}
