package flexrec

import (
	"errors"
	"fmt"
)

var (
	// ErrLayoutOverflow is returned when a record's size or an offset within it
	// does not fit the platform's object size limit.
	ErrLayoutOverflow = errors.New("flexrec: layout overflow")

	// ErrInvalidAlignment is returned for an alignment that is zero or not a power of two.
	ErrInvalidAlignment = errors.New("flexrec: invalid alignment")

	// ErrAllocationFailed is returned when the allocator cannot supply the region.
	ErrAllocationFailed = errors.New("flexrec: allocation failed")

	// ErrUnsupportedElement is returned for element types that contain pointers.
	ErrUnsupportedElement = errors.New("flexrec: unsupported element type")
)

// LayoutError reports a layout that could not be computed.
//
// The underlying sentinel (ErrLayoutOverflow or ErrInvalidAlignment) can be
// matched with errors.Is.
type LayoutError struct {
	Field     string // field being placed when the computation failed
	ElemSize  uintptr
	ElemAlign uintptr
	Length    uint16
	cause     error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%v: placing %s (element size %d, align %d, length %d)",
		e.cause, e.Field, e.ElemSize, e.ElemAlign, e.Length)
}

func (e *LayoutError) Unwrap() error { return e.cause }

// ConstructionError reports a record that could not be built. Nothing is
// left allocated when it is returned.
type ConstructionError struct {
	ID     uint32
	Length uint16
	cause  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("flexrec: construct record %d with %d elements: %v", e.ID, e.Length, e.cause)
}

func (e *ConstructionError) Unwrap() error { return e.cause }

// panic messages for misuse of a handle
const (
	msgUseAfterFree   = "flexrec: use after Free()"
	msgBorrowedMut    = "flexrec: record is mutably borrowed"
	msgBorrowed       = "flexrec: record is already borrowed"
	msgFreeBorrowed   = "flexrec: Free() while record is borrowed"
	msgUntrackedFree  = "flexrec: free of untracked allocation"
	msgAllocSizeDrift = "flexrec: free with mismatched size or alignment"
)
