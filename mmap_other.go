//go:build !unix

package flexrec

import "errors"

func newMmapAllocator() (Allocator, error) {
	return nil, errors.New("flexrec: mmap allocator is not available on this platform")
}
