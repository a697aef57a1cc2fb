package flexrec

// borrowState tracks the views currently open on a record: any number of
// shared views, or exactly one exclusive view.
type borrowState struct {
	n int // shared view count, or exclusiveBorrow
}

const exclusiveBorrow = -1

func (b *borrowState) acquireShared() {
	if b.n == exclusiveBorrow {
		panic(msgBorrowedMut)
	}
	b.n++
}

func (b *borrowState) releaseShared() {
	b.n--
}

func (b *borrowState) acquireExclusive() {
	if b.n != 0 {
		panic(msgBorrowed)
	}
	b.n = exclusiveBorrow
}

func (b *borrowState) releaseExclusive() {
	b.n = 0
}

func (b *borrowState) active() bool {
	return b.n != 0
}
