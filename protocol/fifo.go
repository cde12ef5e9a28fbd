package protocol

import (
	"slices"
	"sync/atomic"
)

// FifoArray is a single-producer single-consumer ring over a power-of-two
// backing array. Indices run over [0, 2N) so that empty (wr == rd) and full
// (wr == rd^N) are told apart without a count field or a spare slot.
//
// Push only stores the write index and Pop only stores the read index, so
// one producer and one consumer may run concurrently (e.g. an interrupt
// handler and the main loop). Linearize moves both and must not overlap
// with either side.
type FifoArray[T any] struct {
	buf  []T
	n    uint32 // capacity
	wrap uint32 // 2N-1
	wr   atomic.Uint32
	rd   atomic.Uint32
}

// NewFifoArray allocates a ring of the given capacity, which must be a
// power of two.
func NewFifoArray[T any](capacity int) *FifoArray[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("fifo: capacity must be a power of two")
	}
	return &FifoArray[T]{
		buf:  make([]T, capacity),
		n:    uint32(capacity),
		wrap: uint32(2*capacity - 1),
	}
}

func (f *FifoArray[T]) Capacity() int { return int(f.n) }

func (f *FifoArray[T]) Empty() bool { return f.wr.Load() == f.rd.Load() }

func (f *FifoArray[T]) Full() bool { return f.wr.Load()^f.n == f.rd.Load() }

func (f *FifoArray[T]) Size() int {
	return int((f.wr.Load() - f.rd.Load()) & f.wrap)
}

// Push appends v, returning false when the ring is full.
func (f *FifoArray[T]) Push(v T) bool {
	wr := f.wr.Load()
	if wr^f.n == f.rd.Load() {
		return false
	}
	f.buf[wr&(f.n-1)] = v
	f.wr.Store((wr + 1) & f.wrap)
	return true
}

// Pop removes the oldest element, returning false when the ring is empty.
func (f *FifoArray[T]) Pop() (T, bool) {
	var zero T
	rd := f.rd.Load()
	if rd == f.wr.Load() {
		return zero, false
	}
	v := f.buf[rd&(f.n-1)]
	f.buf[rd&(f.n-1)] = zero
	f.rd.Store((rd + 1) & f.wrap)
	return v, true
}

// Peek returns the oldest element without removing it.
func (f *FifoArray[T]) Peek() (T, bool) {
	rd := f.rd.Load()
	if rd == f.wr.Load() {
		var zero T
		return zero, false
	}
	return f.buf[rd&(f.n-1)], true
}

// PushSlice appends as many of vs as fit and returns how many were taken.
func (f *FifoArray[T]) PushSlice(vs []T) int {
	for i, v := range vs {
		if !f.Push(v) {
			return i
		}
	}
	return len(vs)
}

// Discard drops up to k elements from the front.
func (f *FifoArray[T]) Discard(k int) int {
	size := f.Size()
	if k > size {
		k = size
	}
	if k > 0 {
		f.rd.Store((f.rd.Load() + uint32(k)) & f.wrap)
	}
	return k
}

// IsLinearized reports whether the occupied range is physically contiguous.
func (f *FifoArray[T]) IsLinearized() bool {
	wr, rd := f.wr.Load(), f.rd.Load()
	if wr == rd {
		return true
	}
	return (wr-1)&(f.n-1) >= rd&(f.n-1)
}

// Linearize rotates the backing array so the occupied range is contiguous,
// picking the rotation that keeps the indices closest to their current
// values. The result of Slice stays valid until the next Push or Pop.
func (f *FifoArray[T]) Linearize() {
	if f.IsLinearized() {
		return
	}
	wr, rd := f.wr.Load(), f.rd.Load()
	wrHops := wr & (f.n - 1)
	rdHops := f.n - rd&(f.n-1)
	if wrHops <= rdHops {
		rotateLeft(f.buf, int(wrHops))
		wr -= wrHops
		rd -= wrHops
	} else {
		rotateLeft(f.buf, int(f.n-rdHops))
		wr += rdHops
		rd += rdHops
	}
	f.rd.Store(rd & f.wrap)
	f.wr.Store(wr & f.wrap)
}

// Slice returns the contiguous run starting at the read position. After
// Linearize it covers the whole content, so len(Slice()) == Size().
func (f *FifoArray[T]) Slice() []T {
	begin := f.rd.Load() & (f.n - 1)
	end := begin + uint32(f.Size())
	if end > f.n {
		end = f.n
	}
	return f.buf[begin:end]
}

// Reset empties the ring. Not safe against a concurrent producer.
func (f *FifoArray[T]) Reset() {
	clear(f.buf)
	f.rd.Store(0)
	f.wr.Store(0)
}

// rotateLeft moves s[k:] to the front in place.
func rotateLeft[T any](s []T, k int) {
	if k == 0 || k == len(s) {
		return
	}
	slices.Reverse(s[:k])
	slices.Reverse(s[k:])
	slices.Reverse(s)
}
