package protocol

import (
	"runtime"
	"sync"
	"testing"
)

func TestFifoArrayFullAndEmpty(t *testing.T) {
	const n = 8
	f := NewFifoArray[int](n)

	if !f.Empty() || f.Full() {
		t.Fatal("New FifoArray should be empty and not full")
	}
	for i := 0; i < n; i++ {
		if !f.Push(i) {
			t.Fatalf("Push %d failed before capacity", i)
		}
	}
	if !f.Full() {
		t.Error("Expected Full() after pushing capacity elements")
	}
	if f.Push(99) {
		t.Error("Expected push past capacity to fail")
	}
	if f.Size() != n {
		t.Errorf("Expected size %d, got %d", n, f.Size())
	}
	for i := 0; i < n; i++ {
		v, ok := f.Pop()
		if !ok || v != i {
			t.Errorf("Expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
	if !f.Empty() {
		t.Error("Expected Empty() after popping everything")
	}
	if _, ok := f.Pop(); ok {
		t.Error("Expected pop from empty ring to fail")
	}
}

func TestFifoArrayRejectsOddCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for non power-of-two capacity")
		}
	}()
	NewFifoArray[byte](6)
}

func TestFifoArrayLinearize(t *testing.T) {
	const n = 8
	// every combination of read offset and fill level
	for offset := 0; offset < 2*n; offset++ {
		for fill := 0; fill <= n; fill++ {
			f := NewFifoArray[int](n)
			for i := 0; i < offset; i++ {
				f.Push(-1)
				f.Pop()
			}
			for i := 0; i < fill; i++ {
				f.Push(i)
			}

			f.Linearize()
			if !f.IsLinearized() {
				t.Errorf("offset=%d fill=%d: not linearized", offset, fill)
			}
			s := f.Slice()
			if len(s) != f.Size() || f.Size() != fill {
				t.Errorf("offset=%d fill=%d: expected slice length %d, got %d", offset, fill, fill, len(s))
				continue
			}
			for i, v := range s {
				if v != i {
					t.Errorf("offset=%d fill=%d: expected s[%d]=%d, got %d", offset, fill, i, i, v)
				}
			}
			// the ring keeps working after rotation
			for i := fill; i < n; i++ {
				f.Push(i)
			}
			for i := 0; i < n; i++ {
				if v, _ := f.Pop(); v != i {
					t.Errorf("offset=%d fill=%d: expected pop %d, got %d", offset, fill, i, v)
				}
			}
		}
	}
}

func TestFifoArrayPushSliceDiscard(t *testing.T) {
	f := NewFifoArray[byte](4)
	if n := f.PushSlice([]byte{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Errorf("Expected 4 bytes taken, got %d", n)
	}
	if n := f.Discard(3); n != 3 {
		t.Errorf("Expected 3 discarded, got %d", n)
	}
	if v, _ := f.Peek(); v != 4 {
		t.Errorf("Expected head 4, got %d", v)
	}
	if n := f.Discard(10); n != 1 {
		t.Errorf("Expected 1 discarded, got %d", n)
	}
	if !f.Empty() {
		t.Error("Expected empty ring")
	}
}

func TestFifoArrayConcurrentProducerConsumer(t *testing.T) {
	const total = 10000
	f := NewFifoArray[uint32](16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint32(0); i < total; {
			if f.Push(i) {
				i++
			} else {
				runtime.Gosched()
			}
		}
	}()

	for want := uint32(0); want < total; {
		v, ok := f.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if v != want {
			t.Fatalf("Expected %d, got %d", want, v)
		}
		want++
	}
	wg.Wait()
}
