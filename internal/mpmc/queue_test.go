package mpmc

import (
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestNewRejectsInvalidCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity uint64
	}{
		{"zero", 0},
		{"one", 1},
		{"not power of two", 3},
		{"not power of two large", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New[int](tt.capacity); err != ErrInvalidCapacity {
				t.Errorf("New(%d) err = %v, want ErrInvalidCapacity", tt.capacity, err)
			}
		})
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	q := MustNew[int](2)
	if ok := q.Push(42); !ok {
		t.Fatal("Push on empty queue returned false")
	}
	v, ok := q.Pop()
	if !ok {
		t.Fatal("Pop returned false after a successful push")
	}
	if v != 42 {
		t.Errorf("Pop() = %d, want 42", v)
	}
}

func TestPopOnEmptyQueue(t *testing.T) {
	q := MustNew[int](2)
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should return ok=false")
	}
}

func TestLenTracksPushesAndPops(t *testing.T) {
	q := MustNew[int](4)
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
	q.Push(1)
	q.Push(2)
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	q.Pop()
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

// TestQueueWrap uses capacity 4 and a mix of pushes that fill, drain,
// and refill the ring; once four values are queued again, further
// pushes fail.
func TestQueueWrap(t *testing.T) {
	q := MustNew[int](4)

	for _, v := range []int{1, 2, 3, 4} {
		if !q.Push(v) {
			t.Fatalf("Push(%d) = false, want true", v)
		}
	}

	pop := func(want int) {
		t.Helper()
		v, ok := q.Pop()
		if !ok || v != want {
			t.Fatalf("Pop() = (%d, %v), want (%d, true)", v, ok, want)
		}
	}
	pop(1)
	pop(2)

	for _, v := range []int{5, 6} {
		if !q.Push(v) {
			t.Fatalf("Push(%d) = false, want true", v)
		}
	}
	if q.Push(7) {
		t.Fatal("Push(7) = true, want false (queue holds 3,4,5,6 and is full)")
	}
	if q.Push(8) {
		t.Fatal("Push(8) = true, want false (queue should be full)")
	}

	for _, want := range []int{3, 4, 5, 6} {
		pop(want)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("queue should be drained")
	}
}

// TestCapacityTwoBoundary exercises the boundary behaviour called out
// in spec.md section 8: after two successful pushes on a capacity-2
// queue, the third push fails until a pop.
func TestCapacityTwoBoundary(t *testing.T) {
	q := MustNew[int](2)
	if !q.Push(1) || !q.Push(2) {
		t.Fatal("first two pushes should succeed")
	}
	if q.Push(3) {
		t.Fatal("third push should fail on a full capacity-2 queue")
	}
	if _, ok := q.Pop(); !ok {
		t.Fatal("pop should succeed")
	}
	if !q.Push(3) {
		t.Fatal("push should succeed again after a pop frees a slot")
	}
}

// TestMPMCContention exercises scenario 5 from spec.md section 8: 8
// producers push 100,000 values each, 8 consumers drain them all, and
// the multiset of popped values must equal the multiset pushed.
func TestMPMCContention(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping contention stress test in short mode")
	}

	const (
		producers     = 8
		perProducer   = 100_000
		consumers     = 8
		totalExpected = producers * perProducer
	)

	q := MustNew[int](1024)

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		p := p
		g.Go(func() error {
			base := p * perProducer
			for i := 0; i < perProducer; i++ {
				for !q.Push(base + i) {
					// backpressure: queue momentarily full, retry
				}
			}
			return nil
		})
	}

	counts := make([]int32, totalExpected)
	var popped atomic.Int64
	for c := 0; c < consumers; c++ {
		g.Go(func() error {
			for {
				if popped.Load() >= totalExpected {
					return nil
				}
				v, ok := q.Pop()
				if !ok {
					continue
				}
				atomic.AddInt32(&counts[v], 1)
				if popped.Add(1) >= totalExpected {
					return nil
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("errgroup.Wait: %v", err)
	}

	for v, c := range counts {
		if c != 1 {
			t.Fatalf("value %d popped %d times, want exactly 1", v, c)
		}
	}
}
