package fiber

import (
	"sync"
	"testing"
)

func TestCurrentIsStableAcrossCalls(t *testing.T) {
	a := Current()
	b := Current()
	if a != b {
		t.Fatal("Current() returned two different handles on the same goroutine")
	}
	if a.State() != StateInUse {
		t.Fatalf("adopted fiber state = %v, want in-use", a.State())
	}
}

func TestCurrentIsPerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	handles := make(chan *Fiber, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles <- Current()
		}()
	}
	wg.Wait()
	close(handles)

	var seen []*Fiber
	for f := range handles {
		seen = append(seen, f)
	}
	if seen[0] == seen[1] {
		t.Fatal("two different goroutines observed the same Current() fiber")
	}
}

// TestSwitchRoundTrip spawns a fiber whose body switches back to its
// caller a fixed number of times, verifying control alternates
// correctly and the spawned fiber observes its own identity via
// Current() once running (spec.md section 8 scenario 3's single
// thread case).
func TestSwitchRoundTrip(t *testing.T) {
	done := make(chan struct{})
	var child *Fiber
	var iterations int
	const wantIterations = 5

	caller := Current()

	child = Spawn(func() {
		self := Current()
		if self != child {
			t.Errorf("fiber body's Current() = %p, want %p", self, child)
		}
		for i := 0; i < wantIterations; i++ {
			iterations++
			caller.SwitchTo()
		}
		close(done)
		// Park forever rather than returning; returning would panic
		// (fiber bodies must not fall off the end) and this goroutine
		// has nothing else to switch to.
		for {
			caller.SwitchTo()
		}
	}, DefaultStackSize)

	for i := 0; i < wantIterations; i++ {
		child.SwitchTo()
	}

	select {
	case <-done:
	default:
		t.Fatal("child fiber did not complete its iterations")
	}
	if iterations != wantIterations {
		t.Fatalf("iterations = %d, want %d", iterations, wantIterations)
	}
}

// TestStackIsWritable exercises spec.md section 8 scenario 6: a
// spawned fiber actually runs on its own stack, which must be large
// enough to hold a reasonably deep call chain without corrupting the
// caller's.
func TestStackIsWritable(t *testing.T) {
	caller := Current()
	var sum int

	var recurse func(depth int) int
	recurse = func(depth int) int {
		var local [256]byte
		local[0] = byte(depth)
		if depth == 0 {
			return int(local[0])
		}
		return int(local[0]) + recurse(depth-1)
	}

	child := Spawn(func() {
		sum = recurse(512)
		caller.SwitchTo()
	}, DefaultStackSize)

	child.SwitchTo()

	if sum == 0 {
		t.Fatal("recursive body on the spawned stack did not run to completion")
	}
}

// TestStackPatternSurvivesSwitch follows spec.md section 8 scenario 6
// more directly than TestStackIsWritable: it writes a recognisable
// pattern at both ends of a spawned fiber's stack, switches away (the
// same suspend point wait_until uses), switches back, and checks the
// pattern is still there -- i.e. the context switch didn't relocate or
// reuse the stack out from under the fiber.
func TestStackPatternSurvivesSwitch(t *testing.T) {
	const (
		bottomMark byte = 0xAB
		topMark    byte = 0xCD
	)

	caller := Current()
	verified := make(chan bool, 1)

	child := Spawn(func() {
		stack := Current().Stack()
		stack[0] = bottomMark
		stack[len(stack)-1] = topMark

		caller.SwitchTo() // the wait_until suspend point

		verified <- stack[0] == bottomMark && stack[len(stack)-1] == topMark
		caller.SwitchTo()
	}, DefaultStackSize)

	child.SwitchTo() // runs up to the first SwitchTo back to us
	child.SwitchTo() // resumes past it and lets it verify

	select {
	case ok := <-verified:
		if !ok {
			t.Fatal("stack pattern did not survive a switch-away/switch-back cycle")
		}
	default:
		t.Fatal("child fiber never reached its verification point")
	}
}

func TestSpawnedFiberStartsDormant(t *testing.T) {
	f := Spawn(func() {}, DefaultStackSize)
	if f.State() != StateDormant {
		t.Fatalf("freshly spawned fiber state = %v, want dormant", f.State())
	}
	if len(f.Stack()) != DefaultStackSize {
		t.Fatalf("stack length = %d, want %d", len(f.Stack()), DefaultStackSize)
	}
}

func TestSwitchToSelfIsNoOp(t *testing.T) {
	f := Current()
	f.SwitchTo()
	if Current() != f {
		t.Fatal("switching to self changed the current fiber")
	}
}
