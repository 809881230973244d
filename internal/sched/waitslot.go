package sched

import "sync/atomic"

type waitState int32

const (
	waitVacant waitState = iota
	waitUpdating
	waitFilled
)

// waitInner is valid only while the owning slot's state is Filled.
// thread is always left unset in this version: the data model carries
// it for thread-pinned waits, but no entry point sets it (see
// DESIGN.md's decision on this open question).
type waitInner struct {
	task      Task
	fiber     int
	thread    int64
	hasThread bool
}

// waitSlot is one entry of the waiting-task table: a small
// Vacant/Updating/Filled state machine guarding inner.
type waitSlot struct {
	state atomic.Int32
	inner waitInner
}

func (s *waitSlot) tryAcquire(from waitState) bool {
	return s.state.CompareAndSwap(int32(from), int32(waitUpdating))
}

func (s *waitSlot) release(to waitState) {
	s.state.Store(int32(to))
}
