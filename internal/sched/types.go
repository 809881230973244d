// Package sched implements the scheduler core: job queues, the
// waiting-task table, and the per-worker scheduling loop that ties
// fibers, the MPMC queues and worker threads together.
package sched

import "fmt"

// Priority selects which of the three job queues a job lands on.
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// Job is a type-erased, owning callable placed on a priority queue for
// eventual execution by a worker.
type Job func()

// TaskState is the status a Task reports.
type TaskState int32

const (
	NotStarted TaskState = iota
	InProgress
	Complete
)

func (s TaskState) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Task is any object exposing read-only status. The scheduler polls
// it; status transitions to Complete are the job body's own
// responsibility.
type Task interface {
	Status() TaskState
}

var (
	ErrInvalidConfiguration = fmt.Errorf("sched: invalid configuration")
	ErrOutOfMemory          = fmt.Errorf("sched: out of memory")
	ErrQueueOverflow        = fmt.Errorf("sched: job queue is full")
	// ErrWaitingTableFull is reserved for a future version that bounds
	// the waiting-table registration scan; this version retains the
	// unbounded spin-scan described by the scheduler's source
	// behaviour, so nothing currently returns this error.
	ErrWaitingTableFull = fmt.Errorf("sched: waiting table is full")
)

// contextSwitchMisuse reports a broken scheduler invariant, such as
// switching to a running or destroyed fiber. The scheduler's own invariants prevent this from
// ever happening; if it is ever reached it is a scheduler bug, not a
// caller error, so it panics rather than returning an error.
func contextSwitchMisuse(detail string) {
	panic(fmt.Sprintf("sched: context switch misuse: %s", detail))
}
