// Package fiberrt is a fiber-based M:N task scheduler: a
// user-configurable pool of cooperatively-scheduled fibers multiplexed
// across a fixed pool of worker threads, dispatching prioritised jobs
// and offering a wait primitive that suspends a running fiber until an
// externally-observable Task reports completion.
//
// The implementation lives under internal/ (context switching, the
// fiber type, the bounded MPMC queue, and the scheduler core); this
// package is a thin public façade over internal/sched.
package fiberrt

import (
	"context"
	"time"

	"github.com/nvhuy/fiberrt/internal/sched"
)

// Priority selects which of the three job queues a job lands on.
type Priority = sched.Priority

const (
	Low    = sched.Low
	Normal = sched.Normal
	High   = sched.High
)

// Job is a type-erased, owning callable placed on a priority queue for
// eventual execution by a worker.
type Job = sched.Job

// TaskState is the status a Task reports.
type TaskState = sched.TaskState

const (
	NotStarted = sched.NotStarted
	InProgress = sched.InProgress
	Complete   = sched.Complete
)

// Task is any object exposing read-only status. The scheduler polls
// it; status transitions to Complete are the job body's own
// responsibility.
type Task = sched.Task

// Future is a Task that carries a result produced by running a
// closure through the scheduler.
type Future[T any] = sched.Future[T]

// TaskList is the logical AND of a slice of tasks.
type TaskList = sched.TaskList

// NewTaskList wraps a fixed slice of tasks as a single Task.
func NewTaskList(tasks ...Task) *TaskList {
	return sched.NewTaskList(tasks...)
}

// Logger is the minimal structured-logging surface the scheduler
// needs; *log.Logger satisfies it without adaptation.
type Logger = sched.Logger

// Error sentinels, matching spec.md section 7's error taxonomy.
var (
	ErrInvalidConfiguration = sched.ErrInvalidConfiguration
	ErrOutOfMemory          = sched.ErrOutOfMemory
	ErrQueueOverflow        = sched.ErrQueueOverflow
	ErrWaitingTableFull     = sched.ErrWaitingTableFull
)

// Config holds the counts validated and consumed by New.
type Config = sched.Config

// Scheduler multiplexes fibers across worker threads, dispatching
// prioritised jobs and hosting the wait_until suspension primitive.
type Scheduler struct {
	core *sched.Scheduler
}

// New validates cfg and starts the scheduler: one worker goroutine per
// ThreadCount, a fiber pool of FiberCount (the first ThreadCount slots
// adopting each worker's own stack, the rest pre-spawned and dormant),
// and a waiting-task table of WaitingCount slots. It blocks until every
// worker has registered as ready.
func New(cfg Config) (*Scheduler, error) {
	core, err := sched.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Scheduler{core: core}, nil
}

// IsRunning reports whether the scheduler is running: every worker has
// registered as ready and Shutdown has not been called.
func (s *Scheduler) IsRunning() bool {
	return s.core.IsRunning()
}

// Enqueue places job on the normal priority queue. It returns
// ErrQueueOverflow if that queue is full.
func (s *Scheduler) Enqueue(job Job) error {
	return s.core.Enqueue(job)
}

// EnqueuePriority places job on the queue selected by p. It returns
// ErrQueueOverflow if that queue is full.
func (s *Scheduler) EnqueuePriority(p Priority, job Job) error {
	return s.core.EnqueuePriority(p, job)
}

// WaitFor suspends the calling fiber until task reports Complete.
func (s *Scheduler) WaitFor(task Task) bool {
	return s.core.WaitFor(task)
}

// WaitUntil suspends the calling fiber until task reports Complete.
// duration is accepted but, in this version, never consulted (spec.md
// section 9 open question 1).
func (s *Scheduler) WaitUntil(duration time.Duration, task Task) bool {
	return s.core.WaitUntil(duration, task)
}

// Schedule runs f on the normal queue and returns a Future completed
// once f returns.
func (s *Scheduler) Schedule(f func()) *Future[struct{}] {
	return s.core.Schedule(f)
}

// Schedule runs f at priority p and returns a Future carrying its
// result. It is a package-level function because Go methods cannot
// introduce new type parameters.
func Schedule[T any](s *Scheduler, p Priority, f func() T) *Future[T] {
	return sched.Schedule(s.core, p, f)
}

// Shutdown transitions the scheduler to ShuttingDown: every worker
// drains its priority queues and then exits instead of looping
// forever. It blocks until every worker has exited or ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	return s.core.Shutdown(ctx)
}

// Stats is a point-in-time diagnostic snapshot of scheduler counters.
type Stats = sched.Stats

// Stats returns a snapshot of the scheduler's current counters.
func (s *Scheduler) Stats() Stats {
	return s.core.Stats()
}
