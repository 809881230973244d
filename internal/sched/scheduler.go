package sched

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvhuy/fiberrt/internal/fiber"
	"github.com/nvhuy/fiberrt/internal/gls"
	"github.com/nvhuy/fiberrt/internal/mpmc"
	"github.com/nvhuy/fiberrt/internal/xid"
)

type schedState int32

const (
	stateStarting schedState = iota
	stateRunning
	stateShuttingDown
)

// Scheduler ties fibers, the priority job queues, and the waiting-task
// table together. It owns the worker array, the fiber array, the
// waiting-task array, all job queues, and the dormant-fiber free list.
type Scheduler struct {
	cfg    Config
	logger Logger
	id     xid.ID

	high, normal, low *mpmc.Queue[Job]

	waitSlots []waitSlot
	vacantIdx *mpmc.Queue[int]

	fibers  []*fiber.Fiber
	dormant *mpmc.Queue[int]

	curFiberIdx *gls.Slot[int]

	// homeFiber records, for each worker goroutine, the fiber index it
	// adopted in runWorkerThread. Unlike curFiberIdx (which moves every
	// time this goroutine switches fibers), homeFiber never changes for
	// the lifetime of the goroutine -- it is how a dormant fiber running
	// on this goroutine finds its way back to the one call frame that
	// can safely return out of workerMain (see workerMain's shutdown
	// branch).
	homeFiber *gls.Slot[int]

	state     atomic.Int32
	readyWG   sync.WaitGroup
	workersWG sync.WaitGroup
	shutdown  sync.Once
}

// New validates cfg, builds the queues, the waiting table and the
// fiber array, and starts one worker goroutine per ThreadCount. It
// blocks until every worker has registered its adopted fiber, at which
// point the scheduler is running.
//
// The original source's slot-0 worker is the thread that called init;
// this port instead gives every worker, including slot 0, its own
// goroutine, so that New returns control to the caller rather than
// itself becoming the scheduling loop for the calling goroutine (see
// DESIGN.md).
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	high, err := mpmc.New[Job](uint64(cfg.HighPriorityCap))
	if err != nil {
		return nil, fmt.Errorf("%w: high priority queue: %v", ErrInvalidConfiguration, err)
	}
	normal, err := mpmc.New[Job](uint64(cfg.NormalPriorityCap))
	if err != nil {
		return nil, fmt.Errorf("%w: normal priority queue: %v", ErrInvalidConfiguration, err)
	}
	low, err := mpmc.New[Job](uint64(cfg.LowPriorityCap))
	if err != nil {
		return nil, fmt.Errorf("%w: low priority queue: %v", ErrInvalidConfiguration, err)
	}

	vacantIdx := mpmc.MustNew[int](uint64(nextPowerOfTwo(cfg.WaitingCount)))
	for i := 0; i < cfg.WaitingCount; i++ {
		vacantIdx.Push(i)
	}

	s := &Scheduler{
		cfg:         cfg,
		logger:      logger,
		id:          xid.New(),
		high:        high,
		normal:      normal,
		low:         low,
		waitSlots:   make([]waitSlot, cfg.WaitingCount),
		vacantIdx:   vacantIdx,
		fibers:      make([]*fiber.Fiber, cfg.FiberCount),
		dormant:     mpmc.MustNew[int](uint64(nextPowerOfTwo(cfg.FiberCount))),
		curFiberIdx: gls.NewSlot[int](),
		homeFiber:   gls.NewSlot[int](),
	}

	for i := cfg.ThreadCount; i < cfg.FiberCount; i++ {
		idx := i
		s.fibers[idx] = fiber.Spawn(func() { s.workerMain(idx) }, fiber.DefaultStackSize)
		s.dormant.Push(idx)
	}

	s.readyWG.Add(cfg.ThreadCount)
	s.workersWG.Add(cfg.ThreadCount)
	for i := 0; i < cfg.ThreadCount; i++ {
		idx := i
		go s.runWorkerThread(idx)
	}
	s.readyWG.Wait()
	s.state.Store(int32(stateRunning))

	s.logger.Printf("sched: scheduler_id=%s started thread_count=%d fiber_count=%d waiting_count=%d",
		s.id, cfg.ThreadCount, cfg.FiberCount, cfg.WaitingCount)
	return s, nil
}

// runWorkerThread is the body of a worker's OS thread: it pins the
// goroutine to its OS thread (the context-switch assembly pivots that
// thread's real stack pointer, so the goroutine must never migrate
// mid-fiber), adopts the goroutine's own stack as its fiber, publishes
// readiness, and runs the scheduling loop.
func (s *Scheduler) runWorkerThread(idx int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer s.workersWG.Done()

	s.fibers[idx] = fiber.Current()
	s.curFiberIdx.Set(idx)
	s.homeFiber.Set(idx)
	s.readyWG.Done()
	s.workerMain(idx)
}

// workerMain is both the body every worker goroutine calls directly
// for its adopted fiber, and the spawn entry for every dormant fiber
// (see New). idx is fixed for the lifetime of whichever physical fiber
// stack is executing this call: a dormant fiber resumed on a different
// worker thread still reports the same idx it was spawned with.
func (s *Scheduler) workerMain(idx int) {
	for {
		if schedState(s.state.Load()) == stateShuttingDown {
			if job, ok := s.high.Pop(); ok {
				job()
				continue
			}
			if job, ok := s.normal.Pop(); ok {
				job()
				continue
			}
			if job, ok := s.low.Pop(); ok {
				job()
				continue
			}

			home, ok := s.homeFiber.Get()
			if ok && home != idx {
				// This workerMain call is running as the body of a
				// spawned fiber's entry closure (see New), which must
				// never return -- internal/fiber panics if an entry
				// closure falls off the end. Only the home fiber's
				// call, nested directly inside runWorkerThread, can
				// unwind cleanly, so hand control back to it instead.
				s.curFiberIdx.Set(home)
				s.fibers[home].SwitchTo()
				// Unreachable: once every worker is draining toward
				// shutdown nothing ever switches back to this fiber.
			}
			return
		}

		for schedState(s.state.Load()) == stateStarting {
			runtime.Gosched()
		}

		if job, ok := s.high.Pop(); ok {
			job()
			continue
		}
		if s.scanWaiters(idx) {
			continue
		}
		if job, ok := s.normal.Pop(); ok {
			job()
			continue
		}
		if job, ok := s.low.Pop(); ok {
			job()
			continue
		}
		runtime.Gosched()
	}
}

// scanWaiters implements the resumption half of the waiting-task
// protocol (spec.md section 4.5): it looks for a Filled slot whose
// task has completed and, if found, hands this worker's current fiber
// to the dormant free list and switches to the waiter. It returns true
// exactly when a switch happened, meaning this call did not return
// until some later switch targeted fiber idx again.
func (s *Scheduler) scanWaiters(idx int) bool {
	for i := range s.waitSlots {
		slot := &s.waitSlots[i]
		if !slot.tryAcquire(waitFilled) {
			continue
		}
		inner := slot.inner
		ready := inner.task.Status() == Complete
		if inner.hasThread {
			// Thread-pinned waits are not reachable in this version:
			// wait registration never sets hasThread (see DESIGN.md).
			ready = false
		}
		if !ready {
			slot.release(waitFilled)
			continue
		}

		slot.inner = waitInner{}
		slot.release(waitVacant)
		s.vacantIdx.Push(i)
		s.dormant.Push(idx)

		target := inner.fiber
		s.curFiberIdx.Set(target)
		s.fibers[target].SwitchTo()
		return true
	}
	return false
}

// WaitFor suspends the calling fiber until task reports Complete.
func (s *Scheduler) WaitFor(task Task) bool {
	return s.WaitUntil(0, task)
}

// WaitUntil is WaitFor with a duration that is accepted but, in this
// version, never consulted (spec.md section 9 open question 1).
//
// A worker fiber calling this suspends by registering itself in the
// waiting-task table and switching to a dormant fiber, freeing its
// worker thread to keep running other jobs in the meantime. A caller
// with no registered current fiber -- New's own caller, a CLI command,
// a test goroutine -- has no fiber to suspend that way, so it instead
// polls task directly until it reports Complete.
func (s *Scheduler) WaitUntil(_ time.Duration, task Task) bool {
	callerIdx, ok := s.curFiberIdx.Get()
	if !ok {
		for task.Status() != Complete {
			runtime.Gosched()
		}
		return true
	}

	var dormantIdx int
	for {
		if v, ok := s.dormant.Pop(); ok {
			dormantIdx = v
			break
		}
		runtime.Gosched()
	}

	var slotIdx int
	for {
		if v, ok := s.vacantIdx.Pop(); ok {
			slotIdx = v
			break
		}
		runtime.Gosched()
	}
	if !s.waitSlots[slotIdx].tryAcquire(waitVacant) {
		contextSwitchMisuse("waiting slot popped from the vacant-index free list was not actually vacant")
	}

	s.waitSlots[slotIdx].inner = waitInner{task: task, fiber: callerIdx}
	s.waitSlots[slotIdx].release(waitFilled)

	s.curFiberIdx.Set(dormantIdx)
	s.fibers[dormantIdx].SwitchTo()
	return true
}

// IsRunning reports whether the scheduler is running: every worker has
// registered as ready and Shutdown has not been called.
func (s *Scheduler) IsRunning() bool {
	return schedState(s.state.Load()) == stateRunning
}

// Enqueue places job on the normal priority queue.
func (s *Scheduler) Enqueue(job Job) error {
	return s.EnqueuePriority(Normal, job)
}

// EnqueuePriority places job on the queue selected by p. It returns
// ErrQueueOverflow if that queue is full (spec.md section 9 decision
// 2: overflow is surfaced rather than silently dropped).
func (s *Scheduler) EnqueuePriority(p Priority, job Job) error {
	var q *mpmc.Queue[Job]
	switch p {
	case High:
		q = s.high
	case Low:
		q = s.low
	default:
		q = s.normal
	}
	if !q.Push(job) {
		return ErrQueueOverflow
	}
	return nil
}

func (s *Scheduler) enqueueSpin(p Priority, job Job) {
	for {
		if err := s.EnqueuePriority(p, job); err == nil {
			return
		}
		runtime.Gosched()
	}
}

// Schedule runs f on the normal queue and returns a Future completed
// once f returns.
func (s *Scheduler) Schedule(f func()) *Future[struct{}] {
	fut := &Future[struct{}]{}
	s.enqueueSpin(Normal, fut.run(func() struct{} {
		f()
		return struct{}{}
	}))
	return fut
}

// Schedule runs f at priority p and returns a Future carrying its
// result. It is a package-level function, not a method, because Go
// methods cannot introduce new type parameters.
func Schedule[T any](s *Scheduler, p Priority, f func() T) *Future[T] {
	fut := &Future[T]{}
	s.enqueueSpin(p, fut.run(f))
	return fut
}

// Stats is a point-in-time snapshot of scheduler counters, for
// diagnostics only (mirrors the original source's SchedulerStats /
// EventLoop.Stats diagnostic counters, adapted to this scheduler's
// shape).
type Stats struct {
	ID             string
	ThreadCount    int
	FiberCount     int
	WaitingCount   int
	WaitingFilled  int
	HighQueueLen   int
	NormalQueueLen int
	LowQueueLen    int
}

// Stats returns a snapshot of the scheduler's current counters. Queue
// lengths and the filled-waiting-slot count are approximate under
// concurrent activity; this call never blocks and never participates
// in the scheduling protocol itself.
func (s *Scheduler) Stats() Stats {
	filled := 0
	for i := range s.waitSlots {
		if waitState(s.waitSlots[i].state.Load()) == waitFilled {
			filled++
		}
	}
	return Stats{
		ID:             s.id.String(),
		ThreadCount:    s.cfg.ThreadCount,
		FiberCount:     s.cfg.FiberCount,
		WaitingCount:   s.cfg.WaitingCount,
		WaitingFilled:  filled,
		HighQueueLen:   s.high.Len(),
		NormalQueueLen: s.normal.Len(),
		LowQueueLen:    s.low.Len(),
	}
}

// Shutdown transitions the scheduler to ShuttingDown: every worker
// drains its priority queues and then returns from workerMain instead
// of looping forever. This is the redesign applied to spec.md section
// 9 open question 5, which the original source never wires to a real
// entry point. It blocks until every worker has exited or ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		s.state.Store(int32(stateShuttingDown))
	})

	done := make(chan struct{})
	go func() {
		s.workersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
