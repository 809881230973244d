package sched

import "sync/atomic"

// Future is a Task that carries a result, produced by running a
// closure through the scheduler. It is sugar over Task plus WaitFor:
// it was present in the original scheduler but dropped by this
// version's distillation, and is reinstated here since it does not
// conflict with any non-goal.
type Future[T any] struct {
	state  atomic.Int32
	result T
}

// Status implements Task.
func (f *Future[T]) Status() TaskState {
	return TaskState(f.state.Load())
}

// Result returns the stored value and true once Status reports
// Complete; otherwise it returns the zero value and false.
func (f *Future[T]) Result() (T, bool) {
	if f.Status() != Complete {
		var zero T
		return zero, false
	}
	return f.result, true
}

func (f *Future[T]) run(body func() T) func() {
	return func() {
		f.state.Store(int32(InProgress))
		f.result = body()
		f.state.Store(int32(Complete))
	}
}

// TaskList is the logical AND of a slice of tasks: Complete iff every
// task is complete, NotStarted iff none have started, InProgress
// otherwise (including the case where some are complete and others
// are not — the list has taken partial progress even if no member task
// individually reports InProgress).
type TaskList struct {
	tasks []Task
}

// NewTaskList wraps a fixed slice of tasks.
func NewTaskList(tasks ...Task) *TaskList {
	return &TaskList{tasks: tasks}
}

func (l *TaskList) Status() TaskState {
	completed := 0
	anyInProgress := false
	for _, t := range l.tasks {
		switch t.Status() {
		case Complete:
			completed++
		case InProgress:
			anyInProgress = true
		}
	}
	if completed == len(l.tasks) {
		return Complete
	}
	if completed > 0 || anyInProgress {
		return InProgress
	}
	return NotStarted
}
