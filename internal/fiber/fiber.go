// Package fiber implements a stackful userspace coroutine: a saved
// register set plus, for spawned fibers, an owned stack. See spec.md
// section 4.2.
package fiber

import (
	"fmt"
	"sync/atomic"

	"github.com/nvhuy/fiberrt/internal/ctxswitch"
	"github.com/nvhuy/fiberrt/internal/gls"
)

// DefaultStackSize is the stack size a spawned fiber gets when its
// caller does not request one explicitly.
const DefaultStackSize = 1 << 20 // 1 MiB

// State mirrors the three-value state machine the original source
// keeps per fiber: InUse while it is the one running, Dormant while it
// sits on the scheduler's free list, and a narrow Switching window
// while ownership is being handed off. Nothing in this port inspects
// Switching directly (the waiting-task table and dormant free list
// already serialize ownership — see internal/sched), but the field is
// kept for parity with the source and for diagnostics.
type State int32

const (
	StateDormant State = iota
	StateSwitching
	StateInUse
)

func (s State) String() string {
	switch s {
	case StateDormant:
		return "dormant"
	case StateSwitching:
		return "switching"
	case StateInUse:
		return "in-use"
	default:
		return "unknown"
	}
}

// Fiber is a handle to a suspendable execution context.
type Fiber struct {
	regs  ctxswitch.Registers
	stack []byte // nil for an adopted fiber
	entry func()
	state atomic.Int32
}

var current = gls.NewSlot[*Fiber]()

func init() {
	ctxswitch.Entry = runEntry
}

// Spawn allocates a fresh stack, heap-allocates entry, and pre-seeds
// the fiber's register block so that its first SwitchTo invokes entry
// via the architecture's trampoline (ctxswitch.entryTrampoline). entry
// must not return normally for a well-behaved scheduler fiber: worker
// loop bodies loop until shutdown (spec.md section 4.1's "control must
// never fall out of fiber_entry").
func Spawn(entry func(), stackSize int) *Fiber {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	f := &Fiber{
		stack: make([]byte, stackSize),
		entry: entry,
	}
	f.state.Store(int32(StateDormant))
	ctxswitch.Seed(&f.regs, f.stack)
	return f
}

// Current returns a handle to the fiber currently executing on the
// calling goroutine, lazily constructing an adopted fiber (a
// zero-initialised register block standing in for whatever native
// stack this goroutine happens to be running on) on first use.
func Current() *Fiber {
	if f, ok := current.Get(); ok {
		return f
	}
	f := &Fiber{}
	f.state.Store(int32(StateInUse))
	current.Set(f)
	return f
}

// State reports the fiber's current lifecycle state.
func (f *Fiber) State() State {
	return State(f.state.Load())
}

// Stack returns the fiber's backing stack buffer, or nil for an
// adopted fiber. Exposed for stack-integrity testing; ordinary callers
// never need it.
func (f *Fiber) Stack() []byte {
	return f.stack
}

// SwitchTo performs the context switch described in spec.md section
// 4.1: it saves the calling fiber's state and resumes f. When this
// call returns, the calling fiber is running again (some other switch
// resumed it).
func (f *Fiber) SwitchTo() {
	caller := Current()
	if caller == f {
		return
	}
	caller.state.Store(int32(StateDormant))
	f.state.Store(int32(StateSwitching))
	current.Set(f)
	ctxswitch.Switch(&caller.regs, &f.regs)
	// Control only reaches here once some other SwitchTo targets
	// `caller` again; that call already re-pinned `caller` as current
	// before invoking the asm switch.
	caller.state.Store(int32(StateInUse))
}

func runEntry() {
	f, ok := current.Get()
	if !ok {
		panic("fiber: entry trampoline reached with no current fiber bound")
	}
	f.state.Store(int32(StateInUse))
	entry := f.entry
	f.entry = nil
	if entry == nil {
		panic("fiber: spawned fiber has no entry closure")
	}
	entry()
	panic(fmt.Sprintf("fiber: entry closure returned on fiber %p; fiber bodies must never return", f))
}
