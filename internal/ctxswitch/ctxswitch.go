// Package ctxswitch implements the architecture-specific stackful
// context switch primitive: save the caller's callee-saved registers
// and stack pointer, then load another saved set and resume there.
//
// This is the leaf dependency of the whole scheduler: Context Switch ->
// Fiber -> MPMC Queue -> (Worker | Waiting Table) -> Scheduler Core.
package ctxswitch

import "reflect"

// Entry is invoked, with no arguments, the first time Switch transfers
// control into a freshly seeded fiber. internal/fiber assigns this
// exactly once, before any fiber is spawned; it resolves "which fiber
// is this" itself, since the Go-level caller of Switch already knows
// which *Fiber it targeted and records that before ever touching
// assembly (see internal/fiber's (*Fiber).SwitchTo) — the asm
// trampoline never needs to carry a spawn argument through registers.
var Entry func()

// entryTrampoline is the architecture-specific asm stub pre-seeded as
// a fiber's initial resume point (see registers_<arch>.go's Seed). It
// is reached only via a raw register-level jump out of Switch, never
// called, and must never return.
func entryTrampoline()

func trampolinePC() uintptr {
	return reflect.ValueOf(entryTrampoline).Pointer()
}

// Switch saves the currently running register state into from and
// loads the register state in to, transferring control to to's saved
// resume address (on amd64 the return address on top of the stack at
// to.Rsp, on arm64 to.Lr). For a freshly seeded fiber that is
// entryTrampoline; otherwise it is the instruction following whichever
// Switch call last saved into to.
//
// Switch cannot fail. Calling it with a nil, already-running, or
// destroyed register block is undefined behavior; callers (internal/fiber
// and internal/sched) are responsible for never doing so.
func Switch(from, to *Registers) {
	switchTo(from, to)
}

//go:noescape
func switchTo(from, to *Registers)

// goEntry is the landing point the asm trampolines call back into.
func goEntry() {
	Entry()
}
