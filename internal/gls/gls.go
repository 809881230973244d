// Package gls provides a minimal goroutine-local storage slot.
//
// Go has no portable native thread-local-storage primitive (unlike
// the pthread/TLS facilities the original C++ scheduler relies on for
// its "current fiber index", "current fiber handle" and "current
// thread handle" globals — see spec.md's design notes on replacing
// thread-local globals). Each scheduler worker is, however, a single
// goroutine pinned to one OS thread for its entire lifetime
// (runtime.LockOSThread), so a goroutine-id-keyed map is an exact
// substitute: one entry per worker, never touched by any other
// goroutine.
package gls

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var goroutinePrefix = []byte("goroutine ")

// id returns the calling goroutine's runtime-assigned id. This relies
// on the documented-but-unofficial format of runtime.Stack's header
// line; it is a well-known escape hatch (see e.g. the getg/goready
// discussion in third-party lock-free queue implementations) used
// here instead of a go:linkname into runtime internals so this package
// keeps working across Go releases without tracking runtime ABI
// changes.
func id() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := buf[:n]
	line = bytes.TrimPrefix(line, goroutinePrefix)
	if idx := bytes.IndexByte(line, ' '); idx >= 0 {
		line = line[:idx]
	}
	v, _ := strconv.ParseInt(string(line), 10, 64)
	return v
}

// Slot is a typed, goroutine-local variable.
type Slot[T any] struct {
	mu sync.RWMutex
	m  map[int64]T
}

// NewSlot creates an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{m: make(map[int64]T)}
}

// Get returns the value bound to the calling goroutine, if any.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[id()]
	return v, ok
}

// Set binds value to the calling goroutine.
func (s *Slot[T]) Set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id()] = value
}

// Clear removes any value bound to the calling goroutine.
func (s *Slot[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id())
}
