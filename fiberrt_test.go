package fiberrt

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func smallConfig() Config {
	return Config{
		ThreadCount:       2,
		FiberCount:        4,
		WaitingCount:      2,
		HighPriorityCap:   8,
		NormalPriorityCap: 8,
		LowPriorityCap:    8,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("New(Config{}) should reject zero counts")
	}
}

func TestEndToEndScheduleAndWait(t *testing.T) {
	s, err := New(smallConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown(context.Background())

	if !s.IsRunning() {
		t.Fatal("IsRunning() = false immediately after New")
	}

	var ran atomic.Bool
	fut := s.Schedule(func() { ran.Store(true) })
	if !s.WaitFor(fut) {
		t.Fatal("WaitFor returned false")
	}
	if !ran.Load() {
		t.Fatal("scheduled closure did not run")
	}
}

func TestEndToEndScheduleWithResult(t *testing.T) {
	s, err := New(smallConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown(context.Background())

	fut := Schedule(s, High, func() string { return "done" })
	if !s.WaitUntil(time.Second, fut) {
		t.Fatal("WaitUntil returned false")
	}
	v, ok := fut.Result()
	if !ok || v != "done" {
		t.Fatalf("Result() = (%q, %v), want (\"done\", true)", v, ok)
	}
}

func TestEnqueueOverflowSurfacesError(t *testing.T) {
	cfg := smallConfig()
	cfg.ThreadCount = 1
	cfg.FiberCount = 2
	cfg.NormalPriorityCap = 2
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Shutdown(context.Background())

	block := make(chan struct{})
	s.EnqueuePriority(High, func() { <-block })

	var lastErr error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		lastErr = s.EnqueuePriority(Normal, func() {})
		if lastErr == ErrQueueOverflow {
			break
		}
	}
	close(block)
	if lastErr != ErrQueueOverflow {
		t.Fatalf("EnqueuePriority = %v, want ErrQueueOverflow", lastErr)
	}
}

func TestShutdownStopsScheduler(t *testing.T) {
	s, err := New(smallConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("IsRunning() true after Shutdown")
	}
}
