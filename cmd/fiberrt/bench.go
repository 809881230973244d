package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nvhuy/fiberrt"
)

var (
	benchProducers   int
	benchPerProducer int
	benchConcurrency int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load-generate jobs against the scheduler and report throughput",
	Long: `bench fans out --producers goroutines, each enqueuing
--per-producer jobs at normal priority, gated by a weighted semaphore
so producers don't oversubscribe the scheduler's queues -- the same
throttling shape sourcegraph-zoekt's shard scheduler uses to bound
concurrent searches, applied here to bound concurrent producers.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchProducers, "producers", 8, "concurrent producer goroutines")
	benchCmd.Flags().IntVar(&benchPerProducer, "per-producer", 10_000, "jobs enqueued per producer")
	benchCmd.Flags().Int64Var(&benchConcurrency, "concurrency", 4, "max producers admitted to enqueue at once")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	sched, err := fiberrt.New(cfg)
	if err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Shutdown(context.Background())

	var completed atomic.Int64
	start := time.Now()

	throttle := semaphore.NewWeighted(benchConcurrency)
	g, ctx := errgroup.WithContext(cmd.Context())

	for p := 0; p < benchProducers; p++ {
		g.Go(func() error {
			if err := throttle.Acquire(ctx, 1); err != nil {
				return err
			}
			defer throttle.Release(1)

			for i := 0; i < benchPerProducer; i++ {
				for {
					err := sched.EnqueuePriority(fiberrt.Normal, func() {
						completed.Add(1)
					})
					if err == nil {
						break
					}
					if err != fiberrt.ErrQueueOverflow {
						return err
					}
					time.Sleep(time.Microsecond)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bench producers: %w", err)
	}

	total := int64(benchProducers) * int64(benchPerProducer)
	for completed.Load() < total {
		time.Sleep(time.Millisecond)
	}

	elapsed := time.Since(start)
	fmt.Printf("enqueued=%d completed=%d elapsed=%s jobs/sec=%.0f\n",
		total, completed.Load(), elapsed, float64(total)/elapsed.Seconds())
	return nil
}
