// Command fiberrt drives demo and benchmark workloads against the
// fiberrt scheduler so the library has an exercised entry point, the
// same way the teacher's own main.go drives its JVM.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fiberrt",
	Short: "Drive the fiberrt fiber scheduler",
	Long:  `fiberrt is a fiber-based M:N task scheduler. This CLI runs demo job graphs, benchmarks, and prints live scheduler counters against it.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML scheduler config (see cmd/fiberrt/config.go)")
	rootCmd.PersistentFlags().IntVar(&flagThreadCount, "threads", 4, "worker thread count")
	rootCmd.PersistentFlags().IntVar(&flagFiberCount, "fibers", 16, "fiber pool size (must be > threads)")
	rootCmd.PersistentFlags().IntVar(&flagWaitingCount, "waiting", 8, "waiting-task table size")
	rootCmd.PersistentFlags().IntVar(&flagQueueCap, "queue-cap", 256, "capacity of each priority job queue (power of two)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
