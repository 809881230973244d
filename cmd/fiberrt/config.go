package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvhuy/fiberrt"
)

var (
	configPath       string
	flagThreadCount  int
	flagFiberCount   int
	flagWaitingCount int
	flagQueueCap     int
)

// fileConfig is the on-disk shape loaded by --config, mirroring the
// flag set above except that each priority queue has its own capacity
// where the flags have the single --queue-cap (recera-vango's cmd/vango config
// package takes the same "file overrides defaults, flags override
// file" approach, substituting YAML for vango's JSON).
type fileConfig struct {
	ThreadCount       int `yaml:"threadCount"`
	FiberCount        int `yaml:"fiberCount"`
	WaitingCount      int `yaml:"waitingCount"`
	HighPriorityCap   int `yaml:"highPriorityCap"`
	NormalPriorityCap int `yaml:"normalPriorityCap"`
	LowPriorityCap    int `yaml:"lowPriorityCap"`
}

// resolveConfig builds a fiberrt.Config from --config (if given) and
// flags: a positive value in the file replaces a flag's default, and a
// flag set explicitly on the command line overrides the file.
func resolveConfig() (fiberrt.Config, error) {
	cfg := fiberrt.Config{
		ThreadCount:       flagThreadCount,
		FiberCount:        flagFiberCount,
		WaitingCount:      flagWaitingCount,
		HighPriorityCap:   flagQueueCap,
		NormalPriorityCap: flagQueueCap,
		LowPriorityCap:    flagQueueCap,
	}

	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", configPath, err)
	}

	flags := rootCmd.PersistentFlags()
	if fc.ThreadCount > 0 && !flags.Changed("threads") {
		cfg.ThreadCount = fc.ThreadCount
	}
	if fc.FiberCount > 0 && !flags.Changed("fibers") {
		cfg.FiberCount = fc.FiberCount
	}
	if fc.WaitingCount > 0 && !flags.Changed("waiting") {
		cfg.WaitingCount = fc.WaitingCount
	}
	if fc.HighPriorityCap > 0 && !flags.Changed("queue-cap") {
		cfg.HighPriorityCap = fc.HighPriorityCap
	}
	if fc.NormalPriorityCap > 0 && !flags.Changed("queue-cap") {
		cfg.NormalPriorityCap = fc.NormalPriorityCap
	}
	if fc.LowPriorityCap > 0 && !flags.Changed("queue-cap") {
		cfg.LowPriorityCap = fc.LowPriorityCap
	}
	return cfg, nil
}
