package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nvhuy/fiberrt"
)

var statsWatch time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Start the scheduler and print a live counters table",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsWatch, "for", 500*time.Millisecond, "how long to run before printing counters")
}

var (
	statsLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#64748b")).
				Width(16)

	statsValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3b82f6"))

	statsTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10b981")).
			MarginBottom(1)
)

func renderStatsTable(s fiberrt.Stats) string {
	rows := [][2]string{
		{"scheduler_id", s.ID},
		{"threads", strconv.Itoa(s.ThreadCount)},
		{"fibers", strconv.Itoa(s.FiberCount)},
		{"waiting_slots", strconv.Itoa(s.WaitingCount)},
		{"waiting_filled", strconv.Itoa(s.WaitingFilled)},
		{"high_queue_len", strconv.Itoa(s.HighQueueLen)},
		{"normal_queue_len", strconv.Itoa(s.NormalQueueLen)},
		{"low_queue_len", strconv.Itoa(s.LowQueueLen)},
	}

	out := statsTitleStyle.Render("fiberrt scheduler stats") + "\n"
	for _, row := range rows {
		out += statsLabelStyle.Render(row[0]) + statsValueStyle.Render(row[1]) + "\n"
	}
	return out
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	sched, err := fiberrt.New(cfg)
	if err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Shutdown(context.Background())

	for i := 0; i < cfg.ThreadCount*4; i++ {
		sched.Schedule(func() { time.Sleep(time.Millisecond) })
	}

	time.Sleep(statsWatch)
	fmt.Print(renderStatsTable(sched.Stats()))
	return nil
}
