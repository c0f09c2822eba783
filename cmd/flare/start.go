package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dchernopolskiy/Flare-sub001/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitoring daemon",
	Long:  "Start the refresh scheduler; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	eng, err := buildEngine(logger, false)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer eng.close()

	boards := eng.monitor.Boards()
	enabled := 0
	for _, b := range boards {
		if b.Enabled {
			enabled++
		}
	}
	logger.Info("engine ready",
		"interval", eng.cfg.RefreshInterval.String(),
		"boards", len(boards),
		"enabled", enabled,
		"title_filter", eng.cfg.Filters.Title,
		"location_filter", eng.cfg.Filters.Location,
	)

	if enabled == 0 {
		logger.Error("no enabled boards; add one with `flare boards add <url>`")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(eng.monitor, eng.cfg.RefreshInterval, eng.cfg.BoardIntervals, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
