package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dchernopolskiy/Flare-sub001/internal/store"
	"github.com/dchernopolskiy/Flare-sub001/internal/view"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch every board once, print the filtered feed, exit",
	Long:  "One-shot cycle against an in-memory store: nothing is persisted or notified.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	eng, err := buildEngine(logger, true)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer eng.close()

	// The dry-run store starts empty; copy the persisted board list over.
	if sqlStore, err := store.NewSQLiteStore(eng.cfg.DBPath); err == nil {
		boards, err := sqlStore.LoadBoards()
		sqlStore.Close()
		if err == nil {
			eng.store.SaveBoards(boards)
			eng.monitor.Load()
		}
	}
	if len(eng.monitor.Boards()) == 0 {
		logger.Error("no boards configured; add one with `flare boards add <url>`")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.monitor.RefreshAll(ctx)

	if errs := eng.monitor.Errors(); errs != "" {
		logger.Warn("some boards failed", "errors", errs)
	}

	jobs := eng.view.Filtered(view.Params{
		TitleKeywords:    eng.cfg.Filters.Title,
		LocationKeywords: eng.cfg.Filters.Location,
	})
	for _, j := range jobs {
		line := j.Title
		if j.Company != "" {
			line = j.Company + " — " + line
		}
		if j.Location != "" {
			line += " (" + j.Location + ")"
		}
		fmt.Printf("%s\n    %s\n", line, j.URL)
	}
	logger.Info("check complete", "total", len(eng.view.Jobs()), "matched", len(jobs))
	return nil
}
