package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dchernopolskiy/Flare-sub001/internal/board"
	"github.com/dchernopolskiy/Flare-sub001/internal/inspect"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

var detectCmd = &cobra.Command{
	Use:   "detect [url]",
	Short: "Run the detection cascade interactively",
	Long: "Runs the auto-detection cascade against a URL (or an interactively picked\n" +
		"board) and streams each step's outcome live.",
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	eng, err := buildEngine(logger, true)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer eng.close()

	var target model.Board
	if len(args) == 1 {
		target, err = board.New(args[0], "", true)
		if err != nil {
			return err
		}
	} else {
		boards := eng.monitor.Boards()
		if len(boards) == 0 {
			return fmt.Errorf("no boards configured; pass a URL or add one with `flare boards add`")
		}
		idx, err := inspect.RunBoardPicker(boards)
		if err != nil {
			return err
		}
		if idx < 0 {
			return nil
		}
		target = boards[idx]
	}

	params := model.FetchParams{
		Title:    eng.cfg.Filters.Title,
		Location: eng.cfg.Filters.Location,
	}
	return inspect.Run(target, eng.detector, params)
}
