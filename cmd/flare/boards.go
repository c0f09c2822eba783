package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "Manage monitored boards",
}

var boardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured boards",
	RunE:  runBoardsList,
}

var boardsAddCmd = &cobra.Command{
	Use:   "add <url> [name]",
	Short: "Add a board by URL",
	Long:  "Adds a board. The source is derived from the URL; unrecognized hosts go through auto-detection on the next refresh.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBoardsAdd,
}

var boardsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a board and its tracking data",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoardsRemove,
}

var boardsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a board",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setBoardEnabled(args[0], true) },
}

var boardsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a board without removing it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setBoardEnabled(args[0], false) },
}

var boardsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the board list, one per line",
	RunE:  runBoardsExport,
}

var boardsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import boards from a file in the export format",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoardsImport,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.AddCommand(boardsListCmd, boardsAddCmd, boardsRemoveCmd,
		boardsEnableCmd, boardsDisableCmd, boardsExportCmd, boardsImportCmd)
}

func runBoardsList(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer eng.close()

	boards := eng.monitor.Boards()
	if len(boards) == 0 {
		fmt.Println("no boards configured")
		return nil
	}

	fmt.Printf("%-20s %-12s %-10s %s\n", "Name", "Source", "Status", "URL")
	fmt.Println(strings.Repeat("─", 70))

	enabled := 0
	for _, b := range boards {
		status := "disabled"
		if b.Enabled {
			status = "enabled"
			enabled++
		}
		source := string(b.Source)
		if b.DetectedATSType != "" {
			source = fmt.Sprintf("%s→%s", b.Source, b.DetectedATSType)
		}
		fmt.Printf("%-20s %-12s %-10s %s\n", b.Name, source, status, b.URL)
	}
	fmt.Printf("\nTotal: %d boards (%d enabled)\n", len(boards), enabled)
	return nil
}

func runBoardsAdd(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer eng.close()

	name := ""
	if len(args) > 1 {
		name = args[1]
	}
	b, err := eng.monitor.AddBoard(args[0], name, true)
	if err != nil {
		return err
	}
	fmt.Printf("added %s (%s) %s\n", b.Name, b.Source, b.URL)
	return nil
}

func runBoardsRemove(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.monitor.RemoveBoard(args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}

func setBoardEnabled(name string, enabled bool) error {
	eng, err := buildEngine(setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.monitor.SetBoardEnabled(name, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("%s %s\n", state, name)
	return nil
}

func runBoardsExport(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer eng.close()

	fmt.Print(eng.monitor.ExportBoards())
	return nil
}

func runBoardsImport(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer eng.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	added, failed := eng.monitor.ImportBoards(string(data))
	fmt.Printf("imported %d boards\n", len(added))
	for _, line := range failed {
		fmt.Fprintf(os.Stderr, "skipped malformed line: %s\n", line)
	}
	return nil
}
