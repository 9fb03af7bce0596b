package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the tracker state as JSON",
	Long: `Write the full tracker state as a JSON snapshot: every task, the
transition log, and the id counter.

The snapshot round-trips losslessly through 'tracklet import'. Without
a file argument the JSON goes to stdout.

Examples:
  tracklet export > backup.json
  tracklet export .tracklet/backup.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	snap := tr.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	if len(args) == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Exported %d tasks to %s", len(snap.Tasks), args[0]), color.FgGreen)
	return nil
}
