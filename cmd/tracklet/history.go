package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Show the transition log",
	Long: `Show applied state transitions, oldest first.

Without arguments, shows the log across all tasks. With a task id,
shows only that task's transitions. The log is append-only and
survives task removal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the most recent N entries")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	var entries []models.HistoryEntry
	if len(args) == 1 {
		if _, err := tr.Status(args[0]); err != nil {
			return err
		}
		entries = tr.History(args[0])
	} else {
		entries = tr.AllHistory()
	}
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[len(entries)-historyLimit:]
	}

	if jsonOut {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No transitions recorded.")
		return nil
	}
	for _, entry := range entries {
		line := fmt.Sprintf("%s  %-10s %s -> %s",
			entry.At.Format("2006-01-02 15:04:05"), entry.TaskID, entry.From, entry.To)
		if entry.Actor != "" {
			line += fmt.Sprintf("  (%s)", entry.Actor)
		}
		if entry.Note != "" {
			line += "  " + entry.Note
		}
		fmt.Println(line)
	}
	return nil
}
