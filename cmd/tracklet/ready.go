package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List tasks ready to dispatch",
	Long: `List the tasks ready to be picked up.

A task is ready when it is in the new state, has no blockers, and every
dependency has reached a satisfying state (complete, unless the
dependency policy is configured looser).`,
	RunE: runReady,
}

func init() {
	readyCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runReady(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	ready := tr.Ready()
	if jsonOut {
		return printJSON(ready)
	}

	if len(ready) == 0 {
		fmt.Println("Nothing ready to dispatch.")
		return nil
	}

	fmt.Printf("%-10s %-10s %-9s %s\n", "ID", "TYPE", "PRIORITY", "TITLE")
	for _, task := range ready {
		fmt.Printf("%-10s %-10s %-9s %s\n",
			task.ID, string(task.Type), string(task.Priority), task.Title)
	}
	fmt.Printf("\n%d ready\n", len(ready))
	return nil
}
