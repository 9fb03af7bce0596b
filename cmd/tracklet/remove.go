package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/graph"
)

var removeCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Remove a task",
	Long: `Remove a task from the graph.

A task other tasks still depend on cannot be removed; remove or detach
the dependents first. The task's history entries are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	taskID := args[0]
	if err := tr.Remove(taskID); err != nil {
		if errors.Is(err, graph.ErrTaskReferenced) {
			dependents := tr.Dependents(taskID)
			return fmt.Errorf("%w: %s is required by %s", graph.ErrTaskReferenced, taskID, strings.Join(dependents, ", "))
		}
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("Removed %s", taskID), color.FgGreen)
	return nil
}
