package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dependCmd = &cobra.Command{
	Use:   "depend <task-id> <depends-on>",
	Short: "Add a dependency between tasks",
	Long: `Record that a task depends on another tracked task.

The dependent task leaves the ready set until the dependency reaches a
satisfying state. An edge that would close a cycle is rejected and
nothing changes.

Examples:
  tracklet depend task_003 task_001`,
	Args: cobra.ExactArgs(2),
	RunE: runDepend,
}

func runDepend(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	taskID, dependsOn := args[0], args[1]
	if err := tr.AddDependency(taskID, dependsOn); err != nil {
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("%s now depends on %s", taskID, dependsOn), color.FgGreen)
	return nil
}
