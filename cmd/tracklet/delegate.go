package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/delegate"
	"github.com/hfleming/tracklet/pkg/models"
)

var delegateOut string

var delegateCmd = &cobra.Command{
	Use:   "delegate <task-id>",
	Short: "Render a work brief for a task",
	Long: `Render a markdown work brief for handing a task to a worker.

The brief is shaped by the task's worker role: mission, the states of
its dependencies, focus points, deliverables, constraints, and success
criteria derived from the task's required gates.

Examples:
  tracklet delegate task_003
  tracklet delegate task_003 --out briefs/task_003.md`,
	Args: cobra.ExactArgs(1),
	RunE: runDelegate,
}

func init() {
	delegateCmd.Flags().StringVar(&delegateOut, "out", "", "Write the brief to a file instead of stdout")
}

func runDelegate(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := tr.Status(args[0])
	if err != nil {
		return err
	}
	var deps []*models.Task
	for _, depID := range task.Dependencies {
		if dep, err := tr.Status(depID); err == nil {
			deps = append(deps, dep)
		}
	}

	brief := delegate.Build(task, deps)
	if delegateOut == "" {
		fmt.Print(brief)
		return nil
	}
	if err := os.WriteFile(delegateOut, []byte(brief), 0644); err != nil {
		return fmt.Errorf("write brief: %w", err)
	}
	printStatus("✓", fmt.Sprintf("Wrote brief for %s to %s", task.ID, delegateOut), color.FgGreen)
	return nil
}
