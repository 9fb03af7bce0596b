package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:   "gate <task-id> <gate-name> <pass|fail>",
	Short: "Record a quality gate result",
	Long: `Record the result of a quality gate check on a task.

Gates can be recorded in any state; they are only enforced when the
task moves to complete. Recording a gate outside the task's required
set stores the result without affecting completion.

Examples:
  tracklet gate task_003 tests_passing pass
  tracklet gate task_003 review_approved fail`,
	Args: cobra.ExactArgs(3),
	RunE: runGate,
}

func runGate(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	taskID, gate := args[0], args[1]
	var passed bool
	switch strings.ToLower(args[2]) {
	case "pass", "passed", "true":
		passed = true
	case "fail", "failed", "false":
		passed = false
	default:
		return fmt.Errorf("gate result must be pass or fail, got %q", args[2])
	}

	task, err := tr.SetGate(taskID, gate, passed)
	if err != nil {
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	if passed {
		printStatus("✓", fmt.Sprintf("%s: gate %s passed", taskID, gate), color.FgGreen)
	} else {
		printStatus("✗", fmt.Sprintf("%s: gate %s failed", taskID, gate), color.FgRed)
	}
	if unmet := task.UnmetGates(); len(unmet) > 0 {
		fmt.Printf("  Still pending: %s\n", strings.Join(unmet, ", "))
	} else if len(task.RequiredGates) > 0 {
		fmt.Println("  All required gates pass.")
	}
	return nil
}
