package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/pkg/models"
)

var (
	updateActor string
	updateNote  string
)

var updateCmd = &cobra.Command{
	Use:   "update <task-id> <state>",
	Short: "Move a task to a new state",
	Long: `Move a task to the target state along its workflow chain.

The move is checked against the task's workflow: only the chain's next
states are allowed, completing requires every required gate to hold,
and blocked tasks resume through 'tracklet unblock', not here.

Examples:
  tracklet update task_003 implementing
  tracklet update task_003 complete --actor alice --note "ships in v2.1"`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateActor, "actor", "cli", "Actor recorded in history")
	updateCmd.Flags().StringVar(&updateNote, "note", "", "Note recorded in history")
}

func runUpdate(cmd *cobra.Command, args []string) error {
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
	target := models.State(args[1])
	if !target.Valid() {
		return fmt.Errorf("%w: %q (states: %s)", machine.ErrUnknownState, args[1], stateNames())
	}

	before, err := tr.Status(taskID)
	if err != nil {
		return err
	}

	task, err := tr.Transition(taskID, target, updateActor, updateNote)
	if err != nil {
		var gateErr *machine.GateError
		if errors.As(err, &gateErr) {
			printStatus("✗", fmt.Sprintf("%s cannot complete until gates pass:", taskID), color.FgRed)
			for _, gate := range gateErr.Unmet {
				fmt.Printf("    ✗ %s\n", gate)
			}
			fmt.Printf("\nPass them with: tracklet gate %s <gate> pass\n", taskID)
			return err
		}
		if errors.Is(err, machine.ErrInvalidTransition) {
			if allowed, aerr := tr.Allowed(taskID); aerr == nil && len(allowed) > 0 {
				names := make([]string, len(allowed))
				for i, s := range allowed {
					names[i] = string(s)
				}
				return fmt.Errorf("%w (allowed from %s: %s)", err, before.State, strings.Join(names, ", "))
			}
		}
		return err
	}

	if err := saveTracker(st, tr); err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("%s: %s -> %s", taskID, before.State, task.State), color.FgGreen)
	if task.EscalationRequired {
		printStatus("⚠", fmt.Sprintf("%s exceeded its rework limit and needs a human decision", taskID), color.FgYellow)
	}
	return nil
}

func stateNames() string {
	names := make([]string, len(models.AllStates))
	for i, s := range models.AllStates {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
