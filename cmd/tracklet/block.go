package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/pkg/models"
)

var (
	blockActor    string
	unblockActor  string
	unblockResume string
)

var blockCmd = &cobra.Command{
	Use:   "block <task-id> <reason...>",
	Short: "Record a blocker on a task",
	Long: `Record a blocker on a task.

The first blocker moves the task to the blocked state; further blockers
stack. A blocked task stays out of the ready set and cannot complete
until every blocker is cleared.

Examples:
  tracklet block task_003 waiting on credentials from ops`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBlock,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <task-id> <blocker-index>",
	Short: "Clear a blocker from a task",
	Long: `Clear the blocker at the given index (see 'tracklet status <id>').

Clearing the last blocker resumes the task into the state named by
--resume; while other blockers remain the task stays blocked.

Examples:
  tracklet unblock task_003 0 --resume implementing`,
	Args: cobra.ExactArgs(2),
	RunE: runUnblock,
}

func init() {
	blockCmd.Flags().StringVar(&blockActor, "actor", "cli", "Actor recorded in history")

	unblockCmd.Flags().StringVar(&unblockActor, "actor", "cli", "Actor recorded in history")
	unblockCmd.Flags().StringVar(&unblockResume, "resume", "", "State the task resumes into (required)")
	unblockCmd.MarkFlagRequired("resume")
}

func runBlock(cmd *cobra.Command, args []string) error {
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
	reason := strings.Join(args[1:], " ")
	task, err := tr.AddBlocker(taskID, reason, blockActor)
	if err != nil {
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	printStatus("✗", fmt.Sprintf("%s blocked (%d blocker(s)): %s", taskID, len(task.Blockers), reason), color.FgRed)
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
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
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("blocker index must be a number: %q", args[1])
	}
	resume := models.State(unblockResume)
	if !resume.Valid() {
		return fmt.Errorf("%w: %q (states: %s)", machine.ErrUnknownState, unblockResume, stateNames())
	}

	task, err := tr.ClearBlocker(taskID, index, resume, unblockActor)
	if err != nil {
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	if len(task.Blockers) == 0 {
		printStatus("✓", fmt.Sprintf("%s resumed into %s", taskID, task.State), color.FgGreen)
	} else {
		printStatus("⚠", fmt.Sprintf("%s still blocked by %d blocker(s)", taskID, len(task.Blockers)), color.FgYellow)
	}
	return nil
}
