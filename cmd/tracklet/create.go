package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/pkg/models"
)

var (
	createID            string
	createDesc          string
	createType          string
	createPriority      string
	createParent        string
	createGroup         string
	createDeps          []string
	createGates         []string
	createNoGates       bool
	createMaxIterations int
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task",
	Long: `Create a task and add it to the dependency graph.

The task starts in the new state. Type selects the workflow chain the
task moves through; unknown types use the default chain. Dependencies
must already be tracked, and a dependency that would close a cycle
rejects the whole submission.

Required gates default to the configured set. Pass --gates to declare
the task's own set, or --no-gates for a task that completes without
gate checks.

Examples:
  tracklet create "Design the storage schema" --type architect --priority high
  tracklet create "Implement the parser" --deps task_001,task_002
  tracklet create "Fix flaky login test" --type debug --gates tests_passing
  tracklet create "Spike: evaluate cache library" --no-gates`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

var subtaskCmd = &cobra.Command{
	Use:   "subtask <parent-id> <title>",
	Short: "Create a subtask of an existing task",
	Long: `Create a task as a child of an existing task.

The parent gains a dependency on the new subtask, so the parent stays
out of the ready set until the subtask completes. The parent link also
drives the 'tracklet tree' view.

Examples:
  tracklet subtask task_001 "Extract the validation helpers"
  tracklet subtask task_001 "Write migration tests" --type qa`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSubtask,
}

func init() {
	createCmd.Flags().StringVar(&createID, "id", "", "Explicit task id (default: assigned)")
	createCmd.Flags().StringVar(&createDesc, "desc", "", "Task description")
	createCmd.Flags().StringVar(&createType, "type", "coder", "Worker role: architect, coder, reviewer, qa, debug, docs, devops, or security")
	createCmd.Flags().StringVar(&createPriority, "priority", "medium", "Priority: low, medium, high, or critical")
	createCmd.Flags().StringVar(&createParent, "parent", "", "Parent task id")
	createCmd.Flags().StringVar(&createGroup, "group", "", "Parallel group label")
	createCmd.Flags().StringSliceVar(&createDeps, "deps", nil, "Dependency task ids")
	createCmd.Flags().StringSliceVar(&createGates, "gates", nil, "Required quality gates for this task")
	createCmd.Flags().BoolVar(&createNoGates, "no-gates", false, "Complete without quality gate checks")
	createCmd.Flags().IntVar(&createMaxIterations, "max-iterations", 0, "Rework limit before escalation (default: configured)")

	subtaskCmd.Flags().StringVar(&createDesc, "desc", "", "Task description")
	subtaskCmd.Flags().StringVar(&createType, "type", "coder", "Worker role: architect, coder, reviewer, qa, debug, docs, devops, or security")
	subtaskCmd.Flags().StringVar(&createPriority, "priority", "medium", "Priority: low, medium, high, or critical")
	subtaskCmd.Flags().StringVar(&createGroup, "group", "", "Parallel group label")
}

func runCreate(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	draft := &models.Task{
		ID:            createID,
		ParentID:      createParent,
		Title:         strings.Join(args, " "),
		Description:   createDesc,
		Type:          models.TaskType(createType),
		Priority:      models.Priority(createPriority),
		ParallelGroup: createGroup,
		MaxIterations: createMaxIterations,
	}
	if createNoGates {
		draft.RequiredGates = []string{}
	} else if createGates != nil {
		draft.RequiredGates = createGates
	}

	task, err := tr.Submit(draft, createDeps...)
	if err != nil {
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("Created %s: %s", task.ID, task.Title), color.FgGreen)
	if len(task.Dependencies) > 0 {
		fmt.Printf("  Depends on: %s\n", strings.Join(task.Dependencies, ", "))
	}
	return nil
}

func runSubtask(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	parentID := args[0]
	if _, err := tr.Status(parentID); err != nil {
		return err
	}

	draft := &models.Task{
		ParentID:      parentID,
		Title:         strings.Join(args[1:], " "),
		Description:   createDesc,
		Type:          models.TaskType(createType),
		Priority:      models.Priority(createPriority),
		ParallelGroup: createGroup,
	}
	task, err := tr.Submit(draft)
	if err != nil {
		return err
	}
	if err := tr.AddDependency(parentID, task.ID); err != nil {
		// Roll the submission back so a failed link leaves no orphan.
		_ = tr.Remove(task.ID)
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("Created %s under %s: %s", task.ID, parentID, task.Title), color.FgGreen)
	return nil
}
