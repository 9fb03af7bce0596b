package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show tracker or task status",
	Long: `Display the current state of the tracker.

Without arguments, shows an overview: counts by state, the ready set
size, and any blocked or escalated tasks.

With a task id, shows the full task card: state, progress, gates,
blockers, dependencies, and the allowed next states.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		return displayOverview(tr)
	}
	return displayTask(tr, args[0])
}

func displayOverview(tr *tracker.Tracker) error {
	team := tr.Team()
	if jsonOut {
		return printJSON(team)
	}

	if team.Total == 0 {
		fmt.Println("No tasks. Run 'tracklet create <title>' to add one.")
		return nil
	}

	fmt.Printf("Tasks: %d total, %d ready, %.0f%% complete\n",
		team.Total, team.ReadyCount, team.CompletionRate*100)
	fmt.Println()
	fmt.Println("By state:")
	for _, state := range models.AllStates {
		if count := team.ByState[state]; count > 0 {
			fmt.Printf("  %s %-16s %d\n", stateMark(state), string(state), count)
		}
	}
	if len(team.Blocked) > 0 {
		fmt.Printf("\nBlocked: %s\n", strings.Join(team.Blocked, ", "))
	}
	if len(team.Escalations) > 0 {
		fmt.Printf("Escalations: %s\n", strings.Join(team.Escalations, ", "))
	}
	return nil
}

func displayTask(tr *tracker.Tracker, taskID string) error {
	task, err := tr.Status(taskID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(task)
	}

	progress, _ := tr.Progress(taskID)

	fmt.Printf("%s  %s\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Printf("  %s\n", task.Description)
	}
	fmt.Println()
	fmt.Printf("  State:     %s\n", stateColor(task.State).Sprint(string(task.State)))
	fmt.Printf("  Type:      %s\n", string(task.Type))
	fmt.Printf("  Priority:  %s\n", string(task.Priority))
	fmt.Printf("  Progress:  %d%%\n", progress)
	if task.ParentID != "" {
		fmt.Printf("  Parent:    %s\n", task.ParentID)
	}
	if task.ParallelGroup != "" {
		fmt.Printf("  Group:     %s\n", task.ParallelGroup)
	}
	fmt.Printf("  Created:   %s ago\n", formatAge(task.CreatedAt))
	fmt.Printf("  Updated:   %s ago\n", formatAge(task.UpdatedAt))
	if task.IterationCount > 0 || task.EscalationRequired {
		fmt.Printf("  Rework:    %d of %d rounds\n", task.IterationCount, task.MaxIterations)
	}
	if task.EscalationRequired {
		fmt.Printf("  Escalation required\n")
	}

	if len(task.Dependencies) > 0 {
		fmt.Println("\n  Dependencies:")
		for _, depID := range task.Dependencies {
			if dep, err := tr.Status(depID); err == nil {
				fmt.Printf("    %s %s  %s\n", stateMark(dep.State), dep.ID, string(dep.State))
			}
		}
	}
	if dependents := tr.Dependents(task.ID); len(dependents) > 0 {
		fmt.Printf("\n  Required by: %s\n", strings.Join(dependents, ", "))
	}

	if len(task.RequiredGates) > 0 {
		fmt.Println("\n  Gates:")
		for _, gate := range task.RequiredGates {
			if task.QualityGates[gate] {
				fmt.Printf("    ✓ %s\n", gate)
			} else {
				fmt.Printf("    ✗ %s (pending)\n", gate)
			}
		}
	}
	if len(task.Blockers) > 0 {
		fmt.Println("\n  Blockers:")
		for i, blocker := range task.Blockers {
			fmt.Printf("    [%d] %s\n", i, blocker)
		}
	}

	if allowed, err := tr.Allowed(task.ID); err == nil && len(allowed) > 0 {
		names := make([]string, len(allowed))
		for i, state := range allowed {
			names[i] = string(state)
		}
		fmt.Printf("\n  Next states: %s\n", strings.Join(names, ", "))
	}
	return nil
}
