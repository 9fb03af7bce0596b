package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

var graphCmd = &cobra.Command{
	Use:   "graph [task-id]",
	Short: "Show the dependency graph",
	Long: `Show tasks with their dependencies.

Without arguments, lists every task and what it depends on. With a
task id, walks the transitive dependency closure of that task, nesting
each dependency under its dependent.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		return printClosure(tr, args[0])
	}

	tasks := tr.Tasks()
	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'tracklet create <title>' to add one.")
		return nil
	}
	for _, task := range tasks {
		line := fmt.Sprintf("%s [%s]", task.ID, string(task.State))
		if len(task.Dependencies) > 0 {
			line += " <- " + strings.Join(task.Dependencies, ", ")
		}
		fmt.Println(line)
	}
	return nil
}

// printClosure renders the transitive dependency closure of one task,
// depth-first. A dependency shared by several tasks is expanded once
// and referenced afterwards.
func printClosure(tr *tracker.Tracker, rootID string) error {
	closure, err := tr.Subgraph(rootID)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Task, len(closure))
	for _, task := range closure {
		byID[task.ID] = task
	}

	visited := make(map[string]bool)
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		indent := strings.Repeat("     ", depth)
		prefix := ""
		if depth > 0 {
			prefix = "<- "
		}
		if visited[id] {
			fmt.Printf("%s%s%s (shown above)\n", indent, prefix, id)
			return
		}
		visited[id] = true
		task := byID[id]
		fmt.Printf("%s%s%s [%s]\n", indent, prefix, id, string(task.State))
		for _, dep := range task.Dependencies {
			walk(dep, depth+1)
		}
	}
	walk(rootID, 0)
	return nil
}
