package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/pkg/models"
)

var treeCmd = &cobra.Command{
	Use:   "tree [task-id]",
	Short: "Show the task hierarchy",
	Long: `Show tasks as a parent/subtask tree.

Tasks created with 'tracklet subtask' (or --parent) nest under their
parent; everything else is a root. With a task id, shows only that
subtree.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	tasks := tr.Tasks()
	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'tracklet create <title>' to add one.")
		return nil
	}

	byID := make(map[string]*models.Task, len(tasks))
	children := make(map[string][]*models.Task)
	for _, task := range tasks {
		byID[task.ID] = task
	}
	var roots []*models.Task
	for _, task := range tasks {
		// A task whose parent is not tracked renders as a root.
		if task.ParentID != "" && byID[task.ParentID] != nil {
			children[task.ParentID] = append(children[task.ParentID], task)
		} else {
			roots = append(roots, task)
		}
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return kids[i].ID < kids[j].ID })
	}

	if len(args) == 1 {
		task, err := tr.Status(args[0])
		if err != nil {
			return err
		}
		printSubtree(task, children, 0)
		return nil
	}

	for _, task := range roots {
		printSubtree(task, children, 0)
	}
	return nil
}

func printSubtree(task *models.Task, children map[string][]*models.Task, depth int) {
	indent := strings.Repeat("    ", depth)
	prefix := ""
	if depth > 0 {
		prefix = "|-- "
	}
	mark := stateColor(task.State).Sprint(stateMark(task.State))
	fmt.Printf("%s%s[%s] %s  %s\n", indent, prefix, mark, task.ID, task.Title)
	for _, child := range children[task.ID] {
		printSubtree(child, children, depth+1)
	}
}
