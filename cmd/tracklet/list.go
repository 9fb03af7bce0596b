package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/pkg/models"
)

var (
	listState string
	listType  string
	listGroup string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked tasks",
	Long: `List tracked tasks in insertion order.

Filters narrow the output; combined filters must all match.

Examples:
  tracklet list
  tracklet list --state blocked
  tracklet list --type coder --group backend
  tracklet list --json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "Only tasks in this state")
	listCmd.Flags().StringVar(&listType, "type", "", "Only tasks of this worker role")
	listCmd.Flags().StringVar(&listGroup, "group", "", "Only tasks in this parallel group")
	listCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	var tasks []*models.Task
	for _, task := range tr.Tasks() {
		if listState != "" && task.State != models.State(listState) {
			continue
		}
		if listType != "" && task.Type != models.TaskType(listType) {
			continue
		}
		if listGroup != "" && task.ParallelGroup != listGroup {
			continue
		}
		tasks = append(tasks, task)
	}

	if jsonOut {
		return printJSON(tasks)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'tracklet create <title>' to add one.")
		return nil
	}

	fmt.Printf("%-10s %-16s %-10s %-9s %-5s %s\n", "ID", "STATE", "TYPE", "PRIORITY", "AGE", "TITLE")
	for _, task := range tasks {
		state := stateColor(task.State).Sprintf("%-16s", string(task.State))
		fmt.Printf("%-10s %s %-10s %-9s %-5s %s\n",
			task.ID, state, string(task.Type), string(task.Priority),
			formatAge(task.CreatedAt), task.Title)
	}
	fmt.Printf("\n%d tasks\n", len(tasks))
	return nil
}
