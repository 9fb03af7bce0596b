package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show ready tasks by parallel group",
	Long: `Show the ready set clustered by parallel group.

Tasks sharing a group label are intended to be dispatched together.
Ready tasks without a label appear as their own singleton entry keyed
by task id.`,
	RunE: runGroups,
}

func init() {
	groupsCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runGroups(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	groups := tr.Groups()
	if jsonOut {
		return printJSON(groups)
	}

	if len(groups) == 0 {
		fmt.Println("Nothing ready to dispatch.")
		return nil
	}

	// Map order is random; sort labels for stable output.
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		tasks := groups[label]
		fmt.Printf("%s (%d):\n", label, len(tasks))
		for _, task := range tasks {
			fmt.Printf("  %-10s %-10s %s\n", task.ID, string(task.Type), task.Title)
		}
	}
	return nil
}
