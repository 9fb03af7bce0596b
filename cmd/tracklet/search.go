package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Full-text search over tasks",
	Long: `Search task titles and descriptions.

The query runs against the store's full-text index, ranked by match
quality. Multiple words must all match.

Examples:
  tracklet search parser
  tracklet search flaky login test`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	st, err := openStore(root)
	if err != nil {
		return err
	}
	defer st.Close()

	query := strings.Join(args, " ")
	tasks, err := st.Search(query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if jsonOut {
		return printJSON(tasks)
	}

	if len(tasks) == 0 {
		fmt.Printf("No tasks match %q.\n", query)
		return nil
	}
	for _, task := range tasks {
		state := stateColor(task.State).Sprint(string(task.State))
		fmt.Printf("%-10s %s  %s\n", task.ID, state, task.Title)
	}
	fmt.Printf("\n%d match(es)\n", len(tasks))
	return nil
}
