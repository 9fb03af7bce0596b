package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the batched execution plan",
	Long: `Compute the execution plan for all unfinished tasks.

The plan is a sequence of batches: every task in a batch can run in
parallel, and each batch only depends on earlier ones. Completed tasks
are treated as already done and do not appear.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runPlan(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	plan, err := tr.Plan()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(plan)
	}

	if len(plan.Batches) == 0 {
		fmt.Println("Nothing left to dispatch.")
		return nil
	}

	fmt.Printf("Execution plan: %d batches, %d tasks\n\n", len(plan.Batches), plan.TaskCount())
	for i, batch := range plan.Batches {
		fmt.Printf("%2d. %s\n", i+1, strings.Join(batch.IDs, "  "))
		if len(batch.Groups) > 0 {
			labels := make([]string, 0, len(batch.Groups))
			for label := range batch.Groups {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			parts := make([]string, len(labels))
			for j, label := range labels {
				parts[j] = fmt.Sprintf("%s:%d", label, len(batch.Groups[label]))
			}
			fmt.Printf("    groups: %s\n", strings.Join(parts, " "))
		}
	}
	return nil
}
