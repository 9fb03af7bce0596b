package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/pkg/models"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Show team workload",
	Long: `Show the workload projection across the team.

Counts by state and worker role, the completion rate, the ready set
size, and any blocked or escalated tasks. The projection is computed
from the tasks on demand; there are no counters to drift.`,
	RunE: runTeam,
}

func init() {
	teamCmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
}

func runTeam(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	team := tr.Team()
	if jsonOut {
		return printJSON(team)
	}

	if team.Total == 0 {
		fmt.Println("No tasks. Run 'tracklet create <title>' to add one.")
		return nil
	}

	fmt.Printf("Team: %d tasks, %.0f%% complete, %d ready\n",
		team.Total, team.CompletionRate*100, team.ReadyCount)

	fmt.Println("\nBy state:")
	for _, state := range models.AllStates {
		if count := team.ByState[state]; count > 0 {
			bar := strings.Repeat("#", count)
			fmt.Printf("  %-16s %3d  %s\n", string(state), count, bar)
		}
	}

	fmt.Println("\nBy role:")
	for _, typ := range knownThenExtraTypes(team.ByType) {
		fmt.Printf("  %-16s %3d\n", string(typ), team.ByType[typ])
	}

	if len(team.Blocked) > 0 {
		fmt.Printf("\nBlocked: %s\n", strings.Join(team.Blocked, ", "))
	}
	if len(team.Escalations) > 0 {
		fmt.Printf("Escalations: %s\n", strings.Join(team.Escalations, ", "))
	}
	return nil
}

// knownThenExtraTypes orders roles for display: the known roles first in
// their declared order, then any ad-hoc types sorted by name.
func knownThenExtraTypes(byType map[models.TaskType]int) []models.TaskType {
	var out []models.TaskType
	seen := make(map[models.TaskType]bool)
	for _, typ := range models.KnownTypes {
		if byType[typ] > 0 {
			out = append(out, typ)
			seen[typ] = true
		}
	}
	var extra []models.TaskType
	for typ, count := range byType {
		if !seen[typ] && count > 0 {
			extra = append(extra, typ)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
