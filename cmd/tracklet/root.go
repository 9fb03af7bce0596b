package main

import (
	"os"

	"github.com/spf13/cobra"
)

var projectDir string

var rootCmd = &cobra.Command{
	Use:   "tracklet",
	Short: "Task tracker for multi-role agent teams",
	Long: `Tracklet tracks units of work for a team of specialized workers.

Tasks move through a typed workflow state machine (analyze, plan,
implement, review, test, and so on per role), carry dependencies in a
cycle-free graph, and gate completion on named quality checks.

Core capabilities:
- Dependency graph with atomic submission and cycle rejection
- Per-role workflow chains, reshapeable through .tracklet/workflow.yaml
- Quality gates, blockers, and bounded rework with escalation
- Batched execution plans for parallel dispatch
- SQLite persistence with full-text task search

Run 'tracklet init' in a project directory to get started.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", "", "Project root (defaults to the working directory)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(subtaskCmd)
	rootCmd.AddCommand(dependCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
