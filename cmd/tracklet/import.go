package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/config"
	"github.com/hfleming/tracklet/internal/planfile"
	"github.com/hfleming/tracklet/internal/state"
	"github.com/hfleming/tracklet/internal/tracker"
)

var importForce bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import tasks from a plan file or snapshot",
	Long: `Import tasks into the tracker.

A .yaml/.yml file is read as a plan: a list of task specs with
dependencies, validated as a whole and submitted in dependency order.
Either every task in the file lands or none do.

A .json file is read as a snapshot from 'tracklet export' and replaces
the tracked set; --force is required when tasks are already tracked.

Examples:
  tracklet import sprint-12.yaml
  tracklet import backup.json --force`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Replace tracked tasks when importing a snapshot")
}

func runImport(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	path := args[0]
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return importPlan(tr, st, path)
	case ".json":
		return importSnapshot(tr, st, root, path)
	default:
		return fmt.Errorf("unsupported file type %q (use a .yaml plan or a .json snapshot)", filepath.Ext(path))
	}
}

func importPlan(tr *tracker.Tracker, st *state.Store, path string) error {
	plan, err := planfile.Load(path)
	if err != nil {
		return err
	}
	tasks, err := plan.Apply(tr)
	if err != nil {
		return err
	}
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("Imported %d tasks from %s", len(tasks), path), color.FgGreen)
	for _, task := range tasks {
		fmt.Printf("  %-10s %s\n", task.ID, task.Title)
	}
	return nil
}

func importSnapshot(tr *tracker.Tracker, st *state.Store, root, path string) error {
	if tr.Len() > 0 && !importForce {
		return fmt.Errorf("tracker already holds %d tasks; pass --force to replace them", tr.Len())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap tracker.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := trackerOptions(cfg, root)
	if err != nil {
		return err
	}
	restored, err := tracker.Restore(&snap, opts...)
	if err != nil {
		return err
	}
	if err := saveTracker(st, restored); err != nil {
		return err
	}

	printStatus("✓", fmt.Sprintf("Imported snapshot with %d tasks from %s", restored.Len(), path), color.FgGreen)
	return nil
}
