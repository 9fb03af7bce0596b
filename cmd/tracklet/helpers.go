package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/hfleming/tracklet/internal/config"
	"github.com/hfleming/tracklet/internal/state"
	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

// jsonOut is shared by the read commands that register a --json flag.
var jsonOut bool

// projectRoot resolves the project directory: the --dir flag when set,
// otherwise the current working directory.
func projectRoot() (string, error) {
	if projectDir != "" {
		abs, err := filepath.Abs(projectDir)
		if err != nil {
			return "", fmt.Errorf("resolving --dir: %w", err)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

// openStore opens the project tracker database. Commands other than
// init require an initialized project.
func openStore(root string) (*state.Store, error) {
	dbPath := state.ProjectDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no tracker database at %s (run 'tracklet init' first)", dbPath)
	}

	st, err := state.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker database: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate tracker database: %w", err)
	}
	return st, nil
}

// trackerOptions builds tracker options from the loaded configuration:
// the workflow table, iteration limit, default gates, and the
// dependency satisfaction policy.
func trackerOptions(cfg *config.Config, root string) ([]tracker.Option, error) {
	table, err := cfg.LoadWorkflowTable(root)
	if err != nil {
		return nil, fmt.Errorf("load workflow table: %w", err)
	}
	return []tracker.Option{
		tracker.WithTable(table),
		tracker.WithMaxIterations(cfg.Workflow.MaxIterations),
		tracker.WithRequiredGates(cfg.Gates.Required),
		tracker.WithSatisfiedStates(cfg.SatisfiedStates()...),
	}, nil
}

// loadTracker opens the store and restores the tracker from the stored
// snapshot, configured per the project configuration. The caller owns
// closing the returned store.
func loadTracker(root string) (*tracker.Tracker, *state.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	opts, err := trackerOptions(cfg, root)
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(root)
	if err != nil {
		return nil, nil, err
	}
	snap, err := st.LoadSnapshot()
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("load tracker state: %w", err)
	}
	tr, err := tracker.Restore(snap, opts...)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("restore tracker state: %w", err)
	}
	return tr, st, nil
}

// saveTracker writes the tracker state back to the store.
func saveTracker(st *state.Store, tr *tracker.Tracker) error {
	if err := st.SaveSnapshot(tr.Snapshot()); err != nil {
		return fmt.Errorf("save tracker state: %w", err)
	}
	return nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// stateColor returns the display color for a task state.
func stateColor(s models.State) *color.Color {
	switch s {
	case models.StateComplete:
		return color.New(color.FgGreen)
	case models.StateBlocked:
		return color.New(color.FgRed)
	case models.StateIteration:
		return color.New(color.FgYellow)
	case models.StateNew:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgCyan)
	}
}

// stateMark returns a one-character marker for a task state.
func stateMark(s models.State) string {
	switch s {
	case models.StateComplete:
		return "✓"
	case models.StateBlocked:
		return "✗"
	case models.StateIteration:
		return "◐"
	case models.StateNew:
		return "○"
	default:
		return "●"
	}
}

// formatAge formats how long ago t was in a compact human form.
func formatAge(t time.Time) string {
	d := time.Since(t)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
