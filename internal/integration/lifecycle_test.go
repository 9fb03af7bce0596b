//go:build integration

package integration

import (
	"errors"
	"testing"

	"github.com/hfleming/tracklet/internal/config"
	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

// newDefaultTracker builds a tracker the way the CLI does, from the
// default configuration.
func newDefaultTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	cfg := config.Default()
	return tracker.New(
		tracker.WithMaxIterations(cfg.Workflow.MaxIterations),
		tracker.WithRequiredGates(cfg.Gates.Required),
		tracker.WithSatisfiedStates(cfg.SatisfiedStates()...),
	)
}

// TestCoderLifecycleWithGates walks a coder task through the built-in
// workflow with the default gate set, the way an interactive session
// would.
func TestCoderLifecycleWithGates(t *testing.T) {
	cfg := config.Default()
	tr := newDefaultTracker(t)

	task, err := tr.Submit(&models.Task{Title: "Wire payment provider"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	for _, target := range []models.State{
		models.StateAnalyzing,
		models.StatePlanning,
		models.StateImplementing,
		models.StateReviewing,
		models.StateTesting,
	} {
		if _, err := tr.Transition(task.ID, target, "dev", ""); err != nil {
			t.Fatalf("Transition(%s) error = %v", target, err)
		}
	}

	// Completion stays barred until every required gate passes.
	_, err = tr.Transition(task.ID, models.StateComplete, "dev", "")
	var gateErr *machine.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("Transition(complete) error = %v, want GateError", err)
	}
	if len(gateErr.Unmet) != len(cfg.Gates.Required) {
		t.Errorf("unmet gates = %v, want all of %v", gateErr.Unmet, cfg.Gates.Required)
	}

	for _, gate := range cfg.Gates.Required {
		if _, err := tr.SetGate(task.ID, gate, true); err != nil {
			t.Fatalf("SetGate(%s) error = %v", gate, err)
		}
	}

	done, err := tr.Transition(task.ID, models.StateComplete, "dev", "all gates pass")
	if err != nil {
		t.Fatalf("Transition(complete) error = %v", err)
	}
	if done.State != models.StateComplete {
		t.Errorf("State = %s, want %s", done.State, models.StateComplete)
	}

	progress, err := tr.Progress(task.ID)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if progress != 100 {
		t.Errorf("Progress() = %d, want 100", progress)
	}

	if got := len(tr.History(task.ID)); got != 6 {
		t.Errorf("history entries = %d, want 6", got)
	}
}

// TestBlockerInterruptsLifecycle verifies blocking mid-flight parks the
// task and clearing the blocker resumes the prior state.
func TestBlockerInterruptsLifecycle(t *testing.T) {
	tr := newDefaultTracker(t)

	task, err := tr.Submit(&models.Task{Title: "Index rebuild", Type: models.TypeDebug})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := tr.Transition(task.ID, models.StateDebugging, "dev", ""); err != nil {
		t.Fatalf("Transition(debugging) error = %v", err)
	}

	blocked, err := tr.AddBlocker(task.ID, "waiting on prod logs", "dev")
	if err != nil {
		t.Fatalf("AddBlocker() error = %v", err)
	}
	if blocked.State != models.StateBlocked {
		t.Errorf("State = %s, want %s", blocked.State, models.StateBlocked)
	}
	for _, ready := range tr.Ready() {
		if ready.ID == task.ID {
			t.Error("blocked task listed as ready")
		}
	}

	resumed, err := tr.ClearBlocker(task.ID, 0, models.StateDebugging, "dev")
	if err != nil {
		t.Fatalf("ClearBlocker() error = %v", err)
	}
	if resumed.State != models.StateDebugging {
		t.Errorf("State after resume = %s, want %s", resumed.State, models.StateDebugging)
	}
	if len(resumed.Blockers) != 0 {
		t.Errorf("Blockers = %v, want none", resumed.Blockers)
	}
}

// TestDependenciesGateReadiness verifies the ready set follows the
// dependency satisfaction policy from the configuration.
func TestDependenciesGateReadiness(t *testing.T) {
	tr := newDefaultTracker(t)

	base, err := tr.Submit(&models.Task{ID: "schema", Title: "Design schema", Type: models.TypeArchitect, RequiredGates: []string{}})
	if err != nil {
		t.Fatalf("Submit(schema) error = %v", err)
	}
	dependent, err := tr.Submit(&models.Task{ID: "endpoints", Title: "Build endpoints", RequiredGates: []string{}}, base.ID)
	if err != nil {
		t.Fatalf("Submit(endpoints) error = %v", err)
	}

	if ids := readyIDs(tr); len(ids) != 1 || ids[0] != base.ID {
		t.Fatalf("Ready() = %v, want [%s]", ids, base.ID)
	}

	for _, target := range []models.State{
		models.StateAnalyzing,
		models.StatePlanning,
		models.StateReviewing,
		models.StateComplete,
	} {
		if _, err := tr.Transition(base.ID, target, "dev", ""); err != nil {
			t.Fatalf("Transition(schema, %s) error = %v", target, err)
		}
	}

	if ids := readyIDs(tr); len(ids) != 1 || ids[0] != dependent.ID {
		t.Errorf("Ready() after completion = %v, want [%s]", ids, dependent.ID)
	}
}

func readyIDs(tr *tracker.Tracker) []string {
	var ids []string
	for _, task := range tr.Ready() {
		ids = append(ids, task.ID)
	}
	return ids
}
