//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hfleming/tracklet/internal/dispatch"
	"github.com/hfleming/tracklet/internal/planfile"
	"github.com/hfleming/tracklet/pkg/models"
)

const releasePlan = `
tasks:
  - id: schema
    title: Design release schema
    type: architect
    priority: high
  - id: api
    title: Implement release API
    deps: [schema]
    group: backend
  - id: docs
    title: Write release notes
    type: docs
    deps: [schema]
    group: backend
`

// TestPlanRunsToCompletion loads a plan, dispatches it with the
// simulated worker, and verifies tracker, summary, and run store all
// agree on the outcome.
func TestPlanRunsToCompletion(t *testing.T) {
	tr := newDefaultTracker(t)

	plan, err := planfile.Parse([]byte(releasePlan))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	submitted, err := plan.Apply(tr)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(submitted) != 3 {
		t.Fatalf("Apply() submitted %d tasks, want 3", len(submitted))
	}

	store, err := dispatch.NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewRunStore() error = %v", err)
	}
	defer store.Close()

	runner := dispatch.NewRunner(tr, dispatch.NewSimWorker(0),
		dispatch.WithWorkers(2),
		dispatch.WithRunStore(store),
		dispatch.WithActor("sim"),
	)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Completed != 3 || summary.Blocked != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %d completed, %d blocked, %d failed; want 3/0/0",
			summary.Completed, summary.Blocked, summary.Failed)
	}
	if summary.Waves < 2 {
		t.Errorf("Waves = %d, want at least 2 (deps force a second wave)", summary.Waves)
	}

	for _, task := range tr.Tasks() {
		if task.State != models.StateComplete {
			t.Errorf("task %s ended in %s, want %s", task.ID, task.State, models.StateComplete)
		}
		if len(tr.History(task.ID)) == 0 {
			t.Errorf("task %s has no history", task.ID)
		}
	}
	if team := tr.Team(); team.CompletionRate != 1 {
		t.Errorf("CompletionRate = %.2f, want 1", team.CompletionRate)
	}

	session, err := store.GetSession(summary.RunID)
	if err != nil {
		t.Fatalf("GetSession(%s) error = %v", summary.RunID, err)
	}
	if session == nil {
		t.Fatal("GetSession() returned nil")
	}
	if session.Status != "done" {
		t.Errorf("session status = %s, want done", session.Status)
	}
	if session.Completed != summary.Completed || session.Total != 3 {
		t.Errorf("session counts = %d/%d, want %d/3", session.Completed, session.Total, summary.Completed)
	}
}

// TestRunBlocksFailingTasks verifies a worker that always fails leaves
// tasks blocked with recorded reasons instead of completing them.
func TestRunBlocksFailingTasks(t *testing.T) {
	tr := newDefaultTracker(t)

	if _, err := tr.Submit(&models.Task{Title: "Flaky deploy"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	runner := dispatch.NewRunner(tr, dispatch.NewSimWorker(1), dispatch.WithActor("sim"))
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Blocked != 1 || summary.Completed != 0 {
		t.Fatalf("summary = %d blocked, %d completed; want 1 blocked", summary.Blocked, summary.Completed)
	}

	tasks := tr.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("Tasks() = %d, want 1", len(tasks))
	}
	if tasks[0].State != models.StateBlocked {
		t.Errorf("state = %s, want %s", tasks[0].State, models.StateBlocked)
	}
	if len(tasks[0].Blockers) == 0 {
		t.Error("blocked task carries no blocker text")
	}
}
