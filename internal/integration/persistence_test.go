//go:build integration

package integration

import (
	"path/filepath"
	"testing"

	"github.com/hfleming/tracklet/internal/config"
	"github.com/hfleming/tracklet/internal/state"
	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

// TestTrackerSurvivesStoreReopen saves a working tracker through the
// store, reopens the database from disk, and verifies the restored
// tracker picks up exactly where the first one stopped.
func TestTrackerSurvivesStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tracker.db")

	st, err := state.New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := st.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	tr := newDefaultTracker(t)

	done, err := tr.Submit(&models.Task{Title: "Bootstrap search indexer", RequiredGates: []string{}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	for _, target := range []models.State{
		models.StateAnalyzing,
		models.StatePlanning,
		models.StateImplementing,
		models.StateReviewing,
		models.StateTesting,
		models.StateComplete,
	} {
		if _, err := tr.Transition(done.ID, target, "dev", ""); err != nil {
			t.Fatalf("Transition(%s) error = %v", target, err)
		}
	}

	stuck, err := tr.Submit(&models.Task{Title: "Tune ranking weights"}, done.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := tr.AddBlocker(stuck.ID, "needs relevance corpus", "dev"); err != nil {
		t.Fatalf("AddBlocker() error = %v", err)
	}

	if err := st.SaveSnapshot(tr.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen from disk, as the next CLI invocation would.
	reopened, err := state.New(dbPath)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()
	if err := reopened.Migrate(); err != nil {
		t.Fatalf("Migrate() reopen error = %v", err)
	}

	snap, err := reopened.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	cfg := config.Default()
	restored, err := tracker.Restore(snap,
		tracker.WithMaxIterations(cfg.Workflow.MaxIterations),
		tracker.WithRequiredGates(cfg.Gates.Required),
		tracker.WithSatisfiedStates(cfg.SatisfiedStates()...),
	)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if restored.Len() != tr.Len() {
		t.Fatalf("restored Len() = %d, want %d", restored.Len(), tr.Len())
	}
	if got, want := len(restored.AllHistory()), len(tr.AllHistory()); got != want {
		t.Errorf("restored history = %d entries, want %d", got, want)
	}

	gotStuck, err := restored.Status(stuck.ID)
	if err != nil {
		t.Fatalf("Status(%s) error = %v", stuck.ID, err)
	}
	if gotStuck.State != models.StateBlocked {
		t.Errorf("restored state = %s, want %s", gotStuck.State, models.StateBlocked)
	}
	if len(gotStuck.Blockers) != 1 || gotStuck.Blockers[0] != "needs relevance corpus" {
		t.Errorf("restored blockers = %v", gotStuck.Blockers)
	}
	if len(gotStuck.Dependencies) != 1 || gotStuck.Dependencies[0] != done.ID {
		t.Errorf("restored dependencies = %v, want [%s]", gotStuck.Dependencies, done.ID)
	}

	// Id assignment continues from the saved counter.
	next, err := restored.Submit(&models.Task{Title: "Ship dashboards"})
	if err != nil {
		t.Fatalf("Submit() after restore error = %v", err)
	}
	if next.ID != "task_003" {
		t.Errorf("next id = %s, want task_003", next.ID)
	}
}

// TestSearchSeesSavedSnapshot verifies full-text search works against
// whatever the last snapshot persisted.
func TestSearchSeesSavedSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tracker.db")

	st, err := state.New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	tr := newDefaultTracker(t)
	if _, err := tr.Submit(&models.Task{Title: "Rotate signing keys", Description: "quarterly credential hygiene"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := tr.Submit(&models.Task{Title: "Upgrade proxy fleet"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := st.SaveSnapshot(tr.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	hits, err := st.Search("credential")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Rotate signing keys" {
		t.Fatalf("Search(credential) = %d hits, want the signing keys task", len(hits))
	}

	hits, err = st.Search("kubernetes")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Search(kubernetes) = %d hits, want 0", len(hits))
	}
}
