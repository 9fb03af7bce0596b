package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func sampleTask(id string) *models.Task {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Task{
		ID:             id,
		ParentID:       "task_000",
		Title:          "implement parser",
		Description:    "tokenizer plus recursive descent",
		Type:           models.TypeCoder,
		Priority:       models.PriorityHigh,
		State:          models.StateImplementing,
		Dependencies:   []string{"task_010", "task_011"},
		ParallelGroup:  "wave1",
		Blockers:       nil,
		QualityGates:   map[string]bool{"tests_passing": true},
		RequiredGates:  []string{"tests_passing", "review_approved"},
		IterationCount: 2,
		MaxIterations:  3,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func sameTask(t *testing.T, got, want *models.Task) {
	t.Helper()
	if got.ID != want.ID || got.ParentID != want.ParentID || got.Title != want.Title ||
		got.Description != want.Description || got.Type != want.Type ||
		got.Priority != want.Priority || got.State != want.State ||
		got.ParallelGroup != want.ParallelGroup ||
		got.IterationCount != want.IterationCount || got.MaxIterations != want.MaxIterations ||
		got.EscalationRequired != want.EscalationRequired {
		t.Errorf("task fields differ:\n got %+v\nwant %+v", got, want)
	}
	if len(got.Dependencies) != len(want.Dependencies) {
		t.Errorf("dependencies = %v, want %v", got.Dependencies, want.Dependencies)
	} else {
		for i := range want.Dependencies {
			if got.Dependencies[i] != want.Dependencies[i] {
				t.Errorf("dependencies = %v, want %v", got.Dependencies, want.Dependencies)
				break
			}
		}
	}
	if len(got.Blockers) != len(want.Blockers) {
		t.Errorf("blockers = %v, want %v", got.Blockers, want.Blockers)
	}
	if len(got.QualityGates) != len(want.QualityGates) {
		t.Errorf("quality gates = %v, want %v", got.QualityGates, want.QualityGates)
	} else {
		for k, v := range want.QualityGates {
			if got.QualityGates[k] != v {
				t.Errorf("quality gates = %v, want %v", got.QualityGates, want.QualityGates)
				break
			}
		}
	}
	if len(got.RequiredGates) != len(want.RequiredGates) {
		t.Errorf("required gates = %v, want %v", got.RequiredGates, want.RequiredGates)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("timestamps differ: got %v/%v want %v/%v",
			got.CreatedAt, got.UpdatedAt, want.CreatedAt, want.UpdatedAt)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestSaveAndGetTask(t *testing.T) {
	store := newTestStore(t)
	want := sampleTask("task_001")

	if err := store.SaveTask(want); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	got, err := store.GetTask("task_001")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got == nil {
		t.Fatal("GetTask returned nil for a saved task")
	}
	sameTask(t, got, want)

	missing, err := store.GetTask("task_404")
	if err != nil {
		t.Fatalf("GetTask missing: %v", err)
	}
	if missing != nil {
		t.Errorf("GetTask for missing id = %+v, want nil", missing)
	}
}

func TestSaveTaskUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	first := sampleTask("task_001")
	second := sampleTask("task_002")
	if err := store.SaveTask(first); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTask(second); err != nil {
		t.Fatal(err)
	}

	first.State = models.StateComplete
	first.QualityGates["review_approved"] = true
	if err := store.SaveTask(first); err != nil {
		t.Fatalf("update save: %v", err)
	}

	tasks, err := store.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("list = %d tasks, want 2", len(tasks))
	}
	// Updates must not move a task out of insertion order.
	if tasks[0].ID != "task_001" || tasks[1].ID != "task_002" {
		t.Errorf("order = %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if tasks[0].State != models.StateComplete || !tasks[0].QualityGates["review_approved"] {
		t.Errorf("update not applied: %+v", tasks[0])
	}
}

func TestDeleteTask(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveTask(sampleTask("task_001")); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTask("task_001"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := store.DeleteTask("task_001"); err == nil {
		t.Error("deleting a missing task did not error")
	}
	got, err := store.GetTask("task_001")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("task still present after delete")
	}
}

func TestHistoryLog(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Microsecond)
	entries := []models.HistoryEntry{
		{TaskID: "task_001", From: models.StateNew, To: models.StateAnalyzing, Actor: "hannah", Note: "start", At: base},
		{TaskID: "task_002", From: models.StateNew, To: models.StateTesting, Actor: "qa-bot", At: base.Add(time.Second)},
		{TaskID: "task_001", From: models.StateAnalyzing, To: models.StatePlanning, At: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := store.AppendHistory(e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	all, err := store.AllHistory()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all history = %d entries, want 3", len(all))
	}

	one, err := store.HistoryFor("task_001")
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 2 {
		t.Fatalf("task_001 history = %d entries, want 2", len(one))
	}
	if one[0].To != models.StateAnalyzing || one[1].To != models.StatePlanning {
		t.Errorf("history out of order: %+v", one)
	}
	if one[0].Actor != "hannah" || one[0].Note != "start" {
		t.Errorf("entry fields lost: %+v", one[0])
	}
	if !one[0].At.Equal(base) {
		t.Errorf("timestamp = %v, want %v", one[0].At, base)
	}
}

func TestHistorySurvivesTaskDeletion(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveTask(sampleTask("task_001")); err != nil {
		t.Fatal(err)
	}
	entry := models.HistoryEntry{TaskID: "task_001", From: models.StateNew, To: models.StateAnalyzing, At: time.Now()}
	if err := store.AppendHistory(entry); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTask("task_001"); err != nil {
		t.Fatal(err)
	}
	got, err := store.HistoryFor("task_001")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("history = %d entries after task deletion, want 1", len(got))
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)

	parser := sampleTask("task_001")
	auth := sampleTask("task_002")
	auth.Title = "harden auth flow"
	auth.Description = "rotate session tokens"
	for _, task := range []*models.Task{parser, auth} {
		if err := store.SaveTask(task); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := store.Search("parser")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "task_001" {
		t.Errorf("search parser = %+v, want task_001", hits)
	}

	hits, err = store.Search("tokens")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "task_002" {
		t.Errorf("search by description word = %+v, want task_002", hits)
	}

	hits, err = store.Search("kubernetes")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("search with no matches = %+v, want empty", hits)
	}
}

func TestSearchFollowsUpdates(t *testing.T) {
	store := newTestStore(t)
	task := sampleTask("task_001")
	if err := store.SaveTask(task); err != nil {
		t.Fatal(err)
	}

	task.Title = "migrate billing schema"
	if err := store.SaveTask(task); err != nil {
		t.Fatal(err)
	}

	if hits, err := store.Search("parser"); err != nil || len(hits) != 0 {
		t.Errorf("stale index: hits=%v err=%v", hits, err)
	}
	if hits, err := store.Search("billing"); err != nil || len(hits) != 1 {
		t.Errorf("updated title not indexed: hits=%v err=%v", hits, err)
	}
}

func TestSnapshotRoundTripThroughStore(t *testing.T) {
	store := newTestStore(t)

	tr := tracker.New()
	a, err := tr.Submit(&models.Task{Title: "design schema", Type: models.TypeArchitect})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Submit(&models.Task{Title: "implement schema"}, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Transition(a.ID, models.StateAnalyzing, "hannah", ""); err != nil {
		t.Fatal(err)
	}

	if err := store.SaveSnapshot(tr.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	loaded, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	restored, err := tracker.Restore(loaded)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.Len() != 2 {
		t.Fatalf("restored %d tasks, want 2", restored.Len())
	}
	wantTasks := tr.Tasks()
	gotTasks := restored.Tasks()
	for i := range wantTasks {
		sameTask(t, gotTasks[i], wantTasks[i])
	}
	if len(restored.AllHistory()) != 1 {
		t.Errorf("history = %d entries, want 1", len(restored.AllHistory()))
	}

	// The id counter picks up where the saved tracker left off.
	next, err := restored.Submit(&models.Task{Title: "third"})
	if err != nil {
		t.Fatal(err)
	}
	if next.ID != "task_003" {
		t.Errorf("next id = %s, want task_003", next.ID)
	}
}

func TestSaveSnapshotReplacesPreviousState(t *testing.T) {
	store := newTestStore(t)

	tr := tracker.New()
	if _, err := tr.Submit(&models.Task{Title: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSnapshot(tr.Snapshot()); err != nil {
		t.Fatal(err)
	}

	fresh := tracker.New()
	if _, err := fresh.Submit(&models.Task{Title: "new world"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSnapshot(fresh.Snapshot()); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Tasks) != 1 || loaded.Tasks[0].Title != "new world" {
		t.Errorf("loaded = %+v, want only the new task", loaded.Tasks)
	}
}

func TestLoadSnapshotFromEmptyStore(t *testing.T) {
	store := newTestStore(t)
	snap, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Tasks) != 0 || len(snap.History) != 0 || snap.NextID != 0 {
		t.Errorf("empty store snapshot = %+v", snap)
	}
	if _, err := tracker.Restore(snap); err != nil {
		t.Errorf("empty snapshot should restore cleanly: %v", err)
	}
}
