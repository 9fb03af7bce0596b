package tracker

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/hfleming/tracklet/pkg/models"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	tr := New(WithRequiredGates([]string{"tests_passing"}))

	a := mustSubmit(t, tr, &models.Task{Title: "foundation", Type: models.TypeArchitect})
	b := mustSubmit(t, tr, &models.Task{Title: "build", ParallelGroup: "wave1"}, a.ID)
	c := mustSubmit(t, tr, &models.Task{Title: "stuck"})

	if _, err := tr.Transition(a.ID, models.StateAnalyzing, "hannah", "start"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddBlocker(c.ID, "waiting on access", "hannah"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.SetGate(b.ID, "tests_passing", true); err != nil {
		t.Fatal(err)
	}

	snap := tr.Snapshot()
	restored, err := Restore(snap, WithRequiredGates([]string{"tests_passing"}))
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	want := tr.Tasks()
	got := restored.Tasks()
	if len(got) != len(want) {
		t.Fatalf("restored %d tasks, want %d", len(got), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("task %s differs after round trip:\n got %+v\nwant %+v", want[i].ID, got[i], want[i])
		}
	}
	if !reflect.DeepEqual(restored.AllHistory(), tr.AllHistory()) {
		t.Error("history differs after round trip")
	}

	// The id counter continues where the original left off.
	next := mustSubmit(t, restored, &models.Task{Title: "after restore"})
	if next.ID != "task_004" {
		t.Errorf("next id = %s, want task_004", next.ID)
	}
}

func TestSnapshotSurvivesJSON(t *testing.T) {
	tr := New()
	a := mustSubmit(t, tr, &models.Task{Title: "a"})
	mustSubmit(t, tr, &models.Task{Title: "b"}, a.ID)
	if _, err := tr.Transition(a.ID, models.StateAnalyzing, "", ""); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(tr.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(&decoded)
	if err != nil {
		t.Fatalf("Restore of decoded snapshot failed: %v", err)
	}
	if restored.Len() != 2 {
		t.Errorf("len = %d, want 2", restored.Len())
	}
	if len(restored.History(a.ID)) != 1 {
		t.Error("history lost through JSON")
	}
}

func TestRestorePreservesTerminalStates(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "done"})
	drive(t, tr, task.ID, models.StateTesting)
	if _, err := tr.Transition(task.ID, models.StateComplete, "", ""); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(tr.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.Status(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateComplete {
		t.Errorf("state = %s, want complete preserved", got.State)
	}
	if _, err := restored.Transition(task.ID, models.StateAnalyzing, "", ""); err == nil {
		t.Error("restored complete task accepted a transition")
	}
}

func TestRestoreHandlesForwardEdges(t *testing.T) {
	// AddDependency can point an earlier task at a later one, so restore
	// cannot simply replay submissions in insertion order.
	tr := New()
	a := mustSubmit(t, tr, &models.Task{Title: "a"})
	b := mustSubmit(t, tr, &models.Task{Title: "b"})
	if err := tr.AddDependency(a.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(tr.Snapshot())
	if err != nil {
		t.Fatalf("Restore failed on forward edge: %v", err)
	}
	got, err := restored.Status(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != b.ID {
		t.Errorf("dependencies = %v, want [%s]", got.Dependencies, b.ID)
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	if _, err := Restore(nil); err == nil {
		t.Error("Restore accepted a nil snapshot")
	}
	if _, err := Restore(&Snapshot{Version: SnapshotVersion + 1}); err == nil {
		t.Error("Restore accepted a snapshot from the future")
	}

	corrupt := &Snapshot{
		Version: SnapshotVersion,
		Tasks: []*models.Task{
			{ID: "task_001", Dependencies: []string{"task_404"}},
		},
	}
	if _, err := Restore(corrupt); err == nil {
		t.Error("Restore accepted a snapshot with dangling dependencies")
	}
}
