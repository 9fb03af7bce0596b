package tracker

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/pkg/models"
)

func mustSubmit(t *testing.T, tr *Tracker, draft *models.Task, deps ...string) *models.Task {
	t.Helper()
	task, err := tr.Submit(draft, deps...)
	if err != nil {
		t.Fatalf("Submit(%q) failed: %v", draft.Title, err)
	}
	return task
}

// drive walks a task along its chain until the target state is reached.
func drive(t *testing.T, tr *Tracker, id string, target models.State) {
	t.Helper()
	path := map[models.State]models.State{
		models.StateNew:          models.StateAnalyzing,
		models.StateAnalyzing:    models.StatePlanning,
		models.StatePlanning:     models.StateImplementing,
		models.StateImplementing: models.StateReviewing,
		models.StateReviewing:    models.StateTesting,
		models.StateTesting:      models.StateComplete,
	}
	for {
		task, err := tr.Status(id)
		if err != nil {
			t.Fatal(err)
		}
		if task.State == target {
			return
		}
		next, ok := path[task.State]
		if !ok {
			t.Fatalf("drive: no forward step from %s", task.State)
		}
		if _, err := tr.Transition(id, next, "test", ""); err != nil {
			t.Fatalf("drive %s: %s -> %s: %v", id, task.State, next, err)
		}
	}
}

func TestSubmitAssignsSequentialIDs(t *testing.T) {
	tr := New()
	for i := 1; i <= 3; i++ {
		task := mustSubmit(t, tr, &models.Task{Title: fmt.Sprintf("job %d", i)})
		want := fmt.Sprintf("task_%03d", i)
		if task.ID != want {
			t.Errorf("id = %s, want %s", task.ID, want)
		}
	}
}

func TestSubmitDefaults(t *testing.T) {
	tr := New(WithRequiredGates([]string{"tests_passing"}), WithMaxIterations(5))
	task := mustSubmit(t, tr, &models.Task{Title: "defaults"})

	if task.State != models.StateNew {
		t.Errorf("state = %s, want new", task.State)
	}
	if task.Type != models.TypeCoder {
		t.Errorf("type = %s, want coder", task.Type)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want medium", task.Priority)
	}
	if len(task.RequiredGates) != 1 || task.RequiredGates[0] != "tests_passing" {
		t.Errorf("required gates = %v, want tracker default", task.RequiredGates)
	}
	if task.MaxIterations != 5 {
		t.Errorf("max iterations = %d, want tracker default 5", task.MaxIterations)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestSubmitExplicitGatesOverrideDefault(t *testing.T) {
	tr := New(WithRequiredGates([]string{"tests_passing", "review_approved"}))

	custom := mustSubmit(t, tr, &models.Task{Title: "custom", RequiredGates: []string{"qa_validated"}})
	if len(custom.RequiredGates) != 1 || custom.RequiredGates[0] != "qa_validated" {
		t.Errorf("required gates = %v, want [qa_validated]", custom.RequiredGates)
	}

	// An explicit empty (non-nil) set means no gates at all.
	none := mustSubmit(t, tr, &models.Task{Title: "ungated", RequiredGates: []string{}})
	if len(none.RequiredGates) != 0 {
		t.Errorf("required gates = %v, want none", none.RequiredGates)
	}
}

func TestSubmitResetsRuntimeFields(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{
		Title:              "dirty draft",
		State:              models.StateComplete,
		Blockers:           []string{"stale"},
		IterationCount:     7,
		EscalationRequired: true,
	})
	if task.State != models.StateNew || len(task.Blockers) != 0 || task.IterationCount != 0 || task.EscalationRequired {
		t.Errorf("runtime fields survived submission: %+v", task)
	}
}

func TestSubmitMergesDeps(t *testing.T) {
	tr := New()
	a := mustSubmit(t, tr, &models.Task{Title: "a"})
	b := mustSubmit(t, tr, &models.Task{Title: "b"})
	c := mustSubmit(t, tr, &models.Task{Title: "c", Dependencies: []string{a.ID}}, b.ID)

	if len(c.Dependencies) != 2 {
		t.Fatalf("dependencies = %v, want both %s and %s", c.Dependencies, a.ID, b.ID)
	}
}

func TestSubmitRejectionLeavesTrackerClean(t *testing.T) {
	tr := New()
	_, err := tr.Submit(&models.Task{Title: "orphan"}, "task_999")
	if !errors.Is(err, graph.ErrUnknownDependency) {
		t.Fatalf("error = %v, want ErrUnknownDependency", err)
	}
	if tr.Len() != 0 {
		t.Fatalf("rejected submit left %d tasks", tr.Len())
	}

	// The id counter must not burn numbers on failed submissions.
	task := mustSubmit(t, tr, &models.Task{Title: "first"})
	if task.ID != "task_001" {
		t.Errorf("id = %s, want task_001", task.ID)
	}
}

func TestSubmitExplicitIDAndCollision(t *testing.T) {
	tr := New()
	given := mustSubmit(t, tr, &models.Task{ID: "task_001", Title: "manual"})
	if given.ID != "task_001" {
		t.Fatalf("id = %s, want task_001", given.ID)
	}

	next := mustSubmit(t, tr, &models.Task{Title: "generated"})
	if next.ID != "task_002" {
		t.Errorf("id = %s, want task_002 skipping the taken id", next.ID)
	}

	if _, err := tr.Submit(&models.Task{ID: "task_001", Title: "dup"}); !errors.Is(err, graph.ErrDuplicateID) {
		t.Errorf("error = %v, want ErrDuplicateID", err)
	}
}

func TestSubmitUnknownPriority(t *testing.T) {
	tr := New()
	if _, err := tr.Submit(&models.Task{Title: "x", Priority: models.Priority("urgent")}); err == nil {
		t.Error("Submit accepted an unknown priority")
	}
}

func TestReturnedTasksAreCopies(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "isolated"})

	task.Title = "mutated"
	task.Dependencies = append(task.Dependencies, "task_999")
	task.QualityGates = map[string]bool{"fake": true}

	stored, err := tr.Status(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "isolated" || len(stored.Dependencies) != 0 || len(stored.QualityGates) != 0 {
		t.Errorf("caller mutation reached tracker state: %+v", stored)
	}
}

func TestTransitionRecordsHistory(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "tracked"})

	updated, err := tr.Transition(task.ID, models.StateAnalyzing, "hannah", "starting")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if updated.State != models.StateAnalyzing {
		t.Errorf("state = %s, want analyzing", updated.State)
	}

	entries := tr.History(task.ID)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.From != models.StateNew || e.To != models.StateAnalyzing || e.Actor != "hannah" || e.Note != "starting" {
		t.Errorf("entry = %+v", e)
	}
}

func TestTransitionUnknownTask(t *testing.T) {
	tr := New()
	if _, err := tr.Transition("task_404", models.StateAnalyzing, "", ""); !errors.Is(err, graph.ErrNoSuchTask) {
		t.Errorf("error = %v, want ErrNoSuchTask", err)
	}
}

func TestFailedTransitionLeavesNoHistory(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "strict"})

	if _, err := tr.Transition(task.ID, models.StateTesting, "", ""); !errors.Is(err, machine.ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
	if entries := tr.History(task.ID); len(entries) != 0 {
		t.Errorf("failed transition recorded history: %+v", entries)
	}
}

func TestFullWorkflowToComplete(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "full run"})

	drive(t, tr, task.ID, models.StateTesting)
	done, err := tr.Transition(task.ID, models.StateComplete, "test", "shipped")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if done.State != models.StateComplete {
		t.Errorf("state = %s, want complete", done.State)
	}

	entries := tr.History(task.ID)
	if len(entries) != 6 {
		t.Fatalf("history has %d entries, want 6", len(entries))
	}
	if entries[0].From != models.StateNew || entries[len(entries)-1].To != models.StateComplete {
		t.Errorf("history does not span new to complete: first %+v last %+v", entries[0], entries[len(entries)-1])
	}
}

func TestCompletionGatedByTrackerDefaults(t *testing.T) {
	tr := New(WithRequiredGates([]string{"tests_passing"}))
	task := mustSubmit(t, tr, &models.Task{Title: "gated"})
	drive(t, tr, task.ID, models.StateTesting)

	if _, err := tr.Transition(task.ID, models.StateComplete, "", ""); !errors.Is(err, machine.ErrGateNotSatisfied) {
		t.Fatalf("error = %v, want ErrGateNotSatisfied", err)
	}
	if _, err := tr.SetGate(task.ID, "tests_passing", true); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Transition(task.ID, models.StateComplete, "", ""); err != nil {
		t.Fatalf("completion after passing gate failed: %v", err)
	}
}

func TestBlockerFlow(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "stuck"})
	drive(t, tr, task.ID, models.StateImplementing)

	blocked, err := tr.AddBlocker(task.ID, "waiting on credentials", "hannah")
	if err != nil {
		t.Fatalf("AddBlocker failed: %v", err)
	}
	if blocked.State != models.StateBlocked {
		t.Errorf("state = %s, want blocked", blocked.State)
	}

	// Completing a blocked task must fail, not overwrite the block.
	if _, err := tr.Transition(task.ID, models.StateComplete, "", ""); !errors.Is(err, machine.ErrInvalidTransition) {
		t.Fatalf("completing blocked task: error = %v, want ErrInvalidTransition", err)
	}

	resumed, err := tr.ClearBlocker(task.ID, 0, models.StateImplementing, "hannah")
	if err != nil {
		t.Fatalf("ClearBlocker failed: %v", err)
	}
	if resumed.State != models.StateImplementing {
		t.Errorf("state = %s, want implementing", resumed.State)
	}

	entries := tr.History(task.ID)
	var blockMoves int
	for _, e := range entries {
		if e.To == models.StateBlocked || e.From == models.StateBlocked {
			blockMoves++
		}
	}
	if blockMoves != 2 {
		t.Errorf("history records %d block moves, want enter and resume", blockMoves)
	}
}

func TestSetGate(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "gates"})

	if _, err := tr.SetGate(task.ID, "", true); err == nil {
		t.Error("SetGate accepted an empty gate name")
	}
	if _, err := tr.SetGate("task_404", "tests_passing", true); !errors.Is(err, graph.ErrNoSuchTask) {
		t.Errorf("error = %v, want ErrNoSuchTask", err)
	}

	updated, err := tr.SetGate(task.ID, "tests_passing", true)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.QualityGates["tests_passing"] {
		t.Error("gate not recorded")
	}

	updated, err = tr.SetGate(task.ID, "tests_passing", false)
	if err != nil {
		t.Fatal(err)
	}
	if updated.QualityGates["tests_passing"] {
		t.Error("gate not overwritten")
	}

	// Gate changes are not transitions and leave no history.
	if entries := tr.History(task.ID); len(entries) != 0 {
		t.Errorf("SetGate recorded history: %+v", entries)
	}
}

func TestHistorySurvivesRemoval(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "short lived"})
	if _, err := tr.Transition(task.ID, models.StateAnalyzing, "", ""); err != nil {
		t.Fatal(err)
	}

	if err := tr.Remove(task.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := tr.Status(task.ID); !errors.Is(err, graph.ErrNoSuchTask) {
		t.Errorf("status after removal = %v, want ErrNoSuchTask", err)
	}
	if entries := tr.History(task.ID); len(entries) != 1 {
		t.Errorf("history lost on removal: %+v", entries)
	}
}

func TestRemoveReferencedTask(t *testing.T) {
	tr := New()
	a := mustSubmit(t, tr, &models.Task{Title: "base"})
	mustSubmit(t, tr, &models.Task{Title: "on top"}, a.ID)

	if err := tr.Remove(a.ID); !errors.Is(err, graph.ErrTaskReferenced) {
		t.Errorf("error = %v, want ErrTaskReferenced", err)
	}
}

func TestReadyAndGroups(t *testing.T) {
	tr := New()
	a := mustSubmit(t, tr, &models.Task{Title: "a", ParallelGroup: "wave1"})
	b := mustSubmit(t, tr, &models.Task{Title: "b", ParallelGroup: "wave1"})
	c := mustSubmit(t, tr, &models.Task{Title: "c"})
	mustSubmit(t, tr, &models.Task{Title: "gated"}, a.ID)

	ready := tr.Ready()
	if len(ready) != 3 {
		t.Fatalf("ready = %d tasks, want 3", len(ready))
	}
	if ready[0].ID != a.ID || ready[1].ID != b.ID || ready[2].ID != c.ID {
		t.Errorf("ready order = %s,%s,%s", ready[0].ID, ready[1].ID, ready[2].ID)
	}

	groups := tr.Groups()
	if len(groups) != 2 {
		t.Fatalf("groups = %v, want wave1 plus singleton", groups)
	}
	if len(groups["wave1"]) != 2 {
		t.Errorf("wave1 = %d members, want 2", len(groups["wave1"]))
	}
	if len(groups[c.ID]) != 1 || groups[c.ID][0].ID != c.ID {
		t.Errorf("ungrouped task %s not a singleton group", c.ID)
	}
}

func TestAllowed(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "plain"})

	allowed, err := tr.Allowed(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(allowed) != 1 || allowed[0] != models.StateAnalyzing {
		t.Errorf("allowed = %v, want [analyzing]", allowed)
	}
	if _, err := tr.Allowed("task_404"); !errors.Is(err, graph.ErrNoSuchTask) {
		t.Errorf("error = %v, want ErrNoSuchTask", err)
	}
}

func TestConcurrentSubmitsAndTransitions(t *testing.T) {
	tr := New()
	seed := make([]*models.Task, 8)
	for i := range seed {
		seed[i] = mustSubmit(t, tr, &models.Task{Title: fmt.Sprintf("seed %d", i)})
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tr.Transition(seed[i].ID, models.StateAnalyzing, "worker", ""); err != nil {
				t.Errorf("concurrent transition: %v", err)
			}
		}(i)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tr.Submit(&models.Task{Title: fmt.Sprintf("extra %d", i)}); err != nil {
				t.Errorf("concurrent submit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if tr.Len() != 16 {
		t.Errorf("len = %d, want 16", tr.Len())
	}
	if len(tr.AllHistory()) != 8 {
		t.Errorf("history = %d entries, want 8", len(tr.AllHistory()))
	}
}
