package tracker

import (
	"errors"
	"testing"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/pkg/models"
)

func TestProgressFor(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want int
	}{
		{"new", models.Task{State: models.StateNew}, 0},
		{"analyzing", models.Task{State: models.StateAnalyzing}, 10},
		{"planning", models.Task{State: models.StatePlanning}, 20},
		{"debugging", models.Task{State: models.StateDebugging}, 40},
		{"implementing", models.Task{State: models.StateImplementing}, 50},
		{"blocked holds position", models.Task{State: models.StateBlocked}, 50},
		{"reviewing", models.Task{State: models.StateReviewing}, 70},
		{"iteration", models.Task{State: models.StateIteration}, 75},
		{"testing", models.Task{State: models.StateTesting}, 85},
		{"security audit", models.Task{State: models.StateSecurityAudit}, 85},
		{"documenting", models.Task{State: models.StateDocumenting}, 90},
		{"devops", models.Task{State: models.StateDevops}, 90},
		{"complete", models.Task{State: models.StateComplete}, 100},
		{
			"half the gates passed",
			models.Task{
				State:         models.StateImplementing,
				RequiredGates: []string{"a", "b"},
				QualityGates:  map[string]bool{"a": true},
			},
			55,
		},
		{
			"all gates passed",
			models.Task{
				State:         models.StateTesting,
				RequiredGates: []string{"a", "b"},
				QualityGates:  map[string]bool{"a": true, "b": true},
			},
			95,
		},
		{
			"gate bonus capped at 100",
			models.Task{
				State:         models.StateDocumenting,
				RequiredGates: []string{"a"},
				QualityGates:  map[string]bool{"a": true},
			},
			100,
		},
		{
			"no bonus before work starts",
			models.Task{
				State:         models.StateNew,
				RequiredGates: []string{"a"},
				QualityGates:  map[string]bool{"a": true},
			},
			0,
		},
		{
			"complete never exceeds 100",
			models.Task{
				State:         models.StateComplete,
				RequiredGates: []string{"a"},
				QualityGates:  map[string]bool{"a": true},
			},
			100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressFor(&tt.task); got != tt.want {
				t.Errorf("ProgressFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProgressLookup(t *testing.T) {
	tr := New()
	task := mustSubmit(t, tr, &models.Task{Title: "tracked"})

	pct, err := tr.Progress(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pct != 0 {
		t.Errorf("progress of new task = %d, want 0", pct)
	}

	if _, err := tr.Transition(task.ID, models.StateAnalyzing, "", ""); err != nil {
		t.Fatal(err)
	}
	pct, err = tr.Progress(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pct != 10 {
		t.Errorf("progress = %d, want 10", pct)
	}

	if _, err := tr.Progress("task_404"); !errors.Is(err, graph.ErrNoSuchTask) {
		t.Errorf("error = %v, want ErrNoSuchTask", err)
	}
}
