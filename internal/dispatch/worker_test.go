package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

func TestSimWorkerPassesRequiredGates(t *testing.T) {
	w := NewSimWorker(0)
	task := &models.Task{
		ID:            "task_001",
		Type:          models.TypeCoder,
		RequiredGates: []string{"tests_passing", "review_approved"},
	}

	result, err := w.Execute(context.Background(), task)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Blockers) != 0 {
		t.Errorf("expected no blockers on success, got %v", result.Blockers)
	}
	if result.Artifact == "" {
		t.Error("expected an artifact on success")
	}
	for _, gate := range task.RequiredGates {
		if !result.Gates[gate] {
			t.Errorf("expected gate %q to be passed", gate)
		}
	}
}

func TestSimWorkerFailureInjection(t *testing.T) {
	w := &SimWorker{FailRate: 1}
	task := &models.Task{ID: "task_001", Type: models.TypeCoder}

	result, err := w.Execute(context.Background(), task)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Blockers) != 1 {
		t.Fatalf("expected 1 blocker, got %v", result.Blockers)
	}
	if !strings.Contains(result.Blockers[0], "task_001") {
		t.Errorf("expected blocker to name the task, got %q", result.Blockers[0])
	}
	if len(result.Gates) != 0 {
		t.Errorf("expected no gates on failure, got %v", result.Gates)
	}
}

func TestSimWorkerHonorsContext(t *testing.T) {
	w := &SimWorker{Delay: time.Minute}
	task := &models.Task{ID: "task_001"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Execute(ctx, task); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
