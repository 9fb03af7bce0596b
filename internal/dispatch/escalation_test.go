package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

func TestEscalationRoundTrip(t *testing.T) {
	h := NewEscalationHandler(5 * time.Second)

	go func() {
		for !h.Active() {
			time.Sleep(time.Millisecond)
		}
		if cur := h.Current(); cur == nil || cur.Task.ID != "task_001" {
			t.Errorf("expected current request for task_001, got %+v", cur)
		}
		if err := h.Respond(&EscalationResponse{Action: EscalationProceed, Timestamp: time.Now()}); err != nil {
			t.Errorf("Respond failed: %v", err)
		}
	}()

	resp, err := h.Request(context.Background(), &EscalationRequest{
		Task:   &models.Task{ID: "task_001"},
		Rounds: 4,
		Reason: "unmet quality gates",
	})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Action != EscalationProceed {
		t.Errorf("expected proceed, got %s", resp.Action)
	}
	if h.Active() {
		t.Error("expected handler to be idle after the response")
	}
}

func TestEscalationTimeoutBlocks(t *testing.T) {
	h := NewEscalationHandler(20 * time.Millisecond)

	resp, err := h.Request(context.Background(), &EscalationRequest{Task: &models.Task{ID: "task_001"}})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Action != EscalationBlock {
		t.Errorf("expected timeout to default to block, got %s", resp.Action)
	}
}

func TestEscalationHonorsContext(t *testing.T) {
	h := NewEscalationHandler(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Request(ctx, &EscalationRequest{Task: &models.Task{ID: "task_001"}}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestEscalationRejectsConcurrentRequests(t *testing.T) {
	h := NewEscalationHandler(time.Minute)

	go h.Request(context.Background(), &EscalationRequest{Task: &models.Task{ID: "task_001"}})
	for !h.Active() {
		time.Sleep(time.Millisecond)
	}

	if _, err := h.Request(context.Background(), &EscalationRequest{Task: &models.Task{ID: "task_002"}}); err == nil {
		t.Fatal("expected error for concurrent escalation")
	}

	h.Respond(&EscalationResponse{Action: EscalationBlock})
}

func TestRespondWithoutRequest(t *testing.T) {
	h := NewEscalationHandler(time.Minute)

	if err := h.Respond(&EscalationResponse{Action: EscalationProceed}); err == nil {
		t.Fatal("expected error when no escalation is in progress")
	}
}
