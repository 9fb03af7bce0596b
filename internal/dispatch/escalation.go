package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

// EscalationAction represents the decision made when a task exceeds its
// rework limit.
type EscalationAction string

const (
	// EscalationProceed allows the task another rework round.
	EscalationProceed EscalationAction = "proceed"
	// EscalationBlock blocks the task and continues with remaining work.
	EscalationBlock EscalationAction = "block"
	// EscalationAbort stops the entire run.
	EscalationAbort EscalationAction = "abort"
)

// DefaultEscalationTimeout is how long the runner waits for a decision
// before falling back to blocking the task.
const DefaultEscalationTimeout = 30 * time.Second

// EscalationRequest contains information about a task that needs a decision.
type EscalationRequest struct {
	// Task is a snapshot of the escalated task.
	Task *models.Task
	// Rounds is the number of rework rounds already taken.
	Rounds int
	// Reason is a human-readable summary of why the task escalated.
	Reason string
}

// EscalationResponse contains the decision and any additional information.
type EscalationResponse struct {
	// Action is the chosen action.
	Action EscalationAction
	// Message contains any additional message from the decider.
	Message string
	// Timestamp is when the decision was made.
	Timestamp time.Time
}

// EscalationHandler routes escalation requests to whoever can decide,
// typically the CLI prompting the user.
type EscalationHandler struct {
	mu         sync.RWMutex
	active     bool
	current    *EscalationRequest
	responseCh chan *EscalationResponse
	timeout    time.Duration
}

// NewEscalationHandler creates a handler with the given decision timeout.
// A non-positive timeout uses DefaultEscalationTimeout.
func NewEscalationHandler(timeout time.Duration) *EscalationHandler {
	if timeout <= 0 {
		timeout = DefaultEscalationTimeout
	}
	return &EscalationHandler{
		responseCh: make(chan *EscalationResponse, 1),
		timeout:    timeout,
	}
}

// Request blocks until a decision arrives, the timeout expires, or the
// context is cancelled. On timeout the task is blocked rather than the
// whole run aborted.
func (h *EscalationHandler) Request(ctx context.Context, req *EscalationRequest) (*EscalationResponse, error) {
	h.mu.Lock()
	if h.active {
		h.mu.Unlock()
		return nil, fmt.Errorf("escalation already in progress")
	}
	h.active = true
	h.current = req
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.active = false
		h.current = nil
		h.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case response := <-h.responseCh:
		return response, nil
	case <-time.After(h.timeout):
		return &EscalationResponse{
			Action:    EscalationBlock,
			Message:   fmt.Sprintf("escalation timed out after %v", h.timeout),
			Timestamp: time.Now(),
		}, nil
	}
}

// Respond sends a decision to the waiting escalation request.
// This is called by the CLI when the user makes a choice.
func (h *EscalationHandler) Respond(response *EscalationResponse) error {
	h.mu.RLock()
	if !h.active {
		h.mu.RUnlock()
		return fmt.Errorf("no escalation in progress")
	}
	h.mu.RUnlock()

	select {
	case h.responseCh <- response:
		return nil
	default:
		return fmt.Errorf("failed to send escalation response")
	}
}

// Current returns the active escalation request, nil when there is none.
func (h *EscalationHandler) Current() *EscalationRequest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Active returns true while an escalation request is waiting for a decision.
func (h *EscalationHandler) Active() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}
