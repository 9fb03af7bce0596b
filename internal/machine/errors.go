package machine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hfleming/tracklet/pkg/models"
)

// State machine failures. All are caller errors, reported synchronously;
// a failed call leaves the task unchanged.
var (
	// ErrInvalidTransition indicates a transition the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrGateNotSatisfied indicates completion was attempted with unmet gates.
	ErrGateNotSatisfied = errors.New("quality gates not satisfied")
	// ErrNoSuchBlocker indicates a blocker index out of range.
	ErrNoSuchBlocker = errors.New("no such blocker")
	// ErrUnknownState indicates a state name the workflow does not declare.
	ErrUnknownState = errors.New("unknown state")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	TaskID string
	From   models.State
	To     models.State
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: %s -> %s: %s", e.TaskID, e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// GateError describes a completion attempt with unmet required gates.
type GateError struct {
	TaskID string
	Unmet  []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("task %s: unmet gates: %s", e.TaskID, strings.Join(e.Unmet, ", "))
}

func (e *GateError) Unwrap() error { return ErrGateNotSatisfied }
