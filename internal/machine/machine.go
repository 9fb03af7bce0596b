package machine

import (
	"fmt"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

// DefaultMaxIterations caps rework loops for tasks that do not set
// their own limit.
const DefaultMaxIterations = 3

// Machine validates and applies task state transitions.
//
// The table decides which forward transitions exist for each task type.
// The machine enforces the rules that hold regardless of table content:
// complete is terminal, blocked is entered and left only through
// blockers, completion requires every required gate to be satisfied,
// and iteration entry counts rework and flags escalation past the limit.
//
// A rejected call leaves the task untouched. The machine does not lock;
// callers serialize access to each task.
type Machine struct {
	table         Table
	maxIterations int
}

// New creates a machine using the given table. A nil table uses the
// built-in default, and maxIterations <= 0 uses DefaultMaxIterations.
func New(table Table, maxIterations int) *Machine {
	if table == nil {
		table = Default()
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Machine{table: table, maxIterations: maxIterations}
}

// Table returns the workflow table the machine enforces.
func (m *Machine) Table() Table { return m.table }

// Allowed returns the states the task may transition to next. Blocked
// and complete tasks have no allowed transitions.
func (m *Machine) Allowed(task *models.Task) []models.State {
	if task.State == models.StateBlocked || task.State == models.StateComplete {
		return nil
	}
	return m.table.Allowed(task.Type, task.State)
}

// Transition moves the task to the target state and returns the history
// entry recording the move.
//
// An undeclared target fails with ErrUnknownState. A TransitionError is
// returned when the task is complete or blocked, the target is blocked,
// or the table does not allow the move for the task's type. Completing a
// task with unmet required gates fails with a GateError. Entering iteration
// increments the task's iteration count; past the limit the transition
// still succeeds and the task is flagged for escalation.
func (m *Machine) Transition(task *models.Task, target models.State, actor, note string) (models.HistoryEntry, error) {
	from := task.State
	if !target.Valid() {
		return models.HistoryEntry{}, fmt.Errorf("task %s: %q: %w", task.ID, target, ErrUnknownState)
	}
	if from == models.StateComplete {
		return models.HistoryEntry{}, &TransitionError{TaskID: task.ID, From: from, To: target, Reason: "task is complete"}
	}
	if from == models.StateBlocked {
		return models.HistoryEntry{}, &TransitionError{TaskID: task.ID, From: from, To: target, Reason: "blocked tasks resume by clearing blockers"}
	}
	if target == models.StateBlocked {
		return models.HistoryEntry{}, &TransitionError{TaskID: task.ID, From: from, To: target, Reason: "blocked is entered by adding a blocker"}
	}
	if !m.table.Allows(task.Type, from, target) {
		return models.HistoryEntry{}, &TransitionError{TaskID: task.ID, From: from, To: target, Reason: fmt.Sprintf("not allowed for %s tasks", task.Type)}
	}
	if target == models.StateComplete {
		if unmet := task.UnmetGates(); len(unmet) > 0 {
			return models.HistoryEntry{}, &GateError{TaskID: task.ID, Unmet: unmet}
		}
	}

	if target == models.StateIteration {
		task.IterationCount++
		if task.IterationCount > m.iterationLimit(task) {
			task.EscalationRequired = true
		}
	}

	now := time.Now()
	task.State = target
	task.UpdatedAt = now
	return models.HistoryEntry{
		TaskID: task.ID,
		From:   from,
		To:     target,
		Actor:  actor,
		Note:   note,
		At:     now,
	}, nil
}

// Block records a blocker on the task. The first blocker moves the task
// to blocked and returns the history entry for that move; further
// blockers accumulate without a transition and return nil. Complete
// tasks cannot be blocked.
func (m *Machine) Block(task *models.Task, text, actor string) (*models.HistoryEntry, error) {
	if task.State == models.StateComplete {
		return nil, &TransitionError{TaskID: task.ID, From: task.State, To: models.StateBlocked, Reason: "task is complete"}
	}

	task.Blockers = append(task.Blockers, text)
	now := time.Now()
	task.UpdatedAt = now
	if task.State == models.StateBlocked {
		return nil, nil
	}

	from := task.State
	task.State = models.StateBlocked
	return &models.HistoryEntry{
		TaskID: task.ID,
		From:   from,
		To:     models.StateBlocked,
		Actor:  actor,
		Note:   text,
		At:     now,
	}, nil
}

// Unblock clears the blocker at index. Clearing the last blocker moves
// the task into the declared resume state and returns the history entry
// for that move; otherwise the task stays blocked and the entry is nil.
//
// The resume state is required because the machine does not remember
// where the task was blocked from. It must be a declared state and may
// not be blocked or complete.
func (m *Machine) Unblock(task *models.Task, index int, resume models.State, actor string) (*models.HistoryEntry, error) {
	if index < 0 || index >= len(task.Blockers) {
		return nil, fmt.Errorf("task %s blocker %d: %w", task.ID, index, ErrNoSuchBlocker)
	}

	cleared := task.Blockers[index]
	remaining := append([]string(nil), task.Blockers[:index]...)
	remaining = append(remaining, task.Blockers[index+1:]...)

	if len(remaining) > 0 {
		task.Blockers = remaining
		task.UpdatedAt = time.Now()
		return nil, nil
	}

	if resume == "" {
		return nil, fmt.Errorf("task %s: resume state required: %w", task.ID, ErrUnknownState)
	}
	if !resume.Valid() {
		return nil, fmt.Errorf("task %s: %q: %w", task.ID, resume, ErrUnknownState)
	}
	if resume == models.StateBlocked {
		return nil, &TransitionError{TaskID: task.ID, From: models.StateBlocked, To: resume, Reason: "resume state cannot be blocked"}
	}
	if resume == models.StateComplete {
		return nil, &TransitionError{TaskID: task.ID, From: models.StateBlocked, To: resume, Reason: "completion requires a gated transition"}
	}

	now := time.Now()
	task.Blockers = remaining
	task.State = resume
	task.UpdatedAt = now
	return &models.HistoryEntry{
		TaskID: task.ID,
		From:   models.StateBlocked,
		To:     resume,
		Actor:  actor,
		Note:   cleared,
		At:     now,
	}, nil
}

func (m *Machine) iterationLimit(task *models.Task) int {
	if task.MaxIterations > 0 {
		return task.MaxIterations
	}
	return m.maxIterations
}
