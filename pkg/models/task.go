package models

import "time"

// State represents the current node of a task in the workflow state machine.
type State string

const (
	// StateNew indicates the task has been created but not picked up.
	StateNew State = "new"
	// StateAnalyzing indicates requirements analysis is in progress.
	StateAnalyzing State = "analyzing"
	// StatePlanning indicates design/planning work is in progress.
	StatePlanning State = "planning"
	// StateImplementing indicates the task is being built.
	StateImplementing State = "implementing"
	// StateDebugging indicates root-cause investigation is in progress.
	StateDebugging State = "debugging"
	// StateReviewing indicates the work is under review.
	StateReviewing State = "reviewing"
	// StateTesting indicates the work is being tested.
	StateTesting State = "testing"
	// StateDocumenting indicates documentation work is in progress.
	StateDocumenting State = "documenting"
	// StateDevops indicates deployment/infrastructure work is in progress.
	StateDevops State = "devops"
	// StateSecurityAudit indicates a security review is in progress.
	StateSecurityAudit State = "security_audit"
	// StateIteration indicates the task was sent back for rework.
	StateIteration State = "iteration"
	// StateBlocked indicates the task cannot proceed until blockers clear.
	StateBlocked State = "blocked"
	// StateComplete indicates the task finished successfully.
	StateComplete State = "complete"
)

// AllStates lists every declared state in display order.
var AllStates = []State{
	StateNew,
	StateAnalyzing,
	StatePlanning,
	StateImplementing,
	StateDebugging,
	StateReviewing,
	StateTesting,
	StateDocumenting,
	StateDevops,
	StateSecurityAudit,
	StateIteration,
	StateBlocked,
	StateComplete,
}

// Valid returns true if the state is a known value.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal returns true if the state is a terminal success state.
// There is no terminal failure state; unrecoverable failure is a
// persistent blocked state with an explanatory blocker.
func (s State) Terminal() bool {
	return s == StateComplete
}

// TaskType tags a task with the worker role expected to handle it.
// The set is open: unknown types fall back to the default workflow chain.
type TaskType string

const (
	TypeArchitect TaskType = "architect"
	TypeCoder     TaskType = "coder"
	TypeReviewer  TaskType = "reviewer"
	TypeQA        TaskType = "qa"
	TypeDebug     TaskType = "debug"
	TypeDocs      TaskType = "docs"
	TypeDevops    TaskType = "devops"
	TypeSecurity  TaskType = "security"
)

// KnownTypes lists the worker roles that ship with a workflow chain.
var KnownTypes = []TaskType{
	TypeArchitect,
	TypeCoder,
	TypeReviewer,
	TypeQA,
	TypeDebug,
	TypeDocs,
	TypeDevops,
	TypeSecurity,
}

// Priority indicates task urgency. It is a tie-break hint for dispatch
// ordering, never required for correctness.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight returns a numeric rank for ordering, higher is more urgent.
func (p Priority) Weight() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Task represents a unit of work tracked by the dependency graph.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ParentID is the ID of the parent task, if any.
	ParentID string `json:"parent_id,omitempty"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Type is the worker role expected to handle this task.
	Type TaskType `json:"type"`
	// Priority is the urgency hint for dispatch ordering.
	Priority Priority `json:"priority"`
	// State is the current workflow state of the task.
	State State `json:"state"`
	// Dependencies lists task IDs that must succeed before this task is ready.
	Dependencies []string `json:"dependencies,omitempty"`
	// ParallelGroup labels tasks intended to be dispatched together.
	ParallelGroup string `json:"parallel_group,omitempty"`
	// Blockers lists free-text obstacles. Non-empty forces the blocked state.
	Blockers []string `json:"blockers,omitempty"`
	// QualityGates maps gate name to whether it currently holds.
	QualityGates map[string]bool `json:"quality_gates,omitempty"`
	// RequiredGates lists the gates that must all hold before completion.
	RequiredGates []string `json:"required_gates,omitempty"`
	// IterationCount is how many times the task entered rework. Never decreases.
	IterationCount int `json:"iteration_count"`
	// MaxIterations is the rework limit before escalation is flagged.
	MaxIterations int `json:"max_iterations"`
	// EscalationRequired latches true once IterationCount exceeds MaxIterations.
	EscalationRequired bool `json:"escalation_required"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the task. Callers receive clones so that
// internal graph state never leaks through shared slices or maps.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Dependencies != nil {
		c.Dependencies = append([]string(nil), t.Dependencies...)
	}
	if t.Blockers != nil {
		c.Blockers = append([]string(nil), t.Blockers...)
	}
	if t.RequiredGates != nil {
		c.RequiredGates = append([]string(nil), t.RequiredGates...)
	}
	if t.QualityGates != nil {
		c.QualityGates = make(map[string]bool, len(t.QualityGates))
		for k, v := range t.QualityGates {
			c.QualityGates[k] = v
		}
	}
	return &c
}

// UnmetGates returns the required gates that do not currently hold,
// in declared order.
func (t *Task) UnmetGates() []string {
	var unmet []string
	for _, gate := range t.RequiredGates {
		if !t.QualityGates[gate] {
			unmet = append(unmet, gate)
		}
	}
	return unmet
}

// Blocked returns true if the task has at least one blocker.
func (t *Task) Blocked() bool {
	return len(t.Blockers) > 0
}
