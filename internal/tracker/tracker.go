// Package tracker composes the task graph and the workflow state
// machine behind a single facade.
//
// The tracker is the one writer: it owns id assignment, serializes
// mutations behind a RWMutex so concurrent dispatch goroutines can
// report results safely, and appends a history entry for every applied
// transition. Everything it returns is deep-copied; callers never hold
// pointers into live graph nodes.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/pkg/models"
)

// Tracker owns a task graph, its workflow machine, and the transition
// history.
type Tracker struct {
	mu      sync.RWMutex
	graph   *graph.TaskGraph
	machine *machine.Machine
	history []models.HistoryEntry
	nextID  int

	table           machine.Table
	maxIterations   int
	requiredGates   []string
	satisfiedStates []models.State
	debugLog        func(format string, args ...any)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTable replaces the built-in workflow table.
func WithTable(table machine.Table) Option {
	return func(t *Tracker) { t.table = table }
}

// WithMaxIterations sets the default iteration limit for tasks that do
// not carry their own.
func WithMaxIterations(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxIterations = n
		}
	}
}

// WithRequiredGates sets the gates every task must satisfy to complete,
// unless the task declares its own set at submission.
func WithRequiredGates(gates []string) Option {
	return func(t *Tracker) { t.requiredGates = append([]string(nil), gates...) }
}

// WithSatisfiedStates overrides the dependency satisfaction policy.
func WithSatisfiedStates(states ...models.State) Option {
	return func(t *Tracker) { t.satisfiedStates = append([]models.State(nil), states...) }
}

// WithDebugLog routes internal debug lines to fn.
func WithDebugLog(fn func(format string, args ...any)) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.debugLog = fn
		}
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		nextID:        1,
		maxIterations: machine.DefaultMaxIterations,
		debugLog:      func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(t)
	}

	graphOpts := []graph.Option{graph.WithDebugLog(t.debugLog)}
	if len(t.satisfiedStates) > 0 {
		graphOpts = append(graphOpts, graph.WithSatisfiedStates(t.satisfiedStates...))
	}
	t.graph = graph.New(graphOpts...)
	t.machine = machine.New(t.table, t.maxIterations)
	return t
}

// Submit adds a task to the tracker and returns the stored copy.
//
// The draft's Dependencies plus any extra deps arguments become the
// dependency set. A draft without an id is assigned the next task_NNN
// id. Runtime fields are reset: tasks always enter the workflow as new,
// with no blockers and a zero iteration count. A nil RequiredGates takes
// the tracker-wide default; an explicit empty slice means no gates.
//
// Submission is atomic: duplicate ids, unknown dependencies, and cycles
// reject the task and leave the tracker unchanged.
func (t *Tracker) Submit(draft *models.Task, deps ...string) (*models.Task, error) {
	if draft == nil {
		return nil, fmt.Errorf("task required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	task := draft.Clone()
	task.Dependencies = append(task.Dependencies, deps...)
	task.State = models.StateNew
	task.Blockers = nil
	task.IterationCount = 0
	task.EscalationRequired = false
	if task.Type == "" {
		task.Type = models.TypeCoder
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if !task.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q", task.Priority)
	}
	if task.RequiredGates == nil && len(t.requiredGates) > 0 {
		task.RequiredGates = append([]string(nil), t.requiredGates...)
	}
	if task.MaxIterations <= 0 {
		task.MaxIterations = t.maxIterations
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	next := t.nextID
	if task.ID == "" {
		for {
			candidate := fmt.Sprintf("task_%03d", next)
			next++
			if _, taken := t.graph.Get(candidate); !taken {
				task.ID = candidate
				break
			}
		}
	}

	if err := t.graph.AddTask(task); err != nil {
		return nil, err
	}
	t.nextID = next
	t.debugLog("[tracker.Submit] %s (%s, %d deps)", task.ID, task.Type, len(task.Dependencies))
	return task.Clone(), nil
}

// AddDependency records that task taskID depends on task dependsOn.
func (t *Tracker) AddDependency(taskID, dependsOn string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.graph.AddDependency(taskID, dependsOn)
}

// Remove deletes a task. Removal is rejected with ErrTaskReferenced
// while any other task depends on it. History entries for the task are
// kept; the log is append-only.
func (t *Tracker) Remove(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.graph.Remove(taskID)
}

// Transition moves a task to the target state and records the move.
func (t *Tracker) Transition(taskID string, target models.State, actor, note string) (*models.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	entry, err := t.machine.Transition(task, target, actor, note)
	if err != nil {
		return nil, err
	}
	t.history = append(t.history, entry)
	t.debugLog("[tracker.Transition] %s: %s -> %s", taskID, entry.From, entry.To)
	return task.Clone(), nil
}

// AddBlocker records a blocker on a task. The first blocker moves the
// task to blocked and that move is recorded in history.
func (t *Tracker) AddBlocker(taskID, text, actor string) (*models.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	entry, err := t.machine.Block(task, text, actor)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		t.history = append(t.history, *entry)
		t.debugLog("[tracker.AddBlocker] %s blocked: %s", taskID, text)
	}
	return task.Clone(), nil
}

// ClearBlocker removes the blocker at index. Clearing the last blocker
// resumes the task into the given state and records the move.
func (t *Tracker) ClearBlocker(taskID string, index int, resume models.State, actor string) (*models.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	entry, err := t.machine.Unblock(task, index, resume, actor)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		t.history = append(t.history, *entry)
		t.debugLog("[tracker.ClearBlocker] %s resumed to %s", taskID, resume)
	}
	return task.Clone(), nil
}

// SetGate records a quality gate result on a task. Gates may be set in
// any state; only the transition to complete checks them. Required-gate
// membership is fixed at submission, so setting a gate outside the
// required set records it without affecting completion.
func (t *Tracker) SetGate(taskID, gate string, passed bool) (*models.Task, error) {
	if gate == "" {
		return nil, fmt.Errorf("gate name required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	if task.QualityGates == nil {
		task.QualityGates = make(map[string]bool)
	}
	task.QualityGates[gate] = passed
	task.UpdatedAt = time.Now()
	return task.Clone(), nil
}

// Status returns a deep copy of the task.
func (t *Tracker) Status(taskID string) (*models.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	return task.Clone(), nil
}

// History returns the recorded transitions for one task in order. The
// log survives task removal, so history of a removed task still reads.
func (t *Tracker) History(taskID string) []models.HistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entries []models.HistoryEntry
	for _, entry := range t.history {
		if entry.TaskID == taskID {
			entries = append(entries, entry)
		}
	}
	return entries
}

// AllHistory returns a copy of the full transition log in order.
func (t *Tracker) AllHistory() []models.HistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.HistoryEntry(nil), t.history...)
}

// Ready returns copies of the dispatchable tasks in insertion order.
func (t *Tracker) Ready() []*models.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cloneByID(t.graph.Ready())
}

// Groups returns the ready tasks keyed by parallel group label.
// Ungrouped ready tasks appear as singletons keyed by their own id.
func (t *Tracker) Groups() map[string][]*models.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	groups := make(map[string][]*models.Task)
	for label, ids := range t.graph.Groups() {
		groups[label] = t.cloneByID(ids)
	}
	return groups
}

// Plan returns the layered execution plan over all unfinished tasks.
func (t *Tracker) Plan() (*graph.ExecutionPlan, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.graph.Plan()
}

// Subgraph returns the task and its transitive dependents.
func (t *Tracker) Subgraph(rootID string) ([]*models.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.graph.Subgraph(rootID)
}

// Tasks returns copies of all tasks in insertion order.
func (t *Tracker) Tasks() []*models.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	live := t.graph.Tasks()
	tasks := make([]*models.Task, 0, len(live))
	for _, task := range live {
		tasks = append(tasks, task.Clone())
	}
	return tasks
}

// Dependents returns the ids of tasks that depend on the given task.
func (t *Tracker) Dependents(taskID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.graph.Dependents(taskID)
}

// Len returns the number of tasks.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.graph.Len()
}

// Allowed returns the states the task may move to next.
func (t *Tracker) Allowed(taskID string) ([]models.State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	return append([]models.State(nil), t.machine.Allowed(task)...), nil
}

// cloneByID assumes the lock is held.
func (t *Tracker) cloneByID(ids []string) []*models.Task {
	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		if task, ok := t.graph.Get(id); ok {
			tasks = append(tasks, task.Clone())
		}
	}
	return tasks
}
