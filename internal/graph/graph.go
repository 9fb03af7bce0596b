// Package graph provides the dependency graph for task scheduling.
package graph

import (
	"fmt"
	"sync"

	"github.com/hfleming/tracklet/pkg/models"
)

// TaskGraph represents a directed acyclic graph of task dependencies.
// Tasks are nodes; a task's Dependencies field holds its outgoing
// "blocked by" edges. Iteration order is insertion order throughout so
// that scheduling views are deterministic for a fixed graph state.
type TaskGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// order records task IDs in insertion order.
	order []string
	// satisfied holds the states that count as a satisfied dependency.
	satisfied map[models.State]bool
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// Option configures a TaskGraph.
type Option func(*TaskGraph)

// WithSatisfiedStates overrides the states in which a dependency counts
// as satisfied. The default is terminal success only.
func WithSatisfiedStates(states ...models.State) Option {
	return func(g *TaskGraph) {
		g.satisfied = make(map[models.State]bool, len(states))
		for _, s := range states {
			g.satisfied[s] = true
		}
	}
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(g *TaskGraph) {
		if fn != nil {
			g.debugLog = fn
		}
	}
}

// New creates a new empty task graph.
func New(opts ...Option) *TaskGraph {
	g := &TaskGraph{
		nodes:     make(map[string]*models.Task),
		satisfied: map[models.State]bool{models.StateComplete: true},
		debugLog:  func(format string, args ...interface{}) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddTask inserts a task into the graph. The task's Dependencies must all
// reference tasks already present. The call is atomic: on any error the
// graph is unchanged.
func (g *TaskGraph) AddTask(task *models.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task id required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[task.ID]; exists {
		return fmt.Errorf("task %s: %w", task.ID, ErrDuplicateID)
	}

	// Validate the whole dependency set before touching graph state.
	seen := make(map[string]bool, len(task.Dependencies))
	deps := task.Dependencies[:0:0]
	for _, depID := range task.Dependencies {
		if depID == task.ID {
			return fmt.Errorf("task %s depends on itself: %w", task.ID, ErrCycleDetected)
		}
		if _, exists := g.nodes[depID]; !exists {
			return fmt.Errorf("task %s depends on unknown task %s: %w", task.ID, depID, ErrUnknownDependency)
		}
		if seen[depID] {
			continue
		}
		seen[depID] = true
		deps = append(deps, depID)
	}
	task.Dependencies = deps

	g.nodes[task.ID] = task
	g.order = append(g.order, task.ID)
	g.debugLog("[graph.AddTask] added %s (deps=%v, group=%q)", task.ID, task.Dependencies, task.ParallelGroup)
	return nil
}

// AddDependency adds an edge from taskID to dependsOn after the fact.
// Adding an edge that already exists is a no-op. The call is atomic: on
// any error, including a would-be cycle, the graph is unchanged.
func (g *TaskGraph) AddDependency(taskID, dependsOn string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNoSuchTask)
	}
	if _, ok := g.nodes[dependsOn]; !ok {
		return fmt.Errorf("task %s depends on unknown task %s: %w", taskID, dependsOn, ErrUnknownDependency)
	}
	if taskID == dependsOn {
		return fmt.Errorf("task %s depends on itself: %w", taskID, ErrCycleDetected)
	}
	for _, depID := range task.Dependencies {
		if depID == dependsOn {
			return nil
		}
	}

	// The edge taskID -> dependsOn closes a cycle exactly when taskID is
	// already reachable from dependsOn.
	if g.reachableLocked(dependsOn, taskID) {
		return fmt.Errorf("dependency %s -> %s: %w", taskID, dependsOn, ErrCycleDetected)
	}

	task.Dependencies = append(task.Dependencies, dependsOn)
	g.debugLog("[graph.AddDependency] %s now depends on %s", taskID, dependsOn)
	return nil
}

// reachableLocked reports whether target is reachable from start by
// following dependency edges. Assumes the lock is held.
func (g *TaskGraph) reachableLocked(start, target string) bool {
	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == target {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		task, ok := g.nodes[id]
		if !ok {
			return false
		}
		for _, depID := range task.Dependencies {
			if visit(depID) {
				return true
			}
		}
		return false
	}
	return visit(start)
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges. Add-time
// validation keeps this unreachable in practice.
func (g *TaskGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked is the internal implementation that assumes the lock is held.
func (g *TaskGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.nodes[id].Dependencies {
			switch colors[depID] {
			case 1:
				// Back edge: cycle.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Ready returns task IDs, in insertion order, that are ready to dispatch:
// state new, no blockers, and every dependency satisfied under the
// configured policy. Any other state marks the task in flight and keeps
// it out of the ready set, preventing double scheduling.
func (g *TaskGraph) Ready() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		task := g.nodes[id]
		if task.State != models.StateNew {
			continue
		}
		if task.Blocked() {
			continue
		}
		if g.depsSatisfiedLocked(task) {
			ready = append(ready, id)
		}
	}
	return ready
}

// depsSatisfiedLocked reports whether every dependency of the task is in
// a satisfied state. Assumes the lock is held.
func (g *TaskGraph) depsSatisfiedLocked(task *models.Task) bool {
	for _, depID := range task.Dependencies {
		dep, ok := g.nodes[depID]
		if !ok || !g.satisfied[dep.State] {
			return false
		}
	}
	return true
}

// Groups returns ready tasks keyed by parallel group label. Ready tasks
// without a group appear as singletons keyed by their own id.
func (g *TaskGraph) Groups() map[string][]string {
	ready := g.Ready()

	g.mu.RLock()
	defer g.mu.RUnlock()

	groups := make(map[string][]string)
	for _, id := range ready {
		label := g.nodes[id].ParallelGroup
		if label == "" {
			label = id
		}
		groups[label] = append(groups[label], id)
	}
	return groups
}

// Subgraph returns the task and all of its transitive dependents in
// breadth-first, insertion-stable order. Tasks are cloned so graph
// internals never escape.
func (g *TaskGraph) Subgraph(rootID string) ([]*models.Task, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	root, ok := g.nodes[rootID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", rootID, ErrNoSuchTask)
	}

	visited := map[string]bool{rootID: true}
	result := []*models.Task{root.Clone()}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var next []string
		for _, id := range g.order {
			task := g.nodes[id]
			if visited[id] {
				continue
			}
			for _, depID := range task.Dependencies {
				if containsID(frontier, depID) {
					visited[id] = true
					result = append(result, task.Clone())
					next = append(next, id)
					break
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// Remove deletes a task from the graph. Removal is rejected while any
// other task lists the target as a dependency.
func (g *TaskGraph) Remove(taskID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[taskID]; !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNoSuchTask)
	}
	if deps := g.dependentsLocked(taskID); len(deps) > 0 {
		return fmt.Errorf("task %s has dependents %v: %w", taskID, deps, ErrTaskReferenced)
	}

	delete(g.nodes, taskID)
	for i, id := range g.order {
		if id == taskID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.debugLog("[graph.Remove] removed %s", taskID)
	return nil
}

// Get returns the task for a given ID, or false if not found. The pointer
// is the live graph node; callers outside this module receive clones via
// the tracker facade.
func (g *TaskGraph) Get(taskID string) (*models.Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	task, ok := g.nodes[taskID]
	return task, ok
}

// Tasks returns all tasks in insertion order.
func (g *TaskGraph) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.nodes[id])
	}
	return tasks
}

// Len returns the number of tasks in the graph.
func (g *TaskGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns a copy of the IDs the given task depends on.
func (g *TaskGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	task, ok := g.nodes[taskID]
	if !ok {
		return nil
	}
	return append([]string(nil), task.Dependencies...)
}

// Dependents returns the IDs of tasks that depend on the given task,
// in insertion order.
func (g *TaskGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(taskID)
}

// dependentsLocked assumes the lock is held.
func (g *TaskGraph) dependentsLocked(taskID string) []string {
	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.nodes[id].Dependencies {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
