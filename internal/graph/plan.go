package graph

import "fmt"

// Batch is one wave of an execution plan: a set of mutually independent
// task IDs that are safe to dispatch concurrently once all prior batches
// have completed.
type Batch struct {
	// IDs lists the batch members in insertion order.
	IDs []string `json:"ids"`
	// Groups maps parallel group label to the member IDs sharing that
	// label within this batch. Grouping is a hint for the executor, not
	// a partition: ungrouped members appear only in IDs.
	Groups map[string][]string `json:"groups,omitempty"`
}

// ExecutionPlan is an ordered sequence of batches covering every task
// that has not reached terminal success, each exactly once.
type ExecutionPlan struct {
	Batches []Batch `json:"batches"`
}

// TaskCount returns the total number of tasks across all batches.
func (p *ExecutionPlan) TaskCount() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.IDs)
	}
	return n
}

// BatchFor returns the index of the batch containing the given task id,
// or -1 if the id is not in the plan.
func (p *ExecutionPlan) BatchFor(taskID string) int {
	for i, b := range p.Batches {
		for _, id := range b.IDs {
			if id == taskID {
				return i
			}
		}
	}
	return -1
}

// Plan builds a layered execution plan with Kahn's algorithm. Completed
// tasks are excluded and their edges count as satisfied; batch k holds
// every remaining task whose in-plan dependencies all lie in batches
// 0..k-1. Blocked tasks keep their topological position; whether a batch
// member is actually dispatchable at run time is the executor's check
// against Ready.
func (g *TaskGraph) Plan() (*ExecutionPlan, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Pending set: everything not yet at terminal success.
	pending := make(map[string]bool, len(g.nodes))
	var pendingOrder []string
	for _, id := range g.order {
		if g.nodes[id].State.Terminal() {
			continue
		}
		pending[id] = true
		pendingOrder = append(pendingOrder, id)
	}

	// In-degree over edges between pending tasks, plus the reverse
	// adjacency needed to decrement dependents as batches are emitted.
	indeg := make(map[string]int, len(pendingOrder))
	dependents := make(map[string][]string, len(pendingOrder))
	for _, id := range pendingOrder {
		for _, depID := range g.nodes[id].Dependencies {
			if !pending[depID] {
				continue
			}
			indeg[id]++
			dependents[depID] = append(dependents[depID], id)
		}
	}

	plan := &ExecutionPlan{}
	remaining := len(pendingOrder)
	scheduled := make(map[string]bool, remaining)

	for remaining > 0 {
		batch := Batch{}
		for _, id := range pendingOrder {
			if scheduled[id] || indeg[id] != 0 {
				continue
			}
			batch.IDs = append(batch.IDs, id)
			if label := g.nodes[id].ParallelGroup; label != "" {
				if batch.Groups == nil {
					batch.Groups = make(map[string][]string)
				}
				batch.Groups[label] = append(batch.Groups[label], id)
			}
		}

		// No progress with tasks left means a cycle slipped past the
		// add-time checks.
		if len(batch.IDs) == 0 {
			return nil, fmt.Errorf("execution plan stalled with %d tasks unscheduled: %w", remaining, ErrCycleDetected)
		}

		for _, id := range batch.IDs {
			scheduled[id] = true
			remaining--
			for _, depID := range dependents[id] {
				indeg[depID]--
			}
		}
		plan.Batches = append(plan.Batches, batch)
	}

	g.debugLog("[graph.Plan] %d batches over %d tasks", len(plan.Batches), plan.TaskCount())
	return plan, nil
}
