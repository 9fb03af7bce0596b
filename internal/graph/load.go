package graph

import (
	"fmt"

	"github.com/hfleming/tracklet/pkg/models"
)

// Load replaces the graph contents with the given tasks, preserving
// their order as the insertion order. Tasks are cloned on the way in.
//
// The whole set is validated before anything is installed: duplicate
// ids, dependency references outside the set, and cycles all fail the
// load and leave the graph unchanged. Unlike AddTask, Load keeps task
// state as given, so restored complete or blocked tasks stay that way.
func (g *TaskGraph) Load(tasks []*models.Task) error {
	nodes := make(map[string]*models.Task, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if task == nil || task.ID == "" {
			return fmt.Errorf("task id required")
		}
		if _, exists := nodes[task.ID]; exists {
			return fmt.Errorf("task %s: %w", task.ID, ErrDuplicateID)
		}
		nodes[task.ID] = task.Clone()
		order = append(order, task.ID)
	}
	for _, id := range order {
		for _, depID := range nodes[id].Dependencies {
			if depID == id {
				return fmt.Errorf("task %s depends on itself: %w", id, ErrCycleDetected)
			}
			if _, ok := nodes[depID]; !ok {
				return fmt.Errorf("task %s depends on unknown task %s: %w", id, depID, ErrUnknownDependency)
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	prevNodes, prevOrder := g.nodes, g.order
	g.nodes, g.order = nodes, order
	if g.hasCycleLocked() {
		g.nodes, g.order = prevNodes, prevOrder
		return fmt.Errorf("task set contains a cycle: %w", ErrCycleDetected)
	}
	g.debugLog("[graph.Load] loaded %d tasks", len(order))
	return nil
}
