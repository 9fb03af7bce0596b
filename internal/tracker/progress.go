package tracker

import (
	"fmt"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/pkg/models"
)

// progressWeights maps each state to a base completion percentage.
// Blocked scores the same as implementing: the work stands where it
// stood when the blocker landed.
var progressWeights = map[models.State]int{
	models.StateNew:           0,
	models.StateAnalyzing:     10,
	models.StatePlanning:      20,
	models.StateDebugging:     40,
	models.StateImplementing:  50,
	models.StateBlocked:       50,
	models.StateReviewing:     70,
	models.StateIteration:     75,
	models.StateSecurityAudit: 85,
	models.StateTesting:       85,
	models.StateDocumenting:   90,
	models.StateDevops:        90,
	models.StateComplete:      100,
}

// ProgressFor estimates how far along a task is, as a percentage.
//
// The base comes from the state weight table. Tasks past the starting
// line earn a bonus of up to 10 points for passed required gates. The
// result never exceeds 100.
func ProgressFor(task *models.Task) int {
	base := progressWeights[task.State]
	if base == 0 {
		return 0
	}
	if len(task.RequiredGates) > 0 {
		passed := 0
		for _, gate := range task.RequiredGates {
			if task.QualityGates[gate] {
				passed++
			}
		}
		base += 10 * passed / len(task.RequiredGates)
	}
	if base > 100 {
		base = 100
	}
	return base
}

// Progress reports the completion percentage for one task.
func (t *Tracker) Progress(taskID string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.graph.Get(taskID)
	if !ok {
		return 0, fmt.Errorf("task %s: %w", taskID, graph.ErrNoSuchTask)
	}
	return ProgressFor(task), nil
}
