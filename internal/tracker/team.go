package tracker

import "github.com/hfleming/tracklet/pkg/models"

// TeamStatus is a read-only projection of the task set, computed on
// demand from the graph rather than kept as counters, so it can never
// drift from the tasks themselves.
type TeamStatus struct {
	Total          int                     `json:"total"`
	ByState        map[models.State]int    `json:"by_state"`
	ByType         map[models.TaskType]int `json:"by_type"`
	CompletionRate float64                 `json:"completion_rate"`
	ReadyCount     int                     `json:"ready_count"`
	Blocked        []string                `json:"blocked,omitempty"`
	Escalations    []string                `json:"escalations,omitempty"`
}

// Team reports counts by state and type, the completion rate, the size
// of the ready set, and the ids currently blocked or flagged for
// escalation, in insertion order.
func (t *Tracker) Team() TeamStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := TeamStatus{
		ByState: make(map[models.State]int),
		ByType:  make(map[models.TaskType]int),
	}
	complete := 0
	for _, task := range t.graph.Tasks() {
		status.Total++
		status.ByState[task.State]++
		status.ByType[task.Type]++
		if task.State == models.StateComplete {
			complete++
		}
		if task.State == models.StateBlocked {
			status.Blocked = append(status.Blocked, task.ID)
		}
		if task.EscalationRequired {
			status.Escalations = append(status.Escalations, task.ID)
		}
	}
	total := status.Total
	if total == 0 {
		total = 1
	}
	status.CompletionRate = float64(complete) / float64(total)
	status.ReadyCount = len(t.graph.Ready())
	return status
}
