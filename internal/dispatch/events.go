// Package dispatch executes ready tasks against workers.
package dispatch

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

// EventType represents the type of dispatch event.
type EventType string

const (
	// EventTaskQueued indicates a task is ready and queued for execution.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a worker has picked up a task.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task reached the complete state.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskBlocked indicates a task was blocked during execution.
	EventTaskBlocked EventType = "task_blocked"
	// EventTaskFailed indicates a task failed or stalled before completing.
	EventTaskFailed EventType = "task_failed"
	// EventTransitionRejected indicates the state machine refused a
	// transition attempted by the runner, usually because another actor
	// moved the task first.
	EventTransitionRejected EventType = "transition_rejected"
	// EventTaskEscalation indicates a task exceeded its rework limit.
	EventTaskEscalation EventType = "task_escalation"
	// EventRunDone indicates the entire run is finished.
	EventRunDone EventType = "run_done"
)

// Event represents a single occurrence during a run. Events are
// consumed by the CLI and the board to display progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// TaskTitle is the title of the related task, if applicable.
	TaskTitle string
	// State is the task state after the event, if applicable.
	State models.State
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emitter handles event emission for the runner.
// It provides a simple, thread-safe way to emit events to subscribers.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEmitter creates a new Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *Emitter) Emit(event Event) {
	// Try immediate send first
	select {
	case e.events <- event:
		return
	default:
		// Channel full, try with timeout
	}

	// Try with 100ms timeout to give the receiver a chance to drain
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		// Timeout expired, drop the event
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[dispatch] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
// This is used by subscribers (e.g., the board) to receive updates.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel.
// This should be called when the run is finished.
func (e *Emitter) Close() {
	close(e.events)
}
