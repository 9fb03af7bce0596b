// Package dispatch executes ready tasks against workers and applies
// their results through the tracker. The runner drives waves of ready
// tasks concurrently; workers stay external collaborators behind the
// Worker interface and never touch tracker internals.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

// DefaultWorkers bounds wave concurrency when no option is given.
const DefaultWorkers = 4

// ErrRunAborted is returned when an escalation decision aborts the run.
var ErrRunAborted = errors.New("run aborted")

// RunSummary reports what a run accomplished.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Waves         int           `json:"waves"`
	Attempted     int           `json:"attempted"`
	Completed     int           `json:"completed"`
	Blocked       int           `json:"blocked"`
	Failed        int           `json:"failed"`
	Duration      time.Duration `json:"duration"`
	DroppedEvents uint64        `json:"dropped_events,omitempty"`
}

// Runner executes ready tasks in dependency order. Each wave dispatches
// every ready task to the worker with bounded concurrency, applies the
// results, and repeats until no new work unlocks.
type Runner struct {
	tracker    *tracker.Tracker
	worker     Worker
	emitter    *Emitter
	escalation *EscalationHandler
	store      *RunStore
	signals    *Signals
	logger     *DebugLogger
	workers    int
	stepDelay  time.Duration
	actor      string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds how many tasks execute concurrently per wave.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithStepDelay inserts a pause between chain transitions, making runs
// watchable on the board.
func WithStepDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.stepDelay = d
	}
}

// WithEmitter publishes run events through the given emitter.
func WithEmitter(e *Emitter) RunnerOption {
	return func(r *Runner) {
		r.emitter = e
	}
}

// WithEscalationHandler routes escalated tasks to the given handler for
// a decision. Without a handler escalated tasks are blocked.
func WithEscalationHandler(h *EscalationHandler) RunnerOption {
	return func(r *Runner) {
		r.escalation = h
	}
}

// WithRunStore records run sessions in the given store.
func WithRunStore(s *RunStore) RunnerOption {
	return func(r *Runner) {
		r.store = s
	}
}

// WithSignals makes the runner honor stop/pause signal files between waves.
func WithSignals(s *Signals) RunnerOption {
	return func(r *Runner) {
		r.signals = s
	}
}

// WithRunLogger directs debug logging to the given logger.
func WithRunLogger(l *DebugLogger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithActor sets the actor name recorded on history entries.
func WithActor(name string) RunnerOption {
	return func(r *Runner) {
		if name != "" {
			r.actor = name
		}
	}
}

// NewRunner creates a Runner for the given tracker and worker.
func NewRunner(tr *tracker.Tracker, w Worker, opts ...RunnerOption) *Runner {
	r := &Runner{
		tracker: tr,
		worker:  w,
		workers: DefaultWorkers,
		actor:   "runner",
		logger:  NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events exposes the runner's event stream, nil when no emitter is set.
func (r *Runner) Events() <-chan Event {
	if r.emitter == nil {
		return nil
	}
	return r.emitter.Events()
}

// Run executes waves of ready tasks until no new work unlocks, a stop
// signal arrives, the context is cancelled, or an escalation decision
// aborts. A failed task never aborts its wave; it just stays blocked or
// stalled while its siblings continue.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{RunID: uuid.New().String()}
	r.logger.Log("[runner] run %s starting with %d workers", summary.RunID, r.workers)

	var sess *RunSession
	if r.store != nil {
		created, err := r.store.CreateSession(summary.RunID, r.workers, r.tracker.Len())
		if err != nil {
			r.logger.Log("[runner] run session not recorded: %v", err)
		} else {
			sess = created
		}
	}

	attempted := make(map[string]bool)
	status := "done"
	var runErr error

loop:
	for {
		if err := ctx.Err(); err != nil {
			status, runErr = "cancelled", err
			break
		}
		if r.signals != nil {
			if r.signals.ShouldStop() {
				r.logger.Log("[runner] stop signal received")
				status = "stopped"
				break
			}
			for r.signals.ShouldPause() {
				if r.signals.ShouldStop() {
					status = "stopped"
					break loop
				}
				select {
				case <-ctx.Done():
					status, runErr = "cancelled", ctx.Err()
					break loop
				case <-time.After(200 * time.Millisecond):
				}
			}
		}

		var wave []*models.Task
		for _, task := range r.tracker.Ready() {
			if !attempted[task.ID] {
				wave = append(wave, task)
			}
		}
		if len(wave) == 0 {
			break
		}

		summary.Waves++
		r.logger.Log("[runner] wave %d: %d ready tasks", summary.Waves, len(wave))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.workers)
		for _, task := range wave {
			attempted[task.ID] = true
			summary.Attempted++
			r.emit(Event{Type: EventTaskQueued, TaskID: task.ID, TaskTitle: task.Title, State: task.State, Timestamp: time.Now()})

			t := task
			g.Go(func() error {
				return r.runTask(gctx, t.ID)
			})
		}
		if err := g.Wait(); err != nil {
			if errors.Is(err, ErrRunAborted) {
				status, runErr = "aborted", err
			} else {
				status, runErr = "cancelled", err
			}
			break
		}

		r.tally(summary, attempted)
		r.updateSession(sess, summary, "running")
	}

	r.tally(summary, attempted)
	summary.Duration = time.Since(start)
	if r.emitter != nil {
		summary.DroppedEvents = r.emitter.DroppedCount()
	}
	r.updateSession(sess, summary, status)

	r.emit(Event{
		Type:      EventRunDone,
		Message:   fmt.Sprintf("%d completed, %d blocked, %d failed in %d waves", summary.Completed, summary.Blocked, summary.Failed, summary.Waves),
		Timestamp: time.Now(),
	})
	r.logger.Log("[runner] run %s %s: %d completed, %d blocked, %d failed in %d waves",
		summary.RunID, status, summary.Completed, summary.Blocked, summary.Failed, summary.Waves)

	return summary, runErr
}

// runTask executes a single task: worker first, then the workflow chain.
// Always returns nil for per-task failures so the wave keeps going; the
// only non-nil return is ErrRunAborted from an escalation decision.
func (r *Runner) runTask(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return nil
	}

	task, err := r.tracker.Status(id)
	if err != nil {
		return nil
	}

	r.emit(Event{Type: EventTaskStarted, TaskID: id, TaskTitle: task.Title, State: task.State, Timestamp: time.Now()})
	r.logger.Log("[runner] task %s started (%s)", id, task.Type)

	result, err := r.worker.Execute(ctx, task)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		r.tracker.AddBlocker(id, fmt.Sprintf("worker failed: %v", err), r.actor)
		r.emit(Event{Type: EventTaskFailed, TaskID: id, TaskTitle: task.Title, Error: err, Timestamp: time.Now()})
		r.logger.Log("[runner] task %s worker error: %v", id, err)
		return nil
	}

	for gate, passed := range result.Gates {
		if _, err := r.tracker.SetGate(id, gate, passed); err != nil {
			r.logger.Log("[runner] task %s: set gate %s: %v", id, gate, err)
		}
	}

	if len(result.Blockers) > 0 {
		for _, text := range result.Blockers {
			if _, err := r.tracker.AddBlocker(id, text, r.actor); err != nil {
				r.logger.Log("[runner] task %s: add blocker: %v", id, err)
			}
		}
		r.emit(Event{
			Type:      EventTaskBlocked,
			TaskID:    id,
			TaskTitle: task.Title,
			State:     models.StateBlocked,
			Message:   strings.Join(result.Blockers, "; "),
			Timestamp: time.Now(),
		})
		r.logger.Log("[runner] task %s blocked: %s", id, strings.Join(result.Blockers, "; "))
		return nil
	}

	if result.Artifact != "" {
		r.logger.Log("[runner] task %s artifact: %s", id, result.Artifact)
	}

	return r.advance(ctx, task)
}

// advance walks a task along its workflow chain until it completes,
// stalls, or loses a race against a concurrent actor. A transition the
// machine rejects is recorded as an event, never forced.
func (r *Runner) advance(ctx context.Context, task *models.Task) error {
	id := task.ID

walk:
	for {
		if !r.pace(ctx) {
			return nil
		}

		allowed, err := r.tracker.Allowed(id)
		if err != nil || len(allowed) == 0 {
			break
		}
		next := nextState(allowed)
		if next == "" {
			break
		}

		if _, err := r.tracker.Transition(id, next, r.actor, ""); err != nil {
			switch {
			case errors.Is(err, machine.ErrGateNotSatisfied):
				stop, aerr := r.rework(ctx, id)
				if aerr != nil {
					return aerr
				}
				if stop {
					break walk
				}
			case errors.Is(err, machine.ErrInvalidTransition):
				r.emit(Event{Type: EventTransitionRejected, TaskID: id, TaskTitle: task.Title, Message: err.Error(), Timestamp: time.Now()})
				r.logger.Log("[runner] task %s transition rejected: %v", id, err)
				break walk
			default:
				r.logger.Log("[runner] task %s transition failed: %v", id, err)
				break walk
			}
		}
	}

	final, err := r.tracker.Status(id)
	if err != nil {
		return nil
	}
	switch final.State {
	case models.StateComplete:
		r.emit(Event{Type: EventTaskCompleted, TaskID: id, TaskTitle: final.Title, State: final.State, Timestamp: time.Now()})
		r.logger.Log("[runner] task %s completed", id)
	case models.StateBlocked:
		r.emit(Event{
			Type:      EventTaskBlocked,
			TaskID:    id,
			TaskTitle: final.Title,
			State:     final.State,
			Message:   strings.Join(final.Blockers, "; "),
			Timestamp: time.Now(),
		})
	default:
		r.emit(Event{
			Type:      EventTaskFailed,
			TaskID:    id,
			TaskTitle: final.Title,
			State:     final.State,
			Message:   fmt.Sprintf("stalled in %s before completion", final.State),
			Timestamp: time.Now(),
		})
		r.logger.Log("[runner] task %s stalled in %s", id, final.State)
	}
	return nil
}

// rework routes a task whose gates failed back through the iteration
// state. Returns stop=true when the task should not keep advancing and
// ErrRunAborted when an escalation decision ends the whole run.
func (r *Runner) rework(ctx context.Context, id string) (bool, error) {
	allowed, err := r.tracker.Allowed(id)
	if err != nil || !containsState(allowed, models.StateIteration) {
		return true, nil
	}

	task, err := r.tracker.Transition(id, models.StateIteration, r.actor, "unmet quality gates")
	if err != nil {
		return true, nil
	}
	if !task.EscalationRequired {
		return false, nil
	}

	reason := fmt.Sprintf("escalation required after %d rework rounds", task.IterationCount)
	r.emit(Event{Type: EventTaskEscalation, TaskID: id, TaskTitle: task.Title, State: task.State, Message: reason, Timestamp: time.Now()})
	r.logger.Log("[runner] task %s: %s", id, reason)

	if r.escalation == nil {
		r.tracker.AddBlocker(id, reason, r.actor)
		return true, nil
	}

	resp, err := r.escalation.Request(ctx, &EscalationRequest{Task: task, Rounds: task.IterationCount, Reason: reason})
	if err != nil {
		return true, nil
	}
	switch resp.Action {
	case EscalationProceed:
		return false, nil
	case EscalationAbort:
		return true, fmt.Errorf("task %s: %w", id, ErrRunAborted)
	default:
		text := reason
		if resp.Message != "" {
			text = resp.Message
		}
		r.tracker.AddBlocker(id, text, r.actor)
		return true, nil
	}
}

// pace sleeps for the configured step delay. Returns false when the
// context ended instead.
func (r *Runner) pace(ctx context.Context) bool {
	if r.stepDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.stepDelay):
		return true
	}
}

// tally recounts run outcomes from the final states of attempted tasks.
func (r *Runner) tally(summary *RunSummary, attempted map[string]bool) {
	summary.Completed, summary.Blocked, summary.Failed = 0, 0, 0
	for id := range attempted {
		task, err := r.tracker.Status(id)
		if err != nil {
			continue
		}
		switch task.State {
		case models.StateComplete:
			summary.Completed++
		case models.StateBlocked:
			summary.Blocked++
		default:
			summary.Failed++
		}
	}
}

func (r *Runner) updateSession(sess *RunSession, summary *RunSummary, status string) {
	if sess == nil || r.store == nil {
		return
	}
	sess.Status = status
	sess.Completed = summary.Completed
	sess.Blocked = summary.Blocked
	sess.Failed = summary.Failed
	if err := r.store.UpdateSession(sess); err != nil {
		r.logger.Log("[runner] run session update failed: %v", err)
	}
}

func (r *Runner) emit(event Event) {
	if r.emitter != nil {
		r.emitter.Emit(event)
	}
}

// nextState picks the next chain step: complete when reachable,
// otherwise the first state that is not a rework loop.
func nextState(allowed []models.State) models.State {
	for _, s := range allowed {
		if s == models.StateComplete {
			return s
		}
	}
	for _, s := range allowed {
		if s != models.StateIteration {
			return s
		}
	}
	return ""
}

func containsState(states []models.State, want models.State) bool {
	for _, s := range states {
		if s == want {
			return true
		}
	}
	return false
}
