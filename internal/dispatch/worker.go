package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

// Result is what a worker hands back after working on a task.
type Result struct {
	// Artifact is a free-text pointer to whatever the worker produced.
	Artifact string
	// Blockers lists obstacles that prevented the work from finishing.
	// A non-empty list blocks the task instead of completing it.
	Blockers []string
	// Gates maps quality gate names to whether the worker satisfied them.
	Gates map[string]bool
}

// Worker executes a single task. Implementations receive a snapshot of
// the task and must not assume it reflects live tracker state.
type Worker interface {
	Execute(ctx context.Context, task *models.Task) (Result, error)
}

// SimWorker is a simulated worker for tracklet run and tests. On
// success it passes every required gate; with a non-zero FailRate it
// occasionally fails by reporting a blocker instead.
type SimWorker struct {
	// Delay is how long a simulated task takes.
	Delay time.Duration
	// FailRate is the probability in [0,1] that a task fails.
	FailRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimWorker creates a SimWorker with the given failure rate.
func NewSimWorker(failRate float64) *SimWorker {
	return &SimWorker{
		FailRate: failRate,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute simulates working on the task.
func (w *SimWorker) Execute(ctx context.Context, task *models.Task) (Result, error) {
	if w.Delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(w.Delay):
		}
	}

	if w.roll() {
		return Result{
			Blockers: []string{fmt.Sprintf("simulated failure executing %s", task.ID)},
		}, nil
	}

	gates := make(map[string]bool, len(task.RequiredGates))
	for _, gate := range task.RequiredGates {
		gates[gate] = true
	}

	return Result{
		Artifact: fmt.Sprintf("simulated %s deliverable for %s", task.Type, task.ID),
		Gates:    gates,
	}, nil
}

// roll returns true when this execution should fail. FailRate 0 and 1
// short-circuit so tests stay deterministic without a seeded source.
func (w *SimWorker) roll() bool {
	if w.FailRate <= 0 {
		return false
	}
	if w.FailRate >= 1 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return w.rng.Float64() < w.FailRate
}
