// Package planfile loads batches of tasks from YAML plan files.
//
// A plan file declares tasks with their dependencies in one document.
// The whole file is validated before anything is submitted, so a plan
// either lands completely or not at all.
package planfile

import (
	"fmt"
	"os"

	"github.com/gammazero/toposort"
	"gopkg.in/yaml.v3"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/pkg/models"
)

// TaskSpec is a single task entry in a plan file.
//
// The id is optional: tasks without one are assigned an id on
// submission, but only tasks with explicit ids can be named by deps
// entries elsewhere in the file. Deps may also name tasks that already
// exist in the tracker.
type TaskSpec struct {
	ID            string   `yaml:"id"`
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	Type          string   `yaml:"type"`
	Priority      string   `yaml:"priority"`
	Deps          []string `yaml:"deps"`
	Group         string   `yaml:"group"`
	Gates         []string `yaml:"gates"`
	MaxIterations int      `yaml:"max_iterations"`
}

// Plan is a parsed plan file.
type Plan struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	plan, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

// Parse builds a plan from YAML data and validates it standalone.
//
// Standalone validation covers everything checkable without a tracker:
// required titles, known types and priorities, duplicate ids, and
// dependency cycles between tasks in the file. Deps that name no task
// in the file are left for Apply, which resolves them against the
// tracker.
func Parse(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(plan.Tasks) == 0 {
		return nil, fmt.Errorf("plan declares no tasks")
	}
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Apply validates the plan against the tracker and submits every task.
//
// Submission is all or nothing: ids already taken, deps that resolve
// neither in the file nor in the tracker, and cycles reject the whole
// plan with nothing submitted. Tasks are submitted and returned in
// dependency order.
func (p *Plan) Apply(tr *tracker.Tracker) ([]*models.Task, error) {
	ids, err := p.index()
	if err != nil {
		return nil, err
	}
	for i, spec := range p.Tasks {
		if spec.ID != "" {
			if _, err := tr.Status(spec.ID); err == nil {
				return nil, fmt.Errorf("task %s: %w", spec.ID, graph.ErrDuplicateID)
			}
		}
		for _, dep := range spec.Deps {
			if _, inFile := ids[dep]; inFile {
				continue
			}
			if _, err := tr.Status(dep); err != nil {
				return nil, fmt.Errorf("task %s depends on unknown task %s: %w", p.label(i), dep, graph.ErrUnknownDependency)
			}
		}
	}
	order, err := p.order(ids)
	if err != nil {
		return nil, err
	}

	submitted := make([]*models.Task, 0, len(order))
	for _, i := range order {
		task, err := tr.Submit(p.Tasks[i].task())
		if err != nil {
			// Unwind in reverse so dependents are removed first.
			for j := len(submitted) - 1; j >= 0; j-- {
				_ = tr.Remove(submitted[j].ID)
			}
			return nil, fmt.Errorf("submit %s: %w", p.label(i), err)
		}
		submitted = append(submitted, task)
	}
	return submitted, nil
}

func (p *Plan) validate() error {
	ids, err := p.index()
	if err != nil {
		return err
	}
	_, err = p.order(ids)
	return err
}

// index checks per-task fields and returns explicit ids mapped to their
// plan position.
func (p *Plan) index() (map[string]int, error) {
	ids := make(map[string]int, len(p.Tasks))
	for i, spec := range p.Tasks {
		if spec.Title == "" {
			return nil, fmt.Errorf("task %s: title required", p.label(i))
		}
		if spec.Type != "" && !knownType(models.TaskType(spec.Type)) {
			return nil, fmt.Errorf("task %s: unknown type %q", p.label(i), spec.Type)
		}
		if spec.Priority != "" && !models.Priority(spec.Priority).Valid() {
			return nil, fmt.Errorf("task %s: unknown priority %q", p.label(i), spec.Priority)
		}
		if spec.ID == "" {
			continue
		}
		if _, seen := ids[spec.ID]; seen {
			return nil, fmt.Errorf("task %s: %w", spec.ID, graph.ErrDuplicateID)
		}
		ids[spec.ID] = i
	}
	return ids, nil
}

// order returns plan positions in dependency order. Only deps between
// tasks in the file constrain the order; deps on outside tasks are
// already satisfied or rejected before submission starts.
func (p *Plan) order(ids map[string]int) ([]int, error) {
	key := func(i int) interface{} {
		if p.Tasks[i].ID != "" {
			return p.Tasks[i].ID
		}
		return i
	}

	var edges []toposort.Edge
	for i, spec := range p.Tasks {
		inFile := 0
		for _, dep := range spec.Deps {
			j, ok := ids[dep]
			if !ok {
				continue
			}
			edges = append(edges, toposort.Edge{key(j), key(i)})
			inFile++
		}
		if inFile == 0 {
			// An edge from nil keeps independent tasks in the result.
			edges = append(edges, toposort.Edge{nil, key(i)})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", graph.ErrCycleDetected, err)
	}

	order := make([]int, 0, len(p.Tasks))
	for _, k := range sorted {
		switch v := k.(type) {
		case int:
			order = append(order, v)
		case string:
			order = append(order, ids[v])
		}
	}
	return order, nil
}

// label names a task for error messages, falling back to its 1-based
// position when it has no id.
func (p *Plan) label(i int) string {
	if p.Tasks[i].ID != "" {
		return p.Tasks[i].ID
	}
	return fmt.Sprintf("#%d", i+1)
}

// task converts the spec to a draft for submission. Absent gates take
// the tracker-wide default; an explicit empty list means none.
func (s TaskSpec) task() *models.Task {
	task := &models.Task{
		ID:            s.ID,
		Title:         s.Title,
		Description:   s.Description,
		Type:          models.TaskType(s.Type),
		Priority:      models.Priority(s.Priority),
		Dependencies:  append([]string(nil), s.Deps...),
		ParallelGroup: s.Group,
		MaxIterations: s.MaxIterations,
	}
	if s.Gates != nil {
		task.RequiredGates = append([]string{}, s.Gates...)
	}
	return task
}

func knownType(typ models.TaskType) bool {
	for _, known := range models.KnownTypes {
		if typ == known {
			return true
		}
	}
	return false
}
