package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hfleming/tracklet/pkg/models"
)

// SaveTask writes a task to the store, updating in place when the id
// already exists. New tasks take the next position so that ListTasks
// preserves insertion order.
func (s *Store) SaveTask(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTask(s.db, task)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) saveTask(db execer, task *models.Task) error {
	deps, err := encodeJSON(task.Dependencies)
	if err != nil {
		return fmt.Errorf("encode dependencies: %w", err)
	}
	blockers, err := encodeJSON(task.Blockers)
	if err != nil {
		return fmt.Errorf("encode blockers: %w", err)
	}
	gates, err := encodeJSON(task.QualityGates)
	if err != nil {
		return fmt.Errorf("encode quality gates: %w", err)
	}
	required, err := encodeJSON(task.RequiredGates)
	if err != nil {
		return fmt.Errorf("encode required gates: %w", err)
	}

	result, err := db.Exec(`
		UPDATE tasks SET
			parent_id = ?,
			title = ?,
			description = ?,
			type = ?,
			priority = ?,
			state = ?,
			dependencies = ?,
			parallel_group = ?,
			blockers = ?,
			quality_gates = ?,
			required_gates = ?,
			iteration_count = ?,
			max_iterations = ?,
			escalation_required = ?,
			created_at = ?,
			updated_at = ?
		WHERE id = ?
	`,
		nullString(task.ParentID),
		task.Title,
		nullString(task.Description),
		string(task.Type),
		string(task.Priority),
		string(task.State),
		deps,
		nullString(task.ParallelGroup),
		blockers,
		gates,
		required,
		task.IterationCount,
		task.MaxIterations,
		task.EscalationRequired,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	_, err = db.Exec(`
		INSERT INTO tasks (
			id, parent_id, title, description, type, priority, state,
			dependencies, parallel_group, blockers, quality_gates, required_gates,
			iteration_count, max_iterations, escalation_required, position,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM tasks), ?, ?)
	`,
		task.ID,
		nullString(task.ParentID),
		task.Title,
		nullString(task.Description),
		string(task.Type),
		string(task.Priority),
		string(task.State),
		deps,
		nullString(task.ParallelGroup),
		blockers,
		gates,
		required,
		task.IterationCount,
		task.MaxIterations,
		task.EscalationRequired,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

const taskColumns = `id, parent_id, title, description, type, priority, state,
	dependencies, parallel_group, blockers, quality_gates, required_gates,
	iteration_count, max_iterations, escalation_required, created_at, updated_at`

// GetTask retrieves a task by its ID. Missing tasks return (nil, nil).
func (s *Store) GetTask(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

// ListTasks returns all tasks in insertion order.
func (s *Store) ListTasks() ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT " + taskColumns + " FROM tasks ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// DeleteTask removes a task from the store. History rows are kept.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// Search performs a full-text search on task titles and descriptions,
// best matches first.
func (s *Store) Search(query string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT t.id, t.parent_id, t.title, t.description, t.type, t.priority, t.state,
			   t.dependencies, t.parallel_group, t.blockers, t.quality_gates, t.required_gates,
			   t.iteration_count, t.max_iterations, t.escalation_required, t.created_at, t.updated_at
		FROM tasks t
		JOIN tasks_fts fts ON t.rowid = fts.rowid
		WHERE tasks_fts MATCH ?
		ORDER BY rank
	`, query)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// scanTasks scans rows into a slice of Task pointers.
func scanTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task

	for rows.Next() {
		var (
			task          models.Task
			parentID      sql.NullString
			description   sql.NullString
			taskType      string
			priority      string
			state         string
			deps          string
			parallelGroup sql.NullString
			blockers      string
			gates         string
			required      string
			createdAt     string
			updatedAt     string
		)

		err := rows.Scan(
			&task.ID,
			&parentID,
			&task.Title,
			&description,
			&taskType,
			&priority,
			&state,
			&deps,
			&parallelGroup,
			&blockers,
			&gates,
			&required,
			&task.IterationCount,
			&task.MaxIterations,
			&task.EscalationRequired,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}

		task.ParentID = parentID.String
		task.Description = description.String
		task.Type = models.TaskType(taskType)
		task.Priority = models.Priority(priority)
		task.State = models.State(state)
		task.ParallelGroup = parallelGroup.String
		if err := json.Unmarshal([]byte(deps), &task.Dependencies); err != nil {
			return nil, fmt.Errorf("decode dependencies: %w", err)
		}
		if err := json.Unmarshal([]byte(blockers), &task.Blockers); err != nil {
			return nil, fmt.Errorf("decode blockers: %w", err)
		}
		if err := json.Unmarshal([]byte(gates), &task.QualityGates); err != nil {
			return nil, fmt.Errorf("decode quality gates: %w", err)
		}
		if err := json.Unmarshal([]byte(required), &task.RequiredGates); err != nil {
			return nil, fmt.Errorf("decode required gates: %w", err)
		}

		ca, _ := parseTime(createdAt)
		task.CreatedAt = ca
		ua, _ := parseTime(updatedAt)
		task.UpdatedAt = ua

		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}
