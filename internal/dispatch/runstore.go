package dispatch

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// RunSession records one tracklet run for later inspection.
type RunSession struct {
	ID        string
	Status    string
	Workers   int
	Total     int
	Completed int
	Blocked   int
	Failed    int
	StartedAt time.Time
	UpdatedAt time.Time
}

// RunStore persists run sessions in a standalone SQLite database,
// separate from the task store so runs can be inspected even while a
// run holds the tracker busy.
type RunStore struct {
	db *sql.DB
}

// RunDBPath returns the run session database path for a project.
func RunDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".tracklet", "runs.db")
}

// NewRunStore opens the run session database, creating it if needed.
func NewRunStore(dbPath string) (*RunStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create run store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Create table if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS run_sessions (
			id TEXT PRIMARY KEY,
			status TEXT,
			workers INT,
			total INT,
			completed INT,
			blocked INT,
			failed INT,
			started_at DATETIME,
			updated_at DATETIME
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &RunStore{db: db}, nil
}

// CreateSession inserts a new session row in the running state.
// An empty id gets a generated one.
func (s *RunStore) CreateSession(id string, workers, total int) (*RunSession, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	session := &RunSession{
		ID:        id,
		Status:    "running",
		Workers:   workers,
		Total:     total,
		StartedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(`
		INSERT INTO run_sessions (id, status, workers, total, completed, blocked, failed, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Status, session.Workers, session.Total, session.Completed, session.Blocked, session.Failed, session.StartedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

// UpdateSession updates an existing session.
func (s *RunStore) UpdateSession(session *RunSession) error {
	session.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE run_sessions
		SET status = ?, workers = ?, total = ?, completed = ?, blocked = ?, failed = ?, updated_at = ?
		WHERE id = ?
	`, session.Status, session.Workers, session.Total, session.Completed, session.Blocked, session.Failed, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run session not found: %s", session.ID)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (s *RunStore) GetSession(id string) (*RunSession, error) {
	row := s.db.QueryRow(`
		SELECT id, status, workers, total, completed, blocked, failed, started_at, updated_at
		FROM run_sessions
		WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *RunStore) ListSessions(limit int) ([]*RunSession, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, status, workers, total, completed, blocked, failed, started_at, updated_at
		FROM run_sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*RunSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*RunSession, error) {
	var session RunSession
	err := row.Scan(
		&session.ID,
		&session.Status,
		&session.Workers,
		&session.Total,
		&session.Completed,
		&session.Blocked,
		&session.Failed,
		&session.StartedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
