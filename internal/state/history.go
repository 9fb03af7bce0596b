package state

import (
	"database/sql"
	"fmt"

	"github.com/hfleming/tracklet/pkg/models"
)

// AppendHistory records one transition. The log is append-only; there
// is no update or delete.
func (s *Store) AppendHistory(entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendHistory(s.db, entry)
}

func (s *Store) appendHistory(db execer, entry models.HistoryEntry) error {
	_, err := db.Exec(`
		INSERT INTO history (task_id, from_state, to_state, actor, note, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.TaskID,
		string(entry.From),
		string(entry.To),
		nullString(entry.Actor),
		nullString(entry.Note),
		formatTime(entry.At),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// HistoryFor returns the recorded transitions for one task in order.
func (s *Store) HistoryFor(taskID string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT task_id, from_state, to_state, actor, note, at
		FROM history WHERE task_id = ? ORDER BY id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// AllHistory returns the full transition log in order.
func (s *Store) AllHistory() ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT task_id, from_state, to_state, actor, note, at
		FROM history ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// scanHistory scans rows into history entries.
func scanHistory(rows *sql.Rows) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry

	for rows.Next() {
		var (
			entry models.HistoryEntry
			from  string
			to    string
			actor sql.NullString
			note  sql.NullString
			at    string
		)
		if err := rows.Scan(&entry.TaskID, &from, &to, &actor, &note, &at); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.From = models.State(from)
		entry.To = models.State(to)
		entry.Actor = actor.String
		entry.Note = note.String
		ts, _ := parseTime(at)
		entry.At = ts
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}
