package state

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/hfleming/tracklet/internal/tracker"
)

// SaveSnapshot replaces the stored state with the snapshot: the full
// task set in order, the complete transition log, and the id counter.
// The write is transactional; a failure leaves the previous state.
func (s *Store) SaveSnapshot(snap *tracker.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM tasks"); err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM history"); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		for _, task := range snap.Tasks {
			if err := s.saveTask(tx, task); err != nil {
				return err
			}
		}
		for _, entry := range snap.History {
			if err := s.appendHistory(tx, entry); err != nil {
				return err
			}
		}
		if err := setMeta(tx, "next_id", strconv.Itoa(snap.NextID)); err != nil {
			return err
		}
		return setMeta(tx, "saved_at", formatTime(snap.SavedAt))
	})
}

// LoadSnapshot reads the stored state back into snapshot form. An empty
// store loads as an empty snapshot.
func (s *Store) LoadSnapshot() (*tracker.Snapshot, error) {
	tasks, err := s.ListTasks()
	if err != nil {
		return nil, err
	}
	history, err := s.AllHistory()
	if err != nil {
		return nil, err
	}

	snap := &tracker.Snapshot{
		Version: tracker.SnapshotVersion,
		Tasks:   tasks,
		History: history,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if raw, err := getMeta(s.db, "next_id"); err != nil {
		return nil, err
	} else if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse next_id: %w", err)
		}
		snap.NextID = n
	}
	if raw, err := getMeta(s.db, "saved_at"); err != nil {
		return nil, err
	} else if raw != "" {
		ts, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("parse saved_at: %w", err)
		}
		snap.SavedAt = ts
	}
	return snap, nil
}

func setMeta(db execer, key, value string) error {
	if _, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getMeta(db querier, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}
