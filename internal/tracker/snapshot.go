package tracker

import (
	"fmt"
	"time"

	"github.com/hfleming/tracklet/pkg/models"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is a plain-record copy of the full tracker state: every
// task, the complete transition log, and the id counter. It holds no
// pointers into the tracker, so it can be serialized, stored, and fed
// back to Restore for a lossless round trip.
type Snapshot struct {
	Version int                   `json:"version"`
	SavedAt time.Time             `json:"saved_at"`
	NextID  int                   `json:"next_id"`
	Tasks   []*models.Task        `json:"tasks"`
	History []models.HistoryEntry `json:"history,omitempty"`
}

// Snapshot captures the tracker state. Tasks appear in insertion order.
func (t *Tracker) Snapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		NextID:  t.nextID,
		History: append([]models.HistoryEntry(nil), t.history...),
	}
	for _, task := range t.graph.Tasks() {
		snap.Tasks = append(snap.Tasks, task.Clone())
	}
	return snap
}

// Restore builds a tracker from a snapshot. Task states, blockers,
// iteration counts, and history come back exactly as captured; the
// snapshot's task order becomes the insertion order. The options
// configure the new tracker the same way New does.
//
// The whole snapshot is validated up front; a bad snapshot returns an
// error and no tracker.
func Restore(snap *Snapshot, opts ...Option) (*Tracker, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot required")
	}
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d not supported", snap.Version)
	}

	t := New(opts...)
	if err := t.graph.Load(snap.Tasks); err != nil {
		return nil, err
	}
	t.history = append([]models.HistoryEntry(nil), snap.History...)
	if snap.NextID > t.nextID {
		t.nextID = snap.NextID
	}
	return t, nil
}
