package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/config"
	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/internal/tracker"
	"github.com/hfleming/tracklet/internal/tui"
	"github.com/hfleming/tracklet/pkg/models"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the task board",
	Long: `Open the interactive task board.

The board shows the dependency tree with state icons and the batched
execution plan, refreshed from the tracker database on a timer, so
changes made by other tracklet invocations show up live. The board is
read-only.

Keys: j/k move, space collapses, / filters, r refreshes, q quits.`,
	RunE: runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	// Fail before entering the alt screen when there is nothing to show.
	st, err := openStore(root)
	if err != nil {
		return err
	}
	st.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	source := &storeSource{root: root}
	return tui.Run(source, cfg.TUI.RefreshRate)
}

// storeSource feeds the board from the tracker database, reloading on
// every refresh so concurrent tracklet invocations show up. A failed
// reload keeps serving the last good state.
type storeSource struct {
	root string

	mu  sync.Mutex
	tr  *tracker.Tracker
	err error
}

func (s *storeSource) Tasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reload()
	if s.tr == nil {
		return nil
	}
	return s.tr.Tasks()
}

func (s *storeSource) Plan() (*graph.ExecutionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tr == nil {
		s.reload()
	}
	if s.tr == nil {
		return nil, s.err
	}
	return s.tr.Plan()
}

func (s *storeSource) reload() {
	tr, st, err := loadTracker(s.root)
	if err != nil {
		s.err = err
		return
	}
	st.Close()
	s.tr, s.err = tr, nil
}
