package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/config"
	"github.com/hfleming/tracklet/internal/dispatch"
)

var (
	runWorkers   int
	runStepDelay time.Duration
	runFailRate  float64
	runQuiet     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run tracked tasks with simulated workers",
	Long: `Dispatch ready tasks to simulated workers until no new work unlocks.

Each wave sends every ready task to a worker with bounded concurrency.
Workers walk the task along its workflow chain, pass its required
gates, and complete it; completions unlock dependents for the next
wave. Failure injection (--fail-rate) blocks tasks instead, leaving
rework for 'tracklet unblock'.

The run honors stop/pause files in .tracklet/signals/ between waves and
records a session row in .tracklet/runs.db.

Examples:
  tracklet run
  tracklet run --workers 8 --step-delay 0
  tracklet run --fail-rate 0.2`,
	RunE: runDispatch,
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent workers (default: configured)")
	runCmd.Flags().DurationVar(&runStepDelay, "step-delay", 0, "Pause between workflow steps (default: configured)")
	runCmd.Flags().Float64Var(&runFailRate, "fail-rate", 0, "Probability a worker blocks a task (default: configured)")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Suppress per-task event lines")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the run summary as JSON")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	tr, st, err := loadTracker(root)
	if err != nil {
		return err
	}
	defer st.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	workers := cfg.Run.Workers
	if cmd.Flags().Changed("workers") {
		workers = runWorkers
	}
	stepDelay := cfg.Run.StepDelay
	if cmd.Flags().Changed("step-delay") {
		stepDelay = runStepDelay
	}
	failRate := cfg.Run.FailRate
	if cmd.Flags().Changed("fail-rate") {
		failRate = runFailRate
	}
	quiet := runQuiet || jsonOut

	ready := tr.Ready()
	if len(ready) == 0 {
		if jsonOut {
			return printJSON(&dispatch.RunSummary{})
		}
		fmt.Println("Nothing ready to dispatch.")
		return nil
	}
	if !quiet {
		fmt.Printf("Starting run: %d tasks tracked, %d ready\n", tr.Len(), len(ready))
		fmt.Printf("  Workers:    %d\n", workers)
		fmt.Printf("  Step delay: %s\n", stepDelay)
		fmt.Printf("  Fail rate:  %.0f%%\n\n", failRate*100)
	}

	// Handle signals for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	emitter := dispatch.NewEmitter(128)
	logger := dispatch.NewDebugLoggerForProject(root)
	defer logger.Close()

	opts := []dispatch.RunnerOption{
		dispatch.WithWorkers(workers),
		dispatch.WithStepDelay(stepDelay),
		dispatch.WithEmitter(emitter),
		dispatch.WithRunLogger(logger),
		dispatch.WithActor("run"),
	}
	if store, err := dispatch.NewRunStore(dispatch.RunDBPath(root)); err != nil {
		fmt.Printf("Warning: run session store unavailable: %v\n", err)
	} else {
		defer store.Close()
		opts = append(opts, dispatch.WithRunStore(store))
	}
	if signals, err := dispatch.NewSignals(root); err != nil {
		fmt.Printf("Warning: signal watcher unavailable: %v\n", err)
	} else {
		defer signals.Close()
		opts = append(opts, dispatch.WithSignals(signals))
	}

	runner := dispatch.NewRunner(tr, dispatch.NewSimWorker(failRate), opts...)

	done := make(chan struct{})
	go consumeRunEvents(runner.Events(), quiet, done)

	summary, runErr := runner.Run(ctx)
	emitter.Close()
	<-done

	// Persist whatever the run achieved, aborted or not.
	if err := saveTracker(st, tr); err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(summary); err != nil {
			return err
		}
		return runErr
	}

	fmt.Printf("\nRun %s: %d completed, %d blocked, %d failed in %d waves (%s)\n",
		shortRunID(summary.RunID), summary.Completed, summary.Blocked, summary.Failed,
		summary.Waves, summary.Duration.Round(time.Millisecond))
	if summary.Blocked > 0 {
		fmt.Println("Run 'tracklet status' to inspect blocked tasks.")
	}
	if summary.DroppedEvents > 0 {
		fmt.Printf("(%d progress events dropped)\n", summary.DroppedEvents)
	}
	return runErr
}

// consumeRunEvents prints runner events as they arrive. It drains the
// channel even when quiet so the emitter never stalls.
func consumeRunEvents(events <-chan dispatch.Event, quiet bool, done chan struct{}) {
	defer close(done)
	if events == nil {
		return
	}
	for event := range events {
		if quiet {
			continue
		}
		switch event.Type {
		case dispatch.EventTaskStarted:
			fmt.Printf("  %s %s  %s\n", color.CyanString("▸"), event.TaskID, event.TaskTitle)
		case dispatch.EventTaskCompleted:
			fmt.Printf("  %s %s  complete\n", color.GreenString("✓"), event.TaskID)
		case dispatch.EventTaskBlocked:
			fmt.Printf("  %s %s  blocked: %s\n", color.RedString("✗"), event.TaskID, event.Message)
		case dispatch.EventTaskFailed:
			fmt.Printf("  %s %s  failed: %s\n", color.RedString("✗"), event.TaskID, event.Message)
		case dispatch.EventTaskEscalation:
			fmt.Printf("  %s %s  %s\n", color.YellowString("⚠"), event.TaskID, event.Message)
		case dispatch.EventTransitionRejected:
			fmt.Printf("  %s %s  %s\n", color.YellowString("⚠"), event.TaskID, event.Message)
		}
	}
}

// shortRunID trims a uuid to its first group for display.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
