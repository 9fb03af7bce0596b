package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify tracklet configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/tracklet/config.yaml
Project-specific overrides can be placed in .tracklet.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch len(args) {
	case 0:
		displayAllConfig(cfg)
		return nil
	case 1:
		value, err := getConfigValue(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	default:
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	}
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("workflow.max_iterations: %d\n", cfg.Workflow.MaxIterations)
	fmt.Printf("workflow.table_file: %s\n", orUnset(cfg.Workflow.TableFile))
	fmt.Printf("gates.required: %s\n", strings.Join(cfg.Gates.Required, ","))
	fmt.Printf("deps.satisfied_states: %s\n", strings.Join(cfg.Deps.SatisfiedStates, ","))
	fmt.Printf("run.workers: %d\n", cfg.Run.Workers)
	fmt.Printf("run.step_delay: %s\n", cfg.Run.StepDelay)
	fmt.Printf("run.fail_rate: %g\n", cfg.Run.FailRate)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "workflow.max_iterations":
		return strconv.Itoa(cfg.Workflow.MaxIterations), nil
	case "workflow.table_file":
		return orUnset(cfg.Workflow.TableFile), nil
	case "gates.required":
		return strings.Join(cfg.Gates.Required, ","), nil
	case "deps.satisfied_states":
		return strings.Join(cfg.Deps.SatisfiedStates, ","), nil
	case "run.workers":
		return strconv.Itoa(cfg.Run.Workers), nil
	case "run.step_delay":
		return cfg.Run.StepDelay.String(), nil
	case "run.fail_rate":
		return strconv.FormatFloat(cfg.Run.FailRate, 'g', -1, 64), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
// List values take comma-separated input.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "workflow.max_iterations":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_iterations: %w", err)
		}
		cfg.Workflow.MaxIterations = n
	case "workflow.table_file":
		cfg.Workflow.TableFile = value
	case "gates.required":
		cfg.Gates.Required = splitList(value)
	case "deps.satisfied_states":
		cfg.Deps.SatisfiedStates = splitList(value)
	case "run.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for workers: %w", err)
		}
		cfg.Run.Workers = n
	case "run.step_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for step_delay: %w", err)
		}
		cfg.Run.StepDelay = d
	case "run.fail_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for fail_rate: %w", err)
		}
		cfg.Run.FailRate = f
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for refresh_rate: %w", err)
		}
		cfg.TUI.RefreshRate = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
