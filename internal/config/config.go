// Package config handles configuration loading and management for tracklet.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/pkg/models"
)

// Config holds all configuration for tracklet.
type Config struct {
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Gates    GatesConfig    `mapstructure:"gates"`
	Deps     DepsConfig     `mapstructure:"deps"`
	Run      RunConfig      `mapstructure:"run"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// WorkflowConfig holds state machine settings.
type WorkflowConfig struct {
	// MaxIterations caps rework rounds per task before escalation.
	MaxIterations int `mapstructure:"max_iterations"`
	// TableFile points at a transition table YAML file. Empty means
	// .tracklet/workflow.yaml in the project, then the built-in table.
	TableFile string `mapstructure:"table_file"`
}

// GatesConfig holds quality gate settings.
type GatesConfig struct {
	// Required lists the gates a task must pass before completing,
	// unless the task declares its own set at submission.
	Required []string `mapstructure:"required"`
}

// DepsConfig holds the dependency satisfaction policy.
type DepsConfig struct {
	// SatisfiedStates lists the states in which a dependency counts
	// as satisfied for readiness.
	SatisfiedStates []string `mapstructure:"satisfied_states"`
}

// RunConfig holds simulation runner settings.
type RunConfig struct {
	Workers   int           `mapstructure:"workers"`
	StepDelay time.Duration `mapstructure:"step_delay"`
	FailRate  float64       `mapstructure:"fail_rate"`
}

// TUIConfig holds board display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (TRACKLET_*)
// 2. Project config (.tracklet.yaml in current directory or parent)
// 3. User config (~/.config/tracklet/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Map specific environment variables
	v.BindEnv("workflow.max_iterations", "TRACKLET_MAX_ITERATIONS")
	v.BindEnv("workflow.table_file", "TRACKLET_WORKFLOW")
	v.BindEnv("run.workers", "TRACKLET_WORKERS")
	v.BindEnv("run.fail_rate", "TRACKLET_FAIL_RATE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Workflow.TableFile = expandEnv(cfg.Workflow.TableFile)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Workflow.TableFile = expandEnv(cfg.Workflow.TableFile)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("workflow.max_iterations", cfg.Workflow.MaxIterations)
	v.Set("workflow.table_file", cfg.Workflow.TableFile)
	v.Set("gates.required", cfg.Gates.Required)
	v.Set("deps.satisfied_states", cfg.Deps.SatisfiedStates)
	v.Set("run.workers", cfg.Run.Workers)
	v.Set("run.step_delay", cfg.Run.StepDelay.String())
	v.Set("run.fail_rate", cfg.Run.FailRate)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Workflow defaults
	v.SetDefault("workflow.max_iterations", 3)
	v.SetDefault("workflow.table_file", "")

	// Gate defaults: the standard handoff gates.
	v.SetDefault("gates.required", []string{
		"architecture_approved",
		"tests_passing",
		"review_approved",
		"qa_validated",
	})

	// Dependency policy: terminal success only.
	v.SetDefault("deps.satisfied_states", []string{string(models.StateComplete)})

	// Runner defaults
	v.SetDefault("run.workers", 4)
	v.SetDefault("run.step_delay", "100ms")
	v.SetDefault("run.fail_rate", 0.0)

	// Board defaults
	v.SetDefault("tui.refresh_rate", "1s")
}

// getUserConfigDir returns the XDG config directory for tracklet.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tracklet")
	}

	// Fall back to ~/.config/tracklet
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "tracklet")
	}
	return filepath.Join(home, ".config", "tracklet")
}

// findProjectConfig searches for .tracklet.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".tracklet.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			MaxIterations: 3,
		},
		Gates: GatesConfig{
			Required: []string{
				"architecture_approved",
				"tests_passing",
				"review_approved",
				"qa_validated",
			},
		},
		Deps: DepsConfig{
			SatisfiedStates: []string{string(models.StateComplete)},
		},
		Run: RunConfig{
			Workers:   4,
			StepDelay: 100 * time.Millisecond,
			FailRate:  0,
		},
		TUI: TUIConfig{
			RefreshRate: time.Second,
		},
	}
}

// SatisfiedStates returns the dependency policy as state values.
func (c *Config) SatisfiedStates() []models.State {
	states := make([]models.State, 0, len(c.Deps.SatisfiedStates))
	for _, s := range c.Deps.SatisfiedStates {
		states = append(states, models.State(s))
	}
	return states
}

// WorkflowTablePath resolves the transition table file for a project:
// the configured table_file when set, else .tracklet/workflow.yaml
// under the project root.
func (c *Config) WorkflowTablePath(projectRoot string) string {
	if c.Workflow.TableFile != "" {
		return c.Workflow.TableFile
	}
	return filepath.Join(projectRoot, ".tracklet", "workflow.yaml")
}

// LoadWorkflowTable loads the transition table for a project, falling
// back to the built-in table when no file exists.
func (c *Config) LoadWorkflowTable(projectRoot string) (machine.Table, error) {
	path := c.WorkflowTablePath(projectRoot)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return machine.Default(), nil
		}
		return nil, err
	}
	return machine.LoadFile(path)
}
