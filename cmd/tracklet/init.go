package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hfleming/tracklet/internal/state"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a tracklet project",
	Long: `Initialize a directory for use with tracklet.

This command sets up everything needed to track tasks:
  - Creates the .tracklet directory structure
  - Creates the tracker database
  - Writes a workflow.yaml with the default state machine
  - Writes a .tracklet.yaml configuration template

The directory argument is optional and defaults to the current
directory (or --dir when set).

Examples:
  tracklet init              # Initialize current directory
  tracklet init ./myproject  # Initialize specific directory
  tracklet init --force      # Reinitialize even if already set up`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Step 1: Resolve target directory
	var targetDir string
	if len(args) > 0 {
		targetDir = args[0]
	} else {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		targetDir = root
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing tracklet in %s...\n\n", absPath)

	// Step 2: Check if already initialized
	trackletDir := filepath.Join(absPath, ".tracklet")
	if _, err := os.Stat(trackletDir); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	// Step 3: Create .tracklet structure
	if err := os.MkdirAll(trackletDir, 0755); err != nil {
		return fmt.Errorf("creating .tracklet directory: %w", err)
	}
	for _, sub := range []string{"logs", "signals"} {
		if err := os.MkdirAll(filepath.Join(trackletDir, sub), 0755); err != nil {
			return fmt.Errorf("creating .tracklet/%s directory: %w", sub, err)
		}
	}
	printStatus("✓", "Created .tracklet directory structure", color.FgGreen)

	// Step 4: Create tracker database
	st, err := state.New(state.ProjectDBPath(absPath))
	if err != nil {
		printStatus("✗", "Tracker database creation failed", color.FgRed)
		return err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		printStatus("✗", "Tracker database migration failed", color.FgRed)
		return err
	}
	st.Close()
	printStatus("✓", "Created tracker database", color.FgGreen)

	// Step 5: Write the workflow table
	wrote, err := createWorkflowFile(absPath)
	if err != nil {
		return fmt.Errorf("creating workflow.yaml: %w", err)
	}
	if wrote {
		printStatus("✓", "Created .tracklet/workflow.yaml with the default workflow", color.FgGreen)
	} else {
		printStatus("⚠", "Kept existing .tracklet/workflow.yaml", color.FgYellow)
	}

	// Step 6: Write the project config template
	wrote, err = createProjectConfig(absPath)
	if err != nil {
		return fmt.Errorf("creating project config: %w", err)
	}
	if wrote {
		printStatus("✓", "Created .tracklet.yaml template", color.FgGreen)
	} else {
		printStatus("⚠", "Kept existing .tracklet.yaml", color.FgYellow)
	}

	// Step 7: Update .gitignore when inside a git repository
	if _, err := os.Stat(filepath.Join(absPath, ".git")); err == nil {
		if err := updateGitignore(absPath); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
		printStatus("✓", "Updated .gitignore with tracklet entries", color.FgGreen)
	}

	// Step 8: Success message
	fmt.Printf("\n%s tracklet initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Create your first task:")
	fmt.Println("     tracklet create \"Describe the work\" --type coder")
	fmt.Println()
	fmt.Println("  2. See what is ready to dispatch:")
	fmt.Println("     tracklet ready")
	fmt.Println("     tracklet plan")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     tracklet --help")

	return nil
}

// createWorkflowFile writes the default workflow table to
// .tracklet/workflow.yaml. Returns false when a file already exists and
// --force is not set.
func createWorkflowFile(root string) (bool, error) {
	path := filepath.Join(root, ".tracklet", "workflow.yaml")
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	}
	return true, os.WriteFile(path, []byte(workflowTemplate), 0644)
}

// workflowTemplate is the default transition table, written out so
// projects can reshape their workflow by editing states rather than
// code. Deleting the file falls back to the same built-in table.
const workflowTemplate = `# tracklet workflow table
#
# transitions maps task type -> current state -> allowed next states.
# Types without an entry use the "default" chain. The blocked state is
# entered and left through blockers, never through this table, and
# complete is terminal.
version: 1
transitions:
  default:
    new: [analyzing]
    analyzing: [planning]
    planning: [implementing]
    implementing: [reviewing]
    reviewing: [testing, iteration]
    testing: [documenting, complete, iteration]
    documenting: [complete]
    iteration: [implementing]
  coder:
    new: [analyzing]
    analyzing: [planning]
    planning: [implementing]
    implementing: [reviewing]
    reviewing: [testing, iteration]
    testing: [documenting, complete, iteration]
    documenting: [complete]
    iteration: [implementing]
  architect:
    new: [analyzing]
    analyzing: [planning]
    planning: [reviewing]
    reviewing: [complete, iteration]
    iteration: [planning]
  debug:
    new: [debugging]
    debugging: [implementing]
    implementing: [reviewing]
    reviewing: [testing, iteration]
    testing: [complete, iteration]
    iteration: [debugging]
  reviewer:
    new: [reviewing]
    reviewing: [complete, iteration]
    iteration: [reviewing]
  qa:
    new: [testing]
    testing: [complete, iteration]
    iteration: [testing]
  docs:
    new: [documenting]
    documenting: [reviewing]
    reviewing: [complete, iteration]
    iteration: [documenting]
  devops:
    new: [devops]
    devops: [testing]
    testing: [complete, iteration]
    iteration: [devops]
  security:
    new: [security_audit]
    security_audit: [reviewing]
    reviewing: [complete, iteration]
    iteration: [security_audit]
`

// createProjectConfig creates the .tracklet.yaml template. Returns
// false when the file already exists; it is never overwritten.
func createProjectConfig(root string) (bool, error) {
	configPath := filepath.Join(root, ".tracklet.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return false, nil
	}

	template := `# tracklet project configuration
# This file overrides defaults from ~/.config/tracklet/config.yaml

# workflow:
#   max_iterations: 3
#   table_file: ""        # defaults to .tracklet/workflow.yaml

# gates:
#   required:
#     - architecture_approved
#     - tests_passing
#     - review_approved
#     - qa_validated

# deps:
#   satisfied_states: [complete]

# run:
#   workers: 4
#   step_delay: 100ms
#   fail_rate: 0.0

# tui:
#   refresh_rate: 1s
`

	return true, os.WriteFile(configPath, []byte(template), 0644)
}

// updateGitignore adds tracklet entries to .gitignore if not present
func updateGitignore(root string) error {
	gitignorePath := filepath.Join(root, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	trackletEntries := []string{
		".tracklet/*.db*",
		".tracklet/logs/",
		".tracklet/signals/",
		"tracklet",
	}

	needsUpdate := false
	for _, entry := range trackletEntries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	newContent.WriteString("\n# tracklet\n")
	for _, entry := range trackletEntries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}
