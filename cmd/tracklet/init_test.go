package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hfleming/tracklet/internal/machine"
	"github.com/hfleming/tracklet/pkg/models"
)

// The template init writes must stay loadable and equivalent to the
// built-in table, or a fresh project would behave differently from one
// that deleted the file.
func TestWorkflowTemplateParses(t *testing.T) {
	table, err := machine.Parse([]byte(workflowTemplate))
	if err != nil {
		t.Fatalf("Parse(workflowTemplate) error: %v", err)
	}

	builtin := machine.Default()
	checks := []struct {
		typ  models.TaskType
		from models.State
		to   models.State
	}{
		{models.TypeCoder, models.StateNew, models.StateAnalyzing},
		{models.TypeCoder, models.StateTesting, models.StateComplete},
		{models.TypeCoder, models.StateIteration, models.StateImplementing},
		{models.TypeArchitect, models.StatePlanning, models.StateReviewing},
		{models.TypeDebug, models.StateNew, models.StateDebugging},
		{models.TypeSecurity, models.StateNew, models.StateSecurityAudit},
		{models.TypeQA, models.StateTesting, models.StateIteration},
		{machine.DefaultKey, models.StateDocumenting, models.StateComplete},
	}
	for _, c := range checks {
		if !table.Allows(c.typ, c.from, c.to) {
			t.Errorf("template table should allow %s: %s -> %s", c.typ, c.from, c.to)
		}
		if !builtin.Allows(c.typ, c.from, c.to) {
			t.Errorf("built-in table should allow %s: %s -> %s", c.typ, c.from, c.to)
		}
	}

	if table.Allows(models.TypeCoder, models.StateTesting, models.StateAnalyzing) {
		t.Error("template table should not allow testing -> analyzing")
	}
	if table.Allows(models.TypeReviewer, models.StateNew, models.StateImplementing) {
		t.Error("reviewer chain should not route through implementing")
	}
}

func TestUpdateGitignore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := updateGitignore(dir); err != nil {
		t.Fatalf("updateGitignore error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.Contains(content, "node_modules/") {
		t.Error("existing entries should be preserved")
	}
	for _, entry := range []string{".tracklet/*.db*", ".tracklet/logs/", ".tracklet/signals/"} {
		if !strings.Contains(content, entry) {
			t.Errorf("missing entry %q in:\n%s", entry, content)
		}
	}

	// A second pass must not duplicate entries.
	if err := updateGitignore(dir); err != nil {
		t.Fatalf("second updateGitignore error: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), ".tracklet/logs/"); got != 1 {
		t.Errorf(".tracklet/logs/ appears %d times, want 1", got)
	}
}

func TestCreateProjectConfigKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".tracklet.yaml")
	custom := "workflow:\n  max_iterations: 9\n"
	if err := os.WriteFile(path, []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}

	wrote, err := createProjectConfig(dir)
	if err != nil {
		t.Fatalf("createProjectConfig error: %v", err)
	}
	if wrote {
		t.Error("createProjectConfig should not overwrite an existing file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != custom {
		t.Errorf("existing config was modified:\n%s", data)
	}
}
