// Package delegate renders markdown work briefs for task handoffs.
//
// A brief tells the worker picking up a task what the mission is, what
// already happened upstream, and what done looks like. Rendering is
// pure string construction so callers decide where briefs go.
package delegate

import (
	"fmt"
	"strings"

	"github.com/hfleming/tracklet/pkg/models"
)

// profile carries the role-specific sections of a brief.
type profile struct {
	heading      string
	focus        []string
	deliverables []string
	constraints  []string
}

var profiles = map[models.TaskType]profile{
	models.TypeArchitect: {
		heading: "Architecture Brief",
		focus: []string{
			"Analyze the requirements and their implications",
			"Define system boundaries and interfaces",
			"Make technology decisions with rationale",
			"Name the risks and how the design contains them",
		},
		deliverables: []string{
			"Technical specification",
			"Component and interface design",
			"Data model where applicable",
			"Record of decisions future work depends on",
		},
		constraints: []string{
			"Follow established project patterns",
			"Define clear interfaces between components",
		},
	},
	models.TypeCoder: {
		heading: "Implementation Brief",
		focus: []string{
			"Implement to the agreed design",
			"Handle errors on every path",
			"Write tests alongside the change",
		},
		deliverables: []string{
			"Working implementation matching the specification",
			"Unit tests for the new code",
			"Integration tests for key flows",
		},
		constraints: []string{
			"Follow the architectural plan",
			"Match existing codebase patterns",
			"No hardcoded values where configuration exists",
		},
	},
	models.TypeReviewer: {
		heading: "Review Brief",
		focus: []string{
			"Correctness against the plan",
			"Security of inputs and data handling",
			"Readability and maintainability",
			"Test coverage and test quality",
		},
		deliverables: []string{
			"Findings ranked by severity",
			"Approval or change requests with specific actions",
		},
		constraints: []string{
			"Critical and high findings first",
			"Every finding actionable and specific",
		},
	},
	models.TypeQA: {
		heading: "Validation Brief",
		focus: []string{
			"Validate all functional requirements",
			"Test edge cases and error scenarios",
			"Check integration points and regressions",
		},
		deliverables: []string{
			"Execution results per scenario",
			"Bug reports with reproduction steps",
			"Sign-off recommendation",
		},
		constraints: []string{
			"Every acceptance criterion exercised",
			"Scenarios documented as they run",
		},
	},
	models.TypeDebug: {
		heading: "Debugging Brief",
		focus: []string{
			"Reproduce the failure",
			"Isolate the root cause",
			"Apply the smallest fix that addresses the cause",
		},
		deliverables: []string{
			"Root cause summary",
			"Fix for the underlying problem",
			"Regression test pinning the failure",
		},
		constraints: []string{
			"Fix causes, not symptoms",
			"Keep the change minimal",
		},
	},
	models.TypeDocs: {
		heading: "Documentation Brief",
		focus: []string{
			"Accuracy against current behavior",
			"Audience and entry points",
			"Worked examples",
		},
		deliverables: []string{
			"Updated documentation",
			"Examples that run as written",
		},
		constraints: []string{
			"Document what exists, not what is planned",
		},
	},
	models.TypeDevops: {
		heading: "Operations Brief",
		focus: []string{
			"Repeatable builds and deploys",
			"Configuration and secrets handling",
			"Rollback paths",
		},
		deliverables: []string{
			"Pipeline or infrastructure change",
			"Verification steps",
			"Rollback procedure",
		},
		constraints: []string{
			"Changes must be reversible",
			"No credentials in code or logs",
		},
	},
	models.TypeSecurity: {
		heading: "Security Audit Brief",
		focus: []string{
			"Input validation and sanitization",
			"Authentication and authorization paths",
			"Sensitive data handling",
			"Dependency exposure",
		},
		deliverables: []string{
			"Findings ranked by severity",
			"Remediation recommendations",
			"Sign-off or block recommendation",
		},
		constraints: []string{
			"Verify rather than assume",
			"Evidence attached to every finding",
		},
	},
}

// defaultProfile covers task types without a profile of their own.
var defaultProfile = profile{
	heading: "Work Brief",
	focus: []string{
		"Complete the assigned task",
	},
	deliverables: []string{
		"The work the title and description describe",
	},
}

// Build renders the markdown brief for a task. The deps slice carries
// the task's dependencies so the brief can report their states; order
// is preserved. Purely computational, no I/O.
func Build(task *models.Task, deps []*models.Task) string {
	prof, ok := profiles[task.Type]
	if !ok {
		prof = defaultProfile
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(prof.heading)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("**Task**: %s\n", task.ID))
	sb.WriteString(fmt.Sprintf("**Role**: %s\n", task.Type))
	sb.WriteString(fmt.Sprintf("**State**: %s\n", task.State))
	sb.WriteString(fmt.Sprintf("**Priority**: %s\n", task.Priority))

	sb.WriteString("\n## Mission\n\n")
	sb.WriteString(task.Title)
	sb.WriteString("\n")
	if task.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(task.Description)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Dependency Context\n\n")
	if len(deps) == 0 {
		sb.WriteString("No dependencies.\n")
	} else {
		for _, dep := range deps {
			sb.WriteString(fmt.Sprintf("- %s %s (%s)\n", dep.ID, dep.Title, dep.State))
		}
	}

	if len(task.Blockers) > 0 {
		sb.WriteString("\n## Open Blockers\n\n")
		for _, blocker := range task.Blockers {
			sb.WriteString(fmt.Sprintf("- %s\n", blocker))
		}
	}

	sb.WriteString("\n## Focus\n\n")
	writeList(&sb, prof.focus)

	sb.WriteString("\n## Deliverables\n\n")
	writeList(&sb, prof.deliverables)

	sb.WriteString("\n## Constraints\n\n")
	sb.WriteString("- Stay within the task boundaries; file discoveries as new tasks\n")
	writeList(&sb, prof.constraints)

	sb.WriteString("\n## Success Criteria\n\n")
	if len(task.RequiredGates) == 0 {
		sb.WriteString("- All deliverables above are complete\n")
	} else {
		for _, gate := range task.RequiredGates {
			status := "pending"
			if task.QualityGates[gate] {
				status = "passed"
			}
			sb.WriteString(fmt.Sprintf("- Gate `%s` passes (%s)\n", gate, status))
		}
	}

	return sb.String()
}

func writeList(sb *strings.Builder, items []string) {
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
}
