package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/pkg/models"
)

// PlanView renders the execution plan as dispatch batches.
type PlanView struct {
	plan   *graph.ExecutionPlan
	states map[string]models.State
	err    error

	headerStyle lipgloss.Style
	batchStyle  lipgloss.Style
	taskStyle   lipgloss.Style
	doneStyle   lipgloss.Style
	errStyle    lipgloss.Style
	groupStyle  lipgloss.Style
}

// NewPlanView creates a new PlanView instance.
func NewPlanView() *PlanView {
	return &PlanView{
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("7")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240")),

		batchStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		taskStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")),

		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		groupStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetPlan updates the plan and the task states used for coloring. A nil
// plan with a non-nil error renders the error instead.
func (p *PlanView) SetPlan(plan *graph.ExecutionPlan, states map[string]models.State, err error) {
	p.plan = plan
	p.states = states
	p.err = err
}

// View renders the plan pane.
func (p *PlanView) View() string {
	var b strings.Builder

	if p.err != nil {
		b.WriteString(p.headerStyle.Render("Execution Plan"))
		b.WriteString("\n")
		b.WriteString(p.errStyle.Render(fmt.Sprintf("plan unavailable: %v", p.err)))
		return b.String()
	}
	if p.plan == nil || len(p.plan.Batches) == 0 {
		b.WriteString(p.headerStyle.Render("Execution Plan"))
		b.WriteString("\n")
		b.WriteString(p.taskStyle.Render("Nothing left to dispatch"))
		return b.String()
	}

	header := fmt.Sprintf("Execution Plan (%d batches, %d tasks)", len(p.plan.Batches), p.plan.TaskCount())
	b.WriteString(p.headerStyle.Render(header))
	b.WriteString("\n")

	for i, batch := range p.plan.Batches {
		b.WriteString(p.batchStyle.Render(fmt.Sprintf("%2d. ", i+1)))
		for j, id := range batch.IDs {
			if j > 0 {
				b.WriteString("  ")
			}
			b.WriteString(p.renderMember(id))
		}
		if len(batch.Groups) > 0 {
			b.WriteString(p.groupStyle.Render(fmt.Sprintf("  (%s)", p.renderGroups(batch))))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderMember renders one batch member colored by its state.
func (p *PlanView) renderMember(id string) string {
	switch p.states[id] {
	case models.StateComplete:
		return p.doneStyle.Render(id)
	case models.StateBlocked:
		return p.errStyle.Render(id)
	default:
		return p.taskStyle.Render(id)
	}
}

// renderGroups summarizes the parallel group labels in a batch.
func (p *PlanView) renderGroups(batch graph.Batch) string {
	parts := make([]string, 0, len(batch.Groups))
	for label, ids := range batch.Groups {
		parts = append(parts, fmt.Sprintf("%s:%d", label, len(ids)))
	}
	// Map order is random; keep the pane stable between refreshes.
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
