package tui

import (
	"fmt"
	"strings"

	"github.com/hfleming/tracklet/pkg/models"
)

// Rendering methods for TreeView.

// matches reports whether a task passes the current filter.
func (v *TreeView) matches(task *models.Task) bool {
	if v.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(task.ID), v.filter) ||
		strings.Contains(strings.ToLower(task.Title), v.filter) ||
		strings.Contains(strings.ToLower(string(task.Type)), v.filter) ||
		strings.Contains(strings.ToLower(string(task.State)), v.filter)
}

// buildRenderedLines creates the cached rendered lines for the tree.
func (v *TreeView) buildRenderedLines() {
	v.renderedLines = make([]renderedLine, 0, len(v.tasks))

	visible := make(map[string]*models.Task)
	for _, task := range v.tasks {
		if v.matches(task) {
			visible[task.ID] = task
		}
	}

	// Group tasks by parent. A task whose parent is filtered out or
	// unknown renders as a root so it never disappears with it.
	children := make(map[string][]*models.Task)
	var roots []*models.Task
	for _, task := range v.tasks {
		t, ok := visible[task.ID]
		if !ok {
			continue
		}
		if _, parentVisible := visible[task.ParentID]; task.ParentID != "" && parentVisible {
			children[task.ParentID] = append(children[task.ParentID], t)
		} else {
			roots = append(roots, t)
		}
	}

	for _, task := range roots {
		v.buildTaskLines(task, visible, children, 0)
	}
}

// buildTaskLines builds rendered lines for a task and its children.
func (v *TreeView) buildTaskLines(task *models.Task, visible map[string]*models.Task, children map[string][]*models.Task, depth int) {
	kids, hasChildren := children[task.ID]

	indent := strings.Repeat("  ", depth)
	prefix := ""
	if depth > 0 {
		prefix = v.arrowStyle.Render("|-- ")
	}

	collapseIndicator := "    "
	if hasChildren {
		if v.collapsed[task.ID] {
			collapseIndicator = v.collapseStyle.Render("[+] ")
		} else {
			collapseIndicator = v.collapseStyle.Render("[-] ")
		}
	}

	icon := v.stateIcon(task.State)

	taskLine := fmt.Sprintf("%s%s%s%s %s %s", indent, prefix, collapseIndicator, icon, task.ID, truncate(task.Title, 35))

	if len(task.RequiredGates) > 0 {
		passed := 0
		for _, gate := range task.RequiredGates {
			if task.QualityGates[gate] {
				passed++
			}
		}
		taskLine += v.collapseStyle.Render(fmt.Sprintf(" [%d/%d gates]", passed, len(task.RequiredGates)))
	}

	if len(task.Dependencies) > 0 {
		taskLine += " " + v.arrowStyle.Render(v.renderDependencies(task.Dependencies))
	}

	if hasChildren && v.collapsed[task.ID] {
		hidden := v.countDescendants(task.ID, children)
		taskLine += v.collapseStyle.Render(fmt.Sprintf(" (%d hidden)", hidden))
	}

	v.renderedLines = append(v.renderedLines, renderedLine{
		taskID:   task.ID,
		text:     taskLine,
		depth:    depth,
		isParent: hasChildren,
	})

	if hasChildren && !v.collapsed[task.ID] {
		for _, child := range kids {
			v.buildTaskLines(child, visible, children, depth+1)
		}
	}
}

// countDescendants counts all descendants of a task.
func (v *TreeView) countDescendants(taskID string, children map[string][]*models.Task) int {
	count := 0
	if kids, ok := children[taskID]; ok {
		count += len(kids)
		for _, child := range kids {
			count += v.countDescendants(child.ID, children)
		}
	}
	return count
}

// renderScrollInfo renders scroll position information.
func (v *TreeView) renderScrollInfo(totalLines int) string {
	startLine := v.scrollOffset + 1
	endLine := v.scrollOffset + v.visibleRows
	if endLine > totalLines {
		endLine = totalLines
	}

	percent := 0
	if totalLines > v.visibleRows {
		percent = (v.scrollOffset * 100) / (totalLines - v.visibleRows)
	}

	indicators := ""
	if v.scrollOffset > 0 {
		indicators += "[up]"
	}
	if v.scrollOffset+v.visibleRows < totalLines {
		if indicators != "" {
			indicators += " "
		}
		indicators += "[down]"
	}

	return v.arrowStyle.Render(fmt.Sprintf("Lines %d-%d of %d (%d%%) %s", startLine, endLine, totalLines, percent, indicators))
}

// renderDependencies creates a string showing waits-on relationships.
func (v *TreeView) renderDependencies(deps []string) string {
	index := make(map[string]*models.Task, len(v.tasks))
	for _, task := range v.tasks {
		index[task.ID] = task
	}

	var depIcons []string
	for _, depID := range deps {
		if dep, exists := index[depID]; exists {
			depIcons = append(depIcons, fmt.Sprintf("%s%s", v.stateIconRaw(dep.State), truncate(depID, 10)))
		} else {
			depIcons = append(depIcons, fmt.Sprintf("[?]%s", truncate(depID, 10)))
		}
	}

	return "<-- " + strings.Join(depIcons, ", ")
}

// stateIcon returns the styled status icon for a task state.
func (v *TreeView) stateIcon(state models.State) string {
	switch state {
	case models.StateComplete:
		return v.statusDone.Render(iconDone)
	case models.StateBlocked:
		return v.statusBlocked.Render(iconBlocked)
	case models.StateIteration:
		return v.statusRework.Render(iconRework)
	case models.StateNew:
		return v.statusPending.Render(iconPending)
	default:
		return v.statusActive.Render(iconActive)
	}
}

// stateIconRaw returns the raw status icon (for dependency display).
func (v *TreeView) stateIconRaw(state models.State) string {
	switch state {
	case models.StateComplete:
		return iconDone
	case models.StateBlocked:
		return iconBlocked
	case models.StateIteration:
		return iconRework
	case models.StateNew:
		return iconPending
	default:
		return iconActive
	}
}

// truncate shortens a string to fit in a column.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
