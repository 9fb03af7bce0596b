package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hfleming/tracklet/pkg/models"
)

// Status icons for task states.
const (
	iconActive  = "[●]"
	iconRework  = "[◐]"
	iconDone    = "[✓]"
	iconBlocked = "[✗]"
	iconPending = "[○]"
)

// TreeView displays the task hierarchy with dependency annotations.
type TreeView struct {
	tasks    []*models.Task
	filter   string
	selected string
	width    int
	height   int

	// Scrolling state
	scrollOffset int
	visibleRows  int

	// Collapse/expand state: maps parent task ID to collapsed state
	collapsed map[string]bool

	// Cached rendered lines for scrolling
	renderedLines []renderedLine

	// Styles
	headerStyle   lipgloss.Style
	nodeStyle     lipgloss.Style
	selectedStyle lipgloss.Style
	arrowStyle    lipgloss.Style
	statusDone    lipgloss.Style
	statusActive  lipgloss.Style
	statusRework  lipgloss.Style
	statusBlocked lipgloss.Style
	statusPending lipgloss.Style
	collapseStyle lipgloss.Style
}

// renderedLine represents a single line in the tree with its task.
type renderedLine struct {
	taskID   string
	text     string
	depth    int
	isParent bool
}

// NewTreeView creates a new TreeView instance.
func NewTreeView() *TreeView {
	return &TreeView{
		tasks:        make([]*models.Task, 0),
		selected:     "",
		collapsed:    make(map[string]bool),
		visibleRows:  20,
		scrollOffset: 0,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("7")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240")),

		nodeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		selectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true),

		arrowStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		statusDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")), // Dark green

		statusActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		statusRework: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange

		statusBlocked: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		statusPending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray

		collapseStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// Update handles input messages.
func (v *TreeView) Update(msg tea.Msg) (*TreeView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			v.selectPrevious()
			v.ensureSelectedVisible()
		case "down", "j":
			v.selectNext()
			v.ensureSelectedVisible()
		case " ", "space":
			v.toggleCollapse()
		case "c":
			v.collapseAll()
		case "e":
			v.expandAll()
		case "pgup", "ctrl+u":
			v.scrollUp(v.visibleRows / 2)
		case "pgdown", "ctrl+d":
			v.scrollDown(v.visibleRows / 2)
		case "home", "g":
			v.scrollToTop()
		case "end", "G":
			v.scrollToBottom()
		}

	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Reserve space for header, plan pane, and footer.
		v.visibleRows = msg.Height - 12
		if v.visibleRows < 5 {
			v.visibleRows = 5
		}
	}

	return v, nil
}

// View renders the dependency tree.
func (v *TreeView) View() string {
	if len(v.tasks) == 0 {
		return v.nodeStyle.Render("No tasks to display")
	}

	var b strings.Builder

	header := fmt.Sprintf("Tasks (%d)", len(v.tasks))
	if v.filter != "" {
		header = fmt.Sprintf("Tasks (%d, filter %q)", v.matchCount(), v.filter)
	}
	b.WriteString(v.headerStyle.Render(header))
	b.WriteString("\n")

	v.buildRenderedLines()

	totalLines := len(v.renderedLines)
	if totalLines == 0 {
		b.WriteString(v.nodeStyle.Render("No tasks match the filter"))
		return b.String()
	}

	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
	maxOffset := totalLines - v.visibleRows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}

	endIdx := v.scrollOffset + v.visibleRows
	if endIdx > totalLines {
		endIdx = totalLines
	}

	for i := v.scrollOffset; i < endIdx; i++ {
		line := v.renderedLines[i]
		if line.taskID == v.selected {
			b.WriteString(v.selectedStyle.Render(line.text))
		} else {
			b.WriteString(line.text)
		}
		b.WriteString("\n")
	}

	if totalLines > v.visibleRows {
		b.WriteString(v.renderScrollInfo(totalLines))
		b.WriteString("\n")
	}

	return b.String()
}

// SetTasks updates the list of tasks to display.
func (v *TreeView) SetTasks(tasks []*models.Task) {
	v.tasks = tasks
	if v.selected == "" && len(tasks) > 0 {
		v.selected = tasks[0].ID
	}
	// Verify selection still exists
	found := false
	for _, task := range tasks {
		if task.ID == v.selected {
			found = true
			break
		}
	}
	if !found && len(tasks) > 0 {
		v.selected = tasks[0].ID
	}
	v.buildRenderedLines()
	v.ensureSelectedVisible()
}

// SetFilter narrows the tree to tasks whose id, title, type, or state
// contains the given text. An empty filter shows everything.
func (v *TreeView) SetFilter(filter string) {
	v.filter = strings.ToLower(strings.TrimSpace(filter))
	v.buildRenderedLines()
	v.ensureSelectedVisible()
}

// SelectTask sets the currently selected task by ID.
func (v *TreeView) SelectTask(id string) {
	for _, task := range v.tasks {
		if task.ID == id {
			v.selected = id
			v.ensureSelectedVisible()
			return
		}
	}
}

// SelectedTask returns the currently selected task.
func (v *TreeView) SelectedTask() *models.Task {
	for _, task := range v.tasks {
		if task.ID == v.selected {
			return task
		}
	}
	return nil
}

func (v *TreeView) matchCount() int {
	n := 0
	for _, task := range v.tasks {
		if v.matches(task) {
			n++
		}
	}
	return n
}
