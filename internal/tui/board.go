package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hfleming/tracklet/internal/graph"
	"github.com/hfleming/tracklet/pkg/models"
)

// DefaultRefresh is the board refresh interval when none is configured.
const DefaultRefresh = time.Second

// Source supplies the board with task data. The tracker satisfies it.
type Source interface {
	Tasks() []*models.Task
	Plan() (*graph.ExecutionPlan, error)
}

// refreshMsg triggers a reload from the source.
type refreshMsg time.Time

// Board is the main bubbletea model for the dashboard.
type Board struct {
	source  Source
	refresh time.Duration

	tree   *TreeView
	plan   *PlanView
	filter *FilterField

	// filtering is true while the filter field has focus.
	filtering bool
	width     int
	height    int
	quitting  bool

	titleStyle  lipgloss.Style
	footerStyle lipgloss.Style
}

// NewBoard creates a board over the given source. A refresh interval of
// zero or less falls back to DefaultRefresh.
func NewBoard(source Source, refresh time.Duration) *Board {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	b := &Board{
		source:  source,
		refresh: refresh,
		tree:    NewTreeView(),
		plan:    NewPlanView(),
		filter:  NewFilterField(),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
	b.reload()
	return b
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return b.tick()
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		b.reload()
		return b, b.tick()

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.filter.SetWidth(msg.Width)
		b.tree, _ = b.tree.Update(msg)
		return b, nil

	case tea.KeyMsg:
		if b.filtering {
			return b.updateFiltering(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			b.quitting = true
			return b, tea.Quit
		case "/":
			b.filtering = true
			return b, b.filter.Focus()
		case "r":
			b.reload()
			return b, nil
		default:
			var cmd tea.Cmd
			b.tree, cmd = b.tree.Update(msg)
			return b, cmd
		}
	}

	return b, nil
}

// updateFiltering routes keys to the filter field while it has focus.
func (b *Board) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		b.quitting = true
		return b, tea.Quit
	case "esc":
		b.filtering = false
		b.filter.Blur()
		b.filter.Reset()
		b.tree.SetFilter("")
		return b, nil
	case "enter":
		// Keep the filter, release focus back to the tree.
		b.filtering = false
		b.filter.Blur()
		return b, nil
	}

	var cmd tea.Cmd
	b.filter, cmd = b.filter.Update(msg)
	b.tree.SetFilter(b.filter.Value())
	return b, cmd
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.quitting {
		return ""
	}

	sections := []string{b.viewHeader()}
	if b.filtering || b.filter.Value() != "" {
		sections = append(sections, b.filter.View())
	}
	sections = append(sections, b.tree.View(), b.plan.View(), b.viewFooter())
	return strings.Join(sections, "\n")
}

// viewHeader renders the title bar with task counts.
func (b *Board) viewHeader() string {
	total, complete, blocked := 0, 0, 0
	for _, task := range b.tree.tasks {
		total++
		switch task.State {
		case models.StateComplete:
			complete++
		case models.StateBlocked:
			blocked++
		}
	}
	return b.titleStyle.Render(fmt.Sprintf("tracklet board  %d tasks | %d complete | %d blocked", total, complete, blocked))
}

// viewFooter renders the footer with key hints.
func (b *Board) viewFooter() string {
	if b.filtering {
		return b.footerStyle.Render("[enter] apply filter  [esc] clear  [ctrl+c] quit")
	}
	return b.footerStyle.Render("[/] filter  [j/k] navigate  [space] collapse  [c/e] collapse/expand all  [r] refresh  [q] quit")
}

// reload pulls fresh tasks and plan from the source.
func (b *Board) reload() {
	tasks := b.source.Tasks()
	b.tree.SetTasks(tasks)

	states := make(map[string]models.State, len(tasks))
	for _, task := range tasks {
		states[task.ID] = task.State
	}
	plan, err := b.source.Plan()
	b.plan.SetPlan(plan, states, err)
}

// tick schedules the next refresh.
func (b *Board) tick() tea.Cmd {
	return tea.Tick(b.refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Run starts the board and blocks until the user quits.
func Run(source Source, refresh time.Duration) error {
	board := NewBoard(source, refresh)
	p := tea.NewProgram(board, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// NewProgram creates a Bubbletea program for the board that can receive
// messages via Send().
func NewProgram(source Source, refresh time.Duration) (*tea.Program, *Board) {
	board := NewBoard(source, refresh)
	p := tea.NewProgram(board, tea.WithAltScreen())
	return p, board
}
