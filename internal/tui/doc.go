// Package tui provides the terminal dashboard for the board command.
//
// The board is a read-only view over a task source. It shows:
//   - The dependency tree with a state icon per task, collapsible by
//     parent and scrollable
//   - The execution plan as dispatch batches
//   - A filter input for narrowing the tree by id, title, or state
//
// The board never mutates tasks. It refreshes from its source on a
// timer, so a tracker being driven by a concurrent run can be watched
// live.
//
// Usage:
//
//	board := tui.NewBoard(tr, time.Second)
//	p := tea.NewProgram(board, tea.WithAltScreen())
//	_, err := p.Run()
//
// or simply:
//
//	err := tui.Run(tr, time.Second)
package tui
