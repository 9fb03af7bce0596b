package tui

// Scrolling and navigation methods for TreeView.

// selectPrevious moves selection to the previous visible task.
func (v *TreeView) selectPrevious() {
	if len(v.renderedLines) == 0 {
		return
	}

	currentIdx := -1
	for i, line := range v.renderedLines {
		if line.taskID == v.selected {
			currentIdx = i
			break
		}
	}

	for i := currentIdx - 1; i >= 0; i-- {
		if v.renderedLines[i].taskID != "" {
			v.selected = v.renderedLines[i].taskID
			return
		}
	}
}

// selectNext moves selection to the next visible task.
func (v *TreeView) selectNext() {
	if len(v.renderedLines) == 0 {
		return
	}

	currentIdx := -1
	for i, line := range v.renderedLines {
		if line.taskID == v.selected {
			currentIdx = i
			break
		}
	}

	for i := currentIdx + 1; i < len(v.renderedLines); i++ {
		if v.renderedLines[i].taskID != "" {
			v.selected = v.renderedLines[i].taskID
			return
		}
	}
}

// ensureSelectedVisible scrolls to make the selected task visible.
func (v *TreeView) ensureSelectedVisible() {
	if len(v.renderedLines) == 0 {
		return
	}

	selectedIdx := -1
	for i, line := range v.renderedLines {
		if line.taskID == v.selected {
			selectedIdx = i
			break
		}
	}

	if selectedIdx < 0 {
		return
	}

	if selectedIdx < v.scrollOffset {
		v.scrollOffset = selectedIdx
	} else if selectedIdx >= v.scrollOffset+v.visibleRows {
		v.scrollOffset = selectedIdx - v.visibleRows + 1
	}
}

// toggleCollapse toggles the collapse state of the selected task.
func (v *TreeView) toggleCollapse() {
	if v.selected == "" {
		return
	}

	for _, task := range v.tasks {
		if task.ParentID == v.selected {
			v.collapsed[v.selected] = !v.collapsed[v.selected]
			v.buildRenderedLines()
			return
		}
	}
}

// collapseAll collapses all parent tasks.
func (v *TreeView) collapseAll() {
	hasChildren := make(map[string]bool)
	for _, task := range v.tasks {
		if task.ParentID != "" {
			hasChildren[task.ParentID] = true
		}
	}

	for parentID := range hasChildren {
		v.collapsed[parentID] = true
	}
	v.buildRenderedLines()
	v.ensureSelectedVisible()
}

// expandAll expands all collapsed tasks.
func (v *TreeView) expandAll() {
	v.collapsed = make(map[string]bool)
	v.buildRenderedLines()
	v.ensureSelectedVisible()
}

// scrollUp scrolls up by n lines.
func (v *TreeView) scrollUp(n int) {
	v.scrollOffset -= n
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

// scrollDown scrolls down by n lines.
func (v *TreeView) scrollDown(n int) {
	maxOffset := len(v.renderedLines) - v.visibleRows
	if maxOffset < 0 {
		maxOffset = 0
	}
	v.scrollOffset += n
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
}

// scrollToTop scrolls to the top.
func (v *TreeView) scrollToTop() {
	v.scrollOffset = 0
	for _, line := range v.renderedLines {
		if line.taskID != "" {
			v.selected = line.taskID
			break
		}
	}
}

// scrollToBottom scrolls to the bottom.
func (v *TreeView) scrollToBottom() {
	v.scrollOffset = len(v.renderedLines) - v.visibleRows
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
	for i := len(v.renderedLines) - 1; i >= 0; i-- {
		if v.renderedLines[i].taskID != "" {
			v.selected = v.renderedLines[i].taskID
			break
		}
	}
}
