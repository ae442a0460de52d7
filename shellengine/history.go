package shellengine

// historyPrev moves further back in history (Up arrow). Entering
// navigation for the first time snapshots the live buffer so Down can
// restore it later.
func (e *Engine) historyPrev() {
	if len(e.history) == 0 {
		return
	}
	if e.historyIndex == -1 {
		e.tempBuffer = e.buffer
		e.historyIndex = 0
	} else if e.historyIndex < len(e.history)-1 {
		e.historyIndex++
	} else {
		return
	}
	e.loadHistoryEntry()
}

// historyNext moves forward in history (Down arrow), restoring the
// snapshotted live buffer once it reaches the front.
func (e *Engine) historyNext() {
	if e.historyIndex == -1 {
		return
	}
	if e.historyIndex == 0 {
		e.historyIndex = -1
		e.buffer = e.tempBuffer
		e.cursor = len([]rune(e.buffer))
		e.redraw()
		return
	}
	e.historyIndex--
	e.loadHistoryEntry()
}

func (e *Engine) loadHistoryEntry() {
	e.buffer = e.history[len(e.history)-1-e.historyIndex]
	e.cursor = len([]rune(e.buffer))
	e.redraw()
}
