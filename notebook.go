package lineterm

import (
	"path/filepath"
	"strings"
)

var pythonPrompts = []string{defaultNotebookPS1, defaultNotebookPS2}
var ipythonPrompts = []string{"In [", "   ...: "}
var nodePrompts = []string{"> ", "... "}

// notebookCell is one cell of an active notebook: an ordered list of input
// lines sent to the shell and the output scroll entries produced in
// response.
type notebookCell struct {
	index  int
	kind   string
	input  []string
	output []ScrollEntry
}

// notebookState is the per-Emulator notebook session. Exactly one can be
// active at a time; activating pushes the emulator into a mode where
// cursorDown/scrollScreen retire rows into screenBuf (the notebook's own,
// separate from the shell's) instead of the main one.
type notebookState struct {
	count     int
	screenBuf *ScreenBuf
	cells     map[int]*notebookCell
	order     []int
	maxIndex  int
	curIndex  int
	prompts   []string
	shell     bool
	input     []string
}

// NotebookActive reports whether notebook mode is currently active.
func (e *Emulator) NotebookActive() bool { return e.notebook != nil }

// NotebookActivate enters notebook mode: a new, separate scroll buffer
// starts capturing output, and a first "code" cell is created. If prompts
// is empty, a prompt set is inferred from commandPath (python/node) or from
// the first word of the current command line.
func (e *Emulator) NotebookActivate(prompts []string) {
	atShell := e.activeRows > 0 && e.mainScreen.Meta(e.activeRows-1) != nil
	curDir := e.currentDir

	if len(prompts) == 0 && e.commandPath != "" {
		switch filepath.Base(e.commandPath) {
		case "python", "python3":
			prompts = pythonPrompts
		case "node":
			prompts = nodePrompts
		}
	}
	if len(prompts) == 0 {
		line := dumpRow(e.screen.Row(e.cursor.Y), true)
		comps := strings.Fields(line)
		if len(comps) > 0 && comps[0] != "" {
			prompts = []string{comps[0] + " "}
			switch prompts[0] {
			case pythonPrompts[0]:
				prompts = append(prompts, pythonPrompts[1:]...)
			case ipythonPrompts[0]:
				prompts = append(prompts, ipythonPrompts[1:]...)
			default:
				if atShell {
					prompts = append(prompts, "> ")
				} else if prompts[len(prompts)-1] == "> " {
					prompts = append(prompts, "... ")
				}
			}
		}
	}

	e.scrollScreen(e.activeRows)
	e.Update()
	e.Resize(e.height, e.width, e.winHeight, e.winWidth, true)

	e.notebook = &notebookState{
		cells:   map[int]*notebookCell{},
		prompts: prompts,
		shell:   atShell,
	}
	e.notebook.count++
	e.notebook.screenBuf = NewScreenBuf(PromptDelim{})
	e.notebook.screenBuf.SetBufNote(e.notebook.count)
	e.scrollBot = 0

	e.callback.Emit(Event{TermName: e.termName, Kind: EventNoteActivate, Args: NoteActivateArgs{
		Active: true, Cwd: curDir, AtShell: atShell,
	}})
	e.AddCell("code", 0)
}

// NotebookDeactivate leaves notebook mode, flushing every cell's recorded
// input and output back into the main scroll buffer as plain retired rows.
func (e *Emulator) NotebookDeactivate() {
	nb := e.notebook
	if nb == nil {
		return
	}
	e.LeaveCell(false, false)
	prompt := ""
	if len(nb.prompts) > 0 {
		prompt = nb.prompts[0]
	}

	for _, idx := range nb.order {
		cell := nb.cells[idx]
		if len(cell.input) > 0 {
			for _, line := range cell.input {
				e.screenBuf.ScrollBufUp(line, nil, 0, RowParams{
					Options: PageletOptions{AddClass: "gterm-cell-input"},
				})
			}
			e.screenBuf.ScrollBufUp(prompt, nil, 0, RowParams{})
		}
		e.screenBuf.AppendScroll(cell.output)
	}

	e.notebook = nil
	e.scrollBot = e.height - 1
	e.Resize(e.height, e.width, e.winHeight, e.winWidth, true)
	e.mainScreen.ZeroAll()

	e.callback.Emit(Event{TermName: e.termName, Kind: EventNoteActivate, Args: NoteActivateArgs{
		Active: false, Cwd: e.currentDir, AtShell: nb.shell,
	}})
	e.Update()
}

// AddCell inserts a new cell after the current one (or at beforeIndex, a
// 1-based position, if non-zero) and emits EventNoteAddCell.
func (e *Emulator) AddCell(kind string, beforeIndex int) {
	nb := e.notebook
	if nb == nil {
		return
	}
	prevIndex := nb.curIndex
	e.LeaveCell(false, false)
	nb.maxIndex++
	cellIndex := nb.maxIndex
	nb.cells[cellIndex] = &notebookCell{index: cellIndex, kind: kind}
	nb.curIndex = cellIndex

	if beforeIndex == 0 {
		if prevIndex != 0 {
			beforeIndex = 2 + indexOf(nb.order, prevIndex)
		} else {
			beforeIndex = 1 + len(nb.order)
		}
	}

	beforeCellIndex := 0
	if beforeIndex > len(nb.order) {
		nb.order = append(nb.order, cellIndex)
	} else {
		beforeCellIndex = nb.order[beforeIndex-1]
		nb.order = append(nb.order, 0)
		copy(nb.order[beforeIndex:], nb.order[beforeIndex-1:])
		nb.order[beforeIndex-1] = cellIndex
	}

	e.callback.Emit(Event{TermName: e.termName, Kind: EventNoteAddCell, Args: NoteAddCellArgs{
		CellIndex: cellIndex, CellType: kind, BeforeIndex: beforeCellIndex,
	}})
}

// LeaveCell moves the screen's accumulated rows to the current cell's
// output, clearing the notebook scroll buffer, then returns the index of
// the cell that should become current (0 if none).
func (e *Emulator) LeaveCell(del, moveUp bool) int {
	nb := e.notebook
	if nb == nil || nb.curIndex == 0 {
		return 0
	}
	curIndex := nb.curIndex
	cell := nb.cells[curIndex]
	e.scrollScreen(e.activeRows)
	cell.output = stripPromptLines(nb.screenBuf.exportLines(), nb.prompts)
	nb.screenBuf.ClearBuf()

	nb.curIndex = 0
	loc := indexOf(nb.order, curIndex)

	var switchIndex int
	switch {
	case moveUp && loc > 0:
		switchIndex = nb.order[loc-1]
	case loc < len(nb.order)-1:
		switchIndex = nb.order[loc+1]
	case loc > 0:
		switchIndex = nb.order[0]
	default:
		switchIndex = 0
	}

	if del {
		remaining := make([]int, 0, len(nb.order)-1)
		for _, idx := range nb.order {
			if idx != curIndex {
				remaining = append(remaining, idx)
			}
		}
		nb.order = remaining
		delete(nb.cells, curIndex)
	}
	return switchIndex
}

// SelectCell leaves the current cell (optionally deleting it) and makes
// cellIndex current (or the cell LeaveCell chose, if cellIndex is 0).
func (e *Emulator) SelectCell(cellIndex int, del, moveUp bool) int {
	nb := e.notebook
	if nb == nil {
		return 0
	}
	next := e.LeaveCell(del, moveUp)
	if cellIndex == 0 {
		cellIndex = next
	}
	nb.input = nil
	nb.curIndex = cellIndex
	if cell, ok := nb.cells[cellIndex]; ok {
		cell.output = nil
	}
	return cellIndex
}

// SwitchCell moves to cellIndex (or adjacent, if moveUp and cellIndex is 0)
// and emits EventNoteSwitchCell if the current cell actually changed.
func (e *Emulator) SwitchCell(cellIndex int, moveUp bool) {
	nb := e.notebook
	if nb == nil {
		return
	}
	cur := nb.curIndex
	switchIndex := e.SelectCell(cellIndex, false, moveUp)
	if cur != switchIndex {
		e.callback.Emit(Event{TermName: e.termName, Kind: EventNoteSwitchCell, Args: NoteSwitchCellArgs{CellIndex: switchIndex}})
	}
}

// DeleteCell removes the current cell and switches to its neighbor.
func (e *Emulator) DeleteCell() {
	nb := e.notebook
	if nb == nil {
		return
	}
	cur := nb.curIndex
	switchIndex := e.SelectCell(0, true, false)
	e.callback.Emit(Event{TermName: e.termName, Kind: EventNoteDeleteCell, Args: NoteDeleteCellArgs{Deleted: cur, NewCurrent: switchIndex}})
}

// ExecCell records inputData as the current cell's input and returns the
// bytes the caller should write to the pty to execute it: first a blank
// line (to clear any indentation level and provoke a fresh prompt), then,
// if the notebook has no configured prompt to gate on, every input line
// immediately.
func (e *Emulator) ExecCell(cellIndex int, inputData string) []byte {
	nb := e.notebook
	if nb == nil || nb.curIndex == 0 || cellIndex != nb.curIndex {
		return nil
	}
	cell := nb.cells[nb.curIndex]
	lines := strings.Split(strings.ReplaceAll(strings.ReplaceAll(inputData, "\r\n", "\n"), "\r", "\n"), "\n")
	nb.input = append([]string{}, lines...)
	cell.input = append([]string{}, lines...)
	if len(nb.input) > 0 && nb.input[len(nb.input)-1] != "" {
		nb.input = append(nb.input, "")
	}

	nb.screenBuf.ClearBuf()
	e.mainScreen.ZeroAll()
	e.cursor.X = 0

	out := []byte("\n")
	if len(nb.prompts) == 0 {
		for _, line := range nb.input {
			out = append(out, []byte(line+"\n")...)
		}
		nb.input = nil
	}
	return out
}

// notebookAutoFeed returns the next buffered notebook input line, prefixed
// to the pty, once the cursor row shows a prompt: either the shell's own
// delimiter-bracketed prompt (when the active command is itself a shell, so
// ordinary command prompts gate feeding) or one of the configured notebook
// prompts. Returns nil while no input is queued or no prompt has appeared
// yet.
func (e *Emulator) notebookAutoFeed() []byte {
	nb := e.notebook
	if nb == nil || len(nb.input) == 0 {
		return nil
	}
	row := e.screen.Row(e.cursor.Y)
	width := e.width
	if width > len(row) {
		width = len(row)
	}
	line := dumpRow(row[:width], true)

	triggered := nb.shell && promptOffset(line, e.delim, e.screen.Meta(0)) > 0
	if !triggered {
		for _, p := range nb.prompts {
			if strings.HasPrefix(line, p) {
				triggered = true
				break
			}
		}
	}
	if !triggered {
		return nil
	}
	next := nb.input[0]
	nb.input = nb.input[1:]
	return []byte(next + "\n")
}

// CompleteCell returns the control bytes that clear the in-progress line
// (Ctrl-A Ctrl-K) and, if incomplete is non-empty, request shell
// completion for it (or repeat a TAB press if incomplete is itself a TAB).
func (e *Emulator) CompleteCell(incomplete string) []byte {
	nb := e.notebook
	if nb == nil {
		return nil
	}
	if incomplete != "" {
		nb.screenBuf.ClearBuf()
	}
	e.mainScreen.ZeroAll()
	e.cursor.X = 0

	if incomplete == "\x09" {
		return []byte("\x09")
	}
	data := []byte("\x01\x0b")
	if incomplete != "" {
		data = append(data, incomplete...)
		data = append(data, 0x09)
	}
	return data
}

// stripPromptLines drops scroll entries that open a notebook prompt,
// retaining only the output block that follows each, while rescuing the
// preceding prompt entry when the following block looks like an error.
func stripPromptLines(entries []ScrollEntry, prompts []string) []ScrollEntry {
	var trunc, block []ScrollEntry
	var prevPrompt *ScrollEntry

	hasPrompt := func(line string) bool {
		for _, p := range prompts {
			if strings.HasPrefix(line, p) {
				return true
			}
		}
		return false
	}

	for i := range entries {
		entry := entries[i]
		if hasPrompt(entry.Text) {
			trunc = append(trunc, block...)
			block = nil
			e := entry
			prevPrompt = &e
			continue
		}
		block = append(block, entry)
		if strings.Contains(strings.ToLower(entry.Text), "error") && prevPrompt != nil {
			block = append([]ScrollEntry{*prevPrompt}, block...)
			prevPrompt = nil
		}
	}
	return append(trunc, block...)
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// emitNotebookUpdate mirrors emitUpdate's main-screen-buffer branch for the
// notebook's own ScreenBuf, stripping prompt lines from the appended scroll
// before emitting EventNoteRowUpdate.
func (e *Emulator) emitNotebookUpdate(responseID string, reconnecting bool) {
	nb := e.notebook

	for _, id := range nb.screenBuf.TakeDeleteBlobIDs() {
		e.callback.Emit(Event{TermName: e.termName, Kind: EventDeleteBlob, Args: AlertArgs{Message: id}})
	}

	if reconnecting {
		e.callback.Emit(Event{TermName: e.termName, ResponseID: responseID, Kind: EventNoteActivate, Args: NoteActivateArgs{
			Active: true, Cwd: e.currentDir, AtShell: nb.shell,
		}})
		for _, idx := range nb.order {
			cell := nb.cells[idx]
			e.callback.Emit(Event{TermName: e.termName, ResponseID: responseID, Kind: EventNoteAddCell, Args: NoteAddCellArgs{
				CellIndex: cell.index, CellType: cell.kind, InputLines: cell.input, OutputEntries: cell.output,
			}})
		}
	}

	fullUpdate, updatedRows, appended := nb.screenBuf.Update(e.activeRows, e.width, e.height, e.cursor.X, e.cursor.Y, e.mainScreen, false, nb.prompts)
	appended = stripPromptLines(appended, nb.prompts)

	e.callback.Emit(Event{
		TermName: e.termName, ResponseID: responseID, Kind: EventNoteRowUpdate,
		Args: RowUpdateArgs{
			AltMode: false, FullUpdate: fullUpdate,
			ActiveRows: e.activeRows, Width: e.width, Height: e.height,
			CursorX: e.cursor.X, CursorY: e.cursor.Y,
			UpdatedRows: updatedRows, Appended: appended,
		},
	})
}
