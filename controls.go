package lineterm

import "fmt"

// escBackspace handles BS (0x08): move left one column, no wrap.
func (e *Emulator) escBackspace() {
	e.cursor.X = maxInt(0, e.cursor.X-1)
}

// escTab handles HT (0x09): advance to the next multiple-of-8 column.
func (e *Emulator) escTab() {
	x := e.cursor.X + 8
	e.cursor.X = (x / 8 * 8) % e.width
}

// escNewline handles LF/VT/FF (0x0a/0x0b/0x0c): move down, retiring a row
// if the scroll region is full.
func (e *Emulator) escNewline() {
	e.cursorDown()
}

// escCR handles CR (0x0d): return to column 0, clearing deferred wrap.
func (e *Emulator) escCR() {
	e.cursor.EOL = false
	e.cursor.X = 0
}

// escSaveCursor handles ESC 7 (DECSC).
func (e *Emulator) escSaveCursor() {
	e.saved.X, e.saved.Y = e.cursor.X, e.cursor.Y
}

// escRestoreCursor handles ESC 8 (DECRC).
func (e *Emulator) escRestoreCursor() {
	e.cursor.X, e.cursor.Y = e.saved.X, e.saved.Y
	e.cursor.EOL = false
	if !e.altMode {
		e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
	}
}

// escDA replies with the primary device attributes.
func (e *Emulator) escDA() {
	e.outbuf = append(e.outbuf, "\x1b[?6c"...)
}

// escSDA replies with the secondary device attributes.
func (e *Emulator) escSDA() {
	e.outbuf = append(e.outbuf, "\x1b[>0;0;0c"...)
}

// escTerminalParamReport replies to a Terminal Parameters request.
func (e *Emulator) escTerminalParamReport() {
	e.outbuf = append(e.outbuf, "\x1b[0;0;0;0;0;0;0x"...)
}

// escStatusReport replies to a Device Status Report request.
func (e *Emulator) escStatusReport() {
	e.outbuf = append(e.outbuf, "\x1b[0n"...)
}

// escCursorPositionReport replies with the current cursor position.
func (e *Emulator) escCursorPositionReport() {
	e.outbuf = append(e.outbuf, fmt.Sprintf("\x1b[%d;%dR", e.cursor.Y+1, e.cursor.X+1)...)
}

// escNextLine handles NEL (ESC E): down one row, column 0.
func (e *Emulator) escNextLine() {
	e.cursorDown()
	e.cursor.X = 0
}

// escIndex handles IND (ESC D): down one row, same column.
func (e *Emulator) escIndex() {
	e.cursorDown()
}

// escReverseIndex handles RI (ESC M): up one row, scrolling down the region
// when already at its top.
func (e *Emulator) escReverseIndex() {
	if e.cursor.Y == e.scrollTop {
		e.scrollDownRegion(e.scrollTop, e.scrollBot)
	} else {
		e.cursor.Y = maxInt(e.scrollTop, e.cursor.Y-1)
	}
	if !e.altMode {
		e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
	}
}

// escReset handles RIS (ESC c): full terminal reset.
func (e *Emulator) escReset() {
	e.reset()
	e.screenBuf.ForceFullUpdate()
}
