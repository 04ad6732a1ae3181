package lineterm

import (
	"bytes"
	"strings"
)

// Emulator is a single line-oriented pseudo-terminal: it has no display,
// only a Screen it mutates in response to bytes written to it, a bounded
// ScreenBuf of retired rows, and a Callback that receives deltas. One
// Emulator corresponds to one pty; a Multiplexer owns many.
type Emulator struct {
	termName string
	cookie   string
	delim    PromptDelim
	callback Callback

	width, height       int
	winWidth, winHeight int

	mainScreen *Screen
	altScreen  *Screen
	screen     *Screen
	altMode    bool

	cursor    Cursor
	saved     SavedCursor
	scrollTop int
	scrollBot int

	activeRows  int
	currentDir  string
	currentMeta *RowMeta
	commandPath string

	style CodeCell // "current_nul": style-only accumulator OR'd with echoed code points

	screenBuf *ScreenBuf

	pending  []byte // buffered escape/control sequence awaiting a final byte
	echoBuf  []byte // partial UTF-8 sequence awaiting continuation bytes
	echoWant int

	outbuf []byte // pending device-attribute / status-report reply

	pagelet *pageletCapture

	needsUpdate     bool
	trimFirstPrompt bool

	notebook *notebookState
}

// Option configures an Emulator at construction time.
type Option func(*Emulator)

// WithDelim sets the prompt delimiter pair used to detect command lines.
func WithDelim(prefix, suffix string) Option {
	return func(e *Emulator) { e.delim = PromptDelim{Prefix: prefix, Suffix: suffix} }
}

// WithCookie sets the pagelet validation cookie a child shell must echo
// back in its private-mode escape to have its pagelets trusted.
func WithCookie(cookie string) Option {
	return func(e *Emulator) { e.cookie = cookie }
}

// WithCallback sets the event sink. Defaults to NoopCallback.
func WithCallback(cb Callback) Option {
	return func(e *Emulator) { e.callback = cb }
}

// WithSize sets the initial screen dimensions. Defaults to
// DefaultWidth x DefaultHeight.
func WithSize(width, height int) Option {
	return func(e *Emulator) { e.width, e.height = width, height }
}

// NewEmulator constructs an Emulator ready to accept Write calls.
func NewEmulator(termName string, opts ...Option) *Emulator {
	e := &Emulator{
		termName: termName,
		width:    DefaultWidth,
		height:   DefaultHeight,
		callback: NoopCallback{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.screenBuf = NewScreenBuf(e.delim)
	e.trimFirstPrompt = e.delim.Prefix != "" || e.delim.Suffix != ""
	e.reset()
	return e
}

// reset reinitializes screen state (both buffers, cursor, scroll region,
// pagelet/escape accumulators) without touching scroll history.
func (e *Emulator) reset() {
	e.mainScreen = NewScreen(e.width, e.height)
	e.altScreen = NewScreen(e.width, e.height)
	e.scrollTop = 0
	if e.notebook != nil {
		e.scrollBot = 0
	} else {
		e.scrollBot = e.height - 1
	}
	e.cursor = Cursor{}
	e.saved = SavedCursor{}
	e.style = StyleWord(DefaultStyle)
	e.pending = nil
	e.echoBuf = nil
	e.echoWant = 0
	e.outbuf = nil
	e.activeRows = 0
	e.currentDir = ""
	e.currentMeta = nil
	e.pagelet = nil
	e.needsUpdate = true
	e.screen = e.mainScreen
	if e.altMode {
		e.screen = e.altScreen
	}
}

// Resize changes the emulator's dimensions. If the size actually changes (or
// force is set), the screen is cleared and reset, preserving the single
// active command line (if any) so an in-progress prompt survives a resize.
func (e *Emulator) Resize(height, width, winHeight, winWidth int, force bool) {
	resetFlag := force || e.width != width || e.height != height
	e.winWidth, e.winHeight = winWidth, winHeight
	if resetFlag {
		e.scrollScreen(-1)

		minWidth := width
		if e.width < minWidth {
			minWidth = e.width
		}
		var savedLine []CodeCell
		var savedMeta *RowMeta
		savedX := 0
		haveSaved := false
		if e.activeRows > 0 {
			row := e.mainScreen.Row(0)[:minWidth]
			line := dumpRow(row, false)
			if promptOffset(line, e.delim, e.mainScreen.Meta(0)) > 0 {
				savedLine = make([]CodeCell, minWidth)
				copy(savedLine, row)
				savedMeta = e.mainScreen.Meta(0)
				savedX = len(dumpRow(row, true))
				haveSaved = true
			}
		}

		e.width, e.height = width, height
		e.reset()

		if haveSaved {
			e.activeRows = 1
			e.cursor.X = savedX
			e.mainScreen.SetMeta(0, savedMeta)
			copy(e.mainScreen.Row(0), savedLine)
		}
	}
	e.screen = e.mainScreen
	if e.altMode {
		e.screen = e.altScreen
	}
	e.needsUpdate = true
}

// echoByte feeds one raw byte through UTF-8 reassembly and, once a full code
// point is available, writes it to the screen and advances the cursor.
func (e *Emulator) echoByte(b byte) {
	if b&0x80 != 0 {
		if b&0x40 != 0 {
			e.echoBuf = []byte{b}
			switch {
			case b&0x20 == 0:
				e.echoWant = 2
			case b&0x10 == 0:
				e.echoWant = 3
			case b&0x08 == 0:
				e.echoWant = 4
			default:
				e.echoBuf = nil
				e.echoWant = 0
			}
			return
		}
		if len(e.echoBuf) == 0 {
			return
		}
		e.echoBuf = append(e.echoBuf, b)
		if len(e.echoBuf) < e.echoWant {
			return
		}
		r := decodeUTF8(e.echoBuf)
		e.echoBuf = nil
		e.echoWant = 0
		e.writeRune(r)
		return
	}
	e.writeRune(rune(b))
}

func decodeUTF8(buf []byte) rune {
	for _, r := range string(buf) {
		return r
	}
	return 0xFFFD
}

func (e *Emulator) writeRune(r rune) {
	if e.cursor.EOL {
		e.cursorDown()
		e.cursor.X = 0
	}
	e.screen.Poke(e.cursor.Y, e.cursor.X, e.style|CodeCell(uint32(r)&codePointMask))
	e.cursorRight()
	if !e.altMode {
		e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
	}
}

func (e *Emulator) cursorRight() {
	next := e.cursor.X + 1
	if next >= e.width {
		e.cursor.EOL = true
	} else {
		e.cursor.X = next
	}
}

// cursorDown advances the cursor one row, scrolling the active region (and
// retiring the top row to scroll history) when it falls past scrollBot.
func (e *Emulator) cursorDown() {
	if e.cursor.Y < e.scrollTop || e.cursor.Y > e.scrollBot {
		return
	}
	e.cursor.EOL = false
	e.parseCommand()
	if e.cursor.Y+1 > e.scrollBot {
		e.retireRow(e.scrollTop)
		e.scrollUpRegion(e.scrollTop, e.scrollBot)
		e.cursor.Y = e.scrollBot
	} else {
		e.cursor.Y++
	}
	if !e.altMode {
		e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
		if e.currentMeta != nil && e.screen.Meta(e.activeRows-1) == nil {
			e.currentMeta = &RowMeta{Directory: e.currentMeta.Directory, ContinuationDepth: e.currentMeta.ContinuationDepth + 1}
			e.screen.SetMeta(e.activeRows-1, e.currentMeta)
		}
	}
}

// retireRow moves row y of the active screen into the appropriate scroll
// buffer (notebook's, if active, else the main one).
func (e *Emulator) retireRow(y int) {
	row := e.screen.Row(y)
	meta := e.screen.Meta(y)
	line := dumpRow(row, true)
	delim := e.delim
	if e.notebook != nil {
		delim = PromptDelim{}
	}
	offset := promptOffset(dumpRow(row, false), delim, meta)
	if e.notebook != nil {
		e.notebook.screenBuf.ScrollBufUp(line, meta, offset, RowParams{})
	} else {
		e.screenBuf.ScrollBufUp(line, meta, offset, RowParams{})
	}
}

func (e *Emulator) scrollUpRegion(top, bot int) {
	e.screen.ScrollUp(top, bot+1, 1)
}

func (e *Emulator) scrollDownRegion(top, bot int) {
	e.screen.ScrollDown(top, bot+1, 1)
}

// scrollScreen retires active rows above the last command prompt (or, if
// scrollRows >= 0, exactly that many rows) into scroll history and shifts
// the remainder to the top of the screen. Called before a resize/notebook
// toggle and periodically by Update for the main screen.
func (e *Emulator) scrollScreen(scrollRows int) {
	delim := e.delim
	if e.notebook != nil {
		delim = PromptDelim{}
	}
	if scrollRows < 0 {
		scrollRows = 0
		for j := e.activeRows - 1; j >= 0; j-- {
			line := dumpRow(e.mainScreen.Row(j), false)
			if promptOffset(line, delim, e.mainScreen.Meta(j)) > 0 {
				scrollRows = j
				break
			}
		}
	}
	if scrollRows == 0 {
		return
	}

	y := 0
	for y < scrollRows {
		row := append([]CodeCell{}, e.mainScreen.Row(y)...)
		meta := e.mainScreen.Meta(y)
		offset := promptOffset(dumpRow(row, false), delim, meta)
		if meta != nil {
			for y < scrollRows-1 {
				nextMeta := e.mainScreen.Meta(y + 1)
				if nextMeta == nil || nextMeta.ContinuationDepth == 0 {
					break
				}
				y++
				row = append(row, e.mainScreen.Row(y)...)
			}
		}
		line := dumpRow(row, true)
		if e.notebook != nil {
			e.notebook.screenBuf.ScrollBufUp(line, meta, offset, RowParams{})
		} else {
			e.screenBuf.ScrollBufUp(line, meta, offset, RowParams{})
		}
		y++
	}

	if scrollRows < e.activeRows {
		for row := 0; row < e.activeRows-scrollRows; row++ {
			copy(e.mainScreen.Row(row), e.mainScreen.Row(row+scrollRows))
			e.mainScreen.SetMeta(row, e.mainScreen.Meta(row+scrollRows))
		}
	}
	e.activeRows -= scrollRows
	e.mainScreen.ZeroRows(e.activeRows, e.height)
	e.cursor.Y = maxInt(0, e.cursor.Y-scrollRows)
	if e.activeRows == 0 {
		e.cursor.X = 0
		e.cursor.EOL = false
	}
}

// ExpectPrompt marks the current cursor row as the head of a new command
// line in directory, called when the shell reports its working directory
// via the 1150 private-mode escape.
func (e *Emulator) ExpectPrompt(directory string) {
	e.commandPath = ""
	e.currentDir = directory
	if e.activeRows == 0 || e.cursor.Y+1 == e.activeRows {
		e.currentMeta = &RowMeta{Directory: directory}
		e.screen.SetMeta(e.cursor.Y, e.currentMeta)
	}
}

// Enter is called when a CR or LF byte is written to the pty by the local
// caller (not echoed from the child), marking the in-progress command line
// complete.
func (e *Emulator) Enter() {
	e.parseCommand()
	e.currentMeta = nil
}

// parseCommand extracts the leading token of the in-progress command line
// (if any) as commandPath, used to pick a notebook prompt set on
// activation.
func (e *Emulator) parseCommand() {
	if e.altMode || e.currentMeta == nil || e.currentMeta.ContinuationDepth != 0 {
		return
	}
	line := dumpRow(e.screen.Row(e.cursor.Y), true)
	offset := promptOffset(line, e.delim, e.currentMeta)
	args, err := shplit(line[minInt(offset, len(line)):])
	if err != nil || len(args) == 0 {
		return
	}
	e.commandPath = strings.TrimSpace(args[0])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Update recomputes the row delta and emits a RowUpdate (and, if notebook
// mode is active, a NoteRowUpdate) event. Call periodically (driven by the
// Multiplexer's UpdateInterval ticker) after a burst of Write calls.
func (e *Emulator) Update() {
	e.needsUpdate = false
	if !e.altMode {
		e.scrollScreen(-1)
	}
	e.emitUpdate("")
}

// Reconnect forces a full repaint: every active row plus the entire scroll
// buffer is re-emitted, for a client that just (re)attached.
func (e *Emulator) Reconnect(responseID string) {
	e.screenBuf.MarkReconnect()
	if e.notebook != nil {
		e.notebook.screenBuf.MarkReconnect()
	}
	e.emitUpdate(responseID)
}

func (e *Emulator) emitUpdate(responseID string) {
	reconnecting := responseID != ""

	if e.notebook == nil {
		for _, id := range e.screenBuf.TakeDeleteBlobIDs() {
			e.callback.Emit(Event{TermName: e.termName, Kind: EventDeleteBlob, Args: AlertArgs{Message: id}})
		}
	}

	activeRows, cursorX, cursorY := e.activeRows, e.cursor.X, e.cursor.Y
	if e.notebook != nil {
		activeRows, cursorX, cursorY = 0, 0, 0
	}

	fullUpdate, updatedRows, appended := e.screenBuf.Update(activeRows, e.width, e.height, cursorX, cursorY, e.mainScreen, e.altMode, nil)
	if e.notebook == nil || fullUpdate || reconnecting {
		e.callback.Emit(Event{
			TermName:   e.termName,
			ResponseID: responseID,
			Kind:       EventRowUpdate,
			Args: RowUpdateArgs{
				AltMode: e.altMode, FullUpdate: fullUpdate,
				ActiveRows: e.activeRows, Width: e.width, Height: e.height,
				CursorX: e.cursor.X, CursorY: e.cursor.Y,
				UpdatedRows: updatedRows, Appended: appended,
			},
		})
	}

	if e.notebook != nil {
		e.emitNotebookUpdate(responseID, reconnecting)
	}
}

// PendingReply drains and returns any buffered device-attribute / status
// report bytes produced while processing the last Write, for the caller to
// write back to the pty.
func (e *Emulator) PendingReply() []byte {
	r := e.outbuf
	e.outbuf = nil
	return r
}

// PtyRead feeds one read's worth of pty output through the emulator and
// returns the bytes the caller should write back to the pty: any buffered
// device-attribute/status-report reply, followed by the next buffered
// notebook cell input line once the shell's prompt reappears on the cursor
// row. It also applies the one-shot first-prompt trim (some shells echo a
// bare "> " before PS1 takes effect on the very first prompt).
func (e *Emulator) PtyRead(data []byte) []byte {
	if e.trimFirstPrompt {
		e.trimFirstPrompt = false
		switch {
		case bytes.HasPrefix(data, []byte("> ")):
			data = data[2:]
		case bytes.HasPrefix(data, []byte("\x1b[K> ")):
			data = data[5:]
		}
	}
	e.Write(data)
	reply := e.PendingReply()
	if feed := e.notebookAutoFeed(); feed != nil {
		reply = append(reply, feed...)
	}
	return reply
}

// CommandPath returns the leading token of the most recently completed
// command line, used to select a notebook prompt set heuristically.
func (e *Emulator) CommandPath() string { return e.commandPath }

// Cookie returns the pagelet validation cookie this Emulator was constructed
// with (see WithCookie).
func (e *Emulator) Cookie() string { return e.cookie }

// CurrentDir returns the working directory last reported via ExpectPrompt.
func (e *Emulator) CurrentDir() string { return e.currentDir }

// ActiveRows returns the number of rows of the main screen currently in use.
func (e *Emulator) ActiveRows() int { return e.activeRows }

// NeedsUpdate reports whether bytes have been written since the last Update
// call, for a run loop deciding whether this terminal is due a refresh.
func (e *Emulator) NeedsUpdate() bool { return e.needsUpdate }

// ClearLastEntry removes the scroll entries belonging to the most recently
// retired command, guarded by lastEntryIndex if non-nil.
func (e *Emulator) ClearLastEntry(lastEntryIndex *int) {
	e.screenBuf.ClearLastEntry(lastEntryIndex)
}

// Clear discards the scroll history (but not the active screen).
func (e *Emulator) Clear() {
	e.screenBuf.ClearBuf()
	e.needsUpdate = true
}
