package lineterm

// ScreenBuf maintains the shadow of the last observed screen(s) and the
// bounded scroll history. One ScreenBuf backs the main scroll buffer of an
// Emulator; notebook mode keeps a second, separate instance (note_screen_buf
// in the original) so retirement during cell execution never touches the
// shell's own history.
type ScreenBuf struct {
	delim PromptDelim

	bufNote            int
	entryIndex         int
	currentScrollCount int
	lastScrollCount    int
	scrollLines        []ScrollEntry

	lastBlobID    string
	deleteBlobIDs []string

	fullUpdate  bool
	reconnect   bool
	clearedLast bool
	clearedDir  *string

	// shadow state for delta computation
	haveShadow    bool
	shadowWidth   int
	shadowHeight  int
	shadowCursorX int
	shadowCursorY int
	shadowMain    *Screen
	shadowAlt     *Screen
}

// NewScreenBuf creates an empty ScreenBuf. delim is the prompt delimiter
// pair used to detect and mark up command lines at retirement time.
func NewScreenBuf(delim PromptDelim) *ScreenBuf {
	sb := &ScreenBuf{delim: delim}
	sb.ClearBuf()
	return sb
}

// SetBufNote sets the discriminator used to namespace pagelet ids. The main
// buffer keeps 0; every notebook activation gives its new ScreenBuf 1, so
// notebook pagelet ids differ from the main buffer's but repeat from one
// activation to the next.
func (sb *ScreenBuf) SetBufNote(n int) {
	sb.bufNote = n
}

// ClearBuf discards all scroll history and forces the next Update to be a
// full update. Used by Emulator.Clear and by the notebook's own ScreenBuf
// when a cell is left, executed or completed.
func (sb *ScreenBuf) ClearBuf() {
	sb.lastScrollCount = sb.currentScrollCount
	sb.scrollLines = nil
	sb.lastBlobID = ""
	sb.deleteBlobIDs = nil
	sb.fullUpdate = true
	sb.haveShadow = false
}

// MarkReconnect forces the next Update call to behave as a reconnect: the
// entire scroll buffer is (re-)emitted instead of only the delta since
// lastScrollCount, and the observed-screen shadow is not advanced.
func (sb *ScreenBuf) MarkReconnect() {
	sb.reconnect = true
}

// ForceFullUpdate forces the next Update call to emit every active row,
// regardless of whether it differs from the shadow. Called on RIS (ESC c)
// and on alternate-screen entry; a change of dimensions is detected by
// Update itself.
func (sb *ScreenBuf) ForceFullUpdate() {
	sb.fullUpdate = true
}

// EntryIndex returns the current (monotonic, except for ClearLastEntry)
// entry index counter.
func (sb *ScreenBuf) EntryIndex() int { return sb.entryIndex }

// Len returns the number of retained scroll lines.
func (sb *ScreenBuf) Len() int { return len(sb.scrollLines) }

// exportLines returns a copy of the retained scroll lines, safe for a
// caller to retain independently of future mutation (e.g. ClearBuf).
func (sb *ScreenBuf) exportLines() []ScrollEntry {
	out := make([]ScrollEntry, len(sb.scrollLines))
	copy(out, sb.scrollLines)
	return out
}

// ClearLastEntry removes every scroll line belonging to the
// highest-entry-index group, decrementing the entry counter. If
// lastEntryIndex is non-nil and does not match the group being removed, this
// is a no-op (a stale caller lost a race with a newer command).
func (sb *ScreenBuf) ClearLastEntry(lastEntryIndex *int) {
	if len(sb.scrollLines) == 0 || sb.entryIndex <= 0 {
		return
	}
	n := len(sb.scrollLines) - 1
	entryIndex := sb.scrollLines[n].EntryIndex
	if sb.entryIndex != entryIndex {
		return
	}
	if lastEntryIndex != nil && *lastEntryIndex != entryIndex {
		return
	}
	sb.entryIndex--
	for n > 0 && sb.scrollLines[n-1].EntryIndex == entryIndex {
		n--
	}
	sb.currentScrollCount -= len(sb.scrollLines) - n
	sb.clearedLast = true
	if sb.clearedDir == nil {
		dir := sb.scrollLines[n].Directory
		sb.clearedDir = &dir
	}

	for _, e := range sb.scrollLines[n:] {
		if e.Params.Options.Blob != "" {
			sb.deleteBlobIDs = append(sb.deleteBlobIDs, e.Params.Options.Blob)
		}
	}

	sb.scrollLines = sb.scrollLines[:n]
	if sb.lastScrollCount > sb.currentScrollCount {
		sb.lastScrollCount = sb.currentScrollCount
	}
}

// blankLastEntry replaces the previous entry (an edit_file or one-shot
// form pagelet) with a blank pagelet, matching the original's
// "edit/form is one-shot" rule: once shown, scrolling past it leaves a
// placeholder rather than a stale editable pagelet.
func (sb *ScreenBuf) blankLastEntry() {
	if len(sb.scrollLines) == 0 {
		return
	}
	last := &sb.scrollLines[len(sb.scrollLines)-1]
	last.Params = RowParams{
		Kind: RowPagelet,
		Options: PageletOptions{
			PageletID: pageletID(sb.bufNote, sb.currentScrollCount),
		},
	}
	last.Text = ""
	last.Markup = ""
	if sb.currentScrollCount > 0 && sb.lastScrollCount >= sb.currentScrollCount {
		sb.lastScrollCount = sb.currentScrollCount - 1
	}
}

// ScrollBufUp retires one line into the scroll history. offset > 0 marks a
// prompt (command) line; otherwise params.Kind distinguishes plain output
// from a pagelet/edit_file row. For pagelet rows whose options request
// Overwrite and whose pagelet id matches the previous entry, the previous
// entry is replaced in place and lastScrollCount is rewound so the next
// delta re-emits it.
func (sb *ScreenBuf) ScrollBufUp(line string, meta *RowMeta, offset int, params RowParams, markup ...string) {
	currentDir := ""
	overwrite := false
	m := ""
	if len(markup) > 0 {
		m = markup[0]
	}

	if offset > 0 {
		sb.entryIndex++
		if meta != nil {
			currentDir = meta.Directory
		}
		preOffset := len(sb.delim.Prefix)
		m = commandMarkup(sb.entryIndex, currentDir, preOffset, offset, line)
		if !sb.clearedLast {
			sb.clearedDir = nil
		}
		sb.clearedLast = false
	} else if params.Kind != RowPlain {
		overwrite = params.Options.Overwrite
		newBlobID := params.Options.Blob
		if overwrite && sb.lastBlobID != "" {
			sb.deleteBlobIDs = append(sb.deleteBlobIDs, sb.lastBlobID)
		}
		sb.lastBlobID = newBlobID
	}

	curPageletID := pageletID(sb.bufNote, sb.currentScrollCount)

	var prevPageletOpts *PageletOptions
	prevEditFile := false
	if len(sb.scrollLines) > 0 {
		prev := &sb.scrollLines[len(sb.scrollLines)-1]
		if prev.Params.Kind == RowPagelet {
			prevPageletOpts = &prev.Params.Options
		}
		prevEditFile = prev.Params.Kind == RowEditFile
	}

	if overwrite && prevPageletOpts != nil && prevPageletOpts.PageletID == curPageletID {
		params.Options.PageletID = curPageletID
		last := &sb.scrollLines[len(sb.scrollLines)-1]
		last.Directory = currentDir
		last.Params = params
		last.Text = line
		last.Markup = m
		if sb.currentScrollCount > 0 && sb.lastScrollCount >= sb.currentScrollCount {
			sb.lastScrollCount = sb.currentScrollCount - 1
		}
		return
	}

	if prevEditFile || (prevPageletOpts != nil && prevPageletOpts.NotePrompt) {
		sb.blankLastEntry()
	}

	sb.currentScrollCount++
	params.Options.PageletID = pageletID(sb.bufNote, sb.currentScrollCount)
	sb.scrollLines = append(sb.scrollLines, ScrollEntry{
		EntryIndex:   sb.entryIndex,
		PromptOffset: offset,
		Directory:    currentDir,
		Params:       params,
		Text:         line,
		Markup:       m,
	})

	if len(sb.scrollLines) > MaxScrollLines {
		sb.evictOldestGroup()
	}
}

// evictOldestGroup drops every scroll line sharing the smallest entry index,
// collecting any blob ids they owned for deletion.
func (sb *ScreenBuf) evictOldestGroup() {
	oldestIndex := sb.scrollLines[0].EntryIndex
	n := 0
	for n < len(sb.scrollLines) && sb.scrollLines[n].EntryIndex == oldestIndex {
		if sb.scrollLines[n].Params.Options.Blob != "" {
			sb.deleteBlobIDs = append(sb.deleteBlobIDs, sb.scrollLines[n].Params.Options.Blob)
		}
		n++
	}
	sb.scrollLines = sb.scrollLines[n:]
}

// AppendScroll appends pre-built entries directly to the history, bumping
// currentScrollCount accordingly. Used by notebook deactivation to flush a
// cell's accumulated output back into the main buffer.
func (sb *ScreenBuf) AppendScroll(entries []ScrollEntry) {
	sb.currentScrollCount += len(entries)
	sb.scrollLines = append(sb.scrollLines, entries...)
}

// TakeDeleteBlobIDs returns and clears the pending blob-deletion queue.
func (sb *ScreenBuf) TakeDeleteBlobIDs() []string {
	ids := sb.deleteBlobIDs
	sb.deleteBlobIDs = nil
	return ids
}

// Update computes the row delta and scroll append since the last Update
// call: which visible rows changed (or sit under the cursor), and which
// scroll entries were appended. notePrompts is not consulted: rows that open
// with a notebook prompt are reported like any other row.
func (sb *ScreenBuf) Update(activeRows, width, height, cursorX, cursorY int, screen *Screen, alt bool, notePrompts []string) (fullUpdate bool, updatedRows []UpdatedRow, appended []ScrollEntry) {
	reconnecting := sb.reconnect
	fullUpdate = sb.fullUpdate || reconnecting

	if !reconnecting && (width != sb.shadowWidth || height != sb.shadowHeight) {
		sb.shadowWidth = width
		sb.shadowHeight = height
		fullUpdate = true
	}

	var oldScreen *Screen
	rowCount := activeRows
	if alt {
		oldScreen = sb.shadowAlt
		rowCount = height
		if oldScreen == nil {
			fullUpdate = true
		}
	} else {
		oldScreen = sb.shadowMain
		if oldScreen == nil && sb.haveShadow {
			fullUpdate = true
		}
	}

	cursorMoved := cursorX != sb.shadowCursorX || cursorY != sb.shadowCursorY

	for y := 0; y < rowCount; y++ {
		newRow := screen.Row(y)
		changed := fullUpdate || oldScreen == nil
		if !changed {
			changed = !rowEqual(newRow, oldScreen.Row(y))
		}
		if changed || (cursorMoved && (cursorY == y || sb.shadowCursorY == y)) {
			offset := promptOffset(dumpRow(newRow, false), sb.delim, screen.Meta(y))
			updatedRows = append(updatedRows, UpdatedRow{
				Row:          y,
				PromptOffset: offset,
				Runs:         EncodeRow(newRow, true),
			})
		}
	}

	if reconnecting {
		appended = append(appended, sb.scrollLines...)
	} else if sb.lastScrollCount < sb.currentScrollCount {
		start := len(sb.scrollLines) - (sb.currentScrollCount - sb.lastScrollCount)
		if start < 0 {
			start = 0
		}
		appended = append(appended, sb.scrollLines[start:]...)
	}

	if !reconnecting {
		sb.lastScrollCount = sb.currentScrollCount
		sb.fullUpdate = false
		sb.shadowCursorX = cursorX
		sb.shadowCursorY = cursorY
		if alt {
			sb.shadowAlt = copyScreen(screen)
		} else {
			sb.shadowMain = copyScreen(screen)
			sb.haveShadow = true
		}
	}
	sb.reconnect = false

	return fullUpdate, updatedRows, appended
}

func rowEqual(a, b []CodeCell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func copyScreen(s *Screen) *Screen {
	cp := NewScreen(s.Width(), s.Height())
	copy(cp.cells, s.cells)
	copy(cp.meta, s.meta)
	return cp
}
