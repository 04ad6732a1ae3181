package lineterm

import "testing"

func newTestScreenBuf() *ScreenBuf {
	return NewScreenBuf(PromptDelim{Prefix: "\x01", Suffix: "\x02"})
}

func TestScreenBufScrollBufUpPlainRow(t *testing.T) {
	sb := newTestScreenBuf()
	sb.ScrollBufUp("hello", nil, 0, RowParams{})
	if sb.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sb.Len())
	}
	lines := sb.exportLines()
	if lines[0].Text != "hello" || lines[0].EntryIndex != 0 {
		t.Errorf("scroll line = %+v", lines[0])
	}
}

func TestScreenBufScrollBufUpCommandLineBumpsEntryIndex(t *testing.T) {
	sb := newTestScreenBuf()
	line := "\x01user@host\x02 ls -l"
	offset := promptOffset(line, sb.delim, nil)
	meta := &RowMeta{Directory: "/tmp"}
	sb.ScrollBufUp(line, meta, offset, RowParams{})
	if sb.EntryIndex() != 1 {
		t.Errorf("EntryIndex() = %d, want 1", sb.EntryIndex())
	}
	lines := sb.exportLines()
	if lines[0].Directory != "/tmp" {
		t.Errorf("Directory = %q, want /tmp", lines[0].Directory)
	}
}

func TestScreenBufClearLastEntryRemovesGroup(t *testing.T) {
	sb := newTestScreenBuf()
	line := "\x01user@host\x02 ls -l"
	offset := promptOffset(line, sb.delim, nil)
	sb.ScrollBufUp(line, &RowMeta{Directory: "/a"}, offset, RowParams{})
	sb.ScrollBufUp("output line", nil, 0, RowParams{})

	if sb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 before ClearLastEntry", sb.Len())
	}
	sb.ClearLastEntry(nil)
	if sb.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after ClearLastEntry", sb.Len())
	}
	if sb.EntryIndex() != 0 {
		t.Errorf("EntryIndex() = %d, want 0 after ClearLastEntry", sb.EntryIndex())
	}
}

func TestScreenBufClearLastEntryStaleIndexIsNoop(t *testing.T) {
	sb := newTestScreenBuf()
	line := "\x01user@host\x02 ls -l"
	offset := promptOffset(line, sb.delim, nil)
	sb.ScrollBufUp(line, &RowMeta{Directory: "/a"}, offset, RowParams{})

	stale := 0
	sb.ClearLastEntry(&stale)
	if sb.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (stale index should be a no-op)", sb.Len())
	}
}

func TestScreenBufOverwritePageletReplacesInPlace(t *testing.T) {
	sb := newTestScreenBuf()
	opts := PageletOptions{Overwrite: true}
	sb.ScrollBufUp("frame 1", nil, 0, RowParams{Kind: RowPagelet, Options: opts})
	if sb.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sb.Len())
	}
	sb.ScrollBufUp("frame 2", nil, 0, RowParams{Kind: RowPagelet, Options: opts})
	if sb.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after overwrite (in-place replace)", sb.Len())
	}
	lines := sb.exportLines()
	if lines[0].Text != "frame 2" {
		t.Errorf("Text = %q, want frame 2", lines[0].Text)
	}
}

func TestScreenBufEvictOldestGroupBeyondMaxScrollLines(t *testing.T) {
	sb := newTestScreenBuf()
	for i := 0; i < MaxScrollLines+5; i++ {
		sb.ScrollBufUp("line", nil, 0, RowParams{})
	}
	if sb.Len() > MaxScrollLines {
		t.Errorf("Len() = %d, want <= %d after eviction", sb.Len(), MaxScrollLines)
	}
}

func TestScreenBufAppendScrollBumpsScrollCount(t *testing.T) {
	sb := newTestScreenBuf()
	entries := []ScrollEntry{{Text: "a"}, {Text: "b"}}
	sb.AppendScroll(entries)
	if sb.Len() != 2 {
		t.Errorf("Len() = %d, want 2", sb.Len())
	}
	_, _, appended := sb.Update(1, 10, 1, 0, 0, NewScreen(10, 1), false, nil)
	if len(appended) != 2 {
		t.Errorf("Update() appended = %d entries, want 2", len(appended))
	}
}

func TestScreenBufTakeDeleteBlobIDsDrainsQueue(t *testing.T) {
	sb := newTestScreenBuf()
	opts := PageletOptions{Overwrite: true, Blob: "blob-1"}
	sb.ScrollBufUp("frame 1", nil, 0, RowParams{Kind: RowPagelet, Options: opts})
	sb.ScrollBufUp("frame 2", nil, 0, RowParams{Kind: RowPagelet, Options: PageletOptions{Overwrite: true, Blob: "blob-2"}})

	ids := sb.TakeDeleteBlobIDs()
	if len(ids) != 1 || ids[0] != "blob-1" {
		t.Errorf("TakeDeleteBlobIDs() = %v, want [blob-1]", ids)
	}
	if ids2 := sb.TakeDeleteBlobIDs(); ids2 != nil {
		t.Errorf("TakeDeleteBlobIDs() second call = %v, want nil (queue drained)", ids2)
	}
}

func TestScreenBufUpdateFullUpdateOnFirstCall(t *testing.T) {
	sb := newTestScreenBuf()
	screen := NewScreen(10, 2)
	screen.Poke(0, 0, NewCodeCell('a', 0))
	full, rows, _ := sb.Update(2, 10, 2, 0, 0, screen, false, nil)
	if !full {
		t.Error("first Update() should report fullUpdate")
	}
	if len(rows) != 2 {
		t.Errorf("Update() rows = %d, want 2 (full repaint)", len(rows))
	}
}

func TestScreenBufUpdateOnlyReportsChangedRows(t *testing.T) {
	sb := newTestScreenBuf()
	screen := NewScreen(10, 2)
	sb.Update(2, 10, 2, 0, 0, screen, false, nil) // consumes the forced full update

	screen.Poke(1, 0, NewCodeCell('x', 0))
	full, rows, _ := sb.Update(2, 10, 2, 0, 0, screen, false, nil)
	if full {
		t.Error("second Update() should not be a full update")
	}
	if len(rows) != 1 || rows[0].Row != 1 {
		t.Errorf("Update() rows = %+v, want only row 1 changed", rows)
	}
}

func TestScreenBufUpdateCursorMoveReportsBothRows(t *testing.T) {
	sb := newTestScreenBuf()
	screen := NewScreen(10, 3)
	sb.Update(3, 10, 3, 0, 0, screen, false, nil)

	_, rows, _ := sb.Update(3, 10, 3, 0, 2, screen, false, nil)
	rowsSeen := map[int]bool{}
	for _, r := range rows {
		rowsSeen[r.Row] = true
	}
	if !rowsSeen[0] || !rowsSeen[2] {
		t.Errorf("Update() rows = %+v, want both old (0) and new (2) cursor rows reported", rows)
	}
}

func TestScreenBufMarkReconnectEmitsFullScrollHistory(t *testing.T) {
	sb := newTestScreenBuf()
	sb.ScrollBufUp("a", nil, 0, RowParams{})
	sb.ScrollBufUp("b", nil, 0, RowParams{})
	sb.Update(1, 10, 1, 0, 0, NewScreen(10, 1), false, nil)

	sb.MarkReconnect()
	_, _, appended := sb.Update(1, 10, 1, 0, 0, NewScreen(10, 1), false, nil)
	if len(appended) != 2 {
		t.Errorf("Update() after MarkReconnect appended = %d, want 2 (entire history)", len(appended))
	}
}

func TestScreenBufClearBufResetsShadowAndHistory(t *testing.T) {
	sb := newTestScreenBuf()
	sb.ScrollBufUp("a", nil, 0, RowParams{})
	sb.Update(1, 10, 1, 0, 0, NewScreen(10, 1), false, nil)

	sb.ClearBuf()
	if sb.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after ClearBuf", sb.Len())
	}
	full, _, _ := sb.Update(1, 10, 1, 0, 0, NewScreen(10, 1), false, nil)
	if !full {
		t.Error("Update() after ClearBuf should be a full update")
	}
}
