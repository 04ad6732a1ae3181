package lineterm

import "testing"

func makeRow(s string, style byte) []CodeCell {
	row := make([]CodeCell, len(s))
	for i, r := range s {
		row[i] = NewCodeCell(r, style)
	}
	return row
}

func TestEncodeRowDefaultStyleIsSingleRun(t *testing.T) {
	row := makeRow("hello", DefaultStyle)
	runs := EncodeRow(row, false)
	if len(runs) != 1 || runs[0].Text != "hello" || len(runs[0].Tags) != 0 {
		t.Errorf("EncodeRow(default style) = %+v, want single untagged run", runs)
	}
}

func TestEncodeRowCoalescesRunsByStyle(t *testing.T) {
	bold := PackStyle(0, 7, true)
	row := append(makeRow("ab", DefaultStyle), makeRow("cd", bold)...)
	runs := EncodeRow(row, false)
	if len(runs) != 2 {
		t.Fatalf("EncodeRow() = %d runs, want 2", len(runs))
	}
	if runs[0].Text != "ab" || runs[1].Text != "cd" {
		t.Errorf("EncodeRow() runs = %+v", runs)
	}
	found := false
	for _, tag := range runs[1].Tags {
		if tag == TagBold {
			found = true
		}
	}
	if !found {
		t.Error("bold span should carry TagBold")
	}
}

func TestEncodeRowTrimTrailingSpaceRuns(t *testing.T) {
	bold := PackStyle(0, 7, true)
	row := append(makeRow("x", bold), makeRow("  ", bold)...)
	runs := EncodeRow(row, true)
	if len(runs) != 1 || runs[0].Text != "x" {
		t.Errorf("EncodeRow(trim) = %+v, want trailing space trimmed", runs)
	}
}

func TestEncodeRowNulCellsRenderAsSpace(t *testing.T) {
	row := []CodeCell{NulCell, NewCodeCell('a', 0)}
	runs := EncodeRow(row, false)
	if runs[0].Text != " a" {
		t.Errorf("EncodeRow() = %q, want leading space for NulCell", runs[0].Text)
	}
}

func TestDumpRowTrimsTrailingSpace(t *testing.T) {
	row := makeRow("hi  ", DefaultStyle)
	if got := dumpRow(row, true); got != "hi" {
		t.Errorf("dumpRow(trim) = %q, want %q", got, "hi")
	}
	if got := dumpRow(row, false); got != "hi  " {
		t.Errorf("dumpRow(no trim) = %q, want %q", got, "hi  ")
	}
}

func TestTagsForStyleInverseDetection(t *testing.T) {
	inv := InverseStyle(DefaultStyle)
	tags := tagsForStyle(inv)
	found := false
	for _, tag := range tags {
		if tag == TagInverse {
			found = true
		}
	}
	if !found {
		t.Errorf("tagsForStyle(inverse of default) = %v, want TagInverse", tags)
	}
}
