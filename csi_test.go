package lineterm

import "testing"

func TestParseCSIParams(t *testing.T) {
	if got := parseCSIParams(""); got != nil {
		t.Errorf("parseCSIParams(\"\") = %v, want nil", got)
	}
	got := parseCSIParams("1;22;3")
	want := []int{1, 22, 3}
	if len(got) != len(want) {
		t.Fatalf("parseCSIParams() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseCSIParams()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestParseCSIParamsInvalidReturnsNil(t *testing.T) {
	if got := parseCSIParams("1;x;3"); got != nil {
		t.Errorf("parseCSIParams(bad token) = %v, want nil", got)
	}
}

func TestFirstOrDefault(t *testing.T) {
	if got := firstOr(nil, 5); got != 5 {
		t.Errorf("firstOr(nil, 5) = %d, want 5", got)
	}
	if got := firstOr([]int{0}, 5); got != 5 {
		t.Errorf("firstOr([0], 5) = %d, want 5 (zero treated as default)", got)
	}
	if got := firstOr([]int{3}, 5); got != 3 {
		t.Errorf("firstOr([3], 5) = %d, want 3", got)
	}
}

func TestCSICursorPosition(t *testing.T) {
	e := NewEmulator("tty1", WithSize(20, 10))
	e.Write([]byte("\x1b[3;5H"))
	if e.cursor.Y != 2 || e.cursor.X != 4 {
		t.Errorf("cursor = (%d,%d), want (4,2)", e.cursor.X, e.cursor.Y)
	}
}

func TestCSIEraseLineMode0ClearsFromCursor(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("abcdef\x1b[3D\x1b[K"))
	row := e.mainScreen.Row(0)
	if row[0].CodePoint() != 'a' || row[1].CodePoint() != 'b' || row[2].CodePoint() != 'c' {
		t.Errorf("row prefix should survive erase-to-end, got %q%q%q", row[0].CodePoint(), row[1].CodePoint(), row[2].CodePoint())
	}
	if row[3] != NulCell {
		t.Error("row from cursor onward should be cleared")
	}
}

func TestCSIEraseDisplayMode2ClearsEverything(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("hello\x1b[2J"))
	if e.mainScreen.Peek(0, 0) != NulCell {
		t.Error("ESC [ 2 J should clear the whole screen")
	}
}

func TestCSISGRBoldAndReset(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("\x1b[1mX\x1b[0mY"))
	row := e.mainScreen.Row(0)
	_, _, bold := StyleBits(row[0].Style())
	if !bold {
		t.Error("first char should be bold after ESC [ 1 m")
	}
	if row[1].Style() != DefaultStyle {
		t.Errorf("second char style = %#x after reset, want DefaultStyle", row[1].Style())
	}
}

func TestCSISGRForegroundBackground(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("\x1b[31;44mZ"))
	bg, fg, _ := StyleBits(e.mainScreen.Row(0)[0].Style())
	if fg != 1 || bg != 4 {
		t.Errorf("style bg=%d fg=%d, want bg=4 fg=1", bg, fg)
	}
}

func TestCSIAlternateScreenToggle(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("main text\x1b[?1049h"))
	if !e.altMode {
		t.Fatal("ESC [ ? 1049 h should enter alt mode")
	}
	e.Write([]byte("\x1b[?1049l"))
	if e.altMode {
		t.Error("ESC [ ? 1049 l should exit alt mode")
	}
	if e.mainScreen.Row(0)[0].CodePoint() != 'm' {
		t.Error("main screen content should survive an alt-screen round trip")
	}
}

func TestCSIScrollRegionClampsToHeight(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 5))
	e.Write([]byte("\x1b[2;4r"))
	if e.scrollTop != 1 || e.scrollBot != 3 {
		t.Errorf("scrollTop=%d scrollBot=%d, want 1,3", e.scrollTop, e.scrollBot)
	}
}
