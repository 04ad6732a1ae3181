package lineterm

import "testing"

func TestEmulatorWriteEchoesPlainText(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("hi"))
	row := e.mainScreen.Row(0)
	if row[0].CodePoint() != 'h' || row[1].CodePoint() != 'i' {
		t.Errorf("row = %q%q, want hi", row[0].CodePoint(), row[1].CodePoint())
	}
	if e.cursor.X != 2 {
		t.Errorf("cursor.X = %d, want 2", e.cursor.X)
	}
}

func TestEmulatorWriteLineFeedAdvancesRow(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("a\r\nb"))
	if e.cursor.Y != 1 {
		t.Fatalf("cursor.Y = %d, want 1", e.cursor.Y)
	}
	if e.mainScreen.Row(1)[0].CodePoint() != 'b' {
		t.Errorf("row 1 = %q, want b", e.mainScreen.Row(1)[0].CodePoint())
	}
}

func TestEmulatorScrollsWhenPastBottomMargin(t *testing.T) {
	e := NewEmulator("tty1", WithSize(4, 2))
	e.Write([]byte("11\r\n22\r\n33"))
	if e.mainScreen.Row(0)[0].CodePoint() != '2' {
		t.Errorf("row 0 = %q, want 2 after scroll", e.mainScreen.Row(0)[0].CodePoint())
	}
	if e.mainScreen.Row(1)[0].CodePoint() != '3' {
		t.Errorf("row 1 = %q, want 3 after scroll", e.mainScreen.Row(1)[0].CodePoint())
	}
}

func TestEmulatorResetClearsScreenKeepsWidth(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("hello"))
	e.reset()
	if e.mainScreen.Peek(0, 0) != NulCell {
		t.Error("reset should clear the active screen")
	}
	if e.width != 10 || e.height != 3 {
		t.Errorf("reset changed dimensions: %dx%d", e.width, e.height)
	}
}

func TestEmulatorResizeChangesDimensions(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Resize(5, 20, 0, 0, false)
	if e.width != 20 || e.height != 5 {
		t.Errorf("after Resize: %dx%d, want 20x5", e.width, e.height)
	}
}

func TestEmulatorResizeNoopWhenSizeUnchanged(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("hello"))
	e.Resize(3, 10, 0, 0, false)
	if e.mainScreen.Row(0)[0].CodePoint() != 'h' {
		t.Error("Resize with unchanged dimensions should not clear the screen")
	}
}

func TestEmulatorRisEscapeFullyResets(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("hello\x1bc"))
	if e.mainScreen.Peek(0, 0) != NulCell {
		t.Error("ESC c (RIS) should fully reset the screen")
	}
}

func TestEmulatorUTF8MultibyteEcho(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("caf\xc3\xa9")) // "café"
	if got := e.mainScreen.Row(0)[3].CodePoint(); got != 'é' {
		t.Errorf("row[3] = %q, want 'é'", got)
	}
}

func TestEmulatorCursorPositionReportBuffersReply(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.Write([]byte("\x1b[6n"))
	reply := e.PendingReply()
	if len(reply) == 0 {
		t.Error("CPR (ESC [ 6 n) should buffer a reply for PendingReply")
	}
}

func TestEmulatorExpectPromptSetsDirectory(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.ExpectPrompt("/tmp/work")
	if e.CurrentDir() != "/tmp/work" {
		t.Errorf("CurrentDir() = %q, want /tmp/work", e.CurrentDir())
	}
}

func TestEmulatorClearDiscardsScrollHistoryOnly(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3))
	e.screenBuf.ScrollBufUp("old output", nil, 0, RowParams{})
	e.Write([]byte("still here"))
	e.Clear()
	if e.screenBuf.Len() != 0 {
		t.Errorf("screenBuf.Len() = %d, want 0 after Clear", e.screenBuf.Len())
	}
	if e.mainScreen.Row(0)[0].CodePoint() != 's' {
		t.Error("Clear should not touch the active screen")
	}
}

func TestEmulatorPtyReadTrimsBareFirstPrompt(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3), WithDelim("\x01", "\x02"))
	e.PtyRead([]byte("> hello"))
	row := e.mainScreen.Row(0)
	if row[0].CodePoint() != 'h' {
		t.Errorf("PtyRead should trim the bare \"> \" first-prompt echo, got %q", row[0].CodePoint())
	}
}

func TestEmulatorPtyReadOnlyTrimsOnce(t *testing.T) {
	e := NewEmulator("tty1", WithSize(10, 3), WithDelim("\x01", "\x02"))
	e.PtyRead([]byte("> a"))
	e.PtyRead([]byte("> b"))
	row := e.mainScreen.Row(0)
	if row[1].CodePoint() != '>' {
		t.Errorf("second PtyRead call should not be trimmed, got %q", row[1].CodePoint())
	}
}
