package lineterm

import "testing"

func TestNewCodeCellPacksLowCodePointHighStyle(t *testing.T) {
	c := NewCodeCell('A', 0xAB)
	if got := c.CodePoint(); got != 'A' {
		t.Errorf("CodePoint() = %q, want 'A'", got)
	}
	if got := c.Style(); got != 0xAB {
		t.Errorf("Style() = %#x, want 0xab", got)
	}
	if uint32(c)&0xFF000000 == 0 {
		t.Error("expected style byte stored in the high byte of the packed word")
	}
}

func TestCodeCellEchoIsStyleWordOredWithBareCodePoint(t *testing.T) {
	style := PackStyle(2, 5, true)
	styleWord := StyleWord(style)
	c := CodeCell(uint32(styleWord) | uint32('x'))

	if got := c.CodePoint(); got != 'x' {
		t.Errorf("CodePoint() = %q, want 'x'", got)
	}
	if got := c.Style(); got != style {
		t.Errorf("Style() = %#x, want %#x", got, style)
	}
}

func TestIsEmpty(t *testing.T) {
	if !NulCell.IsEmpty() {
		t.Error("NulCell should be empty")
	}
	if NewCodeCell('a', 0).IsEmpty() {
		t.Error("a cell with a code point should not be empty")
	}
}

func TestWithCodePointPreservesStyle(t *testing.T) {
	c := NewCodeCell('a', 0x42)
	c2 := c.WithCodePoint('b')
	if c2.CodePoint() != 'b' {
		t.Errorf("CodePoint() = %q, want 'b'", c2.CodePoint())
	}
	if c2.Style() != 0x42 {
		t.Errorf("Style() = %#x, want 0x42", c2.Style())
	}
}

func TestPackStyleAndStyleBitsRoundTrip(t *testing.T) {
	tests := []struct {
		bg, fg int
		bold   bool
	}{
		{0, 7, false},
		{7, 0, true},
		{3, 5, true},
	}
	for _, tt := range tests {
		style := PackStyle(tt.bg, tt.fg, tt.bold)
		bg, fg, bold := StyleBits(style)
		if bg != tt.bg || fg != tt.fg || bold != tt.bold {
			t.Errorf("PackStyle(%d,%d,%v) round trip = (%d,%d,%v)", tt.bg, tt.fg, tt.bold, bg, fg, bold)
		}
	}
}

func TestInverseStyleSwapsFgBgPreservesBold(t *testing.T) {
	style := PackStyle(1, 6, true)
	inv := InverseStyle(style)
	bg, fg, bold := StyleBits(inv)
	if bg != 6 || fg != 1 || !bold {
		t.Errorf("InverseStyle swapped wrong: bg=%d fg=%d bold=%v", bg, fg, bold)
	}
}

func TestDefaultStyleIsWhiteOnBlackNotBold(t *testing.T) {
	bg, fg, bold := StyleBits(DefaultStyle)
	if bg != 0 || fg != 7 || bold {
		t.Errorf("DefaultStyle = bg=%d fg=%d bold=%v, want bg=0 fg=7 bold=false", bg, fg, bold)
	}
}
