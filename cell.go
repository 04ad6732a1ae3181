package lineterm

// CodeCell is a single screen glyph packed into a 32-bit word: a 24-bit code
// point in the low bits and an 8-bit style byte shifted into the high byte.
// Echoing a character is therefore a single OR of a style-only "nul" word
// with a bare code point. The style byte packs a 4-bit background color in
// its high nibble and, in its low nibble, a 3-bit foreground color plus a
// bold bit (0x08). Inverse video is rendered by swapping fg/bg, not by a
// stored flag.
//
// The zero value (NulCell) has a zero code point and zero style and
// represents an empty cell.
type CodeCell uint32

const (
	codePointShift = 0
	codePointMask  = 0x00FFFFFF

	styleShift = 24
	bgShift    = 4
	bgMask     = 0xF
	fgShift    = 0
	fgMask     = 0x7
	boldBit    = 0x08
)

// NulCell is the default empty cell: no code point, default style.
const NulCell CodeCell = 0

// NewCodeCell packs a code point and a style byte into a CodeCell.
func NewCodeCell(r rune, style byte) CodeCell {
	return CodeCell(uint32(r&codePointMask)<<codePointShift | uint32(style)<<styleShift)
}

// CodePoint returns the decoded rune. A zero return means the cell is empty.
func (c CodeCell) CodePoint() rune {
	return rune((uint32(c) >> codePointShift) & codePointMask)
}

// Style returns the packed style byte.
func (c CodeCell) Style() byte {
	return byte(uint32(c) >> styleShift)
}

// WithCodePoint returns a copy of c with the code point replaced.
func (c CodeCell) WithCodePoint(r rune) CodeCell {
	return NewCodeCell(r, c.Style())
}

// WithStyle returns a copy of c with the style byte replaced.
func (c CodeCell) WithStyle(style byte) CodeCell {
	return NewCodeCell(c.CodePoint(), style)
}

// IsEmpty reports whether the cell holds no code point (a retired "NUL" cell).
func (c CodeCell) IsEmpty() bool {
	return c.CodePoint() == 0
}

// StyleBits decodes a style byte into its background color, foreground
// color, and bold flag. Colors are in the 0-7 range (8-color palette).
func StyleBits(style byte) (bg, fg int, bold bool) {
	bg = int(style>>bgShift) & bgMask
	fg = int(style>>fgShift) & fgMask
	bold = style&boldBit != 0
	return bg, fg, bold
}

// PackStyle encodes a background color, foreground color, and bold flag into
// a style byte. Colors outside 0-7 are masked down.
func PackStyle(bg, fg int, bold bool) byte {
	s := byte(bg&bgMask) << bgShift
	s |= byte(fg&fgMask) << fgShift
	if bold {
		s |= boldBit
	}
	return s
}

// InverseStyle swaps the foreground and background colors of a style byte,
// preserving the bold bit. Used to render SGR 7 (inverse video).
func InverseStyle(style byte) byte {
	bg, fg, bold := StyleBits(style)
	return PackStyle(fg, bg, bold)
}

// DefaultStyle is the style byte the echo style accumulator is reset to (on
// Emulator reset and SGR 0): background 0, foreground 7 (white on black in
// the conventional ANSI palette), not bold. Cleared cells are NulCell, whose
// style byte is zero.
const DefaultStyle byte = 7 << fgShift

// StyleWord returns the style-only cell (zero code point) used as the
// accumulator a freshly echoed code point is OR'd onto. Mirrors the
// original's "current_nul" value, which SGR handlers mutate directly and
// echo combines with a bare code point via bitwise OR.
func StyleWord(style byte) CodeCell {
	return NewCodeCell(0, style)
}
