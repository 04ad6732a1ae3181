package lineterm

// RowMeta carries command-prompt semantics for one screen row. A row with
// metadata is understood to be part of a shell prompt line; ContinuationDepth
// 0 means the head of a (possibly multi-line) command, and >0 means a
// wrapped continuation of the previous row's command. A row with no metadata
// is plain output.
type RowMeta struct {
	Directory         string
	ContinuationDepth int
}

// Screen is a fixed-size matrix of styled code points plus per-row metadata.
// Width and height never change without a full clear; callers that need to
// resize replace the Screen entirely (see Emulator.Resize).
type Screen struct {
	width  int
	height int
	cells  []CodeCell // row-major, len == width*height
	meta   []*RowMeta // one slot per row, nil when the row carries no metadata
}

// NewScreen creates a width x height screen filled with NulCell and no row
// metadata.
func NewScreen(width, height int) *Screen {
	return &Screen{
		width:  width,
		height: height,
		cells:  make([]CodeCell, width*height),
		meta:   make([]*RowMeta, height),
	}
}

// Width returns the screen's column count.
func (s *Screen) Width() int { return s.width }

// Height returns the screen's row count.
func (s *Screen) Height() int { return s.height }

func (s *Screen) index(y, x int) int { return y*s.width + x }

// Peek returns the cell at (y, x). Out-of-bounds coordinates return NulCell.
func (s *Screen) Peek(y, x int) CodeCell {
	if y < 0 || y >= s.height || x < 0 || x >= s.width {
		return NulCell
	}
	return s.cells[s.index(y, x)]
}

// Poke sets the cell at (y, x). Out-of-bounds coordinates are a no-op.
func (s *Screen) Poke(y, x int, c CodeCell) {
	if y < 0 || y >= s.height || x < 0 || x >= s.width {
		return
	}
	s.cells[s.index(y, x)] = c
}

// Row returns the raw cell slice for row y, or nil if out of bounds. The
// returned slice aliases the screen's storage; callers must not retain it
// across a resize.
func (s *Screen) Row(y int) []CodeCell {
	if y < 0 || y >= s.height {
		return nil
	}
	start := s.index(y, 0)
	return s.cells[start : start+s.width]
}

// Meta returns the row metadata for row y, or nil if the row carries none or
// y is out of bounds.
func (s *Screen) Meta(y int) *RowMeta {
	if y < 0 || y >= s.height {
		return nil
	}
	return s.meta[y]
}

// SetMeta sets (or clears, with nil) the row metadata for row y.
func (s *Screen) SetMeta(y int, m *RowMeta) {
	if y < 0 || y >= s.height {
		return
	}
	s.meta[y] = m
}

// ZeroRect fills the rectangle [y1,y2) x [x1,x2) with NulCell and clears row
// metadata for any fully-cleared row.
func (s *Screen) ZeroRect(y1, x1, y2, x2 int) {
	y1, y2 = clampRange(y1, y2, s.height)
	x1, x2 = clampRange(x1, x2, s.width)
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			s.Poke(y, x, NulCell)
		}
		if x1 == 0 && x2 == s.width {
			s.meta[y] = nil
		}
	}
}

// ZeroRows fills rows [y1,y2) entirely with NulCell and clears their metadata.
func (s *Screen) ZeroRows(y1, y2 int) {
	s.ZeroRect(y1, 0, y2, s.width)
}

// ZeroAll resets the entire screen to NulCell with no row metadata.
func (s *Screen) ZeroAll() {
	s.ZeroRows(0, s.height)
}

// ScrollUp shifts rows [y1,y2) up by n, discarding the top n rows and
// blanking the bottom n. Rows retired off the top are returned (cells and
// metadata), oldest first, so the caller can hand them to a ScreenBuf before
// they are overwritten.
func (s *Screen) ScrollUp(y1, y2, n int) []RetiredRow {
	y1, y2 = clampRange(y1, y2, s.height)
	if n <= 0 || y1 >= y2 {
		return nil
	}
	if n > y2-y1 {
		n = y2 - y1
	}

	retired := make([]RetiredRow, 0, n)
	for y := y1; y < y1+n; y++ {
		cells := make([]CodeCell, s.width)
		copy(cells, s.Row(y))
		retired = append(retired, RetiredRow{Cells: cells, Meta: s.meta[y]})
	}

	for y := y1; y < y2-n; y++ {
		copy(s.Row(y), s.Row(y+n))
		s.meta[y] = s.meta[y+n]
	}
	s.ZeroRows(y2-n, y2)
	return retired
}

// ScrollDown shifts rows [y1,y2) down by n, discarding the bottom n rows and
// blanking the top n.
func (s *Screen) ScrollDown(y1, y2, n int) {
	y1, y2 = clampRange(y1, y2, s.height)
	if n <= 0 || y1 >= y2 {
		return
	}
	if n > y2-y1 {
		n = y2 - y1
	}
	for y := y2 - 1; y >= y1+n; y-- {
		copy(s.Row(y), s.Row(y-n))
		s.meta[y] = s.meta[y-n]
	}
	s.ZeroRows(y1, y1+n)
}

// RetiredRow is a row evicted from the active screen by ScrollUp, ready to be
// handed to ScreenBuf for retirement into scroll history.
type RetiredRow struct {
	Cells []CodeCell
	Meta  *RowMeta
}

func clampRange(a, b, max int) (int, int) {
	if a < 0 {
		a = 0
	}
	if b > max {
		b = max
	}
	if a > b {
		a = b
	}
	return a, b
}
