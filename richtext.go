package lineterm

// StyleTag names a rendering attribute carried by a Run. Color channels are
// not tags: they ride along in the run's Style byte so a front-end can
// recover the exact palette index without a lookup table.
type StyleTag string

const (
	TagBold    StyleTag = "bold"
	TagInverse StyleTag = "inverse"
)

// Run is one coalesced span of a row: consecutive cells sharing a style are
// merged into a single (tags, text) pair.
type Run struct {
	Tags  []StyleTag
	Text  string
	Style byte
}

// EncodeRow turns a row of code cells into a run-list, coalescing
// consecutive cells of identical style into one run. A row entirely in
// default style takes the fast path: a single untagged run.
func EncodeRow(row []CodeCell, trim bool) []Run {
	if allDefaultStyle(row) {
		return []Run{{Text: dumpRow(row, trim)}}
	}

	var runs []Run
	var span []rune
	spanStyle := DefaultStyle
	haveSpan := false

	flush := func() {
		if !haveSpan {
			return
		}
		runs = append(runs, Run{Tags: tagsForStyle(spanStyle), Text: string(span), Style: spanStyle})
		span = span[:0]
	}

	for _, c := range row {
		style := c.Style()
		r := c.CodePoint()
		if r < 32 && r != 0 && r != '\n' {
			r = ' '
		}
		if r == 0 {
			r = ' '
		}
		if !haveSpan || style != spanStyle {
			flush()
			spanStyle = style
			haveSpan = true
		}
		span = append(span, r)
	}
	flush()

	if trim {
		runs = trimTrailingSpaceRuns(runs)
	}
	return runs
}

func tagsForStyle(style byte) []StyleTag {
	bg, fg, bold := StyleBits(style)
	var tags []StyleTag
	if bold {
		tags = append(tags, TagBold)
	}
	if isInverseOf(bg, fg, style) {
		tags = append(tags, TagInverse)
	}
	return tags
}

// isInverseOf reports whether style's bg/fg pair looks like the swap of the
// default style (i.e. it was produced by InverseStyle on the default).
func isInverseOf(bg, fg int, style byte) bool {
	dbg, dfg, _ := StyleBits(DefaultStyle)
	return bg == dfg && fg == dbg && style != DefaultStyle
}

func allDefaultStyle(row []CodeCell) bool {
	for _, c := range row {
		if c.Style() != DefaultStyle {
			return false
		}
	}
	return true
}

func dumpRow(row []CodeCell, trim bool) string {
	runes := make([]rune, 0, len(row))
	for _, c := range row {
		r := c.CodePoint()
		if r < 32 && r != 0 && r != '\n' {
			r = ' '
		}
		if r == 0 {
			r = ' '
		}
		runes = append(runes, r)
	}
	s := string(runes)
	if trim {
		return trimTrailingSpace(s)
	}
	return s
}

func trimTrailingSpace(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}

func trimTrailingSpaceRuns(runs []Run) []Run {
	for len(runs) > 0 {
		last := &runs[len(runs)-1]
		trimmed := trimTrailingSpace(last.Text)
		if trimmed == last.Text {
			break
		}
		last.Text = trimmed
		if last.Text != "" {
			break
		}
		runs = runs[:len(runs)-1]
	}
	return runs
}
