package lineterm

import "strconv"

// graphtermScreenCodes are the private-mode parameters that start a pagelet
// capture: 1150 for a shell-reported working directory, 1155 for a pagelet
// payload.
var graphtermScreenCodes = map[int]bool{1150: true, 1155: true}

// alternateScreenCodes are the private-mode parameters that toggle the
// alternate screen buffer.
var alternateScreenCodes = map[int]bool{47: true, 1047: true, 1049: true}

// dispatchCSI parses the numeric parameter list of a matched CSI sequence
// and runs the handler registered for its final byte.
func (e *Emulator) dispatchCSI(params, final string) {
	args := parseCSIParams(params)
	switch final {
	case "@":
		n := firstOr(args, 1)
		for i := 0; i < n; i++ {
			e.csiInsertChar()
		}
	case "A":
		e.csiCursorUp(firstOr(args, 1))
	case "B":
		e.csiCursorDown(firstOr(args, 1))
	case "C", "a":
		e.csiCursorForward(firstOr(args, 1))
	case "D":
		e.csiCursorBackward(firstOr(args, 1))
	case "E":
		e.csiCursorDown(firstOr(args, 1))
		e.cursor.X = 0
		e.cursor.EOL = false
	case "F":
		e.csiCursorUp(firstOr(args, 1))
		e.cursor.X = 0
		e.cursor.EOL = false
	case "G", "`":
		e.cursor.X = minInt(e.width, firstOr(args, 1)) - 1
	case "H", "f":
		row, col := 1, 1
		if len(args) >= 2 {
			row, col = args[0], args[1]
		}
		e.cursor.X = minInt(e.width, col) - 1
		e.cursor.Y = minInt(e.height, row) - 1
		e.cursor.EOL = false
		if !e.altMode {
			e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
		}
	case "J":
		e.csiEraseDisplay(firstOr(args, 0))
	case "K":
		e.csiEraseLine(firstOr(args, 0))
	case "L":
		for i := 0; i < firstOr(args, 1); i++ {
			if e.cursor.Y < e.scrollBot {
				e.scrollDownRegion(e.cursor.Y, e.scrollBot)
			}
		}
	case "M":
		if e.cursor.Y >= e.scrollTop && e.cursor.Y <= e.scrollBot {
			for i := 0; i < firstOr(args, 1); i++ {
				e.scrollUpRegion(e.cursor.Y, e.scrollBot)
			}
		}
	case "P":
		n := firstOr(args, 1)
		row := e.screen.Row(e.cursor.Y)
		rest := append([]CodeCell{}, row[e.cursor.X:]...)
		e.csiEraseLine(0)
		if n < len(rest) {
			copy(row[e.cursor.X:], rest[n:])
		}
	case "X":
		n := firstOr(args, 1)
		e.screen.ZeroRect(e.cursor.Y, e.cursor.X, e.cursor.Y+1, e.cursor.X+n)
	case "c":
		// Send Device Attributes query; no-op reply (handled by literal table
		// for the common forms).
	case "d":
		e.cursor.Y = minInt(e.height, firstOr(args, 1)) - 1
		if !e.altMode {
			e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
		}
	case "e":
		e.csiCursorDown(firstOr(args, 1))
	case "h":
		e.csiSetMode(args)
	case "l":
		e.csiResetMode(args)
	case "m":
		e.csiSGR(args)
	case "n":
		// Device/cursor position reports are handled by the literal table.
	case "r":
		top, bot := 1, e.height
		if len(args) >= 2 {
			top, bot = args[0], args[1]
		}
		e.scrollTop = minInt(e.height-1, top-1)
		e.scrollBot = minInt(e.height-1, bot-1)
		if e.scrollBot < e.scrollTop {
			e.scrollBot = e.scrollTop
		}
	case "s":
		e.escSaveCursor()
	case "u":
		e.escRestoreCursor()
	case "x":
		// Terminal parameters report handled by the literal table.
	}
}

func (e *Emulator) csiInsertChar() {
	row := e.screen.Row(e.cursor.Y)
	end := append([]CodeCell{}, row[e.cursor.X:]...)
	e.screen.ZeroRect(e.cursor.Y, e.cursor.X, e.cursor.Y+1, e.width)
	if len(end) > 0 {
		n := len(end) - 1
		copy(row[e.cursor.X+1:], end[:n])
	}
}

func (e *Emulator) csiCursorUp(n int) {
	e.cursor.Y = maxInt(e.scrollTop, e.cursor.Y-n)
}

func (e *Emulator) csiCursorDown(n int) {
	e.cursor.Y = minInt(e.scrollBot, e.cursor.Y+n)
	if !e.altMode {
		e.activeRows = maxInt(e.cursor.Y+1, e.activeRows)
	}
}

func (e *Emulator) csiCursorForward(n int) {
	e.cursor.X = minInt(e.width-1, e.cursor.X+n)
	e.cursor.EOL = false
}

func (e *Emulator) csiCursorBackward(n int) {
	e.cursor.X = maxInt(0, e.cursor.X-n)
	e.cursor.EOL = false
}

func (e *Emulator) csiEraseDisplay(mode int) {
	switch mode {
	case 0:
		if e.cursor.X == 0 {
			e.screen.ZeroRows(e.cursor.Y, e.height)
		} else {
			e.screen.ZeroRect(e.cursor.Y, e.cursor.X, e.height, e.width)
		}
	case 1:
		if e.cursor.X == e.width-1 {
			e.screen.ZeroRows(0, e.cursor.Y+1)
		} else {
			e.screen.ZeroRect(0, 0, e.cursor.Y+1, e.cursor.X+1)
		}
	case 2:
		e.screen.ZeroAll()
	}
}

func (e *Emulator) csiEraseLine(mode int) {
	switch mode {
	case 0:
		e.screen.ZeroRect(e.cursor.Y, e.cursor.X, e.cursor.Y+1, e.width)
	case 1:
		e.screen.ZeroRect(e.cursor.Y, 0, e.cursor.Y+1, e.cursor.X+1)
	case 2:
		e.screen.ZeroRows(e.cursor.Y, e.cursor.Y+1)
	}
}

// csiSGR applies a Select Graphic Rendition parameter list to the style
// accumulator OR'd onto subsequently echoed code points.
func (e *Emulator) csiSGR(args []int) {
	style := e.style.Style()
	for _, i := range args {
		switch {
		case i == 0 || i == 39 || i == 49 || i == 27:
			style = DefaultStyle
		case i == 1:
			style |= boldBit
		case i == 7:
			style = InverseStyle(DefaultStyle)
		case i >= 30 && i <= 37:
			bg, _, bold := StyleBits(style)
			style = PackStyle(bg, i-30, bold)
		case i >= 40 && i <= 47:
			_, fg, bold := StyleBits(style)
			style = PackStyle(i-40, fg, bold)
		}
	}
	e.style = StyleWord(style)
}

// csiSetMode handles CSI ? Ps h (DECSET): alternate screen entry and
// graphterm pagelet-capture entry.
func (e *Emulator) csiSetMode(args []int) {
	for _, p := range args {
		switch {
		case graphtermScreenCodes[p]:
			if e.altMode {
				continue
			}
			e.beginPageletCapture(p, args)
		case alternateScreenCodes[p]:
			e.altMode = true
			e.screen = e.altScreen
			e.style = StyleWord(DefaultStyle)
			e.screen.ZeroAll()
			e.screenBuf.ForceFullUpdate()
		}
	}
}

// csiResetMode handles CSI ? Ps l (DECRST): alternate screen exit.
// Graphterm codes are reset implicitly when their pagelet capture
// terminates, so there is nothing to do for them here.
func (e *Emulator) csiResetMode(args []int) {
	for _, p := range args {
		if alternateScreenCodes[p] {
			e.altMode = false
			e.screen = e.mainScreen
			e.style = StyleWord(DefaultStyle)
			e.cursor.Y = maxInt(0, e.activeRows-1)
			e.cursor.X = 0
		}
	}
}

func parseCSIParams(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			tok := s[start:i]
			n, err := strconv.Atoi(tok)
			if err != nil {
				return nil
			}
			out = append(out, n)
			start = i + 1
		}
	}
	return out
}

func firstOr(args []int, def int) int {
	if len(args) == 0 || args[0] == 0 {
		return def
	}
	return args[0]
}
