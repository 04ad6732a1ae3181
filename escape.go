package lineterm

import "regexp"

// controlHandler runs a single-byte control-character action. It receives
// the Emulator it mutates.
type controlHandler func(e *Emulator)

// csiRe matches a CSI final sequence once fully buffered: optional '?',
// ';'-separated numeric parameters, and a recognized final byte.
var csiRe = regexp.MustCompile(`^\x1b\[\??([0-9;]*)([@ABCDEFGHJKLMPXacdefghlmnqrstu` + "`" + `])$`)

// oscRe matches an OSC sequence terminated by BEL. The module does not act
// on OSC payloads (window title, etc.) but must consume them without
// falling through to echo.
var oscRe = regexp.MustCompile(`^\x1b\][^\x07]*\x07$`)

// literalEscapes are complete escape/control sequences matched by exact
// buffer content rather than by regexp. Entries mapping to nil are consumed
// and ignored (recognized but inert sequences).
var literalEscapes = map[string]controlHandler{
	"\x05":     (*Emulator).escDA,
	"\x08":     (*Emulator).escBackspace,
	"\x09":     (*Emulator).escTab,
	"\x0a":     (*Emulator).escNewline,
	"\x0b":     (*Emulator).escNewline,
	"\x0c":     (*Emulator).escNewline,
	"\x0d":     (*Emulator).escCR,
	"\x0e":     nil,
	"\x0f":     nil,
	"\x1b#8":   nil,
	"\x1b=":    nil,
	"\x1b>":    nil,
	"\x1b(0":   nil,
	"\x1b(A":   nil,
	"\x1b(B":   nil,
	"\x1b[c":   (*Emulator).escDA,
	"\x1b[0c":  (*Emulator).escDA,
	"\x1b[>c":  (*Emulator).escSDA,
	"\x1b[>0c": (*Emulator).escSDA,
	"\x1b[5n":  (*Emulator).escStatusReport,
	"\x1b[6n":  (*Emulator).escCursorPositionReport,
	"\x1b[x":   (*Emulator).escTerminalParamReport,
	"\x1b]R":   nil,
	"\x1b7":    (*Emulator).escSaveCursor,
	"\x1b8":    (*Emulator).escRestoreCursor,
	"\x1bD":    (*Emulator).escIndex,
	"\x1bE":    (*Emulator).escNextLine,
	"\x1bH":    nil,
	"\x1bM":    (*Emulator).escReverseIndex,
	"\x1bN":    nil,
	"\x1bO":    nil,
	"\x1bZ":    (*Emulator).escDA,
	"\x1ba":    nil,
	"\x1bc":    (*Emulator).escReset,
	"\x1bn":    nil,
	"\x1bo":    nil,
}

// seedControls are the single-byte control characters that always start a
// pending sequence. ESC (0x1b) also starts one and is checked separately in
// Write.
var seedControls = map[byte]bool{
	0x05: true, 0x08: true, 0x09: true, 0x0a: true, 0x0b: true, 0x0c: true, 0x0d: true,
	0x0e: true, 0x0f: true,
}

// Write feeds raw pty output (or any terminal byte stream) into the
// emulator, updating screen state, retiring rows to scroll history, and
// capturing/dispatching pagelets. It never blocks; device-attribute replies
// are buffered for the caller to collect with PendingReply.
func (e *Emulator) Write(data []byte) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		if e.pagelet != nil {
			rest := e.pageletAppend(data[i:])
			if rest == nil {
				return
			}
			// rest holds the bytes from the escape terminator onward;
			// reprocess them in place.
			data = append(append([]byte{}, data[:i]...), rest...)
			i--
			continue
		}
		e.needsUpdate = true
		if len(e.pending) > 0 || seedControls[b] || b == 0x1b {
			e.pending = append(e.pending, b)
			e.dispatchPending()
		} else {
			e.echoByte(b)
		}
	}
}

// dispatchPending tries to resolve the pending escape/control buffer against
// the literal table, then the CSI/OSC regexps, discarding it as garbage once
// it exceeds MaxEscapeBytes without a match.
func (e *Emulator) dispatchPending() {
	s := string(e.pending)
	if len(s) > MaxEscapeBytes {
		e.pending = nil
		return
	}
	if h, ok := literalEscapes[s]; ok {
		if h != nil {
			h(e)
		}
		e.pending = nil
		return
	}
	if m := csiRe.FindStringSubmatch(s); m != nil {
		e.dispatchCSI(m[1], m[2])
		e.pending = nil
		return
	}
	if oscRe.MatchString(s) {
		e.pending = nil
		return
	}
}

// Control-character and escape-sequence handler bodies live in controls.go;
// csi handling lives in csi.go.
