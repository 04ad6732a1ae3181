// Package lineterm provides a line-oriented pseudo-terminal emulator: a
// VT100/xterm-compatible screen that, instead of staying a live grid for a
// display to redraw, retires each completed command's prompt line and
// output into a bounded scroll history of discrete entries a front-end can
// append to a DOM or log, one event at a time.
//
// # Quick start
//
// Create an Emulator and feed it a child process's pty output:
//
//	emu := lineterm.NewEmulator("tty1",
//	    lineterm.WithSize(80, 25),
//	    lineterm.WithDelim(promptPrefix, promptSuffix),
//	    lineterm.WithCallback(myCallback),
//	)
//	emu.Write(bytesFromPty)
//	emu.Update() // emits EventRowUpdate with the active screen delta and any newly retired scroll entries
//
// The companion multiplex package owns the pty and child process lifecycle;
// Emulator only understands bytes in and Callback events out.
//
// # Prompt detection and scroll retirement
//
// A command line is recognized by PromptDelim: a literal prefix/suffix pair
// a cooperating shell's PS1 wraps the prompt in (commonly a pair of private
// Unicode codepoints the shell alone emits). When a row bracketed this way
// scrolls off, ScreenBuf.ScrollBufUp records it as a ScrollEntry carrying
// the command's markup, its working directory, and an entry index; plain
// output rows are retired the same way with no prompt offset. The directory
// itself arrives out-of-band as a graphterm private-mode escape (see
// Pagelets below) rather than being parsed out of the prompt text.
//
// # Pagelets
//
// A cooperating shell can wrap a private-mode escape sequence (CSI ? 1155 h
// ... CSI ? 1155 l) around structured output: a JSON header naming an
// x_gterm_response kind, followed by a body. Validated pagelets (the second
// CSI parameter must echo the Emulator's cookie) dispatch to
// EventGraphtermOutput, EventCreateBlob, or EventFrameMsg depending on that
// kind; unvalidated ones are stripped to plain text before they ever reach
// the scroll history, since an Emulator has no way to tell a pagelet coming
// from the user's own shell apart from one forged by something the shell
// printed on its behalf.
//
// # Notebook mode
//
// NotebookActivate switches an Emulator into a second, isolated ScreenBuf
// that buffers a REPL's cells (a cell per implicit command) instead of the
// shell's own scroll history, tracking cell boundaries by matching output
// rows against a configured prompt set (or one inferred from the command
// being run). ExecCell and CompleteCell return the bytes a caller should
// write back to the pty to run or tab-complete a cell's input; the
// PtyRead/notebookAutoFeed path gates which buffered input line is fed next
// on the configured prompt reappearing. NotebookDeactivate flushes every
// cell's accumulated input and output back into the main scroll history
// before restoring ordinary shell mode.
//
// # Thread safety
//
// An Emulator is not safe for concurrent use; callers (the multiplex
// package in particular) must serialize Write/Update/notebook-method calls
// per terminal, typically with one mutex per pty.
package lineterm
