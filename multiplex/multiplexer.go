package multiplex

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/opsconsole/lineterm"
)

// terminal bundles one child process's pty, its Emulator, and the
// bookkeeping the run loop needs to decide when to reap or refresh it.
type terminal struct {
	mu sync.Mutex

	name   string
	cookie string
	emu    *lineterm.Emulator
	ptm    *os.File
	cmd    *exec.Cmd

	height, width, winHeight, winWidth int

	outputTime time.Time
	updateTime time.Time
	killed     bool
}

// Multiplexer owns a set of named terminals, each backed by a forked pty and
// a lineterm.Emulator. It is the Go counterpart of the original's single
// do-everything Multiplex class, split so that pty lifecycle and byte
// plumbing (this file) stay separate from the emulator's screen semantics.
type Multiplexer struct {
	mu        sync.Mutex
	cfg       *Config
	callback  lineterm.Callback
	prompt    PromptFormat
	log       *slog.Logger
	terms     map[string]*terminal
	nameCount int
	alive     bool
	execErr   bool // one-shot "helper binary missing" alert, matches Exec_errmsg
	stop      chan struct{}
}

// Option configures a Multiplexer at construction time.
type Option func(*Multiplexer)

// WithConfig overrides the default Config, e.g. for tests that want a short
// IdleTimeout or a fake Command.
func WithConfig(cfg *Config) Option {
	return func(m *Multiplexer) { m.cfg = cfg }
}

// WithPromptFormat sets the PS1 delimiter and format every spawned shell's
// PROMPT_COMMAND is built from.
func WithPromptFormat(p PromptFormat) Option {
	return func(m *Multiplexer) { m.prompt = p }
}

// WithCallback sets the event sink every terminal's Emulator forwards to.
func WithCallback(cb lineterm.Callback) Option {
	return func(m *Multiplexer) { m.callback = cb }
}

// WithLogger overrides the logger used for pty I/O and lifecycle diagnostics
// that have no caller to return an error to (a dropped reply write, a failed
// window-resize ioctl, an unexpected pty EOF). Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(m *Multiplexer) { m.log = log }
}

// New constructs a Multiplexer and starts its background run loop. Call
// Shutdown to stop it and kill every terminal.
func New(opts ...Option) *Multiplexer {
	m := &Multiplexer{
		terms:    make(map[string]*terminal),
		callback: lineterm.NoopCallback{},
		alive:    true,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg == nil {
		m.cfg = DefaultConfig()
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	go m.runUpdateLoop()
	go m.runIdleLoop()
	return m
}

// Running reports whether Shutdown has been called.
func (m *Multiplexer) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

// TermNames returns the names of every live terminal.
func (m *Multiplexer) TermNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.terms))
	for name := range m.terms {
		names = append(names, name)
	}
	return names
}

// Spawn returns the (name, cookie) pair for an existing terminal, or forks a
// new pty and child process for one. An empty termName requests a new
// terminal with a generated name ("tty1", "tty2", ...); command overrides
// the Config's default command for a newly created terminal only.
func (m *Multiplexer) Spawn(termName, command string, height, width, winHeight, winWidth int) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if termName != "" {
		if t, ok := m.terms[termName]; ok {
			m.resizeLocked(t, height, width, winHeight, winWidth)
			return termName, t.cookie, nil
		}
	} else {
		for {
			m.nameCount++
			termName = fmt.Sprintf("tty%d", m.nameCount)
			if _, exists := m.terms[termName]; !exists {
				break
			}
		}
	}

	cookie, err := generateCookie()
	if err != nil {
		return "", "", err
	}

	argv, err := m.cfg.resolveCommand(command)
	if err != nil {
		return "", "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	binDir := ""
	if exe, err := os.Executable(); err == nil {
		binDir = filepath.Join(filepath.Dir(exe), m.cfg.BinDir)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = home
	cmd.Env = m.cfg.childEnv(termName, cookie, height, width, winHeight, winWidth, m.prompt, binDir)

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
	if err != nil {
		return "", "", fmt.Errorf("spawn %s: %w", termName, err)
	}

	emu := lineterm.NewEmulator(termName,
		lineterm.WithCookie(cookie),
		lineterm.WithDelim(m.prompt.Prefix, m.prompt.Suffix),
		lineterm.WithCallback(m.callback),
		lineterm.WithSize(width, height),
	)

	t := &terminal{
		name: termName, cookie: cookie, emu: emu, ptm: ptm, cmd: cmd,
		height: height, width: width, winHeight: winHeight, winWidth: winWidth,
		outputTime: time.Now(),
	}
	m.terms[termName] = t

	if binDir != "" {
		if _, err := os.Stat(filepath.Join(binDir, "gls")); err != nil && !m.execErr {
			m.execErr = true
			m.callback.Emit(lineterm.Event{
				TermName: termName, Kind: lineterm.EventAlert,
				Args: lineterm.AlertArgs{Message: fmt.Sprintf("helper binary missing under %s", binDir)},
			})
		}
	}

	go m.readLoop(t)

	return termName, cookie, nil
}

// resolveCommand turns a requested command string into an argv, applying
// the original's rule: a recognized login-shell path is exec'd directly,
// anything else is wrapped in "/bin/sh -c", and an empty command falls back
// to /bin/login when running as root or the caller's $SHELL otherwise.
// Anonymous interactive login over a borrowed stdin (the original's ssh
// fallback for a non-root, commandless spawn) is out of scope here: this
// package always runs as the invoking user, never a multi-user login
// surface.
func (c *Config) resolveCommand(command string) ([]string, error) {
	if command == "" {
		command = c.Command
	}
	if command != "" {
		comps, err := shlex.Split(command)
		if err != nil || len(comps) == 0 {
			return nil, fmt.Errorf("invalid command %q", command)
		}
		if c.loginShellPattern().MatchString(comps[0]) {
			return comps, nil
		}
		return []string{"/bin/sh", "-c", command}, nil
	}
	if os.Geteuid() == 0 {
		return []string{"/bin/login"}, nil
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell}, nil
}

// readLoop pumps one terminal's pty output into its Emulator until the pty
// closes, writing back any reply bytes (device-attribute responses,
// buffered notebook input) the Emulator produces.
func (m *Multiplexer) readLoop(t *terminal) {
	buf := make([]byte, 65536)
	for {
		n, err := t.ptm.Read(buf)
		if n > 0 {
			t.mu.Lock()
			reply := t.emu.PtyRead(buf[:n])
			t.outputTime = time.Now()
			t.mu.Unlock()
			if len(reply) > 0 {
				if _, werr := t.ptm.Write(reply); werr != nil {
					m.log.Warn("reply write failed", "term", t.name, "error", werr)
				}
			}
		}
		if err != nil {
			m.log.Debug("pty read loop ended", "term", t.name, "error", err)
			m.closeTerm(t.name, true)
			return
		}
	}
}

// Write sends data to a terminal's pty. A write containing CR or LF first
// calls Enter on the Emulator, matching the original's pty_write: Enter
// marks the in-progress command line as the one the shell is about to
// execute, before the shell's own echo retires it.
func (m *Multiplexer) Write(termName string, data []byte) error {
	m.mu.Lock()
	t, ok := m.terms[termName]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("write to %q: %w", termName, lineterm.ErrUnknownTerminal)
	}
	if strings.ContainsAny(string(data), "\r\n") {
		t.mu.Lock()
		t.emu.Enter()
		t.mu.Unlock()
	}
	_, err := t.ptm.Write(data)
	if err != nil {
		m.closeTerm(termName, true)
	}
	return err
}

// Resize changes a terminal's dimensions, propagating to both the Emulator
// and the pty's own window size ioctl.
func (m *Multiplexer) Resize(termName string, height, width, winHeight, winWidth int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.terms[termName]
	if !ok {
		return fmt.Errorf("resize %q: %w", termName, lineterm.ErrUnknownTerminal)
	}
	m.resizeLocked(t, height, width, winHeight, winWidth)
	return nil
}

func (m *Multiplexer) resizeLocked(t *terminal, height, width, winHeight, winWidth int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.height, t.width, t.winHeight, t.winWidth = height, width, winHeight, winWidth
	t.emu.Resize(height, width, winHeight, winWidth, false)
	if err := pty.Setsize(t.ptm, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)}); err != nil {
		m.log.Warn("pty setsize failed", "term", t.name, "error", err)
	}
}

// Reconnect forces a full repaint of the named terminal for a client that
// just (re)attached. If responseID is empty, one is generated so the caller
// can correlate the resulting RowUpdate event with this request.
func (m *Multiplexer) Reconnect(termName, responseID string) (string, error) {
	m.mu.Lock()
	t, ok := m.terms[termName]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("reconnect %q: %w", termName, lineterm.ErrUnknownTerminal)
	}
	if responseID == "" {
		responseID = uuid.NewString()
	}
	t.mu.Lock()
	t.emu.Reconnect(responseID)
	t.mu.Unlock()
	return responseID, nil
}

// Emulator returns the named terminal's Emulator, or nil if it does not
// exist, for callers that need to invoke notebook or scroll-history
// operations directly.
func (m *Multiplexer) Emulator(termName string) *lineterm.Emulator {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.terms[termName]
	if !ok {
		return nil
	}
	return t.emu
}

// ExportEnvironment re-exports the GRAPHTERM_* environment into a terminal
// that is already running a shell, for a child that execs a new login shell
// without inheriting the variables lineterm set at spawn time (notably
// after "su" or inside tmux).
func (m *Multiplexer) ExportEnvironment(termName string) error {
	m.mu.Lock()
	t, ok := m.terms[termName]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("export environment to %q: %w", termName, lineterm.ErrUnknownTerminal)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	if _, err := t.ptm.Write([]byte(fmt.Sprintf(
		`[ "$GRAPHTERM_COOKIE" ] || export GRAPHTERM_EXPORT=%q`+"\n", hostname))); err != nil {
		return err
	}
	for _, kv := range m.cfg.termEnv(termName, t.cookie, t.height, t.width, t.winHeight, t.winWidth, m.prompt, true) {
		name, value, _ := strings.Cut(kv, "=")
		var line string
		if name == "GRAPHTERM_DIR" {
			line = fmt.Sprintf(`[ "$%s" ] || export %s='%s'`+"\n", name, name, value)
		} else {
			line = fmt.Sprintf("export %s='%s'\n", name, value)
		}
		if _, err := t.ptm.Write([]byte(line)); err != nil {
			return fmt.Errorf("export environment to %s: %w", termName, err)
		}
	}
	_, err := t.ptm.Write([]byte(fmt.Sprintf(
		`[[ "$PATH" != */lineterm/* ]] && [ -d "$GRAPHTERM_DIR" ] && export PATH="$GRAPHTERM_DIR/%s:$PATH"`+"\n",
		m.cfg.BinDir)))
	return err
}

// SaveFile writes filedata (base64-encoded) to filepath and reports the
// outcome as an EventSaveStatus, the write-back counterpart of an edit_file
// pagelet's out-of-band read: the lineterm package itself has no filesystem
// access, so the write happens here where the Multiplexer already does
// OS-level work on the terminal's behalf.
func (m *Multiplexer) SaveFile(termName, path, filedata string) {
	status := ""
	data, err := base64.StdEncoding.DecodeString(filedata)
	if err != nil {
		status = err.Error()
	} else if err := os.WriteFile(path, data, 0o644); err != nil {
		status = err.Error()
	}
	if status != "" {
		m.log.Warn("save file failed", "term", termName, "path", path, "error", status)
	}
	m.callback.Emit(lineterm.Event{
		TermName: termName,
		Kind:     lineterm.EventSaveStatus,
		Args:     lineterm.SaveStatusArgs{Filepath: path, Error: status},
	})
}

// KillTerm marks a terminal idle so the next idle sweep reaps it.
func (m *Multiplexer) KillTerm(termName string) {
	m.mu.Lock()
	t, ok := m.terms[termName]
	m.mu.Unlock()
	if ok {
		t.mu.Lock()
		t.outputTime = time.Time{}
		t.mu.Unlock()
	}
}

// KillAll marks every terminal idle so the next idle sweep reaps all of
// them.
func (m *Multiplexer) KillAll() {
	m.mu.Lock()
	terms := make([]*terminal, 0, len(m.terms))
	for _, t := range m.terms {
		terms = append(terms, t)
	}
	m.mu.Unlock()
	for _, t := range terms {
		t.mu.Lock()
		t.outputTime = time.Time{}
		t.mu.Unlock()
	}
}

// Shutdown stops the run loop and kills every terminal's child process.
func (m *Multiplexer) Shutdown() {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.alive = false
	terms := make([]*terminal, 0, len(m.terms))
	for _, t := range m.terms {
		terms = append(terms, t)
	}
	m.mu.Unlock()
	close(m.stop)
	for _, t := range terms {
		m.closeTerm(t.name, false)
	}
}

// closeTerm kills the child process (if live) and removes the terminal from
// the map. logEOF controls whether an alert is emitted, matching the
// original only warning on an unexpected pty EOF, not a deliberate kill.
func (m *Multiplexer) closeTerm(termName string, logEOF bool) {
	m.mu.Lock()
	t, ok := m.terms[termName]
	if ok {
		delete(m.terms, termName)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	already := t.killed
	t.killed = true
	t.mu.Unlock()
	if already {
		return
	}
	t.ptm.Close()
	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	go t.cmd.Wait()
	if logEOF {
		m.log.Info("terminal closed on pty eof", "term", termName)
		t.mu.Lock()
		t.emu.Update()
		t.mu.Unlock()
		m.callback.Emit(lineterm.Event{
			TermName: termName, Kind: lineterm.EventAlert,
			Args: lineterm.AlertArgs{Message: "terminal closed"},
		})
	}
}

// runUpdateLoop periodically calls Update on every terminal that has
// produced output since its last update, spaced by Config.UpdateInterval,
// matching the original's single-threaded poll loop's batching behavior
// without serializing every terminal through one goroutine.
func (m *Multiplexer) runUpdateLoop() {
	interval := m.cfg.UpdateInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			terms := make([]*terminal, 0, len(m.terms))
			for _, t := range m.terms {
				terms = append(terms, t)
			}
			m.mu.Unlock()
			now := time.Now()
			for _, t := range terms {
				t.mu.Lock()
				due := (t.emu.NeedsUpdate() || t.outputTime.After(t.updateTime)) && now.Sub(t.updateTime) > interval
				if due {
					t.emu.Update()
					t.updateTime = now
				}
				t.mu.Unlock()
			}
		}
	}
}

// runIdleLoop reaps terminals whose output has gone quiet for longer than
// Config.IdleTimeout, or that were explicitly marked idle by KillTerm/KillAll
// (which zero outputTime).
func (m *Multiplexer) runIdleLoop() {
	timeout := m.cfg.IdleTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	ticker := time.NewTicker(timeout / 10)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			var idle []string
			now := time.Now()
			for name, t := range m.terms {
				t.mu.Lock()
				if t.outputTime.IsZero() || now.Sub(t.outputTime) > timeout {
					idle = append(idle, name)
				}
				t.mu.Unlock()
			}
			m.mu.Unlock()
			for _, name := range idle {
				m.closeTerm(name, false)
			}
		}
	}
}

// generateCookie returns a random 16-digit decimal string, the pagelet
// validation cookie a freshly spawned shell is given via GRAPHTERM_COOKIE.
func generateCookie() (string, error) {
	const digits = 16
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(digits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016d", n), nil
}
