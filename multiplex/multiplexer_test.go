package multiplex

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconsole/lineterm"
)

type recordingCallback struct {
	mu     sync.Mutex
	events []lineterm.Event
}

func (c *recordingCallback) Emit(e lineterm.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *recordingCallback) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMultiplexerSpawnAssignsGeneratedName(t *testing.T) {
	m := New()
	defer m.Shutdown()

	name, cookie, err := m.Spawn("", "/bin/sh", 25, 80, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "tty1", name)
	assert.Len(t, cookie, 16)
}

func TestMultiplexerSpawnReturnsExistingTerminal(t *testing.T) {
	m := New()
	defer m.Shutdown()

	name1, cookie1, err := m.Spawn("", "/bin/sh", 25, 80, 0, 0)
	require.NoError(t, err)

	name2, cookie2, err := m.Spawn(name1, "", 25, 80, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, name1, name2)
	assert.Equal(t, cookie1, cookie2)
}

func TestMultiplexerWriteDrivesEmulatorUpdates(t *testing.T) {
	cb := &recordingCallback{}
	cfg := DefaultConfig()
	cfg.UpdateInterval = 5 * time.Millisecond
	m := New(WithConfig(cfg), WithCallback(cb))
	defer m.Shutdown()

	name, _, err := m.Spawn("", "/bin/sh", 25, 80, 0, 0)
	require.NoError(t, err)

	require.NoError(t, m.Write(name, []byte("echo hello\n")))

	require.Eventually(t, func() bool {
		return cb.count() > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMultiplexerKillTermReapsOnIdleSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 10 * time.Millisecond
	m := New(WithConfig(cfg))
	defer m.Shutdown()

	name, _, err := m.Spawn("", "/bin/sh", 25, 80, 0, 0)
	require.NoError(t, err)

	m.KillTerm(name)

	require.Eventually(t, func() bool {
		for _, n := range m.TermNames() {
			if n == name {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMultiplexerShutdownStopsAcceptingWrites(t *testing.T) {
	m := New()
	name, _, err := m.Spawn("", "/bin/sh", 25, 80, 0, 0)
	require.NoError(t, err)

	m.Shutdown()
	assert.False(t, m.Running())

	err = m.Write(name, []byte("echo hi\n"))
	assert.Error(t, err)
}

func TestMultiplexerEmulatorLooksUpNotebook(t *testing.T) {
	m := New()
	defer m.Shutdown()

	name, _, err := m.Spawn("", "/bin/sh", 25, 80, 0, 0)
	require.NoError(t, err)

	emu := m.Emulator(name)
	require.NotNil(t, emu)
	assert.False(t, emu.NotebookActive())

	assert.Nil(t, m.Emulator("no-such-terminal"))
}
