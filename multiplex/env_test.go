package multiplex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermEnvIncludesCookieAndPath(t *testing.T) {
	cfg := DefaultConfig()
	env := cfg.termEnv("tty1", "1234567890123456", 25, 80, 0, 0, PromptFormat{}, false)

	has := func(kv string) bool {
		for _, e := range env {
			if e == kv {
				return true
			}
		}
		return false
	}
	assert.True(t, has("GRAPHTERM_COOKIE=1234567890123456"))
	assert.True(t, has("GRAPHTERM_DIMENSIONS=80x25"))
	assert.True(t, has("TERM=xterm"))

	pathSuffix := "/tty1"
	foundPath := false
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "GRAPHTERM_PATH="); ok && strings.HasSuffix(v, pathSuffix) {
			foundPath = true
		}
	}
	assert.True(t, foundPath, "GRAPHTERM_PATH should end in host/tty1")
}

func TestTermEnvSkipsPromptVarsWithoutFormat(t *testing.T) {
	cfg := DefaultConfig()
	env := cfg.termEnv("tty1", "cookie", 25, 80, 0, 0, PromptFormat{}, false)
	for _, e := range env {
		assert.NotContains(t, e, "GRAPHTERM_PROMPT=")
		assert.NotContains(t, e, "PROMPT_COMMAND=")
	}
}

func TestTermEnvSetsPromptCommandWhenFormatted(t *testing.T) {
	cfg := DefaultConfig()
	prompt := PromptFormat{Prefix: "\x01", Suffix: "\x02", Format: "\\u@\\h"}
	env := cfg.termEnv("tty1", "cookie", 25, 80, 0, 0, prompt, false)

	var promptVar, cmdVar string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "GRAPHTERM_PROMPT="); ok {
			promptVar = v
		}
		if v, ok := strings.CutPrefix(e, "PROMPT_COMMAND="); ok {
			cmdVar = v
		}
	}
	assert.Equal(t, "\x01\\u@\\h\x02 ", promptVar)
	assert.Contains(t, cmdVar, "1150")
}

func TestTermEnvMirrorsLCVarsWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LCExport = true
	env := cfg.termEnv("tty1", "cookie", 25, 80, 0, 0, PromptFormat{}, false)

	found := false
	for _, e := range env {
		if e == "LC_GRAPHTERM_COOKIE=cookie" {
			found = true
		}
	}
	assert.True(t, found)
}
