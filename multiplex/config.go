// Package multiplex manages a collection of lineterm.Emulator instances, one
// per pty, spawning and reaping their child processes and pumping pty bytes
// into the emulator and back out again.
package multiplex

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opsconsole/lineterm"
)

// Config holds the tunables a Multiplexer needs beyond the per-terminal
// options a caller passes to Spawn: the default shell command, the
// environment variables mirrored into every child as LC_* (a trick that lets
// them survive an SSH hop that strips ordinary variables), a notebook
// prompt table, and the helper binary directory prepended to PATH.
type Config struct {
	// Command is the default shell command for new terminals when Spawn is
	// not given one explicitly. Empty means "log in": /bin/login when
	// running as root, otherwise $SHELL (or /bin/sh when $SHELL is unset).
	Command string `yaml:"command"`

	// LoginShellRe matches a command's first word against the shells that
	// should be exec'd directly rather than wrapped in "/bin/sh -c".
	LoginShellRe string `yaml:"login_shell_pattern"`

	// TermType is the TERM value exported to children.
	TermType string `yaml:"term_type"`

	// BinDir is the helper-binary directory name appended under the
	// module's install directory and prepended to PATH.
	BinDir string `yaml:"bin_dir"`

	// LCExport mirrors select environment variables as LC_* so they survive
	// being stripped by an intermediate SSH hop.
	LCExport bool `yaml:"lc_export"`

	// NoCopyEnv lists environment variable names never copied from the
	// multiplexer's own environment into a child's.
	NoCopyEnv []string `yaml:"no_copy_env"`

	// ExportEnv lists the environment variable names mirrored as LC_* when
	// LCExport is set.
	ExportEnv []string `yaml:"export_env"`

	// NotebookPrompts maps a command name to its notebook prompt list.
	// Nothing in this module reads it: Emulator.NotebookActivate infers
	// prompts from its own built-in table.
	NotebookPrompts map[string][]string `yaml:"notebook_prompts"`

	// IdleTimeout is how long a terminal may sit without output before
	// the Multiplexer's idle sweep reaps it.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// UpdateInterval is the minimum spacing between consecutive Update
	// calls the run loop issues for a single busy terminal.
	UpdateInterval time.Duration `yaml:"update_interval"`
}

var loginShellRe = regexp.MustCompile(`^[/\w]*/(ba|c|k|tc)?sh$`)

// DefaultConfig returns the Config a Multiplexer uses when none is supplied,
// matching the original module's hardcoded constants.
func DefaultConfig() *Config {
	return &Config{
		TermType:     "xterm",
		BinDir:       "bin",
		LoginShellRe: loginShellRe.String(),
		NoCopyEnv: []string{
			"GRAPHTERM_EXPORT", "TERM_PROGRAM", "TERM_PROGRAM_VERSION", "TERM_SESSION_ID",
		},
		ExportEnv: []string{
			"GRAPHTERM_API", "GRAPHTERM_COOKIE", "GRAPHTERM_DIMENSIONS", "GRAPHTERM_PATH",
		},
		NotebookPrompts: map[string][]string{
			"python":  {">>> ", "... "},
			"python3": {">>> ", "... "},
			"ipython": {"In [", ": "},
			"node":    {"> ", "... "},
		},
		IdleTimeout:    lineterm.IdleTimeout,
		UpdateInterval: lineterm.UpdateInterval,
	}
}

// ConfigDir returns the multiplexer's configuration directory (~/.lineterm/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lineterm")
	}
	return filepath.Join(home, ".lineterm")
}

// LoadConfig reads the multiplexer config from ~/.lineterm/config.yaml,
// falling back to DefaultConfig for any field the file omits.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadConfigFrom reads the multiplexer config from path. If the file does
// not exist, it returns DefaultConfig with no error.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.LoginShellRe != "" {
		if _, err := regexp.Compile(c.LoginShellRe); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) loginShellPattern() *regexp.Regexp {
	if c.LoginShellRe == "" {
		return loginShellRe
	}
	re, err := regexp.Compile(c.LoginShellRe)
	if err != nil {
		return loginShellRe
	}
	return re
}

func (c *Config) noCopyEnv() map[string]bool {
	out := make(map[string]bool, len(c.NoCopyEnv))
	for _, name := range c.NoCopyEnv {
		out[name] = true
	}
	return out
}
