package multiplex

import (
	"fmt"
	"os"
	"strings"
)

// PromptFormat describes how a child shell's PS1 should render the
// delimiter-bracketed prompt lineterm uses to find command lines, and how
// the escape that reports the current working directory is embedded in it.
// Format and ExportFormat are PS1-style strings; termEnv wraps each in
// Prefix and Suffix and appends a space. ExportFormat is used instead of
// Format when exporting to an already-running shell (export_environment),
// matching the original's distinction between a freshly spawned shell and
// one updated in place.
type PromptFormat struct {
	Prefix       string
	Suffix       string
	Format       string
	ExportFormat string
}

const (
	promptEscapeCode  = 1150
	pageletEscapeCode = 1155
)

// gtermPath formats the GRAPHTERM_PATH value a front-end uses to address
// this terminal: "host/name", matching the original's env.append(("GRAPHTERM_PATH",
// "%s/%s" % (self.host, term_name))).
func gtermPath(termName string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "/" + termName
}

// bashPromptCmd and exptPromptCmd are PROMPT_COMMAND bodies that set PS1 and
// then emit the 1150 escape carrying the cookie and current directory. The
// two forms differ only in how they spell the ESC byte: the plain form
// embeds it literally (bash understands $'\033' style quoting in PS1 but not
// every shell splices raw bytes into PROMPT_COMMAND the same way), the
// export form builds it with printf for shells where PROMPT_COMMAND is
// re-read verbatim after being exported as LC_PROMPT_COMMAND.
func bashPromptCmd(cookieVar string) string {
	return fmt.Sprintf(`export PS1=$GRAPHTERM_PROMPT; echo -n "\033[?%d;$%sh$PWD\033[?%d;l"`,
		promptEscapeCode, cookieVar, promptEscapeCode)
}

func exptPromptCmd(cookieVar string) string {
	return fmt.Sprintf("export PS1=$GRAPHTERM_PROMPT; echo -n `printf \"\\033\"`\"[?%d;$%sh$PWD\"`printf \"\\033\"`\"[?%d;l\"",
		promptEscapeCode, cookieVar, promptEscapeCode)
}

// termEnv builds the GRAPHTERM_* (and, when cfg.LCExport is set, mirrored
// LC_*) environment variables for one terminal. export selects the
// already-running-shell PROMPT_COMMAND/prompt format over the
// freshly-spawned-shell one.
func (c *Config) termEnv(termName, cookie string, height, width, winHeight, winWidth int, prompt PromptFormat, export bool) []string {
	var env []string
	set := func(k, v string) { env = append(env, k+"="+v) }

	termType := c.TermType
	if termType == "" {
		termType = "xterm"
	}
	set("TERM", termType)
	set("GRAPHTERM_COOKIE", cookie)
	set("GRAPHTERM_PATH", gtermPath(termName))

	dims := fmt.Sprintf("%dx%d", width, height)
	if winWidth != 0 || winHeight != 0 {
		dims += fmt.Sprintf(";%dx%d", winWidth, winHeight)
	}
	set("GRAPHTERM_DIMENSIONS", dims)

	promptFmt, exportPromptFmt := "", ""
	if prompt.Format != "" {
		promptFmt = prompt.Prefix + prompt.Format + prompt.Suffix + " "
		if prompt.ExportFormat != "" {
			exportPromptFmt = prompt.Prefix + prompt.ExportFormat + prompt.Suffix + " "
		} else {
			exportPromptFmt = promptFmt
		}
		if export {
			set("GRAPHTERM_PROMPT", exportPromptFmt)
			set("PROMPT_COMMAND", exptPromptCmd("GRAPHTERM_COOKIE"))
		} else {
			set("GRAPHTERM_PROMPT", promptFmt)
			set("PROMPT_COMMAND", bashPromptCmd("GRAPHTERM_COOKIE"))
		}
	}

	installDir, err := os.Executable()
	graphtermDir := "."
	if err == nil {
		graphtermDir = installDir
	}
	set("GRAPHTERM_DIR", graphtermDir)

	if c.LCExport {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "unknown"
		}
		set("LC_GRAPHTERM_EXPORT", hostname)
		if exportPromptFmt != "" {
			set("LC_GRAPHTERM_PROMPT", exportPromptFmt)
			set("LC_PROMPT_COMMAND", exptPromptCmd("GRAPHTERM_COOKIE"))
		}
		mirrored := map[string]string{
			"GRAPHTERM_API":        "",
			"GRAPHTERM_COOKIE":     cookie,
			"GRAPHTERM_DIMENSIONS": dims,
			"GRAPHTERM_PATH":       gtermPath(termName),
		}
		for _, name := range c.ExportEnv {
			if v, ok := mirrored[name]; ok && v != "" {
				set("LC_"+name, v)
			}
		}
	}

	return env
}

// childEnv builds the full environment for a freshly spawned child: the
// multiplexer's own environment, filtered through NoCopyEnv and with PATH
// prefixed by the helper bin directory, plus COLUMNS/LINES and the
// GRAPHTERM_* variables from termEnv.
func (c *Config) childEnv(termName, cookie string, height, width, winHeight, winWidth int, prompt PromptFormat, binDir string) []string {
	skip := c.noCopyEnv()
	var env []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if skip[name] {
			continue
		}
		if name == "PATH" && binDir != "" {
			env = append(env, "PATH="+binDir+":"+os.Getenv("PATH"))
			continue
		}
		env = append(env, kv)
	}
	env = append(env, fmt.Sprintf("COLUMNS=%d", width), fmt.Sprintf("LINES=%d", height))
	env = append(env, c.termEnv(termName, cookie, height, width, winHeight, winWidth, prompt, false)...)
	return env
}
