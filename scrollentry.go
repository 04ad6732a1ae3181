package lineterm

import (
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/google/shlex"
)

// commandDelimiters are the shell punctuation characters that command markup
// recognizes and wraps separately from ordinary tokens.
const commandDelimiters = "<>;"

// fileCommands are the first-token verbs whose remaining arguments are
// treated as file paths for click-to-paste markup.
var fileCommands = map[string]bool{
	"cd": true, "cp": true, "mv": true, "rm": true,
	"gcp": true, "gimages": true, "gls": true, "gopen": true, "gvi": true,
}

// RowKind discriminates the variants of RowParams. The zero value, Plain, is
// an ordinary output or command row.
type RowKind int

const (
	RowPlain RowKind = iota
	RowPagelet
	RowEditFile
)

// RowParams is the tagged record carried by a ScrollEntry: Plain rows carry
// nothing, Pagelet rows carry structured-payload options, EditFile rows
// carry the same options shape plus the edit-file kind tag. This is the Go
// rendering of the original "(kind string, options dict)" pair as a sum
// type whose variants carry exactly the fields relevant to them.
type RowParams struct {
	Kind    RowKind
	Options PageletOptions
}

// PageletOptions holds the options bag a pagelet or edit_file row carries:
// pagelet headers, the pagelet id, an optional owned blob reference, the
// one-shot overwrite flag, and an extra CSS class for front-end styling.
type PageletOptions struct {
	Headers    map[string]string
	PageletID  string
	Blob       string
	Overwrite  bool
	AddClass   string
	NotePrompt bool
}

// ScrollEntry is one retired scroll line. Lines belonging to the same
// logical command (prompt + continuations + output) share EntryIndex.
type ScrollEntry struct {
	EntryIndex   int
	PromptOffset int
	Directory    string
	Params       RowParams
	Text         string
	Markup       string // pre-rendered representation; "" means render Text
}

// pageletID formats the "{buf_note}-{current_scroll_count}" id scheme used
// to namespace pagelet ids per ScreenBuf (see SetBufNote).
func pageletID(bufNote, scrollCount int) string {
	return fmt.Sprintf("%d-%d", bufNote, scrollCount)
}

// promptOffset returns the offset at the end of the prompt text (not
// including a trailing separator), or zero if the line does not start a
// prompt. meta, when non-nil and ContinuationDepth == 0, marks the row as a
// command head regardless of textual prefix match.
func promptOffset(line string, delim PromptDelim, meta *RowMeta) int {
	if delim.Prefix == "" && delim.Suffix == "" {
		return 0
	}
	isHead := meta != nil && meta.ContinuationDepth == 0
	if isHead || (delim.Prefix != "" && strings.HasPrefix(line, delim.Prefix)) {
		if end := strings.Index(line, delim.Suffix); end >= 0 {
			return end + len(delim.Suffix)
		}
	}
	return 0
}

// PromptDelim brackets the prompt text on a command line, enabling offset
// detection via promptOffset.
type PromptDelim struct {
	Prefix string
	Suffix string
}

// plainMarkup wraps plain command-line text (delimiter punctuation or an
// ordinary token) in a span, optionally tagged as part of the command verb.
func plainMarkup(text string, command bool) string {
	class := ""
	if command {
		class = " gterm-command"
	}
	return fmt.Sprintf(`<span class="gterm-cmd-text gterm-link%s">%s</span>`, class, html.EscapeString(text))
}

// pathMarkup wraps a file-path-shaped token in a click-to-paste anchor,
// resolved against the current directory.
func pathMarkup(text, currentDir string, command bool) string {
	class := ""
	if command {
		class = " gterm-command"
	}
	fullPath := text
	if currentDir != "" {
		fullPath = path.Clean(path.Join(currentDir, text))
	}
	return fmt.Sprintf(`<a class="gterm-cmd-path gterm-link%s" href="file://%s" data-gtermmime="x-graphterm/path" data-gtermcmd="xpaste">%s</a>`,
		class, fullPath, html.EscapeString(text))
}

// promptMarkup wraps the prompt span of a retired command line, tagging it
// with the owning entry index and current directory for click navigation.
func promptMarkup(text string, entryIndex int, currentDir string) string {
	return fmt.Sprintf(`<span class="gterm-cmd-prompt gterm-link" id="prompt%d" data-gtermdir="%s">%s</span>`,
		entryIndex, currentDir, html.EscapeString(text))
}

// commandMarkup renders a retired command line as prompt span + tokenized
// command, annotating path-shaped arguments of file-oriented verbs
// (ClassifyPathTokens) with click-to-paste anchors.
func commandMarkup(entryIndex int, currentDir string, preOffset, offset int, line string) string {
	markedUp := promptMarkup(line[preOffset:offset], entryIndex, currentDir)

	comps, err := shplit(line[offset:])
	if err != nil || len(comps) == 0 {
		return markedUp + line[offset:]
	}

	for len(comps) > 0 && strings.TrimSpace(comps[0]) == "" {
		markedUp += comps[0]
		comps = comps[1:]
	}
	if len(comps) == 0 {
		return markedUp
	}

	cmd := comps[0]
	comps = comps[1:]
	if currentDir != "" && (strings.HasPrefix(cmd, "./") || strings.HasPrefix(cmd, "../")) {
		markedUp += pathMarkup(cmd, currentDir, true)
	} else {
		markedUp += plainMarkup(cmd, true)
	}

	fileCommand := fileCommands[cmd]
	for _, comp := range comps {
		switch {
		case strings.TrimSpace(comp) == "":
			markedUp += comp
		case strings.ContainsRune(commandDelimiters, rune(comp[0])):
			markedUp += plainMarkup(comp, false)
			if comp[0] == ';' {
				fileCommand = false
			}
		case fileCommand && currentDir != "" && comp[0] != '-':
			markedUp += pathMarkup(comp, currentDir, false)
		default:
			markedUp += plainMarkup(comp, false)
		}
	}
	return markedUp
}

// shplit tokenizes a command line into successive components, preserving
// separator tokens ('<', '>', ';') as their own entries. It is implemented
// as a two-pass tokenizer (shell-split, then re-split on secondary
// delimiters) rather than the original's self-recursive formulation — see
// DESIGN.md "shplit" for why.
func shplit(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" && line != "" {
		return []string{line}, nil
	}
	if line == "" {
		return nil, nil
	}

	words, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}

	var out []string
	rest := line
	for i, word := range words {
		// Recover the leading whitespace/quoting this word consumed from rest.
		idx := strings.Index(rest, word)
		if idx < 0 {
			idx = 0
		}
		if idx > 0 {
			out = append(out, rest[:idx])
		}
		rest = rest[idx+len(word):]

		out = append(out, splitDelimiters(word)...)

		if i == len(words)-1 && rest != "" {
			out = append(out, rest)
		}
	}
	return out, nil
}

// splitDelimiters re-splits a single shell token on commandDelimiters,
// keeping the delimiter characters as their own entries.
func splitDelimiters(word string) []string {
	var out []string
	start := 0
	for i, r := range word {
		if strings.ContainsRune(commandDelimiters, r) {
			if i > start {
				out = append(out, word[start:i])
			}
			out = append(out, string(r))
			start = i + len(string(r))
		}
	}
	if start < len(word) {
		out = append(out, word[start:])
	}
	if len(out) == 0 {
		return []string{word}
	}
	return out
}

// ClassifyPathTokens reports whether cmd is a file-oriented verb whose
// remaining arguments should receive click-to-paste path markup.
func ClassifyPathTokens(cmd string) bool {
	return fileCommands[cmd]
}
