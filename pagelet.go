package lineterm

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// pageletCapture accumulates the raw bytes of a graphterm private-mode
// payload (1150 working-directory report or 1155 pagelet) until the next
// ESC terminates it.
type pageletCapture struct {
	code       int
	validated  bool
	entryIndex int
	buf        bytes.Buffer
	size       int
}

// gtermDirectiveRe recognizes a leading "<!--gterm KIND opt=val ...-->"
// comment directive on raw-HTML pagelet content.
var gtermDirectiveRe = regexp.MustCompile(`^\s*<!--gterm\s+(\w+)(\s[^>]*)?-->`)

// beginPageletCapture starts capturing a graphterm private-mode payload.
// args is the full CSI parameter list; by convention the cookie value, when
// present, is the second parameter.
func (e *Emulator) beginPageletCapture(code int, args []int) {
	validated := false
	if len(args) >= 2 {
		validated = strconv.Itoa(args[1]) == e.cookie
	}
	e.pagelet = &pageletCapture{
		code:       code,
		validated:  validated,
		entryIndex: e.screenBuf.EntryIndex() + 1,
	}
	if code != 1150 {
		e.scrollScreen(e.activeRows)
	}
}

// pageletAppend feeds chunk to the in-progress pagelet capture. It returns
// nil if chunk was fully consumed with no terminator found (capture
// continues on the next Write), or the bytes from the terminating ESC
// onward for the caller to reprocess as ordinary escape/echo input once the
// capture has been finished and dispatched.
func (e *Emulator) pageletAppend(chunk []byte) []byte {
	idx := bytes.IndexByte(chunk, 0x1b)
	prefix := chunk
	var rest []byte
	if idx >= 0 {
		prefix = chunk[:idx]
		rest = chunk[idx:]
	}

	e.pagelet.size += len(prefix)
	if e.pagelet.size <= MaxPageletBytes {
		e.pagelet.buf.Write(prefix)
	}

	if idx < 0 {
		return nil
	}

	e.finishPagelet()
	return rest
}

// finishPagelet dispatches the completed pagelet capture and clears the
// capture state.
func (e *Emulator) finishPagelet() {
	p := e.pagelet
	e.pagelet = nil

	if p.size > MaxPageletBytes {
		e.dispatchErrorPagelet(fmt.Sprintf("%s (%d bytes, limit %d)", ErrPageletTooLarge, p.size, MaxPageletBytes))
		return
	}

	if p.code == 1150 {
		dir := p.buf.String()
		if dir != "" {
			e.ExpectPrompt(dir)
		}
		return
	}

	if p.buf.Len() == 0 {
		return
	}

	e.Update()
	content := strings.TrimLeft(p.buf.String(), " \t\r\n")
	headers, body := parsePageletHeaders(content)
	responseType, _ := headers["x_gterm_response"].(string)

	sb := e.screenBuf
	if e.notebook != nil {
		sb = e.notebook.screenBuf
	}

	if !p.validated {
		plain := stripHTML(body)
		if responseType != "" {
			headers["x_gterm_response"] = "pagelet"
			headers["x_gterm_parameters"] = map[string]any{}
			headers["content_length"] = len(plain)
			e.graphtermOutput(headers, []byte(plain))
		} else {
			lines := strings.Split(strings.ReplaceAll(strings.ReplaceAll(plain, "\r\n", "\n"), "\r", "\n"), "\n")
			sb.ScrollBufUp(lines[0]+"...", nil, 0, RowParams{})
		}
		return
	}

	switch responseType {
	case "edit_file":
		// File content is supplied by the caller out-of-band (the emulator
		// has no filesystem access); an edit_file pagelet whose body is
		// already the file content is rendered directly.
		sb.ScrollBufUp("", nil, 0, RowParams{
			Kind: RowEditFile,
			Options: PageletOptions{
				Headers: stringHeaders(headers),
			},
		}, body)
	case "":
		params, _ := headers["x_gterm_parameters"].(map[string]any)
		e.dispatchRawHTML(sb, body, stringHeaders(params))
	case "create_blob":
		params, _ := headers["x_gterm_parameters"].(map[string]any)
		blobID, _ := params["blob"].(string)
		if blobID != "" {
			if _, ok := headers["content_length"]; ok {
				e.callback.Emit(Event{TermName: e.termName, Kind: EventCreateBlob, Args: CreateBlobArgs{
					BlobID:  blobID,
					Headers: stringHeaders(headers),
					Content: []byte(body),
				}})
			}
		}
	case "frame_msg":
		params, _ := headers["x_gterm_parameters"].(map[string]any)
		user, _ := params["user"].(string)
		frame, _ := params["frame"].(string)
		e.callback.Emit(Event{TermName: e.termName, Kind: EventFrameMsg, Args: FrameMsgArgs{
			User: user, Frame: frame, Content: body,
		}})
	default:
		headers["content_length"] = len(body)
		e.graphtermOutput(headers, []byte(body))
	}
}

// dispatchRawHTML retires an unrecognized (response-type-less) pagelet as
// raw HTML content. headerParams, when non-nil, is the x_gterm_parameters
// dict from the pagelet's JSON header block; a "<!--gterm KIND
// opt=val...-->" directive at the start of the body, if present, overrides
// those values with its own options (matching the original's two possible
// sources of row options: the response's own parameter dict, and the
// content's own directive comment).
func (e *Emulator) dispatchRawHTML(sb *ScreenBuf, body string, headerParams map[string]string) {
	opts := make(map[string]string, len(headerParams))
	for k, v := range headerParams {
		opts[k] = v
	}
	kind := RowPagelet
	if m := gtermDirectiveRe.FindStringSubmatch(body); m != nil {
		body = body[len(m[0]):]
		kind = kindFromDirective(m[1])
		for k, v := range parseDirectiveOptions(m[2]) {
			opts[k] = v
		}
	}
	sb.ScrollBufUp("", nil, 0, RowParams{
		Kind:    kind,
		Options: pageletOptionsFromMap(opts),
	}, body)
}

func kindFromDirective(kind string) RowKind {
	if kind == "edit_file" {
		return RowEditFile
	}
	return RowPagelet
}

// parseDirectiveOptions parses a directive's "name=value ..." option string,
// URL-decoding each value (the original passes these through
// urllib.unquote, since a directive value may itself contain characters
// (spaces, '&') that need escaping to survive as one whitespace-delimited
// component).
func parseDirectiveOptions(opts string) map[string]string {
	out := map[string]string{}
	for _, comp := range strings.Fields(opts) {
		name, value, _ := strings.Cut(comp, "=")
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		out[name] = value
	}
	return out
}

// pageletOptionsFromMap lifts the row-option keys the original's
// scroll_buf_up reads out of a pagelet's option dict (overwrite, blob,
// pagelet_id, add_class) into a PageletOptions.
func pageletOptionsFromMap(opts map[string]string) PageletOptions {
	return PageletOptions{
		Overwrite: isTruthy(opts["overwrite"]),
		Blob:      opts["blob"],
		PageletID: opts["pagelet_id"],
		AddClass:  opts["add_class"],
	}
}

// isTruthy reports whether an option value is set: the empty string and the
// literals "0", "false" and "False" are false, anything else is true.
func isTruthy(s string) bool {
	switch s {
	case "", "0", "false", "False":
		return false
	}
	return true
}

func (e *Emulator) dispatchErrorPagelet(message string) {
	sb := e.screenBuf
	if e.notebook != nil {
		sb = e.notebook.screenBuf
	}
	sb.ScrollBufUp("ERROR "+message, nil, 0, RowParams{Kind: RowPagelet})
}

// graphtermOutput emits a base64-encoded pagelet payload as an
// EventGraphtermOutput. The payload is not kept for re-sending: Reconnect
// replays scroll history only.
func (e *Emulator) graphtermOutput(headers map[string]any, content []byte) {
	e.callback.Emit(Event{
		TermName: e.termName,
		Kind:     EventGraphtermOutput,
		Args: GraphtermOutputArgs{
			Params:  stringHeaders(headers),
			Content: []byte(base64.StdEncoding.EncodeToString(content)),
		},
	})
}

func stringHeaders(headers map[string]any) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		default:
			if b, err := json.Marshal(vv); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

// parsePageletHeaders splits a pagelet's raw text into its JSON header
// object (or a default, response-type-less header set) and body, trying
// CRLF/LF/CR double-newline separators in that order, matching the
// original's parse_headers.
func parsePageletHeaders(text string) (map[string]any, string) {
	headers := map[string]any{
		"content_type":       "text/html",
		"x_gterm_response":   "",
		"x_gterm_parameters": map[string]any{},
	}
	if strings.HasPrefix(text, "<") {
		return headers, text
	}

	head, body, ok := cutDoubleNewline(text)
	if ok && strings.HasPrefix(head, "{") {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(head), &parsed); err == nil {
			headers = parsed
		} else {
			headers["json_error"] = "JSON parse error"
			headers["content_type"] = "text/plain"
			return headers, err.Error()
		}
	} else {
		body = text
	}

	if _, ok := headers["x_gterm_response"]; !ok {
		headers["x_gterm_response"] = ""
	}
	if _, ok := headers["x_gterm_parameters"]; !ok {
		headers["x_gterm_parameters"] = map[string]any{}
	}
	return headers, body
}

func cutDoubleNewline(text string) (head, body string, ok bool) {
	for _, sep := range []string{"\r\n\r\n", "\n\n", "\r\r"} {
		if h, b, found := strings.Cut(text, sep); found {
			return h, b, true
		}
	}
	return text, "", false
}

// stripHTML renders HTML content down to its text for unvalidated pagelets,
// where untrusted markup must not reach the front-end verbatim. The
// original shells out to lxml; here a conservative tag-stripping escape
// serves the same "never render raw untrusted markup" invariant without an
// HTML parser dependency the rest of the pack does not otherwise need.
func stripHTML(content string) string {
	var out strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return html.UnescapeString(out.String())
}
