package optimizer

import (
	"fmt"
	"strings"
)

// tomlFile is a line-oriented view of a TOML document. Edits replace or
// append whole lines, so formatting and comments on untouched lines
// survive verbatim. Value inspection happens against a separately decoded
// document; the line view is only the write side.
type tomlFile struct {
	lines        []string
	crlf         bool
	finalNewline bool
}

func parseTOMLLines(content string) *tomlFile {
	crlf := strings.Contains(content, "\r\n")
	if crlf {
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}
	finalNewline := strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")

	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}
	return &tomlFile{lines: lines, crlf: crlf, finalNewline: finalNewline}
}

func (t *tomlFile) String() string {
	sep := "\n"
	if t.crlf {
		sep = "\r\n"
	}
	out := strings.Join(t.lines, sep)
	if t.finalNewline && len(t.lines) > 0 {
		out += sep
	}
	return out
}

// findTable returns the line span of the named table: start is the header
// line, end is one past the last body line.
func (t *tomlFile) findTable(name string) (start, end int, found bool) {
	depth := 0
	for i, line := range t.lines {
		if depth == 0 {
			if header, ok := tableHeaderName(line); ok && header == name {
				return i, t.tableEnd(i), true
			}
		}
		depth += bracketDelta(line)
	}
	return 0, 0, false
}

// tableEnd scans forward from a header line to the next table boundary.
func (t *tomlFile) tableEnd(header int) int {
	depth := 0
	for i := header + 1; i < len(t.lines); i++ {
		if depth == 0 && isTableBoundaryLine(t.lines[i]) {
			return i
		}
		depth += bracketDelta(t.lines[i])
	}
	return len(t.lines)
}

// ensureTable returns the span of the named table, appending a fresh
// header at the end of the file when the table does not exist yet.
func (t *tomlFile) ensureTable(name string) (start, end int) {
	if s, e, ok := t.findTable(name); ok {
		return s, e
	}
	if len(t.lines) > 0 && strings.TrimSpace(t.lines[len(t.lines)-1]) != "" {
		t.lines = append(t.lines, "")
	}
	t.lines = append(t.lines, "["+name+"]")
	t.finalNewline = true
	return len(t.lines) - 1, len(t.lines)
}

// findKey locates a key's assignment line within a table span, skipping
// lines that continue a multi-line value.
func (t *tomlFile) findKey(start, end int, key string) (int, bool) {
	depth := 0
	for i := start + 1; i < end; i++ {
		if depth == 0 {
			if k, ok := lineKeyName(t.lines[i]); ok && k == key {
				return i, true
			}
		}
		depth += bracketDelta(t.lines[i])
	}
	return 0, false
}

// valueSpan returns one past the last line of the value starting on line
// idx. Single-line values span exactly one line; multi-line arrays extend
// until their brackets balance.
func (t *tomlFile) valueSpan(idx int) int {
	depth := bracketDelta(t.lines[idx])
	i := idx + 1
	for depth > 0 && i < len(t.lines) {
		depth += bracketDelta(t.lines[i])
		i++
	}
	return i
}

// setKey writes "key = value" into the table span, replacing an existing
// assignment (including continuation lines) or appending after the last
// non-blank body line. A trailing comment on a replaced single-line
// assignment is kept. Returns the table span's new end.
func (t *tomlFile) setKey(start, end int, key, value string) int {
	if idx, ok := t.findKey(start, end, key); ok {
		span := t.valueSpan(idx)
		line := getIndentation(t.lines[idx]) + key + " = " + value
		if span == idx+1 {
			if _, comment := splitValueAndComment(afterAssign(t.lines[idx])); comment != "" {
				line += " " + comment
			}
		}
		t.splice(idx, span, []string{line})
		return end - (span - idx) + 1
	}

	insert := end
	for insert > start+1 && strings.TrimSpace(t.lines[insert-1]) == "" {
		insert--
	}
	t.splice(insert, insert, []string{key + " = " + value})
	return end + 1
}

// replaceLine swaps a single line for a new one.
func (t *tomlFile) replaceLine(idx int, line string) {
	t.lines[idx] = line
}

func (t *tomlFile) splice(start, end int, replacement []string) {
	out := make([]string, 0, len(t.lines)-(end-start)+len(replacement))
	out = append(out, t.lines[:start]...)
	out = append(out, replacement...)
	out = append(out, t.lines[end:]...)
	t.lines = out
}

// tableHeaderName extracts the dotted name from a "[a.b.c]" header line.
// Array-of-table headers ("[[...]]") are not matched.
func tableHeaderName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "[[") {
		return "", false
	}
	closing := strings.Index(trimmed, "]")
	if closing < 0 {
		return "", false
	}
	parts := strings.Split(trimmed[1:closing], ".")
	for i, part := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(part), `"'`)
	}
	return strings.Join(parts, "."), true
}

// isTableBoundaryLine reports whether a depth-zero line starts a new table.
func isTableBoundaryLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "[")
}

// lineKeyName extracts the key from a "key = value" line.
func lineKeyName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	eq := strings.Index(trimmed, "=")
	if eq < 0 {
		return "", false
	}
	key := strings.Trim(strings.TrimSpace(trimmed[:eq]), `"'`)
	if key == "" {
		return "", false
	}
	return key, true
}

// getIndentation extracts the leading whitespace from a line.
func getIndentation(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// afterAssign returns the text following the first "=" on a line.
func afterAssign(line string) string {
	if eq := strings.Index(line, "="); eq >= 0 {
		return line[eq+1:]
	}
	return ""
}

// scanOutsideStrings calls visit for every byte position not inside a
// quoted string. visit returns false to stop the scan early.
func scanOutsideStrings(line string, visit func(i int, c byte) bool) {
	inBasic, inLiteral := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inBasic:
			if c == '\\' {
				i++
			} else if c == '"' {
				inBasic = false
			}
		case inLiteral:
			if c == '\'' {
				inLiteral = false
			}
		case c == '"':
			inBasic = true
		case c == '\'':
			inLiteral = true
		default:
			if !visit(i, c) {
				return
			}
		}
	}
}

// commentIndex returns the byte offset where a trailing comment begins, or
// -1 when the line has none.
func commentIndex(line string) int {
	pos := -1
	scanOutsideStrings(line, func(i int, c byte) bool {
		if c == '#' {
			pos = i
			return false
		}
		return true
	})
	return pos
}

// bracketDelta returns the net change in array bracket depth across a
// line, ignoring brackets inside strings and comments.
func bracketDelta(line string) int {
	depth := 0
	scanOutsideStrings(line, func(_ int, c byte) bool {
		switch c {
		case '#':
			return false
		case '[':
			depth++
		case ']':
			depth--
		}
		return true
	})
	return depth
}

// splitValueAndComment separates a raw value text from its trailing
// comment.
func splitValueAndComment(text string) (string, string) {
	if idx := commentIndex(text); idx >= 0 {
		return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx:])
	}
	return strings.TrimSpace(text), ""
}

// insertIntoInlineTable adds entries before the closing brace of a
// single-line inline table, keeping the existing entries verbatim.
func insertIntoInlineTable(line string, entries []string) (string, bool) {
	closeBrace := -1
	scanOutsideStrings(line, func(i int, c byte) bool {
		switch c {
		case '#':
			return false
		case '}':
			closeBrace = i
		}
		return true
	})
	if closeBrace < 0 {
		return line, false
	}

	head := strings.TrimRight(line[:closeBrace], " \t")
	sep := ", "
	if strings.HasSuffix(head, "{") {
		sep = " "
	}
	return head + sep + strings.Join(entries, ", ") + " " + line[closeBrace:], true
}

// appendToInlineArray appends string entries before the closing bracket of
// the named array inside an inline-table line.
func appendToInlineArray(line, key string, entries []string) (string, bool) {
	keyPos := findInlineKey(line, key)
	if keyPos < 0 {
		return line, false
	}

	open := -1
	for i := keyPos + len(key); i < len(line); i++ {
		c := line[i]
		if c == ' ' || c == '\t' || c == '=' {
			continue
		}
		if c == '[' {
			open = i
		}
		break
	}
	if open < 0 {
		return line, false
	}

	depth := 0
	closeBracket := -1
	scanOutsideStrings(line[open:], func(i int, c byte) bool {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				closeBracket = open + i
				return false
			}
		}
		return true
	})
	if closeBracket < 0 {
		return line, false
	}

	head := strings.TrimRight(line[:closeBracket], " \t")
	sep := ", "
	if strings.HasSuffix(head, "[") {
		sep = ""
	}
	quoted := make([]string, len(entries))
	for i, entry := range entries {
		quoted[i] = renderTOMLString(entry)
	}
	return head + sep + strings.Join(quoted, ", ") + line[closeBracket:], true
}

// findInlineKey returns the position of a bare key inside an inline-table
// line, or -1. Key matches require a boundary character before the key and
// an "=" after it, so "features" never matches inside "default-features".
func findInlineKey(line, key string) int {
	pos := -1
	scanOutsideStrings(line, func(i int, c byte) bool {
		if c == '#' {
			return false
		}
		if !strings.HasPrefix(line[i:], key) {
			return true
		}
		if i > 0 {
			switch line[i-1] {
			case ' ', '\t', '{', ',':
			default:
				return true
			}
		}
		rest := strings.TrimLeft(line[i+len(key):], " \t")
		if strings.HasPrefix(rest, "=") {
			pos = i
			return false
		}
		return true
	})
	return pos
}

func renderTOMLString(s string) string {
	return `"` + s + `"`
}

func renderTOMLBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func renderTOMLArray(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = renderTOMLString(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// tableAt walks nested tables inside a decoded document. It returns nil
// with no error when a level is absent, and an error naming the offending
// dotted path when a level holds a non-table value.
func tableAt(doc map[string]any, path ...string) (map[string]any, error) {
	current := doc
	for i, key := range path {
		next, ok := current[key]
		if !ok {
			return nil, nil
		}
		table, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s is not a table", strings.Join(path[:i+1], "."))
		}
		current = table
	}
	return current, nil
}

func hasKey(table map[string]any, key string) bool {
	if table == nil {
		return false
	}
	_, ok := table[key]
	return ok
}

func stringAt(table map[string]any, key string) (string, bool) {
	if table == nil {
		return "", false
	}
	s, ok := table[key].(string)
	return s, ok
}

func intAt(table map[string]any, key string) (int64, bool) {
	if table == nil {
		return 0, false
	}
	n, ok := table[key].(int64)
	return n, ok
}

func boolAt(table map[string]any, key string) (bool, bool) {
	if table == nil {
		return false, false
	}
	b, ok := table[key].(bool)
	return b, ok
}

// stringsAt returns the string elements of an array value. Elements of
// other types are dropped, matching how flag arrays are compared.
func stringsAt(table map[string]any, key string) ([]string, bool) {
	if table == nil {
		return nil, false
	}
	raw, ok := table[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
