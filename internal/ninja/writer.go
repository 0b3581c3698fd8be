// Package ninja writes build files for the external ninja executor.
package ninja

import (
	"fmt"
	"io"
	"strings"
)

// Writer emits ninja syntax. It performs the path and value escaping the
// format requires; callers hand it plain strings.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Err returns the first write error, if any.
func (w *Writer) Err() error { return w.err }

func (w *Writer) line(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format+"\n", args...)
}

func (w *Writer) Comment(text string) { w.line("# %s", text) }

func (w *Writer) Newline() { w.line("") }

func (w *Writer) Variable(name, value string, indent int) {
	w.line("%s%s = %s", strings.Repeat("  ", indent), name, value)
}

func (w *Writer) Rule(name, command, description string) {
	w.line("rule %s", name)
	w.Variable("command", command, 1)
	if description != "" {
		w.Variable("description", description+" $out", 1)
	}
}

// Build writes one build statement. vars are emitted in the order given.
func (w *Writer) Build(outputs []string, rule string, inputs, implicit []string, vars [][2]string) {
	var b strings.Builder
	b.WriteString("build ")
	b.WriteString(joinPaths(outputs))
	b.WriteString(": ")
	b.WriteString(rule)
	if len(inputs) > 0 {
		b.WriteString(" ")
		b.WriteString(joinPaths(inputs))
	}
	if len(implicit) > 0 {
		b.WriteString(" | ")
		b.WriteString(joinPaths(implicit))
	}
	w.line("%s", b.String())
	for _, kv := range vars {
		w.Variable(kv[0], kv[1], 1)
	}
}

func joinPaths(paths []string) string {
	escaped := make([]string, len(paths))
	for i, p := range paths {
		escaped[i] = escapePath(p)
	}
	return strings.Join(escaped, " ")
}

// escapePath quotes the characters ninja treats specially in path position.
func escapePath(p string) string {
	p = strings.ReplaceAll(p, "$", "$$")
	p = strings.ReplaceAll(p, " ", "$ ")
	p = strings.ReplaceAll(p, ":", "$:")
	return p
}
