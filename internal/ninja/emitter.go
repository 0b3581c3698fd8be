package ninja

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fontpipe/fontpipe/internal/compiler"
)

// Error is a build-file emission fault.
type Error struct{ Err error }

func (e *Error) Error() string { return "ninja: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// DefaultFile is the conventional build file name.
const DefaultFile = "build.ninja"

// Emit writes the graph's build file: one rule per distinct rule name in
// sorted order, then one build statement per node sorted by output path.
// The same graph always yields the same bytes. When windows is set every
// command is wrapped with "cmd /c" so shell operators in rule templates
// keep working.
func Emit(w io.Writer, g *compiler.Graph, windows bool) error {
	nw := NewWriter(w)
	nw.Comment("generated by fontpipe, do not edit")
	nw.Newline()

	type ruleDef struct{ command, description string }
	rules := map[string]ruleDef{}
	for _, n := range g.BuildNodes() {
		op := n.Op()
		cmd := op.Rule()
		if windows {
			cmd = "cmd /c " + cmd
		}
		name := op.RuleName()
		if prev, ok := rules[name]; ok {
			if prev.command != cmd {
				return &Error{Err: fmt.Errorf("rule %s has conflicting commands", name)}
			}
			continue
		}
		rules[name] = ruleDef{command: cmd, description: op.Description()}
	}
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		nw.Rule(name, rules[name].command, rules[name].description)
		nw.Newline()
	}

	emitted := map[string]bool{}
	for _, n := range g.BuildNodes() {
		if emitted[n.Output()] {
			continue
		}
		emitted[n.Output()] = true
		op := n.Op()
		vars := op.Variables()
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kvs := make([][2]string, 0, len(keys))
		for _, k := range keys {
			kvs = append(kvs, [2]string{k, vars[k]})
		}
		nw.Build([]string{n.Output()}, op.RuleName(), op.Sources(), op.Implicit(), kvs)
	}
	return nw.Err()
}

// EmitFile renders the build file and writes it to path.
func EmitFile(path string, g *compiler.Graph, windows bool) error {
	var buf bytes.Buffer
	if err := Emit(&buf, g, windows); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &Error{Err: err}
	}
	return nil
}
