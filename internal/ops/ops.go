// Package ops defines the operation model: the closed set of transformation
// kinds a build graph node can perform, each with a command rule template,
// parameter validation, and target-derivation behavior.
//
// Operations come in two capability shapes. Most accept a caller-assigned
// target path (they implement TargetAssigner); a few derive their target
// from their input and reject assignment entirely (they implement
// TargetDeriver instead). The compiler picks the path based on which
// interface the concrete type satisfies, so "forbidden target override" is
// a property of the type, not a runtime flag.
package ops

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Operation is one transformation node in the build graph.
type Operation interface {
	// Kind is the semantic operation name as spelled in recipes.
	Kind() string
	// RuleName names the emitted rule. It differs from Kind only where one
	// conceptual kind emits distinct rule templates (buildStat's
	// postprocess variant).
	RuleName() string
	Description() string
	// Rule is the command template with $in, $out and named placeholders.
	Rule() string
	// Validate fails fast on missing or malformed parameters.
	Validate() error
	// Variables resolves the named placeholders for this node.
	Variables() map[string]string

	// Output is the nominal build output declared to the executor.
	Output() string
	// Artifact is the file a following chain step consumes. It equals
	// Output except for in-place operations, whose Output is a stamp file.
	Artifact() string

	Sources() []string
	AddSource(path string)
	Implicit() []string
	AddImplicit(path string)

	// Postprocess reports whether this node spans already-built targets
	// rather than extending a single chain.
	Postprocess() bool
}

// TargetAssigner marks operations whose target is caller-assigned.
type TargetAssigner interface {
	AssignTarget(path string)
}

// TargetDeriver marks operations whose target is fully determined by their
// input; the compiler must not assign one.
type TargetDeriver interface {
	DeriveTarget(input string) (string, error)
}

// OutputExtension is implemented by kinds that force a fixed output file
// extension regardless of input (builders, compressors).
type OutputExtension interface {
	OutputExt() string
}

// ScratchUser receives the run-scoped scratch directory before target
// derivation; operations that own private auxiliary artifacts place them
// there.
type ScratchUser interface {
	SetScratchDir(dir string)
}

// Materializer creates an operation's auxiliary artifacts (scratch
// directories, parameter files) before its targets are exposed.
type Materializer interface {
	Materialize() error
}

// Base carries the state shared by every operation kind.
type Base struct {
	kind     string
	rule     string
	params   map[string]any
	sources  []string
	target   string
	implicit []string
}

func newBase(kind, rule string, params map[string]any) Base {
	if params == nil {
		params = map[string]any{}
	}
	return Base{kind: kind, rule: rule, params: params}
}

func (b *Base) Kind() string            { return b.kind }
func (b *Base) RuleName() string        { return b.kind }
func (b *Base) Description() string     { return descriptions[b.kind] }
func (b *Base) Rule() string            { return b.rule }
func (b *Base) Validate() error         { return nil }
func (b *Base) Output() string          { return b.target }
func (b *Base) Artifact() string        { return b.target }
func (b *Base) Sources() []string       { return b.sources }
func (b *Base) AddSource(path string)   { b.sources = append(b.sources, path) }
func (b *Base) Implicit() []string      { return b.implicit }
func (b *Base) AddImplicit(path string) { b.implicit = append(b.implicit, path) }
func (b *Base) Postprocess() bool       { return false }

// ScratchDirName is the run-scoped directory, relative to the config file's
// directory, where operations and providers place auxiliary artifacts.
const ScratchDirName = ".fontpipe"

// reserved step keys that never become rule variables.
var reservedKeys = map[string]bool{
	"source": true, "operation": true, "postprocess": true,
	"needs": true, "target": true,
}

// Variables exposes scalar step parameters as rule variables. Kinds with
// structured parameters override this to render them.
func (b *Base) Variables() map[string]string {
	vars := make(map[string]string)
	for k, v := range b.params {
		if reservedKeys[k] {
			continue
		}
		switch tv := v.(type) {
		case string:
			vars[k] = tv
		case bool:
			vars[k] = fmt.Sprintf("%v", tv)
		case int:
			vars[k] = fmt.Sprintf("%d", tv)
		case float64:
			vars[k] = fmt.Sprintf("%g", tv)
		}
	}
	return vars
}

func (b *Base) stringParam(key string) string {
	s, _ := b.params[key].(string)
	return s
}

func (b *Base) hasParam(key string) bool {
	_, ok := b.params[key]
	return ok
}

func (b *Base) firstSource() string {
	if len(b.sources) == 0 {
		return ""
	}
	return b.sources[0]
}

// requireParam is the common validation failure for absent parameters.
func (b *Base) requireParam(key string) error {
	if !b.hasParam(key) {
		return fmt.Errorf("%s: required parameter %q is missing", b.kind, key)
	}
	return nil
}

// assignTarget is shared by every TargetAssigner kind.
func (b *Base) AssignTarget(path string) { b.target = path }

// Factory builds a concrete operation from recipe step parameters.
type Factory func(params map[string]any) Operation

var (
	factories     = map[string]Factory{}
	postFactories = map[string]Factory{}
	descriptions  = map[string]string{}
)

func register(kind, description string, f Factory) {
	factories[kind] = f
	descriptions[kind] = description
}

func registerPost(kind string, f Factory) {
	postFactories[kind] = f
}

// New constructs an operation node for a recipe step. Unknown kinds are an
// error; so is using a kind as a postprocess step when it cannot span
// multiple targets.
func New(kind string, params map[string]any, postprocess bool) (Operation, error) {
	if postprocess {
		f, ok := postFactories[kind]
		if !ok {
			return nil, fmt.Errorf("operation %q cannot be used as a postprocess step", kind)
		}
		return f(params), nil
	}
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", kind)
	}
	return f(params), nil
}

// Known reports whether kind names a registered operation.
func Known(kind string) bool {
	_, ok := factories[kind]
	return ok
}

// Kinds lists every registered operation kind, sorted.
func Kinds() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Describe returns the human-readable description of a kind.
func Describe(kind string) string { return descriptions[kind] }

// stemOf strips the extension from a path's basename, treating the
// double-barrelled ".ufo.json" instance format as one extension.
func stemOf(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".json")
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
