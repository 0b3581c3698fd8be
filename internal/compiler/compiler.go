// Package compiler turns a recipe into a build graph: a DAG whose leaves
// are source files and whose interior nodes are operations with resolved
// inputs and outputs.
//
// Chains are compiled shortest-first so that a chain extending another
// (webfont and slim variants clone their base chain and append steps)
// reuses the base chain's nodes instead of rebuilding them. Intermediate
// nodes that no target claims get deterministic names under the scratch
// directory, derived from their input and parameters, so recompiling an
// unchanged recipe reproduces the graph byte for byte.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/fontpipe/fontpipe/internal/config"
	"github.com/fontpipe/fontpipe/internal/ops"
	"github.com/fontpipe/fontpipe/internal/recipe"
	"github.com/fontpipe/fontpipe/internal/source"
)

// Node is one vertex of the build graph. Source roots have a nil Op.
type Node struct {
	id     uint32
	op     ops.Operation
	path   string // nominal output, or the file path for source roots
	art    string // artifact a consumer reads, differs from path for in-place ops
	inputs []*Node

	// provenance for diagnostics
	target string
	step   int
}

func (n *Node) ID() uint32        { return n.id }
func (n *Node) Op() ops.Operation { return n.op }
func (n *Node) IsSource() bool    { return n.op == nil }
func (n *Node) Output() string    { return n.path }
func (n *Node) Artifact() string  { return n.art }
func (n *Node) Inputs() []*Node   { return n.inputs }

// Graph is the compiled DAG plus the target index.
type Graph struct {
	nodes    []*Node
	sources  map[string]*Node
	finals   map[string]*Node
	closures []closure
}

// Targets lists the declared recipe targets, sorted.
func (g *Graph) Targets() []string {
	out := make([]string, 0, len(g.finals))
	for t := range g.finals {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TargetNode returns the node producing a declared target.
func (g *Graph) TargetNode(target string) (*Node, bool) {
	n, ok := g.finals[target]
	return n, ok
}

// Nodes returns every node in creation order. Inputs always precede their
// consumers.
func (g *Graph) Nodes() []*Node { return g.nodes }

// BuildNodes returns the operation nodes sorted by output path, the order
// build statements are emitted in.
func (g *Graph) BuildNodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.op != nil {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// SourcePaths lists the distinct source files the graph reads, sorted.
func (g *Graph) SourcePaths() []string {
	out := make([]string, 0, len(g.sources))
	for p := range g.sources {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type pendingPost struct {
	target string
	step   int
	s      recipe.Step
}

type compilation struct {
	cfg      *config.Config
	catalog  *source.Catalog
	g        *Graph
	dedup    map[string]*Node
	claimed  map[*Node]string
	deferred []pendingPost
}

// Compile builds the graph for a recipe. The catalog backs instance lookups
// for operations that introspect their input.
func Compile(cfg *config.Config, r recipe.Recipe, catalog *source.Catalog) (*Graph, error) {
	c := &compilation{
		cfg:     cfg,
		catalog: catalog,
		g: &Graph{
			sources: map[string]*Node{},
			finals:  map[string]*Node{},
		},
		dedup:   map[string]*Node{},
		claimed: map[*Node]string{},
	}

	// Shorter chains first so extended clones find their prefix nodes
	// already compiled.
	targets := r.Targets()
	sort.SliceStable(targets, func(i, j int) bool {
		li, lj := len(r[targets[i]]), len(r[targets[j]])
		if li != lj {
			return li < lj
		}
		return targets[i] < targets[j]
	})

	for _, target := range targets {
		if err := c.walkChain(target, r[target]); err != nil {
			return nil, err
		}
	}
	if err := c.resolvePostprocess(); err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	c.g.buildClosures()
	return c.g, nil
}

func (c *compilation) walkChain(target string, steps []recipe.Step) error {
	if len(steps) == 0 {
		return &recipe.Error{Target: target, Step: -1, Err: fmt.Errorf("empty step chain")}
	}
	if !steps[0].IsSource() {
		return &recipe.Error{Target: target, Step: 0, Err: fmt.Errorf("chain must start with a source step")}
	}
	cur := c.sourceNode(steps[0].Source)

	lastOp := -1
	for i, s := range steps {
		if i > 0 && !s.IsSource() && s.PostProcess == "" {
			lastOp = i
		}
	}

	for i := 1; i < len(steps); i++ {
		s := steps[i]
		switch {
		case s.IsSource():
			return &recipe.Error{Target: target, Step: i, Err: fmt.Errorf("source step after the chain root")}
		case s.PostProcess != "":
			c.deferred = append(c.deferred, pendingPost{target: target, step: i, s: s})
		default:
			if len(s.Needs) > 0 {
				return &recipe.Error{Target: target, Step: i,
					Err: fmt.Errorf("needs is only valid on postprocess steps")}
			}
			key := dedupKey(cur, s.Operation, s.Params)
			final := i == lastOp
			if !final {
				if n, ok := c.dedup[key]; ok {
					cur = n
					continue
				}
			}
			op, err := ops.New(s.Operation, s.Params, false)
			if err != nil {
				return &recipe.Error{Target: target, Step: i, Err: err}
			}
			n := c.addNode(op, []*Node{cur}, target, i)
			if final {
				c.claimed[n] = target
			}
			if _, taken := c.dedup[key]; !taken {
				c.dedup[key] = n
			}
			cur = n
		}
	}
	c.g.finals[target] = cur
	return nil
}

// resolvePostprocess runs after every chain is compiled so needs references
// resolve regardless of target order.
func (c *compilation) resolvePostprocess() error {
	for _, p := range c.deferred {
		op, err := ops.New(p.s.PostProcess, p.s.Params, true)
		if err != nil {
			return &recipe.Error{Target: p.target, Step: p.step, Err: err}
		}
		inputs := []*Node{c.g.finals[p.target]}
		for _, need := range p.s.Needs {
			n, ok := c.g.finals[need]
			if !ok {
				return &recipe.Error{Target: p.target, Step: p.step,
					Err: fmt.Errorf("needs reference %q does not resolve to a declared target", need)}
			}
			inputs = append(inputs, n)
		}
		c.addNode(op, inputs, p.target, p.step)
	}
	return nil
}

func (c *compilation) sourceNode(path string) *Node {
	clean := filepath.Clean(path)
	if n, ok := c.g.sources[clean]; ok {
		return n
	}
	n := &Node{id: uint32(len(c.g.nodes)), path: clean, art: clean}
	c.g.nodes = append(c.g.nodes, n)
	c.g.sources[clean] = n
	return n
}

func (c *compilation) addNode(op ops.Operation, inputs []*Node, target string, step int) *Node {
	if su, ok := op.(ops.ScratchUser); ok {
		su.SetScratchDir(ops.ScratchDirName)
	}
	if sr, ok := op.(interface{ SetSourceResolver(ops.SourceResolver) }); ok {
		sr.SetSourceResolver(c.catalog.Describe)
	}
	n := &Node{
		id:     uint32(len(c.g.nodes)),
		op:     op,
		inputs: inputs,
		target: target,
		step:   step,
	}
	c.g.nodes = append(c.g.nodes, n)
	return n
}

// finish wires inputs, assigns outputs and validates, in creation order so
// every node's inputs are already resolved.
func (c *compilation) finish() error {
	for _, n := range c.g.nodes {
		if n.op == nil {
			continue
		}
		in := n.inputs[0]
		n.op.AddSource(in.art)
		if in.op != nil && in.op.Output() != in.art {
			// In-place producer: order behind its stamp.
			n.op.AddImplicit(in.op.Output())
		}
		for _, extra := range n.inputs[1:] {
			n.op.AddImplicit(extra.art)
		}
		c.addGlyphDataDeps(n)

		if err := c.assignOutput(n, in.art); err != nil {
			return err
		}
		n.path = n.op.Output()
		n.art = n.op.Artifact()

		if err := n.op.Validate(); err != nil {
			return &recipe.Error{Target: n.target, Step: n.step, Err: err}
		}
		if m, ok := n.op.(ops.Materializer); ok {
			if err := m.Materialize(); err != nil {
				return &recipe.Error{Target: n.target, Step: n.step, Err: err}
			}
		}
	}
	return nil
}

func (c *compilation) assignOutput(n *Node, input string) error {
	target, isFinal := c.claimed[n]
	if d, ok := n.op.(ops.TargetDeriver); ok {
		derived, err := d.DeriveTarget(input)
		if err != nil {
			return &recipe.Error{Target: n.target, Step: n.step, Err: err}
		}
		if isFinal && filepath.Clean(derived) != filepath.Clean(target) {
			return &recipe.Error{Target: n.target, Step: n.step,
				Err: fmt.Errorf("%s derives its own target %s and cannot produce %s",
					n.op.Kind(), derived, target)}
		}
		return nil
	}
	a, ok := n.op.(ops.TargetAssigner)
	if !ok {
		return &recipe.Error{Target: n.target, Step: n.step,
			Err: fmt.Errorf("%s cannot be given a target", n.op.Kind())}
	}
	if isFinal {
		a.AssignTarget(target)
		return nil
	}
	a.AssignTarget(intermediateName(input, n.op))
	return nil
}

// addGlyphDataDeps makes configured glyph data files order the fontmake
// family of operations.
func (c *compilation) addGlyphDataDeps(n *Node) {
	if len(c.cfg.GlyphData) == 0 {
		return
	}
	switch n.op.Kind() {
	case "buildVariable", "buildTTF", "buildOTF", "instantiateUfo", "glyphs2ds":
		for _, gd := range c.cfg.GlyphData {
			n.op.AddImplicit(gd)
		}
	}
}

// dedupKey identifies a step by its input node, kind and parameters. Two
// chains sharing a prefix hash to the same keys and share nodes.
func dedupKey(input *Node, kind string, params map[string]any) string {
	return fmt.Sprintf("%d|%s|%s", input.id, kind, oj.JSON(params, &oj.Options{Sort: true}))
}

// intermediateName places an unclaimed node's output in the scratch
// directory, named by input stem, kind and a parameter digest so reruns and
// sibling chains agree on it.
func intermediateName(input string, op ops.Operation) string {
	sum := sha256.Sum256([]byte(op.Kind() + "|" + input + "|" + oj.JSON(opParams(op), &oj.Options{Sort: true})))
	ext := filepath.Ext(input)
	if oe, ok := op.(ops.OutputExtension); ok {
		ext = oe.OutputExt()
	}
	stem := filepath.Base(input)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return filepath.Join(ops.ScratchDirName,
		fmt.Sprintf("%s.%s.%s%s", stem, op.Kind(), hex.EncodeToString(sum[:4]), ext))
}

func opParams(op ops.Operation) map[string]string { return op.Variables() }
