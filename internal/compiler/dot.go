package compiler

import (
	"fmt"
	"strings"
)

// DOT renders the graph in Graphviz format. Source roots are ellipses
// labelled with their path; operation nodes are boxes labelled with their
// kind and output. Output is stable across runs.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph build {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, n := range g.nodes {
		if n.op == nil {
			fmt.Fprintf(&b, "  n%d [shape=ellipse, label=%q];\n", n.id, n.path)
		} else {
			fmt.Fprintf(&b, "  n%d [shape=box, label=%q];\n",
				n.id, n.op.Kind()+"\n"+n.path)
		}
	}
	for _, n := range g.nodes {
		for _, in := range n.inputs {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", in.id, n.id)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
