package compiler

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

type closure = *roaring.Bitmap

// buildClosures computes each node's transitive input set. Nodes are stored
// with inputs preceding consumers, so one forward pass suffices.
func (g *Graph) buildClosures() {
	g.closures = make([]closure, len(g.nodes))
	for i, n := range g.nodes {
		bm := roaring.New()
		for _, in := range n.inputs {
			bm.Add(in.id)
			bm.Or(g.closures[in.id])
		}
		g.closures[i] = bm
	}
}

// TransitiveSources returns the source files a declared target ultimately
// depends on, sorted. The second return is false for unknown targets.
func (g *Graph) TransitiveSources(target string) ([]string, bool) {
	n, ok := g.finals[target]
	if !ok {
		return nil, false
	}
	var out []string
	if n.op == nil {
		return []string{n.path}, true
	}
	it := g.closures[n.id].Iterator()
	for it.HasNext() {
		dep := g.nodes[it.Next()]
		if dep.op == nil {
			out = append(out, dep.path)
		}
	}
	sort.Strings(out)
	return out, true
}

// DependsOn reports whether target transitively consumes the other node's
// output.
func (g *Graph) DependsOn(target string, other *Node) bool {
	n, ok := g.finals[target]
	if !ok || n.op == nil {
		return false
	}
	return g.closures[n.id].Contains(other.id)
}
