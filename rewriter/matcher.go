package rewriter

import (
	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/term"
)

// binding maps a pattern variable name to the e-class it is bound to.
type binding map[string]egraph.ClassID

func (b binding) clone() binding {
	out := make(binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// matchClass returns every distinct binding extension under which pat
// matches some member e-node of cls. g is read through a stable snapshot
// view: the match phase never mutates the e-graph.
func matchClass(g *egraph.EGraph, pat *Pattern, cls egraph.ClassID, bind binding, commutative bool) []binding {
	cls = g.Find(cls)
	switch pat.kind {
	case patVar:
		if existing, ok := bind[pat.varName]; ok {
			if existing != cls {
				return nil
			}
			return []binding{bind}
		}
		nb := bind.clone()
		nb[pat.varName] = cls
		return []binding{nb}

	case patConst:
		for _, n := range g.NodesOf(cls) {
			if n.Tag == term.CONST && n.Const == pat.constVal {
				return []binding{bind}
			}
		}
		return nil

	default: // patOp
		var out []binding
		for _, n := range g.NodesOf(cls) {
			if n.Tag != pat.op || len(n.Children) != len(pat.children) {
				continue
			}
			children := g.ChildrenOf(n)
			out = append(out, matchChildren(g, pat.children, children, bind, commutative)...)
			if commutative && pat.op.Commutative() && len(pat.children) == 2 {
				swapped := []egraph.ClassID{children[1], children[0]}
				out = append(out, matchChildren(g, pat.children, swapped, bind, commutative)...)
			}
		}
		return out
	}
}

func matchChildren(g *egraph.EGraph, pats []*Pattern, classes []egraph.ClassID, bind binding, commutative bool) []binding {
	if len(pats) == 0 {
		return []binding{bind}
	}
	heads := matchClass(g, pats[0], classes[0], bind, commutative)
	var out []binding
	for _, b := range heads {
		out = append(out, matchChildren(g, pats[1:], classes[1:], b, commutative)...)
	}
	return out
}
