package extract

import (
	"time"

	"github.com/draffensperger/golp"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/term"
)

// bigM bounds the largest depth value the model needs to represent; it
// must exceed any achievable circuit depth so the "only binding when this
// node is selected" relaxation in the depth constraints below has no
// effect when the node is not selected.
const bigM = 1 << 16

// ILP implements the exact 0-1 integer-program extractor: one binary
// "class used" variable per e-class, one binary "node selected" variable
// per e-node, and one continuous depth variable per e-class, tying them
// together so the optimum of the objective is a depth-bounded extraction
// with the fewest selected AND e-nodes (minimum MC). Solved via golp's lp_solve
// binding, the same mixed-integer solver style the original Rust
// implementation's ILP extractor used.
type ILP struct {
	g         *egraph.EGraph
	bound     int // -1 means unbounded
	timeLimit time.Duration
}

// ILPOption configures an ILP extractor.
type ILPOption func(*ILP)

// WithILPDepthBound enforces d(root) <= b as a hard linear constraint for
// every root class, rather than the soft preference the greedy extractor
// uses.
func WithILPDepthBound(b int) ILPOption { return func(e *ILP) { e.bound = b } }

// WithILPTimeLimit sets the wall-clock budget for one Extract call; once
// it has elapsed, Extract reports eqerr.ErrNoSolution. golp/lp_solve has
// no portable per-call cancellation hook, so this is enforced by a
// wall-clock check before and after the solver call rather than a
// solver-internal timeout: a solve already in progress is not interrupted.
func WithILPTimeLimit(d time.Duration) ILPOption { return func(e *ILP) { e.timeLimit = d } }

// NewILP constructs an ILP extractor over g.
func NewILP(g *egraph.EGraph, opts ...ILPOption) *ILP {
	e := &ILP{g: g, bound: -1, timeLimit: 30 * time.Second}
	for _, o := range opts {
		o(e)
	}
	return e
}

// nodeEntry is one e-node considered by the ILP, with its model column
// indices resolved.
type nodeEntry struct {
	class    egraph.ClassID
	node     egraph.NodeID
	n        *egraph.ENode
	children []egraph.ClassID
	col      int // 1-based lp_solve column of this node's selection variable
}

// Extract builds and solves the 0-1 program selecting exactly one e-node
// per e-class reachable from roots, minimizing the number of selected AND
// e-nodes (MC) subject to each root's depth variable respecting the
// configured bound. Returns eqerr.ErrNoSolution if the model is
// infeasible, the solver times out, or roots is empty.
func (e *ILP) Extract(roots []egraph.ClassID) (map[egraph.ClassID]*TermInfo, error) {
	if len(roots) == 0 {
		return nil, eqerr.ErrNoSolution
	}
	deadline := time.Now().Add(e.timeLimit)

	classes := e.g.Classes()
	classCol := make(map[egraph.ClassID]int, len(classes)) // y_c columns
	depthCol := make(map[egraph.ClassID]int, len(classes)) // d_c columns
	for i, c := range classes {
		classCol[c] = i + 1
	}
	nCols := len(classes)

	var entries []nodeEntry
	for _, c := range classes {
		for _, nid := range e.g.NodeIDsOf(c) {
			n := e.g.Node(nid)
			nCols++
			entries = append(entries, nodeEntry{
				class:    c,
				node:     nid,
				n:        n,
				children: e.g.ChildrenOf(n),
				col:      nCols,
			})
		}
	}
	for i, c := range classes {
		depthCol[c] = nCols + i + 1
	}
	nCols += len(classes)

	lp := golp.NewLP(0, nCols)

	// Objective: minimize MC, i.e. the number of selected AND e-nodes;
	// XOR/NOT/CONST/SYMBOL selections are free.
	obj := make([]float64, nCols+1)
	for _, ent := range entries {
		if ent.n.Tag == term.AND {
			obj[ent.col] = 1
		}
	}
	lp.SetObjFn(obj)
	lp.SetMinimize()

	for _, c := range classes {
		lp.SetBinary(classCol[c], true)
	}
	for _, ent := range entries {
		lp.SetBinary(ent.col, true)
	}
	for _, c := range classes {
		lp.SetBounds(depthCol[c], 0, float64(bigM))
	}

	roots_ := make(map[egraph.ClassID]bool, len(roots))
	for _, r := range roots {
		roots_[e.g.Find(r)] = true
	}
	// Every root class must be realized; non-root classes are used only
	// if some selected parent node references them (enforced below).
	for c := range roots_ {
		row := make([]float64, nCols+1)
		row[classCol[c]] = 1
		lp.AddConstraint(row, golp.EQ, 1)
	}

	// A used class selects exactly one member e-node.
	for _, c := range classes {
		row := make([]float64, nCols+1)
		for _, ent := range entries {
			if ent.class == c {
				row[ent.col] = 1
			}
		}
		row[classCol[c]] = -1
		lp.AddConstraint(row, golp.EQ, 0)
	}

	for _, ent := range entries {
		// Selecting a node requires its children's classes to be used.
		for _, ch := range ent.children {
			row := make([]float64, nCols+1)
			row[ent.col] = 1
			row[classCol[ch]] = -1
			lp.AddConstraint(row, golp.LE, 0)
		}

		// d_c >= weight(n) + d_child when n is selected (x_n=1); the
		// -bigM*x_n term drops the constraint to non-binding (d_c can be
		// anything already within [0,bigM]) when n is not selected, the
		// standard big-M linearization of an implication.
		weight := float64(ent.n.Tag.Weight())
		for _, ch := range ent.children {
			row := make([]float64, nCols+1)
			row[depthCol[ent.class]] = 1
			row[depthCol[ch]] = -1
			row[ent.col] = -bigM
			lp.AddConstraint(row, golp.GE, weight-bigM)
		}
		if len(ent.children) == 0 {
			row := make([]float64, nCols+1)
			row[depthCol[ent.class]] = 1
			row[ent.col] = -bigM
			lp.AddConstraint(row, golp.GE, weight-bigM)
		}
	}

	if e.bound >= 0 {
		for c := range roots_ {
			row := make([]float64, nCols+1)
			row[depthCol[c]] = 1
			lp.AddConstraint(row, golp.LE, float64(e.bound))
		}
	}

	if time.Now().After(deadline) {
		return nil, eqerr.ErrNoSolution
	}
	status := lp.Solve()
	if time.Now().After(deadline) {
		return nil, eqerr.ErrNoSolution
	}
	if status != golp.OPTIMAL && status != golp.SUBOPTIMAL {
		return nil, eqerr.ErrNoSolution
	}

	vals := lp.Variables()

	chosen := make(map[egraph.ClassID]*nodeEntry, len(classes))
	for i := range entries {
		ent := &entries[i]
		if vals[ent.col-1] > 0.5 {
			chosen[ent.class] = ent
		}
	}

	out := make(map[egraph.ClassID]*TermInfo, len(chosen))
	for c, ent := range chosen {
		out[c] = &TermInfo{
			Class:    c,
			Node:     ent.node,
			Tag:      ent.n.Tag,
			Children: ent.children,
		}
	}
	fillCostsFromGraph(out)

	for r := range roots_ {
		if _, ok := out[r]; !ok {
			return nil, eqerr.ErrNoSolution
		}
	}
	return out, nil
}

// fillCostsFromGraph derives each TermInfo's Cost (depth, DAG area) from
// the chosen node set by a bottom-up pass, mirroring Greedy.buildCandidate
// but over a fixed selection rather than a search — the ILP model itself
// reasons in terms of depth variables, not Cost, so Cost is recovered
// after the fact for callers that want the same reporting shape as the
// greedy extractor.
func fillCostsFromGraph(chosen map[egraph.ClassID]*TermInfo) {
	memo := make(map[egraph.ClassID]bool, len(chosen))
	var visit func(c egraph.ClassID) bool
	visit = func(c egraph.ClassID) bool {
		if memo[c] {
			return true
		}
		info, ok := chosen[c]
		if !ok {
			return false
		}
		reach := make(map[egraph.ClassID]struct{})
		maxDepth := 0
		for _, ch := range info.Children {
			if !visit(ch) {
				return false
			}
			childInfo := chosen[ch]
			if childInfo.Cost.Depth > maxDepth {
				maxDepth = childInfo.Cost.Depth
			}
			for k := range childInfo.Reach {
				reach[k] = struct{}{}
			}
		}
		reach[c] = struct{}{}
		info.Reach = reach
		info.Cost = Cost{Depth: maxDepth + info.Tag.Weight(), Area: len(reach)}
		memo[c] = true
		return true
	}
	for c := range chosen {
		visit(c)
	}
}
