package extract

import (
	"sort"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/slack"
	"github.com/panther03/eqsatopt-go/term"
)

// TermInfo is one entry of the extracted term-DAG: the chosen e-node, its
// owning e-class, the set of e-classes transitively reachable from it
// (used both to share DAG-cost area and to reject cycles), and its cost.
type TermInfo struct {
	Class    egraph.ClassID
	Node     egraph.NodeID
	Tag      term.Tag
	Children []egraph.ClassID
	Reach    map[egraph.ClassID]struct{}
	Cost     Cost
}

// Greedy implements the bounded greedy DAG extractor: a
// repeat-until-no-change loop over e-nodes whose children already have a
// chosen candidate. The structure mirrors a Kruskal-style minimum
// spanning tree pass — "sort candidates, greedily accept if it doesn't
// close a cycle (via union-find), repeat" maps directly onto "iterate
// e-nodes, accept the cheapest acyclic candidate, repeat until a full
// pass makes no change", with the reachable-set membership check here
// playing the role a disjoint-set find() plays there.
//
// Two distinct bounds are in play: `analysis`'s per-class slack bound is
// a hard, sound prune — a candidate that exceeds it can never appear in
// any depth-optimal extraction, so it is discarded outright; `bound`, the
// caller-supplied target depth B, is a soft preference used only by the
// lexicographic Cost ordering, letting the extractor still return an
// over-target candidate when no in-target one exists rather than
// failing.
type Greedy struct {
	g        *egraph.EGraph
	analysis *slack.Analysis
	bound    int // -1 means unbounded
	locked   map[egraph.ClassID]egraph.NodeID
	best     map[egraph.ClassID]*TermInfo
}

// GreedyOption configures a Greedy extractor.
type GreedyOption func(*Greedy)

// WithDepthBound enforces the lexicographic (violates-bound, area)
// ordering against the given global MD bound. Without this option,
// extraction uses the plain (depth, area) ordering.
func WithDepthBound(b int) GreedyOption {
	return func(e *Greedy) { e.bound = b }
}

// WithLockedClasses pins specific (class -> node) choices before
// extraction begins; the algorithm treats those classes as if only the
// locked node existed. Used by the multi-iteration driver flow's
// random-restart sampling.
func WithLockedClasses(locked map[egraph.ClassID]egraph.NodeID) GreedyOption {
	return func(e *Greedy) { e.locked = locked }
}

// NewGreedy constructs a bounded greedy DAG extractor over g, using
// analysis's slack bounds to discard candidates whose depth exceeds the
// per-class budget. analysis may be nil, in which case no candidate is
// slack-pruned (only the optional WithDepthBound preference applies).
func NewGreedy(g *egraph.EGraph, analysis *slack.Analysis, opts ...GreedyOption) *Greedy {
	e := &Greedy{g: g, analysis: analysis, bound: -1, best: make(map[egraph.ClassID]*TermInfo)}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs the repeat-until-stable loop and returns the chosen
// TermInfo for every class reachable from roots, or eqerr.ErrNoSolution
// if some root class never received a candidate (every e-node in some
// reachable class was filtered).
func (e *Greedy) Extract(roots []egraph.ClassID) (map[egraph.ClassID]*TermInfo, error) {
	classes := e.g.Classes()
	for {
		changed := false
		for _, c := range classes {
			if e.analysis != nil && e.analysis.Filtered[c] {
				continue
			}
			nodeIDs := e.g.NodeIDsOf(c)
			if lockedNode, ok := e.locked[c]; ok {
				nodeIDs = filterNodeID(nodeIDs, lockedNode)
			}
			for _, nid := range nodeIDs {
				n := e.g.Node(nid)
				children := e.g.ChildrenOf(n)
				cand, ok := e.buildCandidate(c, nid, n, children)
				if !ok {
					continue
				}
				cur, exists := e.best[c]
				if !exists || cand.Cost.Less(cur.Cost, e.bound) {
					e.best[c] = cand
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	for _, r := range roots {
		r = e.g.Find(r)
		if _, ok := e.best[r]; !ok {
			return nil, eqerr.ErrNoSolution
		}
	}

	out := make(map[egraph.ClassID]*TermInfo)
	var collect func(c egraph.ClassID)
	collect = func(c egraph.ClassID) {
		if _, seen := out[c]; seen {
			return
		}
		info := e.best[c]
		out[c] = info
		for _, ch := range info.Children {
			collect(ch)
		}
	}
	for _, r := range roots {
		collect(e.g.Find(r))
	}
	return out, nil
}

// buildCandidate constructs the candidate term for e-node nid in class c,
// returning (nil, false) if a required child has no candidate yet, if the
// candidate would be cyclic, or if its depth exceeds the hard slack bound.
func (e *Greedy) buildCandidate(c egraph.ClassID, nid egraph.NodeID, n *egraph.ENode, children []egraph.ClassID) (*TermInfo, bool) {
	reach := make(map[egraph.ClassID]struct{})
	maxDepth := 0
	for _, ch := range children {
		childInfo, ok := e.best[ch]
		if !ok {
			return nil, false // a required child has no candidate yet
		}
		if childInfo.Cost.Depth > maxDepth {
			maxDepth = childInfo.Cost.Depth
		}
		for k := range childInfo.Reach {
			reach[k] = struct{}{}
		}
	}
	if _, cycle := reach[c]; cycle {
		return nil, false // candidate would transitively include its own class
	}
	reach[c] = struct{}{}

	depth := maxDepth + n.Tag.Weight()
	if e.analysis != nil {
		if b, ok := e.analysis.Bound[c]; ok && depth > b {
			return nil, false // slack-bounded: provably never optimal
		}
	}
	cost := Cost{Depth: depth, Area: len(reach)}
	return &TermInfo{Class: c, Node: nid, Tag: n.Tag, Children: children, Reach: reach, Cost: cost}, true
}

func filterNodeID(ids []egraph.NodeID, keep egraph.NodeID) []egraph.NodeID {
	for _, id := range ids {
		if id == keep {
			return []egraph.NodeID{id}
		}
	}
	return nil
}

// CycleCarryingClasses reports classes whose member e-nodes all failed to
// produce an acyclic candidate even after the fixpoint — used by the
// multi-iteration driver flow to exclude such classes from node-locking
// heuristics.
func (e *Greedy) CycleCarryingClasses() []egraph.ClassID {
	var out []egraph.ClassID
	for _, c := range e.g.Classes() {
		if _, ok := e.best[c]; !ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
