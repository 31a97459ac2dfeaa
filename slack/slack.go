package slack

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/panther03/eqsatopt-go/egraph"
)

// Inf is the sentinel "infinite" depth: an e-class left unreachable in
// the forward direction (a cycle with no acyclic witness) is filtered and
// reported with this depth.
const Inf = math.MaxInt32 / 2

// Analysis is the result of one slack computation: forward depth,
// aggregated backward remaining depth, and the derived per-class bound,
// for a fixed set of root classes.
type Analysis struct {
	MD       int                      // MD(ckt) = max_root fd(root)
	Forward  map[egraph.ClassID]int   // fd(c)
	Backward map[egraph.ClassID]int   // br(c), aggregated max over all roots
	Bound    map[egraph.ClassID]int   // bound(c) = MD(ckt) - br(c)
	Filtered map[egraph.ClassID]bool  // fd(c) == Inf
}

// Option configures Analyze.
type Option func(*config)

type config struct {
	workers int
}

// WithWorkers caps the number of goroutines used for the per-root
// backward pass, which is data-parallel across roots. 0 (default) lets
// errgroup run one goroutine per root.
func WithWorkers(n int) Option { return func(c *config) { c.workers = n } }

// Analyze computes forward depth, per-root backward remaining depth, and
// the derived slack bound for every class reachable from roots.
func Analyze(ctx context.Context, g *egraph.EGraph, roots []egraph.ClassID, opts ...Option) (*Analysis, error) {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}

	fd := computeForward(g)

	md := 0
	for _, r := range roots {
		r = g.Find(r)
		if fd[r] < Inf && fd[r] > md {
			md = fd[r]
		}
	}

	backward, err := computeBackwardParallel(ctx, g, roots, fd, cfg.workers)
	if err != nil {
		return nil, err
	}

	filtered := make(map[egraph.ClassID]bool, len(fd))
	bound := make(map[egraph.ClassID]int, len(fd))
	for c, f := range fd {
		if f >= Inf {
			filtered[c] = true
			bound[c] = -Inf
			continue
		}
		br := backward[c]
		bound[c] = md - br
	}

	return &Analysis{MD: md, Forward: fd, Backward: backward, Bound: bound, Filtered: filtered}, nil
}

// computeForward computes fd(c) = min over e-nodes n in c of
// weight(n) + max child fd — classMin over branchMax, the forward
// instance of the four-valued-lattice operators — via iterative
// relaxation to a least fixpoint. Because the e-graph may contain cycles,
// this cannot be a single bottom-up recursive pass; relaxation converges
// because fd only ever decreases and is bounded below by 0.
func computeForward(g *egraph.EGraph) map[egraph.ClassID]int {
	classes := g.Classes()
	state := make(map[egraph.ClassID]State, len(classes))
	for _, c := range classes {
		state[c] = State{Level: Unvisited}
	}

	for pass := 0; pass < len(classes)+1; pass++ {
		changed := false
		for _, c := range classes {
			nodeStates := make([]State, 0, len(g.NodesOf(c)))
			for _, n := range g.NodesOf(c) {
				children := make([]State, 0, len(n.Children))
				ready := true
				for _, ch := range g.ChildrenOf(n) {
					cs := state[ch]
					if n.Tag.Arity() > 0 && cs.Level == Unvisited {
						ready = false
						break
					}
					children = append(children, cs)
				}
				if !ready {
					continue
				}
				nodeStates = append(nodeStates, branchMax(children, n.Tag.Weight()))
			}
			if len(nodeStates) == 0 {
				continue
			}
			best := classMin(nodeStates)
			if less(best, state[c]) || (state[c].Level == Unvisited && best.Level != Unvisited) {
				state[c] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	fd := make(map[egraph.ClassID]int, len(classes))
	for _, c := range classes {
		s := state[c]
		if s.Level == Visited {
			fd[c] = s.Depth
		} else {
			fd[c] = Inf
		}
	}
	return fd
}

// computeBackwardParallel runs one backward pass per root concurrently
// and merges the per-root results into br(c) = max over roots.
func computeBackwardParallel(ctx context.Context, g *egraph.EGraph, roots []egraph.ClassID, fd map[egraph.ClassID]int, workers int) (map[egraph.ClassID]int, error) {
	merged := make(map[egraph.ClassID]int, len(fd))
	for c := range fd {
		merged[c] = 0
	}
	if len(roots) == 0 {
		return merged, nil
	}

	results := make([]map[egraph.ClassID]int, len(roots))
	grp, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		grp.SetLimit(workers)
	}
	for i, r := range roots {
		i, r := i, r
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = computeBackwardOneRoot(g, g.Find(r), fd)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		for c, d := range res {
			if d > merged[c] {
				merged[c] = d
			}
		}
	}
	return merged, nil
}

// computeBackwardOneRoot computes br(c, root) for a single root: the
// longest acyclic distance from c forward to root, by relaxing along
// parent edges starting at root. Classes never reached by root are left
// at distance 0 (no constraint contributed by this root).
func computeBackwardOneRoot(g *egraph.EGraph, root egraph.ClassID, fd map[egraph.ClassID]int) map[egraph.ClassID]int {
	br := make(map[egraph.ClassID]int, len(fd))
	reached := map[egraph.ClassID]bool{root: true}
	br[root] = 0

	classes := g.Classes()
	for pass := 0; pass < len(classes)+1; pass++ {
		changed := false
		for _, p := range classes {
			if !reached[p] || fd[p] >= Inf {
				continue
			}
			for _, n := range g.NodesOf(p) {
				w := n.Tag.Weight()
				cand := br[p] + w
				for _, c := range g.ChildrenOf(n) {
					if fd[c] >= Inf {
						continue // filtered: excluded from this path
					}
					if !reached[c] || cand > br[c] {
						br[c] = cand
						reached[c] = true
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	return br
}
