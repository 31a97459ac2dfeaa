// Package driver orchestrates the saturate -> slack -> extract -> write
// pipeline into the top-level flows: SatMcIlp, SatMcMdDag,
// TracingHEConverge, and MultiIter. It is the one package that touches
// every other core package, the top-level algorithm that composes the
// module's lower-level primitives into a complete optimization run.
package driver

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/extract"
	"github.com/panther03/eqsatopt-go/rewriter"
	"github.com/panther03/eqsatopt-go/slack"
	"github.com/panther03/eqsatopt-go/term"
	"github.com/panther03/eqsatopt-go/writer"
)

// Limits bounds every resource-sensitive stage of a flow: saturation
// (rewriter.Config) and the ILP extractor's solver budget, configured via
// the same functional-options convention used throughout this module.
type Limits struct {
	IterLimit       int
	NodeLimit       int
	TimeLimit       time.Duration
	ILPTimeLimit    time.Duration
	Commutative     bool
	StrictDeadlines bool
	Logger          zerolog.Logger
}

// Option configures Limits.
type Option func(*Limits)

// DefaultLimits mirrors rewriter.DefaultConfig's generous-but-finite
// defaults, plus a 30s ILP budget.
func DefaultLimits() Limits {
	return Limits{
		IterLimit:    1000,
		NodeLimit:    1_000_000,
		TimeLimit:    time.Hour,
		ILPTimeLimit: 30 * time.Second,
		Commutative:  true,
		Logger:       zerolog.Nop(),
	}
}

func WithIterLimit(n int) Option           { return func(l *Limits) { l.IterLimit = n } }
func WithNodeLimit(n int) Option           { return func(l *Limits) { l.NodeLimit = n } }
func WithTimeLimit(d time.Duration) Option { return func(l *Limits) { l.TimeLimit = d } }
func WithILPTimeLimit(d time.Duration) Option {
	return func(l *Limits) { l.ILPTimeLimit = d }
}
func WithCommutativeMatching(b bool) Option { return func(l *Limits) { l.Commutative = b } }
func WithStrictDeadlines(b bool) Option     { return func(l *Limits) { l.StrictDeadlines = b } }
func WithLogger(lg zerolog.Logger) Option   { return func(l *Limits) { l.Logger = lg } }

func (l Limits) rewriterOpts() []rewriter.Option {
	return []rewriter.Option{
		rewriter.WithIterLimit(l.IterLimit),
		rewriter.WithNodeLimit(l.NodeLimit),
		rewriter.WithTimeLimit(l.TimeLimit),
		rewriter.WithCommutativeMatching(l.Commutative),
		rewriter.WithStrictDeadlines(l.StrictDeadlines),
		rewriter.WithLogger(l.Logger),
	}
}

// Stats summarizes one flow's execution, ported from the original Rust
// implementation's `stats.rs` per-flow summary: node and class counts,
// saturation iterations, and a phase-by-phase wall-time breakdown,
// attached to every Result and logged structurally.
type Stats struct {
	Iterations    int
	FinalClasses  int
	FinalNodes    int
	SaturateTime  time.Duration
	SlackTime     time.Duration
	ExtractTime   time.Duration
	TotalTime     time.Duration
	SaturationTag string // rewriter.Result.Reason
}

// Result is the outcome of one top-level flow: the best network found
// (already written to netlist text), its MD/MC, and execution Stats.
type Result struct {
	Netlist *writer.Output
	MD      int
	MC      int
	Stats   Stats
}

// cost returns the joint optimization objective MD^2 * MC, weighting
// multiplicative depth more heavily than multiplicative complexity.
func cost(md, mc int) int { return md * md * mc }

// countAnds counts AND-tagged selections in a chosen extraction, i.e. MC.
func countAnds(chosen map[egraph.ClassID]*extract.TermInfo) int {
	n := 0
	for _, info := range chosen {
		if info.Tag == term.AND {
			n++
		}
	}
	return n
}

func maxDepth(chosen map[egraph.ClassID]*extract.TermInfo, roots []egraph.ClassID, g *egraph.EGraph) int {
	md := 0
	for _, r := range roots {
		r = g.Find(r)
		if info, ok := chosen[r]; ok && info.Cost.Depth > md {
			md = info.Cost.Depth
		}
	}
	return md
}

// saturate runs the rewriter to a fixpoint or resource bound and logs one
// structured summary event.
func saturate(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, lim Limits) rewriter.Result {
	start := time.Now()
	res := rewriter.Run(ctx, g, rules, lim.rewriterOpts()...)
	lim.Logger.Info().
		Bool("complete", res.Complete).
		Int("iterations", res.Iterations).
		Str("reason", res.Reason).
		Dur("elapsed", time.Since(start)).
		Int("classes", g.NumClasses()).
		Int("nodes", g.NumNodes()).
		Msg("saturation finished")
	return res
}

func writeResult(g *egraph.EGraph, chosen map[egraph.ClassID]*extract.TermInfo, roots []egraph.ClassID, outputs []string) (*writer.Output, error) {
	return writer.New().Write(g, chosen, roots, outputs)
}

// SatMcIlp saturates, then runs the bounded greedy DAG extractor for a
// heuristic (MD_h, MC_h) baseline, then runs the unbounded ILP extractor
// for an MC-optimal network, and reports whichever scores lower under
// MD^2*MC.
func SatMcIlp(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outputs []string, lim Limits) (*Result, error) {
	total := time.Now()
	stats := Stats{}

	satRes := saturate(ctx, g, rules, lim)
	stats.SaturationTag = satRes.Reason
	stats.Iterations = satRes.Iterations

	slackStart := time.Now()
	analysis, err := slack.Analyze(ctx, g, roots)
	if err != nil {
		return nil, err
	}
	stats.SlackTime = time.Since(slackStart)

	extractStart := time.Now()
	greedy := extract.NewGreedy(g, analysis)
	heuristic, err := greedy.Extract(roots)
	if err != nil {
		return nil, err
	}
	mdH := maxDepth(heuristic, roots, g)
	mcH := countAnds(heuristic)

	ilp := extract.NewILP(g, extract.WithILPTimeLimit(lim.ILPTimeLimit))
	ilpSel, ilpErr := ilp.Extract(roots)
	stats.ExtractTime = time.Since(extractStart)

	best := heuristic
	bestMD, bestMC := mdH, mcH
	if ilpErr == nil {
		mdI := maxDepth(ilpSel, roots, g)
		mcI := countAnds(ilpSel)
		if cost(mdI, mcI) < cost(bestMD, bestMC) {
			best, bestMD, bestMC = ilpSel, mdI, mcI
		}
	}

	out, err := writeResult(g, best, roots, outputs)
	if err != nil {
		return nil, err
	}

	stats.FinalClasses = g.NumClasses()
	stats.FinalNodes = g.NumNodes()
	stats.TotalTime = time.Since(total)
	lim.Logger.Info().Int("md", bestMD).Int("mc", bestMC).Int("cost", cost(bestMD, bestMC)).
		Dur("total", stats.TotalTime).Msg("sat-mc-ilp flow complete")

	return &Result{Netlist: out, MD: bestMD, MC: bestMC, Stats: stats}, nil
}

// SatMcMdDag backs the `sat-mc-md-dag` subcommand: saturate, then report
// the bounded greedy DAG extractor's result directly, with no ILP
// refinement pass — the fast heuristic-only flow.
func SatMcMdDag(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outputs []string, lim Limits) (*Result, error) {
	total := time.Now()
	stats := Stats{}

	satRes := saturate(ctx, g, rules, lim)
	stats.SaturationTag = satRes.Reason
	stats.Iterations = satRes.Iterations

	slackStart := time.Now()
	analysis, err := slack.Analyze(ctx, g, roots)
	if err != nil {
		return nil, err
	}
	stats.SlackTime = time.Since(slackStart)

	extractStart := time.Now()
	greedy := extract.NewGreedy(g, analysis)
	chosen, err := greedy.Extract(roots)
	stats.ExtractTime = time.Since(extractStart)
	if err != nil {
		return nil, err
	}

	md := maxDepth(chosen, roots, g)
	mc := countAnds(chosen)
	out, err := writeResult(g, chosen, roots, outputs)
	if err != nil {
		return nil, err
	}

	stats.FinalClasses = g.NumClasses()
	stats.FinalNodes = g.NumNodes()
	stats.TotalTime = time.Since(total)
	lim.Logger.Info().Int("md", md).Int("mc", mc).Dur("total", stats.TotalTime).Msg("sat-mc-md-dag flow complete")

	return &Result{Netlist: out, MD: md, MC: mc, Stats: stats}, nil
}

// TracingHEConverge saturates, runs the bounded greedy DAG to establish a
// heuristic depth MD_h, then iterates the ILP extractor with
// progressively relaxed depth bounds D = MD_h, MD_h+1, ... up to
// ilpIters, keeping whichever solution minimizes MD^2*MC. MC is
// non-increasing as the bound loosens, so later iterations can only help
// or tie.
func TracingHEConverge(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outputs []string, ilpIters int, lim Limits) (*Result, error) {
	total := time.Now()
	stats := Stats{}

	satRes := saturate(ctx, g, rules, lim)
	stats.SaturationTag = satRes.Reason
	stats.Iterations = satRes.Iterations

	slackStart := time.Now()
	analysis, err := slack.Analyze(ctx, g, roots)
	if err != nil {
		return nil, err
	}
	stats.SlackTime = time.Since(slackStart)

	extractStart := time.Now()
	greedy := extract.NewGreedy(g, analysis)
	heuristic, err := greedy.Extract(roots)
	if err != nil {
		return nil, err
	}
	mdH := maxDepth(heuristic, roots, g)

	best := heuristic
	bestMD, bestMC := mdH, countAnds(heuristic)

	for i := 0; i < ilpIters; i++ {
		bound := mdH + i
		ilp := extract.NewILP(g, extract.WithILPDepthBound(bound), extract.WithILPTimeLimit(lim.ILPTimeLimit))
		sel, err := ilp.Extract(roots)
		if err != nil {
			lim.Logger.Debug().Int("bound", bound).Err(err).Msg("tracing-he-converge ILP iteration had no solution")
			continue
		}
		md := maxDepth(sel, roots, g)
		mc := countAnds(sel)
		if cost(md, mc) < cost(bestMD, bestMC) {
			best, bestMD, bestMC = sel, md, mc
		}
	}
	stats.ExtractTime = time.Since(extractStart)

	out, err := writeResult(g, best, roots, outputs)
	if err != nil {
		return nil, err
	}

	stats.FinalClasses = g.NumClasses()
	stats.FinalNodes = g.NumNodes()
	stats.TotalTime = time.Since(total)
	lim.Logger.Info().Int("md", bestMD).Int("mc", bestMC).Int("cost", cost(bestMD, bestMC)).
		Dur("total", stats.TotalTime).Msg("tracing-he-converge flow complete")

	return &Result{Netlist: out, MD: bestMD, MC: bestMC, Stats: stats}, nil
}

// MultiIter repeats n times, each time saturating then slack-pruning and
// rebuilding a fresh e-graph from the serialized, pruned snapshot (see
// DESIGN.md's Open Question decision on shared ownership across
// iterations). On the final iteration it samples many candidate
// extractions by randomly locking non-cycle-carrying classes with
// probability 1-alpha and keeps the best by MD^2*MC.
func MultiIter(ctx context.Context, g *egraph.EGraph, rules []rewriter.Rule, roots []egraph.ClassID, outputs []string, n int, alpha float64, samples int, rng *rand.Rand, lim Limits) (*Result, error) {
	total := time.Now()
	stats := Stats{}

	cur := g
	curRoots := roots
	for iter := 0; iter < n; iter++ {
		satRes := saturate(ctx, cur, rules, lim)
		stats.Iterations += satRes.Iterations
		stats.SaturationTag = satRes.Reason

		if iter == n-1 {
			break
		}

		slackStart := time.Now()
		analysis, err := slack.Analyze(ctx, cur, curRoots)
		if err != nil {
			return nil, err
		}
		stats.SlackTime += time.Since(slackStart)

		snap := cur.Serialize()
		pruned := pruneSnapshot(snap, analysis)
		next, remap := egraph.Rehydrate(pruned)
		nextRoots := make([]egraph.ClassID, len(curRoots))
		for i, r := range curRoots {
			nextRoots[i] = next.Find(remap[cur.Find(r)])
		}
		cur, curRoots = next, nextRoots
	}

	slackStart := time.Now()
	analysis, err := slack.Analyze(ctx, cur, curRoots)
	if err != nil {
		return nil, err
	}
	stats.SlackTime += time.Since(slackStart)

	extractStart := time.Now()
	greedy := extract.NewGreedy(cur, analysis)
	cycleCarrying := map[egraph.ClassID]bool{}
	for _, c := range greedy.CycleCarryingClasses() {
		cycleCarrying[c] = true
	}

	var best map[egraph.ClassID]*extract.TermInfo
	bestMD, bestMC := -1, -1
	for s := 0; s < samples; s++ {
		locked := sampleLocks(cur, cycleCarrying, alpha, rng)
		g2 := extract.NewGreedy(cur, analysis, extract.WithLockedClasses(locked))
		sel, err := g2.Extract(curRoots)
		if err != nil {
			continue
		}
		md := maxDepth(sel, curRoots, cur)
		mc := countAnds(sel)
		if best == nil || cost(md, mc) < cost(bestMD, bestMC) {
			best, bestMD, bestMC = sel, md, mc
		}
	}
	stats.ExtractTime = time.Since(extractStart)
	if best == nil {
		return nil, eqerr.ErrNoSolution
	}

	out, err := writeResult(cur, best, curRoots, outputs)
	if err != nil {
		return nil, err
	}

	stats.FinalClasses = cur.NumClasses()
	stats.FinalNodes = cur.NumNodes()
	stats.TotalTime = time.Since(total)
	lim.Logger.Info().Int("md", bestMD).Int("mc", bestMC).Int("samples", samples).
		Dur("total", stats.TotalTime).Msg("multi-iter flow complete")

	return &Result{Netlist: out, MD: bestMD, MC: bestMC, Stats: stats}, nil
}

// pruneSnapshot drops every e-node a slack analysis proves can never
// appear in a depth-optimal extraction before the next MultiIter
// iteration rebuilds from it: a class with no acyclic forward witness
// (Filtered) is dropped outright, and within a surviving class, any
// member e-node n with weight(n) + maxChildFd(n) > bound(c) is dropped
// even though the class itself stays (its cheaper sibling node is kept).
// Dropping a node can in turn strand a parent node that referenced it as
// a now-missing child class, so the cascade repeats to a fixpoint before
// a class with zero surviving nodes is removed entirely.
func pruneSnapshot(snap *egraph.Snapshot, analysis *slack.Analysis) *egraph.Snapshot {
	alive := make(map[egraph.ClassID][]egraph.SnapENode, len(snap.Classes))
	for _, sc := range snap.Classes {
		if analysis.Filtered[sc.ID] {
			continue
		}
		bound, hasBound := analysis.Bound[sc.ID]
		var kept []egraph.SnapENode
		for _, sn := range sc.Nodes {
			maxChildFd := 0
			unreachableChild := false
			for _, ch := range sn.Children {
				cfd, ok := analysis.Forward[ch]
				if !ok || cfd >= slack.Inf {
					unreachableChild = true
					break
				}
				if cfd > maxChildFd {
					maxChildFd = cfd
				}
			}
			if unreachableChild {
				continue
			}
			fdStar := maxChildFd + term.Tag(sn.Tag).Weight()
			if hasBound && fdStar > bound {
				continue
			}
			kept = append(kept, sn)
		}
		if len(kept) > 0 {
			alive[sc.ID] = kept
		}
	}

	for {
		changed := false
		for cid, nodes := range alive {
			kept := nodes[:0]
			for _, sn := range nodes {
				ok := true
				for _, ch := range sn.Children {
					if _, live := alive[ch]; !live {
						ok = false
						break
					}
				}
				if ok {
					kept = append(kept, sn)
				} else {
					changed = true
				}
			}
			if len(kept) == 0 {
				delete(alive, cid)
				changed = true
			} else {
				alive[cid] = kept
			}
		}
		if !changed {
			break
		}
	}

	out := &egraph.Snapshot{}
	for _, sc := range snap.Classes {
		if nodes, ok := alive[sc.ID]; ok {
			out.Classes = append(out.Classes, egraph.SnapClass{ID: sc.ID, Nodes: nodes})
		}
	}
	return out
}

// sampleLocks locks each non-cycle-carrying class to a random member node
// with probability 1-alpha, leaving the rest free for the extractor to
// choose.
func sampleLocks(g *egraph.EGraph, cycleCarrying map[egraph.ClassID]bool, alpha float64, rng *rand.Rand) map[egraph.ClassID]egraph.NodeID {
	locked := make(map[egraph.ClassID]egraph.NodeID)
	for _, c := range g.Classes() {
		if cycleCarrying[c] {
			continue
		}
		if rng.Float64() >= alpha {
			ids := g.NodeIDsOf(c)
			if len(ids) == 0 {
				continue
			}
			locked[c] = ids[rng.Intn(len(ids))]
		}
	}
	return locked
}
