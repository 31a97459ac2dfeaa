// Package rewriter applies equality-saturation rewrite rules over an
// egraph.EGraph until a fixpoint or a resource bound.
//
// Package layout follows a single exported entry point (Run) built from a
// private "walker"-shaped struct (here, iterationState) that threads
// options, context, and accumulated results through a bounded loop.
package rewriter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/term"
)

// Config bounds one saturation run. Construct with DefaultConfig and the
// With* functional options.
type Config struct {
	IterLimit       int
	NodeLimit       int
	TimeLimit       time.Duration
	Commutative     bool // match modulo commutativity (default: true)
	StrictDeadlines bool // check the deadline between match and apply too
	Logger          zerolog.Logger
}

// Option configures a Config.
type Option func(*Config)

// DefaultConfig returns sensible defaults: commutativity-modulo
// matching on, no logger, and generous-but-finite resource caps so a
// caller who forgets to set limits still terminates.
func DefaultConfig() Config {
	return Config{
		IterLimit:   1000,
		NodeLimit:   1_000_000,
		TimeLimit:   time.Hour,
		Commutative: true,
		Logger:      zerolog.Nop(),
	}
}

func WithIterLimit(n int) Option           { return func(c *Config) { c.IterLimit = n } }
func WithNodeLimit(n int) Option           { return func(c *Config) { c.NodeLimit = n } }
func WithTimeLimit(d time.Duration) Option { return func(c *Config) { c.TimeLimit = d } }
func WithCommutativeMatching(b bool) Option {
	return func(c *Config) { c.Commutative = b }
}
func WithStrictDeadlines(b bool) Option { return func(c *Config) { c.StrictDeadlines = b } }
func WithLogger(l zerolog.Logger) Option { return func(c *Config) { c.Logger = l } }

// Result reports whether saturation converged or was cut off by a
// resource bound. An incomplete Result is not a failure: the e-graph is
// a valid, fully-rebuilt state.
type Result struct {
	Complete   bool
	Iterations int
	Reason     string // "saturated", "iter_limit", "node_limit", "time_limit", "deadline"
}

// match is one collected (rule, binding, root_class) triple from the
// match phase.
type match struct {
	ruleIdx int
	root    egraph.ClassID
	bind    binding
	flip    bool // true if this match was discovered via a bidirectional rule's RHS
}

// Run applies rules to g until saturation or a resource bound. It
// mutates g in place and always leaves it in a fully rebuilt,
// congruence-closed state, even when Result.Complete is false.
func Run(ctx context.Context, g *egraph.EGraph, rules []Rule, opts ...Option) Result {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	deadline := time.Now().Add(cfg.TimeLimit)

	iter := 0
	for {
		if cfg.IterLimit > 0 && iter >= cfg.IterLimit {
			return Result{Complete: false, Iterations: iter, Reason: "iter_limit"}
		}
		if cfg.NodeLimit > 0 && g.NumNodes() >= cfg.NodeLimit {
			return Result{Complete: false, Iterations: iter, Reason: "node_limit"}
		}
		if time.Now().After(deadline) {
			return Result{Complete: false, Iterations: iter, Reason: "time_limit"}
		}
		select {
		case <-ctx.Done():
			return Result{Complete: false, Iterations: iter, Reason: "deadline"}
		default:
		}

		matches := matchPhase(g, rules, cfg.Commutative)

		if cfg.StrictDeadlines {
			if time.Now().After(deadline) || ctx.Err() != nil {
				return Result{Complete: false, Iterations: iter, Reason: "deadline"}
			}
		}

		classesBefore := g.NumClasses()
		unionsMade := applyPhase(g, rules, matches)
		g.Rebuild()
		iter++

		cfg.Logger.Debug().
			Int("iteration", iter).
			Int("classes", g.NumClasses()).
			Int("nodes", g.NumNodes()).
			Int("matches", len(matches)).
			Msg("saturation iteration")

		if unionsMade == 0 && g.NumClasses() == classesBefore {
			return Result{Complete: true, Iterations: iter, Reason: "saturated"}
		}
	}
}

// matchPhase enumerates (rule, binding, root) triples across every rule
// and every live class, in a deterministic order: rule index, then root
// class id, then a stable tie-break on the variable assignment itself.
func matchPhase(g *egraph.EGraph, rules []Rule, commutative bool) []match {
	var out []match
	classes := g.Classes()
	for ri, rule := range rules {
		for _, cid := range classes {
			binds := matchClass(g, rule.LHS, cid, binding{}, commutative)
			for _, b := range binds {
				out = append(out, match{ruleIdx: ri, root: cid, bind: b})
			}
			if rule.Bidirectional {
				binds := matchClass(g, rule.RHS, cid, binding{}, commutative)
				for _, b := range binds {
					out = append(out, match{ruleIdx: ri, root: cid, bind: b, flip: true})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ruleIdx != out[j].ruleIdx {
			return out[i].ruleIdx < out[j].ruleIdx
		}
		if out[i].root != out[j].root {
			return out[i].root < out[j].root
		}
		return out[i].bind.tiebreak() < out[j].bind.tiebreak()
	})
	return out
}

// tiebreak renders a binding into a stable comparison key.
func (b binding) tiebreak() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strconv.Itoa(int(b[k])))
		sb.WriteByte(';')
	}
	return sb.String()
}

// applyPhase instantiates the RHS (or LHS, for a flipped bidirectional
// match) of every collected match and unions the result with its root
// class. Returns the number of unions that changed the e-graph.
func applyPhase(g *egraph.EGraph, rules []Rule, matches []match) int {
	unions := 0
	for _, m := range matches {
		rule := rules[m.ruleIdx]
		pat := rule.RHS
		if m.flip {
			pat = rule.LHS
		}
		newClass := instantiate(g, pat, m.bind)
		if g.Union(m.root, newClass) {
			unions++
		}
	}
	return unions
}

// instantiate recursively `Add`s pat into g, substituting variables by
// their bound class ids.
func instantiate(g *egraph.EGraph, pat *Pattern, bind binding) egraph.ClassID {
	switch pat.kind {
	case patVar:
		cid, ok := bind[pat.varName]
		if !ok {
			panic(fmt.Sprintf("rewriter: unbound pattern variable %q in RHS/LHS", pat.varName))
		}
		return cid
	case patConst:
		return g.Add(&egraph.ENode{Tag: term.CONST, Const: pat.constVal})
	default:
		children := make([]egraph.ClassID, len(pat.children))
		for i, c := range pat.children {
			children[i] = instantiate(g, c, bind)
		}
		return g.Add(&egraph.ENode{Tag: pat.op, Children: children})
	}
}
