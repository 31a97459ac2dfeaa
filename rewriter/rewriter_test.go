package rewriter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/rewriter"
	"github.com/panther03/eqsatopt-go/term"
)

func TestLoadRulesParsesDirectedAndBidirectional(t *testing.T) {
	src := "double-negation: (! (! ?x)) => ?x\n" +
		"and-comm: (* ?x ?y) <=> (* ?y ?x)\n" +
		"# a comment line\n\n"
	rules, err := rewriter.LoadRules(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "double-negation", rules[0].Name)
	assert.False(t, rules[0].Bidirectional)
	assert.Equal(t, "and-comm", rules[1].Name)
	assert.True(t, rules[1].Bidirectional)
}

func TestLoadRulesRejectsMissingSeparator(t *testing.T) {
	_, err := rewriter.LoadRules(strings.NewReader("no-colon-here"))
	assert.Error(t, err)
}

func TestLoadRulesRejectsMalformedPattern(t *testing.T) {
	_, err := rewriter.LoadRules(strings.NewReader("bad: (* ?x) => ?x"))
	assert.Error(t, err, "AND expects exactly 2 children")
}

func TestRunDoubleNegationSaturates(t *testing.T) {
	g := egraph.New()
	x := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "x"})
	notX := g.Add(&egraph.ENode{Tag: term.NOT, Children: []egraph.ClassID{x}})
	notNotX := g.Add(&egraph.ENode{Tag: term.NOT, Children: []egraph.ClassID{notX}})

	rules, err := rewriter.LoadRules(strings.NewReader("dn: (! (! ?x)) => ?x"))
	require.NoError(t, err)

	res := rewriter.Run(context.Background(), g, rules, rewriter.WithIterLimit(10))
	assert.True(t, res.Complete)
	assert.Equal(t, g.Find(x), g.Find(notNotX), "double negation should collapse x and !!x into one class")
}

func TestRunRespectsIterLimit(t *testing.T) {
	g := egraph.New()
	x := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "x"})
	y := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "y"})
	g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{x, y}})

	// Rewriting (x*y) into y*(x*y) nests a strictly deeper AND tree every
	// application, so the e-graph genuinely never reaches a fixpoint;
	// this verifies the iteration cap terminates the run regardless.
	rules, err := rewriter.LoadRules(strings.NewReader("grow: (* ?x ?y) => (* ?y (* ?x ?y))"))
	require.NoError(t, err)

	res := rewriter.Run(context.Background(), g, rules, rewriter.WithIterLimit(3), rewriter.WithNodeLimit(1_000_000))
	assert.False(t, res.Complete)
	assert.Equal(t, "iter_limit", res.Reason)
	assert.Equal(t, 3, res.Iterations)
}

func TestRunCommutativeMatching(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})
	ab := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{a, b}})
	ba := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{b, a}})
	require.NotEqual(t, ab, ba)

	rules, err := rewriter.LoadRules(strings.NewReader("identity: ?x => ?x"))
	require.NoError(t, err)

	rewriter.Run(context.Background(), g, rules, rewriter.WithCommutativeMatching(true), rewriter.WithIterLimit(5))
	// a no-op rule shouldn't merge anything on its own; this just checks
	// the commutative option doesn't panic over a genuinely commutative op.
	assert.NotEqual(t, g.Find(ab), g.Find(ba))
}
