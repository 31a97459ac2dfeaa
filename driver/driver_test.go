package driver_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panther03/eqsatopt-go/driver"
	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/rewriter"
	"github.com/panther03/eqsatopt-go/term"
)

// buildXorAsAnd builds a 3-AND/NOT class AND(AND(!a,b), AND(a,!b)), so that
// the flows have an AND-heavy baseline which the xor-intro rewrite rule
// below turns into an XOR(a,b) alternative. The rule is a test fixture,
// not a boolean identity: that AND structure is constant false, not XOR.
func buildXorAsAnd(t *testing.T) (*egraph.EGraph, egraph.ClassID) {
	t.Helper()
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})
	notA := g.Add(&egraph.ENode{Tag: term.NOT, Children: []egraph.ClassID{a}})
	notB := g.Add(&egraph.ENode{Tag: term.NOT, Children: []egraph.ClassID{b}})
	t1 := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{notA, b}})
	t2 := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{a, notB}})
	root := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{t1, t2}})
	return g, root
}

const xorIntroRule = "xor-intro: (* (* (! ?x) ?y) (* ?x (! ?y))) => (^ ?x ?y)"

func TestSatMcIlpPrefersZeroAndXor(t *testing.T) {
	g, root := buildXorAsAnd(t)
	rules, err := rewriter.LoadRules(strings.NewReader(xorIntroRule))
	require.NoError(t, err)

	lim := driver.DefaultLimits()
	res, err := driver.SatMcIlp(context.Background(), g, rules, []egraph.ClassID{root}, []string{"y"}, lim)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MC, "saturation should discover the zero-AND XOR alternative and both extractors should prefer it")
}

func TestSatMcMdDagRunsWithoutIlp(t *testing.T) {
	g, root := buildXorAsAnd(t)
	rules, err := rewriter.LoadRules(strings.NewReader(xorIntroRule))
	require.NoError(t, err)

	lim := driver.DefaultLimits()
	res, err := driver.SatMcMdDag(context.Background(), g, rules, []egraph.ClassID{root}, []string{"y"}, lim)
	require.NoError(t, err)
	assert.NotNil(t, res.Netlist)
	assert.GreaterOrEqual(t, res.MD, 0)
}

func TestTracingHEConvergeRelaxesBoundUntilFeasible(t *testing.T) {
	g, root := buildXorAsAnd(t)
	rules, err := rewriter.LoadRules(strings.NewReader(xorIntroRule))
	require.NoError(t, err)

	lim := driver.DefaultLimits()
	res, err := driver.TracingHEConverge(context.Background(), g, rules, []egraph.ClassID{root}, []string{"y"}, 4, lim)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MC)
}

func TestMultiIterProducesAResult(t *testing.T) {
	g, root := buildXorAsAnd(t)
	rules, err := rewriter.LoadRules(strings.NewReader(xorIntroRule))
	require.NoError(t, err)

	lim := driver.DefaultLimits()
	rng := rand.New(rand.NewSource(1))
	res, err := driver.MultiIter(context.Background(), g, rules, []egraph.ClassID{root}, []string{"y"}, 2, 0.5, 4, rng, lim)
	require.NoError(t, err)
	assert.NotNil(t, res.Netlist)
	assert.GreaterOrEqual(t, res.Stats.FinalClasses, 1)
}
