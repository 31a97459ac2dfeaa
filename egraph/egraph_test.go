package egraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/term"
)

func TestAddIsHashConsed(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})

	and1 := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{a, b}})
	and2 := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{a, b}})

	assert.Equal(t, and1, and2, "identical e-nodes must hash-cons to the same class")
	assert.Equal(t, 3, g.NumClasses())
}

func TestAddTermBuildsTree(t *testing.T) {
	g := egraph.New()
	tr := term.NewAnd(term.NewSymbol("a"), term.NewNot(term.NewSymbol("b")))
	root := g.AddTerm(tr)

	nodes := g.NodesOf(root)
	require.Len(t, nodes, 1)
	assert.Equal(t, term.AND, nodes[0].Tag)
}

func TestUnionMergesClasses(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})

	changed := g.Union(a, b)
	assert.True(t, changed)
	assert.Equal(t, g.Find(a), g.Find(b))

	changed = g.Union(a, b)
	assert.False(t, changed, "re-unioning already-equal classes reports no change")
}

func TestRebuildRestoresCongruence(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})
	c := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "c"})

	andAB := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{a, b}})
	andCB := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{c, b}})
	require.NotEqual(t, andAB, andCB)

	g.Union(a, c)
	g.Rebuild()

	assert.Equal(t, g.Find(andAB), g.Find(andCB), "congruence: a==c implies (a*b)==(c*b) after rebuild")
}

func TestDebugChecksCatchesDanglingChild(t *testing.T) {
	egraph.DebugChecks = true
	defer func() { egraph.DebugChecks = false }()

	g := egraph.New()
	assert.Panics(t, func() {
		g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{99, 100}})
	})
}

func TestSerializeRehydrateRoundTrip(t *testing.T) {
	g := egraph.New()
	a := term.NewSymbol("a")
	b := term.NewSymbol("b")
	root := g.AddTerm(term.NewAnd(a, term.NewXor(b, term.NewConst(true))))

	snap := g.Serialize()
	bytes, err := snap.Marshal()
	require.NoError(t, err)

	snap2, err := egraph.UnmarshalSnapshot(bytes)
	require.NoError(t, err)

	g2, remap := egraph.Rehydrate(snap2)
	newRoot := remap[g.Find(root)]
	nodes := g2.NodesOf(g2.Find(newRoot))
	require.Len(t, nodes, 1)
	assert.Equal(t, term.AND, nodes[0].Tag)
}
