package writer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/extract"
	"github.com/panther03/eqsatopt-go/term"
	"github.com/panther03/eqsatopt-go/writer"
)

func TestWriteSimpleAnd(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})
	root := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{a, b}})

	ex := extract.NewGreedy(g, nil)
	chosen, err := ex.Extract([]egraph.ClassID{root})
	require.NoError(t, err)

	out, err := writer.New().Write(g, chosen, []egraph.ClassID{root}, []string{"y"})
	require.NoError(t, err)

	assert.Contains(t, out.Text, "INORDER = a b ;")
	assert.Contains(t, out.Text, "OUTORDER = y ;")
	assert.Contains(t, out.Text, "* ")
	assert.Contains(t, out.Text, "y = w")
}

func TestWriteExpandsXorWhenFormatLacksIt(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})
	root := g.Add(&egraph.ENode{Tag: term.XOR, Children: []egraph.ClassID{a, b}})

	ex := extract.NewGreedy(g, nil)
	chosen, err := ex.Extract([]egraph.ClassID{root})
	require.NoError(t, err)

	out, err := writer.New(writer.WithFormat(writer.FormatNoXor)).Write(g, chosen, []egraph.ClassID{root}, []string{"y"})
	require.NoError(t, err)

	assert.NotContains(t, out.Text, "^")
	assert.True(t, strings.Contains(out.Text, "*") && strings.Contains(out.Text, "+"))
}

func TestWriteMismatchedOutputsErrors(t *testing.T) {
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	ex := extract.NewGreedy(g, nil)
	chosen, err := ex.Extract([]egraph.ClassID{a})
	require.NoError(t, err)

	_, err = writer.New().Write(g, chosen, []egraph.ClassID{a}, []string{"y1", "y2"})
	assert.Error(t, err)
}
