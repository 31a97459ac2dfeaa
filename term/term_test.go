package term_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panther03/eqsatopt-go/term"
)

func TestTagWeight(t *testing.T) {
	assert.Equal(t, 1, term.AND.Weight())
	assert.Equal(t, 0, term.XOR.Weight())
	assert.Equal(t, 0, term.NOT.Weight())
	assert.Equal(t, 0, term.SYMBOL.Weight())
	assert.Equal(t, 0, term.CONST.Weight())
}

func TestTagArity(t *testing.T) {
	assert.Equal(t, 2, term.AND.Arity())
	assert.Equal(t, 2, term.XOR.Arity())
	assert.Equal(t, 1, term.NOT.Arity())
	assert.Equal(t, 0, term.CONST.Arity())
	assert.Equal(t, 0, term.SYMBOL.Arity())
	assert.Equal(t, -1, term.CONCAT.Arity())
}

func TestTagCommutative(t *testing.T) {
	assert.True(t, term.AND.Commutative())
	assert.True(t, term.XOR.Commutative())
	assert.False(t, term.NOT.Commutative())
	assert.False(t, term.SYMBOL.Commutative())
}

func TestNewOrDesugarsToDeMorgan(t *testing.T) {
	a := term.NewSymbol("a")
	b := term.NewSymbol("b")
	or := term.NewOr(a, b)

	require.Equal(t, term.NOT, or.Tag)
	require.Len(t, or.Children, 1)
	inner := or.Children[0]
	require.Equal(t, term.AND, inner.Tag)
	require.Len(t, inner.Children, 2)
	assert.Equal(t, term.NOT, inner.Children[0].Tag)
	assert.Equal(t, term.NOT, inner.Children[1].Tag)
	assert.Equal(t, "a", inner.Children[0].Children[0].Symbol)
	assert.Equal(t, "b", inner.Children[1].Children[0].Symbol)
}

func TestTermStringRendersPrefixSExpr(t *testing.T) {
	a := term.NewSymbol("a")
	b := term.NewSymbol("b")
	n := term.NewAnd(a, term.NewNot(b))
	assert.Equal(t, "(* a (! b))", n.String())
}

func TestTermStringConst(t *testing.T) {
	assert.Equal(t, "true", term.NewConst(true).String())
	assert.Equal(t, "false", term.NewConst(false).String())
}

func TestTermEqual(t *testing.T) {
	a1 := term.NewAnd(term.NewSymbol("x"), term.NewSymbol("y"))
	a2 := term.NewAnd(term.NewSymbol("x"), term.NewSymbol("y"))
	a3 := term.NewAnd(term.NewSymbol("y"), term.NewSymbol("x"))

	assert.True(t, a1.Equal(a2))
	assert.False(t, a1.Equal(a3), "AND is order-sensitive at the Term level; canonicalization happens in egraph")
}

func TestTermEqualNilHandling(t *testing.T) {
	var a, b *term.Term
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(term.NewConst(true)))
}
