package netlist_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panther03/eqsatopt-go/netlist"
	"github.com/panther03/eqsatopt-go/term"
)

func TestParseEqnBasicAndOr(t *testing.T) {
	src := "INORDER = a b c ;\nOUTORDER = y ;\nt1 = a * b ;\ny = t1 + c ;\n"
	n, err := netlist.ParseEqn(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, n.Inputs)
	assert.Equal(t, []string{"y"}, n.Outputs)
	require.Len(t, n.Assignments, 2)
	assert.Equal(t, term.AND, n.Assignments[0].Expr.Tag)
	// OR desugars to NOT(AND(NOT,NOT)) — no OR tag ever appears.
	assert.Equal(t, term.NOT, n.Assignments[1].Expr.Tag)
}

func TestParseEqnRequiresInorderHeader(t *testing.T) {
	_, err := netlist.ParseEqn(strings.NewReader("INORDER = a b ;\nOUTORDER = a ;\n"))
	assert.NoError(t, err, "a netlist with no assignments and an output equal to an input is well-formed")

	_, err = netlist.ParseEqn(strings.NewReader("INPUT = a ;"))
	assert.Error(t, err)
}

func TestParseSeqnStructural(t *testing.T) {
	src := "a b\ny\nt1 = * ; a ; b\ny = ^ ; t1 ; a\n"
	n, err := netlist.ParseSeqn(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.Inputs)
	assert.Equal(t, []string{"y"}, n.Outputs)
	require.Len(t, n.Assignments, 2)
	assert.Equal(t, term.XOR, n.Assignments[1].Expr.Tag)
}

func TestParseSeqnRejectsMalformedLine(t *testing.T) {
	_, err := netlist.ParseSeqn(strings.NewReader("a\ny\nbadline\n"))
	assert.Error(t, err)
}

func TestNetlistToTermResolvesWires(t *testing.T) {
	src := "INORDER = a b ;\nOUTORDER = y ;\nt1 = a * b ;\ny = t1 ^ a ;\n"
	n, err := netlist.ParseEqn(strings.NewReader(src))
	require.NoError(t, err)

	root, err := n.ToTerm()
	require.NoError(t, err)
	assert.Equal(t, term.CONCAT, root.Tag)
	require.Len(t, root.Children, 1)
	assert.Equal(t, term.XOR, root.Children[0].Tag)
}

func TestNetlistToTermDetectsCycle(t *testing.T) {
	n := &netlist.Netlist{
		Inputs:  nil,
		Outputs: []string{"y"},
		Assignments: []netlist.Assign{
			{LHS: "y", Expr: term.NewAnd(term.NewSymbol("z"), term.NewConst(true))},
			{LHS: "z", Expr: term.NewSymbol("y")},
		},
	}
	_, err := n.ToTerm()
	assert.Error(t, err)
}

func TestNetlistToTermUndefinedWireErrors(t *testing.T) {
	n := &netlist.Netlist{Outputs: []string{"y"}}
	_, err := n.ToTerm()
	assert.Error(t, err)
}

func TestWriteEqnRoundTripsThroughAssignments(t *testing.T) {
	n := &netlist.Netlist{
		Inputs:  []string{"a", "b"},
		Outputs: []string{"y"},
		Assignments: []netlist.Assign{
			{LHS: "y", Expr: term.NewXor(term.NewSymbol("a"), term.NewSymbol("b"))},
		},
	}
	var sb strings.Builder
	require.NoError(t, netlist.WriteEqn(n, &sb))
	assert.Contains(t, sb.String(), "INORDER = a b ;")
	assert.Contains(t, sb.String(), "y = (a ^ b) ;")
}

func TestWriteSeqnFlattensCompoundExpressions(t *testing.T) {
	n := &netlist.Netlist{
		Inputs:  []string{"a", "b", "c"},
		Outputs: []string{"y"},
		Assignments: []netlist.Assign{
			{LHS: "y", Expr: term.NewAnd(term.NewXor(term.NewSymbol("a"), term.NewSymbol("b")), term.NewSymbol("c"))},
		},
	}
	var sb strings.Builder
	require.NoError(t, netlist.WriteSeqn(n, &sb))
	out := sb.String()
	assert.Contains(t, out, "= ^ ; a ; b")
	assert.Contains(t, out, "= * ;")
	assert.True(t, strings.HasPrefix(out, "a b c\ny\n"))
}
