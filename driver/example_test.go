// Package driver_test provides runnable examples demonstrating the
// top-level saturate/extract/write flows. Each example is runnable via
// "go test -run Example", showing both code and expected output.
package driver_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/panther03/eqsatopt-go/driver"
	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/rewriter"
	"github.com/panther03/eqsatopt-go/term"
)

// ExampleSatMcMdDag_doubleNegationCollapse builds out = (!(!a)) * b and
// shows that saturating against the double-negation identity, then
// extracting, drops the redundant NOT pair entirely: in the collapsed
// class the SYMBOL node is the only acyclic candidate (the double-negation
// node would reach its own class), so the greedy extractor picks it.
func ExampleSatMcMdDag_doubleNegationCollapse() {
	// 1) Build the e-graph directly, one e-node at a time.
	g := egraph.New()
	a := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "a"})
	b := g.Add(&egraph.ENode{Tag: term.SYMBOL, Symbol: "b"})
	notA := g.Add(&egraph.ENode{Tag: term.NOT, Children: []egraph.ClassID{a}})
	notNotA := g.Add(&egraph.ENode{Tag: term.NOT, Children: []egraph.ClassID{notA}})
	out := g.Add(&egraph.ENode{Tag: term.AND, Children: []egraph.ClassID{notNotA, b}})

	// 2) Load the one rule that matters here.
	rules, err := rewriter.LoadRules(strings.NewReader("double-negation: (! (! ?x)) => ?x\n"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	// 3) Saturate and run the bounded greedy DAG extractor.
	res, err := driver.SatMcMdDag(context.Background(), g, rules, []egraph.ClassID{out}, []string{"out"}, driver.DefaultLimits())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("md=%d mc=%d\n", res.MD, res.MC)
	fmt.Print(res.Netlist.Text)
	// Output:
	// md=1 mc=1
	// INORDER = a b ;
	// OUTORDER = out ;
	// w0 = a * b ;
	// out = w0 ;
}
