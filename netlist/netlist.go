// Package netlist holds the plain (non-e-graph) textual representation
// of a combinational circuit and the external collaborators around it:
// the `.eqn`/`.seqn` lexer/parser, dialect conversion, and DOT dumping.
//
// Netlist is plain data: converters operate on it from the outside, no
// method on Netlist mutates an e-graph, and no e-graph type depends on
// this package — the bridge is one direction only, via term.Term
// (see ToTerm).
package netlist

import (
	"fmt"

	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/term"
)

// Assign is one `lhs = expr ;` line, already desugared to a term.Term
// (OR expanded to De Morgan form at parse time).
type Assign struct {
	LHS  string
	Expr *term.Term
}

// Netlist is the parsed form of an .eqn or .seqn source: ordered primary
// inputs and outputs, plus the assignments binding every intermediate and
// output wire to an expression.
type Netlist struct {
	Inputs      []string
	Outputs     []string
	Assignments []Assign
}

// ToTerm builds the single CONCAT root term binding every output, in
// Outputs order, substituting each referenced wire with its defining
// expression. Assignments are resolved by repeated substitution rather
// than by building an intermediate graph of wires — netlists are small
// and acyclic by construction, so this is the simplest correct approach;
// cycle handling only applies to the e-graph built from this term, not
// to the literal input netlist.
func (n *Netlist) ToTerm() (*term.Term, error) {
	byName := make(map[string]*term.Term, len(n.Assignments))
	for _, in := range n.Inputs {
		byName[in] = term.NewSymbol(in)
	}
	resolved := make(map[string]*term.Term, len(n.Assignments))

	var resolve func(name string, stack map[string]bool) (*term.Term, error)
	resolve = func(name string, stack map[string]bool) (*term.Term, error) {
		if t, ok := byName[name]; ok {
			return t, nil
		}
		if t, ok := resolved[name]; ok {
			return t, nil
		}
		if stack[name] {
			return nil, fmt.Errorf("%w: netlist: cyclic wire reference at %q", eqerr.ErrParse, name)
		}
		var asn *Assign
		for i := range n.Assignments {
			if n.Assignments[i].LHS == name {
				asn = &n.Assignments[i]
				break
			}
		}
		if asn == nil {
			return nil, fmt.Errorf("%w: netlist: undefined wire %q", eqerr.ErrParse, name)
		}
		stack[name] = true
		t, err := substitute(asn.Expr, byName, resolved, stack, resolve)
		if err != nil {
			return nil, err
		}
		delete(stack, name)
		resolved[name] = t
		return t, nil
	}

	outs := make([]*term.Term, len(n.Outputs))
	for i, o := range n.Outputs {
		t, err := resolve(o, map[string]bool{})
		if err != nil {
			return nil, err
		}
		outs[i] = t
	}
	return term.NewConcat(outs...), nil
}

// substitute recursively replaces SYMBOL leaves that name a wire (rather
// than a true primary input) with that wire's resolved expression.
func substitute(t *term.Term, inputs, resolved map[string]*term.Term, stack map[string]bool, resolve func(string, map[string]bool) (*term.Term, error)) (*term.Term, error) {
	if t.Tag == term.SYMBOL {
		if _, isInput := inputs[t.Symbol]; isInput {
			return t, nil
		}
		return resolve(t.Symbol, stack)
	}
	if t.Tag == term.CONST {
		return t, nil
	}
	children := make([]*term.Term, len(t.Children))
	for i, c := range t.Children {
		rc, err := substitute(c, inputs, resolved, stack, resolve)
		if err != nil {
			return nil, err
		}
		children[i] = rc
	}
	return &term.Term{Tag: t.Tag, Children: children, Symbol: t.Symbol, Const: t.Const}, nil
}
