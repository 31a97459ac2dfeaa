package netlist

import (
	"fmt"
	"io"
	"strings"

	"github.com/panther03/eqsatopt-go/term"
)

// WriteEqn serializes n back to `.eqn` text, the inverse of ParseEqn
// modulo OR re-sugaring: since term.Term never retains an OR tag (it is
// always stored as its De Morgan expansion), converted output always
// spells OR out as the expanded AND/NOT form rather than reconstructing
// `+` — callers that need literal `+` output should track OR occurrences
// themselves before the netlist reaches this package.
func WriteEqn(n *Netlist, w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("INORDER = " + strings.Join(n.Inputs, " ") + " ;\n")
	sb.WriteString("OUTORDER = " + strings.Join(n.Outputs, " ") + " ;\n")
	for _, a := range n.Assignments {
		sb.WriteString(a.LHS + " = " + exprToEqn(a.Expr) + " ;\n")
	}
	_, err := w.Write([]byte(sb.String()))
	return err
}

func exprToEqn(t *term.Term) string {
	switch t.Tag {
	case term.CONST:
		if t.Const {
			return "1"
		}
		return "0"
	case term.SYMBOL:
		return t.Symbol
	case term.NOT:
		return "!" + exprToEqn(t.Children[0])
	case term.AND:
		return "(" + exprToEqn(t.Children[0]) + " * " + exprToEqn(t.Children[1]) + ")"
	case term.XOR:
		return "(" + exprToEqn(t.Children[0]) + " ^ " + exprToEqn(t.Children[1]) + ")"
	default:
		return fmt.Sprintf("<unsupported:%s>", t.Tag)
	}
}

// WriteSeqn serializes n to the structural `.seqn` dialect: every
// assignment is decomposed into single-operator lines by introducing
// fresh intermediate wires for any compound sub-expression, mirroring the
// teacher's matrix.ToEdgeList role of flattening a richer structure into
// the simplest possible line-oriented form.
func WriteSeqn(n *Netlist, w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(strings.Join(n.Inputs, " ") + "\n")
	sb.WriteString(strings.Join(n.Outputs, " ") + "\n")

	counter := 0
	fresh := func() string {
		counter++
		return fmt.Sprintf("t%d", counter)
	}
	known := make(map[string]bool, len(n.Inputs))
	for _, in := range n.Inputs {
		known[in] = true
	}

	var flatten func(t *term.Term) string
	flatten = func(t *term.Term) string {
		switch t.Tag {
		case term.SYMBOL:
			return t.Symbol
		case term.CONST:
			name := fresh()
			val := "0"
			if t.Const {
				val = "1"
			}
			sb.WriteString(fmt.Sprintf("%s = w ; %s\n", name, val))
			return name
		case term.NOT:
			a := flatten(t.Children[0])
			name := fresh()
			sb.WriteString(fmt.Sprintf("%s = ! ; %s\n", name, a))
			return name
		case term.AND:
			a := flatten(t.Children[0])
			b := flatten(t.Children[1])
			name := fresh()
			sb.WriteString(fmt.Sprintf("%s = * ; %s ; %s\n", name, a, b))
			return name
		case term.XOR:
			a := flatten(t.Children[0])
			b := flatten(t.Children[1])
			name := fresh()
			sb.WriteString(fmt.Sprintf("%s = ^ ; %s ; %s\n", name, a, b))
			return name
		default:
			return ""
		}
	}

	for _, a := range n.Assignments {
		wire := flatten(a.Expr)
		if wire != a.LHS {
			sb.WriteString(fmt.Sprintf("%s = w ; %s\n", a.LHS, wire))
		}
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}
