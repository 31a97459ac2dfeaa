package rewriter

import "github.com/panther03/eqsatopt-go/term"

// patKind distinguishes a Pattern node that binds a variable from one that
// matches a concrete operator.
type patKind uint8

const (
	patOp patKind = iota
	patVar
	patConst
)

// Pattern is a tree over the rule-file signature: `*` (AND),
// `^` (XOR), `!` (NOT), `+` (OR, desugared to De Morgan at parse time so
// only AND/XOR/NOT/CONCAT ever reach the matcher), `$` (CONCAT), `?name`
// variables, and the literals `true`/`false`.
type Pattern struct {
	kind     patKind
	op       term.Tag
	children []*Pattern
	varName  string
	constVal bool
}

// Var builds a pattern variable matching any e-class.
func Var(name string) *Pattern { return &Pattern{kind: patVar, varName: name} }

// ConstPat builds a pattern literal matching only a CONST e-node of value v.
func ConstPat(v bool) *Pattern { return &Pattern{kind: patConst, constVal: v} }

// Op builds an operator pattern node for tag as given. OR (`+`) has no
// tag and is built with OrPat instead, as the canonical De Morgan form
// NOT(AND(NOT a, NOT b)) — the term package has no OR tag, and pattern
// matching must only ever see tags the e-graph itself can produce (see
// DESIGN.md for the rationale).
func Op(tag term.Tag, children ...*Pattern) *Pattern {
	return &Pattern{kind: patOp, op: tag, children: children}
}

// OrPat builds the OR pattern a+b as its De Morgan expansion.
func OrPat(a, b *Pattern) *Pattern {
	return Op(term.NOT, Op(term.AND, Op(term.NOT, a), Op(term.NOT, b)))
}
