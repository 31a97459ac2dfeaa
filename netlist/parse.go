package netlist

import (
	"fmt"
	"io"
	"strings"
	"text/scanner"

	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/term"
)

// ParseEqn parses the `.eqn` dialect: an INORDER line, an
// OUTORDER line, then zero or more `lhs = expr ;` assignments using infix
// `*` (AND), `+` (OR), `^` (XOR), unary `!` (NOT), parentheses,
// identifiers and `0|1|true|false` constants. OR is desugared to
// NOT(AND(NOT a, NOT b)) while parsing, matching how term.NewOr builds
// an OR node in memory.
func ParseEqn(r io.Reader) (*Netlist, error) {
	p := newEqnParser(r)
	return p.parse()
}

type eqnParser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func newEqnParser(r io.Reader) *eqnParser {
	p := &eqnParser{}
	p.s.Init(r)
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts
	p.s.Whitespace = scanner.GoWhitespace
	p.next()
	return p
}

func (p *eqnParser) next() {
	p.tok = p.s.Scan()
}

func (p *eqnParser) text() string { return p.s.TokenText() }

func (p *eqnParser) badf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: netlist: %s (line %d)", eqerr.ErrParse, fmt.Sprintf(format, args...), p.s.Pos().Line)
}

// expectWord accepts a bare word like "INORDER", which the scanner
// classifies as a scanner.Ident, when its text equals word.
func (p *eqnParser) expectWord(word string) error {
	if p.tok != scanner.Ident || p.text() != word {
		return p.badf("expected %q, got %q", word, p.text())
	}
	p.next()
	return nil
}

func (p *eqnParser) expectRune(r rune) error {
	if p.tok != r {
		return p.badf("expected %q, got %q", string(r), p.text())
	}
	p.next()
	return nil
}

func (p *eqnParser) parse() (*Netlist, error) {
	n := &Netlist{}

	if err := p.expectWord("INORDER"); err != nil {
		return nil, err
	}
	if err := p.expectRune('='); err != nil {
		return nil, err
	}
	for p.tok != ';' {
		if p.tok != scanner.Ident {
			return nil, p.badf("expected identifier in INORDER, got %q", p.text())
		}
		n.Inputs = append(n.Inputs, p.text())
		p.next()
	}
	p.next() // consume ';'

	if err := p.expectWord("OUTORDER"); err != nil {
		return nil, err
	}
	if err := p.expectRune('='); err != nil {
		return nil, err
	}
	for p.tok != ';' {
		if p.tok != scanner.Ident {
			return nil, p.badf("expected identifier in OUTORDER, got %q", p.text())
		}
		n.Outputs = append(n.Outputs, p.text())
		p.next()
	}
	p.next()

	for p.tok != scanner.EOF {
		if p.tok != scanner.Ident {
			return nil, p.badf("expected assignment lhs, got %q", p.text())
		}
		lhs := p.text()
		p.next()
		if err := p.expectRune('='); err != nil {
			return nil, err
		}
		expr, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectRune(';'); err != nil {
			return nil, err
		}
		n.Assignments = append(n.Assignments, Assign{LHS: lhs, Expr: expr})
	}

	return n, nil
}

// Precedence, loosest to tightest: OR (+), XOR (^), AND (*), NOT (!).
func (p *eqnParser) parseOrExpr() (*term.Term, error) {
	lhs, err := p.parseXorExpr()
	if err != nil {
		return nil, err
	}
	for p.tok == '+' {
		p.next()
		rhs, err := p.parseXorExpr()
		if err != nil {
			return nil, err
		}
		lhs = term.NewOr(lhs, rhs)
	}
	return lhs, nil
}

func (p *eqnParser) parseXorExpr() (*term.Term, error) {
	lhs, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.tok == '^' {
		p.next()
		rhs, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		lhs = term.NewXor(lhs, rhs)
	}
	return lhs, nil
}

func (p *eqnParser) parseAndExpr() (*term.Term, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok == '*' {
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = term.NewAnd(lhs, rhs)
	}
	return lhs, nil
}

func (p *eqnParser) parseUnary() (*term.Term, error) {
	if p.tok == '!' {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return term.NewNot(inner), nil
	}
	return p.parseAtom()
}

func (p *eqnParser) parseAtom() (*term.Term, error) {
	switch {
	case p.tok == '(':
		p.next()
		inner, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectRune(')'); err != nil {
			return nil, err
		}
		return inner, nil
	case p.tok == scanner.Int:
		v := p.text()
		p.next()
		switch v {
		case "0":
			return term.NewConst(false), nil
		case "1":
			return term.NewConst(true), nil
		default:
			return nil, p.badf("invalid numeric constant %q", v)
		}
	case p.tok == scanner.Ident:
		name := p.text()
		p.next()
		switch strings.ToLower(name) {
		case "true":
			return term.NewConst(true), nil
		case "false":
			return term.NewConst(false), nil
		default:
			return term.NewSymbol(name), nil
		}
	default:
		return nil, p.badf("unexpected token %q", p.text())
	}
}

// ParseSeqn parses the `.seqn` dialect: primary inputs on the
// first line, primary outputs on the second, then structural assignment
// lines `lhs = op ; arg1 ; arg2` with op in {*, ^, !, w} (w is a wire
// alias copying arg1). Unlike .eqn, there is no general expression
// grammar: each line names exactly one operator application.
func ParseSeqn(r io.Reader) (*Netlist, error) {
	lines, err := splitSeqnLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: netlist: .seqn requires at least an input and output line", eqerr.ErrParse)
	}
	n := &Netlist{
		Inputs:  strings.Fields(lines[0]),
		Outputs: strings.Fields(lines[1]),
	}
	for i, line := range lines[2:] {
		asn, err := parseSeqnLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w (line %d)", err, i+3)
		}
		n.Assignments = append(n.Assignments, asn)
	}
	return n, nil
}

func splitSeqnLines(r io.Reader) ([]string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: netlist: %v", eqerr.ErrIO, err)
	}
	var out []string
	for _, l := range strings.Split(string(buf), "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func parseSeqnLine(line string) (Assign, error) {
	parts := strings.Split(line, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return Assign{}, fmt.Errorf("%w: netlist: malformed .seqn line %q", eqerr.ErrParse, line)
	}
	head := strings.SplitN(parts[0], "=", 2)
	if len(head) != 2 {
		return Assign{}, fmt.Errorf("%w: netlist: missing '=' in %q", eqerr.ErrParse, line)
	}
	lhs := strings.TrimSpace(head[0])
	op := strings.TrimSpace(head[1])

	args := parts[1:]
	argTerm := func(i int) *term.Term {
		if i >= len(args) {
			return term.NewSymbol("")
		}
		return seqnOperand(args[i])
	}

	switch op {
	case "*":
		return Assign{LHS: lhs, Expr: term.NewAnd(argTerm(0), argTerm(1))}, nil
	case "^":
		return Assign{LHS: lhs, Expr: term.NewXor(argTerm(0), argTerm(1))}, nil
	case "!":
		return Assign{LHS: lhs, Expr: term.NewNot(argTerm(0))}, nil
	case "w":
		return Assign{LHS: lhs, Expr: argTerm(0)}, nil
	default:
		return Assign{}, fmt.Errorf("%w: netlist: unknown .seqn operator %q", eqerr.ErrParse, op)
	}
}

func seqnOperand(s string) *term.Term {
	switch strings.ToLower(s) {
	case "0", "false":
		return term.NewConst(false)
	case "1", "true":
		return term.NewConst(true)
	default:
		return term.NewSymbol(s)
	}
}
