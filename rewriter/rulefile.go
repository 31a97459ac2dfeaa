package rewriter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/term"
)

// Rule is one loaded rewrite rule: LHS => RHS, or LHS <=> RHS if
// Bidirectional.
type Rule struct {
	Name          string
	LHS, RHS      *Pattern
	Bidirectional bool
}

// badRule wraps eqerr.ErrParse with the offending line for rule-file
// failures.
func badRule(line string, reason string) error {
	return fmt.Errorf("%w: bad rule %q: %s", eqerr.ErrParse, line, reason)
}

// LoadRules parses the rule-file format: one rule per line,
// `name:pattern=>pattern` or `name:pattern<=>pattern`, blank lines and
// lines starting with `#` ignored.
func LoadRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseRuleLine(line)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading rule file: %v", eqerr.ErrIO, err)
	}
	return rules, nil
}

func parseRuleLine(line string) (*Rule, error) {
	sep := strings.IndexByte(line, ':')
	if sep < 0 {
		return nil, badRule(line, "missing ':' separator")
	}
	name := strings.TrimSpace(line[:sep])
	rest := strings.TrimSpace(line[sep+1:])
	if name == "" {
		return nil, badRule(line, "empty rule name")
	}

	bidir := false
	var lhsText, rhsText string
	if idx := strings.Index(rest, "<=>"); idx >= 0 {
		bidir = true
		lhsText = strings.TrimSpace(rest[:idx])
		rhsText = strings.TrimSpace(rest[idx+len("<=>"):])
	} else if idx := strings.Index(rest, "=>"); idx >= 0 {
		lhsText = strings.TrimSpace(rest[:idx])
		rhsText = strings.TrimSpace(rest[idx+len("=>"):])
	} else {
		return nil, badRule(line, "missing '=>' or '<=>'")
	}
	if lhsText == "" || rhsText == "" {
		return nil, badRule(line, "empty pattern")
	}

	lhs, err := parsePattern(lhsText)
	if err != nil {
		return nil, badRule(line, err.Error())
	}
	rhs, err := parsePattern(rhsText)
	if err != nil {
		return nil, badRule(line, err.Error())
	}
	return &Rule{Name: name, LHS: lhs, RHS: rhs, Bidirectional: bidir}, nil
}

// tokenizePattern splits a prefix s-expression into `(`, `)`, and atoms.
func tokenizePattern(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch r {
		case '(', ')':
			flush()
			toks = append(toks, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// parsePattern parses a full prefix s-expression pattern:
// `(op child child...)`, atoms `?var`, `true`, `false`, or a bare
// identifier (treated as an implicit variable).
func parsePattern(s string) (*Pattern, error) {
	toks := tokenizePattern(s)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	p, rest, err := parsePatternToks(toks)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unparseable pattern: trailing tokens %v", rest)
	}
	return p, nil
}

func parsePatternToks(toks []string) (*Pattern, []string, error) {
	if len(toks) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of pattern")
	}
	head := toks[0]
	switch head {
	case "true":
		return ConstPat(true), toks[1:], nil
	case "false":
		return ConstPat(false), toks[1:], nil
	case "(":
		if len(toks) < 2 {
			return nil, nil, fmt.Errorf("unclosed '('")
		}
		opTok := toks[1]
		var tag term.Tag
		switch opTok {
		case "*":
			tag = term.AND
		case "^":
			tag = term.XOR
		case "!":
			tag = term.NOT
		case "$":
			tag = term.CONCAT
		case "+":
			return parseOrPattern(toks[2:])
		default:
			return nil, nil, fmt.Errorf("unknown operator %q", opTok)
		}
		rest := toks[2:]
		var children []*Pattern
		for {
			if len(rest) == 0 {
				return nil, nil, fmt.Errorf("unclosed '('")
			}
			if rest[0] == ")" {
				rest = rest[1:]
				break
			}
			var child *Pattern
			var err error
			child, rest, err = parsePatternToks(rest)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, child)
		}
		if arity := tag.Arity(); arity >= 0 && len(children) != arity {
			return nil, nil, fmt.Errorf("operator %q expects %d children, got %d", opTok, arity, len(children))
		}
		return Op(tag, children...), rest, nil
	case ")":
		return nil, nil, fmt.Errorf("unexpected ')'")
	default:
		// A bare identifier is a pattern variable; both `?var` and plain
		// `name` forms are accepted.
		name := strings.TrimPrefix(head, "?")
		if name == "" {
			return nil, nil, fmt.Errorf("empty variable name")
		}
		return Var(name), toks[1:], nil
	}
}

func parseOrPattern(rest []string) (*Pattern, []string, error) {
	a, rest, err := parsePatternToks(rest)
	if err != nil {
		return nil, nil, err
	}
	b, rest, err := parsePatternToks(rest)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) == 0 || rest[0] != ")" {
		return nil, nil, fmt.Errorf("'+' expects exactly 2 children")
	}
	return OrPat(a, b), rest[1:], nil
}
