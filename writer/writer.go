// Package writer topologically emits an extracted term-DAG as a netlist,
// assigning a fresh wire name to every visited e-class and expanding XOR
// when the output format does not support it.
//
// Traversal is a post-order DFS: a small walker struct threads
// visited/order state through a recursive descent, with an
// exit-equivalent hook (here, the line-emission step) firing only after
// every child has already been assigned a wire.
package writer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/extract"
	"github.com/panther03/eqsatopt-go/term"
)

// Format selects the target netlist dialect.
type Format int

const (
	// FormatEqn supports AND/XOR/NOT/OR natively; no XOR expansion needed.
	FormatEqn Format = iota
	// FormatNoXor lacks a native XOR; every XOR(a,b) is expanded to
	// (!a*b) + (a*!b).
	FormatNoXor
)

// Output is the result of one Write call: the netlist text plus the set
// of wire names lying on a global-MD-realizing critical path, reported
// separately from the text itself.
type Output struct {
	Text         string
	CriticalPath []string // wire names, from the deepest output down to a leaf, realizing MD
}

// Writer emits netlists from an extracted selection.
type Writer struct {
	format Format
}

// Option configures a Writer.
type Option func(*Writer)

// WithFormat selects the output dialect. Default is FormatEqn.
func WithFormat(f Format) Option { return func(w *Writer) { w.format = f } }

// New constructs a Writer.
func New(opts ...Option) *Writer {
	w := &Writer{format: FormatEqn}
	for _, o := range opts {
		o(w)
	}
	return w
}

// walker carries the mutable state of one emission pass.
type walker struct {
	g        *egraph.EGraph
	chosen   map[egraph.ClassID]*extract.TermInfo
	format   Format
	wireName map[egraph.ClassID]string
	lines    []string
	counter  int
	md       int
}

// Write emits a netlist binding outputs (in order) to the wires realized
// by extracting through chosen, starting from roots (the root CONCAT's
// children); outputs names the primary outputs in roots order. Primary
// inputs are written under their SYMBOL names.
func (w *Writer) Write(g *egraph.EGraph, chosen map[egraph.ClassID]*extract.TermInfo, roots []egraph.ClassID, outputs []string) (*Output, error) {
	wk := &walker{
		g:        g,
		chosen:   chosen,
		format:   w.format,
		wireName: make(map[egraph.ClassID]string),
	}

	if len(outputs) != len(roots) {
		return nil, fmt.Errorf("writer: %d output names for %d root classes", len(outputs), len(roots))
	}

	outWires := make([]string, len(roots))
	for i, r := range roots {
		r = g.Find(r)
		name, err := wk.visit(r)
		if err != nil {
			return nil, err
		}
		outWires[i] = name
		if info, ok := chosen[r]; ok && info.Cost.Depth > wk.md {
			wk.md = info.Cost.Depth
		}
	}

	var sb strings.Builder
	sb.WriteString("INORDER =")
	for _, s := range wk.sortedSymbols() {
		sb.WriteString(" " + s)
	}
	sb.WriteString(" ;\n")
	sb.WriteString("OUTORDER =")
	for _, o := range outputs {
		sb.WriteString(" " + o)
	}
	sb.WriteString(" ;\n")
	for _, l := range wk.lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	for i, o := range outputs {
		sb.WriteString(fmt.Sprintf("%s = %s ;\n", o, outWires[i]))
	}

	return &Output{Text: sb.String(), CriticalPath: wk.criticalPath(roots, outWires)}, nil
}

// WriteTo is a convenience wrapper writing the netlist text to dst.
func (o *Output) WriteTo(dst io.Writer) (int, error) {
	return dst.Write([]byte(o.Text))
}

// visit assigns a wire to class c, recursing into its children first
// (post-order: a class's defining line only ever references already-named
// wires), and memoizes by class so DAG sharing becomes wire reuse.
func (wk *walker) visit(c egraph.ClassID) (string, error) {
	c = wk.g.Find(c)
	if name, ok := wk.wireName[c]; ok {
		if name == "" {
			return "", fmt.Errorf("writer: cyclic selection through class %d", c)
		}
		return name, nil
	}
	info, ok := wk.chosen[c]
	if !ok {
		return "", fmt.Errorf("writer: class %d has no extracted node", c)
	}

	if info.Tag == term.SYMBOL {
		n := wk.g.Node(info.Node)
		wk.wireName[c] = n.Symbol
		return n.Symbol, nil
	}
	if info.Tag == term.CONST {
		n := wk.g.Node(info.Node)
		name := wk.fresh()
		val := "0"
		if n.Const {
			val = "1"
		}
		wk.lines = append(wk.lines, fmt.Sprintf("%s = %s ;", name, val))
		wk.wireName[c] = name
		return name, nil
	}

	wk.wireName[c] = "" // in progress: a cyclic selection surfaces as a clear error, not infinite recursion
	childWires := make([]string, len(info.Children))
	for i, ch := range info.Children {
		cw, err := wk.visit(ch)
		if err != nil {
			return "", err
		}
		childWires[i] = cw
	}

	name := wk.fresh()
	wk.wireName[c] = name

	switch info.Tag {
	case term.NOT:
		wk.lines = append(wk.lines, fmt.Sprintf("%s = !%s ;", name, childWires[0]))
	case term.AND:
		wk.lines = append(wk.lines, fmt.Sprintf("%s = %s * %s ;", name, childWires[0], childWires[1]))
	case term.XOR:
		if wk.format == FormatNoXor {
			wk.emitXorExpansion(name, childWires[0], childWires[1])
		} else {
			wk.lines = append(wk.lines, fmt.Sprintf("%s = %s ^ %s ;", name, childWires[0], childWires[1]))
		}
	default:
		return "", fmt.Errorf("writer: unsupported root-level tag %s for class %d", info.Tag, c)
	}
	return name, nil
}

// emitXorExpansion lowers XOR(a,b) to (!a*b) + (a*!b), for output
// formats without a native XOR gate.
func (wk *walker) emitXorExpansion(out, a, b string) {
	notA := wk.fresh()
	wk.lines = append(wk.lines, fmt.Sprintf("%s = !%s ;", notA, a))
	notB := wk.fresh()
	wk.lines = append(wk.lines, fmt.Sprintf("%s = !%s ;", notB, b))
	left := wk.fresh()
	wk.lines = append(wk.lines, fmt.Sprintf("%s = %s * %s ;", left, notA, b))
	right := wk.fresh()
	wk.lines = append(wk.lines, fmt.Sprintf("%s = %s * %s ;", right, a, notB))
	wk.lines = append(wk.lines, fmt.Sprintf("%s = %s + %s ;", out, left, right))
}

func (wk *walker) fresh() string {
	name := fmt.Sprintf("w%d", wk.counter)
	wk.counter++
	return name
}

// sortedSymbols collects every SYMBOL wire used, in deterministic order,
// for the INORDER line.
func (wk *walker) sortedSymbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for c, info := range wk.chosen {
		if info.Tag != term.SYMBOL {
			continue
		}
		n := wk.g.Node(info.Node)
		if _, dup := seen[n.Symbol]; dup {
			continue
		}
		seen[n.Symbol] = struct{}{}
		out = append(out, n.Symbol)
		_ = c
	}
	sort.Strings(out)
	return out
}

// criticalPath starts at the deepest root and walks down along the
// deepest child at every step, returning the wire names on that chain
// from the output down to a leaf; the AND gates on the chain number
// exactly the reported global MD.
func (wk *walker) criticalPath(roots []egraph.ClassID, outWires []string) []string {
	best := -1
	var bestRoot egraph.ClassID
	for i, r := range roots {
		r = wk.g.Find(r)
		if info, ok := wk.chosen[r]; ok && info.Cost.Depth > best {
			best = info.Cost.Depth
			bestRoot = r
		}
		_ = outWires[i]
	}
	if best < 0 {
		return nil
	}

	var path []string
	c := bestRoot
	for {
		info, ok := wk.chosen[c]
		if !ok {
			break
		}
		path = append(path, wk.wireName[c])
		if len(info.Children) == 0 {
			break
		}
		next := info.Children[0]
		nextDepth := -1
		for _, ch := range info.Children {
			if childInfo, ok := wk.chosen[ch]; ok && childInfo.Cost.Depth > nextDepth {
				nextDepth = childInfo.Cost.Depth
				next = ch
			}
		}
		c = next
	}
	return path
}
