// Package egraph implements the e-graph data structure: e-classes
// (equivalence classes of terms), e-nodes (operator + ordered child
// e-class references), a union-find over e-classes, and a hash-cons index
// mapping canonicalized e-nodes to their class.
//
// The EGraph is the sole owner of every e-class and e-node it creates; all
// other packages in this module hold only short-lived references or
// ClassID copies. Thread-safety follows a single coarse RWMutex guarding
// all mutable state, since the e-graph itself is mutated only by its
// single owning thread; the mutex here exists purely so a caller that
// reads classes() concurrently with rebuild() (e.g. a progress logger)
// gets a consistent snapshot rather than a torn one.
package egraph

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/term"
)

// ClassID is a stable e-class identifier. IDs are never reused or deleted;
// `union` may make one id's canonical resolution point at another.
type ClassID int

// NodeID identifies an e-node within its owning EGraph, independent of
// which e-class currently contains it (an e-node's class membership can
// change across unions without the e-node itself being recreated only in
// the sense that its identity key is recomputed on rebuild).
type NodeID int

// ENode is an operator application over e-class children. Identity is
// (Tag, canonical(Children), Payload).
type ENode struct {
	Tag      term.Tag
	Children []ClassID
	Symbol   string
	Const    bool
}

func (n *ENode) key() string {
	var b strings.Builder
	b.WriteByte(byte(n.Tag))
	b.WriteByte('|')
	if n.Tag == term.SYMBOL {
		b.WriteString(n.Symbol)
	}
	if n.Tag == term.CONST {
		if n.Const {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte('|')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(c)))
	}
	return b.String()
}

// EClass is an equivalence class of e-nodes, all believed to compute the
// same boolean function. Parents records which e-nodes (by NodeID)
// reference this class as a child, needed for upward congruence closure
// during rebuild.
type EClass struct {
	ID      ClassID
	Nodes   []NodeID
	Parents []NodeID
}

// DebugChecks gates the expensive invariant assertions (e.g. adding a
// child id that does not exist is a bug, detectable in debug mode). Off
// by default; set true in tests.
var DebugChecks = false

// EGraph owns every e-class and e-node. Use New to construct one.
type EGraph struct {
	mu sync.RWMutex

	uf      *unionFind
	nodes   []*ENode          // indexed by NodeID
	home    []ClassID         // home[n] = the class ENode n currently lives in (pre-find)
	classes map[ClassID]*EClass
	hashcon map[string]ClassID // canonical node key -> class id

	dirty map[ClassID]struct{} // classes whose parents need recongruence
}

// New returns an empty EGraph.
func New() *EGraph {
	return &EGraph{
		uf:      newUnionFind(),
		classes: make(map[ClassID]*EClass),
		hashcon: make(map[string]ClassID),
		dirty:   make(map[ClassID]struct{}),
	}
}

// canonicalize returns a copy of children with every element replaced by
// its current find() representative.
func (g *EGraph) canonicalizeChildren(children []ClassID) []ClassID {
	out := make([]ClassID, len(children))
	for i, c := range children {
		out[i] = g.uf.find(c)
	}
	return out
}

// Add hash-cons the node with canonicalized children and returns its
// class id. Two structurally equal adds return the same id.
func (g *EGraph) Add(n *ENode) ClassID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(n)
}

func (g *EGraph) addLocked(n *ENode) ClassID {
	if DebugChecks {
		for _, c := range n.Children {
			if _, ok := g.classes[g.uf.find(c)]; !ok {
				panic(eqerr.Invariant("egraph.Add: child class does not exist"))
			}
		}
	}
	canon := &ENode{Tag: n.Tag, Symbol: n.Symbol, Const: n.Const, Children: g.canonicalizeChildren(n.Children)}
	key := canon.key()
	if cid, ok := g.hashcon[key]; ok {
		return g.uf.find(cid)
	}

	// Fresh e-class for this e-node.
	cid := g.uf.makeSet()
	nid := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, canon)
	g.home = append(g.home, cid)
	g.classes[cid] = &EClass{ID: cid, Nodes: []NodeID{nid}}
	g.hashcon[key] = cid

	for _, c := range canon.Children {
		if cls := g.classes[c]; cls != nil {
			cls.Parents = append(cls.Parents, nid)
		}
	}
	return cid
}

// AddTerm recursively adds a plain term.Term tree, returning the class of
// its root. This is the bridge used by the external .eqn/.seqn parser and
// by the rewriter when instantiating a rule's right-hand side.
func (g *EGraph) AddTerm(t *term.Term) ClassID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addTermLocked(t)
}

func (g *EGraph) addTermLocked(t *term.Term) ClassID {
	children := make([]ClassID, len(t.Children))
	for i, c := range t.Children {
		children[i] = g.addTermLocked(c)
	}
	return g.addLocked(&ENode{Tag: t.Tag, Children: children, Symbol: t.Symbol, Const: t.Const})
}

// Find returns the canonical representative of id. It is the only legal
// way to read a class id.
func (g *EGraph) Find(id ClassID) ClassID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.uf.find(id)
}

// Union unifies find(a) and find(b), returning whether they were
// previously distinct. It schedules the merged class as dirty so a
// subsequent Rebuild restores congruence.
func (g *EGraph) Union(a, b ClassID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unionLocked(a, b)
}

func (g *EGraph) unionLocked(a, b ClassID) bool {
	ra, rb := g.uf.find(a), g.uf.find(b)
	if ra == rb {
		return false
	}
	winner, changed := g.uf.union(a, b)
	if !changed {
		return false
	}
	loser := ra
	if winner == ra {
		loser = rb
	}
	wc, lc := g.classes[winner], g.classes[loser]
	wc.Nodes = append(wc.Nodes, lc.Nodes...)
	wc.Parents = append(wc.Parents, lc.Parents...)
	delete(g.classes, loser)
	g.dirty[winner] = struct{}{}
	return true
}

// Rebuild repeatedly processes dirty classes until none remain, restoring
// the canonicalization and congruence invariants. It must converge
// because every merge strictly reduces the number of classes.
func (g *EGraph) Rebuild() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebuildLocked()
}

func (g *EGraph) rebuildLocked() {
	for len(g.dirty) > 0 {
		todo := g.dirty
		g.dirty = make(map[ClassID]struct{})
		for cid := range todo {
			cid = g.uf.find(cid)
			cls, ok := g.classes[cid]
			if !ok {
				continue
			}
			g.recanonicalizeParents(cls)
		}
	}
	// One final pass to deduplicate member-node identities within each
	// surviving class now that the dirty set is empty.
	for cid, cls := range g.classes {
		g.dedupClassNodes(cid, cls)
	}
}

// recanonicalizeParents walks every e-node that references cls as a child,
// recomputes its canonical key, and if that key now collides with an
// e-node in a different class, unions the two classes (upward congruence
// closure).
func (g *EGraph) recanonicalizeParents(cls *EClass) {
	seen := make(map[NodeID]struct{}, len(cls.Parents))
	parents := cls.Parents
	cls.Parents = cls.Parents[:0]
	for _, nid := range parents {
		if _, dup := seen[nid]; dup {
			continue
		}
		seen[nid] = struct{}{}
		n := g.nodes[nid]
		canonChildren := g.canonicalizeChildren(n.Children)
		n.Children = canonChildren
		key := n.key()
		home := g.uf.find(g.home[nid])

		if existing, ok := g.hashcon[key]; ok {
			existing = g.uf.find(existing)
			if existing != home {
				g.unionLocked(existing, home)
			} else {
				g.hashcon[key] = existing
			}
		} else {
			g.hashcon[key] = home
		}
		if hc := g.classes[g.uf.find(home)]; hc != nil {
			hc.Parents = append(hc.Parents, nid)
		}
	}
}

// dedupClassNodes removes duplicate e-node entries that can appear in a
// class's Nodes slice after repeated merges (the same e-node reachable via
// two different parent chains).
func (g *EGraph) dedupClassNodes(cid ClassID, cls *EClass) {
	if g.uf.find(cid) != cid {
		return
	}
	seen := make(map[NodeID]struct{}, len(cls.Nodes))
	out := cls.Nodes[:0]
	for _, nid := range cls.Nodes {
		if _, dup := seen[nid]; dup {
			continue
		}
		seen[nid] = struct{}{}
		out = append(out, nid)
	}
	cls.Nodes = out
}

// Classes returns every live (canonical) class id in ascending order.
func (g *EGraph) Classes() []ClassID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ClassID, 0, len(g.classes))
	for cid := range g.classes {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NodesOf returns the member e-nodes of the canonical class containing id.
func (g *EGraph) NodesOf(id ClassID) []*ENode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cls := g.classes[g.uf.find(id)]
	if cls == nil {
		return nil
	}
	out := make([]*ENode, len(cls.Nodes))
	for i, nid := range cls.Nodes {
		out[i] = g.nodes[nid]
	}
	return out
}

// NodeIDsOf returns the member e-node ids (stable across rebuilds) of the
// canonical class containing id, in the node's original insertion order —
// the iteration order the extractor's determinism guarantee relies on.
func (g *EGraph) NodeIDsOf(id ClassID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cls := g.classes[g.uf.find(id)]
	if cls == nil {
		return nil
	}
	out := make([]NodeID, len(cls.Nodes))
	copy(out, cls.Nodes)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Node returns the e-node for a stable NodeID.
func (g *EGraph) Node(id NodeID) *ENode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// ChildrenOf returns the canonical child class ids of an e-node.
func (g *EGraph) ChildrenOf(n *ENode) []ClassID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ClassID, len(n.Children))
	for i, c := range n.Children {
		out[i] = g.uf.find(c)
	}
	return out
}

// NumClasses returns the number of live classes (used by resource limits
// and progress logging).
func (g *EGraph) NumClasses() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.classes)
}

// NumNodes returns the total number of e-nodes ever created (including
// ones whose class has since been merged away — this is the quantity a
// `node_limit` resource bound should count, not live class count).
func (g *EGraph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
