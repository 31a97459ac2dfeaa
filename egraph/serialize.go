package egraph

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/panther03/eqsatopt-go/eqerr"
	"github.com/panther03/eqsatopt-go/term"
)

// Snapshot is an immutable, independently-owned serialization of an
// EGraph's e-classes and e-nodes. It is the bridge type used by the
// multi-iteration driver flow, which needs to remap root class ids across
// a pruned rebuild. Slack analysis reads the EGraph itself, not a Snapshot.
type Snapshot struct {
	Classes []SnapClass `msgpack:"classes"`
}

// SnapClass is one e-class's flattened member list in a Snapshot.
type SnapClass struct {
	ID    ClassID     `msgpack:"id"`
	Nodes []SnapENode `msgpack:"nodes"`
}

// SnapENode is one e-node's flattened representation in a Snapshot. Tag is
// stored as its raw uint8 value, so the snapshot format depends on the
// order of the term.Tag constants.
type SnapENode struct {
	Tag      uint8     `msgpack:"tag"`
	Children []ClassID `msgpack:"children"`
	Symbol   string     `msgpack:"symbol,omitempty"`
	Const    bool       `msgpack:"const,omitempty"`
}

// Serialize produces a Snapshot of the current (canonical) e-graph state.
// Class ids in the snapshot are pre-`find`ed, so a Snapshot never needs its
// own union-find.
func (g *EGraph) Serialize() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{Classes: make([]SnapClass, 0, len(g.classes))}
	for cid, cls := range g.classes {
		sc := SnapClass{ID: cid, Nodes: make([]SnapENode, 0, len(cls.Nodes))}
		for _, nid := range cls.Nodes {
			n := g.nodes[nid]
			sc.Nodes = append(sc.Nodes, SnapENode{
				Tag:      uint8(n.Tag),
				Children: g.canonicalizeChildren(n.Children),
				Symbol:   n.Symbol,
				Const:    n.Const,
			})
		}
		snap.Classes = append(snap.Classes, sc)
	}
	return snap
}

// Marshal encodes a Snapshot to msgpack bytes, for `--trace FILE` dumps
// and for callers that persist a snapshot. The multi-iteration driver
// flow passes its Snapshot in memory and does not marshal it.
func (s *Snapshot) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal snapshot: %v", eqerr.ErrIO, err)
	}
	return b, nil
}

// UnmarshalSnapshot decodes msgpack bytes produced by Snapshot.Marshal.
func UnmarshalSnapshot(b []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: unmarshal snapshot: %v", eqerr.ErrIO, err)
	}
	return &s, nil
}

// Rehydrate rebuilds a fresh, mutable EGraph from a Snapshot. Because
// e-class ids in the snapshot are already canonical, classes are recreated
// in snapshot order and a translation table old->new is built as classes
// with only constant/symbol leaves are added first, then composite nodes.
func Rehydrate(s *Snapshot) (*EGraph, map[ClassID]ClassID) {
	g := New()
	oldToNew := make(map[ClassID]ClassID, len(s.Classes))

	remaining := make([]SnapClass, len(s.Classes))
	copy(remaining, s.Classes)

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, sc := range remaining {
			ready := true
			for _, sn := range sc.Nodes {
				for _, c := range sn.Children {
					if _, ok := oldToNew[c]; !ok {
						ready = false
						break
					}
				}
				if !ready {
					break
				}
			}
			if !ready {
				next = append(next, sc)
				continue
			}
			var newID ClassID
			haveNewID := false
			for _, sn := range sc.Nodes {
				children := make([]ClassID, len(sn.Children))
				for i, c := range sn.Children {
					children[i] = oldToNew[c]
				}
				cid := g.Add(&ENode{
					Tag:      term.Tag(sn.Tag),
					Children: children,
					Symbol:   sn.Symbol,
					Const:    sn.Const,
				})
				if !haveNewID {
					newID = cid
					haveNewID = true
				} else {
					g.Union(newID, cid)
					newID = g.Find(newID)
				}
			}
			oldToNew[sc.ID] = newID
			progressed = true
		}
		remaining = next
		if !progressed && len(remaining) > 0 {
			// Residual classes only reference each other (a cycle of
			// composite nodes with no acyclic witness yet); break the
			// deadlock by adding their first node with children id 0,
			// which a subsequent Rebuild() will reconcile once the rest
			// of the cycle resolves.
			sc := remaining[0]
			cid := g.uf.makeSet()
			g.classes[cid] = &EClass{ID: cid}
			oldToNew[sc.ID] = cid
			remaining = remaining[1:]
		}
	}
	g.Rebuild()
	return g, oldToNew
}
