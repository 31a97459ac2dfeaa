package netlist

import (
	"strconv"

	"github.com/emicklei/dot"

	"github.com/panther03/eqsatopt-go/egraph"
	"github.com/panther03/eqsatopt-go/extract"
	"github.com/panther03/eqsatopt-go/term"
)

// DumpEGraph renders an e-graph as a Graphviz graph: one cluster per
// e-class containing its member e-nodes, with edges to each child
// e-class's cluster.
func DumpEGraph(g *egraph.EGraph) *dot.Graph {
	gr := dot.NewGraph(dot.Directed)
	gr.Attr("rankdir", "BT")

	clusters := make(map[egraph.ClassID]*dot.Graph)
	nodeIDs := make(map[egraph.NodeID]dot.Node)

	for _, c := range g.Classes() {
		sub := gr.Subgraph(classLabel(c), dot.ClusterOption{})
		clusters[c] = sub
		for _, nid := range g.NodeIDsOf(c) {
			n := g.Node(nid)
			label := n.Tag.String()
			if n.Tag == term.SYMBOL {
				label = n.Symbol
			}
			dn := sub.Node(nodeLabel(nid)).Label(label)
			nodeIDs[nid] = dn
		}
	}
	for _, c := range g.Classes() {
		for _, nid := range g.NodeIDsOf(c) {
			n := g.Node(nid)
			for _, ch := range g.ChildrenOf(n) {
				for _, childNid := range g.NodeIDsOf(ch) {
					gr.Edge(nodeIDs[nid], nodeIDs[childNid])
					break // one representative edge per child class is enough to show structure
				}
			}
		}
	}
	return gr
}

// DumpExtraction renders a chosen extraction (the output of extract.Greedy
// or extract.ILP) as a simple DAG: one node per selected e-class, edges to
// its children.
func DumpExtraction(g *egraph.EGraph, chosen map[egraph.ClassID]*extract.TermInfo, roots []egraph.ClassID) *dot.Graph {
	gr := dot.NewGraph(dot.Directed)
	gr.Attr("rankdir", "BT")

	nodes := make(map[egraph.ClassID]dot.Node)
	var ensure func(c egraph.ClassID) dot.Node
	ensure = func(c egraph.ClassID) dot.Node {
		if n, ok := nodes[c]; ok {
			return n
		}
		info := chosen[c]
		label := classLabel(c)
		if info != nil {
			label = info.Tag.String()
			if info.Tag == term.SYMBOL {
				label = g.Node(info.Node).Symbol
			}
		}
		n := gr.Node(classLabel(c)).Label(label)
		nodes[c] = n
		return n
	}

	for c, info := range chosen {
		n := ensure(c)
		for _, ch := range info.Children {
			cn := ensure(ch)
			gr.Edge(n, cn)
		}
	}
	for _, r := range roots {
		ensure(g.Find(r)).Attr("shape", "doublecircle")
	}
	return gr
}

func classLabel(c egraph.ClassID) string {
	return "class" + strconv.Itoa(int(c))
}

func nodeLabel(n egraph.NodeID) string {
	return "node" + strconv.Itoa(int(n))
}
