// Package slack computes, per e-class, the minimum multiplicative depth
// from the primary inputs (forward) and the maximum remaining depth to
// each root (backward), yielding the per-class slack bound used by the
// extractor to discard e-nodes that can never appear in a depth-optimal
// extraction.
package slack

// Level is one rung of the four-valued lattice used by the forward
// pass (computeForward): Unvisited < Filtered < Visited(k) < Infinite.
// The backward pass works on plain integer distances. Unvisited
// is the bottom (no information yet); Filtered marks a class excluded
// from consideration entirely (its forward depth is already infinite, so
// no backward bound can rescue it — see Analysis.Filtered); Visited(k)
// is a resolved finite backward distance; Infinite is the top, meaning
// the class provably does not feed the root this pass is computed for.
type Level uint8

const (
	Unvisited Level = iota
	Filtered
	Visited
	Infinite
)

// State pairs a Level with its Depth, meaningful only when Level==Visited.
type State struct {
	Level Level
	Depth int
}

// less orders two States per the lattice: Level first, then Depth within
// Visited (a smaller depth is "less" / weaker evidence of a long path).
func less(a, b State) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	return a.Level == Visited && a.Depth < b.Depth
}

// branchMax combines the states of a node's children plus the node's own
// weight into the node's contributed state: the weakest (highest-ordinal)
// child dominates, and among equally-ranked Visited children the deepest
// governs.
func branchMax(children []State, weight int) State {
	if len(children) == 0 {
		return State{Level: Visited, Depth: weight}
	}
	worst := children[0]
	for _, c := range children[1:] {
		if worst.Level < c.Level || (worst.Level == c.Level && worst.Level == Visited && c.Depth > worst.Depth) {
			worst = c
		}
	}
	if worst.Level == Visited {
		return State{Level: Visited, Depth: worst.Depth + weight}
	}
	return worst
}

// classMin picks the best (lowest-ranked) alternative among an e-class's
// member e-node states.
func classMin(states []State) State {
	best := State{Level: Infinite}
	for _, s := range states {
		if less(s, best) {
			best = s
		}
	}
	return best
}
