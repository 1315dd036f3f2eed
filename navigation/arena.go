package navigation

// searchNode is the per-tile A* state, stored by tile ID
// A node whose epoch differs from the arena epoch is stale and reads as freshly reset
type searchNode struct {
	g, h   int32
	parent int32 // tile ID of predecessor, -1 for none
	epoch  uint32
	open   bool
	closed bool
}

// searchArena holds one node per tile ID, reused across searches
// begin resets every node in O(1) by bumping the epoch; end does the same so a
// finished search leaves no closed flags behind, whichever way it returned
type searchArena struct {
	nodes []searchNode
	epoch uint32
}

func (a *searchArena) begin(size int) {
	if cap(a.nodes) < size {
		grown := make([]searchNode, size)
		copy(grown, a.nodes)
		a.nodes = grown
	} else {
		a.nodes = a.nodes[:size]
	}
	a.bump()
}

func (a *searchArena) end() {
	a.bump()
}

func (a *searchArena) bump() {
	a.epoch++
	if a.epoch == 0 {
		// Wrapped: stamps from 2^32 searches ago would alias
		clear(a.nodes)
		a.epoch = 1
	}
}

// node returns the live node for id, resetting it on first touch this search
func (a *searchArena) node(id int32) *searchNode {
	n := &a.nodes[id]
	if n.epoch != a.epoch {
		*n = searchNode{parent: -1, epoch: a.epoch}
	}
	return n
}

// closedCount returns how many nodes are closed under the current epoch
func (a *searchArena) closedCount() int {
	count := 0
	for i := range a.nodes {
		if a.nodes[i].epoch == a.epoch && a.nodes[i].closed {
			count++
		}
	}
	return count
}
