package planner

import (
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/pathtable"
)

// Path and Entry are re-exported so callers of this package never
// need to import pathtable just to build or read a plan.
type Path = pathtable.Path
type Entry = pathtable.Entry

// node is a single-agent search state identified by (location,
// orientation, timestep). Parent pointers are arena indices rather
// than real pointers so a whole search's nodes can be dropped in one
// shot when findPath/findSuboptimalPath returns.
type node struct {
	location    gridmap.Cell
	orientation gridmap.Orientation
	timestep    int

	g, h         int
	numConflicts int
	parent       int // arena index, -1 for the root
	waitAtGoal   bool
	isGoal       bool

	openIndex  int // index in the OPEN heap, -1 if absent
	focalIndex int // index in the FOCAL heap, -1 if absent
	self       int // this node's own arena index
}

func (n *node) f() int { return n.g + n.h }

type nodeKey struct {
	location    gridmap.Cell
	orientation gridmap.Orientation
	timestep    int
}

func keyOf(n *node) nodeKey {
	return nodeKey{n.location, n.orientation, n.timestep}
}

// arena owns every node generated during one search call and hands
// out small integer ids, mirroring the source's pointer-chained DAG
// without ever forming a real cycle: a node's parent is always an
// index allocated earlier.
type arena struct {
	nodes []*node
}

func (a *arena) alloc(n *node) int {
	n.openIndex = -1
	n.focalIndex = -1
	n.self = len(a.nodes)
	a.nodes = append(a.nodes, n)
	return n.self
}

func (a *arena) get(i int) *node {
	if i < 0 {
		return nil
	}
	return a.nodes[i]
}

// reconstruct walks parent pointers from idx back to the root and
// returns the path in forward timestep order.
func (a *arena) reconstruct(idx int) Path {
	var rev Path
	for i := idx; i >= 0; {
		n := a.nodes[i]
		if !n.isGoal {
			rev = append(rev, Entry{Location: n.location, Orientation: n.orientation})
		}
		i = n.parent
	}
	out := make(Path, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}
