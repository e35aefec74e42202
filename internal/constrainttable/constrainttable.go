// Package constrainttable aggregates the hard per-step constraints a
// higher-level search node would impose with a conflict-avoidance
// layer read from a path table, and is the only thing the
// single-agent planner consults while searching.
package constrainttable

import (
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/pathtable"
)

type vertexKey struct {
	cell gridmap.Cell
	ori  gridmap.Orientation
	t    int
}

type edgeKey struct {
	from, to       gridmap.Cell
	fromOri, toOri gridmap.Orientation
	t              int
}

// rangeConstraint forbids (cell, ori) for every timestep in [from, to];
// to == -1 means "from onward, forever" (used for length constraints
// a higher-level search pushes down, e.g. "agent must not be here
// after time X").
type rangeConstraint struct {
	cell gridmap.Cell
	ori  gridmap.Orientation
	from int
	to   int
}

// Table is the planner's sole view onto what is forbidden and what is
// merely undesirable. Hard constraints (explicit vertex/edge
// forbidding, usually empty outside of a CBS high-level node) combine
// with an optional strict PathTable for blocking predicates, and an
// optional PathTableWC used purely as a conflict-avoidance tiebreaker.
type Table struct {
	lengthMin, lengthMax int

	vertices map[vertexKey]struct{}
	ranges   []rangeConstraint
	edges    map[edgeKey]struct{}

	pathTable      *pathtable.PathTable
	collisionTable *pathtable.PathTableWC
}

// New builds an empty constraint table. lengthMax bounds how long a
// plan a single findPath call may return; lengthMin is the minimum
// timestep at which the planner may settle at the goal (used to force
// an agent to wait out a holding agent even if it could geometrically
// arrive sooner).
func New(lengthMin, lengthMax int) *Table {
	return &Table{
		lengthMin: lengthMin,
		lengthMax: lengthMax,
		vertices:  make(map[vertexKey]struct{}),
		edges:     make(map[edgeKey]struct{}),
	}
}

// SetPathTable attaches the strict path table used for hard vertex,
// edge, and target conflict predicates.
func (ct *Table) SetPathTable(pt *pathtable.PathTable) { ct.pathTable = pt }

// SetCollisionTable attaches the with-collisions table used only for
// conflict-count tiebreaking, never for hard blocking.
func (ct *Table) SetCollisionTable(wc *pathtable.PathTableWC) { ct.collisionTable = wc }

// LengthMin is the minimum timestep the planner may settle at the goal.
func (ct *Table) LengthMin() int { return ct.lengthMin }

// LengthMax is the maximum timestep the planner may expand past.
func (ct *Table) LengthMax() int { return ct.lengthMax }

// AddVertexConstraint forbids (cell, ori) at exactly timestep t.
func (ct *Table) AddVertexConstraint(cell gridmap.Cell, ori gridmap.Orientation, t int) {
	ct.vertices[vertexKey{cell, ori, t}] = struct{}{}
}

// AddRangeConstraint forbids (cell, ori) for every timestep in
// [from, to]; to == -1 means "forever after from".
func (ct *Table) AddRangeConstraint(cell gridmap.Cell, ori gridmap.Orientation, from, to int) {
	ct.ranges = append(ct.ranges, rangeConstraint{cell, ori, from, to})
}

// AddEdgeConstraint forbids moving from (from, fromOri) into
// (to, toOri) such that the arrival timestep is t.
func (ct *Table) AddEdgeConstraint(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, t int) {
	ct.edges[edgeKey{from, to, fromOri, toOri, t}] = struct{}{}
}

func (ct *Table) hardVertex(cell gridmap.Cell, ori gridmap.Orientation, t int) bool {
	if _, ok := ct.vertices[vertexKey{cell, ori, t}]; ok {
		return true
	}
	for _, r := range ct.ranges {
		if r.cell != cell || r.ori != ori {
			continue
		}
		if t < r.from {
			continue
		}
		if r.to == -1 || t <= r.to {
			return true
		}
	}
	return false
}

// Constrained reports whether (cell, ori) is forbidden at timestep t,
// either by an explicit hard constraint or because the attached path
// table already has an agent holding that slot (vertex or target
// conflict).
func (ct *Table) Constrained(cell gridmap.Cell, ori gridmap.Orientation, t int) bool {
	if ct.hardVertex(cell, ori, t) {
		return true
	}
	if ct.pathTable != nil && ct.pathTable.Constrained(cell, ori, cell, ori, t) {
		return true
	}
	return false
}

// ConstrainedEdge reports whether moving from (from, fromOri) to
// (to, toOri) and arriving at toTime is forbidden: an explicit hard
// edge/vertex constraint, or a vertex/edge/target conflict against
// the attached path table.
func (ct *Table) ConstrainedEdge(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) bool {
	if ct.hardVertex(to, toOri, toTime) {
		return true
	}
	if _, ok := ct.edges[edgeKey{from, to, fromOri, toOri, toTime}]; ok {
		return true
	}
	if ct.pathTable != nil && ct.pathTable.Constrained(from, fromOri, to, toOri, toTime) {
		return true
	}
	return false
}

// GetHoldingTime returns the earliest timestep at or after t0 such
// that no agent occupies (cell, ori) at or after that timestep,
// taking both explicit open-ended range constraints and the attached
// path table into account.
func (ct *Table) GetHoldingTime(cell gridmap.Cell, ori gridmap.Orientation, t0 int) int {
	holding := t0
	if ct.pathTable != nil {
		if h := ct.pathTable.GetHoldingTime(cell, ori, t0); h > holding {
			holding = h
		}
	}
	for _, r := range ct.ranges {
		if r.cell != cell || r.ori != ori || r.to != -1 {
			continue
		}
		if r.from+1 > holding {
			holding = r.from + 1
		}
	}
	return holding
}

// GetNumOfConflictsForStep returns the number of agents in the
// attached conflict-avoidance table that would collide with a step
// into (to, toOri) at toTime, for use as a FOCAL tiebreaker. It is
// never a hard constraint.
func (ct *Table) GetNumOfConflictsForStep(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) int {
	if ct.collisionTable == nil {
		return 0
	}
	return ct.collisionTable.GetNumOfCollisions(from, fromOri, to, toOri, toTime)
}

// GetFutureNumOfCollisions sums conflicts the attached
// conflict-avoidance table predicts strictly after settling at
// (cell, ori) at time. Zero if no collision table is attached.
func (ct *Table) GetFutureNumOfCollisions(cell gridmap.Cell, ori gridmap.Orientation, time int) int {
	if ct.collisionTable == nil {
		return 0
	}
	return ct.collisionTable.GetFutureNumOfCollisions(cell, ori, time)
}

// GetMaxTimestep returns the latest timestep any attached table or
// explicit constraint could still affect; used to find the static
// timestep after which the search may compress waiting into no-ops.
func (ct *Table) GetMaxTimestep() int {
	max := 0
	if ct.pathTable != nil && ct.pathTable.GetMaxTimestep() > max {
		max = ct.pathTable.GetMaxTimestep()
	}
	if ct.collisionTable != nil && ct.collisionTable.GetMaxTimestep() > max {
		max = ct.collisionTable.GetMaxTimestep()
	}
	for _, r := range ct.ranges {
		if r.to > max {
			max = r.to
		}
	}
	return max
}

// GetLastCollisionTimestep returns the latest timestep at which
// (cell, ori) is occupied according to the conflict-avoidance table
// if one is attached, else the strict path table, else -1.
func (ct *Table) GetLastCollisionTimestep(cell gridmap.Cell, ori gridmap.Orientation) int {
	if ct.collisionTable != nil {
		return ct.collisionTable.GetLastCollisionTimestep(cell, ori)
	}
	if ct.pathTable != nil {
		return ct.pathTable.GetLastCollisionTimestep(cell, ori)
	}
	return -1
}
