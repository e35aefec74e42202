package pathtable

import "github.com/elektrokombinacija/realtimemapf/internal/gridmap"

// PathTable is the strict spatio-temporal occupancy table: at most one
// agent may occupy a given (cell, orientation, timestep) slot. It is
// the table the single-agent planner's findPath mode and the
// coordinator's commit path consult for hard conflict predicates.
type PathTable struct {
	table    [][gridmap.NumOrientations][]int // [cell][orientation] -> agent id per timestep
	goals    []int                            // [cell] -> holding timestep, or MaxTimestep
	makespan int
}

// New builds an empty PathTable sized for a grid with size cells.
func New(size int) *PathTable {
	return &PathTable{
		table: make([][gridmap.NumOrientations][]int, size),
		goals: fill(size, MaxTimestep),
	}
}

func fill(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Makespan returns the longest committed path length minus one.
func (pt *PathTable) Makespan() int { return pt.makespan }

// GetMaxTimestep returns the last timestep any committed path could
// still be occupying a slot; callers use this to find the first
// timestep after which the table is guaranteed static.
func (pt *PathTable) GetMaxTimestep() int { return pt.makespan }

// GetLastCollisionTimestep returns the latest timestep at which
// (location, orientation) is occupied by an agent, or -1 if never.
func (pt *PathTable) GetLastCollisionTimestep(location gridmap.Cell, orientation gridmap.Orientation) int {
	slot := pt.table[location][orientation]
	for t := len(slot) - 1; t >= 0; t-- {
		if slot[t] != NoAgent {
			return t
		}
	}
	return -1
}

func (pt *PathTable) ensureSlot(loc gridmap.Cell, ori gridmap.Orientation, t int) {
	slot := pt.table[loc][ori]
	if len(slot) <= t {
		grown := make([]int, t+1)
		copy(grown, slot)
		for i := len(slot); i <= t; i++ {
			grown[i] = NoAgent
		}
		pt.table[loc][ori] = grown
	}
}

// InsertPath commits path for agentID. Every slot of path must be free
// and the goal cell of path must not currently be held by another
// agent; callers violating either precondition have a coordinator bug,
// not a recoverable runtime condition, so this panics like the
// reference implementation's assert.
func (pt *PathTable) InsertPath(agentID int, path Path) {
	if len(path) == 0 {
		return
	}
	for t, e := range path {
		pt.ensureSlot(e.Location, e.Orientation, t)
		if pt.table[e.Location][e.Orientation][t] != NoAgent {
			panic("pathtable: InsertPath on an occupied slot")
		}
		pt.table[e.Location][e.Orientation][t] = agentID
	}
	goalLoc := path[len(path)-1].Location
	if pt.goals[goalLoc] != MaxTimestep {
		panic("pathtable: InsertPath on a goal cell already held")
	}
	pt.goals[goalLoc] = len(path) - 1
	if len(path)-1 > pt.makespan {
		pt.makespan = len(path) - 1
	}
}

// DeletePath is the exact inverse of InsertPath for the same
// (agentID, path) pair.
func (pt *PathTable) DeletePath(agentID int, path Path) {
	if len(path) == 0 {
		return
	}
	for t, e := range path {
		slot := pt.table[e.Location][e.Orientation]
		if len(slot) <= t || slot[t] != agentID {
			panic("pathtable: DeletePath slot mismatch")
		}
		slot[t] = NoAgent
	}
	goalLoc := path[len(path)-1].Location
	pt.goals[goalLoc] = MaxTimestep
	if pt.makespan == len(path)-1 {
		pt.makespan = 0
		for _, t := range pt.goals {
			if t < MaxTimestep && t > pt.makespan {
				pt.makespan = t
			}
		}
	}
}

// Constrained reports whether moving from (from, fromOri) to (to,
// toOri) and arriving at toTime is forbidden: a vertex conflict (to is
// occupied at toTime), an edge/swap conflict (the occupant of to at
// toTime-1 is exactly the agent now occupying from at toTime), or a
// target conflict (another agent already holds to as its goal at or
// before toTime).
func (pt *PathTable) Constrained(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) bool {
	if from < 0 || to < 0 || toTime < 0 {
		return false
	}
	if int(from) >= len(pt.table) || int(to) >= len(pt.table) {
		return false
	}
	toSlot := pt.table[to][toOri]
	if len(toSlot) > toTime && toSlot[toTime] != NoAgent {
		return true
	}
	fromSlot := pt.table[from][fromOri]
	if toTime-1 >= 0 && len(toSlot) > toTime-1 && len(fromSlot) > toTime &&
		toSlot[toTime-1] != NoAgent && fromSlot[toTime] == toSlot[toTime-1] {
		return true
	}
	if len(pt.goals) > 0 && pt.goals[to] <= toTime {
		return true
	}
	return false
}

// GetHoldingTime returns the earliest timestep at or after
// earliestTimestep such that (location, orientation) is permanently
// unoccupied from that point on.
func (pt *PathTable) GetHoldingTime(location gridmap.Cell, orientation gridmap.Orientation, earliestTimestep int) int {
	slot := pt.table[location][orientation]
	if len(slot) <= earliestTimestep {
		return earliestTimestep
	}
	rst := len(slot)
	for rst > earliestTimestep && slot[rst-1] == NoAgent {
		rst--
	}
	return rst
}

// GetConflictingAgents collects into the result set every agent id
// whose committed path has a vertex or edge/swap conflict with the
// proposed step. Target conflicts are not collected: the table records
// when a goal cell becomes held, not which agent holds it.
func (pt *PathTable) GetConflictingAgents(result map[int]struct{}, from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) {
	if len(pt.table) == 0 {
		return
	}
	toSlot := pt.table[to][toOri]
	if len(toSlot) > toTime && toSlot[toTime] != NoAgent {
		result[toSlot[toTime]] = struct{}{}
	}
	fromSlot := pt.table[from][fromOri]
	if toTime-1 >= 0 && len(toSlot) > toTime-1 && len(fromSlot) > toTime &&
		toSlot[toTime-1] != NoAgent && fromSlot[toTime] == toSlot[toTime-1] {
		result[fromSlot[toTime]] = struct{}{}
	}
}

// GetAgents collects every agent id that ever occupies (loc, ori) at
// any timestep.
func (pt *PathTable) GetAgents(result map[int]struct{}, loc gridmap.Cell, ori gridmap.Orientation) {
	if loc < 0 {
		return
	}
	for _, agent := range pt.table[loc][ori] {
		if agent >= 0 {
			result[agent] = struct{}{}
		}
	}
}
