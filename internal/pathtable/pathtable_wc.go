package pathtable

import "github.com/elektrokombinacija/realtimemapf/internal/gridmap"

// PathTableWC is the with-collisions variant: each slot holds the
// list of every agent occupying it, so inserting overlapping paths is
// legal and conflicts are counted rather than forbidden. It retains a
// weak reference to each agent's committed path so InsertPath/
// DeletePath can be called with only the agent id once a path has
// been registered once via InsertPathFor.
type PathTableWC struct {
	table    [][gridmap.NumOrientations][][]int // [cell][orientation][timestep] -> agent ids
	goals    []int
	makespan int
	paths    map[int]Path
}

// NewWC builds an empty PathTableWC sized for a grid with size cells.
func NewWC(size int) *PathTableWC {
	return &PathTableWC{
		table: make([][gridmap.NumOrientations][][]int, size),
		goals: fill(size, MaxTimestep),
		paths: make(map[int]Path),
	}
}

func (pt *PathTableWC) ensureSlot(loc gridmap.Cell, ori gridmap.Orientation, t int) {
	slot := pt.table[loc][ori]
	if len(slot) <= t {
		grown := make([][]int, t+1)
		copy(grown, slot)
		pt.table[loc][ori] = grown
	}
}

// InsertPathFor commits path for agentID and remembers it so that a
// later InsertPath(agentID)/DeletePath(agentID) needs no path argument.
func (pt *PathTableWC) InsertPathFor(agentID int, path Path) {
	pt.paths[agentID] = path
	pt.insert(agentID, path)
}

// InsertPath re-inserts the path previously registered for agentID via
// InsertPathFor.
func (pt *PathTableWC) InsertPath(agentID int) {
	path, ok := pt.paths[agentID]
	if !ok {
		panic("pathtable: InsertPath called before InsertPathFor")
	}
	pt.insert(agentID, path)
}

func (pt *PathTableWC) insert(agentID int, path Path) {
	if len(path) == 0 {
		return
	}
	for t, e := range path {
		pt.ensureSlot(e.Location, e.Orientation, t)
		pt.table[e.Location][e.Orientation][t] = append(pt.table[e.Location][e.Orientation][t], agentID)
	}
	goalLoc := path[len(path)-1].Location
	if pt.goals[goalLoc] != MaxTimestep {
		panic("pathtable: InsertPathFor on a goal cell already held")
	}
	pt.goals[goalLoc] = len(path) - 1
	if len(path)-1 > pt.makespan {
		pt.makespan = len(path) - 1
	}
}

// DeletePath removes the path previously registered for agentID.
func (pt *PathTableWC) DeletePath(agentID int) {
	path, ok := pt.paths[agentID]
	if !ok || len(path) == 0 {
		return
	}
	for t, e := range path {
		slot := pt.table[e.Location][e.Orientation][t]
		idx := -1
		for i, a := range slot {
			if a == agentID {
				idx = i
				break
			}
		}
		if idx == -1 {
			panic("pathtable: DeletePath slot mismatch")
		}
		pt.table[e.Location][e.Orientation][t] = append(slot[:idx], slot[idx+1:]...)
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

// GetFutureNumOfCollisions sums the number of agents occupying (loc,
// ori) strictly after time. The goal cell must currently be free.
func (pt *PathTableWC) GetFutureNumOfCollisions(loc gridmap.Cell, ori gridmap.Orientation, time int) int {
	if pt.goals[loc] != MaxTimestep {
		panic("pathtable: GetFutureNumOfCollisions on an already-held goal")
	}
	rst := 0
	slot := pt.table[loc][ori]
	if len(slot) > time {
		for t := time + 1; t < len(slot); t++ {
			rst += len(slot[t])
		}
	}
	return rst
}

// GetNumOfCollisions counts vertex, edge/swap, and target conflicts a
// step into (to, toOri) at toTime would incur.
func (pt *PathTableWC) GetNumOfCollisions(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) int {
	rst := 0
	toSlot := pt.table[to][toOri]
	if len(toSlot) > toTime {
		rst += len(toSlot[toTime])
	}
	if from != to && toTime-1 >= 0 && len(toSlot) > toTime-1 {
		fromSlot := pt.table[from][fromOri]
		if len(fromSlot) > toTime {
			rst += countCommon(toSlot[toTime-1], fromSlot[toTime])
		}
	}
	if len(pt.goals) > 0 && pt.goals[to] <= toTime {
		rst++
	}
	return rst
}

func countCommon(a, b []int) int {
	count := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				count++
			}
		}
	}
	return count
}

// HasCollisions reports whether stepping into (to, toOri) at toTime
// incurs any vertex, edge/swap, or target conflict.
func (pt *PathTableWC) HasCollisions(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) bool {
	toSlot := pt.table[to][toOri]
	if len(toSlot) > toTime && len(toSlot[toTime]) > 0 {
		return true
	}
	if pt.HasEdgeCollisions(from, fromOri, to, toOri, toTime) {
		return true
	}
	if len(pt.goals) > 0 && pt.goals[to] <= toTime {
		return true
	}
	return false
}

// HasEdgeCollisions reports whether the edge (from,fromOri)->(to,toOri)
// arriving at toTime is a swap with some agent already present.
func (pt *PathTableWC) HasEdgeCollisions(from gridmap.Cell, fromOri gridmap.Orientation, to gridmap.Cell, toOri gridmap.Orientation, toTime int) bool {
	if from == to || toTime-1 < 0 {
		return false
	}
	toSlot := pt.table[to][toOri]
	if len(toSlot) <= toTime-1 {
		return false
	}
	fromSlot := pt.table[from][fromOri]
	if len(fromSlot) <= toTime {
		return false
	}
	return countCommon(toSlot[toTime-1], fromSlot[toTime]) > 0
}

// GetAgentWithTarget returns the first agent found occupying
// (targetLoc, targetOri) at or before latestTimestep, or NoAgent.
func (pt *PathTableWC) GetAgentWithTarget(targetLoc gridmap.Cell, targetOri gridmap.Orientation, latestTimestep int) int {
	slot := pt.table[targetLoc][targetOri]
	for t := 0; t <= latestTimestep && t < len(slot); t++ {
		for _, agent := range slot[t] {
			if agent != NoAgent {
				return agent
			}
		}
	}
	return NoAgent
}

// GetLastCollisionTimestep returns the latest timestep at which
// (location, orientation) is occupied by at least one agent, or -1.
func (pt *PathTableWC) GetLastCollisionTimestep(location gridmap.Cell, orientation gridmap.Orientation) int {
	slot := pt.table[location][orientation]
	last := -1
	for t, occupants := range slot {
		if len(occupants) > 0 {
			last = t
		}
	}
	return last
}

// Makespan returns the longest committed path length minus one.
func (pt *PathTableWC) Makespan() int { return pt.makespan }

// GetMaxTimestep returns the last timestep any committed path could
// still be occupying a slot.
func (pt *PathTableWC) GetMaxTimestep() int { return pt.makespan }

// Clear drops every committed path and resets makespan.
func (pt *PathTableWC) Clear(size int) {
	pt.table = make([][gridmap.NumOrientations][][]int, size)
	pt.goals = fill(size, MaxTimestep)
	pt.paths = make(map[int]Path)
	pt.makespan = 0
}
