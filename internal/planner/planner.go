// Package planner implements the single-agent, time-space,
// focal-list best-first search the realtime coordinator invokes to
// plan or replan one agent's path against a constraint table.
package planner

import (
	"math/rand"

	"github.com/elektrokombinacija/realtimemapf/internal/constrainttable"
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/pathtable"
)

// infinity stands in for MAX_TIMESTEP/MAX_COST sentinels the search
// compares against; it is far larger than any realistic plan length
// but small enough not to overflow in a sum with g/h.
const infinity = 1 << 29

// MaxTimestep is returned by GetTravelTime when end is unreachable.
const MaxTimestep = pathtable.MaxTimestep

// Planner plans paths for exactly one agent. It owns a heuristic
// cache keyed to that agent's current goal and a seeded RNG for
// deterministic tie-breaking; it is never shared across agents.
type Planner struct {
	grid      *gridmap.Grid
	heuristic *gridmap.Heuristic
	rng       *rand.Rand
}

// New builds a planner over grid, seeded for reproducible tie-breaks.
func New(grid *gridmap.Grid, seed int64) *Planner {
	return &Planner{grid: grid, rng: rand.New(rand.NewSource(seed))}
}

// SetGoal (re)builds the admissible heuristic cache for goal. The
// coordinator calls this once per assignment, not once per tick.
func (p *Planner) SetGoal(goal gridmap.Cell) {
	p.heuristic = gridmap.BuildHeuristic(p.grid, goal)
}

func (p *Planner) admissibleH(cell gridmap.Cell) int {
	if p.heuristic == nil {
		return 0
	}
	v := p.heuristic.Value(cell)
	if v >= infinity {
		return infinity
	}
	return v
}

// step is one of the five actions available from a state: wait in
// place, or move into one of the four cardinal neighbors (the
// resulting orientation tracks the direction of travel; waiting
// keeps the current orientation since there is no turn cost).
type step struct {
	location    gridmap.Cell
	orientation gridmap.Orientation
}

func (p *Planner) getNextStates(location gridmap.Cell, orientation gridmap.Orientation) []step {
	out := make([]step, 0, gridmap.NumOrientations+1)
	out = append(out, step{location, orientation})
	for o := gridmap.Orientation(0); o < gridmap.NumOrientations; o++ {
		if n := p.grid.Move(location, o); n != -1 {
			out = append(out, step{n, o})
		}
	}
	return out
}

// FindPath is the conflict-minimizing variant (§4.4): a focal-only
// best-first search ordered by the number of conflicts recorded in
// ct's attached conflict-avoidance table, then by f. Among paths with
// equally few conflicts it prefers shorter ones; a path with fewer
// conflicts wins even when it is longer. It is what the coordinator's
// single-agent and PP dispatch paths call.
func (p *Planner) FindPath(start gridmap.Cell, startOri gridmap.Orientation, goal gridmap.Cell, ct *constrainttable.Table) (Path, bool) {
	if ct.Constrained(start, startOri, 0) {
		return nil, false
	}

	lengthMin := ct.LengthMin()
	holdingTime := ct.GetHoldingTime(goal, gridmap.North, lengthMin)
	staticTS := ct.GetMaxTimestep() + 1
	lastTargetCollision := ct.GetLastCollisionTimestep(goal, gridmap.North)
	lengthMax := ct.LengthMax()

	a := &arena{}
	focal := &focalHeap{rng: p.rng}
	table := make(map[nodeKey]int)

	rootH := p.admissibleH(start)
	if holdingTime > rootH {
		rootH = holdingTime
	}
	if lastTargetCollision+1 > rootH {
		rootH = lastTargetCollision + 1
	}
	root := &node{location: start, orientation: startOri, timestep: 0, g: 0, h: rootH, parent: -1}
	rootIdx := a.alloc(root)
	table[keyOf(root)] = rootIdx
	focal.push(root)

	for focal.Len() > 0 {
		cur := focal.pop()

		if cur.isGoal {
			return a.reconstruct(cur.self), true
		}

		if cur.location == goal && !cur.waitAtGoal && cur.timestep >= holdingTime {
			future := ct.GetFutureNumOfCollisions(goal, gridmap.North, cur.timestep)
			if future == 0 {
				return a.reconstruct(cur.self), true
			}
			goalNode := &node{
				location: cur.location, orientation: cur.orientation, timestep: cur.timestep,
				g: cur.g, h: 0, numConflicts: cur.numConflicts + future, parent: cur.self, isGoal: true,
			}
			a.alloc(goalNode)
			focal.push(goalNode)
			continue
		}

		if cur.timestep >= lengthMax {
			continue
		}

		p.expandConflictMinimizing(a, table, focal, cur, goal, ct, holdingTime, staticTS, lengthMax)
	}
	return nil, false
}

// FindSuboptimalPath is the bounded-suboptimal w-focal variant
// (§4.4): both OPEN and FOCAL are maintained, and FOCAL always holds
// exactly the OPEN nodes within w of the minimum f-value.
func (p *Planner) FindSuboptimalPath(start gridmap.Cell, startOri gridmap.Orientation, goal gridmap.Cell, ct *constrainttable.Table, w float64) (Path, bool) {
	if w < 1 {
		w = 1
	}
	if ct.Constrained(start, startOri, 0) {
		return nil, false
	}

	lengthMin := ct.LengthMin()
	holdingTime := ct.GetHoldingTime(goal, gridmap.North, lengthMin)
	staticTS := ct.GetMaxTimestep() + 1
	lengthMax := ct.LengthMax()

	a := &arena{}
	open := &openHeap{rng: p.rng}
	focal := &focalHeap{rng: p.rng}
	table := make(map[nodeKey]int)

	root := &node{location: start, orientation: startOri, timestep: 0, g: 0, h: p.admissibleH(start), parent: -1}
	a.alloc(root)
	table[keyOf(root)] = root.self
	open.push(root)
	focal.push(root)

	minFVal := root.f()

	for focal.Len() > 0 {
		cur := focal.pop()
		open.remove(cur)

		if newTop := open.top(); newTop != nil && newTop.f() > minFVal {
			oldBound := float64(minFVal) * w
			minFVal = newTop.f()
			newBound := float64(minFVal) * w
			if newBound > oldBound {
				for _, n := range open.items {
					if float64(n.f()) > oldBound && float64(n.f()) <= newBound {
						focal.push(n)
					}
				}
			}
		}

		if cur.location == goal && !cur.waitAtGoal && cur.timestep >= holdingTime {
			return a.reconstruct(cur.self), true
		}
		if cur.timestep >= lengthMax {
			continue
		}

		focalBound := float64(minFVal) * w
		p.expandSuboptimal(a, table, focal, open, cur, goal, ct, staticTS, lengthMax, focalBound)
	}
	return nil, false
}

// successor is one candidate expansion of a search node: the part
// findPath and findSuboptimalPath generate identically (§4.4 step 6,
// Design Note #9) before branching on their own conflict-weighting and
// heap-insertion rules. baseH is the plain admissible heuristic at the
// successor location, not yet path-maxed against the parent — each
// caller applies its own path-max formula on top of it.
type successor struct {
	location    gridmap.Cell
	orientation gridmap.Orientation
	timestep    int
	g           int
	baseH       int
	waitAtGoal  bool
}

// expandSuccessors enumerates cur's successors: the five actions from
// getNextStates, where a move past staticTS keeps the parent's
// timestep instead of advancing it, with edge-constrained moves
// dropped. waitAtGoal marks the true "stay put
// at the goal" action, mirroring the original's
// `next_location == goal_location && curr->location == goal_location`
// check exactly (the equality holds only when s is a non-move, since
// only waiting leaves the location unchanged).
func (p *Planner) expandSuccessors(cur *node, goal gridmap.Cell, ct *constrainttable.Table, staticTS int) []successor {
	states := p.getNextStates(cur.location, cur.orientation)
	out := make([]successor, 0, len(states))
	for _, s := range states {
		isMove := s.location != cur.location || s.orientation != cur.orientation
		nextT := cur.timestep + 1
		if staticTS < nextT && isMove {
			nextT = cur.timestep
		}
		if ct.ConstrainedEdge(cur.location, cur.orientation, s.location, s.orientation, nextT) {
			continue
		}
		out = append(out, successor{
			location:    s.location,
			orientation: s.orientation,
			timestep:    nextT,
			g:           cur.g + 1,
			baseH:       p.admissibleH(s.location),
			waitAtGoal:  s.location == goal && !isMove,
		})
	}
	return out
}

// expandConflictMinimizing generates successors of cur for FindPath's
// focal-only search. A duplicate is replaced only when the new
// (num_of_conflicts, f) pair is strictly better than the existing
// node's, per §4.4 step 6.
func (p *Planner) expandConflictMinimizing(a *arena, table map[nodeKey]int, focal *focalHeap, cur *node, goal gridmap.Cell, ct *constrainttable.Table, holdingTime, staticTS, lengthMax int) {
	for _, succ := range p.expandSuccessors(cur, goal, ct, staticTS) {
		nextG, nextH := succ.g, succ.baseH
		stepConflicts := ct.GetNumOfConflictsForStep(cur.location, cur.orientation, succ.location, succ.orientation, succ.timestep)
		nextConflicts := cur.numConflicts + stepConflicts

		if stepConflicts == 0 {
			if pm := cur.f() - nextG; pm > nextH {
				nextH = pm
			}
		} else if pm := holdingTime - nextG; pm > nextH {
			nextH = pm
		}

		if nextG+nextH > lengthMax {
			continue
		}

		key := nodeKey{succ.location, succ.orientation, succ.timestep}

		if existingIdx, ok := table[key]; ok {
			existing := a.get(existingIdx)
			if nextConflicts < existing.numConflicts ||
				(nextConflicts == existing.numConflicts && nextG+nextH < existing.f()) {
				existing.g, existing.h = nextG, nextH
				existing.numConflicts, existing.parent, existing.waitAtGoal = nextConflicts, cur.self, succ.waitAtGoal
				focal.push(existing)
			}
			continue
		}

		child := &node{
			location: succ.location, orientation: succ.orientation, timestep: succ.timestep,
			g: nextG, h: nextH, numConflicts: nextConflicts, parent: cur.self, waitAtGoal: succ.waitAtGoal,
		}
		a.alloc(child)
		table[key] = child.self
		focal.push(child)
	}
}

// expandSuboptimal generates successors of cur for
// FindSuboptimalPath's dual OPEN/FOCAL search, applying the §4.4
// duplicate-resolution rules: insert into FOCAL when a node newly
// qualifies, update its FOCAL key when it already did, and
// decrease-key in OPEN whenever f strictly improves. A wait-at-goal
// duplicate is also replaced by a move into the goal of equal f.
func (p *Planner) expandSuboptimal(a *arena, table map[nodeKey]int, focal *focalHeap, open *openHeap, cur *node, goal gridmap.Cell, ct *constrainttable.Table, staticTS, lengthMax int, focalBound float64) {
	for _, succ := range p.expandSuccessors(cur, goal, ct, staticTS) {
		nextG, nextH := succ.g, succ.baseH
		if pm := cur.f() - nextG; pm > nextH {
			nextH = pm
		}
		nextConflicts := cur.numConflicts + ct.GetNumOfConflictsForStep(cur.location, cur.orientation, succ.location, succ.orientation, succ.timestep)

		if nextG+nextH > lengthMax {
			continue
		}

		key := nodeKey{succ.location, succ.orientation, succ.timestep}

		if existingIdx, ok := table[key]; ok {
			existing := a.get(existingIdx)
			oldF := existing.f()
			newF := nextG + nextH
			// A move into the goal replaces a wait-at-goal node of equal
			// f, since only the former can end the search; the node may
			// already be closed, so it goes back on OPEN and FOCAL.
			settles := newF == oldF && existing.waitAtGoal && !succ.waitAtGoal
			if newF < oldF || settles {
				oldQualified := float64(oldF) <= focalBound
				existing.g, existing.h, existing.numConflicts, existing.parent, existing.waitAtGoal = nextG, nextH, nextConflicts, cur.self, succ.waitAtGoal
				newQualified := float64(existing.f()) <= focalBound
				if existing.openIndex >= 0 {
					open.fix(existing)
				} else if settles {
					open.push(existing)
				}
				switch {
				case settles && newQualified && existing.focalIndex < 0:
					focal.push(existing)
				case newQualified && !oldQualified:
					focal.push(existing)
				case newQualified && oldQualified && existing.focalIndex >= 0:
					focal.fix(existing)
				}
			}
			continue
		}

		child := &node{
			location: succ.location, orientation: succ.orientation, timestep: succ.timestep,
			g: nextG, h: nextH, numConflicts: nextConflicts, parent: cur.self, waitAtGoal: succ.waitAtGoal,
		}
		a.alloc(child)
		table[key] = child.self
		open.push(child)
		if float64(child.f()) <= focalBound {
			focal.push(child)
		}
	}
}

// GetTravelTime runs a plain time-aware A* (no conflict minimization,
// no focal list) and returns the first g at which end is reached, or
// MaxTimestep if end is unreachable within upperBound steps. It
// exists for heuristic computation, not for committing real plans.
func (p *Planner) GetTravelTime(start, end gridmap.Cell, ct *constrainttable.Table, upperBound int) int {
	a := &arena{}
	open := &openHeap{rng: p.rng}
	table := make(map[nodeKey]int)

	root := &node{location: start, orientation: gridmap.North, timestep: 0, g: 0, h: p.grid.ManhattanDistance(start, end), parent: -1}
	a.alloc(root)
	table[keyOf(root)] = root.self
	open.push(root)

	for open.Len() > 0 {
		cur := open.pop()
		if cur.location == end {
			return cur.g
		}
		if cur.timestep >= upperBound {
			continue
		}
		for _, s := range p.getNextStates(cur.location, cur.orientation) {
			nextT := cur.timestep + 1
			if ct.ConstrainedEdge(cur.location, cur.orientation, s.location, s.orientation, nextT) {
				continue
			}
			key := nodeKey{s.location, s.orientation, nextT}
			nextG := cur.g + 1
			nextH := p.grid.ManhattanDistance(s.location, end)
			if existingIdx, ok := table[key]; ok {
				existing := a.get(existingIdx)
				if nextG+nextH < existing.f() {
					existing.g, existing.h, existing.parent = nextG, nextH, cur.self
					if existing.openIndex >= 0 {
						open.fix(existing)
					}
				}
				continue
			}
			child := &node{location: s.location, orientation: s.orientation, timestep: nextT, g: nextG, h: nextH, parent: cur.self}
			a.alloc(child)
			table[key] = child.self
			open.push(child)
		}
	}
	return MaxTimestep
}
