// Package tasksource is the §4.6 convenience layer over the
// coordinator's AssignGoal: a uniform random-goal sampler and a
// warehouse pickup/dropoff generator. Neither holds any invariant of
// its own — every assignment still runs through Coordinator.AssignGoal,
// which is the sole enforcement point.
package tasksource

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/realtimemapf/internal/coordinator"
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/obslog"
)

// maxSampleAttempts caps uniform rejection sampling before falling
// back to a linear scan for any free cell (§7 resource exhaustion).
const maxSampleAttempts = 1000

// maxWarehouseAttempts caps rejection sampling within a pickup/dropoff
// column band before falling back to the band's first free cell.
const maxWarehouseAttempts = 100

// Task records one synthetic assignment for observability; the id
// plays no role in planning (§4.6).
type Task struct {
	ID       string
	AgentID  int
	Goal     gridmap.Cell
	Priority int
}

// Source generates synthetic goal assignments against a grid and
// coordinator, seeded for reproducible tests.
type Source struct {
	grid  *gridmap.Grid
	coord *coordinator.Coordinator
	rng   *rand.Rand
}

// New builds a Source over grid and coord, seeded by seed.
func New(grid *gridmap.Grid, coord *coordinator.Coordinator, seed int64) *Source {
	return &Source{grid: grid, coord: coord, rng: rand.New(rand.NewSource(seed))}
}

// AssignRandomGoal samples a non-obstacle cell uniformly (with a
// retry cap, falling back to the first free cell found by linear
// scan) and assigns it to agentID at priority.
func (s *Source) AssignRandomGoal(agentID, priority int) Task {
	goal := s.sampleFreeCell(0, s.grid.Size())
	s.coord.AssignGoal(agentID, goal)
	return Task{ID: traceID(), AgentID: agentID, Goal: goal, Priority: priority}
}

// GenerateWarehouseTasks emits n synthetic tasks pairing a random
// agent with a pickup cell (leftmost column quartile) or a dropoff
// cell (rightmost column quartile), alternating by agent parity, and
// assigns each through the coordinator (§4.6).
func (s *Source) GenerateWarehouseTasks(n int, agentIDs []int) []Task {
	if len(agentIDs) == 0 {
		return nil
	}
	tasks := make([]Task, 0, n)
	for i := 0; i < n; i++ {
		agentID := agentIDs[s.rng.Intn(len(agentIDs))]
		priority := 1 + s.rng.Intn(5)

		var goal gridmap.Cell
		if agentID%2 == 0 {
			goal = s.pickupCell()
		} else {
			goal = s.dropoffCell()
		}

		s.coord.AssignGoal(agentID, goal)
		tasks = append(tasks, Task{ID: traceID(), AgentID: agentID, Goal: goal, Priority: priority})
	}
	return tasks
}

// sampleFreeCell uniformly samples a non-obstacle cell in [lo, hi),
// retrying up to maxSampleAttempts times before a linear-scan fallback.
func (s *Source) sampleFreeCell(lo, hi int) gridmap.Cell {
	if hi <= lo {
		return 0
	}
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		c := gridmap.Cell(lo + s.rng.Intn(hi-lo))
		if !s.grid.IsObstacle(c) {
			return c
		}
	}
	obslog.Log.Warnf("tasksource: no free cell found in [%d,%d) after %d attempts, scanning", lo, hi, maxSampleAttempts)
	for c := lo; c < hi; c++ {
		if !s.grid.IsObstacle(gridmap.Cell(c)) {
			return gridmap.Cell(c)
		}
	}
	for c := 0; c < s.grid.Size(); c++ {
		if !s.grid.IsObstacle(gridmap.Cell(c)) {
			return gridmap.Cell(c)
		}
	}
	return 0
}

// pickupCell samples within the leftmost column quartile, retrying up
// to maxWarehouseAttempts times before falling back to that band's
// first free cell.
func (s *Source) pickupCell() gridmap.Cell {
	pickupCols := s.grid.Cols / 4
	if pickupCols < 1 {
		pickupCols = 1
	}
	return s.sampleWarehouseBand(0, pickupCols)
}

// dropoffCell samples within the rightmost column quartile, the
// mirror image of pickupCell.
func (s *Source) dropoffCell() gridmap.Cell {
	start := 3 * s.grid.Cols / 4
	end := s.grid.Cols - 1
	if end < start {
		end = start
	}
	return s.sampleWarehouseBand(start, end+1)
}

func (s *Source) sampleWarehouseBand(colLo, colHi int) gridmap.Cell {
	if colHi <= colLo {
		colHi = colLo + 1
	}
	for attempt := 0; attempt < maxWarehouseAttempts; attempt++ {
		row := s.rng.Intn(s.grid.Rows)
		col := colLo + s.rng.Intn(colHi-colLo)
		cell := s.grid.CellAt(row, col)
		if cell != -1 && !s.grid.IsObstacle(cell) {
			return cell
		}
	}
	for row := 0; row < s.grid.Rows; row++ {
		for col := colLo; col < colHi; col++ {
			cell := s.grid.CellAt(row, col)
			if cell != -1 && !s.grid.IsObstacle(cell) {
				return cell
			}
		}
	}
	return s.sampleFreeCell(0, s.grid.Size())
}

func traceID() string {
	return uuid.New().String()[:8]
}
