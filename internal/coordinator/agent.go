package coordinator

import (
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/pathtable"
	"github.com/elektrokombinacija/realtimemapf/internal/planner"
)

// Status is the lifecycle state of one realtime agent (§3).
type Status int

const (
	Idle Status = iota
	Moving
	Arrived
	Reassigning
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Moving:
		return "MOVING"
	case Arrived:
		return "ARRIVED"
	case Reassigning:
		return "REASSIGNING"
	default:
		return "UNKNOWN"
	}
}

// noGoal marks current_goal/next_goal as unset.
const noGoal = gridmap.Cell(-1)

// Agent is one pool member the coordinator owns end to end: its
// lifecycle state, its pending and current goals, its committed path,
// and its own planner instance with a heuristic cache scoped to its
// current goal.
type Agent struct {
	ID int

	Status Status

	CurrentLocation gridmap.Cell
	CurrentGoal     gridmap.Cell
	NextGoal        gridmap.Cell

	CurrentPath    pathtable.Path
	PathIndex      int
	LastUpdateTime float64
	NeedsReplan    bool

	planner *planner.Planner
}

func newAgent(id int, start gridmap.Cell, grid *gridmap.Grid, seed int64) *Agent {
	return &Agent{
		ID:              id,
		Status:          Idle,
		CurrentLocation: start,
		CurrentGoal:     noGoal,
		NextGoal:        noGoal,
		planner:         planner.New(grid, seed+int64(id)),
	}
}

func (a *Agent) hasReachedGoal() bool {
	return a.PathIndex >= len(a.CurrentPath)-1 && a.CurrentLocation == a.CurrentGoal
}

// reset clears goals, path, and replan state and puts the agent back
// at start, IDLE — used by both addAgent and removeAgent (§3, §4.5).
func (a *Agent) reset(start gridmap.Cell) {
	a.Status = Idle
	a.CurrentLocation = start
	a.CurrentGoal = noGoal
	a.NextGoal = noGoal
	a.CurrentPath = nil
	a.PathIndex = 0
	a.NeedsReplan = false
}
