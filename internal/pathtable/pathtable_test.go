package pathtable

import (
	"testing"

	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
)

func straightPath(cells ...int) Path {
	p := make(Path, len(cells))
	for i, c := range cells {
		p[i] = Entry{Location: gridmap.Cell(c), Orientation: gridmap.North}
	}
	return p
}

func TestInsertPathSetsOccupancyAndGoal(t *testing.T) {
	pt := New(10)
	path := straightPath(0, 1, 2)
	pt.InsertPath(1, path)

	if pt.Constrained(0, gridmap.North, 1, gridmap.North, 1) != true {
		t.Errorf("expected vertex conflict at cell 1, t=1")
	}
	if pt.Makespan() != 2 {
		t.Errorf("Makespan() = %d, want 2", pt.Makespan())
	}
}

func TestConstrainedVertexConflict(t *testing.T) {
	pt := New(10)
	pt.InsertPath(1, straightPath(5, 6, 7))
	if !pt.Constrained(4, gridmap.North, 6, gridmap.North, 1) {
		t.Errorf("expected vertex conflict")
	}
	if pt.Constrained(4, gridmap.North, 6, gridmap.North, 5) {
		t.Errorf("did not expect conflict at an unoccupied timestep")
	}
}

func TestConstrainedEdgeSwapConflict(t *testing.T) {
	// Agent 1 goes 2 -> 1 at t=0->1; agent 2 attempting 1 -> 2 at the
	// same time is a swap and must be forbidden.
	pt := New(10)
	pt.InsertPath(1, straightPath(2, 1))
	if !pt.Constrained(1, gridmap.North, 2, gridmap.North, 1) {
		t.Errorf("expected swap/edge conflict")
	}
}

func TestConstrainedTargetConflict(t *testing.T) {
	pt := New(10)
	pt.InsertPath(1, straightPath(0, 1, 2)) // holds cell 2 from t=2 onward
	if !pt.Constrained(5, gridmap.North, 2, gridmap.North, 10) {
		t.Errorf("expected target conflict: cell 2 held as goal since t=2")
	}
}

func TestConstrainedOutOfRangeIsFalse(t *testing.T) {
	pt := New(3)
	if pt.Constrained(-1, gridmap.North, 0, gridmap.North, 0) {
		t.Errorf("expected false for negative from")
	}
}

func TestGetHoldingTime(t *testing.T) {
	pt := New(10)
	pt.InsertPath(1, straightPath(0, 1, 2, 2, 2))
	ht := pt.GetHoldingTime(2, gridmap.North, 0)
	if ht != 5 {
		t.Errorf("GetHoldingTime = %d, want 5", ht)
	}
}

func TestDeletePathIsExactInverse(t *testing.T) {
	pt := New(10)
	path := straightPath(0, 1, 2, 3)
	pt.InsertPath(7, path)
	pt.DeletePath(7, path)

	if pt.Constrained(0, gridmap.North, 1, gridmap.North, 1) {
		t.Errorf("expected no conflict after delete")
	}
	if pt.Constrained(100, gridmap.North, 3, gridmap.North, 100) {
		t.Errorf("expected goal to be released after delete")
	}
	if pt.Makespan() != 0 {
		t.Errorf("Makespan() = %d, want 0 after delete", pt.Makespan())
	}
}

func TestMakespanRecomputedOnDeleteOfLongestPath(t *testing.T) {
	pt := New(10)
	short := straightPath(0, 1)
	long := straightPath(5, 6, 7, 8)
	pt.InsertPath(1, short)
	pt.InsertPath(2, long)
	if pt.Makespan() != 3 {
		t.Fatalf("Makespan() = %d, want 3", pt.Makespan())
	}
	pt.DeletePath(2, long)
	if pt.Makespan() != 1 {
		t.Errorf("Makespan() = %d, want 1 after removing the longest path", pt.Makespan())
	}
}

func TestInsertPathPanicsOnDoubleGoalHold(t *testing.T) {
	pt := New(10)
	pt.InsertPath(1, straightPath(0, 1, 2))
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic inserting a second path to an already-held goal")
		}
	}()
	pt.InsertPath(2, straightPath(9, 2))
}

func TestWCInsertAndCountCollisions(t *testing.T) {
	pt := NewWC(10)
	pt.InsertPathFor(1, straightPath(0, 1, 2))

	n := pt.GetNumOfCollisions(9, gridmap.North, 1, gridmap.North, 1)
	if n != 1 {
		t.Errorf("GetNumOfCollisions = %d, want 1 vertex collision", n)
	}
	if !pt.HasCollisions(9, gridmap.North, 1, gridmap.North, 1) {
		t.Errorf("expected HasCollisions true")
	}
}

func TestWCEdgeCollision(t *testing.T) {
	pt := NewWC(10)
	pt.InsertPathFor(1, straightPath(2, 1))
	if !pt.HasEdgeCollisions(1, gridmap.North, 2, gridmap.North, 1) {
		t.Errorf("expected edge/swap collision")
	}
}

func TestWCDeletePathRestoresState(t *testing.T) {
	pt := NewWC(10)
	path := straightPath(0, 1, 2)
	pt.InsertPathFor(3, path)
	pt.DeletePath(3)
	if pt.HasCollisions(9, gridmap.North, 1, gridmap.North, 1) {
		t.Errorf("expected no collisions after delete")
	}
	if pt.GetLastCollisionTimestep(1, gridmap.North) != -1 {
		t.Errorf("expected no collision timestep after delete")
	}
}

func TestWCReinsertWithoutPathArgument(t *testing.T) {
	pt := NewWC(10)
	path := straightPath(0, 1, 2)
	pt.InsertPathFor(3, path)
	pt.DeletePath(3)
	pt.InsertPath(3)
	if !pt.HasCollisions(9, gridmap.North, 1, gridmap.North, 1) {
		t.Errorf("expected collision after re-inserting via agent id alone")
	}
}

// TestInsertDeleteRoundTripForTenAgentsIsIdempotent is the Scenario 6
// end-to-end case: insert committed paths for 10 agents, then delete
// them all in reverse insertion order, and expect the table to report
// exactly the same empty state it started in (P7, generalized to a
// whole batch rather than a single agent).
func TestInsertDeleteRoundTripForTenAgentsIsIdempotent(t *testing.T) {
	const numAgents = 10
	pt := New(1000)

	paths := make([]Path, numAgents)
	goalCells := make([]gridmap.Cell, numAgents)
	for i := 0; i < numAgents; i++ {
		base := i * 20
		cells := make([]int, i+2) // varying lengths, never overlapping another agent's band
		for j := range cells {
			cells[j] = base + j
		}
		paths[i] = straightPath(cells...)
		goalCells[i] = gridmap.Cell(base + len(cells) - 1)
		pt.InsertPath(i, paths[i])
	}

	if pt.Makespan() == 0 {
		t.Fatalf("Makespan() = 0 after inserting 10 paths, want > 0")
	}

	for i := numAgents - 1; i >= 0; i-- {
		pt.DeletePath(i, paths[i])
	}

	if pt.Makespan() != 0 {
		t.Errorf("Makespan() = %d, want 0 after deleting every path in reverse order", pt.Makespan())
	}
	for i, goal := range goalCells {
		if ht := pt.GetHoldingTime(goal, gridmap.North, 0); ht != 0 {
			t.Errorf("agent %d's goal cell %d has holding time %d after full delete, want 0", i, goal, ht)
		}
		if pt.Constrained(goal, gridmap.North, goal, gridmap.North, 0) {
			t.Errorf("agent %d's goal cell %d still reports a conflict after full delete", i, goal)
		}
	}
}

func TestWCGetAgentWithTarget(t *testing.T) {
	pt := NewWC(10)
	pt.InsertPathFor(4, straightPath(0, 1))
	if got := pt.GetAgentWithTarget(1, gridmap.North, 5); got != 4 {
		t.Errorf("GetAgentWithTarget = %d, want 4", got)
	}
	if got := pt.GetAgentWithTarget(1, gridmap.North, 0); got != NoAgent {
		t.Errorf("GetAgentWithTarget at t=0 = %d, want NoAgent (agent arrives at t=1)", got)
	}
}
