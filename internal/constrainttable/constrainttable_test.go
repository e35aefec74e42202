package constrainttable

import (
	"testing"

	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/pathtable"
)

func TestHardVertexConstraint(t *testing.T) {
	ct := New(0, 100)
	ct.AddVertexConstraint(5, gridmap.North, 3)
	if !ct.Constrained(5, gridmap.North, 3) {
		t.Errorf("expected hard vertex constraint to forbid (5,N,3)")
	}
	if ct.Constrained(5, gridmap.North, 4) {
		t.Errorf("did not expect a constraint at a different timestep")
	}
}

func TestRangeConstraintOpenEnded(t *testing.T) {
	ct := New(0, 100)
	ct.AddRangeConstraint(5, gridmap.North, 10, -1)
	if ct.Constrained(5, gridmap.North, 9) {
		t.Errorf("did not expect constraint before the range starts")
	}
	if !ct.Constrained(5, gridmap.North, 10) || !ct.Constrained(5, gridmap.North, 1000) {
		t.Errorf("expected open-ended range to forbid every timestep at/after 10")
	}
}

func TestConstrainedDelegatesToPathTable(t *testing.T) {
	pt := pathtable.New(10)
	pt.InsertPath(1, pathtable.Path{
		{Location: 0, Orientation: gridmap.North},
		{Location: 1, Orientation: gridmap.North},
		{Location: 2, Orientation: gridmap.North},
	})
	ct := New(0, 100)
	ct.SetPathTable(pt)

	if !ct.Constrained(1, gridmap.North, 1) {
		t.Errorf("expected vertex conflict via attached path table")
	}
	// agent 1 occupies cell 1 at t=1, so stepping into it from anywhere
	// is forbidden even though it is not a swap.
	if !ct.ConstrainedEdge(2, gridmap.North, 1, gridmap.North, 1) {
		t.Errorf("expected edge-form constrained to see the vertex conflict too")
	}
}

func TestGetHoldingTimeCombinesSources(t *testing.T) {
	pt := pathtable.New(10)
	pt.InsertPath(1, pathtable.Path{
		{Location: 2, Orientation: gridmap.North},
		{Location: 2, Orientation: gridmap.North},
	})
	ct := New(0, 100)
	ct.SetPathTable(pt)
	if got := ct.GetHoldingTime(2, gridmap.North, 0); got != 2 {
		t.Errorf("GetHoldingTime = %d, want 2", got)
	}
}

func TestGetNumOfConflictsForStepUsesCollisionTable(t *testing.T) {
	wc := pathtable.NewWC(10)
	wc.InsertPathFor(1, pathtable.Path{
		{Location: 0, Orientation: gridmap.North},
		{Location: 1, Orientation: gridmap.North},
	})
	ct := New(0, 100)
	ct.SetCollisionTable(wc)
	// One vertex collision with agent 1 at cell 1, plus one target
	// conflict: cell 1 is agent 1's goal from t=1 onward.
	if got := ct.GetNumOfConflictsForStep(9, gridmap.North, 1, gridmap.North, 1); got != 2 {
		t.Errorf("GetNumOfConflictsForStep = %d, want 2", got)
	}
}

func TestGetMaxTimestepWithoutTablesIsZero(t *testing.T) {
	ct := New(0, 100)
	if ct.GetMaxTimestep() != 0 {
		t.Errorf("expected 0 for an empty constraint table")
	}
}
