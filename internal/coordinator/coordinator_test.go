package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/elektrokombinacija/realtimemapf/internal/config"
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
)

func newTestCoordinator(grid *gridmap.Grid) *Coordinator {
	cfg := config.Default()
	return New(grid, cfg, PP)
}

// Scenario 1 (§8): 3x1 grid, agent 0 start=0 goal=2, agent 1 start=2
// goal=0. Agent 1 must wait one step to avoid swapping with agent 0.
func TestSwapForbidden(t *testing.T) {
	grid := gridmap.NewGrid(1, 3)
	c := newTestCoordinator(grid)

	c.AddAgent(0, 0)
	c.AddAgent(1, 2)

	if !c.AssignGoal(0, 2) {
		t.Fatalf("AssignGoal(0, 2) = false")
	}
	if !c.AssignGoal(1, 0) {
		t.Fatalf("AssignGoal(1, 0) = false")
	}
	c.Update(0)

	p0 := c.GetAgentPath(0)
	p1 := c.GetAgentPath(1)
	if len(p0) != 3 {
		t.Errorf("len(path0) = %d, want 3", len(p0))
	}
	if len(p1) != 4 {
		t.Errorf("len(path1) = %d, want 4", len(p1))
	}
	if c.GetNumConflicts() != 0 {
		t.Errorf("GetNumConflicts() = %d, want 0", c.GetNumConflicts())
	}
}

// Scenario 2 (§8): 5x1 grid. Agent 0 reaches and holds goal 2; agent 1
// must detect the target conflict and wait, finishing with length >= 5.
func TestTargetHoldingForcesWait(t *testing.T) {
	grid := gridmap.NewGrid(1, 5)
	c := newTestCoordinator(grid)

	c.AddAgent(0, 0)
	c.AssignGoal(0, 2)
	c.Update(0)

	c.AddAgent(1, 4)
	c.AssignGoal(1, 0)
	c.Update(0)

	p1 := c.GetAgentPath(1)
	if len(p1) < 5 {
		t.Errorf("len(path1) = %d, want >= 5", len(p1))
	}
}

// Scenario 5 (§8): agent assigned a goal while MOVING queues it as
// NextGoal; on arrival the agent transitions to REASSIGNING and the
// next committed path starts at the first goal.
func TestReassignWhileMoving(t *testing.T) {
	grid := gridmap.NewGrid(1, 9)
	c := newTestCoordinator(grid)

	c.AddAgent(0, 0)
	c.AssignGoal(0, 4)
	c.Update(0)
	if c.GetAgentStatus(0) != Moving {
		t.Fatalf("status after first assign = %v, want MOVING", c.GetAgentStatus(0))
	}

	c.Update(2)
	if !c.AssignGoal(0, 8) {
		t.Fatalf("AssignGoal(0, 8) = false while moving")
	}

	reachedFirstGoal := false
	for t := 3.0; t < 30; t++ {
		c.Update(t)
		if c.GetAgentLocation(0) == 4 {
			reachedFirstGoal = true
		}
		if c.GetAgentStatus(0) == Arrived || c.GetAgentStatus(0) == Idle {
			break
		}
	}
	if !reachedFirstGoal {
		t.Fatalf("agent never reached first goal cell 4")
	}
}

// A single-agent replan batch must always run FindPath directly,
// regardless of the configured multi-agent meta-planner: the
// replanAlgo gate only applies once there's more than one agent to
// coordinate between (§4.5's single-agent case).
func TestSingleAgentReplanBypassesUnavailableMultiAgentAlgo(t *testing.T) {
	grid := gridmap.NewGrid(1, 5)
	cfg := config.Default()
	c := New(grid, cfg, CBS)

	c.AddAgent(0, 0)
	if !c.AssignGoal(0, 4) {
		t.Fatalf("AssignGoal(0, 4) = false")
	}
	c.Update(0)

	if status := c.GetAgentStatus(0); status != Moving {
		t.Fatalf("status after single-agent replan under CBS = %v, want MOVING", status)
	}
	if len(c.GetAgentPath(0)) == 0 {
		t.Errorf("expected a committed path after single-agent replan under CBS")
	}
}

func TestAssignGoalRejectsUnknownAgent(t *testing.T) {
	grid := gridmap.NewGrid(1, 3)
	c := newTestCoordinator(grid)
	if c.AssignGoal(99, 1) {
		t.Errorf("AssignGoal on unknown agent id returned true")
	}
}

func TestAssignGoalRejectsObstacleGoal(t *testing.T) {
	grid := gridmap.NewGrid(1, 3)
	grid.SetObstacle(1, true)
	c := newTestCoordinator(grid)
	c.AddAgent(0, 0)
	if c.AssignGoal(0, 1) {
		t.Errorf("AssignGoal onto an obstacle cell returned true")
	}
}

func TestRemoveAgentClearsPathAndGoals(t *testing.T) {
	grid := gridmap.NewGrid(1, 5)
	c := newTestCoordinator(grid)
	c.AddAgent(0, 0)
	c.AssignGoal(0, 4)
	c.Update(0)

	if len(c.GetAgentPath(0)) == 0 {
		t.Fatalf("expected a committed path before removal")
	}

	c.RemoveAgent(0)
	if c.GetAgentStatus(0) != Idle {
		t.Errorf("status after remove = %v, want IDLE", c.GetAgentStatus(0))
	}
	if len(c.GetAgentPath(0)) != 0 {
		t.Errorf("expected no committed path after removal")
	}

	// The vacated cell must be free for a new agent's path to use.
	c.AddAgent(1, 0)
	if !c.AssignGoal(1, 4) {
		t.Fatalf("AssignGoal on fresh agent failed")
	}
	c.Update(0)
	if len(c.GetAgentPath(1)) == 0 {
		t.Errorf("expected agent 1 to get a path after agent 0's was cleared")
	}
}

func TestGetIdleAndMovingAgents(t *testing.T) {
	grid := gridmap.NewGrid(1, 5)
	c := newTestCoordinator(grid)
	c.AddAgent(0, 0)
	c.AddAgent(1, 4)
	c.AssignGoal(0, 3)
	c.Update(0)

	moving := c.GetMovingAgents()
	idle := c.GetIdleAgents()
	if len(moving) != 1 || moving[0] != 0 {
		t.Errorf("GetMovingAgents() = %v, want [0]", moving)
	}
	if len(idle) != 1 || idle[0] != 1 {
		t.Errorf("GetIdleAgents() = %v, want [1]", idle)
	}
}

func TestBackgroundDriverRunsTicksAndStopsCleanly(t *testing.T) {
	grid := gridmap.NewGrid(1, 5)
	c := newTestCoordinator(grid)
	c.AddAgent(0, 0)

	c.Start(context.Background(), 5*time.Millisecond)

	if !c.AssignGoal(0, 4) {
		t.Fatalf("AssignGoal while the background driver is running returned false")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.GetAgentStatus(0) == Moving || c.GetAgentStatus(0) == Arrived {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if status := c.GetAgentStatus(0); status != Moving && status != Arrived {
		t.Errorf("status after driver ran = %v, want MOVING or ARRIVED", status)
	}
}

func TestWriteStatsToFile(t *testing.T) {
	grid := gridmap.NewGrid(1, 3)
	c := newTestCoordinator(grid)
	c.AddAgent(0, 0)
	c.AssignGoal(0, 2)
	c.Update(0)

	path := t.TempDir() + "/stats.txt"
	if err := c.WriteStatsToFile(path); err != nil {
		t.Fatalf("WriteStatsToFile() error = %v", err)
	}
}
