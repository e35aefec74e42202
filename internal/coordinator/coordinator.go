// Package coordinator owns the agent pool's lifecycle, the shared
// path table, and the replanning dispatch described in §4.5: it is
// the only component that mutates the path table or an agent's
// committed state outside of a planner call.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/realtimemapf/internal/config"
	"github.com/elektrokombinacija/realtimemapf/internal/constrainttable"
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/obslog"
	"github.com/elektrokombinacija/realtimemapf/internal/pathtable"
	"github.com/elektrokombinacija/realtimemapf/internal/telemetry"
)

// ReplanAlgo selects the multi-agent dispatch strategy (§4.5, §6).
type ReplanAlgo string

const (
	PP    ReplanAlgo = "PP"
	CBS   ReplanAlgo = "CBS"
	EECBS ReplanAlgo = "EECBS"
)

type goalRequest struct {
	agentID  int
	goal     gridmap.Cell
	resultCh chan bool
}

// Coordinator owns the agent pool, the shared strict and
// with-collisions path tables, and the background driver that may
// optionally call Update on a fixed cadence.
type Coordinator struct {
	grid *gridmap.Grid
	cfg  *config.Config

	replanAlgo ReplanAlgo
	sink       telemetry.Sink

	stateMu        sync.Mutex
	agents         map[int]*Agent
	order          []int
	pathTable      *pathtable.PathTable
	collisionTable *pathtable.PathTableWC
	totalConflicts int

	queueMu sync.Mutex
	queue   []goalRequest

	driving atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New builds a Coordinator with no agents yet, over grid, tuned by
// cfg, dispatching multi-agent replans with algo.
func New(grid *gridmap.Grid, cfg *config.Config, algo ReplanAlgo) *Coordinator {
	return &Coordinator{
		grid:           grid,
		cfg:            cfg,
		replanAlgo:     algo,
		agents:         make(map[int]*Agent),
		pathTable:      pathtable.New(grid.Size()),
		collisionTable: pathtable.NewWC(grid.Size()),
	}
}

// SetTelemetry attaches a best-effort sink for agent state
// transitions. Passing nil disables telemetry entirely.
func (c *Coordinator) SetTelemetry(sink telemetry.Sink) { c.sink = sink }

func (c *Coordinator) publish(agent *Agent, timestamp float64) {
	if c.sink == nil {
		return
	}
	c.sink.Publish(telemetry.Event{
		AgentID:   agent.ID,
		Status:    agent.Status.String(),
		Location:  int(agent.CurrentLocation),
		Timestamp: timestamp,
	})
}

// AddAgent resets or creates agent id at start, IDLE (§4.5). If the
// agent already exists and is holding a committed path, that path is
// removed from the path tables first.
func (c *Coordinator) AddAgent(agentID int, start gridmap.Cell) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.drainQueueLocked()

	if agent, ok := c.agents[agentID]; ok {
		c.clearPathLocked(agent)
		agent.reset(start)
		return
	}
	agent := newAgent(agentID, start, c.grid, c.cfg.Seed)
	c.agents[agentID] = agent
	c.order = append(c.order, agentID)
}

// RemoveAgent clears agent id's path and goals and sets it IDLE
// (§4.5). A removed agent stays in the pool, parked where it stood.
func (c *Coordinator) RemoveAgent(agentID int) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.drainQueueLocked()

	agent, ok := c.agents[agentID]
	if !ok {
		return
	}
	c.clearPathLocked(agent)
	agent.reset(agent.CurrentLocation)
}

func (c *Coordinator) clearPathLocked(agent *Agent) {
	if len(agent.CurrentPath) == 0 {
		return
	}
	c.pathTable.DeletePath(agent.ID, agent.CurrentPath)
	c.collisionTable.DeletePath(agent.ID)
}

// AssignGoal applies the §4.5 assignment rule for agent id. If a
// background driver is running, the request is queued and applied on
// the driver's next tick (§5); otherwise it is applied immediately.
func (c *Coordinator) AssignGoal(agentID int, goal gridmap.Cell) bool {
	if !c.driving.Load() {
		c.stateMu.Lock()
		defer c.stateMu.Unlock()
		return c.applyAssignGoal(agentID, goal)
	}
	req := goalRequest{agentID: agentID, goal: goal, resultCh: make(chan bool, 1)}
	c.queueMu.Lock()
	c.queue = append(c.queue, req)
	c.queueMu.Unlock()
	return <-req.resultCh
}

// GoalAssignment pairs an agent id with a goal cell, for AssignGoals.
type GoalAssignment struct {
	AgentID int
	Goal    gridmap.Cell
}

// AssignGoals applies AssignGoal for every pair in order, returning
// true only if every assignment succeeded.
func (c *Coordinator) AssignGoals(pairs []GoalAssignment) bool {
	success := true
	for _, p := range pairs {
		if !c.AssignGoal(p.AgentID, p.Goal) {
			success = false
		}
	}
	return success
}

func (c *Coordinator) applyAssignGoal(agentID int, goal gridmap.Cell) bool {
	agent, ok := c.agents[agentID]
	if !ok {
		return false
	}
	if !c.grid.InBounds(goal) || c.grid.IsObstacle(goal) {
		return false
	}

	switch agent.Status {
	case Idle, Arrived:
		agent.CurrentGoal = goal
		agent.Status = Reassigning
		agent.NeedsReplan = true
	case Moving:
		agent.NextGoal = goal
	case Reassigning:
		agent.CurrentGoal = goal
		agent.NeedsReplan = true
	}
	return true
}

func (c *Coordinator) drainQueueLocked() {
	c.queueMu.Lock()
	reqs := c.queue
	c.queue = nil
	c.queueMu.Unlock()
	for _, r := range reqs {
		r.resultCh <- c.applyAssignGoal(r.agentID, r.goal)
	}
}

// GetAgentLocation returns agent id's current location, or -1 if id
// is unknown.
func (c *Coordinator) GetAgentLocation(agentID int) gridmap.Cell {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	agent, ok := c.agents[agentID]
	if !ok {
		return -1
	}
	return agent.CurrentLocation
}

// GetAgentStatus returns agent id's lifecycle status, or Idle if id
// is unknown.
func (c *Coordinator) GetAgentStatus(agentID int) Status {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	agent, ok := c.agents[agentID]
	if !ok {
		return Idle
	}
	return agent.Status
}

// GetIdleAgents returns every agent id currently IDLE, in pool order.
func (c *Coordinator) GetIdleAgents() []int { return c.filterByStatus(Idle) }

// GetMovingAgents returns every agent id currently MOVING, in pool order.
func (c *Coordinator) GetMovingAgents() []int { return c.filterByStatus(Moving) }

func (c *Coordinator) filterByStatus(want Status) []int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	var out []int
	for _, id := range c.order {
		if c.agents[id].Status == want {
			out = append(out, id)
		}
	}
	return out
}

// GetAgentPath returns the cell sequence of agent id's committed
// path, or nil if id is unknown or has no committed path.
func (c *Coordinator) GetAgentPath(agentID int) []gridmap.Cell {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	agent, ok := c.agents[agentID]
	if !ok {
		return nil
	}
	cells := make([]gridmap.Cell, len(agent.CurrentPath))
	for i, e := range agent.CurrentPath {
		cells[i] = e.Location
	}
	return cells
}

// GetTotalCost sums the committed path length of every agent with a
// path (§6).
func (c *Coordinator) GetTotalCost() float64 {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	total := 0.0
	for _, id := range c.order {
		if p := c.agents[id].CurrentPath; len(p) > 0 {
			total += float64(len(p) - 1)
		}
	}
	return total
}

// GetNumConflicts returns the conflict count computed by the most
// recent Update call (§4.5 conflict tally).
func (c *Coordinator) GetNumConflicts() int {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.totalConflicts
}

// WriteStatsToFile writes the plain-text stats dump named in §6 as
// four lines: total cost, total conflicts, number of agents, and the
// replanning algorithm.
func (c *Coordinator) WriteStatsToFile(path string) error {
	c.stateMu.Lock()
	cost := 0.0
	for _, id := range c.order {
		if p := c.agents[id].CurrentPath; len(p) > 0 {
			cost += float64(len(p) - 1)
		}
	}
	numAgents := len(c.agents)
	conflicts := c.totalConflicts
	algo := c.replanAlgo
	c.stateMu.Unlock()

	content := fmt.Sprintf("Total Cost: %g\nTotal Conflicts: %d\nNumber of Agents: %d\nReplanning Algorithm: %s\n",
		cost, conflicts, numAgents, algo)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("coordinator: writing stats to %s: %w", path, err)
	}
	return nil
}

// Update advances agent positions, dispatches pending replans, and
// tallies conflicts, in the order required by §4.5 and §5.
func (c *Coordinator) Update(currentTime float64) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.drainQueueLocked()

	for _, id := range c.order {
		c.advance(c.agents[id], currentTime)
	}

	var toReplan []int
	for _, id := range c.order {
		if c.agents[id].NeedsReplan {
			toReplan = append(toReplan, id)
		}
	}
	if len(toReplan) > 0 {
		c.dispatchReplan(toReplan, currentTime)
	}

	c.tallyConflicts()
}

func (c *Coordinator) advance(agent *Agent, currentTime float64) {
	if agent.Status != Moving || len(agent.CurrentPath) == 0 {
		return
	}
	steps := int(currentTime - agent.LastUpdateTime)
	if steps <= 0 {
		return
	}
	agent.PathIndex = min(agent.PathIndex+steps, len(agent.CurrentPath)-1)
	agent.CurrentLocation = agent.CurrentPath[agent.PathIndex].Location
	agent.LastUpdateTime = currentTime

	if !agent.hasReachedGoal() {
		return
	}
	agent.Status = Arrived
	if agent.NextGoal != noGoal {
		agent.CurrentGoal = agent.NextGoal
		agent.NextGoal = noGoal
		agent.Status = Reassigning
		agent.NeedsReplan = true
	} else {
		agent.Status = Idle
	}
	c.publish(agent, currentTime)
}

// dispatchReplan plans agentIDs in FIFO order against a path table
// that excludes every agent in the batch (§4.5's "own path removed"
// rule, generalized to the whole batch per §5's ordering guarantee).
// Successful plans commit into that shared table immediately so later
// agents in the batch see them; failures leave the agent REASSIGNING.
func (c *Coordinator) dispatchReplan(agentIDs []int, currentTime float64) {
	// A batch of one is always planned directly: the multi-agent
	// meta-planner choice only matters once there is more than one
	// agent to coordinate between.
	if len(agentIDs) > 1 && c.replanAlgo != PP {
		obslog.Log.Warnf("coordinator: replan algorithm %s not available, %d agent(s) stay REASSIGNING", c.replanAlgo, len(agentIDs))
		return
	}

	exclude := make(map[int]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		exclude[id] = struct{}{}
	}
	pt, wc := c.buildBaselineLocked(exclude)

	for _, id := range agentIDs {
		agent := c.agents[id]
		lengthMax := c.lengthMaxFor(agent)
		ct := constrainttable.New(0, lengthMax)
		ct.SetPathTable(pt)
		ct.SetCollisionTable(wc)

		agent.planner.SetGoal(agent.CurrentGoal)
		path, ok := agent.planner.FindPath(agent.CurrentLocation, gridmap.North, agent.CurrentGoal, ct)
		if !ok {
			obslog.Log.Infof("coordinator: agent %d replan failed, retrying next tick", id)
			agent.CurrentPath = nil
			agent.PathIndex = 0
			continue
		}

		pt.InsertPath(id, path)
		wc.InsertPathFor(id, path)
		agent.CurrentPath = path
		agent.PathIndex = 0
		agent.CurrentLocation = path[0].Location
		agent.Status = Moving
		agent.NeedsReplan = false
		c.publish(agent, currentTime)
	}

	c.pathTable = pt
	c.collisionTable = wc
}

// buildBaselineLocked builds fresh path tables containing every
// committed path except those belonging to an excluded agent.
func (c *Coordinator) buildBaselineLocked(exclude map[int]struct{}) (*pathtable.PathTable, *pathtable.PathTableWC) {
	pt := pathtable.New(c.grid.Size())
	wc := pathtable.NewWC(c.grid.Size())
	for _, id := range c.order {
		if _, skip := exclude[id]; skip {
			continue
		}
		agent := c.agents[id]
		if len(agent.CurrentPath) == 0 {
			continue
		}
		pt.InsertPath(id, agent.CurrentPath)
		wc.InsertPathFor(id, agent.CurrentPath)
	}
	return pt, wc
}

// lengthMaxFor bounds a single findPath call generously above the
// Manhattan distance to goal, scaled by the configured factor, so an
// agent forced to wait out a held target still has room to search.
func (c *Coordinator) lengthMaxFor(agent *Agent) int {
	base := c.grid.ManhattanDistance(agent.CurrentLocation, agent.CurrentGoal)
	factor := c.cfg.MaxLengthFactor
	if factor < 1 {
		factor = 1
	}
	return (base+1)*factor + c.pathTable.GetMaxTimestep()
}

// tallyConflicts recomputes the reporting-only conflict count over
// every pair of committed paths, up to their shared length (§4.5).
func (c *Coordinator) tallyConflicts() {
	total := 0
	for i := 0; i < len(c.order); i++ {
		pi := c.agents[c.order[i]].CurrentPath
		if len(pi) == 0 {
			continue
		}
		for j := i + 1; j < len(c.order); j++ {
			pj := c.agents[c.order[j]].CurrentPath
			if len(pj) == 0 {
				continue
			}
			total += countConflicts(pi, pj)
		}
	}
	c.totalConflicts = total
}

// countConflicts reports at most one conflict per pair, mirroring
// RealTimeMAPF::hasConflict: a pair either conflicts somewhere along
// their shared timesteps or it doesn't, regardless of how many
// overlapping timesteps produced that conflict.
func countConflicts(a, b pathtable.Path) int {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for t := 0; t < minLen; t++ {
		if a[t].Location == b[t].Location {
			return 1
		}
	}
	for t := 0; t+1 < minLen; t++ {
		if a[t].Location == b[t+1].Location && a[t+1].Location == b[t].Location {
			return 1
		}
	}
	return 0
}

// Start launches a background driver goroutine that calls Update on
// a fixed cadence until ctx is canceled or Stop is called (§5, §9).
func (c *Coordinator) Start(ctx context.Context, tickInterval time.Duration) {
	driverCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(driverCtx)
	c.cancel = cancel
	c.group = g
	c.driving.Store(true)

	g.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		clockStart := time.Now()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				c.Update(time.Since(clockStart).Seconds())
			}
		}
	})
}

// Stop signals the background driver to stop and joins it (§5).
// Calling Stop when no driver is running is a no-op.
func (c *Coordinator) Stop() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	err := c.group.Wait()
	c.driving.Store(false)
	c.cancel = nil
	return err
}

