package movement

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/navigation"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

// PathFollower walks an agent along A* paths, replanning when the way is taken
// It is an engine.Task; SetDestination registers it with the scheduler
type PathFollower struct {
	mover
	pf    *navigation.Pathfinder
	sched *engine.Scheduler

	dest            *grid.Tile
	includeAdjacent bool
	onFinished      func(Result)

	path  []*grid.Tile
	index int

	active   bool
	stopping bool
	needPlan bool
	planned  bool // a path was found at least once for this movement
	attempts int  // consecutive failed replans

	log          *logrus.Entry
	statSteps    *atomic.Int64
	statReplans  *atomic.Int64
	statFinished *atomic.Int64
}

// NewPathFollower creates an idle follower for agent; sched may be nil when the
// caller ticks the follower itself
func NewPathFollower(g *grid.Grid, pf *navigation.Pathfinder, agent *Agent, cfg Config, sched *engine.Scheduler, reg *status.Registry) *PathFollower {
	reg = status.OrNew(reg)
	return &PathFollower{
		mover:        mover{grid: g, agent: agent, cfg: cfg.withDefaults()},
		pf:           pf,
		sched:        sched,
		log:          logger.For("path-follower").WithField("agent", agent.ID.Short()),
		statSteps:    reg.Ints.Get("nav.move.steps"),
		statReplans:  reg.Ints.Get("nav.move.replans"),
		statFinished: reg.Ints.Get("nav.move.finished"),
	}
}

// Agent returns the driven agent
func (f *PathFollower) Agent() *Agent {
	return f.agent
}

// Active reports whether a movement is in progress
func (f *PathFollower) Active() bool {
	return f.active
}

// Remaining returns the tiles still ahead on the current path
func (f *PathFollower) Remaining() []*grid.Tile {
	if f.index >= len(f.path) {
		return nil
	}
	return append([]*grid.Tile(nil), f.path[f.index:]...)
}

// SetDestination starts a movement toward dest; an active movement finishes with
// FinishReplaced first. A step in progress completes before the new path is used
func (f *PathFollower) SetDestination(dest *grid.Tile, includeAdjacent bool, onFinished func(Result)) {
	if f.active {
		f.finish(FinishReplaced)
	}

	f.dest = dest
	f.includeAdjacent = includeAdjacent
	f.onFinished = onFinished
	f.path, f.index = nil, 0
	f.active = true
	f.stopping = false
	f.needPlan = true
	f.planned = false
	f.attempts = 0

	if f.sched != nil {
		f.sched.Add(f)
	}
}

// Stop ends the movement; a step in progress completes first. No-op when idle
func (f *PathFollower) Stop() {
	if !f.active {
		return
	}
	if !f.stepping() {
		f.finish(FinishStopped)
		return
	}
	f.stopping = true
}

// Tick implements engine.Task: at most one step decision and one interpolation
func (f *PathFollower) Tick(dt time.Duration) bool {
	if !f.active {
		return false
	}

	if !f.stepping() {
		if f.stopping {
			f.finish(FinishStopped)
			return f.active
		}
		if !f.beginStep() {
			return f.active
		}
	}

	if f.contested() {
		f.onContested()
	}

	if f.advance(dt) {
		f.statSteps.Add(1)
		switch {
		case f.stopping:
			f.finish(FinishStopped)
		case !f.needPlan && f.index >= len(f.path) && satisfied(f.grid, f.agent.Tile, f.dest, f.includeAdjacent):
			f.finish(FinishArrived)
		}
	}
	return f.active
}

// beginStep picks the next path tile, replanning when needed; false means no step this tick
func (f *PathFollower) beginStep() bool {
	if f.needPlan && !f.plan() {
		return false
	}

	if f.index >= len(f.path) {
		f.finish(FinishArrived)
		return false
	}

	next := f.path[f.index]
	if !f.legal(f.agent.Tile, next) {
		f.needPlan = true
		if !f.plan() {
			return false
		}
		if f.index >= len(f.path) {
			f.finish(FinishArrived)
			return false
		}
		next = f.path[f.index]
	}

	if !f.begin(next) {
		f.needPlan = true
		return false
	}
	f.index++
	return true
}

// plan searches from the agent's tile; on failure it either finishes or leaves
// needPlan set for a retry on a later tick
func (f *PathFollower) plan() bool {
	if f.replan() {
		return true
	}
	switch {
	case !f.planned:
		f.finish(FinishNoPath)
	case f.attempts >= parameter.MaxReplanAttempts:
		f.finish(FinishBlocked)
	}
	return false
}

// replan runs one synchronous search; it never finishes the movement
func (f *PathFollower) replan() bool {
	if f.planned {
		f.statReplans.Add(1)
	}

	origin := f.agent.Tile
	path := f.pf.FindPath(navigation.Query{
		Start:           origin,
		Goal:            f.dest,
		ClimbHeight:     f.cfg.ClimbHeight,
		Layer:           f.agent.Layer,
		IncludeAdjacent: f.includeAdjacent,
	})

	if len(path) == 0 && !satisfied(f.grid, origin, f.dest, f.includeAdjacent) {
		f.attempts++
		f.log.WithFields(logrus.Fields{
			"from":     origin.String(),
			"dest":     f.dest.String(),
			"attempts": f.attempts,
		}).Debug("no path")
		return false
	}

	f.path, f.index = path, 0
	f.needPlan = false
	f.planned = true
	f.attempts = 0
	return true
}

// onContested handles a step-commit target taken mid-step: replan in this tick
// and head for the new first tile, or fall back to the tile still held
func (f *PathFollower) onContested() {
	if f.stopping || !f.replan() {
		f.needPlan = !f.stopping
		f.retreat()
		return
	}
	if f.index < len(f.path) && f.legal(f.agent.Tile, f.path[f.index]) {
		f.target = f.path[f.index]
		f.index++
		return
	}
	f.retreat()
}

func (f *PathFollower) finish(reason FinishReason) {
	f.active = false
	f.stopping = false
	f.needPlan = false
	f.path, f.index = nil, 0

	cb := f.onFinished
	f.onFinished = nil
	f.statFinished.Add(1)

	f.log.WithFields(logrus.Fields{
		"reason": reason.String(),
		"tile":   f.agent.Tile.String(),
	}).Debug("movement finished")

	if cb != nil {
		cb(Result{Reason: reason, Tile: f.agent.Tile})
	}
}
