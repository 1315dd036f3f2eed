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

// FieldFollower descends a shared distance field one orthogonal tile at a time
// Finishes when the field reads 0 under the agent, or at an explicit destination
type FieldFollower struct {
	mover
	field navigation.DistanceReader
	sched *engine.Scheduler

	dest            *grid.Tile // optional
	includeAdjacent bool
	onFinished      func(Result)

	prev *grid.Tile // tile left by the last committed step

	active   bool
	stopping bool

	log          *logrus.Entry
	statSteps    *atomic.Int64
	statWaits    *atomic.Int64
	statFinished *atomic.Int64
}

// NewFieldFollower creates an idle follower reading field
func NewFieldFollower(g *grid.Grid, field navigation.DistanceReader, agent *Agent, cfg Config, sched *engine.Scheduler, reg *status.Registry) *FieldFollower {
	reg = status.OrNew(reg)
	return &FieldFollower{
		mover:        mover{grid: g, agent: agent, cfg: cfg.withDefaults()},
		field:        field,
		sched:        sched,
		log:          logger.For("field-follower").WithField("agent", agent.ID.Short()),
		statSteps:    reg.Ints.Get("nav.move.steps"),
		statWaits:    reg.Ints.Get("nav.move.waits"),
		statFinished: reg.Ints.Get("nav.move.finished"),
	}
}

// Agent returns the driven agent
func (f *FieldFollower) Agent() *Agent {
	return f.agent
}

// Active reports whether a movement is in progress
func (f *FieldFollower) Active() bool {
	return f.active
}

// SetDestination starts following the field; dest may be nil to stop at any field minimum
// An active movement finishes with FinishReplaced first
func (f *FieldFollower) SetDestination(dest *grid.Tile, includeAdjacent bool, onFinished func(Result)) {
	if f.active {
		f.finish(FinishReplaced)
	}
	f.dest = dest
	f.includeAdjacent = includeAdjacent
	f.onFinished = onFinished
	f.prev = nil
	f.active = true
	f.stopping = false

	if f.sched != nil {
		f.sched.Add(f)
	}
}

// Stop ends the movement; a step in progress completes first. No-op when idle
func (f *FieldFollower) Stop() {
	if !f.active {
		return
	}
	if !f.stepping() {
		f.finish(FinishStopped)
		return
	}
	f.stopping = true
}

// Tick implements engine.Task
func (f *FieldFollower) Tick(dt time.Duration) bool {
	if !f.active {
		return false
	}

	if !f.stepping() {
		if f.stopping {
			f.finish(FinishStopped)
			return f.active
		}
		if f.done() {
			f.finish(FinishArrived)
			return f.active
		}
		next := f.choose()
		if next == nil || !f.begin(next) {
			// Nothing better now; the field or occupancy may change by next tick
			f.prev = nil
			f.statWaits.Add(1)
			return f.active
		}
	}

	if f.contested() {
		f.retreat()
	}

	left := f.agent.Tile
	if f.advance(dt) {
		if f.agent.Tile != left {
			f.prev = left
			f.statSteps.Add(1)
		} else if f.cfg.Commit == CommitJump {
			f.prev = f.source
			f.statSteps.Add(1)
		}

		switch {
		case f.stopping:
			f.finish(FinishStopped)
		case f.done():
			f.finish(FinishArrived)
		}
	}
	return f.active
}

func (f *FieldFollower) done() bool {
	cur := f.agent.Tile
	if f.dest != nil {
		return satisfied(f.grid, cur, f.dest, f.includeAdjacent)
	}
	return f.field.DistanceAt(cur) == 0
}

// choose returns the legal orthogonal neighbor with the lowest distance, nil if none
// Ties keep the first in N, E, S, W order
func (f *FieldFollower) choose() *grid.Tile {
	cur := f.agent.Tile
	var best *grid.Tile
	bestDist := parameter.UnreachableDistance

	for _, dir := range grid.Orthogonal {
		nb := f.grid.Neighbor(cur, dir)
		if nb == nil || (f.cfg.AvoidBacktrack && nb == f.prev) || !f.legal(cur, nb) {
			continue
		}
		if d := f.field.DistanceAt(nb); d < bestDist {
			best, bestDist = nb, d
		}
	}
	return best
}

func (f *FieldFollower) finish(reason FinishReason) {
	f.active = false
	f.stopping = false

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
