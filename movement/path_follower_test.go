package movement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/navigation"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

const tick = 50 * time.Millisecond

// fastConfig covers one tile per tick
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Speed = 20
	cfg.ClimbHeight = 1
	return cfg
}

// slowConfig covers half a tile per tick
func slowConfig() Config {
	cfg := fastConfig()
	cfg.Speed = 10
	return cfg
}

type results struct {
	got []Result
}

func (r *results) record(res Result) {
	r.got = append(r.got, res)
}

type harness struct {
	g     *grid.Grid
	pf    *navigation.Pathfinder
	sched *engine.Scheduler
	reg   *status.Registry
}

func newHarness(w, h int) *harness {
	g := grid.Flat(w, h, grid.DefaultConfig())
	return &harness{
		g:     g,
		pf:    navigation.NewPathfinder(g, navigation.PathfinderOptions{}),
		sched: engine.NewScheduler(),
		reg:   status.NewRegistry(),
	}
}

func (h *harness) follower(t *testing.T, x, y int, cfg Config) *PathFollower {
	t.Helper()
	a, ok := NewAgent(h.g, h.g.Top(x, y), grid.LayerGround)
	require.True(t, ok)
	return NewPathFollower(h.g, h.pf, a, cfg, h.sched, h.reg)
}

func (h *harness) run(t *testing.T, limit int, done func() bool) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if done() {
			return
		}
		h.sched.Tick(tick)
	}
	require.True(t, done(), "not done after %d ticks", limit)
}

func TestPathFollower_Arrives(t *testing.T) {
	h := newHarness(5, 5)
	f := h.follower(t, 0, 0, fastConfig())
	var r results

	dest := h.g.Top(4, 4)
	f.SetDestination(dest, false, r.record)
	assert.Equal(t, 1, h.sched.Len())

	h.run(t, 20, func() bool { return !f.Active() })

	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
	assert.Equal(t, dest, r.got[0].Tile)
	assert.Equal(t, dest, f.Agent().Tile)
	assert.Equal(t, h.g.WorldPosition(dest), f.Agent().Position)

	id, ok := h.g.Occupant(dest, grid.LayerGround)
	assert.True(t, ok)
	assert.Equal(t, f.Agent().ID, id)
	assert.False(t, h.g.IsOccupied(h.g.Top(0, 0), grid.LayerGround))
	assert.Equal(t, int64(8), h.reg.Ints.Get("nav.move.steps").Load())

	h.sched.Tick(tick)
	assert.Zero(t, h.sched.Len(), "finished follower leaves the scheduler")
}

func TestPathFollower_CommitModes(t *testing.T) {
	h := newHarness(5, 1)
	start := h.g.Top(0, 0)

	step := h.follower(t, 0, 0, slowConfig())
	step.SetDestination(h.g.Top(2, 0), false, nil)
	h.sched.Tick(tick)
	require.NotNil(t, step.Target())
	assert.Equal(t, start, step.Agent().Tile, "step commit keeps the old tile mid-step")
	assert.True(t, h.g.IsOccupied(start, grid.LayerGround))
	assert.False(t, h.g.IsOccupied(step.Target(), grid.LayerGround))

	h2 := newHarness(5, 1)
	cfg := slowConfig()
	cfg.Commit = CommitJump
	jump := h2.follower(t, 0, 0, cfg)
	jump.SetDestination(h2.g.Top(2, 0), false, nil)
	h2.sched.Tick(tick)
	require.NotNil(t, jump.Target())
	assert.Equal(t, jump.Target(), jump.Agent().Tile, "jump commit reserves the next tile")
	assert.False(t, h2.g.IsOccupied(h2.g.Top(0, 0), grid.LayerGround))
	assert.True(t, h2.g.IsOccupied(jump.Target(), grid.LayerGround))
}

func TestPathFollower_ReplansAroundNewObstacle(t *testing.T) {
	h := newHarness(5, 3)
	f := h.follower(t, 0, 1, fastConfig())
	var r results
	dest := h.g.Top(4, 1)
	f.SetDestination(dest, false, r.record)

	h.sched.Tick(tick)
	ahead := f.Remaining()
	require.NotEmpty(t, ahead)
	blocker := ahead[0]
	require.True(t, h.g.SetOccupant(blocker, grid.LayerGround, grid.NewEntityID()))

	visited := map[*grid.Tile]bool{}
	h.run(t, 30, func() bool {
		visited[f.Agent().Tile] = true
		return !f.Active()
	})

	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
	assert.False(t, visited[blocker], "agent entered the occupied tile")
	assert.GreaterOrEqual(t, h.reg.Ints.Get("nav.move.replans").Load(), int64(1))
}

func TestPathFollower_ContestedMidStep(t *testing.T) {
	h := newHarness(5, 3)
	f := h.follower(t, 0, 1, slowConfig())
	var r results
	f.SetDestination(h.g.Top(4, 1), false, r.record)

	h.sched.Tick(tick)
	contested := f.Target()
	require.NotNil(t, contested)
	require.True(t, h.g.SetOccupant(contested, grid.LayerGround, grid.NewEntityID()))

	h.sched.Tick(tick)
	assert.NotEqual(t, contested, f.Target(), "replanned in the same tick")

	h.run(t, 40, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
}

func TestPathFollower_NoPath(t *testing.T) {
	h := newHarness(5, 1)
	h.g.SetOccupant(h.g.Top(2, 0), grid.LayerGround, grid.NewEntityID())
	f := h.follower(t, 0, 0, fastConfig())
	var r results

	f.SetDestination(h.g.Top(4, 0), false, r.record)
	h.sched.Tick(tick)

	require.Len(t, r.got, 1)
	assert.Equal(t, FinishNoPath, r.got[0].Reason)
	assert.False(t, f.Active())

	f.SetDestination(nil, false, r.record)
	h.sched.Tick(tick)
	require.Len(t, r.got, 2)
	assert.Equal(t, FinishNoPath, r.got[1].Reason)
}

func TestPathFollower_Blocked(t *testing.T) {
	h := newHarness(5, 1)
	f := h.follower(t, 0, 0, fastConfig())
	var r results
	f.SetDestination(h.g.Top(4, 0), false, r.record)

	h.sched.Tick(tick)
	require.True(t, f.Active())
	h.g.SetOccupant(h.g.Top(3, 0), grid.LayerGround, grid.NewEntityID())

	h.run(t, parameter.MaxReplanAttempts+10, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishBlocked, r.got[0].Reason)
	assert.Equal(t, h.g.Top(2, 0), f.Agent().Tile)
	assert.Equal(t, h.g.WorldPosition(f.Agent().Tile), f.Agent().Position, "parked on a tile")
}

func TestPathFollower_StopMidStep(t *testing.T) {
	h := newHarness(5, 1)
	f := h.follower(t, 0, 0, slowConfig())
	var r results

	f.Stop() // idle: no-op
	f.SetDestination(h.g.Top(4, 0), false, r.record)
	h.sched.Tick(tick)
	require.NotNil(t, f.Target())

	f.Stop()
	assert.Empty(t, r.got, "stop waits for the step")
	f.Stop()

	h.run(t, 5, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishStopped, r.got[0].Reason)
	assert.Equal(t, h.g.Top(1, 0), f.Agent().Tile)
	assert.Equal(t, h.g.WorldPosition(h.g.Top(1, 0)), f.Agent().Position)

	f.Stop()
	assert.Len(t, r.got, 1)
}

func TestPathFollower_Replaced(t *testing.T) {
	h := newHarness(5, 5)
	f := h.follower(t, 0, 0, fastConfig())
	var first, second results

	f.SetDestination(h.g.Top(4, 4), false, first.record)
	h.sched.Tick(tick)
	f.SetDestination(h.g.Top(0, 4), false, second.record)

	require.Len(t, first.got, 1)
	assert.Equal(t, FinishReplaced, first.got[0].Reason)

	h.run(t, 20, func() bool { return !f.Active() })
	assert.Len(t, first.got, 1)
	require.Len(t, second.got, 1)
	assert.Equal(t, FinishArrived, second.got[0].Reason)
	assert.Equal(t, h.g.Top(0, 4), f.Agent().Tile)
}

func TestPathFollower_ChainFromCallback(t *testing.T) {
	h := newHarness(5, 1)
	f := h.follower(t, 0, 0, fastConfig())
	var reasons []FinishReason

	f.SetDestination(h.g.Top(2, 0), false, func(res Result) {
		reasons = append(reasons, res.Reason)
		f.SetDestination(h.g.Top(4, 0), false, func(res Result) {
			reasons = append(reasons, res.Reason)
		})
	})

	h.run(t, 20, func() bool { return len(reasons) == 2 })
	assert.Equal(t, []FinishReason{FinishArrived, FinishArrived}, reasons)
	assert.Equal(t, h.g.Top(4, 0), f.Agent().Tile)
}

func TestPathFollower_AlreadyThere(t *testing.T) {
	h := newHarness(3, 3)
	f := h.follower(t, 1, 1, fastConfig())
	var r results

	f.SetDestination(h.g.Top(1, 1), false, r.record)
	h.sched.Tick(tick)
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)

	other, ok := NewAgent(h.g, h.g.Top(2, 2), grid.LayerGround)
	require.True(t, ok)
	f.SetDestination(other.Tile, true, r.record)
	h.sched.Tick(tick)
	require.Len(t, r.got, 2)
	assert.Equal(t, FinishArrived, r.got[1].Reason)
	assert.Equal(t, h.g.Top(1, 1), f.Agent().Tile)
}
