package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/navigation"
)

func (h *harness) fieldFollower(t *testing.T, field navigation.DistanceReader, x, y int, cfg Config) *FieldFollower {
	t.Helper()
	a, ok := NewAgent(h.g, h.g.Top(x, y), grid.LayerGround)
	require.True(t, ok)
	return NewFieldFollower(h.g, field, a, cfg, h.sched, h.reg)
}

func TestFieldFollower_DescendsNavigationMap(t *testing.T) {
	h := newHarness(5, 5)
	m := navigation.NewNavigationMap(h.g, navigation.DefaultMapOptions())
	dest := h.g.Top(4, 4)
	m.Update([]*grid.Tile{dest})

	f := h.fieldFollower(t, m, 0, 0, fastConfig())
	var r results
	f.SetDestination(nil, false, r.record)

	h.run(t, 20, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
	assert.Equal(t, dest, f.Agent().Tile)
	assert.Equal(t, 0, m.DistanceAt(dest))
	assert.Equal(t, int64(8), h.reg.Ints.Get("nav.move.steps").Load())
}

func TestFieldFollower_BufferedMap(t *testing.T) {
	h := newHarness(6, 3)
	bm := navigation.NewBufferedMap(h.g, navigation.DefaultMapOptions())
	bm.Start(h.sched)
	bm.UpdateDestinations([]*grid.Tile{h.g.Top(5, 1)})
	bm.BuildNow()

	cfg := fastConfig()
	cfg.Commit = CommitJump
	f := h.fieldFollower(t, bm, 0, 1, cfg)
	var r results
	f.SetDestination(nil, false, r.record)

	h.run(t, 30, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
	assert.Equal(t, h.g.Top(5, 1), f.Agent().Tile)
}

func TestFieldFollower_ExplicitAdjacentDestination(t *testing.T) {
	h := newHarness(5, 5)
	target, ok := NewAgent(h.g, h.g.Top(4, 4), grid.LayerGround)
	require.True(t, ok)

	m := navigation.NewNavigationMap(h.g, navigation.DefaultMapOptions())
	m.Update([]*grid.Tile{target.Tile})

	f := h.fieldFollower(t, m, 0, 0, fastConfig())
	var r results
	f.SetDestination(target.Tile, true, r.record)

	h.run(t, 20, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
	assert.True(t, h.g.Adjacent(f.Agent().Tile, target.Tile))
	id, _ := h.g.Occupant(target.Tile, grid.LayerGround)
	assert.Equal(t, target.ID, id, "destination holder untouched")
}

func TestFieldFollower_AvoidBacktrack(t *testing.T) {
	h := newHarness(3, 1)
	m := navigation.NewNavigationMap(h.g, navigation.DefaultMapOptions())
	m.Update([]*grid.Tile{h.g.Top(0, 0), h.g.Top(2, 0)})

	cfg := fastConfig()
	f := h.fieldFollower(t, m, 1, 0, cfg)
	f.prev = h.g.Top(2, 0)
	assert.Equal(t, h.g.Top(2, 0), f.choose(), "east wins ties")

	f.cfg.AvoidBacktrack = true
	assert.Equal(t, h.g.Top(0, 0), f.choose(), "tile just left is excluded")
}

func TestFieldFollower_WaitsOnUnreachable(t *testing.T) {
	h := newHarness(3, 1)
	m := navigation.NewNavigationMap(h.g, navigation.DefaultMapOptions())
	m.Update(nil)

	f := h.fieldFollower(t, m, 0, 0, fastConfig())
	var r results
	f.SetDestination(nil, false, r.record)
	for i := 0; i < 3; i++ {
		h.sched.Tick(tick)
	}
	assert.True(t, f.Active())
	assert.Equal(t, h.g.Top(0, 0), f.Agent().Tile)
	assert.Equal(t, int64(3), h.reg.Ints.Get("nav.move.waits").Load())

	m.Update([]*grid.Tile{h.g.Top(2, 0)})
	h.run(t, 5, func() bool { return !f.Active() })
	require.Len(t, r.got, 1)
	assert.Equal(t, FinishArrived, r.got[0].Reason)
}

func TestFieldFollower_StopAndReplace(t *testing.T) {
	h := newHarness(5, 1)
	m := navigation.NewNavigationMap(h.g, navigation.DefaultMapOptions())
	m.Update([]*grid.Tile{h.g.Top(4, 0)})

	f := h.fieldFollower(t, m, 0, 0, slowConfig())
	var first, second results
	f.SetDestination(nil, false, first.record)
	h.sched.Tick(tick)
	require.NotNil(t, f.Target())

	f.SetDestination(nil, false, second.record)
	require.Len(t, first.got, 1)
	assert.Equal(t, FinishReplaced, first.got[0].Reason)

	f.Stop()
	h.run(t, 5, func() bool { return !f.Active() })
	require.Len(t, second.got, 1)
	assert.Equal(t, FinishStopped, second.got[0].Reason)
	assert.Equal(t, h.g.Top(1, 0), f.Agent().Tile)

	f.Stop()
	assert.Len(t, second.got, 1)
}
