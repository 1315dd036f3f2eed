package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/status"
)

func at(g *grid.Grid, x, y int) *grid.Tile {
	return g.Top(x, y)
}

// assertWalk checks a path is a chain of orthogonal steps leaving start
func assertWalk(t *testing.T, start *grid.Tile, path []*grid.Tile) {
	t.Helper()
	prev := start
	for i, tile := range path {
		require.NotNil(t, tile, "step %d", i)
		assert.Equal(t, 1, prev.Coord.Manhattan(tile.Coord),
			"step %d: %s -> %s is not an orthogonal move", i, prev, tile)
		prev = tile
	}
}

func TestFindPath_FlatGrid(t *testing.T) {
	g := grid.Flat(5, 5, grid.DefaultConfig())
	pf := NewPathfinder(g, PathfinderOptions{})
	defer pf.Close()

	var fs []int
	pf.OnExpand = func(_ *grid.Tile, f int) { fs = append(fs, f) }

	start, goal := at(g, 0, 0), at(g, 4, 4)
	path := pf.FindPath(Query{Start: start, Goal: goal, ClimbHeight: 0, Layer: grid.LayerGround})

	require.Len(t, path, 8)
	assert.Equal(t, goal, path[len(path)-1])
	assertWalk(t, start, path)

	require.NotEmpty(t, fs)
	for i := 1; i < len(fs); i++ {
		assert.GreaterOrEqual(t, fs[i], fs[i-1], "popped f decreased at %d", i)
	}
}

func TestFindPath_AvoidsOccupied(t *testing.T) {
	g := grid.Flat(5, 5, grid.DefaultConfig())
	pf := NewPathfinder(g, PathfinderOptions{})
	blocked := at(g, 2, 2)
	require.True(t, g.SetOccupant(blocked, grid.LayerGround, grid.NewEntityID()))

	start, goal := at(g, 0, 0), at(g, 4, 4)
	path := pf.FindPath(Query{Start: start, Goal: goal, Layer: grid.LayerGround})

	require.GreaterOrEqual(t, len(path), 8)
	assert.NotContains(t, path, blocked)
	assertWalk(t, start, path)

	// Other layers do not block
	airPath := pf.FindPath(Query{Start: at(g, 2, 0), Goal: at(g, 2, 4), Layer: grid.LayerAir})
	assert.Len(t, airPath, 4)
	assert.Contains(t, airPath, blocked)
}

func TestFindPath_OccupancyRelease(t *testing.T) {
	g := grid.Flat(5, 1, grid.DefaultConfig())
	reg := status.NewRegistry()
	pf := NewPathfinder(g, PathfinderOptions{Status: reg})

	q := Query{Start: at(g, 0, 0), Goal: at(g, 4, 0), Layer: grid.LayerGround}
	require.Len(t, pf.FindPath(q), 4)

	id := grid.NewEntityID()
	wall := at(g, 2, 0)
	g.SetOccupant(wall, grid.LayerGround, id)
	assert.Empty(t, pf.FindPath(q), "corridor blocked")
	assert.False(t, pf.CheckPath(q))

	g.ClearOccupant(wall, grid.LayerGround)
	assert.Len(t, pf.FindPath(q), 4, "cleared tile usable again")
	assert.GreaterOrEqual(t, reg.Ints.Get("nav.path.cache_flushes").Load(), int64(1))
}

func TestFindPath_UnreachableIsIdempotent(t *testing.T) {
	g := grid.Flat(5, 5, grid.DefaultConfig())
	pf := NewPathfinder(g, PathfinderOptions{CacheSize: -1})

	for _, c := range []core.Coord{{X: 3, Y: 4}, {X: 4, Y: 3}} {
		g.SetOccupant(g.TileAt(c), grid.LayerGround, grid.NewEntityID())
	}

	q := Query{Start: at(g, 0, 0), Goal: at(g, 4, 4), Layer: grid.LayerGround}
	assert.Empty(t, pf.FindPath(q))
	assert.Zero(t, pf.arena.closedCount(), "closed flags leaked")
	assert.Empty(t, pf.FindPath(q))
	assert.Zero(t, pf.arena.closedCount(), "closed flags leaked")

	unrelated := pf.FindPath(Query{Start: at(g, 0, 0), Goal: at(g, 2, 0), Layer: grid.LayerGround})
	assert.Len(t, unrelated, 2)

	// Adjacent mode reaches the walled-in goal's neighborhood
	adj := pf.FindPath(Query{Start: at(g, 0, 0), Goal: at(g, 4, 4), Layer: grid.LayerGround, IncludeAdjacent: true})
	require.NotEmpty(t, adj)
	assert.True(t, g.Adjacent(adj[len(adj)-1], at(g, 4, 4)))
}

func TestFindPath_IncludeAdjacent(t *testing.T) {
	g := grid.Flat(5, 5, grid.DefaultConfig())
	pf := NewPathfinder(g, PathfinderOptions{})
	goal := at(g, 4, 4)
	g.SetOccupant(goal, grid.LayerGround, grid.NewEntityID())

	start := at(g, 0, 0)
	strict := pf.FindPath(Query{Start: start, Goal: goal, Layer: grid.LayerGround})
	assert.Empty(t, strict, "occupied goal is unreachable without adjacency")

	path := pf.FindPath(Query{Start: start, Goal: goal, Layer: grid.LayerGround, IncludeAdjacent: true})
	require.NotEmpty(t, path)
	last := path[len(path)-1]
	assert.NotEqual(t, goal, last)
	assert.True(t, g.Adjacent(last, goal))
	assert.LessOrEqual(t, len(path), 7)
	assertWalk(t, start, path)

	// Already adjacent: nothing to do, but satisfiable
	near := at(g, 3, 3)
	assert.Empty(t, pf.FindPath(Query{Start: near, Goal: goal, IncludeAdjacent: true}))
	assert.True(t, pf.CheckPath(Query{Start: near, Goal: goal, IncludeAdjacent: true}))
}

func TestFindPath_ClimbHeight(t *testing.T) {
	g, err := grid.Parse(`
000
090
000`, grid.DefaultConfig())
	require.NoError(t, err)
	pf := NewPathfinder(g, PathfinderOptions{})

	start, goal := at(g, 1, 0), at(g, 1, 2)
	low := pf.FindPath(Query{Start: start, Goal: goal, ClimbHeight: 1})
	require.Len(t, low, 4, "must walk around the peak")
	assert.NotContains(t, low, at(g, 1, 1))

	high := pf.FindPath(Query{Start: start, Goal: goal, ClimbHeight: 9})
	require.Len(t, high, 2)
	assert.Equal(t, at(g, 1, 1), high[0])
}

func TestFindPath_MultiLevelColumn(t *testing.T) {
	g := grid.New(grid.DefaultConfig())
	for x := 0; x < 3; x++ {
		g.AddTile(core.Coord{X: x, Y: 0, Z: 0})
	}
	bridge := g.AddTile(core.Coord{X: 1, Y: 0, Z: 5})
	pf := NewPathfinder(g, PathfinderOptions{})

	path := pf.FindPath(Query{Start: g.TileAt(core.Coord{X: 0}), Goal: g.TileAt(core.Coord{X: 2}), ClimbHeight: 1})
	require.Len(t, path, 2)
	assert.Equal(t, 0, path[0].Z(), "ground-level tile chosen under the bridge")
	assert.NotEqual(t, bridge, path[0])
}

func TestFindPath_Degenerate(t *testing.T) {
	g := grid.Flat(3, 3, grid.DefaultConfig())
	pf := NewPathfinder(g, PathfinderOptions{})
	a := at(g, 0, 0)

	assert.Empty(t, pf.FindPath(Query{Start: a, Goal: a}))
	assert.True(t, pf.CheckPath(Query{Start: a, Goal: a}))

	assert.Empty(t, pf.FindPath(Query{Start: nil, Goal: a}))
	assert.Empty(t, pf.FindPath(Query{Start: a, Goal: nil}))
	assert.False(t, pf.CheckPath(Query{Start: a}))

	other := grid.Flat(3, 3, grid.DefaultConfig())
	assert.Empty(t, pf.FindPath(Query{Start: a, Goal: other.Top(2, 2)}), "tile from another grid")

	removed := at(g, 2, 2)
	g.RemoveTile(removed)
	assert.Empty(t, pf.FindPath(Query{Start: a, Goal: removed}))
}

func TestFindPath_Connect8(t *testing.T) {
	g := grid.Flat(5, 5, grid.DefaultConfig())
	pf := NewPathfinder(g, PathfinderOptions{Connectivity: Connect8})

	path := pf.FindPath(Query{Start: at(g, 0, 0), Goal: at(g, 4, 4)})
	assert.Len(t, path, 4)

	// Diagonal squeeze past an occupied orthogonal tile is refused
	g.SetOccupant(at(g, 1, 0), grid.LayerGround, grid.NewEntityID())
	cut := pf.FindPath(Query{Start: at(g, 0, 0), Goal: at(g, 1, 1)})
	require.Len(t, cut, 2)
	assert.Equal(t, at(g, 0, 1), cut[0])
}

func TestFindPath_Cache(t *testing.T) {
	g := grid.Flat(5, 5, grid.DefaultConfig())
	reg := status.NewRegistry()
	pf := NewPathfinder(g, PathfinderOptions{Status: reg})

	q := Query{Start: at(g, 0, 0), Goal: at(g, 4, 0)}
	first := pf.FindPath(q)
	second := pf.FindPath(q)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), reg.Ints.Get("nav.path.cache_hits").Load())
	assert.Equal(t, int64(1), reg.Ints.Get("nav.path.searches").Load())

	// Callers own returned slices
	second[0] = nil
	assert.NotNil(t, pf.FindPath(q)[0])

	pf.Close()
	g.SetOccupant(at(g, 2, 0), grid.LayerGround, grid.NewEntityID())
	assert.Len(t, pf.FindPath(q), 4, "closed pathfinder no longer sees notifications")
}
