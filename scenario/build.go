package scenario

import (
	"fmt"
	"time"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/movement"
	"github.com/lixenwraith/voxnav/navigation"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

// AgentPlan is an agent resolved against the grid, ready to spawn
type AgentPlan struct {
	Name            string
	Start           *grid.Tile
	Driver          string
	Goal            *grid.Tile
	IncludeAdjacent bool
	Layer           grid.Layer
	Config          movement.Config
}

// World is a scenario resolved into live grid state
type World struct {
	Name         string
	Grid         *grid.Grid
	Destinations []*grid.Tile
	Obstacles    []grid.EntityID
	Agents       []AgentPlan

	MapOptions  navigation.MapOptions
	PathOptions navigation.PathfinderOptions
	Buffered    bool
}

// Build creates the grid, places obstacles and resolves every reference
// reg is passed through to navigation options and may be nil
func (sc *Scenario) Build(reg *status.Registry) (*World, error) {
	cfg := grid.Config{CellSize: sc.CellSize, LayerHeight: sc.LayerHeight}

	var g *grid.Grid
	if sc.Heightmap != "" {
		var err error
		if g, err = grid.Parse(sc.Heightmap, cfg); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	} else {
		g = grid.New(cfg)
	}
	for _, t := range sc.Tiles {
		z := 0
		if t.Z != nil {
			z = *t.Z
		}
		g.AddTile(core.Coord{X: t.X, Y: t.Y, Z: z})
	}

	w := &World{
		Name:     sc.Name,
		Grid:     g,
		Buffered: sc.Navigation.Buffered == nil || *sc.Navigation.Buffered,
	}

	for i, o := range sc.Obstacles {
		t, err := resolve(g, o.CoordSpec)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: obstacle %d: %w", sc.Name, i, err)
		}
		layer, _ := grid.ParseLayer(o.Layer)
		id := grid.NewEntityID()
		if !g.SetOccupant(t, layer, id) {
			return nil, fmt.Errorf("scenario %q: obstacle %d: %s already occupied on %s", sc.Name, i, t, layer)
		}
		w.Obstacles = append(w.Obstacles, id)
	}

	for i, d := range sc.Destinations {
		t, err := resolve(g, d)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: destination %d: %w", sc.Name, i, err)
		}
		w.Destinations = append(w.Destinations, t)
	}

	w.MapOptions = sc.Navigation.mapOptions(reg)
	w.PathOptions = navigation.PathfinderOptions{Status: reg}
	if sc.Navigation.Connectivity == 8 {
		w.PathOptions.Connectivity = navigation.Connect8
	}

	for i, a := range sc.Agents {
		plan, err := a.plan(g)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: agent %d: %w", sc.Name, i, err)
		}
		if plan.Name == "" {
			plan.Name = fmt.Sprintf("agent-%d", i)
		}
		w.Agents = append(w.Agents, plan)
	}
	return w, nil
}

func (n NavigationSpec) mapOptions(reg *status.Registry) navigation.MapOptions {
	opts := navigation.DefaultMapOptions()
	opts.Status = reg
	if n.Rate > 0 {
		opts.Rate = n.Rate
	}
	if n.MinRefreshMs != nil {
		opts.MinRefresh = time.Duration(*n.MinRefreshMs) * time.Millisecond
	}
	if n.ClimbHeight != nil {
		opts.ClimbHeight = *n.ClimbHeight
	}
	opts.Layer, _ = grid.ParseLayer(n.Layer)
	return opts
}

func (a AgentSpec) plan(g *grid.Grid) (AgentPlan, error) {
	start, err := resolve(g, a.Start)
	if err != nil {
		return AgentPlan{}, fmt.Errorf("start: %w", err)
	}

	p := AgentPlan{
		Name:            a.Name,
		Start:           start,
		Driver:          a.Driver,
		IncludeAdjacent: a.IncludeAdjacent,
		Config:          movement.DefaultConfig(),
	}
	if p.Driver == "" {
		p.Driver = DriverPath
	}
	if a.Goal != nil {
		if p.Goal, err = resolve(g, *a.Goal); err != nil {
			return AgentPlan{}, fmt.Errorf("goal: %w", err)
		}
	}
	p.Layer, _ = grid.ParseLayer(a.Layer)

	if a.Speed > 0 {
		p.Config.Speed = a.Speed
	}
	if a.ClimbHeight != nil {
		p.Config.ClimbHeight = *a.ClimbHeight
	} else {
		p.Config.ClimbHeight = parameter.BaseClimbHeight
	}
	if p.Config.Commit, err = movement.ParseCommitMode(a.Commit); err != nil {
		return AgentPlan{}, err
	}
	p.Config.SingleAxis = a.SingleAxis
	p.Config.AvoidBacktrack = a.AvoidBacktrack
	return p, nil
}

// resolve finds the tile a CoordSpec names
func resolve(g *grid.Grid, c CoordSpec) (*grid.Tile, error) {
	if c.Z == nil {
		if t := g.Top(c.X, c.Y); t != nil {
			return t, nil
		}
		return nil, fmt.Errorf("no tile in column (%d,%d)", c.X, c.Y)
	}
	if t := g.TileAt(core.Coord{X: c.X, Y: c.Y, Z: *c.Z}); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("no tile at (%d,%d,%d)", c.X, c.Y, *c.Z)
}

// Resolve maps planar points to column tops, skipping empty columns
func (w *World) Resolve(points []core.Point) []*grid.Tile {
	out := make([]*grid.Tile, 0, len(points))
	for _, p := range points {
		if t := w.Grid.Top(p.X, p.Y); t != nil {
			out = append(out, t)
		}
	}
	return out
}
