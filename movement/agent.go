package movement

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/voxnav/grid"
)

// Agent is a mover occupying exactly one tile on its layer
// Tile is the logical tile; Position is the interpolated world position
type Agent struct {
	ID       grid.EntityID
	Tile     *grid.Tile
	Position mgl32.Vec3
	Layer    grid.Layer
}

// NewAgent places a new agent on start, claiming its occupancy
// Returns false when start is missing or held by another entity
func NewAgent(g *grid.Grid, start *grid.Tile, layer grid.Layer) (*Agent, bool) {
	id := grid.NewEntityID()
	if !g.SetOccupant(start, layer, id) {
		return nil, false
	}
	return &Agent{
		ID:       id,
		Tile:     start,
		Position: g.WorldPosition(start),
		Layer:    layer,
	}, true
}

// Release clears the agent's occupancy; the agent must not move afterwards
func (a *Agent) Release(g *grid.Grid) {
	if cur, ok := g.Occupant(a.Tile, a.Layer); ok && cur == a.ID {
		g.ClearOccupant(a.Tile, a.Layer)
	}
}

// Teleport moves the agent to t at once, snapping its position
func (a *Agent) Teleport(g *grid.Grid, t *grid.Tile) bool {
	if !g.MoveOccupant(a.Tile, t, a.Layer, a.ID) {
		return false
	}
	a.Tile = t
	a.Position = g.WorldPosition(t)
	return true
}
