package grid

import "github.com/lixenwraith/voxnav/core"

// Tile is one voxel cell of the grid
// Owned by its Grid for the level lifetime; only occupancy and the neighbor cache mutate
type Tile struct {
	ID    int // dense index, stable for the tile's lifetime, never reused
	Coord core.Coord

	neighbors  [DirCount]*Tile
	discovered bool
	removed    bool

	occupants [LayerCount]EntityID
}

// X, Y, Z shorthand accessors
func (t *Tile) X() int { return t.Coord.X }
func (t *Tile) Y() int { return t.Coord.Y }
func (t *Tile) Z() int { return t.Coord.Z }

func (t *Tile) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Coord.String()
}

// ElevationDelta returns |a.Z - b.Z|; nil tiles are infinitely far apart
func ElevationDelta(a, b *Tile) int {
	if a == nil || b == nil {
		return 1<<31 - 1
	}
	return core.Abs(a.Coord.Z - b.Coord.Z)
}
