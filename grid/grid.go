package grid

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/parameter"
)

// OccupancyListener is notified synchronously after every occupancy mutation
type OccupancyListener interface {
	OccupancyChanged(t *Tile, layer Layer)
}

// TopologyListener is notified after a tile is added or removed
type TopologyListener interface {
	TopologyChanged(t *Tile)
}

// Config holds world-space geometry
type Config struct {
	CellSize    float32 // planar world size of one tile
	LayerHeight float32 // world height of one elevation step
}

// DefaultConfig returns geometry from parameter defaults
func DefaultConfig() Config {
	return Config{
		CellSize:    parameter.DefaultCellSize,
		LayerHeight: parameter.DefaultLayerHeight,
	}
}

// Grid owns every tile of a level and is the single write path for occupancy
// Not safe for concurrent mutation; callers run on one logical timeline
type Grid struct {
	cfg Config

	tiles   []*Tile // by ID, nil slots for removed tiles
	byCoord map[core.Coord]*Tile
	columns map[core.Point][]*Tile // sorted by Z ascending
	count   int

	minX, minY, maxX, maxY int

	occListeners  []OccupancyListener
	topoListeners []TopologyListener

	log *logrus.Entry
}

// New creates an empty grid
func New(cfg Config) *Grid {
	if cfg.CellSize <= 0 {
		cfg.CellSize = parameter.DefaultCellSize
	}
	if cfg.LayerHeight <= 0 {
		cfg.LayerHeight = parameter.DefaultLayerHeight
	}
	return &Grid{
		cfg:     cfg,
		byCoord: make(map[core.Coord]*Tile),
		columns: make(map[core.Point][]*Tile),
		log:     logger.For("grid"),
	}
}

// Config returns the world geometry
func (g *Grid) Config() Config {
	return g.cfg
}

// --- Topology ---

// AddTile creates a tile at c, or returns the existing one
func (g *Grid) AddTile(c core.Coord) *Tile {
	if t, ok := g.byCoord[c]; ok {
		return t
	}

	t := &Tile{ID: len(g.tiles), Coord: c}
	g.tiles = append(g.tiles, t)
	g.byCoord[c] = t

	key := c.Planar()
	col := append(g.columns[key], t)
	slices.SortFunc(col, func(a, b *Tile) int { return a.Coord.Z - b.Coord.Z })
	g.columns[key] = col

	if g.count == 0 {
		g.minX, g.maxX, g.minY, g.maxY = c.X, c.X, c.Y, c.Y
	} else {
		g.minX, g.maxX = min(g.minX, c.X), max(g.maxX, c.X)
		g.minY, g.maxY = min(g.minY, c.Y), max(g.maxY, c.Y)
	}
	g.count++

	g.invalidateAround(key)
	for _, l := range g.topoListeners {
		l.TopologyChanged(t)
	}
	return t
}

// RemoveTile detaches t from the grid; its ID is not reused
// Occupants are dropped without occupancy notifications; topology listeners cover the change
func (g *Grid) RemoveTile(t *Tile) {
	if t == nil || t.removed || g.byCoord[t.Coord] != t {
		return
	}

	t.removed = true
	t.occupants = [LayerCount]EntityID{}
	t.neighbors = [DirCount]*Tile{}
	t.discovered = true

	g.tiles[t.ID] = nil
	delete(g.byCoord, t.Coord)

	key := t.Coord.Planar()
	col := slices.DeleteFunc(g.columns[key], func(o *Tile) bool { return o == t })
	if len(col) == 0 {
		delete(g.columns, key)
	} else {
		g.columns[key] = col
	}
	g.count--

	g.invalidateAround(key)
	for _, l := range g.topoListeners {
		l.TopologyChanged(t)
	}
}

// invalidateAround drops neighbor caches of the column and its 8 surrounding columns
func (g *Grid) invalidateAround(p core.Point) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, t := range g.columns[core.Point{X: p.X + dx, Y: p.Y + dy}] {
				t.discovered = false
			}
		}
	}
}

// --- Lookup ---

// TileAt returns the tile at c, nil if none
func (g *Grid) TileAt(c core.Coord) *Tile {
	return g.byCoord[c]
}

// TileByID returns the tile with the given ID, nil if absent or removed
func (g *Grid) TileByID(id int) *Tile {
	if id < 0 || id >= len(g.tiles) {
		return nil
	}
	return g.tiles[id]
}

// Column returns the tiles of planar column (x, y) sorted by Z; callers must not modify it
func (g *Grid) Column(x, y int) []*Tile {
	return g.columns[core.Point{X: x, Y: y}]
}

// Top returns the highest tile of column (x, y), nil if empty
func (g *Grid) Top(x, y int) *Tile {
	col := g.Column(x, y)
	if len(col) == 0 {
		return nil
	}
	return col[len(col)-1]
}

// Len returns the number of live tiles
func (g *Grid) Len() int {
	return g.count
}

// Cap returns one past the largest tile ID ever issued; arenas size to it
func (g *Grid) Cap() int {
	return len(g.tiles)
}

// Tiles calls fn for every live tile in ID order
func (g *Grid) Tiles(fn func(t *Tile)) {
	for _, t := range g.tiles {
		if t != nil {
			fn(t)
		}
	}
}

// Bounds returns the planar bounding box of every tile ever added
func (g *Grid) Bounds() (minX, minY, maxX, maxY int) {
	return g.minX, g.minY, g.maxX, g.maxY
}

// WorldPosition returns the world-space anchor of t
func (g *Grid) WorldPosition(t *Tile) mgl32.Vec3 {
	if t == nil {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{
		float32(t.Coord.X) * g.cfg.CellSize,
		float32(t.Coord.Y) * g.cfg.CellSize,
		float32(t.Coord.Z) * g.cfg.LayerHeight,
	}
}

// TileAtWorld resolves a world position to the exact tile, falling back to the
// column tile nearest in elevation
func (g *Grid) TileAtWorld(p mgl32.Vec3) *Tile {
	x := int(math.Round(float64(p.X() / g.cfg.CellSize)))
	y := int(math.Round(float64(p.Y() / g.cfg.CellSize)))
	z := int(math.Round(float64(p.Z() / g.cfg.LayerHeight)))

	if t := g.byCoord[core.Coord{X: x, Y: y, Z: z}]; t != nil {
		return t
	}
	return nearestInColumn(g.Column(x, y), z)
}

// nearestInColumn picks the tile closest to z; ties resolve to the lower tile
func nearestInColumn(col []*Tile, z int) *Tile {
	var best *Tile
	bestDelta := 0
	for _, t := range col {
		d := core.Abs(t.Coord.Z - z)
		if best == nil || d < bestDelta {
			best, bestDelta = t, d
		}
	}
	return best
}

// --- Adjacency ---

// Neighbor returns the tile adjacent to t in direction dir, nil if none
// The first lookup discovers all 8 neighbors; the cache survives until topology changes
func (g *Grid) Neighbor(t *Tile, dir Direction) *Tile {
	if t == nil || t.removed || dir < 0 || dir >= DirCount {
		return nil
	}
	if !t.discovered {
		g.discover(t)
	}
	return t.neighbors[dir]
}

// Adjacent reports whether b is one of a's 8 planar neighbors
func (g *Grid) Adjacent(a, b *Tile) bool {
	if a == nil || b == nil || a == b {
		return false
	}
	for _, dir := range All {
		if g.Neighbor(a, dir) == b {
			return true
		}
	}
	return false
}

func (g *Grid) discover(t *Tile) {
	for dir := Direction(0); dir < DirCount; dir++ {
		v := DirVectors[dir]
		col := g.columns[core.Point{X: t.Coord.X + v[0], Y: t.Coord.Y + v[1]}]
		t.neighbors[dir] = nearestInColumn(col, t.Coord.Z)
	}
	t.discovered = true
}

// --- Occupancy ---

// OnOccupancy registers l and returns a function removing it
func (g *Grid) OnOccupancy(l OccupancyListener) (cancel func()) {
	g.occListeners = append(g.occListeners, l)
	return func() {
		g.occListeners = slices.DeleteFunc(g.occListeners, func(o OccupancyListener) bool { return o == l })
	}
}

// OnTopology registers l and returns a function removing it
func (g *Grid) OnTopology(l TopologyListener) (cancel func()) {
	g.topoListeners = append(g.topoListeners, l)
	return func() {
		g.topoListeners = slices.DeleteFunc(g.topoListeners, func(o TopologyListener) bool { return o == l })
	}
}

// IsOccupied reports whether layer of t holds an occupant; nil tiles count as occupied
func (g *Grid) IsOccupied(t *Tile, layer Layer) bool {
	if t == nil || t.removed || layer >= LayerCount {
		return true
	}
	return !t.occupants[layer].IsNone()
}

// Occupant returns the entity on layer of t
func (g *Grid) Occupant(t *Tile, layer Layer) (EntityID, bool) {
	if t == nil || t.removed || layer >= LayerCount {
		return NoEntity, false
	}
	id := t.occupants[layer]
	return id, !id.IsNone()
}

// SetOccupant places id on layer of t
// Returns false when the slot belongs to another entity or the tile is invalid
func (g *Grid) SetOccupant(t *Tile, layer Layer, id EntityID) bool {
	if t == nil || t.removed || layer >= LayerCount {
		return false
	}
	if id.IsNone() {
		g.ClearOccupant(t, layer)
		return true
	}

	cur := t.occupants[layer]
	if cur == id {
		return true
	}
	if !cur.IsNone() {
		g.log.WithFields(logrus.Fields{
			"tile":     t.Coord.String(),
			"layer":    layer.String(),
			"occupant": cur.Short(),
			"entity":   id.Short(),
		}).Debug("occupancy refused")
		return false
	}

	t.occupants[layer] = id
	g.notify(t, layer)
	return true
}

// ClearOccupant empties layer of t; no-op when already empty
func (g *Grid) ClearOccupant(t *Tile, layer Layer) {
	if t == nil || t.removed || layer >= LayerCount || t.occupants[layer].IsNone() {
		return
	}
	t.occupants[layer] = NoEntity
	g.notify(t, layer)
}

// MoveOccupant transfers id from one tile to another on layer
// Fails without side effects when the target slot is held by another entity
func (g *Grid) MoveOccupant(from, to *Tile, layer Layer, id EntityID) bool {
	if from == to {
		return g.SetOccupant(to, layer, id)
	}
	if cur, ok := g.Occupant(to, layer); to == nil || to.removed || (ok && cur != id) {
		return false
	}
	if cur, ok := g.Occupant(from, layer); ok && cur == id {
		g.ClearOccupant(from, layer)
	}
	return g.SetOccupant(to, layer, id)
}

func (g *Grid) notify(t *Tile, layer Layer) {
	for _, l := range g.occListeners {
		l.OccupancyChanged(t, layer)
	}
}
