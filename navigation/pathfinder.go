package navigation

import (
	"slices"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

// Connectivity selects which planar neighbors a search expands
type Connectivity uint8

const (
	Connect4 Connectivity = iota // orthogonal only, Manhattan heuristic
	Connect8                     // orthogonal and diagonal, Chebyshev heuristic
)

// Query is one point-to-point request
type Query struct {
	Start, Goal     *grid.Tile
	ClimbHeight     int        // max elevation delta per step
	Layer           grid.Layer // occupancy layer that blocks traversal
	IncludeAdjacent bool       // stop at any tile touching Goal
}

// PathfinderOptions configures a Pathfinder
type PathfinderOptions struct {
	Connectivity Connectivity
	CacheSize    int // 0 uses parameter.PathCacheSize, negative disables caching
	Status       *status.Registry
}

// Pathfinder answers A* queries over a grid
// Owns a search-node arena sized to the grid, so one Pathfinder serves one search at a time
type Pathfinder struct {
	grid *grid.Grid
	dirs []grid.Direction
	diag bool

	arena searchArena
	open  minHeap
	seq   uint32

	cache     map[Query][]*grid.Tile
	cacheSize int

	// OnExpand observes every tile popped from the open set with its f value
	// Advisory; does not affect the search
	OnExpand func(t *grid.Tile, f int)

	cancelOcc  func()
	cancelTopo func()

	log            *logrus.Entry
	statSearches   *atomic.Int64
	statExpanded   *atomic.Int64
	statCacheHits  *atomic.Int64
	statCacheFlush *atomic.Int64
}

// NewPathfinder creates a pathfinder and subscribes it to grid changes
func NewPathfinder(g *grid.Grid, opts PathfinderOptions) *Pathfinder {
	reg := status.OrNew(opts.Status)

	size := opts.CacheSize
	if size == 0 {
		size = parameter.PathCacheSize
	}

	p := &Pathfinder{
		grid:           g,
		dirs:           grid.Orthogonal,
		cacheSize:      size,
		open:           make(minHeap, 0, parameter.SearchHeapCapacity),
		log:            logger.For("pathfinder"),
		statSearches:   reg.Ints.Get("nav.path.searches"),
		statExpanded:   reg.Ints.Get("nav.path.expanded"),
		statCacheHits:  reg.Ints.Get("nav.path.cache_hits"),
		statCacheFlush: reg.Ints.Get("nav.path.cache_flushes"),
	}
	if opts.Connectivity == Connect8 {
		p.dirs = grid.All
		p.diag = true
	}
	if size > 0 {
		p.cache = make(map[Query][]*grid.Tile, size)
	}

	p.cancelOcc = g.OnOccupancy(p)
	p.cancelTopo = g.OnTopology(p)
	return p
}

// Close unsubscribes from the grid
func (p *Pathfinder) Close() {
	if p.cancelOcc != nil {
		p.cancelOcc()
		p.cancelTopo()
		p.cancelOcc, p.cancelTopo = nil, nil
	}
}

// OccupancyChanged implements grid.OccupancyListener
func (p *Pathfinder) OccupancyChanged(*grid.Tile, grid.Layer) {
	p.flush()
}

// TopologyChanged implements grid.TopologyListener
func (p *Pathfinder) TopologyChanged(*grid.Tile) {
	p.flush()
}

func (p *Pathfinder) flush() {
	if len(p.cache) == 0 {
		return
	}
	clear(p.cache)
	p.statCacheFlush.Add(1)
}

// FindPath returns tiles from (exclusive) start to (inclusive) goal, or to a tile
// adjacent to goal under IncludeAdjacent
// Empty result means no route exists or start already satisfies the query
func (p *Pathfinder) FindPath(q Query) []*grid.Tile {
	if !p.valid(q.Start) || !p.valid(q.Goal) || q.Start == q.Goal {
		return nil
	}

	if p.cache != nil && p.OnExpand == nil {
		if cached, ok := p.cache[q]; ok {
			p.statCacheHits.Add(1)
			return slices.Clone(cached)
		}
	}

	path := p.search(q)

	if p.cache != nil {
		if len(p.cache) >= p.cacheSize {
			p.flush()
		}
		p.cache[q] = slices.Clone(path)
	}
	return path
}

// CheckPath reports whether the query is satisfiable now, including the trivial cases
func (p *Pathfinder) CheckPath(q Query) bool {
	if !p.valid(q.Start) || !p.valid(q.Goal) {
		return false
	}
	if q.Start == q.Goal {
		return true
	}
	if q.IncludeAdjacent && p.grid.Adjacent(q.Start, q.Goal) {
		return true
	}
	return len(p.FindPath(q)) > 0
}

func (p *Pathfinder) valid(t *grid.Tile) bool {
	return t != nil && p.grid.TileByID(t.ID) == t
}

func (p *Pathfinder) heuristic(a, b *grid.Tile) int32 {
	if p.diag {
		return int32(a.Coord.Chebyshev(b.Coord))
	}
	return int32(a.Coord.Manhattan(b.Coord))
}

func (p *Pathfinder) search(q Query) []*grid.Tile {
	p.statSearches.Add(1)

	p.arena.begin(p.grid.Cap())
	defer p.arena.end()

	p.open = p.open[:0]
	p.seq = 0

	goal := q.Goal
	start := p.arena.node(int32(q.Start.ID))
	start.h = p.heuristic(q.Start, goal)
	start.open = true
	p.pushOpen(int32(q.Start.ID), start.g+start.h)

	expanded := 0
	for len(p.open) > 0 {
		e := p.open.pop()
		cur := p.arena.node(e.id)
		if cur.closed || e.key != cur.g+cur.h {
			continue // stale duplicate
		}
		cur.closed = true
		expanded++

		tile := p.grid.TileByID(int(e.id))
		if p.OnExpand != nil {
			p.OnExpand(tile, int(e.key))
		}

		if tile == goal || (q.IncludeAdjacent && p.grid.Adjacent(tile, goal)) {
			p.finish(q, expanded, true)
			return p.unwind(e.id, int32(q.Start.ID))
		}

		for _, dir := range p.dirs {
			nb := p.grid.Neighbor(tile, dir)
			if nb == nil {
				continue
			}
			next := p.arena.node(int32(nb.ID))
			if next.closed {
				continue
			}
			if !(q.IncludeAdjacent && nb == goal) && p.grid.IsOccupied(nb, q.Layer) {
				continue
			}
			if grid.ElevationDelta(tile, nb) > q.ClimbHeight {
				continue
			}
			if dir.Diagonal() && p.cutsCorner(tile, dir, q.Layer) {
				continue
			}

			g := cur.g + 1
			if next.open && g >= next.g {
				continue
			}
			next.g = g
			next.h = p.heuristic(nb, goal)
			next.parent = e.id
			next.open = true
			p.pushOpen(int32(nb.ID), g+next.h)
		}
	}

	p.finish(q, expanded, false)
	return nil
}

// cutsCorner rejects diagonal steps squeezing past a missing or occupied orthogonal tile
func (p *Pathfinder) cutsCorner(from *grid.Tile, dir grid.Direction, layer grid.Layer) bool {
	side1 := p.grid.Neighbor(from, (dir+grid.DirCount-1)%grid.DirCount)
	side2 := p.grid.Neighbor(from, (dir+1)%grid.DirCount)
	return p.grid.IsOccupied(side1, layer) || p.grid.IsOccupied(side2, layer)
}

func (p *Pathfinder) pushOpen(id, f int32) {
	p.open.push(heapEntry{id: id, key: f, seq: p.seq})
	p.seq++
}

// unwind follows parent IDs from end back to start and returns the reversed chain, start excluded
func (p *Pathfinder) unwind(end, start int32) []*grid.Tile {
	var path []*grid.Tile
	for id := end; id != start && id >= 0; id = p.arena.node(id).parent {
		path = append(path, p.grid.TileByID(int(id)))
	}
	slices.Reverse(path)
	return path
}

func (p *Pathfinder) finish(q Query, expanded int, found bool) {
	p.statExpanded.Add(int64(expanded))
	if !p.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	p.log.WithFields(logrus.Fields{
		"start":    q.Start.Coord.String(),
		"goal":     q.Goal.Coord.String(),
		"layer":    q.Layer.String(),
		"adjacent": q.IncludeAdjacent,
		"expanded": expanded,
		"found":    found,
	}).Debug("search finished")
}
