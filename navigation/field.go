package navigation

import (
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/parameter"
)

// DistanceReader is the read side shared by NavigationMap and BufferedMap
type DistanceReader interface {
	DistanceAt(t *grid.Tile) int
}

// DistanceField maps tile ID to hop count from the nearest destination
type DistanceField struct {
	dist []int32
}

// reset sizes the field to size tiles, all at the sentinel
func (f *DistanceField) reset(size int) {
	if cap(f.dist) < size {
		f.dist = make([]int32, size)
	} else {
		f.dist = f.dist[:size]
	}
	for i := range f.dist {
		f.dist[i] = parameter.UnreachableDistance
	}
}

// At returns the distance for t, sentinel for nil or out-of-range tiles
func (f *DistanceField) At(t *grid.Tile) int {
	if t == nil || t.ID < 0 || t.ID >= len(f.dist) {
		return parameter.UnreachableDistance
	}
	return int(f.dist[t.ID])
}

// Len returns the number of tile slots covered
func (f *DistanceField) Len() int {
	return len(f.dist)
}

// Snapshot copies the raw field, indexed by tile ID
func (f *DistanceField) Snapshot() []int32 {
	out := make([]int32, len(f.dist))
	copy(out, f.dist)
	return out
}

// relaxer runs lowest-distance-first expansion over a DistanceField in resumable batches
// One relaxer fills one field at a time; begin discards any unfinished pass
type relaxer struct {
	grid  *grid.Grid
	climb int
	layer grid.Layer

	field *DistanceField
	open  minHeap
	seq   uint32

	visited []uint32 // stamp per tile ID
	stamp   uint32

	active bool
}

func newRelaxer(g *grid.Grid, climb int, layer grid.Layer) *relaxer {
	return &relaxer{
		grid:  g,
		climb: climb,
		layer: layer,
		open:  make(minHeap, 0, parameter.SearchHeapCapacity),
	}
}

// begin resets field to the grid size and seeds every valid destination at 0
func (r *relaxer) begin(field *DistanceField, dests []*grid.Tile) {
	size := r.grid.Cap()
	field.reset(size)

	if cap(r.visited) < size {
		grown := make([]uint32, size)
		copy(grown, r.visited)
		r.visited = grown
	} else {
		r.visited = r.visited[:size]
	}
	r.stamp++
	if r.stamp == 0 {
		clear(r.visited)
		r.stamp = 1
	}

	r.field = field
	r.open = r.open[:0]
	r.seq = 0
	r.active = true

	for _, d := range dests {
		if d == nil || d.ID >= size || r.grid.TileByID(d.ID) != d {
			continue
		}
		if field.dist[d.ID] == 0 {
			continue
		}
		field.dist[d.ID] = 0
		r.push(int32(d.ID), 0)
	}
}

// step settles up to budget tiles; budget <= 0 runs to completion
// Returns done when the open set is exhausted, plus the number of tiles settled
func (r *relaxer) step(budget int) (done bool, settled int) {
	if !r.active {
		return true, 0
	}

	dist := r.field.dist
	for len(r.open) > 0 {
		if budget > 0 && settled >= budget {
			return false, settled
		}

		e := r.open.pop()
		if r.visited[e.id] == r.stamp || e.key != dist[e.id] {
			continue
		}
		r.visited[e.id] = r.stamp
		settled++

		tile := r.grid.TileByID(int(e.id))
		for _, dir := range grid.Orthogonal {
			nb := r.grid.Neighbor(tile, dir)
			if nb == nil || nb.ID >= len(dist) || r.visited[nb.ID] == r.stamp {
				continue
			}
			if grid.ElevationDelta(tile, nb) > r.climb || r.grid.IsOccupied(nb, r.layer) {
				continue
			}
			next := e.key + parameter.StepCost
			if next < dist[nb.ID] {
				dist[nb.ID] = next
				r.push(int32(nb.ID), next)
			}
		}
	}

	r.active = false
	return true, settled
}

// abort drops the pass in progress; the target field is left partially relaxed
func (r *relaxer) abort() {
	r.active = false
	r.field = nil
	r.open = r.open[:0]
}

func (r *relaxer) push(id, d int32) {
	r.open.push(heapEntry{id: id, key: d, seq: r.seq})
	r.seq++
}
