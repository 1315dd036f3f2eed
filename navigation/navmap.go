package navigation

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

// MapOptions configures NavigationMap and BufferedMap
// Start from DefaultMapOptions: a zero ClimbHeight is honored and keeps the field on
// level ground, only a negative one falls back to parameter.BaseClimbHeight
type MapOptions struct {
	ClimbHeight int           // shared across all movers reading the field; 0 means level only
	Layer       grid.Layer    // occupancy layer that blocks expansion
	Rate        int           // buffered only: tiles settled per second
	MinRefresh  time.Duration // buffered only: floor between a swap and the next build
	Status      *status.Registry
}

// DefaultMapOptions returns options from parameter defaults
func DefaultMapOptions() MapOptions {
	return MapOptions{
		ClimbHeight: parameter.BaseClimbHeight,
		Layer:       grid.LayerGround,
		Rate:        parameter.DefaultBuildRate,
		MinRefresh:  parameter.MinRefreshDelay,
	}
}

func (o MapOptions) withDefaults() MapOptions {
	if o.ClimbHeight < 0 {
		o.ClimbHeight = parameter.BaseClimbHeight
	}
	if o.Rate <= 0 {
		o.Rate = parameter.DefaultBuildRate
	}
	if o.MinRefresh < 0 {
		o.MinRefresh = 0
	}
	return o
}

// NavigationMap is a synchronously recomputed multi-source distance field
// Occupancy or topology changes mark it dirty; the next read recomputes
type NavigationMap struct {
	grid  *grid.Grid
	opts  MapOptions
	field DistanceField
	relax *relaxer

	dests []*grid.Tile
	dirty bool

	cancelOcc  func()
	cancelTopo func()

	log          *logrus.Entry
	statUpdates  *atomic.Int64
	statSettled  *atomic.Int64
	statLastTime *status.AtomicFloat
}

// NewNavigationMap creates a map over g; call Update to seed destinations
func NewNavigationMap(g *grid.Grid, opts MapOptions) *NavigationMap {
	opts = opts.withDefaults()
	reg := status.OrNew(opts.Status)

	m := &NavigationMap{
		grid:         g,
		opts:         opts,
		relax:        newRelaxer(g, opts.ClimbHeight, opts.Layer),
		log:          logger.For("navmap"),
		statUpdates:  reg.Ints.Get("nav.map.updates"),
		statSettled:  reg.Ints.Get("nav.map.settled"),
		statLastTime: reg.Floats.Get("nav.map.last_ms"),
	}
	m.cancelOcc = g.OnOccupancy(m)
	m.cancelTopo = g.OnTopology(m)
	return m
}

// Close unsubscribes from the grid
func (m *NavigationMap) Close() {
	if m.cancelOcc != nil {
		m.cancelOcc()
		m.cancelTopo()
		m.cancelOcc, m.cancelTopo = nil, nil
	}
}

// OccupancyChanged implements grid.OccupancyListener
func (m *NavigationMap) OccupancyChanged(_ *grid.Tile, layer grid.Layer) {
	if layer == m.opts.Layer {
		m.dirty = true
	}
}

// TopologyChanged implements grid.TopologyListener
func (m *NavigationMap) TopologyChanged(*grid.Tile) {
	m.dirty = true
}

// Build sizes the field to the grid with every tile at the sentinel
func (m *NavigationMap) Build() {
	m.field.reset(m.grid.Cap())
}

// Update rebuilds the field from dests
func (m *NavigationMap) Update(dests []*grid.Tile) {
	m.dests = slices.Clone(dests)
	m.recompute()
}

func (m *NavigationMap) recompute() {
	start := time.Now()

	m.relax.begin(&m.field, m.dests)
	_, settled := m.relax.step(0)
	m.dirty = false

	elapsed := time.Since(start)
	m.statUpdates.Add(1)
	m.statSettled.Add(int64(settled))
	m.statLastTime.Set(float64(elapsed.Microseconds()) / 1000)

	m.log.WithFields(logrus.Fields{
		"destinations": len(m.dests),
		"settled":      settled,
		"elapsed":      elapsed,
	}).Debug("field updated")
}

// DistanceAt returns hops from t to the nearest destination, recomputing first if dirty
func (m *NavigationMap) DistanceAt(t *grid.Tile) int {
	if m.dirty {
		m.recompute()
	}
	return m.field.At(t)
}

// Destinations returns a copy of the current destination set
func (m *NavigationMap) Destinations() []*grid.Tile {
	return slices.Clone(m.dests)
}

// Field returns the current field; valid until the next recompute
func (m *NavigationMap) Field() *DistanceField {
	if m.dirty {
		m.recompute()
	}
	return &m.field
}
