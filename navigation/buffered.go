package navigation

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/status"
)

// BuildState is the buffered map lifecycle
type BuildState int32

const (
	StateIdle BuildState = iota
	StateBuilding
	StateSwapping
)

func (s BuildState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSwapping:
		return "swapping"
	}
	return "unknown"
}

// StopMode selects how Stop treats a build in flight
type StopMode uint8

const (
	StopGraceful  StopMode = iota // finish and swap the current build, drop queued requests
	StopImmediate                 // discard the current build
)

// BufferedMap relaxes a back field a bounded number of tiles per tick and swaps it
// in only when complete, so readers see either the previous or the next full field
// Tick, DistanceAt and the mutating methods belong to the scheduler timeline; the
// next build reuses the field a swap retired. State and Generation are atomic and
// may be polled from any goroutine
type BufferedMap struct {
	grid  *grid.Grid
	opts  MapOptions
	relax *relaxer

	fields [2]DistanceField
	active atomic.Int32

	state      atomic.Int32
	generation atomic.Uint64

	wanted  []*grid.Tile // latest requested destinations
	pending bool         // a build is queued
	stale   bool         // wanted or the world changed since the last build began
	built   []*grid.Tile // destinations of the build in flight or last swapped

	sinceSwap time.Duration
	swapped   bool
	carry     float64

	scheduler *engine.Scheduler
	running   bool
	stopping  bool

	cancelOcc  func()
	cancelTopo func()

	log          *logrus.Entry
	statBuilds   *atomic.Int64
	statSwaps    *atomic.Int64
	statSettled  *atomic.Int64
	statDropped  *atomic.Int64
	statState    *status.AtomicString
	statBuildDur *status.AtomicFloat
	statBuildMax *status.AtomicFloat

	buildWork time.Duration // wall time spent relaxing the build in flight
}

// NewBufferedMap creates a buffered map over g with both fields at the sentinel
func NewBufferedMap(g *grid.Grid, opts MapOptions) *BufferedMap {
	opts = opts.withDefaults()
	reg := status.OrNew(opts.Status)

	m := &BufferedMap{
		grid:         g,
		opts:         opts,
		relax:        newRelaxer(g, opts.ClimbHeight, opts.Layer),
		log:          logger.For("buffered"),
		statBuilds:   reg.Ints.Get("nav.buffered.builds"),
		statSwaps:    reg.Ints.Get("nav.buffered.swaps"),
		statSettled:  reg.Ints.Get("nav.buffered.settled"),
		statDropped:  reg.Ints.Get("nav.buffered.dropped"),
		statState:    reg.Strings.Get("nav.buffered.state"),
		statBuildDur: reg.Floats.Get("nav.buffered.build_ms"),
		statBuildMax: reg.Floats.Get("nav.buffered.build_ms_max"),
	}
	m.fields[0].reset(g.Cap())
	m.fields[1].reset(g.Cap())
	m.setState(StateIdle)

	m.cancelOcc = g.OnOccupancy(m)
	m.cancelTopo = g.OnTopology(m)
	return m
}

// Close hard-stops any build and unsubscribes from the grid
func (m *BufferedMap) Close() {
	m.Stop(StopImmediate)
	if m.cancelOcc != nil {
		m.cancelOcc()
		m.cancelTopo()
		m.cancelOcc, m.cancelTopo = nil, nil
	}
}

// OccupancyChanged implements grid.OccupancyListener
func (m *BufferedMap) OccupancyChanged(_ *grid.Tile, layer grid.Layer) {
	if layer == m.opts.Layer {
		m.queueRebuild()
	}
}

// TopologyChanged implements grid.TopologyListener
func (m *BufferedMap) TopologyChanged(*grid.Tile) {
	m.queueRebuild()
}

func (m *BufferedMap) queueRebuild() {
	if m.wanted == nil {
		return
	}
	m.stale = true
	m.pending = true
}

// UpdateDestinations queues a build for dests; the latest request wins
// A build already in flight is never preempted
func (m *BufferedMap) UpdateDestinations(dests []*grid.Tile) {
	m.wanted = slices.Clone(dests)
	if m.wanted == nil {
		m.wanted = []*grid.Tile{}
	}
	m.stale = true
	if m.pending {
		m.statDropped.Add(1)
	}
	m.pending = true
}

// Start registers the map as a task on s; no-op while already running
// Calling Start during a graceful stop cancels the stop
// Destinations requested but not yet reflected by a completed build are queued
func (m *BufferedMap) Start(s *engine.Scheduler) {
	if m.stale {
		m.pending = true
	}
	if m.running {
		m.stopping = false
		return
	}
	m.scheduler = s
	m.running = true
	m.stopping = false
	s.Add(m)
	m.log.Debug("buffered updates started")
}

// Stop ends buffered updates; no-op when not running
// Queued requests are dropped once the task ends and rebuilt by the next Start
func (m *BufferedMap) Stop(mode StopMode) {
	if !m.running {
		return
	}

	if mode == StopGraceful && m.State() == StateBuilding {
		m.stopping = true
		m.log.Debug("buffered updates stopping after current build")
		return
	}

	if m.State() == StateBuilding {
		m.relax.abort()
		m.stale = true
		m.setState(StateIdle)
		m.log.Debug("build discarded")
	}
	m.halt()
}

func (m *BufferedMap) halt() {
	if m.pending {
		m.statDropped.Add(1)
	}
	m.pending = false
	m.running = false
	m.stopping = false
	if m.scheduler != nil {
		m.scheduler.Remove(m)
		m.scheduler = nil
	}
	m.log.Debug("buffered updates stopped")
}

// Tick implements engine.Task
func (m *BufferedMap) Tick(dt time.Duration) bool {
	if !m.running {
		return false
	}
	m.sinceSwap += dt

	if m.State() == StateIdle {
		if m.stopping {
			m.halt()
			return false
		}
		if !m.pending || (m.swapped && m.sinceSwap < m.opts.MinRefresh) {
			return true
		}
		m.beginBuild()
	}

	budget := m.carry + float64(m.opts.Rate)*dt.Seconds()
	n := int(budget)
	m.carry = budget - float64(n)
	if n < 1 {
		return true
	}

	start := time.Now()
	done, settled := m.relax.step(n)
	m.buildWork += time.Since(start)
	m.statSettled.Add(int64(settled))
	if !done {
		return true
	}

	m.swap()
	if m.stopping {
		m.halt()
		return false
	}
	return true
}

func (m *BufferedMap) beginBuild() {
	m.pending = false
	m.stale = false
	m.built = m.wanted
	m.carry = 0
	m.buildWork = 0

	back := 1 - m.active.Load()
	m.relax.begin(&m.fields[back], m.built)
	m.setState(StateBuilding)
	m.statBuilds.Add(1)

	m.log.WithFields(logrus.Fields{
		"destinations": len(m.built),
		"field":        back,
	}).Debug("build started")
}

func (m *BufferedMap) swap() {
	m.setState(StateSwapping)
	back := 1 - m.active.Load()
	m.active.Store(back)
	gen := m.generation.Add(1)

	m.sinceSwap = 0
	m.swapped = true
	m.statSwaps.Add(1)
	ms := float64(m.buildWork.Microseconds()) / 1000
	m.statBuildDur.Set(ms)
	m.statBuildMax.Max(ms)
	m.setState(StateIdle)

	m.log.WithFields(logrus.Fields{
		"generation": gen,
		"field":      back,
	}).Debug("field swapped")
}

// BuildNow relaxes the latest requested destinations to completion and swaps
// Any build in flight is discarded; intended for level load and tests
func (m *BufferedMap) BuildNow() {
	if m.State() == StateBuilding {
		m.relax.abort()
	}
	if m.wanted == nil {
		m.wanted = []*grid.Tile{}
	}
	m.beginBuild()
	start := time.Now()
	_, settled := m.relax.step(0)
	m.buildWork = time.Since(start)
	m.statSettled.Add(int64(settled))
	m.swap()
}

func (m *BufferedMap) setState(s BuildState) {
	m.state.Store(int32(s))
	m.statState.Store(s.String())
}

// DistanceAt reads the active field only
func (m *BufferedMap) DistanceAt(t *grid.Tile) int {
	return m.fields[m.active.Load()].At(t)
}

// State returns the current lifecycle state
func (m *BufferedMap) State() BuildState {
	return BuildState(m.state.Load())
}

// Generation returns the number of completed swaps
func (m *BufferedMap) Generation() uint64 {
	return m.generation.Load()
}

// Running reports whether the map is registered with a scheduler
func (m *BufferedMap) Running() bool {
	return m.running
}

// Pending reports whether a build is queued behind the current one
func (m *BufferedMap) Pending() bool {
	return m.pending
}

// Destinations returns the destination set of the active or in-flight build
func (m *BufferedMap) Destinations() []*grid.Tile {
	return slices.Clone(m.built)
}
