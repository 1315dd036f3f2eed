package sim

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/movement"
	"github.com/lixenwraith/voxnav/navigation"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/render"
	"github.com/lixenwraith/voxnav/scenario"
	"github.com/lixenwraith/voxnav/status"
)

// Driver is the control surface shared by both movement drivers
type Driver interface {
	SetDestination(dest *grid.Tile, includeAdjacent bool, onFinished func(movement.Result))
	Stop()
	Active() bool
}

// Agent is a spawned scenario agent and its driver
type Agent struct {
	Plan   scenario.AgentPlan
	Body   *movement.Agent
	Driver Driver

	path *movement.PathFollower // nil for field drivers

	Last movement.Result
	Runs int // finished movements
}

// Name returns the scenario name of the agent
func (a *Agent) Name() string { return a.Plan.Name }

// FieldDriven reports whether the agent descends the shared field
func (a *Agent) FieldDriven() bool { return a.path == nil }

// Session is one loaded scenario running on a scheduler
// Every method except the constructor must run on the scheduler's timeline
type Session struct {
	src   *scenario.Source
	world *scenario.World
	sched *engine.Scheduler

	pf       *navigation.Pathfinder
	field    navigation.DistanceReader
	nav      *navigation.NavigationMap // exactly one of nav and buffered is set
	buffered *navigation.BufferedMap

	script *scenario.DestinationScript
	dests  []*grid.Tile

	agents   []*Agent
	selected int
	blocks   map[*grid.Tile]grid.EntityID // obstacles placed at runtime

	// Finished, when set, observes every movement outcome
	Finished func(a *Agent, r movement.Result)

	log             *logrus.Entry
	statArrived     *atomic.Int64
	statFailed      *atomic.Int64
	statScriptRuns  *atomic.Int64
	statScriptErrs  *atomic.Int64
	statActive      *atomic.Int64
	statDestination *atomic.Int64
}

// New builds the world of src, spawns its agents and registers everything on sched
// Agents stay idle until Dispatch
func New(src *scenario.Source, sched *engine.Scheduler, reg *status.Registry) (*Session, error) {
	reg = status.OrNew(reg)

	world, err := src.Build(reg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		src:             src,
		world:           world,
		sched:           sched,
		dests:           world.Destinations,
		blocks:          make(map[*grid.Tile]grid.EntityID),
		log:             logger.For("sim").WithField("scenario", world.Name),
		statArrived:     reg.Ints.Get("sim.arrived"),
		statFailed:      reg.Ints.Get("sim.failed"),
		statScriptRuns:  reg.Ints.Get("sim.script.runs"),
		statScriptErrs:  reg.Ints.Get("sim.script.errors"),
		statActive:      reg.Ints.Get("sim.agents.active"),
		statDestination: reg.Ints.Get("sim.destinations"),
	}
	s.statDestination.Store(int64(len(s.dests)))

	if data, err := src.LoadScript(); err != nil {
		return nil, err
	} else if data != nil {
		if s.script, err = scenario.CompileDestinationScript(src.ScriptPath, data); err != nil {
			return nil, err
		}
	}

	s.pf = navigation.NewPathfinder(world.Grid, world.PathOptions)
	if world.Buffered {
		s.buffered = navigation.NewBufferedMap(world.Grid, world.MapOptions)
		s.buffered.UpdateDestinations(s.dests)
		s.buffered.BuildNow()
		s.buffered.Start(sched)
		s.field = s.buffered
	} else {
		s.nav = navigation.NewNavigationMap(world.Grid, world.MapOptions)
		s.nav.Update(s.dests)
		s.field = s.nav
	}

	for _, plan := range world.Agents {
		body, ok := movement.NewAgent(world.Grid, plan.Start, plan.Layer)
		if !ok {
			s.Close()
			return nil, fmt.Errorf("sim: agent %s: start %s is occupied", plan.Name, plan.Start)
		}
		a := &Agent{Plan: plan, Body: body}
		if plan.Driver == scenario.DriverField {
			a.Driver = movement.NewFieldFollower(world.Grid, s.field, body, plan.Config, sched, reg)
		} else {
			a.path = movement.NewPathFollower(world.Grid, s.pf, body, plan.Config, sched, reg)
			a.Driver = a.path
		}
		s.agents = append(s.agents, a)
	}

	s.log.WithFields(logrus.Fields{
		"tiles":    world.Grid.Len(),
		"agents":   len(s.agents),
		"buffered": world.Buffered,
		"script":   s.script != nil,
	}).Info("session loaded")
	return s, nil
}

// Close unregisters every task and releases agent occupancy
// Movements in progress end without callbacks
func (s *Session) Close() {
	for _, a := range s.agents {
		if t, ok := a.Driver.(engine.Task); ok {
			s.sched.Remove(t)
		}
		a.Body.Release(s.world.Grid)
	}
	s.agents = nil
	if s.buffered != nil {
		s.buffered.Stop(navigation.StopImmediate)
		s.buffered.Close()
	}
	if s.nav != nil {
		s.nav.Close()
	}
	s.pf.Close()
	s.statActive.Store(0)
}

// Dispatch starts every agent's scenario movement
// Path agents without a goal stay idle
func (s *Session) Dispatch() {
	for _, a := range s.agents {
		s.dispatch(a)
	}
	s.countActive()
}

func (s *Session) dispatch(a *Agent) {
	if !a.FieldDriven() && a.Plan.Goal == nil {
		return
	}
	a.Driver.SetDestination(a.Plan.Goal, a.Plan.IncludeAdjacent, s.finished(a))
}

func (s *Session) finished(a *Agent) func(movement.Result) {
	return func(r movement.Result) {
		a.Last = r
		a.Runs++
		switch r.Reason {
		case movement.FinishArrived:
			s.statArrived.Add(1)
		case movement.FinishNoPath, movement.FinishBlocked:
			s.statFailed.Add(1)
		}
		s.log.WithFields(logrus.Fields{
			"agent":  a.Name(),
			"reason": r.Reason,
			"tile":   r.Tile,
		}).Debug("movement finished")
		if s.Finished != nil {
			s.Finished(a, r)
		}
	}
}

// OnTick is an engine.TickHook: runs the destination script on its cadence
func (s *Session) OnTick(tick uint64, _ time.Duration) {
	if s.script != nil && tick%parameter.ScriptEvalTicks == 0 {
		s.runScript(tick)
	}
	s.countActive()
}

func (s *Session) runScript(tick uint64) {
	minX, minY, maxX, maxY := s.world.Grid.Bounds()
	positions := make([]core.Point, len(s.agents))
	for i, a := range s.agents {
		positions[i] = a.Body.Tile.Coord.Planar()
	}

	s.statScriptRuns.Add(1)
	points, err := s.script.Eval(context.Background(), tick, maxX-minX+1, maxY-minY+1, positions)
	if err != nil {
		s.statScriptErrs.Add(1)
		s.log.WithError(err).Warn("destination script failed")
		return
	}
	dests := s.world.Resolve(points)
	if !slices.Equal(dests, s.dests) {
		s.SetDestinations(dests)
	}
}

// SetDestinations replaces the shared field goals and restarts idle field agents
func (s *Session) SetDestinations(dests []*grid.Tile) {
	s.dests = slices.Clone(dests)
	s.statDestination.Store(int64(len(dests)))
	if s.buffered != nil {
		s.buffered.UpdateDestinations(s.dests)
	} else {
		s.nav.Update(s.dests)
	}
	for _, a := range s.agents {
		if a.FieldDriven() && a.Plan.Goal == nil && !a.Driver.Active() {
			s.dispatch(a)
		}
	}
	s.log.WithField("count", len(dests)).Debug("destinations changed")
}

// Send moves the selected agent: path agents get their own goal, field agents
// move the shared destinations to t
func (s *Session) Send(t *grid.Tile) {
	a := s.Selected()
	if a == nil || t == nil {
		return
	}
	if a.FieldDriven() {
		s.SetDestinations([]*grid.Tile{t})
		return
	}
	a.Driver.SetDestination(t, a.Plan.IncludeAdjacent, s.finished(a))
}

// StopSelected stops the selected agent's movement
func (s *Session) StopSelected() {
	if a := s.Selected(); a != nil {
		a.Driver.Stop()
	}
}

// SelectNext cycles the selection and returns the new agent
func (s *Session) SelectNext() *Agent {
	if len(s.agents) == 0 {
		return nil
	}
	s.selected = (s.selected + 1) % len(s.agents)
	return s.agents[s.selected]
}

// Selected returns the selected agent, nil when the scenario has none
func (s *Session) Selected() *Agent {
	if s.selected >= len(s.agents) {
		return nil
	}
	return s.agents[s.selected]
}

// ToggleObstacle places or removes a runtime obstacle on t's ground layer
// Returns false when t is held by something the session did not place
func (s *Session) ToggleObstacle(t *grid.Tile) bool {
	if t == nil {
		return false
	}
	g := s.world.Grid
	if id, ok := s.blocks[t]; ok {
		if cur, held := g.Occupant(t, grid.LayerGround); held && cur == id {
			g.ClearOccupant(t, grid.LayerGround)
		}
		delete(s.blocks, t)
		return true
	}
	id := grid.NewEntityID()
	if !g.SetOccupant(t, grid.LayerGround, id) {
		return false
	}
	s.blocks[t] = id
	return true
}

func (s *Session) countActive() {
	n := 0
	for _, a := range s.agents {
		if a.Driver.Active() {
			n++
		}
	}
	s.statActive.Store(int64(n))
}

// Idle reports whether no agent is moving
func (s *Session) Idle() bool {
	for _, a := range s.agents {
		if a.Driver.Active() {
			return false
		}
	}
	return true
}

// Frame collects the render marks for the current state
func (s *Session) Frame() render.Frame {
	f := render.Frame{Destinations: slices.Clone(s.dests)}
	for i, a := range s.agents {
		f.Agents = append(f.Agents, render.AgentMark{
			Tile:     a.Body.Tile,
			Glyph:    glyph(a.Name(), i),
			Active:   a.Driver.Active(),
			Selected: i == s.selected,
		})
	}
	if a := s.Selected(); a != nil {
		if a.path != nil {
			f.Path = a.path.Remaining()
		}
		last := "-"
		if a.Runs > 0 {
			last = a.Last.Reason.String()
		}
		f.Status = append(f.Status, fmt.Sprintf("[%s] %s driver=%s active=%t last=%s runs=%d",
			a.Name(), a.Body.Tile, a.Plan.Driver, a.Driver.Active(), last, a.Runs))
	}
	return f
}

// glyph is the upper-cased first letter of name, or the agent index
func glyph(name string, i int) rune {
	if r, _ := utf8.DecodeRuneInString(name); r != utf8.RuneError && unicode.IsLetter(r) {
		return unicode.ToUpper(r)
	}
	return rune('0' + i%10)
}

// Agents returns the spawned agents in scenario order
func (s *Session) Agents() []*Agent { return s.agents }

// Destinations returns the current shared field goals
func (s *Session) Destinations() []*grid.Tile { return s.dests }

// Grid returns the live grid
func (s *Session) Grid() *grid.Grid { return s.world.Grid }

// Field returns the distance reader field agents follow
func (s *Session) Field() navigation.DistanceReader { return s.field }

// Layer returns the occupancy layer the shared field is computed on
func (s *Session) Layer() grid.Layer { return s.world.MapOptions.Layer }

// Name returns the scenario name
func (s *Session) Name() string { return s.world.Name }

// Source returns what the session was loaded from
func (s *Session) Source() *scenario.Source { return s.src }

// Pathfinder returns the shared pathfinder
func (s *Session) Pathfinder() *navigation.Pathfinder { return s.pf }
