package movement

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/voxnav/grid"
)

// Advance moves pos toward target by at most dist world units
// With singleAxis, elevation is resolved first when the target is higher or pos is
// already planar-aligned within clamp; otherwise planar motion comes first
// Leftover distance after finishing the first leg carries into the second
func Advance(pos, target mgl32.Vec3, dist, clamp float32, singleAxis bool) mgl32.Vec3 {
	if dist <= 0 {
		return pos
	}
	delta := target.Sub(pos)

	if !singleAxis {
		l := delta.Len()
		if l <= dist {
			return target
		}
		return pos.Add(delta.Mul(dist / l))
	}

	planar := mgl32.Vec3{delta.X(), delta.Y(), 0}
	vertical := mgl32.Vec3{0, 0, delta.Z()}

	legs := [2]mgl32.Vec3{planar, vertical}
	if delta.Z() > 0 || planar.Len() <= clamp {
		legs = [2]mgl32.Vec3{vertical, planar}
	}

	for _, leg := range legs {
		l := leg.Len()
		if l == 0 {
			continue
		}
		if dist >= l {
			pos = pos.Add(leg)
			dist -= l
			continue
		}
		return pos.Add(leg.Mul(dist / l))
	}
	return target
}

// mover is the per-step state shared by both drivers
type mover struct {
	grid  *grid.Grid
	agent *Agent
	cfg   Config

	source *grid.Tile // tile the current step left
	target *grid.Tile // tile the current step heads to, nil between steps
}

func (m *mover) stepping() bool {
	return m.target != nil
}

// blocked reports whether t is unusable as the next tile for this agent
func (m *mover) blocked(t *grid.Tile) bool {
	if t == nil {
		return true
	}
	cur, ok := m.grid.Occupant(t, m.agent.Layer)
	if !ok {
		return m.grid.IsOccupied(t, m.agent.Layer) // removed tile
	}
	return cur != m.agent.ID
}

// legal reports whether a step from cur to next is allowed now
func (m *mover) legal(cur, next *grid.Tile) bool {
	return !m.blocked(next) && grid.ElevationDelta(cur, next) <= m.cfg.ClimbHeight
}

// begin starts a step toward next; jump commit reserves next immediately
func (m *mover) begin(next *grid.Tile) bool {
	if m.blocked(next) {
		return false
	}
	if m.cfg.Commit == CommitJump {
		if !m.grid.MoveOccupant(m.agent.Tile, next, m.agent.Layer, m.agent.ID) {
			return false
		}
		m.source = m.agent.Tile
		m.agent.Tile = next
	} else {
		m.source = m.agent.Tile
	}
	m.target = next
	return true
}

// retreat turns a step-commit mover back to the tile it still holds
func (m *mover) retreat() {
	m.target = m.agent.Tile
}

// contested reports whether a step-commit target was taken by someone else mid-step
func (m *mover) contested() bool {
	return m.cfg.Commit == CommitStep && m.target != m.agent.Tile && m.blocked(m.target)
}

// advance interpolates toward target; returns true once the step is complete
func (m *mover) advance(dt time.Duration) bool {
	goal := m.grid.WorldPosition(m.target)
	dist := m.cfg.Speed * float32(dt.Seconds())
	m.agent.Position = Advance(m.agent.Position, goal, dist, m.cfg.Clamp, m.cfg.SingleAxis)

	if m.agent.Position.Sub(goal).Len() > m.cfg.Clamp {
		return false
	}
	m.agent.Position = goal

	if m.cfg.Commit == CommitStep && m.target != m.agent.Tile {
		if !m.grid.MoveOccupant(m.agent.Tile, m.target, m.agent.Layer, m.agent.ID) {
			m.retreat()
			return false
		}
		m.source = m.agent.Tile
		m.agent.Tile = m.target
	}
	m.target = nil
	return true
}

// Target returns the tile of the step in progress, nil between steps
func (m *mover) Target() *grid.Tile {
	return m.target
}
