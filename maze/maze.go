// Package maze generates braided grid mazes as voxnav scenarios
package maze

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/scenario"
)

// Config shapes a generated maze
type Config struct {
	Width, Height int // rounded down to odd, minimum 3

	// Braid is the chance a dead end is opened into a loop: 0 is a perfect maze
	Braid float64

	// WallHeight is the elevation of wall columns; anything above the climb height blocks
	WallHeight int

	Seed int64 // 0 picks one from the clock
}

// Maze is a generated layout; Walls is indexed [y][x]
type Maze struct {
	Walls      [][]bool
	Start, End core.Point
	Solution   []core.Point // shortest start-to-end route including both ends, nil if none
	Seed       int64

	wallHeight int
}

var steps = [4]core.Point{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// Generate carves a maze with a randomized depth-first walk, then braids it
func Generate(cfg Config) *Maze {
	w, h := odd(cfg.Width), odd(cfg.Height)
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	walls := make([][]bool, h)
	for y := range walls {
		walls[y] = make([]bool, w)
		for x := range walls[y] {
			walls[y][x] = true
		}
	}

	m := &Maze{
		Walls: walls,
		Start: core.Point{X: 1, Y: 1},
		End:   core.Point{X: w - 2, Y: h - 2},
		Seed:  seed,

		wallHeight: cfg.WallHeight,
	}
	if m.wallHeight <= 0 {
		m.wallHeight = 3
	}
	m.carve(rng)
	if cfg.Braid > 0 {
		m.braid(cfg.Braid, rng)
	}
	m.Solution = m.solve()
	return m
}

// carve opens rooms at odd coordinates and knocks through the wall between visits
func (m *Maze) carve(rng *rand.Rand) {
	stack := []core.Point{m.Start}
	m.open(m.Start)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		var options [4]core.Point
		n := 0
		for _, d := range steps {
			next := core.Point{X: cur.X + 2*d.X, Y: cur.Y + 2*d.Y}
			if m.interior(next) && m.wall(next) {
				options[n] = d
				n++
			}
		}
		if n == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		d := options[rng.Intn(n)]
		m.open(core.Point{X: cur.X + d.X, Y: cur.Y + d.Y})
		next := core.Point{X: cur.X + 2*d.X, Y: cur.Y + 2*d.Y}
		m.open(next)
		stack = append(stack, next)
	}
}

// braid opens one wall of some dead ends, never creating a 2×2 open square or a
// free-standing wall
func (m *Maze) braid(chance float64, rng *rand.Rand) {
	for y := 1; y < len(m.Walls)-1; y += 2 {
		for x := 1; x < len(m.Walls[0])-1; x += 2 {
			room := core.Point{X: x, Y: y}
			if m.exits(room) != 1 || rng.Float64() >= chance {
				continue
			}

			var options [4]core.Point
			n := 0
			for _, d := range steps {
				between := core.Point{X: x + d.X, Y: y + d.Y}
				beyond := core.Point{X: x + 2*d.X, Y: y + 2*d.Y}
				if m.inside(beyond) && !m.wall(beyond) && m.wall(between) && m.safeToOpen(between) {
					options[n] = between
					n++
				}
			}
			if n > 0 {
				m.open(options[rng.Intn(n)])
			}
		}
	}
}

// safeToOpen rejects openings that would form an open 2×2 block or orphan a wall
func (m *Maze) safeToOpen(p core.Point) bool {
	for _, q := range [4][2]int{{-1, -1}, {0, -1}, {-1, 0}, {0, 0}} {
		ox, oy := p.X+q[0], p.Y+q[1]
		open := 0
		for _, c := range [4]core.Point{{X: ox, Y: oy}, {X: ox + 1, Y: oy}, {X: ox, Y: oy + 1}, {X: ox + 1, Y: oy + 1}} {
			if c == p || (m.inside(c) && !m.wall(c)) {
				open++
			}
		}
		if open == 4 {
			return false
		}
	}

	for _, d := range steps {
		nb := core.Point{X: p.X + d.X, Y: p.Y + d.Y}
		if !m.inside(nb) || !m.wall(nb) {
			continue
		}
		links := 0
		for _, d2 := range steps {
			c := core.Point{X: nb.X + d2.X, Y: nb.Y + d2.Y}
			if c != p && m.inside(c) && m.wall(c) {
				links++
			}
		}
		if links == 0 {
			return false
		}
	}
	return true
}

// solve returns the breadth-first shortest route from Start to End
func (m *Maze) solve() []core.Point {
	prev := map[core.Point]core.Point{m.Start: m.Start}
	queue := []core.Point{m.Start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == m.End {
			var route []core.Point
			for p := cur; p != m.Start; p = prev[p] {
				route = append(route, p)
			}
			route = append(route, m.Start)
			for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
				route[i], route[j] = route[j], route[i]
			}
			return route
		}
		for _, d := range steps {
			next := core.Point{X: cur.X + d.X, Y: cur.Y + d.Y}
			if _, seen := prev[next]; seen || !m.inside(next) || m.wall(next) {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}

func (m *Maze) exits(p core.Point) int {
	n := 0
	for _, d := range steps {
		if nb := (core.Point{X: p.X + d.X, Y: p.Y + d.Y}); m.inside(nb) && !m.wall(nb) {
			n++
		}
	}
	return n
}

func (m *Maze) inside(p core.Point) bool {
	return p.Y >= 0 && p.Y < len(m.Walls) && p.X >= 0 && p.X < len(m.Walls[0])
}

// interior excludes the outer ring
func (m *Maze) interior(p core.Point) bool {
	return p.Y > 0 && p.Y < len(m.Walls)-1 && p.X > 0 && p.X < len(m.Walls[0])-1
}

func (m *Maze) wall(p core.Point) bool { return m.Walls[p.Y][p.X] }
func (m *Maze) open(p core.Point)      { m.Walls[p.Y][p.X] = false }

// Heightmap renders passages at elevation 0 and walls at wallHeight (clamped to 0-9)
func (m *Maze) Heightmap(wallHeight int) string {
	wallRune := rune('0' + min(max(wallHeight, 0), 9))
	var b strings.Builder
	for _, row := range m.Walls {
		for _, w := range row {
			if w {
				b.WriteRune(wallRune)
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Scenario wraps the maze as a level: a path agent solves it from Start to End
// and a field agent descends toward a destination off every shortest solution
// route, so the two never contest a tile
func (m *Maze) Scenario() *scenario.Scenario {
	end := scenario.CoordSpec{X: m.End.X, Y: m.End.Y}
	sc := &scenario.Scenario{
		Name:         fmt.Sprintf("maze-%dx%d-%d", len(m.Walls[0]), len(m.Walls), m.Seed),
		Heightmap:    m.Heightmap(m.wallHeight),
		Destinations: []scenario.CoordSpec{end},
		Agents: []scenario.AgentSpec{{
			Name:   "solver",
			Start:  scenario.CoordSpec{X: m.Start.X, Y: m.Start.Y},
			Driver: scenario.DriverPath,
			Goal:   &end,
		}},
	}
	if from, to, ok := m.drift(); ok {
		sc.Destinations = []scenario.CoordSpec{{X: to.X, Y: to.Y}}
		sc.Agents = append(sc.Agents, scenario.AgentSpec{
			Name:   "drifter",
			Start:  scenario.CoordSpec{X: from.X, Y: from.Y},
			Driver: scenario.DriverField,
		})
	}
	return sc
}

// driftStarts bounds how many start cells drift tries
const driftStarts = 8

// drift picks a field agent route whose every shortest walk stays clear of every
// shortest Start-to-End walk; starts are tried nearest the top-right corner first
func (m *Maze) drift() (from, to core.Point, ok bool) {
	if m.Solution == nil {
		return from, to, false
	}
	route := m.corridor(m.Start, m.End)
	for _, s := range m.byCorner(route) {
		dist := m.distances(s, route)
		var dests []core.Point
		for y, row := range dist {
			for x, d := range row {
				if d > 0 {
					dests = append(dests, core.Point{X: x, Y: y})
				}
			}
		}
		slices.SortStableFunc(dests, func(a, b core.Point) int {
			return cmp.Compare(dist[b.Y][b.X], dist[a.Y][a.X])
		})
		for _, d := range dests {
			if !m.crosses(m.corridor(s, d), route) {
				return s, d, true
			}
		}
	}
	return from, to, false
}

// byCorner lists open cells outside skip ordered by distance to the top-right corner
func (m *Maze) byCorner(skip [][]bool) []core.Point {
	corner := core.Point{X: len(m.Walls[0]) - 1, Y: 0}
	var cells []core.Point
	for y, row := range m.Walls {
		for x, w := range row {
			if !w && !skip[y][x] {
				cells = append(cells, core.Point{X: x, Y: y})
			}
		}
	}
	slices.SortStableFunc(cells, func(a, b core.Point) int {
		return cmp.Compare(core.Abs(a.X-corner.X)+core.Abs(a.Y-corner.Y), core.Abs(b.X-corner.X)+core.Abs(b.Y-corner.Y))
	})
	return cells[:min(len(cells), driftStarts)]
}

// distances is the breadth-first step count from p over open cells outside skip,
// -1 where unreachable; skip may be nil
func (m *Maze) distances(p core.Point, skip [][]bool) [][]int {
	dist := make([][]int, len(m.Walls))
	for y := range dist {
		dist[y] = make([]int, len(m.Walls[y]))
		for x := range dist[y] {
			dist[y][x] = -1
		}
	}
	dist[p.Y][p.X] = 0
	queue := []core.Point{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range steps {
			next := core.Point{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !m.inside(next) || m.wall(next) || dist[next.Y][next.X] >= 0 {
				continue
			}
			if skip != nil && skip[next.Y][next.X] {
				continue
			}
			dist[next.Y][next.X] = dist[cur.Y][cur.X] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// corridor marks every cell on some shortest walk between a and b
func (m *Maze) corridor(a, b core.Point) [][]bool {
	da, db := m.distances(a, nil), m.distances(b, nil)
	length := da[b.Y][b.X]
	marks := make([][]bool, len(m.Walls))
	for y := range marks {
		marks[y] = make([]bool, len(m.Walls[y]))
		if length < 0 {
			continue
		}
		for x := range marks[y] {
			marks[y][x] = da[y][x] >= 0 && db[y][x] >= 0 && da[y][x]+db[y][x] == length
		}
	}
	return marks
}

func (m *Maze) crosses(a, b [][]bool) bool {
	for y := range a {
		for x := range a[y] {
			if a[y][x] && b[y][x] {
				return true
			}
		}
	}
	return false
}

func odd(n int) int {
	if n < 3 {
		return 3
	}
	return n - (1 - n%2)
}

// Source wraps Scenario for callers that load levels through scenario.Source
func (m *Maze) Source() *scenario.Source {
	return &scenario.Source{Scenario: m.Scenario()}
}

// ParseSize reads a "WxH" flag value
func ParseSize(s string) (w, h int, err error) {
	if _, err = fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("maze: size %q: want WxH", s)
	}
	if w < 3 || h < 3 {
		return 0, 0, fmt.Errorf("maze: size %q: minimum is 3x3", s)
	}
	return w, h, nil
}
