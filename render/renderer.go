package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/navigation"
	"github.com/lixenwraith/voxnav/parameter"
)

// Glyphs
const (
	glyphEmpty       = ' '
	glyphBlocked     = '#'
	glyphUnreachable = '·'
	glyphDestination = 'X'
	glyphPath        = '.'
	glyphFar         = '~'
	glyphHigh        = '+'
)

// gridTop is the screen row of the first grid line; row 0 holds the title
const gridTop = 1

// AgentMark is one agent as the renderer sees it
type AgentMark struct {
	Tile     *grid.Tile
	Glyph    rune
	Active   bool
	Selected bool
}

// Frame is everything drawn in one pass besides the grid itself
type Frame struct {
	Title        string
	Destinations []*grid.Tile
	Path         []*grid.Tile
	Agents       []AgentMark
	Status       []string
}

// Renderer draws a top-down view of a grid: one cell per planar column, showing
// the column's top tile as elevation or as distance-field value
type Renderer struct {
	screen    tcell.Screen
	grid      *grid.Grid
	field     navigation.DistanceReader
	layer     grid.Layer
	showField bool
}

// New creates a renderer; field may be nil
func New(screen tcell.Screen, g *grid.Grid, field navigation.DistanceReader, layer grid.Layer) *Renderer {
	return &Renderer{screen: screen, grid: g, field: field, layer: layer, showField: field != nil}
}

// SetWorld swaps the grid and field after a reload
func (r *Renderer) SetWorld(g *grid.Grid, field navigation.DistanceReader) {
	r.grid = g
	r.field = field
	if field == nil {
		r.showField = false
	}
}

// ToggleField switches between elevation and distance view; returns the new mode
func (r *Renderer) ToggleField() bool {
	r.showField = !r.showField && r.field != nil
	return r.showField
}

// ShowingField reports whether distances are drawn
func (r *Renderer) ShowingField() bool { return r.showField }

// TileAt maps a screen cell back to the top tile of its column, nil outside the grid
func (r *Renderer) TileAt(sx, sy int) *grid.Tile {
	if r.grid == nil || r.grid.Len() == 0 {
		return nil
	}
	minX, minY, maxX, maxY := r.grid.Bounds()
	x, y := sx+minX, sy-gridTop+minY
	if x < minX || x > maxX || y < minY || y > maxY {
		return nil
	}
	return r.grid.Top(x, y)
}

// Draw clears the screen, draws the frame and shows it
func (r *Renderer) Draw(f Frame) {
	r.screen.Clear()
	w, h := r.screen.Size()

	r.text(0, 0, w, f.Title, tcell.StyleDefault.Bold(true))

	rows := 0
	if r.grid != nil && r.grid.Len() > 0 {
		rows = r.drawGrid(w, h)
		for _, t := range f.Path {
			r.mark(t, glyphPath, tcell.StyleDefault.Foreground(tcell.ColorAqua))
		}
		for _, t := range f.Destinations {
			r.mark(t, glyphDestination, tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))
		}
		for _, a := range f.Agents {
			r.mark(a.Tile, a.Glyph, agentStyle(a))
		}
	}

	y := gridTop + rows + 1
	for _, line := range f.Status {
		if y >= h {
			break
		}
		r.text(0, y, w, line, tcell.StyleDefault.Foreground(tcell.ColorSilver))
		y++
	}

	r.screen.Show()
}

// drawGrid paints every column inside the screen and returns the rows used
func (r *Renderer) drawGrid(w, h int) int {
	minX, minY, maxX, maxY := r.grid.Bounds()
	rows := 0
	for y := minY; y <= maxY; y++ {
		sy := gridTop + y - minY
		if sy >= h {
			break
		}
		rows++
		for x := minX; x <= maxX; x++ {
			sx := x - minX
			if sx >= w {
				break
			}
			ch, style := r.cell(r.grid.Top(x, y))
			r.screen.SetContent(sx, sy, ch, nil, style)
		}
	}
	return rows
}

// cell picks the glyph for a column's top tile
func (r *Renderer) cell(t *grid.Tile) (rune, tcell.Style) {
	if t == nil {
		return glyphEmpty, tcell.StyleDefault
	}
	if r.grid.IsOccupied(t, r.layer) {
		return glyphBlocked, tcell.StyleDefault.Foreground(tcell.ColorMaroon)
	}
	if r.showField {
		d := r.field.DistanceAt(t)
		return DistanceGlyph(d), distanceStyle(d)
	}
	return ElevationGlyph(t.Z()), elevationStyle(t.Z())
}

// mark overwrites the cell of t's column
func (r *Renderer) mark(t *grid.Tile, ch rune, style tcell.Style) {
	if t == nil {
		return
	}
	minX, minY, _, _ := r.grid.Bounds()
	r.screen.SetContent(t.X()-minX, gridTop+t.Y()-minY, ch, nil, style)
}

func (r *Renderer) text(x, y, w int, s string, style tcell.Style) {
	for _, ch := range s {
		if x >= w {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// DistanceGlyph renders a hop count in one cell: 0-9, then a-z, then '~'
func DistanceGlyph(d int) rune {
	switch {
	case d >= parameter.UnreachableDistance:
		return glyphUnreachable
	case d < 0:
		return glyphEmpty
	case d < 10:
		return rune('0' + d)
	case d < 36:
		return rune('a' + d - 10)
	default:
		return glyphFar
	}
}

// ElevationGlyph renders a tile height as a digit, '+' above 9
func ElevationGlyph(z int) rune {
	if z < 0 {
		return '-'
	}
	if z > 9 {
		return glyphHigh
	}
	return rune('0' + z)
}

func distanceStyle(d int) tcell.Style {
	if d >= parameter.UnreachableDistance {
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	// fade from green near a destination to blue far away
	v := int32(min(d, 36) * 7)
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 255-v, v))
}

func elevationStyle(z int) tcell.Style {
	v := int32(80 + min(max(z, 0), 10)*17)
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(v, v, v))
}

func agentStyle(a AgentMark) tcell.Style {
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	if !a.Active {
		style = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	}
	if a.Selected {
		style = style.Reverse(true)
	}
	return style
}
