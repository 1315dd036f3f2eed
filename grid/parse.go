package grid

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/voxnav/core"
)

// Parse builds a grid from a textual heightmap
// Each row is a Y line, each rune an X column: '0'-'9' and 'a'-'z' give elevation 0-35,
// '#', '.' and ' ' leave the column empty. Leading/trailing blank lines are ignored
func Parse(heightmap string, cfg Config) (*Grid, error) {
	g := New(cfg)

	lines := strings.Split(strings.Trim(heightmap, "\n"), "\n")
	for y, line := range lines {
		line = strings.TrimRight(line, "\r")
		for x, r := range []rune(line) {
			z, ok, err := elevation(r)
			if err != nil {
				return nil, fmt.Errorf("grid: heightmap row %d col %d: %w", y, x, err)
			}
			if ok {
				g.AddTile(core.Coord{X: x, Y: y, Z: z})
			}
		}
	}
	return g, nil
}

// Flat builds a w×h grid at elevation 0
func Flat(w, h int, cfg Config) *Grid {
	g := New(cfg)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.AddTile(core.Coord{X: x, Y: y})
		}
	}
	return g
}

func elevation(r rune) (z int, ok bool, err error) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true, nil
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 10, true, nil
	case r == '#' || r == '.' || r == ' ':
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("invalid elevation rune %q", r)
}
