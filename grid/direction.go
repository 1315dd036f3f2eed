package grid

// Direction indexes the 8 planar neighbors of a tile
// Order: N=0, NE=1, E=2, SE=3, S=4, SW=5, W=6, NW=7
type Direction int8

const (
	DirN     Direction = 0
	DirNE    Direction = 1
	DirE     Direction = 2
	DirSE    Direction = 3
	DirS     Direction = 4
	DirSW    Direction = 5
	DirW     Direction = 6
	DirNW    Direction = 7
	DirCount Direction = 8
)

// DirVectors holds planar (dx, dy) offsets matching DirN..DirNW
var DirVectors = [DirCount][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Orthogonal lists the 4 cardinal directions in evaluation order
var Orthogonal = []Direction{DirN, DirE, DirS, DirW}

// All lists the 8 planar directions in evaluation order
var All = []Direction{DirN, DirNE, DirE, DirSE, DirS, DirSW, DirW, DirNW}

var dirNames = [DirCount]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Diagonal reports whether d moves on both planar axes
func (d Direction) Diagonal() bool {
	return d&1 == 1
}

// Opposite returns the direction pointing back
func (d Direction) Opposite() Direction {
	return (d + 4) % DirCount
}

func (d Direction) String() string {
	if d < 0 || d >= DirCount {
		return "?"
	}
	return dirNames[d]
}
