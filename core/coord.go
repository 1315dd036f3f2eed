package core

import "fmt"

// Coord is an integer voxel coordinate: (X, Y) planar, Z elevation
type Coord struct {
	X, Y, Z int
}

// Planar returns the column key of the coordinate
func (c Coord) Planar() Point {
	return Point{X: c.X, Y: c.Y}
}

// Add returns c offset by (dx, dy, dz)
func (c Coord) Add(dx, dy, dz int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Manhattan returns the planar Manhattan distance, ignoring elevation
func (c Coord) Manhattan(o Coord) int {
	return Abs(c.X-o.X) + Abs(c.Y-o.Y)
}

// Chebyshev returns the planar Chebyshev distance, ignoring elevation
func (c Coord) Chebyshev(o Coord) int {
	return max(Abs(c.X-o.X), Abs(c.Y-o.Y))
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Point represents a 2D planar coordinate
type Point struct {
	X, Y int
}

// Abs returns the absolute value of an int
func Abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
