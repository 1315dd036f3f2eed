package parameter

// Movement drivers
const (
	// DefaultMoverSpeed is the interpolation speed in world units per second
	DefaultMoverSpeed = 4.0

	// ArriveClamp is the distance under which a mover snaps onto the target tile
	ArriveClamp = 0.05

	// MaxReplanAttempts is how many consecutive failed replans a path follower tolerates
	// before giving up with FinishBlocked
	MaxReplanAttempts = 8
)

// World geometry
const (
	// DefaultCellSize is the planar world size of one tile
	DefaultCellSize = 1.0

	// DefaultLayerHeight is the world height of one elevation step
	DefaultLayerHeight = 0.5
)
