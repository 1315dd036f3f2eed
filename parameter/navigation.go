package parameter

// Navigation - distance field
const (
	// UnreachableDistance is the sentinel stored for tiles no destination can reach
	// Much larger than any real hop count; movers treat it as "do not go this way"
	UnreachableDistance = 1<<30 - 1

	// StepCost is the relaxation cost of one orthogonal step
	StepCost = 1

	// BaseClimbHeight is the elevation delta a shared distance field allows per step
	BaseClimbHeight = 1

	// DefaultBuildRate is the buffered map relaxation rate in tiles per second
	DefaultBuildRate = 20000
)

// Navigation - pathfinder
const (
	// PathCacheSize bounds the number of cached query results before the cache is flushed
	PathCacheSize = 256

	// SearchHeapCapacity is the initial open-set capacity for a single search
	SearchHeapCapacity = 64
)
