package movement

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/voxnav/grid"
	"github.com/lixenwraith/voxnav/parameter"
)

// CommitMode selects when a mover's logical tile changes during a step
type CommitMode uint8

const (
	// CommitStep moves occupancy once the mover physically arrives
	CommitStep CommitMode = iota
	// CommitJump reserves the next tile as soon as the step starts
	CommitJump
)

func (c CommitMode) String() string {
	if c == CommitJump {
		return "jump"
	}
	return "step"
}

// ParseCommitMode accepts "step" or "jump"
func ParseCommitMode(s string) (CommitMode, error) {
	switch strings.ToLower(s) {
	case "", "step":
		return CommitStep, nil
	case "jump":
		return CommitJump, nil
	}
	return CommitStep, fmt.Errorf("unknown commit mode %q", s)
}

// Config is shared by both drivers
type Config struct {
	Speed          float32 // world units per second
	ClimbHeight    int     // max elevation delta per step
	Commit         CommitMode
	SingleAxis     bool    // resolve elevation and planar motion separately
	AvoidBacktrack bool    // field following: never return to the tile just left
	Clamp          float32 // arrival snap distance
}

// DefaultConfig returns parameter defaults with step commit
func DefaultConfig() Config {
	return Config{
		Speed:       parameter.DefaultMoverSpeed,
		ClimbHeight: parameter.BaseClimbHeight,
		Commit:      CommitStep,
		Clamp:       parameter.ArriveClamp,
	}
}

func (c Config) withDefaults() Config {
	if c.Speed <= 0 {
		c.Speed = parameter.DefaultMoverSpeed
	}
	if c.Clamp <= 0 {
		c.Clamp = parameter.ArriveClamp
	}
	if c.ClimbHeight < 0 {
		c.ClimbHeight = 0
	}
	return c
}

// FinishReason tells an onFinished callback why a movement ended
type FinishReason uint8

const (
	FinishArrived  FinishReason = iota // reached the destination or the field minimum
	FinishStopped                      // Stop was called
	FinishNoPath                       // no route at the time of the request
	FinishBlocked                      // replanning kept failing
	FinishReplaced                     // a newer SetDestination took over
)

var reasonNames = [...]string{"arrived", "stopped", "no-path", "blocked", "replaced"}

func (r FinishReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Result is delivered exactly once per movement
type Result struct {
	Reason FinishReason
	Tile   *grid.Tile // agent's tile when the movement ended
}

// satisfied reports whether standing on cur fulfils a request for dest
func satisfied(g *grid.Grid, cur, dest *grid.Tile, includeAdjacent bool) bool {
	if cur == nil || dest == nil {
		return false
	}
	return cur == dest || (includeAdjacent && g.Adjacent(cur, dest))
}
