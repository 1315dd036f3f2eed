package audio

import (
	"github.com/gopxl/beep"

	"github.com/lixenwraith/voxnav/movement"
	"github.com/lixenwraith/voxnav/parameter"
)

// Cue identifies a short notification sound
type Cue uint8

const (
	CueNone    Cue = iota
	CueArrived     // movement reached its goal
	CueBlocked     // no path or replanning gave up
	CueTick        // stopped or replaced
)

var cueNames = [...]string{"none", "arrived", "blocked", "tick"}

func (c Cue) String() string {
	if int(c) < len(cueNames) {
		return cueNames[c]
	}
	return "unknown"
}

// CueFor maps a movement outcome to its cue
func CueFor(r movement.FinishReason) Cue {
	switch r {
	case movement.FinishArrived:
		return CueArrived
	case movement.FinishNoPath, movement.FinishBlocked:
		return CueBlocked
	case movement.FinishStopped, movement.FinishReplaced:
		return CueTick
	default:
		return CueNone
	}
}

// Build returns a fresh streamer for c at the given master volume, nil for CueNone
func Build(c Cue, rate beep.SampleRate, volume float64) beep.Streamer {
	var s beep.Streamer
	switch c {
	case CueArrived:
		n1 := Shape(
			NewTone(parameter.ArriveNote1Freq, parameter.ArriveNote1Duration, WaveSine, rate),
			parameter.ArriveNote1Duration, parameter.ArriveAttack, parameter.ArriveNote1Duration/2, rate)
		n2 := Shape(
			NewTone(parameter.ArriveNote2Freq, parameter.ArriveNote2Duration, WaveSine, rate),
			parameter.ArriveNote2Duration, parameter.ArriveAttack, parameter.ArriveRelease, rate)
		s = beep.Seq(n1, n2)
	case CueBlocked:
		s = Shape(
			NewTone(parameter.BlockedFreq, parameter.BlockedDuration, WaveSaw, rate),
			parameter.BlockedDuration, parameter.BlockedAttack, parameter.BlockedRelease, rate)
	case CueTick:
		s = Shape(
			NewTone(parameter.TickFreq, parameter.TickDuration, WaveSquare, rate),
			parameter.TickDuration, parameter.TickAttack, parameter.TickRelease, rate)
	default:
		return nil
	}
	return gain(s, volume)
}
