package parameter

import "time"

// Audio hardware settings
const (
	AudioSampleRate = 44100

	// AudioBufferDuration determines speaker latency
	AudioBufferDuration = 100 * time.Millisecond

	// MinCueGap suppresses cue floods when many agents finish in one tick
	MinCueGap = 60 * time.Millisecond

	// DefaultCueVolume is the master gain in [0, 1]
	DefaultCueVolume = 0.6
)

// Arrival cue: rising two-note chime
const (
	ArriveNote1Freq     = 987.77
	ArriveNote2Freq     = 1318.51
	ArriveNote1Duration = 70 * time.Millisecond
	ArriveNote2Duration = 220 * time.Millisecond
	ArriveAttack        = 5 * time.Millisecond
	ArriveRelease       = 150 * time.Millisecond
)

// Blocked cue: low buzz
const (
	BlockedFreq     = 110.0
	BlockedDuration = 120 * time.Millisecond
	BlockedAttack   = 5 * time.Millisecond
	BlockedRelease  = 40 * time.Millisecond
)

// Stop/replace cue: short tick
const (
	TickFreq     = 660.0
	TickDuration = 40 * time.Millisecond
	TickAttack   = 2 * time.Millisecond
	TickRelease  = 20 * time.Millisecond
)
