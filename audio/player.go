package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/engine"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

// Sink consumes a finished streamer; speaker.Play in production
type Sink func(beep.Streamer)

// Player plays cues with a minimum gap between them
// Safe for concurrent use; a Player that was never opened drops every cue
type Player struct {
	rate   beep.SampleRate
	clock  engine.TimeSource
	sink   Sink
	opened bool
	device bool

	mu     sync.Mutex
	last   time.Time
	volume float64

	muted atomic.Bool

	statPlayed  *atomic.Int64
	statDropped *atomic.Int64

	log *logrus.Entry
}

// NewPlayer creates a closed player; call Open for the speaker or Attach for a custom sink
func NewPlayer(volume float64, clock engine.TimeSource, reg *status.Registry) *Player {
	if clock == nil {
		clock = engine.NewTimeProvider()
	}
	reg = status.OrNew(reg)
	return &Player{
		rate:        beep.SampleRate(parameter.AudioSampleRate),
		clock:       clock,
		volume:      clampVolume(volume),
		statPlayed:  reg.Ints.Get("audio.played"),
		statDropped: reg.Ints.Get("audio.dropped"),
		log:         logger.For("audio"),
	}
}

// Open initializes the speaker. Failure leaves the player silent
func (p *Player) Open() error {
	if p.opened {
		return nil
	}
	if err := speaker.Init(p.rate, p.rate.N(parameter.AudioBufferDuration)); err != nil {
		return fmt.Errorf("audio: speaker init: %w", err)
	}
	p.device = true
	p.Attach(func(s beep.Streamer) { speaker.Play(s) })
	p.log.Debug("speaker initialized")
	return nil
}

// Attach routes cues to sink without touching the speaker
func (p *Player) Attach(sink Sink) {
	p.sink = sink
	p.opened = true
}

// Close releases the speaker if Open initialized it
func (p *Player) Close() {
	if !p.opened {
		return
	}
	p.opened = false
	p.sink = nil
	if p.device {
		p.device = false
		speaker.Close()
	}
}

// Play queues c; returns false when muted, closed, or inside the gap window
func (p *Player) Play(c Cue) bool {
	if !p.opened || p.muted.Load() || c == CueNone {
		p.statDropped.Add(1)
		return false
	}

	now := p.clock.Now()
	p.mu.Lock()
	if !p.last.IsZero() && now.Sub(p.last) < parameter.MinCueGap {
		p.mu.Unlock()
		p.statDropped.Add(1)
		return false
	}
	p.last = now
	vol := p.volume
	p.mu.Unlock()

	p.sink(Build(c, p.rate, vol))
	p.statPlayed.Add(1)
	return true
}

// ToggleMute flips mute and returns the new state
func (p *Player) ToggleMute() bool {
	for {
		old := p.muted.Load()
		if p.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Muted reports the mute state
func (p *Player) Muted() bool { return p.muted.Load() }

// SetVolume sets the master gain, clamped to [0, 1]
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = clampVolume(v)
	p.mu.Unlock()
}

// Volume returns the master gain
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Rate returns the sample rate cues are rendered at
func (p *Player) Rate() beep.SampleRate { return p.rate }

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
