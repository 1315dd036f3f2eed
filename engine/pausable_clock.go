package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// PausableClock is simulation time: real elapsed time minus time spent paused
type PausableClock struct {
	mu  sync.RWMutex
	src TimeSource

	realStart time.Time

	paused      atomic.Bool
	pauseStart  time.Time
	totalPaused time.Duration
}

// NewPausableClock creates a clock over src; nil uses the system clock
func NewPausableClock(src TimeSource) *PausableClock {
	if src == nil {
		src = NewTimeProvider()
	}
	return &PausableClock{
		src:       src,
		realStart: src.Now(),
	}
}

// Now returns simulation time, frozen while paused
func (pc *PausableClock) Now() time.Time {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.paused.Load() {
		return pc.realStart.Add(pc.pauseStart.Sub(pc.realStart) - pc.totalPaused)
	}
	return pc.realStart.Add(pc.src.Now().Sub(pc.realStart) - pc.totalPaused)
}

// Elapsed returns simulation time since the clock was created
func (pc *PausableClock) Elapsed() time.Duration {
	return pc.Now().Sub(pc.realStart)
}

// RealTime returns the source time, unaffected by pause
func (pc *PausableClock) RealTime() time.Time {
	return pc.src.Now()
}

// Pause stops simulation time; no-op while paused
func (pc *PausableClock) Pause() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.paused.CompareAndSwap(false, true) {
		pc.pauseStart = pc.src.Now()
	}
}

// Resume continues simulation time; no-op while running
func (pc *PausableClock) Resume() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.paused.CompareAndSwap(true, false) {
		pc.totalPaused += pc.src.Now().Sub(pc.pauseStart)
		pc.pauseStart = time.Time{}
	}
}

// IsPaused returns current pause state
func (pc *PausableClock) IsPaused() bool {
	return pc.paused.Load()
}

// TotalPauseDuration returns cumulative pause time including a pause in progress
func (pc *PausableClock) TotalPauseDuration() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.totalPaused
	if pc.paused.Load() {
		total += pc.src.Now().Sub(pc.pauseStart)
	}
	return total
}
