package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/voxnav/core"
	"github.com/lixenwraith/voxnav/logger"
	"github.com/lixenwraith/voxnav/parameter"
	"github.com/lixenwraith/voxnav/status"
)

// TickHook runs after the scheduler tick, on the clock goroutine
type TickHook func(tick uint64, dt time.Duration)

// ClockScheduler drives a Scheduler at a fixed tick on its own goroutine
// Each tick: drain posted commands, tick every task, run hooks
// Everything it runs shares one timeline; other goroutines reach it through Post
type ClockScheduler struct {
	sched    *Scheduler
	clock    *PausableClock
	commands *CommandQueue

	// Tick configuration
	tickInterval     time.Duration
	nextTickDeadline time.Time

	tickCount atomic.Uint64

	hooksMu sync.RWMutex
	hooks   []TickHook

	// Control channels
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	log          *logrus.Entry
	statTicks    *atomic.Int64
	statCommands *atomic.Int64
	statLate     *atomic.Int64
}

// NewClockScheduler creates a clock scheduler; interval <= 0 uses parameter.TickInterval
func NewClockScheduler(sched *Scheduler, clock *PausableClock, interval time.Duration, reg *status.Registry) *ClockScheduler {
	if interval <= 0 {
		interval = parameter.TickInterval
	}
	if clock == nil {
		clock = NewPausableClock(nil)
	}
	reg = status.OrNew(reg)

	return &ClockScheduler{
		sched:        sched,
		clock:        clock,
		commands:     NewCommandQueue(),
		tickInterval: interval,
		stopChan:     make(chan struct{}),
		log:          logger.For("clock"),
		statTicks:    reg.Ints.Get("engine.ticks"),
		statCommands: reg.Ints.Get("engine.commands"),
		statLate:     reg.Ints.Get("engine.late_ticks"),
	}
}

// Scheduler returns the driven task scheduler
func (cs *ClockScheduler) Scheduler() *Scheduler {
	return cs.sched
}

// Clock returns the simulation clock
func (cs *ClockScheduler) Clock() *PausableClock {
	return cs.clock
}

// TickInterval returns the fixed step passed to tasks
func (cs *ClockScheduler) TickInterval() time.Duration {
	return cs.tickInterval
}

// TickCount returns ticks processed so far
func (cs *ClockScheduler) TickCount() uint64 {
	return cs.tickCount.Load()
}

// Post queues cmd to run at the start of the next tick; safe from any goroutine
func (cs *ClockScheduler) Post(cmd Command) {
	cs.commands.Push(cmd)
}

// OnTick registers a hook; safe from any goroutine
func (cs *ClockScheduler) OnTick(h TickHook) {
	cs.hooksMu.Lock()
	cs.hooks = append(cs.hooks, h)
	cs.hooksMu.Unlock()
}

// Pause freezes simulation time; commands still run so the timeline stays responsive
func (cs *ClockScheduler) Pause() {
	cs.clock.Pause()
}

// Resume continues after Pause
func (cs *ClockScheduler) Resume() {
	cs.clock.Resume()
}

// IsPaused reports pause state
func (cs *ClockScheduler) IsPaused() bool {
	return cs.clock.IsPaused()
}

// Running reports whether the loop goroutine is active
func (cs *ClockScheduler) Running() bool {
	return cs.running.Load()
}

// Start begins the loop; no-op if already running or stopped
func (cs *ClockScheduler) Start() {
	select {
	case <-cs.stopChan:
		return
	default:
	}
	if cs.running.CompareAndSwap(false, true) {
		cs.wg.Add(1)
		core.Go(cs.loop)
	}
}

// Stop halts the loop and waits for the current tick; safe to call repeatedly
func (cs *ClockScheduler) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
		if cs.running.CompareAndSwap(true, false) {
			cs.wg.Wait()
		}
		cs.log.WithField("ticks", cs.tickCount.Load()).Debug("clock stopped")
	})
}

// Step runs one tick synchronously; only valid while the loop is not running
func (cs *ClockScheduler) Step() {
	if cs.running.Load() {
		return
	}
	cs.processTick()
}

func (cs *ClockScheduler) loop() {
	defer cs.wg.Done()

	cs.nextTickDeadline = cs.clock.Now().Add(cs.tickInterval)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		select {
		case <-cs.stopChan:
			return
		default:
		}

		var sleep time.Duration

		if cs.clock.IsPaused() {
			cs.drainCommands()
			sleep = cs.tickInterval * 2
		} else {
			now := cs.clock.Now()
			if !now.Before(cs.nextTickDeadline) {
				cs.processTick()

				cs.nextTickDeadline = cs.nextTickDeadline.Add(cs.tickInterval)
				maxBehind := cs.tickInterval * parameter.MaxTicksBehind
				if now.Sub(cs.nextTickDeadline) > maxBehind {
					cs.statLate.Add(1)
					cs.nextTickDeadline = now.Add(cs.tickInterval)
				}
			}
			sleep = cs.nextTickDeadline.Sub(cs.clock.Now())
		}

		if sleep > 0 {
			timer.Reset(sleep)
			select {
			case <-timer.C:
			case <-cs.stopChan:
				return
			}
		}
	}
}

func (cs *ClockScheduler) drainCommands() {
	if n := cs.commands.Drain(func(cmd Command) { cmd() }); n > 0 {
		cs.statCommands.Add(int64(n))
	}
}

// processTick executes one clock cycle
func (cs *ClockScheduler) processTick() {
	cs.drainCommands()

	dt := cs.tickInterval
	cs.sched.Tick(dt)
	tick := cs.tickCount.Add(1)
	cs.statTicks.Store(int64(tick))

	cs.hooksMu.RLock()
	hooks := cs.hooks
	cs.hooksMu.RUnlock()
	for _, h := range hooks {
		h(tick, dt)
	}
}
