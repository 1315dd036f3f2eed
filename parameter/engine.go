package parameter

import "time"

// Scheduler timing
const (
	// TickInterval is the fixed simulation tick driven by ClockScheduler
	TickInterval = 50 * time.Millisecond

	// FrameInterval is the sandbox redraw period, independent of the tick
	FrameInterval = 40 * time.Millisecond

	// MinRefreshDelay is the floor between the end of one buffered build and the start of the next
	MinRefreshDelay = 250 * time.Millisecond

	// MaxTicksBehind is how many intervals the scheduler may lag before the deadline is re-anchored
	MaxTicksBehind = 2
)

// Command queue limits
const (
	// CommandQueueSize is the fixed capacity of the posted-command ring buffer
	CommandQueueSize = 256

	// CommandBufferMask is the bitmask for fast modulo operations (256 - 1)
	CommandBufferMask = 255
)

// Scripting
const (
	// ScriptTimeout bounds one run of a destination script
	ScriptTimeout = 20 * time.Millisecond

	// ScriptEvalTicks is how often a destination script is re-run, in ticks
	ScriptEvalTicks = 20

	// ReloadDebounce collapses bursts of file events for the same path
	ReloadDebounce = 100 * time.Millisecond
)
