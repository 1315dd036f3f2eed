package engine

import "time"

// TimeSource supplies wall-clock readings to clocks and schedulers
type TimeSource interface {
	Now() time.Time
}

// TimeProvider is the real system clock with monotonic readings
type TimeProvider struct{}

// NewTimeProvider creates a system time source
func NewTimeProvider() *TimeProvider {
	return &TimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *TimeProvider) Now() time.Time {
	return time.Now()
}

var _ TimeSource = (*TimeProvider)(nil)
