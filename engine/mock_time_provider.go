package engine

import (
	"sync"
	"time"
)

// MockTimeProvider is a manually advanced TimeSource for tests
type MockTimeProvider struct {
	mu          sync.RWMutex
	currentTime time.Time
}

var _ TimeSource = (*MockTimeProvider)(nil)

// NewMockTimeProvider starts the mock at startTime
func NewMockTimeProvider(startTime time.Time) *MockTimeProvider {
	return &MockTimeProvider{currentTime: startTime}
}

func (m *MockTimeProvider) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentTime
}

// SetTime jumps to t
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	m.currentTime = t
	m.mu.Unlock()
}

// Advance moves the mock forward by d
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	m.currentTime = m.currentTime.Add(d)
	m.mu.Unlock()
}
