package status

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricMapGetCachesPointer(t *testing.T) {
	m := NewMetricMap[AtomicFloat]()
	a := m.Get("nav.rate")
	b := m.Get("nav.rate")
	assert.Same(t, a, b)
	assert.True(t, m.Has("nav.rate"))
	assert.Equal(t, 1, m.Count())
}

func TestRegistrySnapshotSorted(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get("nav.path.searches").Store(3)
	r.Bools.Get("nav.buffered.running").Store(true)
	r.Floats.Get("nav.buffered.carry").Set(0.5)
	r.Strings.Get("nav.buffered.state").Store("building")

	assert.Equal(t, []string{
		"nav.buffered.carry=0.500",
		"nav.buffered.running=true",
		"nav.buffered.state=building",
		"nav.path.searches=3",
	}, r.Snapshot())
	assert.Equal(t, 4, r.TotalCount())
}

func TestRegistryConcurrentGet(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Ints.Get("shared").Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1600), r.Ints.Get("shared").Load())
}

func TestOrNew(t *testing.T) {
	r := NewRegistry()
	assert.Same(t, r, OrNew(r))
	assert.NotNil(t, OrNew(nil))
}

func TestAtomicStringTruncates(t *testing.T) {
	var s AtomicString
	assert.Equal(t, "", s.Load())
	s.Store("0123456789012345678901234567890123456789")
	assert.Len(t, s.Load(), MaxStringLen)
}

func TestSnapshotPrefix(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get("nav.move.steps").Store(12)
	r.Ints.Get("sim.arrived").Store(2)
	r.Floats.Get("nav.map.last_ms").Set(1.25)

	assert.Equal(t, []string{"nav.map.last_ms=1.250", "nav.move.steps=12"}, r.SnapshotPrefix("nav."))
	assert.Equal(t, []string{"sim.arrived=2"}, r.SnapshotPrefix("sim."))
	assert.Empty(t, r.SnapshotPrefix("audio."))
}

func TestAtomicFloatMax(t *testing.T) {
	var f AtomicFloat
	assert.Equal(t, 2.5, f.Max(2.5))
	assert.Equal(t, 2.5, f.Max(1))
	assert.Equal(t, 3.5, f.Add(1))
}
