package status

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
)

// Registry groups the typed metric maps under dotted keys (nav.path.searches, sim.arrived)
// Components cache pointers at construction; hot loops write directly to atomics
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// OrNew returns r, or a private registry when r is nil
func OrNew(r *Registry) *Registry {
	if r != nil {
		return r
	}
	return NewRegistry()
}

// TotalCount returns the number of metrics across all maps
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Snapshot formats every metric as key=value, sorted by key
func (r *Registry) Snapshot() []string {
	return r.SnapshotPrefix("")
}

// SnapshotPrefix is Snapshot restricted to keys starting with prefix
func (r *Registry) SnapshotPrefix(prefix string) []string {
	var out []string
	emit := func(k, v string) {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k+"="+v)
		}
	}
	r.Bools.Range(func(k string, v *atomic.Bool) { emit(k, fmt.Sprint(v.Load())) })
	r.Ints.Range(func(k string, v *atomic.Int64) { emit(k, fmt.Sprint(v.Load())) })
	r.Floats.Range(func(k string, v *AtomicFloat) { emit(k, fmt.Sprintf("%.3f", v.Get())) })
	r.Strings.Range(func(k string, v *AtomicString) { emit(k, v.Load()) })
	slices.Sort(out)
	return out
}
