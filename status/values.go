package status

import (
	"math"
	"sync/atomic"
)

// AtomicFloat is a float64 gauge stored as its IEEE bits; the zero value reads 0
type AtomicFloat struct {
	bits atomic.Uint64
}

func (f *AtomicFloat) Set(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *AtomicFloat) Get() float64 {
	return math.Float64frombits(f.bits.Load())
}

// Add applies delta and returns the result
func (f *AtomicFloat) Add(delta float64) float64 {
	return f.update(func(cur float64) float64 { return cur + delta })
}

// Max raises the gauge to v if v is larger and returns the result
func (f *AtomicFloat) Max(v float64) float64 {
	return f.update(func(cur float64) float64 { return math.Max(cur, v) })
}

func (f *AtomicFloat) update(fn func(float64) float64) float64 {
	for {
		old := f.bits.Load()
		next := fn(math.Float64frombits(old))
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// MaxStringLen bounds AtomicString values so status lines stay one row wide
const MaxStringLen = 24

// AtomicString holds a short label such as a build state; the zero value reads ""
type AtomicString struct {
	ptr atomic.Pointer[string]
}

// Store sets the label, cut to MaxStringLen bytes
func (s *AtomicString) Store(v string) {
	v = v[:min(len(v), MaxStringLen)]
	s.ptr.Store(&v)
}

func (s *AtomicString) Load() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
