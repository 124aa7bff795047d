package geom

import (
	"math"
	"sync"
)

// Tolerance holds the two epsilons every geometric comparison goes through.
// EqualPoint is a distance in drawing units; EqualVector bounds the sine of
// the angle between two directions considered parallel.
type Tolerance struct {
	EqualPoint  float64 `json:"equal_point" toml:"equal_point"`
	EqualVector float64 `json:"equal_vector" toml:"equal_vector"`
}

// DefaultTolerance is used when no action overrides the context.
var DefaultTolerance = Tolerance{EqualPoint: 1e-6, EqualVector: 1e-9}

// IsZero reports whether a distance is indistinguishable from zero.
func (t Tolerance) IsZero(d float64) bool {
	return math.Abs(d) <= t.EqualPoint
}

// EqualDistance compares two lengths.
func (t Tolerance) EqualDistance(a, b float64) bool {
	return math.Abs(a-b) <= t.EqualPoint
}

// Parallel reports whether u and v point along the same line (either
// direction). Zero-length vectors are never parallel.
func (t Tolerance) Parallel(u, v Point) bool {
	lu, lv := u.Length(), v.Length()
	if lu == 0 || lv == 0 {
		return false
	}
	return math.Abs(u.Cross(v))/(lu*lv) <= t.EqualVector
}

// SameDirection reports whether u and v are parallel and point the same way.
func (t Tolerance) SameDirection(u, v Point) bool {
	return t.Parallel(u, v) && u.Dot(v) > 0
}

// ToleranceScope owns the tolerance in effect for one engine. Actions enter
// the scope with their own values and release it when they return, so a
// nested or failing action never leaks its epsilons into the next call.
type ToleranceScope struct {
	mu      sync.Mutex
	current Tolerance
}

func NewToleranceScope(base Tolerance) *ToleranceScope {
	return &ToleranceScope{current: base}
}

// Current returns the tolerance currently in effect.
func (s *ToleranceScope) Current() Tolerance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Enter installs t and returns a guard that restores the previous value.
// Callers should defer guard.Release() immediately.
func (s *ToleranceScope) Enter(t Tolerance) *ToleranceGuard {
	s.mu.Lock()
	prev := s.current
	s.current = t
	s.mu.Unlock()
	return &ToleranceGuard{scope: s, prev: prev, tol: t}
}

// ToleranceGuard restores a scope's previous tolerance exactly once.
type ToleranceGuard struct {
	scope    *ToleranceScope
	prev     Tolerance
	tol      Tolerance
	released bool
}

// Tolerance is the value installed by Enter.
func (g *ToleranceGuard) Tolerance() Tolerance {
	return g.tol
}

func (g *ToleranceGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.scope.mu.Lock()
	g.scope.current = g.prev
	g.scope.mu.Unlock()
}
