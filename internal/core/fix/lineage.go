package fix

import (
	"sync"

	"github.com/agenthands/topoclean/internal/core/model"
)

// Lineage remembers what fixes in one review cycle did to each handle, so
// a later result naming a replaced handle can find its current pieces.
type Lineage struct {
	mu       sync.RWMutex
	replaced map[model.EntityHandle][]model.EntityHandle
	erased   map[model.EntityHandle]bool
}

func NewLineage() *Lineage {
	return &Lineage{
		replaced: make(map[model.EntityHandle][]model.EntityHandle),
		erased:   make(map[model.EntityHandle]bool),
	}
}

// Apply records a committed outcome.
func (l *Lineage) Apply(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range o.Replaced {
		l.replaced[r.Source] = append([]model.EntityHandle(nil), r.Pieces...)
	}
	for _, h := range o.Erased {
		l.erased[h] = true
	}
}

// Resolve follows replacements from h to the handles that now stand for
// it. An erased handle resolves to nothing; an untouched one to itself.
func (l *Lineage) Resolve(h model.EntityHandle) []model.EntityHandle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolve(h, make(map[model.EntityHandle]bool))
}

func (l *Lineage) resolve(h model.EntityHandle, seen map[model.EntityHandle]bool) []model.EntityHandle {
	if seen[h] {
		return nil
	}
	seen[h] = true
	if l.erased[h] {
		return nil
	}
	pieces, ok := l.replaced[h]
	if !ok {
		return []model.EntityHandle{h}
	}
	var out []model.EntityHandle
	for _, p := range pieces {
		out = append(out, l.resolve(p, seen)...)
	}
	return out
}

// ResolveAll resolves every handle, keeping first occurrences.
func (l *Lineage) ResolveAll(hs []model.EntityHandle) []model.EntityHandle {
	var out model.Selection
	for _, h := range hs {
		out = out.Union(l.Resolve(h))
	}
	return out
}

// Gone reports whether h resolves to nothing.
func (l *Lineage) Gone(h model.EntityHandle) bool {
	return len(l.Resolve(h)) == 0
}

// Touched reports whether h was replaced or erased.
func (l *Lineage) Touched(h model.EntityHandle) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, replaced := l.replaced[h]
	return replaced || l.erased[h]
}

// Reset forgets every recorded fix.
func (l *Lineage) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.replaced)
	clear(l.erased)
}
