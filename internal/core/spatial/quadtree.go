package spatial

import (
	"github.com/paulmach/orb"
)

const (
	DefaultMaxItems = 8
	DefaultMaxDepth = 12
)

// QuadTree indexes items by bounding box. Items that straddle a split line
// stay on the parent node, so every item is stored exactly once.
type QuadTree[T comparable] struct {
	root     *quadNode[T]
	maxItems int
	maxDepth int
	bounds   map[T]orb.Bound
}

type quadItem[T comparable] struct {
	value T
	bound orb.Bound
}

type quadNode[T comparable] struct {
	bound    orb.Bound
	depth    int
	items    []quadItem[T]
	children *[4]*quadNode[T]
}

// Option tunes a QuadTree.
type Option func(*options)

type options struct {
	maxItems int
	maxDepth int
}

func WithMaxItems(n int) Option {
	return func(o *options) { o.maxItems = n }
}

func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// NewQuadTree creates an empty tree covering extent. Items outside the
// extent are still accepted and kept at the root.
func NewQuadTree[T comparable](extent orb.Bound, opts ...Option) *QuadTree[T] {
	o := options{maxItems: DefaultMaxItems, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return &QuadTree[T]{
		root:     &quadNode[T]{bound: extent},
		maxItems: o.maxItems,
		maxDepth: o.maxDepth,
		bounds:   make(map[T]orb.Bound),
	}
}

func (q *QuadTree[T]) Len() int {
	return len(q.bounds)
}

// Insert adds value with its bounding box. Re-inserting a value replaces
// its previous box.
func (q *QuadTree[T]) Insert(value T, b orb.Bound) {
	if _, ok := q.bounds[value]; ok {
		q.Remove(value)
	}
	q.bounds[value] = b
	q.insert(q.root, quadItem[T]{value: value, bound: b})
}

func (q *QuadTree[T]) insert(n *quadNode[T], it quadItem[T]) {
	for {
		if n.children != nil {
			if c := n.childFor(it.bound); c != nil {
				n = c
				continue
			}
		}
		n.items = append(n.items, it)
		if n.children == nil && len(n.items) > q.maxItems && n.depth < q.maxDepth {
			q.subdivide(n)
		}
		return
	}
}

func (q *QuadTree[T]) subdivide(n *quadNode[T]) {
	c := n.bound.Center()
	lo, hi := n.bound.Min, n.bound.Max
	n.children = &[4]*quadNode[T]{
		{bound: orb.Bound{Min: lo, Max: c}, depth: n.depth + 1},
		{bound: orb.Bound{Min: orb.Point{c[0], lo[1]}, Max: orb.Point{hi[0], c[1]}}, depth: n.depth + 1},
		{bound: orb.Bound{Min: orb.Point{lo[0], c[1]}, Max: orb.Point{c[0], hi[1]}}, depth: n.depth + 1},
		{bound: orb.Bound{Min: c, Max: hi}, depth: n.depth + 1},
	}
	kept := n.items[:0]
	for _, it := range n.items {
		if child := n.childFor(it.bound); child != nil {
			child.items = append(child.items, it)
		} else {
			kept = append(kept, it)
		}
	}
	n.items = kept
}

func (n *quadNode[T]) childFor(b orb.Bound) *quadNode[T] {
	for _, c := range n.children {
		if containsBound(c.bound, b) {
			return c
		}
	}
	return nil
}

// Remove deletes value and reports whether it was present.
func (q *QuadTree[T]) Remove(value T) bool {
	b, ok := q.bounds[value]
	if !ok {
		return false
	}
	delete(q.bounds, value)
	n := q.root
	for n != nil {
		for i, it := range n.items {
			if it.value == value {
				n.items = append(n.items[:i], n.items[i+1:]...)
				return true
			}
		}
		if n.children == nil {
			break
		}
		n = n.childFor(b)
	}
	return false
}

// Query returns every value whose box intersects b, in no particular order.
func (q *QuadTree[T]) Query(b orb.Bound) []T {
	var out []T
	stack := []*quadNode[T]{q.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, it := range n.items {
			if it.bound.Intersects(b) {
				out = append(out, it.value)
			}
		}
		if n.children == nil {
			continue
		}
		for _, c := range n.children {
			if c.bound.Intersects(b) {
				stack = append(stack, c)
			}
		}
	}
	return out
}

func containsBound(outer, inner orb.Bound) bool {
	return inner.Min[0] >= outer.Min[0] && inner.Min[1] >= outer.Min[1] &&
		inner.Max[0] <= outer.Max[0] && inner.Max[1] <= outer.Max[1]
}

// Pad grows b by d on every side.
func Pad(b orb.Bound, d float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.Min[0] - d, b.Min[1] - d},
		Max: orb.Point{b.Max[0] + d, b.Max[1] + d},
	}
}
