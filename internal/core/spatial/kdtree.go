package spatial

import (
	"math"
	"sort"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/paulmach/orb"
)

// KDItem is a point with an attached value. ID is the insertion index and
// orders query results.
type KDItem[T any] struct {
	ID    int
	Point geom.Point
	Value T
}

// KDTree is a 2D tree over points, built balanced by median split.
// Removal is lazy: removed items are skipped by queries.
type KDTree[T any] struct {
	root  *kdNode[T]
	nodes []*kdNode[T]
	live  int
}

type kdNode[T any] struct {
	item        KDItem[T]
	axis        int
	left, right *kdNode[T]
	removed     bool
}

// NewKDTree builds a tree over pts. Item IDs are the indexes into pts.
func NewKDTree[T any](pts []geom.Point, values []T) *KDTree[T] {
	t := &KDTree[T]{nodes: make([]*kdNode[T], len(pts))}
	for i, p := range pts {
		var v T
		if i < len(values) {
			v = values[i]
		}
		t.nodes[i] = &kdNode[T]{item: KDItem[T]{ID: i, Point: p, Value: v}}
	}
	order := make([]*kdNode[T], len(t.nodes))
	copy(order, t.nodes)
	t.root = build(order, 0)
	t.live = len(pts)
	return t
}

func build[T any](nodes []*kdNode[T], depth int) *kdNode[T] {
	if len(nodes) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(nodes, func(i, j int) bool {
		a, b := coord(nodes[i].item.Point, axis), coord(nodes[j].item.Point, axis)
		if a == b {
			return nodes[i].item.ID < nodes[j].item.ID
		}
		return a < b
	})
	mid := len(nodes) / 2
	n := nodes[mid]
	n.axis = axis
	n.left = build(nodes[:mid], depth+1)
	n.right = build(nodes[mid+1:], depth+1)
	return n
}

func coord(p geom.Point, axis int) float64 {
	if axis == 0 {
		return p.X
	}
	return p.Y
}

func (t *KDTree[T]) Len() int {
	return t.live
}

// Insert adds a point and returns its ID. The tree is not rebalanced.
func (t *KDTree[T]) Insert(p geom.Point, v T) int {
	n := &kdNode[T]{item: KDItem[T]{ID: len(t.nodes), Point: p, Value: v}}
	t.nodes = append(t.nodes, n)
	t.live++
	if t.root == nil {
		t.root = n
		return n.item.ID
	}
	cur := t.root
	for {
		next := &cur.right
		if coord(p, cur.axis) < coord(cur.item.Point, cur.axis) {
			next = &cur.left
		}
		if *next == nil {
			n.axis = (cur.axis + 1) % 2
			*next = n
			return n.item.ID
		}
		cur = *next
	}
}

// Remove marks an item as deleted.
func (t *KDTree[T]) Remove(id int) bool {
	if id < 0 || id >= len(t.nodes) || t.nodes[id].removed {
		return false
	}
	t.nodes[id].removed = true
	t.live--
	return true
}

// Item returns the item with the given ID.
func (t *KDTree[T]) Item(id int) KDItem[T] {
	return t.nodes[id].item
}

// WithinRadius returns live items within r of p, ordered by ID.
func (t *KDTree[T]) WithinRadius(p geom.Point, r float64) []KDItem[T] {
	var out []KDItem[T]
	r2 := r * r
	var walk func(n *kdNode[T])
	walk = func(n *kdNode[T]) {
		if n == nil {
			return
		}
		if !n.removed && n.item.Point.Sub(p).LengthSquared() <= r2 {
			out = append(out, n.item)
		}
		d := coord(p, n.axis) - coord(n.item.Point, n.axis)
		if d-r <= 0 {
			walk(n.left)
		}
		if d+r >= 0 {
			walk(n.right)
		}
	}
	walk(t.root)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Range returns live items inside b, ordered by ID.
func (t *KDTree[T]) Range(b orb.Bound) []KDItem[T] {
	var out []KDItem[T]
	var walk func(n *kdNode[T])
	walk = func(n *kdNode[T]) {
		if n == nil {
			return
		}
		if !n.removed && b.Contains(n.item.Point.Orb()) {
			out = append(out, n.item)
		}
		c := coord(n.item.Point, n.axis)
		if b.Min[n.axis] <= c {
			walk(n.left)
		}
		if b.Max[n.axis] >= c {
			walk(n.right)
		}
	}
	walk(t.root)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Nearest returns the closest live item to p within maxDist.
func (t *KDTree[T]) Nearest(p geom.Point, maxDist float64) (KDItem[T], float64, bool) {
	var best *kdNode[T]
	bestD := maxDist
	var walk func(n *kdNode[T])
	walk = func(n *kdNode[T]) {
		if n == nil {
			return
		}
		if !n.removed {
			if d := n.item.Point.Distance(p); d <= bestD && (best == nil || d < bestD || n.item.ID < best.item.ID) {
				best, bestD = n, d
			}
		}
		d := coord(p, n.axis) - coord(n.item.Point, n.axis)
		first, second := n.left, n.right
		if d >= 0 {
			first, second = n.right, n.left
		}
		walk(first)
		if math.Abs(d) <= bestD {
			walk(second)
		}
	}
	walk(t.root)
	if best == nil {
		return KDItem[T]{}, 0, false
	}
	return best.item, bestD, true
}
