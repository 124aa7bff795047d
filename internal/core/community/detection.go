package community

import "sort"

// Link is an undirected relation between two members, identified by their
// index in the caller's slice.
type Link struct {
	A, B int
}

// Detector partitions n members into groups of related members. Groups
// have at least two members, members are ascending and groups are ordered
// by their first member.
type Detector interface {
	Detect(n int, links []Link) [][]int
}

// ComponentDetector groups members by connectivity.
type ComponentDetector struct{}

func NewComponentDetector() *ComponentDetector {
	return &ComponentDetector{}
}

func (d *ComponentDetector) Detect(n int, links []Link) [][]int {
	adj := adjacency(n, links)
	visited := make([]bool, n)
	var groups [][]int

	for u := 0; u < n; u++ {
		if visited[u] {
			continue
		}
		component := d.dfs(u, adj, visited)
		// Singletons are not groups.
		if len(component) >= 2 {
			sort.Ints(component)
			groups = append(groups, component)
		}
	}
	return groups
}

// dfs walks iteratively; chains of snapped endpoints can be long.
func (d *ComponentDetector) dfs(start int, adj [][]int, visited []bool) []int {
	var component []int
	stack := []int{start}
	visited[start] = true
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		component = append(component, u)
		for _, v := range adj[u] {
			if !visited[v] {
				visited[v] = true
				stack = append(stack, v)
			}
		}
	}
	return component
}

func adjacency(n int, links []Link) [][]int {
	adj := make([][]int, n)
	for _, l := range links {
		if l.A < 0 || l.B < 0 || l.A >= n || l.B >= n || l.A == l.B {
			continue
		}
		adj[l.A] = append(adj[l.A], l.B)
		adj[l.B] = append(adj[l.B], l.A)
	}
	return adj
}
