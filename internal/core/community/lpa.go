package community

import "sort"

// LabelPropagationDetector splits loosely chained groups into denser
// communities. Members are visited in index order and ties go to the
// current label, then to the largest label, so results are stable.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(n int, links []Link) [][]int {
	if n == 0 {
		return nil
	}

	// Parallel links count as a stronger connection.
	weights := make([]map[int]int, n)
	for i := range weights {
		weights[i] = make(map[int]int)
	}
	for _, l := range links {
		if l.A < 0 || l.B < 0 || l.A >= n || l.B >= n || l.A == l.B {
			continue
		}
		weights[l.A][l.B]++
		weights[l.B][l.A]++
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changeCount := 0
		for u := 0; u < n; u++ {
			if len(weights[u]) == 0 {
				continue
			}
			counts := make(map[int]int)
			maxCount := 0
			for v, w := range weights[u] {
				counts[labels[v]] += w
				if counts[labels[v]] > maxCount {
					maxCount = counts[labels[v]]
				}
			}
			if counts[labels[u]] == maxCount {
				continue
			}
			best := -1
			for label, c := range counts {
				if c == maxCount && label > best {
					best = label
				}
			}
			labels[u] = best
			changeCount++
		}
		if changeCount == 0 {
			break
		}
	}

	byLabel := make(map[int][]int)
	for u, label := range labels {
		byLabel[label] = append(byLabel[label], u)
	}
	var groups [][]int
	for _, g := range byLabel {
		if len(g) >= 2 {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
