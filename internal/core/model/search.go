package model

// Selection is an ordered set of entity handles.
type Selection []EntityHandle

// Contains reports whether h is selected.
func (s Selection) Contains(h EntityHandle) bool {
	for _, x := range s {
		if x == h {
			return true
		}
	}
	return false
}

// Union appends the handles of o that are not yet present.
func (s Selection) Union(o []EntityHandle) Selection {
	seen := make(map[EntityHandle]bool, len(s))
	out := make(Selection, 0, len(s)+len(o))
	for _, h := range append(append([]EntityHandle(nil), s...), o...) {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// Minus drops every handle in o.
func (s Selection) Minus(o []EntityHandle) Selection {
	drop := make(map[EntityHandle]bool, len(o))
	for _, h := range o {
		drop[h] = true
	}
	out := make(Selection, 0, len(s))
	for _, h := range s {
		if !drop[h] {
			out = append(out, h)
		}
	}
	return out
}
