package model

import "github.com/agenthands/topoclean/internal/core/geom"

// EntityHandle identifies a curve owned by the entity store. Handles are
// compared by identity; two handles with identical geometry are distinct.
type EntityHandle string

// Entity is a geometry snapshot read from the store at the start of a Check.
type Entity struct {
	Handle   EntityHandle `json:"handle"`
	Geometry geom.Curve   `json:"geometry"`
}

// Handles returns the handles of es in order.
func Handles(es []Entity) []EntityHandle {
	out := make([]EntityHandle, len(es))
	for i, e := range es {
		out[i] = e.Handle
	}
	return out
}
