package model

import "time"

// ReplacementEdge records that a fix replaced Source with Target. An erase
// is recorded with an empty Target.
type ReplacementEdge struct {
	Source    EntityHandle `json:"source_handle"`
	Target    EntityHandle `json:"target_handle,omitempty"`
	Action    ActionType   `json:"action"`
	ResultID  string       `json:"result_id"`
	CreatedAt time.Time    `json:"created_at"`
}
