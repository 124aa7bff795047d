package model

import (
	"time"
)

// CheckResult is one defect found by a Check. SourceIDs are the entities
// the defect concerns; TargetIDs are filled by a successful Fix with the
// entities that replaced them.
type CheckResult struct {
	ID        string         `json:"id"`
	Action    ActionType     `json:"action"`
	SourceIDs []EntityHandle `json:"source_ids"`
	TargetIDs []EntityHandle `json:"target_ids,omitempty"`
	Status    Status         `json:"status"`
	Kind      string         `json:"kind"`
	Payload   Payload        `json:"payload"`
	Message   string         `json:"message"`
	Error     string         `json:"error,omitempty"`
}

// NewResult builds a pending result and renders its message.
func NewResult(action ActionType, payload Payload, sources ...EntityHandle) *CheckResult {
	return &CheckResult{
		Action:    action,
		SourceIDs: sources,
		Status:    StatusPending,
		Kind:      payload.Kind(),
		Payload:   payload,
		Message:   payload.Describe(),
	}
}

// Transition moves the result to a new status.
func (r *CheckResult) Transition(to Status) error {
	if err := checkTransition(r.Status, to); err != nil {
		return err
	}
	r.Status = to
	return nil
}

// Skip records an entity a detector left out of its analysis.
type Skip struct {
	Handle EntityHandle `json:"handle"`
	Reason string       `json:"reason"`
}

// CheckOutcome is what a detector hands back to the pipeline.
type CheckOutcome struct {
	Results    []*CheckResult
	Skipped    []Skip
	Incomplete bool
}

// CheckResultGroup holds the results of the latest Check of one action.
// A new Check of the same action replaces the group.
type CheckResultGroup struct {
	Action     ActionType     `json:"action"`
	Results    []*CheckResult `json:"results"`
	Skipped    []Skip         `json:"skipped,omitempty"`
	Incomplete bool           `json:"incomplete"`
	Selection  Selection      `json:"-"`
	CheckedAt  time.Time      `json:"checked_at"`
}

// Pending returns the results still awaiting a decision.
func (g *CheckResultGroup) Pending() []*CheckResult {
	var out []*CheckResult
	for _, r := range g.Results {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	return out
}

// Counts tallies results by status.
func (g *CheckResultGroup) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, r := range g.Results {
		out[r.Status]++
	}
	return out
}
