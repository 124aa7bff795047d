package model

import "fmt"

// Status is the lifecycle state of a CheckResult.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusFixed       Status = "Fixed"
	StatusRejected    Status = "Rejected"
	StatusInvalid     Status = "Invalid"
	StatusFailed      Status = "Failed"
	StatusNoFixMethod Status = "NoFixMethod"
)

// Pending results may move to any terminal state; Rejected may return to
// Pending. Everything else is final.
var transitions = map[Status][]Status{
	StatusPending:  {StatusFixed, StatusRejected, StatusInvalid, StatusFailed, StatusNoFixMethod},
	StatusRejected: {StatusPending},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Final reports whether no transition leaves s.
func (s Status) Final() bool {
	return len(transitions[s]) == 0
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
