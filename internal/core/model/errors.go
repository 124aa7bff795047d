package model

import (
	"errors"

	"github.com/agenthands/topoclean/internal/core/geom"
)

// Sentinel errors shared by detectors, fixers, stores and the pipeline.
// ErrGeometryDegenerate covers zero-length segments, single-vertex curves
// and coincident arc endpoints. ErrToleranceViolation marks geometry that
// was expected to be disjoint but overlaps beyond tolerance.
var (
	ErrNotFound            = errors.New("entity not found")
	ErrGeometryDegenerate  = geom.ErrDegenerate
	ErrToleranceViolation  = errors.New("tolerance violation")
	ErrStoreMutationFailed = errors.New("store mutation failed")
	ErrCancelled           = errors.New("operation cancelled")
	ErrConvergenceExceeded = errors.New("convergence iteration cap exceeded")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNoFixMethod         = errors.New("action has no fix method")
	ErrUnknownAction       = errors.New("unknown action type")
	ErrResultNotFound      = errors.New("check result not found")
)
