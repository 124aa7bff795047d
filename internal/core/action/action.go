// Package action binds every ActionType to its detector and its fixer.
package action

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/topoclean/internal/core/detect"
	"github.com/agenthands/topoclean/internal/core/fix"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/store"
)

// Action is the check/fix pair of one ActionType.
type Action interface {
	Descriptor() model.Descriptor
	Check(p detect.Params, entities []model.Entity) model.CheckOutcome
	// Fix applies one result. Report-only actions return ErrNoFixMethod.
	Fix(ctx context.Context, s store.EntityStore, env fix.Env, r *model.CheckResult) (fix.Outcome, error)
}

// DetectFunc is the read-only half of an action.
type DetectFunc func(p detect.Params, entities []model.Entity) model.CheckOutcome

type action struct {
	desc   model.Descriptor
	detect DetectFunc
	fix    fix.Func
}

func (a *action) Descriptor() model.Descriptor { return a.desc }

func (a *action) Check(p detect.Params, entities []model.Entity) model.CheckOutcome {
	return a.detect(p, entities)
}

func (a *action) Fix(ctx context.Context, s store.EntityStore, env fix.Env, r *model.CheckResult) (fix.Outcome, error) {
	return fix.Run(ctx, s, env, r, a.fix)
}

// New builds an action from its parts. fn may be nil for report-only
// actions.
func New(t model.ActionType, check DetectFunc, fn fix.Func) (Action, error) {
	d, err := model.Describe(t)
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, fmt.Errorf("action %s has no detector", t)
	}
	return &action{desc: d, detect: check, fix: fn}, nil
}

// Registry is the dispatch table from ActionType to Action.
type Registry struct {
	actions map[model.ActionType]Action
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[model.ActionType]Action)}
}

// Register adds or replaces the action for its type.
func (r *Registry) Register(a Action) {
	r.actions[a.Descriptor().Type] = a
}

// Get returns the action for t or ErrUnknownAction.
func (r *Registry) Get(t model.ActionType) (Action, error) {
	a, ok := r.actions[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", model.ErrUnknownAction, t)
	}
	return a, nil
}

// Catalogue lists the descriptors of every registered action by name.
func (r *Registry) Catalogue() []model.Descriptor {
	out := make([]model.Descriptor, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

type entry struct {
	detect DetectFunc
	fix    fix.Func
}

var table = map[model.ActionType]entry{
	model.BreakCrossing:           {detect.Crossings, fix.SplitAtPoints},
	model.SelfIntersect:           {detect.SelfIntersections, fix.SplitAtPoints},
	model.DeleteDuplicates:        {detect.Duplicates, fix.EraseDuplicates},
	model.DuplicatePolygon:        {detect.DuplicatePolygons, fix.EraseDuplicates},
	model.ExtendUndershoots:       {detect.Undershoots, fix.Extend},
	model.SnapClustered:           {detect.Clusters, fix.Snap},
	model.EraseDangling:           {detect.Dangling, fix.EraseChain},
	model.UnclosedPolygon:         {detect.Unclosed, fix.Close},
	model.ZeroAreaLoop:            {detect.ZeroAreaLoops, fix.EraseSources},
	model.ZeroLength:              {detect.ZeroLength, fix.EraseSources},
	model.EraseShort:              {detect.ShortCurves, fix.EraseSources},
	model.SmallPolygon:            {detect.SmallPolygons, fix.EraseSources},
	model.SmallPolygonGap:         {detect.SmallPolygonGaps, fix.MoveVertices},
	model.DuplicateVertexPolyline: {detect.DuplicateVertices, fix.RemoveVertices},
	model.RectifyPointDeviation:   {detect.PointDeviations, fix.MoveVertices},
	model.ArcSegment:              {detect.Arcs, fix.Straighten},
	model.NonZeroElevation:        {detect.Elevated, fix.Flatten},
	model.AntiClockwisePolygon:    {detect.AntiClockwise, fix.Reverse},
	model.MissingVertexInPolygon:  {detect.MissingVertices, fix.InsertVertices},
	model.IntersectPolygon:        {detect.IntersectingPolygons, nil},
	model.PolygonHole:             {detect.PolygonHoles, nil},
	model.OverlapPolygon:          {detect.Overlaps, nil},
	model.FindIslandPolygon:       {detect.Islands, nil},
	model.FindDangling:            {detect.FreeEnds, nil},
	model.SharpCornerPolygon:      {detect.SharpCorners, nil},
	model.AnnotationOverlap:       {detect.AnnotationOverlaps, nil},
}

// Default returns a registry holding every built-in action.
func Default() *Registry {
	r := NewRegistry()
	for t, e := range table {
		a, err := New(t, e.detect, e.fix)
		if err != nil {
			panic(fmt.Sprintf("built-in action %s: %v", t, err))
		}
		r.Register(a)
	}
	return r
}
