package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/topoclean/internal/core/extraction"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/summary"
	"github.com/agenthands/topoclean/internal/store"
	"github.com/agenthands/topoclean/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Convergence reports one CheckAndFixAll run. Rounds counts fix rounds;
// Remaining is the pending count of the last check.
type Convergence struct {
	Action    model.ActionType     `json:"action"`
	Rounds    int                  `json:"rounds"`
	Converged bool                 `json:"converged"`
	Remaining int                  `json:"remaining"`
	Batches   []summary.Summary    `json:"batches"`
	Total     summary.Summary      `json:"total"`
	Targets   []model.EntityHandle `json:"targets,omitempty"`
}

// CheckAndFixAll checks, fixes every pending result and checks again until
// nothing is found, the count stops moving, Confirm declines, or the round
// cap is hit. With an explicit selection every round looks at the
// survivors of the previous one plus what the fixes produced.
func (c *Cleaner) CheckAndFixAll(ctx context.Context, req CheckRequest) (Convergence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkAndFixAll(ctx, req)
}

func (c *Cleaner) checkAndFixAll(ctx context.Context, req CheckRequest) (conv Convergence, err error) {
	conv.Action = req.Action
	desc, err := model.Describe(req.Action)
	if err != nil {
		return conv, err
	}

	ctx, span := telemetry.StartSpan(ctx, "Cleaner.CheckAndFixAll", string(req.Action))
	defer func() {
		conv.Total = c.Summarizer.Total(conv.Batches)
		conv.Total.Action = req.Action
		telemetry.RecordConvergence(string(req.Action), conv.Rounds, conv.Converged)
		telemetry.EndSpan(span, err,
			attribute.Int("topoclean.rounds", conv.Rounds),
			attribute.Int("topoclean.remaining", conv.Remaining))
	}()

	limit := c.Config.Pipeline.MaxIterations
	explicit := len(req.Selection) > 0
	var targets model.Selection
	prev := -1
	for {
		g, err := c.check(ctx, req)
		if err != nil {
			return conv, err
		}
		n := len(g.Pending())
		conv.Remaining = n
		switch {
		case n == 0:
			conv.Converged = true
			return conv, nil
		case !desc.Fixable:
			conv.Batches = append(conv.Batches, c.Summarizer.Group(g))
			return conv, nil
		case n == prev:
			c.Logger.Info("defect count unchanged, stopping", "action", req.Action, "remaining", n)
			return conv, nil
		case conv.Rounds >= limit:
			return conv, fmt.Errorf("%s still has %d defects after %d rounds: %w", req.Action, n, conv.Rounds, model.ErrConvergenceExceeded)
		}
		if c.Confirm != nil && !c.Confirm(ctx, g) {
			c.Logger.Info("fix round declined", "action", req.Action, "pending", n)
			return conv, nil
		}

		sum, err := c.fixAll(ctx, g)
		conv.Rounds++
		conv.Batches = append(conv.Batches, sum)
		for _, r := range g.Results {
			targets = targets.Union(r.TargetIDs)
		}
		conv.Targets = c.Lineage.ResolveAll(targets)
		if err != nil {
			return conv, err
		}
		prev = n
		if explicit {
			req.Selection = c.Lineage.ResolveAll(model.Selection(req.Selection).Union(targets))
		}
	}
}

// SequenceReport is the outcome of RunSequence.
type SequenceReport struct {
	Steps []Convergence   `json:"steps"`
	Total summary.Summary `json:"total"`
	Lines []string        `json:"lines"`
}

// RunSequence runs CheckAndFixAll for each action in order. An empty
// sequence means the configured one. Disabled actions are skipped; a step
// that hits the round cap does not stop the sequence.
func (c *Cleaner) RunSequence(ctx context.Context, seq []model.ActionType, selection []model.EntityHandle) (SequenceReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rep SequenceReport
	if len(seq) == 0 {
		var err error
		if seq, err = c.Config.Sequence(); err != nil {
			return rep, err
		}
	}
	var batches []summary.Summary
	for _, t := range seq {
		if !c.Config.Enabled(t) {
			c.Logger.Info("sequence step skipped", "action", t)
			continue
		}
		conv, err := c.checkAndFixAll(ctx, CheckRequest{Action: t, Selection: selection})
		rep.Steps = append(rep.Steps, conv)
		batches = append(batches, conv.Total)
		if err != nil && !errors.Is(err, model.ErrConvergenceExceeded) {
			rep.Total = c.Summarizer.Total(batches)
			rep.Lines = c.Summarizer.Lines(batches)
			return rep, err
		}
		if err != nil {
			c.Logger.Warn("sequence step did not converge", "action", t, "remaining", conv.Remaining)
		}
		if len(selection) > 0 {
			selection = c.Lineage.ResolveAll(model.Selection(selection).Union(conv.Targets))
		}
	}
	rep.Total = c.Summarizer.Total(batches)
	rep.Lines = c.Summarizer.Lines(batches)
	return rep, nil
}

// PolygonRequest configures ExtractPolygons.
type PolygonRequest struct {
	Selection []model.EntityHandle `json:"selection,omitempty"`
	// Create writes one closed clockwise polyline per bounded face.
	Create bool   `json:"create"`
	Layer  string `json:"layer,omitempty"`
}

// PolygonReport lists the traced faces. Created[i] is the entity written
// for Faces[i]; Replaced maps each source curve to the created faces it
// bounds.
type PolygonReport struct {
	Faces    []extraction.Face                           `json:"faces"`
	Outer    []extraction.Face                           `json:"outer"`
	Created  []model.EntityHandle                        `json:"created,omitempty"`
	Replaced map[model.EntityHandle][]model.EntityHandle `json:"replaced,omitempty"`
	Dangling []model.EntityHandle                        `json:"dangling"`
}

// ExtractPolygons traces the minimal faces of the selection.
func (c *Cleaner) ExtractPolygons(ctx context.Context, req PolygonRequest) (rep PolygonReport, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "Cleaner.ExtractPolygons", "")
	defer func() {
		telemetry.EndSpan(span, err, attribute.Int("topoclean.faces", len(rep.Faces)))
	}()

	guard := c.Scope.Enter(c.Config.Tolerance)
	defer guard.Release()

	var entities []model.Entity
	if len(req.Selection) == 0 {
		entities, err = store.Snapshot(ctx, c.Store)
	} else {
		entities, err = store.Read(ctx, c.Store, req.Selection)
	}
	if err != nil {
		return rep, fmt.Errorf("failed to read selection: %w", err)
	}

	faces, err := extraction.NewExtractor(guard.Tolerance(), c.Logger).ExtractFaces(ctx, entities)
	if err != nil {
		return rep, err
	}
	rep.Faces = faces.Bounded
	rep.Outer = faces.Outer
	rep.Dangling = faces.Unclosed
	if !req.Create || len(faces.Bounded) == 0 {
		return rep, nil
	}

	created := make([]model.EntityHandle, 0, len(faces.Bounded))
	err = store.WithBatch(ctx, c.Store, func(b store.Batch) error {
		for _, f := range faces.Bounded {
			curve := f.Curve.Clone()
			curve.Kind = geom.KindPolyline
			curve.Layer = req.Layer
			h, err := b.Create(ctx, curve)
			if err != nil {
				return fmt.Errorf("failed to create face: %w", err)
			}
			created = append(created, h)
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	rep.Created = created
	rep.Replaced = make(map[model.EntityHandle][]model.EntityHandle)
	for i, f := range faces.Bounded {
		for _, h := range f.Handles {
			rep.Replaced[h] = append(rep.Replaced[h], created[i])
		}
	}
	c.Logger.Info("faces created", "count", len(created), "dangling", len(rep.Dangling))
	return rep, nil
}
