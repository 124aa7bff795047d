// Package fix holds the mutating half of every action. A fixer turns one
// CheckResult into store edits; Run gives it an exclusive batch and keeps
// the replacement lineage current.
package fix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/store"
)

// ArcMode selects what the ArcSegment fix does with curved geometry.
type ArcMode string

const (
	ArcStraighten ArcMode = "straighten"
	ArcErase      ArcMode = "erase"
)

// Options are the fix-time switches an action may consult.
type Options struct {
	// SplitTargetOnExtend also cuts the curve an undershoot is extended
	// onto, so the new junction becomes a node.
	SplitTargetOnExtend bool    `toml:"split_target_on_extend" json:"split_target_on_extend"`
	ArcMode             ArcMode `toml:"arc_mode" json:"arc_mode"`
}

// Env is what a fixer sees besides the store.
type Env struct {
	Tol     geom.Tolerance
	Options Options
	Lineage *Lineage
	Logger  *slog.Logger
	Now     func() time.Time
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

// resolve maps a handle through the lineage, if any.
func (e Env) resolve(h model.EntityHandle) []model.EntityHandle {
	if e.Lineage == nil {
		return []model.EntityHandle{h}
	}
	return e.Lineage.Resolve(h)
}

// Replacement is one entity cut into pieces.
type Replacement struct {
	Source model.EntityHandle   `json:"source"`
	Pieces []model.EntityHandle `json:"pieces"`
}

// Outcome is what a fix did to the store.
type Outcome struct {
	Replaced []Replacement        `json:"replaced,omitempty"`
	Erased   []model.EntityHandle `json:"erased,omitempty"`
	Modified []model.EntityHandle `json:"modified,omitempty"`
}

func (o *Outcome) replace(src model.EntityHandle, pieces []model.EntityHandle) {
	o.Replaced = append(o.Replaced, Replacement{Source: src, Pieces: pieces})
}

func (o *Outcome) erase(h model.EntityHandle) {
	o.Erased = model.Selection(o.Erased).Union([]model.EntityHandle{h})
}

func (o *Outcome) modify(h model.EntityHandle) {
	o.Modified = model.Selection(o.Modified).Union([]model.EntityHandle{h})
}

// Targets lists the live entities the fix produced or edited.
func (o Outcome) Targets() []model.EntityHandle {
	var out model.Selection
	replaced := make(map[model.EntityHandle]bool)
	for _, r := range o.Replaced {
		replaced[r.Source] = true
	}
	for _, r := range o.Replaced {
		for _, p := range r.Pieces {
			if !replaced[p] {
				out = out.Union([]model.EntityHandle{p})
			}
		}
	}
	for _, h := range o.Modified {
		if !replaced[h] {
			out = out.Union([]model.EntityHandle{h})
		}
	}
	return model.Selection(out).Minus(o.Erased)
}

// Func is the fix of one action.
type Func func(ctx context.Context, m *store.Mutator, env Env, r *model.CheckResult) (Outcome, error)

// Run applies fn to r in one batch. Lineage edges are written into the same
// batch when the store keeps them, and the in-memory lineage is updated
// only after the batch commits.
func Run(ctx context.Context, s store.EntityStore, env Env, r *model.CheckResult, fn Func) (Outcome, error) {
	if fn == nil {
		return Outcome{}, fmt.Errorf("%s: %w", r.Action, model.ErrNoFixMethod)
	}
	var out Outcome
	err := store.WithBatch(ctx, s, func(b store.Batch) error {
		var err error
		out, err = fn(ctx, store.NewMutator(b, env.Tol), env, r)
		if err != nil {
			return err
		}
		return recordLineage(ctx, b, r, out, env.now())
	})
	if err != nil {
		env.logger().Debug("fix failed", "action", r.Action, "result", r.ID, "error", err)
		return Outcome{}, err
	}
	if env.Lineage != nil {
		env.Lineage.Apply(out)
	}
	return out, nil
}

func recordLineage(ctx context.Context, b store.Batch, r *model.CheckResult, out Outcome, now time.Time) error {
	rec, ok := b.(store.LineageRecorder)
	if !ok {
		return nil
	}
	edge := func(src, dst model.EntityHandle) error {
		return rec.RecordReplacement(ctx, model.ReplacementEdge{
			Source:    src,
			Target:    dst,
			Action:    r.Action,
			ResultID:  r.ID,
			CreatedAt: now,
		})
	}
	for _, rp := range out.Replaced {
		for _, p := range rp.Pieces {
			if err := edge(rp.Source, p); err != nil {
				return fmt.Errorf("failed to record lineage of %s: %w", rp.Source, err)
			}
		}
	}
	for _, h := range out.Erased {
		if err := edge(h, ""); err != nil {
			return fmt.Errorf("failed to record erase of %s: %w", h, err)
		}
	}
	return nil
}

// Status maps the error of a fix to the result status it leads to.
func Status(err error) model.Status {
	switch {
	case err == nil:
		return model.StatusFixed
	case errors.Is(err, model.ErrNoFixMethod):
		return model.StatusNoFixMethod
	case errors.Is(err, model.ErrNotFound):
		return model.StatusInvalid
	default:
		return model.StatusFailed
	}
}

var errPayload = errors.New("unexpected payload")

func payloadError(r *model.CheckResult) error {
	return fmt.Errorf("%s result %s carries %T: %w", r.Action, r.ID, r.Payload, errPayload)
}

// stale reports that nothing the result names is left to fix.
func stale(r *model.CheckResult) error {
	return fmt.Errorf("sources of %s result %s are gone: %w", r.Action, r.ID, model.ErrNotFound)
}
