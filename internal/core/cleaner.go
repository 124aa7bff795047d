package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agenthands/topoclean/internal/config"
	"github.com/agenthands/topoclean/internal/core/action"
	"github.com/agenthands/topoclean/internal/core/detect"
	"github.com/agenthands/topoclean/internal/core/fix"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/summary"
	"github.com/agenthands/topoclean/internal/store"
	"github.com/agenthands/topoclean/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrActionDisabled is returned for actions switched off in the config.
var ErrActionDisabled = errors.New("action disabled")

// ConfirmFunc is asked before every fix round of CheckAndFixAll. Returning
// false stops the loop with the group left pending.
type ConfirmFunc func(ctx context.Context, g *model.CheckResultGroup) bool

// Cleaner runs actions against one entity store. Calls are serialized: no
// two checks or fixes run at the same time.
type Cleaner struct {
	Store         store.EntityStore
	Registry      *action.Registry
	Config        *config.Config
	Scope         *geom.ToleranceScope
	Lineage       *fix.Lineage
	Summarizer    *summary.Summarizer
	Logger        *slog.Logger
	Confirm       ConfirmFunc
	UUIDGenerator func() string
	Now           func() time.Time

	mu      sync.Mutex
	groups  map[model.ActionType]*model.CheckResultGroup
	results map[string]*model.CheckResult
}

func NewCleaner(s store.EntityStore, cfg *config.Config, logger *slog.Logger) *Cleaner {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cleaner{
		Store:         s,
		Registry:      action.Default(),
		Config:        cfg,
		Scope:         geom.NewToleranceScope(cfg.Tolerance),
		Lineage:       fix.NewLineage(),
		Summarizer:    summary.NewSummarizer(logger),
		Logger:        logger,
		UUIDGenerator: func() string { return uuid.New().String() },
		Now:           func() time.Time { return time.Now().UTC() },
		groups:        make(map[model.ActionType]*model.CheckResultGroup),
		results:       make(map[string]*model.CheckResult),
	}
}

// CheckRequest selects what a Check looks at. An empty Selection means the
// whole store; a nil Tolerance means the configured one.
type CheckRequest struct {
	Action    model.ActionType     `json:"action"`
	Tolerance *float64             `json:"tolerance,omitempty"`
	Selection []model.EntityHandle `json:"selection,omitempty"`
}

// ActionInfo is a descriptor with the configured overrides applied.
type ActionInfo struct {
	model.Descriptor
	Tolerance float64 `json:"tolerance"`
	Enabled   bool    `json:"enabled"`
}

// Actions lists every registered action.
func (c *Cleaner) Actions() []ActionInfo {
	var out []ActionInfo
	for _, d := range c.Registry.Catalogue() {
		out = append(out, ActionInfo{
			Descriptor: d,
			Tolerance:  c.Config.ToleranceFor(d.Type),
			Enabled:    c.Config.Enabled(d.Type),
		})
	}
	return out
}

// Check runs the detector of one action and replaces its result group.
func (c *Cleaner) Check(ctx context.Context, req CheckRequest) (*model.CheckResultGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.check(ctx, req)
}

func (c *Cleaner) check(ctx context.Context, req CheckRequest) (_ *model.CheckResultGroup, err error) {
	act, err := c.Registry.Get(req.Action)
	if err != nil {
		return nil, err
	}
	if !c.Config.Enabled(req.Action) {
		return nil, fmt.Errorf("%s: %w", req.Action, ErrActionDisabled)
	}
	limit := c.Config.ToleranceFor(req.Action)
	if req.Tolerance != nil {
		limit = *req.Tolerance
	}
	if limit < 0 {
		return nil, fmt.Errorf("%s: negative tolerance %g", req.Action, limit)
	}

	ctx, span := telemetry.StartSpan(ctx, "Cleaner.Check", string(req.Action))
	var group *model.CheckResultGroup
	defer func() {
		found := 0
		if group != nil {
			found = len(group.Results)
		}
		telemetry.EndSpan(span, err, attribute.Int("topoclean.found", found))
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
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}

	start := time.Now()
	out := act.Check(detect.Params{
		Tol:      guard.Tolerance(),
		Limit:    limit,
		Progress: model.ContextProgress(ctx),
		Logger:   c.Logger,
	}, entities)

	for _, r := range out.Results {
		r.ID = c.UUIDGenerator()
	}
	for _, s := range out.Skipped {
		c.Logger.Warn("entity skipped", "action", req.Action, "handle", s.Handle, "reason", s.Reason)
	}
	group = &model.CheckResultGroup{
		Action:     req.Action,
		Results:    out.Results,
		Skipped:    out.Skipped,
		Incomplete: out.Incomplete,
		Selection:  model.Selection(req.Selection),
		CheckedAt:  c.Now(),
	}
	if old, ok := c.groups[req.Action]; ok {
		for _, r := range old.Results {
			delete(c.results, r.ID)
		}
	}
	c.groups[req.Action] = group
	for _, r := range group.Results {
		c.results[r.ID] = r
	}

	telemetry.RecordCheck(string(req.Action), time.Since(start), len(out.Results), out.Incomplete)
	c.Summarizer.Group(group)
	return group, nil
}

// Fix applies one pending result. The fix outcome is recorded on the
// result; the error is non-nil only when the result cannot be attempted.
func (c *Cleaner) Fix(ctx context.Context, id string) (*model.CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return r, c.fix(ctx, r)
}

func (c *Cleaner) fix(ctx context.Context, r *model.CheckResult) (err error) {
	if r.Status != model.StatusPending {
		return fmt.Errorf("result %s is %s: %w", r.ID, r.Status, model.ErrInvalidTransition)
	}
	act, err := c.Registry.Get(r.Action)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "Cleaner.Fix", string(r.Action))
	defer func() {
		telemetry.EndSpan(span, err, attribute.String("topoclean.status", string(r.Status)))
	}()

	guard := c.Scope.Enter(c.Config.Tolerance)
	defer guard.Release()

	start := time.Now()
	out, ferr := act.Fix(ctx, c.Store, fix.Env{
		Tol:     guard.Tolerance(),
		Options: c.options(),
		Lineage: c.Lineage,
		Logger:  c.Logger,
		Now:     c.Now,
	}, r)
	status := fix.Status(ferr)
	if err := r.Transition(status); err != nil {
		return err
	}
	switch status {
	case model.StatusFixed:
		r.TargetIDs = out.Targets()
	case model.StatusFailed:
		r.Error = ferr.Error()
		c.Logger.Warn("fix failed", "action", r.Action, "result", r.ID, "error", ferr)
	default:
		r.Error = ferr.Error()
		c.Logger.Debug("fix not applied", "action", r.Action, "result", r.ID, "status", status, "error", ferr)
	}
	telemetry.RecordFix(string(r.Action), string(status), time.Since(start))
	return nil
}

func (c *Cleaner) options() fix.Options {
	return fix.Options{
		SplitTargetOnExtend: c.Config.Pipeline.SplitTargetOnExtend,
		ArcMode:             fix.ArcMode(c.Config.Pipeline.ArcFixMode),
	}
}

// FixAll applies every pending result of the latest Check of t, in order.
// A failed result does not stop the rest.
func (c *Cleaner) FixAll(ctx context.Context, t model.ActionType) (summary.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[t]
	if !ok {
		return summary.Summary{}, fmt.Errorf("no check of %s: %w", t, model.ErrResultNotFound)
	}
	return c.fixAll(ctx, g)
}

func (c *Cleaner) fixAll(ctx context.Context, g *model.CheckResultGroup) (summary.Summary, error) {
	for _, r := range g.Pending() {
		if err := ctx.Err(); err != nil {
			return c.Summarizer.Group(g), fmt.Errorf("fixing %s stopped: %w: %w", g.Action, model.ErrCancelled, err)
		}
		if err := c.fix(ctx, r); err != nil {
			return c.Summarizer.Group(g), err
		}
	}
	return c.Summarizer.Group(g), nil
}

// Reject sets a pending result aside.
func (c *Cleaner) Reject(id string) (*model.CheckResult, error) {
	return c.transition(id, model.StatusRejected)
}

// Unreject returns a rejected result to pending.
func (c *Cleaner) Unreject(id string) (*model.CheckResult, error) {
	return c.transition(id, model.StatusPending)
}

func (c *Cleaner) transition(id string, to model.Status) (*model.CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := r.Transition(to); err != nil {
		return r, err
	}
	return r, nil
}

func (c *Cleaner) lookup(id string) (*model.CheckResult, error) {
	r, ok := c.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrResultNotFound, id)
	}
	return r, nil
}

// Result returns one result of a current group.
func (c *Cleaner) Result(id string) (*model.CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(id)
}

// Results returns the latest group of t.
func (c *Cleaner) Results(t model.ActionType) (*model.CheckResultGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[t]
	return g, ok
}

// Groups returns every current group ordered by action.
func (c *Cleaner) Groups() []*model.CheckResultGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.CheckResultGroup, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// Reset forgets all groups and the fix lineage, e.g. after a new drawing
// was loaded.
func (c *Cleaner) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.groups)
	clear(c.results)
	c.Lineage.Reset()
}
