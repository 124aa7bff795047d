package model

import "context"

// ProgressSink receives progress ticks from long-running detectors and is
// polled for cooperative cancellation between top-level iterations.
type ProgressSink interface {
	Tick()
	Cancelled() bool
}

type nopProgress struct{}

func (nopProgress) Tick()           {}
func (nopProgress) Cancelled() bool { return false }

// NopProgress never cancels.
var NopProgress ProgressSink = nopProgress{}

// ContextProgress reports cancellation when ctx is done and counts ticks.
func ContextProgress(ctx context.Context) *CountingProgress {
	return &CountingProgress{ctx: ctx}
}

// CountingProgress counts ticks and optionally cancels after a limit.
type CountingProgress struct {
	ctx   context.Context
	Ticks int
	// Limit cancels once Ticks reaches it. Zero means no limit.
	Limit int
}

func (p *CountingProgress) Tick() {
	p.Ticks++
}

func (p *CountingProgress) Cancelled() bool {
	if p.Limit > 0 && p.Ticks >= p.Limit {
		return true
	}
	if p.ctx != nil && p.ctx.Err() != nil {
		return true
	}
	return false
}
