// Package summary turns result groups into the counts shown after every
// batch.
package summary

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/agenthands/topoclean/internal/core/model"
)

// Summary tallies one action's results.
type Summary struct {
	Action      model.ActionType `json:"action"`
	Found       int              `json:"found"`
	Fixed       int              `json:"fixed"`
	Failed      int              `json:"failed"`
	Invalid     int              `json:"invalid"`
	Rejected    int              `json:"rejected"`
	NoFixMethod int              `json:"no_fix_method"`
	Pending     int              `json:"pending"`
	Skipped     int              `json:"skipped"`
	Incomplete  bool             `json:"incomplete"`
}

func (s Summary) String() string {
	var b strings.Builder
	if s.Action != "" {
		fmt.Fprintf(&b, "%s: ", s.Action)
	}
	fmt.Fprintf(&b, "%d defects found, %d fixed, %d failed", s.Found, s.Fixed, s.Failed)
	if s.Invalid > 0 {
		fmt.Fprintf(&b, ", %d stale", s.Invalid)
	}
	if s.Rejected > 0 {
		fmt.Fprintf(&b, ", %d rejected", s.Rejected)
	}
	if s.NoFixMethod > 0 {
		fmt.Fprintf(&b, ", %d report only", s.NoFixMethod)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d entities skipped", s.Skipped)
	}
	if s.Incomplete {
		b.WriteString(" (incomplete)")
	}
	return b.String()
}

// Add folds o into s. The action is kept only when both agree.
func (s Summary) Add(o Summary) Summary {
	if s.Action != o.Action {
		s.Action = ""
	}
	s.Found += o.Found
	s.Fixed += o.Fixed
	s.Failed += o.Failed
	s.Invalid += o.Invalid
	s.Rejected += o.Rejected
	s.NoFixMethod += o.NoFixMethod
	s.Pending += o.Pending
	s.Skipped += o.Skipped
	s.Incomplete = s.Incomplete || o.Incomplete
	return s
}

// Summarizer renders and logs batch summaries.
type Summarizer struct {
	Logger *slog.Logger
}

func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Summarizer{Logger: logger}
}

// Group tallies the current statuses of g.
func (s *Summarizer) Group(g *model.CheckResultGroup) Summary {
	if g == nil {
		return Summary{}
	}
	c := g.Counts()
	sum := Summary{
		Action:      g.Action,
		Found:       len(g.Results),
		Fixed:       c[model.StatusFixed],
		Failed:      c[model.StatusFailed],
		Invalid:     c[model.StatusInvalid],
		Rejected:    c[model.StatusRejected],
		NoFixMethod: c[model.StatusNoFixMethod],
		Pending:     c[model.StatusPending],
		Skipped:     len(g.Skipped),
		Incomplete:  g.Incomplete,
	}
	s.Logger.Info(sum.String(), "action", g.Action, "found", sum.Found, "fixed", sum.Fixed, "failed", sum.Failed)
	return sum
}

// Total folds the summaries of several batches into one.
func (s *Summarizer) Total(batches []Summary) Summary {
	var total Summary
	for i, b := range batches {
		if i == 0 {
			total = b
			continue
		}
		total = total.Add(b)
	}
	return total
}

// Lines renders one line per batch and a closing total.
func (s *Summarizer) Lines(batches []Summary) []string {
	out := make([]string, 0, len(batches)+1)
	for _, b := range batches {
		out = append(out, b.String())
	}
	if len(batches) > 1 {
		t := s.Total(batches)
		t.Action = ""
		out = append(out, "total: "+t.String())
	}
	return out
}
