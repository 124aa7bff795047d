package summary

import (
	"testing"

	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func group(action model.ActionType, statuses ...model.Status) *model.CheckResultGroup {
	g := &model.CheckResultGroup{Action: action}
	for _, s := range statuses {
		g.Results = append(g.Results, &model.CheckResult{Action: action, Status: s})
	}
	return g
}

func TestGroup(t *testing.T) {
	s := NewSummarizer(nil)
	g := group(model.BreakCrossing, model.StatusFixed, model.StatusFixed, model.StatusFailed, model.StatusPending)
	g.Skipped = []model.Skip{{Handle: "h9", Reason: "single vertex"}}

	sum := s.Group(g)
	assert.Equal(t, 4, sum.Found)
	assert.Equal(t, 2, sum.Fixed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, "BreakCrossing: 4 defects found, 2 fixed, 1 failed, 1 entities skipped", sum.String())
}

func TestGroup_Nil(t *testing.T) {
	assert.Equal(t, Summary{}, NewSummarizer(nil).Group(nil))
}

func TestString_ReportOnly(t *testing.T) {
	sum := Summary{Action: model.FindDangling, Found: 3, NoFixMethod: 3, Incomplete: true}
	assert.Equal(t, "FindDangling: 3 defects found, 0 fixed, 0 failed, 3 report only (incomplete)", sum.String())
}

func TestLines(t *testing.T) {
	s := NewSummarizer(nil)
	batches := []Summary{
		s.Group(group(model.ZeroLength, model.StatusFixed)),
		s.Group(group(model.BreakCrossing, model.StatusFixed, model.StatusInvalid)),
	}
	lines := s.Lines(batches)
	assert.Equal(t, []string{
		"ZeroLength: 1 defects found, 1 fixed, 0 failed",
		"BreakCrossing: 2 defects found, 1 fixed, 0 failed, 1 stale",
		"total: 3 defects found, 2 fixed, 0 failed, 1 stale",
	}, lines)
}
