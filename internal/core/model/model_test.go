package model

import (
	"context"
	"testing"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	for _, to := range []Status{StatusFixed, StatusRejected, StatusInvalid, StatusFailed, StatusNoFixMethod} {
		assert.True(t, CanTransition(StatusPending, to), to)
	}
	assert.True(t, CanTransition(StatusRejected, StatusPending))

	// Terminal states never move
	for _, from := range []Status{StatusFixed, StatusInvalid, StatusFailed, StatusNoFixMethod} {
		assert.True(t, from.Final())
		assert.False(t, CanTransition(from, StatusPending))
	}
	assert.False(t, CanTransition(StatusRejected, StatusFixed))
	assert.False(t, CanTransition(StatusPending, StatusPending))
}

func TestCheckResult_RejectUnreject(t *testing.T) {
	r := NewResult(ZeroLength, MeasurePayload{Measure: "length", Value: 0}, "h1")
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "measure", r.Kind)

	require.NoError(t, r.Transition(StatusRejected))
	err := r.Transition(StatusFixed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, r.Transition(StatusPending))
	require.NoError(t, r.Transition(StatusFixed))
	assert.ErrorIs(t, r.Transition(StatusPending), ErrInvalidTransition)
}

func TestCatalogue(t *testing.T) {
	cat := Catalogue()
	assert.Len(t, cat, 26)
	for i := 1; i < len(cat); i++ {
		assert.Less(t, cat[i-1].Type, cat[i].Type)
	}

	d, err := Describe(SharpCornerPolygon)
	require.NoError(t, err)
	assert.False(t, d.Fixable)
	assert.True(t, d.HasParameters)

	_, err = ParseActionType("Nope")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSelection(t *testing.T) {
	s := Selection{"a", "b", "c"}

	assert.Equal(t, Selection{"a", "b", "c", "d"}, s.Union([]EntityHandle{"b", "d"}))
	assert.Equal(t, Selection{"a", "c"}, s.Minus([]EntityHandle{"b", "x"}))
	assert.True(t, s.Contains("c"))
	assert.False(t, s.Contains("z"))
}

func TestGroupCounts(t *testing.T) {
	g := &CheckResultGroup{Action: BreakCrossing}
	for i := 0; i < 3; i++ {
		g.Results = append(g.Results, NewResult(BreakCrossing, CrossingPayload{Points: []geom.Point{geom.Pt(5, 5)}}))
	}
	require.NoError(t, g.Results[0].Transition(StatusFixed))

	assert.Len(t, g.Pending(), 2)
	assert.Equal(t, map[Status]int{StatusPending: 2, StatusFixed: 1}, g.Counts())
	assert.Contains(t, g.Results[1].Message, "(5, 5)")
}

func TestContextProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := ContextProgress(ctx)
	p.Tick()
	assert.False(t, p.Cancelled())
	cancel()
	assert.True(t, p.Cancelled())

	limited := &CountingProgress{Limit: 2}
	limited.Tick()
	assert.False(t, limited.Cancelled())
	limited.Tick()
	assert.True(t, limited.Cancelled())
}
