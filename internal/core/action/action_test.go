package action

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthands/topoclean/internal/core/detect"
	"github.com/agenthands/topoclean/internal/core/fix"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversCatalogue(t *testing.T) {
	r := Default()
	assert.Equal(t, model.Catalogue(), r.Catalogue())
	for _, d := range model.Catalogue() {
		a, err := r.Get(d.Type)
		require.NoError(t, err, d.Type)
		impl := a.(*action)
		assert.Equal(t, d.Fixable, impl.fix != nil, "fixability of %s", d.Type)
	}
}

func TestGet_Unknown(t *testing.T) {
	_, err := Default().Get("Teleport")
	assert.True(t, errors.Is(err, model.ErrUnknownAction))
}

func TestNew_RequiresDetector(t *testing.T) {
	_, err := New(model.ZeroLength, nil, nil)
	assert.Error(t, err)

	_, err = New("Teleport", detect.ZeroLength, nil)
	assert.True(t, errors.Is(err, model.ErrUnknownAction))
}

func TestReportOnlyFix(t *testing.T) {
	s := store.NewMemoryStore()
	h, err := s.Add(context.Background(), geom.Line(geom.Pt(0, 0), geom.Pt(1, 0)))
	require.NoError(t, err)

	a, err := Default().Get(model.FindDangling)
	require.NoError(t, err)
	out := a.Check(detect.Params{Tol: geom.DefaultTolerance}, []model.Entity{{Handle: h, Geometry: geom.Line(geom.Pt(0, 0), geom.Pt(1, 0))}})
	require.NotEmpty(t, out.Results)

	_, err = a.Fix(context.Background(), s, fix.Env{Tol: geom.DefaultTolerance}, out.Results[0])
	assert.True(t, errors.Is(err, model.ErrNoFixMethod))
	assert.Equal(t, model.StatusNoFixMethod, fix.Status(err))
}

func TestRegister_Overrides(t *testing.T) {
	r := Default()
	called := false
	a, err := New(model.ZeroLength, func(p detect.Params, es []model.Entity) model.CheckOutcome {
		called = true
		return model.CheckOutcome{}
	}, nil)
	require.NoError(t, err)
	r.Register(a)

	got, err := r.Get(model.ZeroLength)
	require.NoError(t, err)
	got.Check(detect.Params{}, nil)
	assert.True(t, called)
	assert.Len(t, r.Catalogue(), len(model.Catalogue()))
}
