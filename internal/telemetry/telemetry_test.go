package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCheck(t *testing.T) {
	before := testutil.ToFloat64(defectsFound.WithLabelValues("TestAction"))
	RecordCheck("TestAction", time.Millisecond, 3, false)
	RecordCheck("TestAction", time.Millisecond, 2, true)

	assert.Equal(t, before+5, testutil.ToFloat64(defectsFound.WithLabelValues("TestAction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(checkTotal.WithLabelValues("TestAction", "false")))
}

func TestRecordFix(t *testing.T) {
	RecordFix("TestFix", "fixed", time.Millisecond)
	RecordFix("TestFix", "fixed", time.Millisecond)
	RecordFix("TestFix", "failed", time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(fixTotal.WithLabelValues("TestFix", "fixed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fixTotal.WithLabelValues("TestFix", "failed")))
}

func TestSpans_NoProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Cleaner.Check", "ZeroLength")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("boom"))
}
