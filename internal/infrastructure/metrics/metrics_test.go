package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/domain/event"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: x", draft.ErrWorkflowViolation), "violation"},
		{fmt.Errorf("%w: x", draft.ErrAccessDenied), "denied"},
		{fmt.Errorf("%w: x", draft.ErrNotFound), "not_found"},
		{fmt.Errorf("%w: x", draft.ErrConcurrentModification), "conflict"},
		{fmt.Errorf("%w: x", draft.ErrInvalidArgument), "invalid"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("approve", nil, 10*time.Millisecond)
	m.ObserveOperation("approve", nil, 20*time.Millisecond)
	m.ObserveOperation("approve", draft.ErrAccessDenied, time.Millisecond)
	m.ObserveStatusChange(draft.StatusInReview, draft.StatusApproved)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("approve", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusChanges.WithLabelValues("IN_REVIEW", "APPROVED")))

	require.NoError(t, m.CountEvent(context.Background(), event.NewEvent(event.TypeDraftApproved, 1, "tom", nil)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("draft.approved")))

	count, err := testutil.GatherAndCount(reg, "draftflow_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
