package metrics

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudao/sudao/pkg/contribution"
)

func step(result contribution.StepResult, status contribution.Status) contribution.Transition {
	return contribution.Transition{
		Kind:     contribution.TransitionStep,
		RunID:    "run-1",
		Previous: contribution.StatusInProgress,
		State:    contribution.State{Step: result.Step(), Status: status},
		Result:   result,
		Duration: 120 * time.Millisecond,
	}
}

func TestObserver_CompletedRun(t *testing.T) {
	t.Parallel()

	o := NewObserver()
	ctx := context.Background()

	o.OnTransition(ctx, contribution.Transition{
		Kind:  contribution.TransitionStarted,
		State: contribution.State{Status: contribution.StatusInProgress},
	})
	assert.InDelta(t, 1, testutil.ToFloat64(o.inProgress), 0)

	o.OnTransition(ctx, step(contribution.Approved{AllowanceTxID: big.NewInt(1)}, contribution.StatusInProgress))
	o.OnTransition(ctx, step(contribution.QuoteObtained{ExpectedOut: big.NewInt(2000)}, contribution.StatusInProgress))
	o.OnTransition(ctx, step(contribution.Swapped{ActualOut: big.NewInt(1980)}, contribution.StatusInProgress))
	o.OnTransition(ctx, step(contribution.BalancesChecked{}, contribution.StatusCompleted))

	assert.InDelta(t, 0, testutil.ToFloat64(o.inProgress), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.runs.WithLabelValues("started")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.runs.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.steps.WithLabelValues("swap", "ok")), 0)
	assert.Equal(t, 4, testutil.CollectAndCount(o.stepDuration))
}

func TestObserver_FailedAndRejectedRuns(t *testing.T) {
	t.Parallel()

	o := NewObserver()
	ctx := context.Background()

	o.OnTransition(ctx, contribution.Transition{
		Kind:   contribution.TransitionStarted,
		State:  contribution.State{Status: contribution.StatusFailed},
		Result: contribution.Failed{Kind: contribution.KindValidation},
	})

	o.OnTransition(ctx, contribution.Transition{
		Kind:  contribution.TransitionStarted,
		State: contribution.State{Status: contribution.StatusInProgress},
	})
	o.OnTransition(ctx, step(contribution.Failed{
		StepIndex: contribution.StepSwap,
		Kind:      contribution.KindTransport,
		Err:       errors.New("timeout"),
	}, contribution.StatusFailed))
	o.OnTransition(ctx, contribution.Transition{
		Kind:     contribution.TransitionReconciled,
		Previous: contribution.StatusFailed,
		State:    contribution.State{Status: contribution.StatusFailed},
	})

	assert.InDelta(t, 1, testutil.ToFloat64(o.runs.WithLabelValues("rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.runs.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.steps.WithLabelValues("swap", "transport")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.reconciled), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(o.inProgress), 0)
}

func TestObserver_ResetKeepsInProgressBalanced(t *testing.T) {
	t.Parallel()

	o := NewObserver()
	ctx := context.Background()

	o.OnTransition(ctx, contribution.Transition{
		Kind:  contribution.TransitionStarted,
		State: contribution.State{Status: contribution.StatusInProgress},
	})
	o.OnTransition(ctx, contribution.Transition{
		Kind:     contribution.TransitionReset,
		Previous: contribution.StatusInProgress,
		State:    contribution.State{Status: contribution.StatusInProgress},
	})
	assert.InDelta(t, 1, testutil.ToFloat64(o.inProgress), 0)

	o.OnTransition(ctx, contribution.Transition{
		Kind:     contribution.TransitionReset,
		Previous: contribution.StatusInProgress,
		State:    contribution.State{Status: contribution.StatusFailed},
	})
	assert.InDelta(t, 0, testutil.ToFloat64(o.inProgress), 0)
}

func TestObserver_Handler(t *testing.T) {
	t.Parallel()

	o := NewObserver()
	o.OnTransition(context.Background(), contribution.Transition{
		Kind:  contribution.TransitionStarted,
		State: contribution.State{Status: contribution.StatusInProgress},
	})

	rec := httptest.NewRecorder()
	o.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sudao_contribution_runs_total{outcome="started"} 1`)
	assert.Contains(t, string(body), "sudao_contribution_runs_in_progress 1")
}
