// Package metrics exposes contribution workflow metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sudao/sudao/pkg/contribution"
)

const namespace = "sudao"

// Observer records run transitions on its own registry.
type Observer struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	inProgress   prometheus.Gauge
	reconciled   prometheus.Counter
}

func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contribution_runs_total",
			Help:      "Contribution runs by outcome (started, rejected, completed, failed, reset).",
		}, []string{"outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contribution_steps_total",
			Help:      "Executed contribution steps by step and result.",
		}, []string{"step", "result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "contribution_step_duration_seconds",
			Help:      "Duration of the remote call of each contribution step.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"step"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contribution_runs_in_progress",
			Help:      "Runs started and not yet terminal.",
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contribution_reconciliations_total",
			Help:      "Balance reconciliations requested after a run.",
		}),
	}

	o.registry.MustRegister(
		o.runs, o.steps, o.stepDuration, o.inProgress, o.reconciled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return o
}

func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}

func (o *Observer) OnTransition(_ context.Context, t contribution.Transition) {
	switch t.Kind {
	case contribution.TransitionStarted:
		if t.State.Failed() {
			o.runs.WithLabelValues("rejected").Inc()

			return
		}

		o.runs.WithLabelValues("started").Inc()
		o.inProgress.Inc()
	case contribution.TransitionStep:
		o.observeStep(t)
	case contribution.TransitionReset:
		o.runs.WithLabelValues("reset").Inc()

		if !t.Previous.Terminal() {
			o.inProgress.Dec()
		}

		if !t.State.Status.Terminal() {
			o.inProgress.Inc()
		}
	case contribution.TransitionReconciled:
		o.reconciled.Inc()
	}
}

func (o *Observer) observeStep(t contribution.Transition) {
	if t.Result == nil {
		return
	}

	step := t.Result.Step().String()
	result := "ok"

	if failed, ok := t.Result.(contribution.Failed); ok {
		result = string(failed.Kind)
	}

	o.steps.WithLabelValues(step, result).Inc()
	o.stepDuration.WithLabelValues(step).Observe(t.Duration.Seconds())

	if t.Previous.Terminal() || !t.State.Status.Terminal() {
		return
	}

	o.inProgress.Dec()
	o.runs.WithLabelValues(string(t.State.Status)).Inc()
}
