package main

import (
	"context"
	"log/slog"

	"github.com/sudao/sudao/pkg/contribution"
)

// progress logs each executed step as the run advances.
func progress(logger *slog.Logger) contribution.Observer {
	return contribution.ObserverFunc(func(ctx context.Context, t contribution.Transition) {
		if t.Kind != contribution.TransitionStep || t.Result == nil {
			return
		}

		logger.InfoContext(ctx, "Step finished",
			"run_id", t.RunID,
			"step", t.Result.Step().String(),
			"status", t.State.Status,
			"duration", t.Duration,
		)
	})
}
