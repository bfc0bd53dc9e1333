// Package persistence stores contribution run records for history and recovery.
package persistence

import (
	"context"

	"github.com/sudao/sudao/pkg/models"
)

// DefaultListLimit caps RunsByOwner when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Journal keeps the latest snapshot of every run. Saving an existing run replaces its
// snapshot but keeps its original CreatedAt.
type Journal interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	RunByID(ctx context.Context, id string) (*models.RunRecord, error)
	// RunsByOwner returns the owner's runs, newest first.
	RunsByOwner(ctx context.Context, owner string, limit int) ([]*models.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}

	return limit
}
