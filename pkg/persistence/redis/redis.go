// Package redis stores run records in Redis: one JSON string per run plus a sorted
// set per owner ordered by creation time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/persistence"
)

const defaultPrefix = "sudao:"

type Journal struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
}

// NewJournal connects to a redis:// URL and pings it.
func NewJournal(ctx context.Context, logger *slog.Logger, url string) (*Journal, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	journal := NewJournalWithClient(logger, redis.NewClient(opts))

	err = journal.HealthCheck(ctx)
	if err != nil {
		_ = journal.client.Close()

		return nil, err
	}

	return journal, nil
}

func NewJournalWithClient(logger *slog.Logger, client redis.UniversalClient) *Journal {
	return &Journal{
		client: client,
		logger: logger.With("module", "redis_journal"),
		prefix: defaultPrefix,
	}
}

func (j *Journal) runKey(id string) string {
	return j.prefix + "run:" + id
}

func (j *Journal) ownerKey(owner string) string {
	return j.prefix + "owner:" + owner + ":runs"
}

func (j *Journal) HealthCheck(ctx context.Context) error {
	err := j.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (j *Journal) Close(_ context.Context) error {
	return j.client.Close()
}

func (j *Journal) SaveRun(ctx context.Context, run *models.RunRecord) error {
	err := persistence.ValidateRun(run)
	if err != nil {
		return err
	}

	record := *run

	existing, err := j.get(ctx, run.ID)

	switch {
	case err == nil:
		record.CreatedAt = existing.CreatedAt
	case !errors.Is(err, persistence.ErrRunNotFound):
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	_, err = j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, j.runKey(record.ID), data, 0)
		pipe.ZAdd(ctx, j.ownerKey(record.Owner), redis.Z{
			Score:  float64(record.CreatedAt.UnixMilli()),
			Member: record.ID,
		})

		return nil
	})
	if err != nil {
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	j.logger.DebugContext(ctx, "Run journaled", "run_id", record.ID, "status", record.Status)

	return nil
}

func (j *Journal) get(ctx context.Context, id string) (*models.RunRecord, error) {
	data, err := j.client.Get(ctx, j.runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.ErrRunNotFound
	}

	if err != nil {
		return nil, err
	}

	var run models.RunRecord

	err = json.Unmarshal(data, &run)
	if err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}

	return &run, nil
}

func (j *Journal) RunByID(ctx context.Context, id string) (*models.RunRecord, error) {
	run, err := j.get(ctx, id)
	if err != nil {
		return nil, persistence.NewRunError("RunByID", id, err)
	}

	return run, nil
}

func (j *Journal) RunsByOwner(ctx context.Context, owner string, limit int) ([]*models.RunRecord, error) {
	ids, err := j.client.ZRevRange(ctx, j.ownerKey(owner), 0, int64(persistence.NormalizeLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs of %s: %w", owner, err)
	}

	runs := make([]*models.RunRecord, 0, len(ids))

	for _, id := range ids {
		run, err := j.get(ctx, id)
		if errors.Is(err, persistence.ErrRunNotFound) {
			continue
		}

		if err != nil {
			return nil, persistence.NewRunError("RunsByOwner", id, err)
		}

		runs = append(runs, run)
	}

	return runs, nil
}

func (j *Journal) DeleteRun(ctx context.Context, id string) error {
	run, err := j.get(ctx, id)
	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	_, err = j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, j.runKey(id))
		pipe.ZRem(ctx, j.ownerKey(run.Owner), id)

		return nil
	})
	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	return nil
}
