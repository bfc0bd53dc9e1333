// Package file stores run records as JSON files under a root directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/persistence"
)

const runsDir = "runs"

// Journal implements persistence.Journal on the local file system.
type Journal struct {
	root string
	mu   sync.RWMutex
}

// NewJournal accepts a plain path or a file:// URL.
func NewJournal(root string) (*Journal, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	err := os.MkdirAll(filepath.Join(cleanRoot, runsDir), 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &Journal{root: cleanRoot}, nil
}

func (j *Journal) Close(_ context.Context) error {
	return nil
}

func (j *Journal) HealthCheck(_ context.Context) error {
	_, err := os.Stat(filepath.Join(j.root, runsDir))

	return err
}

func (j *Journal) path(id string) string {
	return filepath.Join(j.root, runsDir, filepath.Base(id)+".json")
}

func (j *Journal) SaveRun(_ context.Context, run *models.RunRecord) error {
	err := persistence.ValidateRun(run)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	existing, err := j.read(run.ID)
	if err != nil && !errors.Is(err, persistence.ErrRunNotFound) {
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	record := *run
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	tmp := j.path(run.ID) + ".tmp"

	err = os.WriteFile(tmp, data, 0o600)
	if err != nil {
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	err = os.Rename(tmp, j.path(run.ID))
	if err != nil {
		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	return nil
}

func (j *Journal) RunByID(_ context.Context, id string) (*models.RunRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	run, err := j.read(id)
	if err != nil {
		return nil, persistence.NewRunError("RunByID", id, err)
	}

	return run, nil
}

func (j *Journal) read(id string) (*models.RunRecord, error) {
	data, err := os.ReadFile(j.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.ErrRunNotFound
	}

	if err != nil {
		return nil, err
	}

	var run models.RunRecord

	err = json.Unmarshal(data, &run)
	if err != nil {
		return nil, fmt.Errorf("failed to decode run file: %w", err)
	}

	return &run, nil
}

func (j *Journal) RunsByOwner(_ context.Context, owner string, limit int) ([]*models.RunRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(filepath.Join(j.root, runsDir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.RunRecord, 0)

	for _, file := range files {
		run, err := j.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", file, err)
		}

		if run.Owner == owner {
			runs = append(runs, run)
		}
	}

	sort.SliceStable(runs, func(a, b int) bool {
		return runs[a].CreatedAt.After(runs[b].CreatedAt)
	})

	return runs[:min(len(runs), persistence.NormalizeLimit(limit))], nil
}

func (j *Journal) DeleteRun(_ context.Context, id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := os.Remove(j.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewRunError("DeleteRun", id, persistence.ErrRunNotFound)
	}

	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	return nil
}
