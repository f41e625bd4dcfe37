package dummydb

import (
	"context"

	"github.com/trezcool/michezo/core/run"
)

type runRepository struct {
	db *runTable

	// FailCreates makes CreateRun fail; used to exercise the virtual-run
	// degradation path in tests.
	FailCreates error
}

var _ run.Repository = (*runRepository)(nil) // interface compliance check

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db.run}
}

func (repo *runRepository) CreateRun(_ context.Context, r run.Run) (run.Run, error) {
	if repo.FailCreates != nil {
		return run.Run{}, repo.FailCreates
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *runRepository) GetRunByID(_ context.Context, id string) (run.Run, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return run.Run{}, run.ErrNotFound
}
