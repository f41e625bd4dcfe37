package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/michezo/core/plan"
)

type planRepository struct {
	db *planTables
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *DB) *planRepository {
	return &planRepository{db: db.plan}
}

// SetPlan seeds a plan; test helper.
func (repo *planRepository) SetPlan(p plan.Plan) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.plans[p.ID] = &p
}

// SetVersion seeds a published version with its frozen blocks; test helper.
func (repo *planRepository) SetVersion(v plan.PlanVersion, blocks []plan.Block) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.versions[v.ID] = &v
	repo.db.versionBlocks[v.ID] = blocks
	if p, ok := repo.db.plans[v.PlanID]; ok {
		p.CurrentVersionID = v.ID
	}
}

// SetDraftBlocks seeds a plan's draft blocks; test helper.
func (repo *planRepository) SetDraftBlocks(planID string, blocks []plan.Block) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.draftBlocks[planID] = blocks
}

func (repo *planRepository) GetPlan(_ context.Context, id string) (plan.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.plans[id]; ok {
		return *p, nil
	}
	return plan.Plan{}, plan.ErrNotFound
}

func (repo *planRepository) GetCurrentVersion(_ context.Context, planID string) (plan.PlanVersion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	p, ok := repo.db.plans[planID]
	if !ok {
		return plan.PlanVersion{}, plan.ErrNotFound
	}
	if p.CurrentVersionID == "" {
		return plan.PlanVersion{}, plan.ErrNoPublishedVersion
	}
	if v, ok := repo.db.versions[p.CurrentVersionID]; ok {
		return *v, nil
	}
	return plan.PlanVersion{}, plan.ErrNoPublishedVersion
}

func (repo *planRepository) GetVersionBlocks(_ context.Context, versionID string) ([]plan.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return sortedBlocks(repo.db.versionBlocks[versionID]), nil
}

func (repo *planRepository) GetDraftBlocks(_ context.Context, planID string) ([]plan.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return sortedBlocks(repo.db.draftBlocks[planID]), nil
}

func sortedBlocks(blocks []plan.Block) []plan.Block {
	out := make([]plan.Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
