package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/michezo/core/plan"
)

type planRepository struct {
	db *sqlx.DB
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *sqlx.DB) *planRepository {
	return &planRepository{db: db}
}

type (
	planRow struct {
		ID               string      `db:"id"`
		OrgID            string      `db:"org_id"`
		Name             string      `db:"name"`
		CurrentVersionID null.String `db:"current_version_id"`
		CreatedAt        null.Time   `db:"created_at"`
		UpdatedAt        null.Time   `db:"updated_at"`
	}

	planVersionRow struct {
		ID                   string    `db:"id"`
		PlanID               string    `db:"plan_id"`
		Number               int       `db:"number"`
		TotalDurationMinutes int       `db:"total_duration_minutes"`
		PublishedAt          null.Time `db:"published_at"`
	}

	blockRow struct {
		ID              string      `db:"id"`
		PlanID          null.String `db:"plan_id"`
		VersionID       null.String `db:"version_id"`
		Position        int         `db:"position"`
		BlockType       string      `db:"block_type"`
		DurationMinutes int         `db:"duration_minutes"`
		Title           string      `db:"title"`
		Notes           string      `db:"notes"`
		IsOptional      bool        `db:"is_optional"`
		GameSnapshot    null.JSON   `db:"game_snapshot"`
	}
)

func (row planRow) unboil() plan.Plan {
	return plan.Plan{
		ID:               row.ID,
		OrgID:            row.OrgID,
		Name:             row.Name,
		CurrentVersionID: row.CurrentVersionID.String,
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
	}
}

func (row blockRow) unboil() (plan.Block, error) {
	blk := plan.Block{
		ID:              row.ID,
		Position:        row.Position,
		Type:            row.BlockType,
		DurationMinutes: row.DurationMinutes,
		Title:           row.Title,
		Notes:           row.Notes,
		IsOptional:      row.IsOptional,
	}
	if row.GameSnapshot.Valid && len(row.GameSnapshot.JSON) > 0 {
		snap := new(plan.GameSnapshot)
		if err := json.Unmarshal(row.GameSnapshot.JSON, snap); err != nil {
			return plan.Block{}, errors.Wrap(err, "decoding game snapshot")
		}
		blk.GameSnapshot = snap
	}
	return blk, nil
}

func (repo *planRepository) GetPlan(ctx context.Context, id string) (plan.Plan, error) {
	var row planRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM plan WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return plan.Plan{}, plan.ErrNotFound
		}
		return plan.Plan{}, errors.Wrap(err, "getting plan")
	}
	return row.unboil(), nil
}

func (repo *planRepository) GetCurrentVersion(ctx context.Context, planID string) (plan.PlanVersion, error) {
	var row planVersionRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT v.* FROM plan_version v
		JOIN plan p ON p.current_version_id = v.id
		WHERE p.id = $1`, planID)
	if err != nil {
		if err == sql.ErrNoRows {
			return plan.PlanVersion{}, plan.ErrNoPublishedVersion
		}
		return plan.PlanVersion{}, errors.Wrap(err, "getting current version")
	}
	return plan.PlanVersion{
		ID:                   row.ID,
		PlanID:               row.PlanID,
		Number:               row.Number,
		TotalDurationMinutes: row.TotalDurationMinutes,
		PublishedAt:          row.PublishedAt.Time,
	}, nil
}

func (repo *planRepository) GetVersionBlocks(ctx context.Context, versionID string) ([]plan.Block, error) {
	return repo.queryBlocks(ctx, `SELECT * FROM block WHERE version_id = $1 ORDER BY position`, versionID)
}

func (repo *planRepository) GetDraftBlocks(ctx context.Context, planID string) ([]plan.Block, error) {
	return repo.queryBlocks(ctx, `SELECT * FROM block WHERE plan_id = $1 AND version_id IS NULL ORDER BY position`, planID)
}

func (repo *planRepository) queryBlocks(ctx context.Context, query, arg string) ([]plan.Block, error) {
	var rows []blockRow
	if err := repo.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, errors.Wrap(err, "querying blocks")
	}

	blocks := make([]plan.Block, 0, len(rows))
	for _, row := range rows {
		blk, err := row.unboil()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}
