package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/michezo/core/run"
)

type runRepository struct {
	db *sqlx.DB
}

var _ run.Repository = (*runRepository)(nil) // interface compliance check

func NewRunRepository(db *sqlx.DB) *runRepository {
	return &runRepository{db: db}
}

type runRow struct {
	ID                   string      `db:"id"`
	PlanID               string      `db:"plan_id"`
	PlanVersionID        null.String `db:"plan_version_id"`
	VersionNumber        int         `db:"version_number"`
	Name                 string      `db:"name"`
	Status               string      `db:"status"`
	Steps                []byte      `db:"steps"`
	BlockCount           int         `db:"block_count"`
	TotalDurationMinutes int         `db:"total_duration_minutes"`
	CurrentStepIndex     int         `db:"current_step_index"`
	StartedBy            string      `db:"started_by"`
	StartedAt            null.Time   `db:"started_at"`
	CompletedAt          null.Time   `db:"completed_at"`
}

func (row runRow) unboil() (run.Run, error) {
	var steps []run.Step
	if err := json.Unmarshal(row.Steps, &steps); err != nil {
		return run.Run{}, errors.Wrap(err, "decoding run steps")
	}
	r := run.Run{
		ID:                   row.ID,
		Kind:                 run.KindPersisted,
		PlanID:               row.PlanID,
		PlanVersionID:        row.PlanVersionID.String,
		VersionNumber:        row.VersionNumber,
		Name:                 row.Name,
		Status:               row.Status,
		Steps:                steps,
		BlockCount:           row.BlockCount,
		TotalDurationMinutes: row.TotalDurationMinutes,
		CurrentStepIndex:     row.CurrentStepIndex,
		StartedBy:            row.StartedBy,
		StartedAt:            row.StartedAt.Time,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		r.CompletedAt = &t
	}
	return r, nil
}

func (repo *runRepository) CreateRun(ctx context.Context, r run.Run) (run.Run, error) {
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return run.Run{}, errors.Wrap(err, "encoding run steps")
	}

	_, err = repo.db.ExecContext(ctx, `
		INSERT INTO run (id, plan_id, plan_version_id, version_number, name, status, steps,
		                 block_count, total_duration_minutes, current_step_index, started_by, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.PlanID, null.NewString(r.PlanVersionID, r.PlanVersionID != ""), r.VersionNumber,
		r.Name, r.Status, steps, r.BlockCount, r.TotalDurationMinutes,
		r.CurrentStepIndex, r.StartedBy, r.StartedAt.UTC(),
	)
	if err != nil {
		return run.Run{}, errors.Wrap(err, "inserting run")
	}
	r.Kind = run.KindPersisted
	return r, nil
}

func (repo *runRepository) GetRunByID(ctx context.Context, id string) (run.Run, error) {
	var row runRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM run WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return run.Run{}, run.ErrNotFound
		}
		return run.Run{}, errors.Wrap(err, "getting run")
	}
	return row.unboil()
}
