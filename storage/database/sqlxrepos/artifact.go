package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/michezo/core/artifact"
)

type artifactRepository struct {
	db *sqlx.DB
}

var _ artifact.Repository = (*artifactRepository)(nil) // interface compliance check

func NewArtifactRepository(db *sqlx.DB) *artifactRepository {
	return &artifactRepository{db: db}
}

type (
	artifactRow struct {
		ID             string      `db:"id"`
		GameID         string      `db:"game_id"`
		Kind           string      `db:"kind"`
		Title          string      `db:"title"`
		CorrectCode    null.String `db:"correct_code"`
		CodeLength     null.Int    `db:"code_length"`
		MaxAttempts    null.Int    `db:"max_attempts"`
		LockOnFail     bool        `db:"lock_on_fail"`
		SuccessMessage string      `db:"success_message"`
		FailMessage    string      `db:"fail_message"`
		LockedMessage  string      `db:"locked_message"`
	}

	stateRow struct {
		SessionID    string    `db:"session_id"`
		ArtifactID   string    `db:"artifact_id"`
		AttemptCount int       `db:"attempt_count"`
		IsUnlocked   bool      `db:"is_unlocked"`
		IsLockedOut  bool      `db:"is_locked_out"`
		UnlockedAt   null.Time `db:"unlocked_at"`
		UnlockedBy   string    `db:"unlocked_by"`
		Version      int       `db:"version"`
	}

	variantRow struct {
		ID         string `db:"id"`
		ArtifactID string `db:"artifact_id"`
		Title      string `db:"title"`
		Visibility string `db:"visibility"`
	}
)

func (row artifactRow) unboil() artifact.Artifact {
	art := artifact.Artifact{
		ID:     row.ID,
		GameID: row.GameID,
		Kind:   row.Kind,
		Title:  row.Title,
	}
	if row.Kind == artifact.KindKeypad {
		art.Keypad = &artifact.KeypadConfig{
			CorrectCode:    row.CorrectCode.String,
			CodeLength:     row.CodeLength.Int,
			MaxAttempts:    row.MaxAttempts,
			LockOnFail:     row.LockOnFail,
			SuccessMessage: row.SuccessMessage,
			FailMessage:    row.FailMessage,
			LockedMessage:  row.LockedMessage,
		}
	}
	return art
}

func (row stateRow) unboil() artifact.State {
	return artifact.State{
		SessionID:    row.SessionID,
		ArtifactID:   row.ArtifactID,
		AttemptCount: row.AttemptCount,
		IsUnlocked:   row.IsUnlocked,
		IsLockedOut:  row.IsLockedOut,
		UnlockedAt:   row.UnlockedAt,
		UnlockedBy:   row.UnlockedBy,
		Version:      row.Version,
	}
}

func (repo *artifactRepository) GetArtifact(ctx context.Context, id string) (artifact.Artifact, error) {
	var row artifactRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM artifact WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return artifact.Artifact{}, artifact.ErrNotFound
		}
		return artifact.Artifact{}, errors.Wrap(err, "getting artifact")
	}
	return row.unboil(), nil
}

func (repo *artifactRepository) GetState(ctx context.Context, sessionID, artifactID string) (artifact.State, error) {
	var row stateRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM artifact_state WHERE session_id = $1 AND artifact_id = $2`, sessionID, artifactID)
	if err != nil {
		if err == sql.ErrNoRows {
			return artifact.State{}, artifact.ErrStateNotFound
		}
		return artifact.State{}, errors.Wrap(err, "getting artifact state")
	}
	return row.unboil(), nil
}

func (repo *artifactRepository) CreateState(ctx context.Context, st artifact.State) (artifact.State, error) {
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO artifact_state (session_id, artifact_id, attempt_count, is_unlocked, is_locked_out, unlocked_by, version)
		VALUES ($1, $2, 0, FALSE, FALSE, '', 1)
		ON CONFLICT (session_id, artifact_id) DO NOTHING`,
		st.SessionID, st.ArtifactID,
	)
	if err != nil {
		return artifact.State{}, errors.Wrap(err, "inserting artifact state")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return artifact.State{}, artifact.ErrStateExists
	}
	st.AttemptCount = 0
	st.IsUnlocked = false
	st.IsLockedOut = false
	st.Version = 1
	return st, nil
}

// UpdateState is the serialization point for concurrent attempts: the update
// only lands when the row still carries expectedVersion, so racing
// participants are linearized by the store.
func (repo *artifactRepository) UpdateState(ctx context.Context, st artifact.State, expectedVersion int) (artifact.State, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE artifact_state
		SET attempt_count = $3, is_unlocked = $4, is_locked_out = $5, unlocked_at = $6, unlocked_by = $7, version = $8
		WHERE session_id = $1 AND artifact_id = $2 AND version = $9`,
		st.SessionID, st.ArtifactID,
		st.AttemptCount, st.IsUnlocked, st.IsLockedOut, st.UnlockedAt, st.UnlockedBy,
		expectedVersion+1, expectedVersion,
	)
	if err != nil {
		return artifact.State{}, errors.Wrap(err, "updating artifact state")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return artifact.State{}, errors.Wrap(err, "updating artifact state")
	}
	if n == 0 {
		return artifact.State{}, artifact.ErrVersionConflict
	}
	st.Version = expectedVersion + 1
	return st, nil
}

func (repo *artifactRepository) ListPublicVariants(ctx context.Context, artifactID string) ([]artifact.Variant, error) {
	var rows []variantRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM artifact_variant WHERE artifact_id = $1 AND visibility = $2 ORDER BY id`,
		artifactID, artifact.VisibilityPublic)
	if err != nil {
		return nil, errors.Wrap(err, "querying variants")
	}

	variants := make([]artifact.Variant, 0, len(rows))
	for _, row := range rows {
		variants = append(variants, artifact.Variant(row))
	}
	return variants, nil
}

func (repo *artifactRepository) RevealVariants(ctx context.Context, sessionID string, variantIDs []string, at time.Time) ([]string, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}

	// ON CONFLICT DO NOTHING keyed on (session_id, variant_id) makes the
	// upsert idempotent; RETURNING yields only the rows this call inserted.
	var revealed []string
	err := repo.db.SelectContext(ctx, &revealed, `
		INSERT INTO variant_reveal (session_id, variant_id, revealed_at)
		SELECT $1, unnest($2::text[]), $3
		ON CONFLICT (session_id, variant_id) DO NOTHING
		RETURNING variant_id`,
		sessionID, pq.Array(variantIDs), at.UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "revealing variants")
	}
	return revealed, nil
}
