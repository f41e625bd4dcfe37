package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/michezo/core/session"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

type sessionRow struct {
	ID        string    `db:"id"`
	GameID    string    `db:"game_id"`
	Name      string    `db:"name"`
	HostID    string    `db:"host_id"`
	Status    string    `db:"status"`
	CreatedAt null.Time `db:"created_at"`
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	return session.Session{
		ID:        row.ID,
		GameID:    row.GameID,
		Name:      row.Name,
		HostID:    row.HostID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.Time,
	}, nil
}
