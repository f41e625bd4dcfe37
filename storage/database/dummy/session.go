package dummydb

import (
	"context"

	"github.com/trezcool/michezo/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

// SetSession seeds a session; test helper.
func (repo *sessionRepository) SetSession(s session.Session) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[s.ID] = &s
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrNotFound
}
