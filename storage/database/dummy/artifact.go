package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/michezo/core/artifact"
)

type artifactRepository struct {
	db *artifactTables
}

var _ artifact.Repository = (*artifactRepository)(nil) // interface compliance check

func NewArtifactRepository(db *DB) *artifactRepository {
	return &artifactRepository{db: db.artifact}
}

// SetArtifact seeds an artifact; test helper.
func (repo *artifactRepository) SetArtifact(art artifact.Artifact) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.artifacts[art.ID] = &art
}

// SetVariants seeds an artifact's variants; test helper.
func (repo *artifactRepository) SetVariants(artifactID string, variants []artifact.Variant) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.variants[artifactID] = variants
}

func (repo *artifactRepository) GetArtifact(_ context.Context, id string) (artifact.Artifact, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if art, ok := repo.db.artifacts[id]; ok {
		return *art, nil
	}
	return artifact.Artifact{}, artifact.ErrNotFound
}

func (repo *artifactRepository) GetState(_ context.Context, sessionID, artifactID string) (artifact.State, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.states[stateKey{sessionID, artifactID}]; ok {
		return *st, nil
	}
	return artifact.State{}, artifact.ErrStateNotFound
}

func (repo *artifactRepository) CreateState(_ context.Context, st artifact.State) (artifact.State, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := stateKey{st.SessionID, st.ArtifactID}
	if _, ok := repo.db.states[key]; ok {
		return artifact.State{}, artifact.ErrStateExists
	}
	st.Version = 1
	repo.db.states[key] = &st
	return st, nil
}

func (repo *artifactRepository) UpdateState(_ context.Context, st artifact.State, expectedVersion int) (artifact.State, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := stateKey{st.SessionID, st.ArtifactID}
	cur, ok := repo.db.states[key]
	if !ok || cur.Version != expectedVersion {
		return artifact.State{}, artifact.ErrVersionConflict
	}
	st.Version = expectedVersion + 1
	repo.db.states[key] = &st
	return st, nil
}

func (repo *artifactRepository) ListPublicVariants(_ context.Context, artifactID string) ([]artifact.Variant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var public []artifact.Variant
	for _, v := range repo.db.variants[artifactID] {
		if v.Visibility == artifact.VisibilityPublic {
			public = append(public, v)
		}
	}
	return public, nil
}

func (repo *artifactRepository) RevealVariants(_ context.Context, sessionID string, variantIDs []string, at time.Time) ([]string, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var revealed []string
	for _, id := range variantIDs {
		key := stateKey{sessionID, id}
		if _, ok := repo.db.reveals[key]; ok {
			continue // already revealed to this session
		}
		repo.db.reveals[key] = &artifact.RevealState{SessionID: sessionID, VariantID: id, RevealedAt: at.UTC()}
		revealed = append(revealed, id)
	}
	return revealed, nil
}
