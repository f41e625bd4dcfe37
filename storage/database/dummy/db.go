package dummydb

import (
	"sync"

	"github.com/trezcool/michezo/core/artifact"
	"github.com/trezcool/michezo/core/plan"
	"github.com/trezcool/michezo/core/run"
	"github.com/trezcool/michezo/core/session"
)

type (
	// DB is an in-memory store with the same repository surface as the real
	// database; used by tests and as a scratch backend in DEV.
	DB struct {
		plan     *planTables
		run      *runTable
		session  *sessionTable
		artifact *artifactTables
	}

	planTables struct {
		sync.RWMutex
		plans         map[string]*plan.Plan
		versions      map[string]*plan.PlanVersion // by version ID
		versionBlocks map[string][]plan.Block      // by version ID
		draftBlocks   map[string][]plan.Block      // by plan ID
	}

	runTable struct {
		sync.RWMutex
		table map[string]*run.Run
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.Session
	}

	artifactTables struct {
		sync.RWMutex
		artifacts map[string]*artifact.Artifact
		states    map[stateKey]*artifact.State
		variants  map[string][]artifact.Variant // by artifact ID
		reveals   map[stateKey]*artifact.RevealState
	}

	stateKey struct {
		sessionID string
		otherID   string // artifact or variant ID
	}
)

func Open() (*DB, error) {
	db := &DB{
		plan: &planTables{
			plans:         make(map[string]*plan.Plan),
			versions:      make(map[string]*plan.PlanVersion),
			versionBlocks: make(map[string][]plan.Block),
			draftBlocks:   make(map[string][]plan.Block),
		},
		run:     &runTable{table: make(map[string]*run.Run)},
		session: &sessionTable{table: make(map[string]*session.Session)},
		artifact: &artifactTables{
			artifacts: make(map[string]*artifact.Artifact),
			states:    make(map[stateKey]*artifact.State),
			variants:  make(map[string][]artifact.Variant),
			reveals:   make(map[stateKey]*artifact.RevealState),
		},
	}
	return db, nil
}
