package run

import "time"

// Run statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// Run kinds. A Run is persisted on the happy path; it degrades to a virtual
// run when the store is unavailable at start time, and to a draft run when
// the plan has no published version to reference.
const (
	KindPersisted = "persisted"
	KindVirtual   = "virtual"
	KindDraft     = "draft"
)

type (
	// Step is one atomic unit of play derived from exactly one block.
	// Steps are generated by the compiler and live embedded in their Run;
	// they are never persisted independently.
	Step struct {
		ID              string   `json:"id"` // "<blockID>-<subIndex>"
		Index           int      `json:"index"`
		BlockID         string   `json:"block_id"`
		BlockType       string   `json:"block_type"`
		Tag             string   `json:"tag"`
		Title           string   `json:"title"`
		Description     string   `json:"description,omitempty"`
		DurationMinutes int      `json:"duration_minutes"`
		Materials       []string `json:"materials,omitempty"` // first step of a block only
		Note            string   `json:"note,omitempty"`      // first step of a block only
		GameTitle       string   `json:"game_title,omitempty"`
	}

	// Run is one playthrough instance, exclusively owned by the user who
	// started it.
	Run struct {
		ID                   string     `json:"id"`
		Kind                 string     `json:"kind"`
		PlanID               string     `json:"plan_id"`
		PlanVersionID        string     `json:"plan_version_id,omitempty"` // empty for draft runs
		VersionNumber        int        `json:"version_number,omitempty"`
		Name                 string     `json:"name"`
		Status               string     `json:"status"`
		Steps                []Step     `json:"steps"`
		BlockCount           int        `json:"block_count"`
		TotalDurationMinutes int        `json:"total_duration_minutes"`
		CurrentStepIndex     int        `json:"current_step_index"`
		StartedBy            string     `json:"started_by"`
		StartedAt            time.Time  `json:"started_at"`             // UTC
		CompletedAt          *time.Time `json:"completed_at,omitempty"` // UTC; nil until terminal
	}
)

func (r Run) IsPersisted() bool { return r.Kind == KindPersisted }
