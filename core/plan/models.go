package plan

import "time"

// Block types
const (
	BlockTypeGame        = "game"
	BlockTypePause       = "pause"
	BlockTypePreparation = "preparation"
	BlockTypeCustom      = "custom"
)

type (
	Plan struct {
		ID               string    `json:"id"`
		OrgID            string    `json:"org_id"`
		Name             string    `json:"name"`
		CurrentVersionID string    `json:"current_version_id,omitempty"`
		CreatedAt        time.Time `json:"created_at"` // UTC
		UpdatedAt        time.Time `json:"updated_at"` // UTC
	}

	// PlanVersion is an immutable, published snapshot of a plan's blocks.
	PlanVersion struct {
		ID                   string    `json:"id"`
		PlanID               string    `json:"plan_id"`
		Number               int       `json:"number"`
		TotalDurationMinutes int       `json:"total_duration_minutes,omitempty"` // declared total; 0 = not declared
		PublishedAt          time.Time `json:"published_at"`                     // UTC
	}

	// Block is one ordered item of plan content. Blocks embedded in a
	// published version are read-only; draft blocks may still be edited by
	// plan authoring (out of this service's hands).
	Block struct {
		ID              string        `json:"id"`
		Position        int           `json:"position"` // unique within parent
		Type            string        `json:"block_type"`
		DurationMinutes int           `json:"duration_minutes"`
		Title           string        `json:"title,omitempty"`
		Notes           string        `json:"notes,omitempty"`
		IsOptional      bool          `json:"is_optional"`
		GameSnapshot    *GameSnapshot `json:"game_snapshot,omitempty"`
	}

	// GameSnapshot is a denormalized, point-in-time copy of a game embedded
	// in a block when the plan was authored or published.
	GameSnapshot struct {
		Title            string            `json:"title"`
		ShortDescription string            `json:"short_description,omitempty"`
		Instructions     []GameInstruction `json:"instructions,omitempty"`
		Materials        []string          `json:"materials,omitempty"`
	}

	GameInstruction struct {
		Title           string `json:"title"`
		Description     string `json:"description,omitempty"`
		DurationMinutes int    `json:"duration_minutes,omitempty"` // 0 = inherit from block
	}
)

func (b Block) IsGameWithInstructions() bool {
	return b.GameSnapshot != nil && len(b.GameSnapshot.Instructions) > 0
}
