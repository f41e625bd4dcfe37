package plan

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound           = errors.New("plan not found")
	ErrNoPublishedVersion = errors.New("plan has no published version")
)

// Repository is the read side of the block store. The runtime never writes
// plans; authoring happens elsewhere.
type Repository interface {
	GetPlan(ctx context.Context, id string) (Plan, error)
	// GetCurrentVersion returns the plan's published version, or
	// ErrNoPublishedVersion for plans that predate versioning.
	GetCurrentVersion(ctx context.Context, planID string) (PlanVersion, error)
	// GetVersionBlocks returns the version's frozen block set in position order.
	GetVersionBlocks(ctx context.Context, versionID string) ([]Block, error)
	// GetDraftBlocks returns the plan's current draft blocks in position order.
	GetDraftBlocks(ctx context.Context, planID string) ([]Block, error)
}
