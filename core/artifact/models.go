package artifact

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Artifact kinds. Keypad is the only gated kind today; the config is a
// closed tagged variant so future kinds get their own typed config instead
// of a loose metadata blob.
const (
	KindKeypad = "keypad"
)

// Variant visibility
const (
	VisibilityPublic         = "public"
	VisibilityRoleRestricted = "role_restricted"
)

// Attempt outcomes
const (
	OutcomeSuccess         = "success"
	OutcomeFail            = "fail"
	OutcomeLocked          = "locked"
	OutcomeAlreadyUnlocked = "already_unlocked"
)

var (
	// errors
	ErrNotFound        = errors.New("artifact not found")
	ErrStateNotFound   = errors.New("artifact state not found")
	ErrStateExists     = errors.New("artifact state already exists")
	ErrVersionConflict = errors.New("artifact state version conflict")
)

type (
	// Artifact is an interactive content object attached to a game.
	Artifact struct {
		ID     string `json:"id"`
		GameID string `json:"game_id"`
		Kind   string `json:"kind"`
		Title  string `json:"title"`

		// per-kind secret configuration; read-only to the engine
		Keypad *KeypadConfig `json:"-"`
	}

	// KeypadConfig holds the keypad secret and policy. It is never
	// transmitted to participants.
	KeypadConfig struct {
		CorrectCode    string   `json:"-"`
		CodeLength     int      `json:"code_length"`
		MaxAttempts    null.Int `json:"max_attempts"` // null = unlimited
		LockOnFail     bool     `json:"lock_on_fail"`
		SuccessMessage string   `json:"success_message"`
		FailMessage    string   `json:"fail_message"`
		LockedMessage  string   `json:"locked_message"`
	}

	// State is the per-(session, artifact) mutable unlock state. Unlocked and
	// locked-out are both one-way transitions; Version backs the optimistic
	// concurrency loop.
	State struct {
		SessionID    string    `json:"-"`
		ArtifactID   string    `json:"-"`
		AttemptCount int       `json:"attempt_count"`
		IsUnlocked   bool      `json:"is_unlocked"`
		IsLockedOut  bool      `json:"is_locked_out"`
		UnlockedAt   null.Time `json:"unlocked_at,omitempty"`
		UnlockedBy   string    `json:"-"`
		Version      int       `json:"-"`
	}

	// Variant is content dependent on an artifact's unlock.
	Variant struct {
		ID         string `json:"id"`
		ArtifactID string `json:"artifact_id"`
		Title      string `json:"title"`
		Visibility string `json:"visibility"`
	}

	// RevealState records that a variant was revealed to a session; at most
	// one row per (session, variant) pair.
	RevealState struct {
		SessionID  string    `json:"session_id"`
		VariantID  string    `json:"variant_id"`
		RevealedAt time.Time `json:"revealed_at"` // UTC
	}

	Repository interface {
		GetArtifact(ctx context.Context, id string) (Artifact, error)
		// GetState returns ErrStateNotFound when no attempt was made yet.
		GetState(ctx context.Context, sessionID, artifactID string) (State, error)
		// CreateState inserts the lazily-created state row; ErrStateExists
		// when another participant won the race.
		CreateState(ctx context.Context, st State) (State, error)
		// UpdateState applies st only if the stored row still carries
		// expectedVersion; ErrVersionConflict otherwise.
		UpdateState(ctx context.Context, st State, expectedVersion int) (State, error)
		ListPublicVariants(ctx context.Context, artifactID string) ([]Variant, error)
		// RevealVariants upserts one reveal row per variant keyed uniquely on
		// (sessionID, variantID) and returns only the ids newly inserted by
		// this call; duplicate invocations are harmless.
		RevealVariants(ctx context.Context, sessionID string, variantIDs []string, at time.Time) ([]string, error)
	}
)

// Validate checks a keypad config once at the boundary; invalid configs are
// an authoring defect, not a runtime condition.
func (c KeypadConfig) Validate() error {
	if c.CorrectCode == "" {
		return errors.New("keypad: missing correct code")
	}
	if c.CodeLength <= 0 {
		return errors.New("keypad: code length must be positive")
	}
	if len(c.CorrectCode) != c.CodeLength {
		return errors.New("keypad: correct code does not match code length")
	}
	if c.MaxAttempts.Valid && c.MaxAttempts.Int <= 0 {
		return errors.New("keypad: max attempts must be positive when set")
	}
	return nil
}

// Message defaults; authoring may override per artifact.
func (c KeypadConfig) successMessage() string {
	if c.SuccessMessage != "" {
		return c.SuccessMessage
	}
	return "Unlocked!"
}

func (c KeypadConfig) failMessage() string {
	if c.FailMessage != "" {
		return c.FailMessage
	}
	return "Wrong code, try again."
}

func (c KeypadConfig) lockedMessage() string {
	if c.LockedMessage != "" {
		return c.LockedMessage
	}
	return "The keypad is locked."
}

// AttemptsLeft computes the remaining attempts, or nil when unlimited.
func (c KeypadConfig) AttemptsLeft(attemptCount int) *int {
	if !c.MaxAttempts.Valid {
		return nil
	}
	left := c.MaxAttempts.Int - attemptCount
	if left < 0 {
		left = 0
	}
	return &left
}
