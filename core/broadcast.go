package core

import (
	"context"
	"time"
)

// Broadcast event types.
const (
	EventKeypadUnlocked      = "keypad_unlocked"
	EventKeypadAttemptFailed = "keypad_attempt_failed"
	EventKeypadLockedOut     = "keypad_locked_out"
)

type (
	// Event is a session-scoped fan-out notification. It must never carry
	// secret artifact configuration.
	Event struct {
		Type            string    `json:"type"`
		SessionID       string    `json:"session_id"`
		ArtifactID      string    `json:"artifact_id"`
		Timestamp       time.Time `json:"timestamp"` // UTC
		ParticipantName string    `json:"participant_name,omitempty"`

		// outcome metadata
		AttemptCount  int  `json:"attempt_count,omitempty"`
		AttemptsLeft  *int `json:"attempts_left,omitempty"`
		RevealedCount int  `json:"revealed_count,omitempty"`
	}

	// Broadcaster is any channel that can fan an Event out to all participants
	// connected to a session. Delivery is best-effort, at-most-once; callers
	// must not fail their own operation on a publish error.
	Broadcaster interface {
		Publish(ctx context.Context, evt Event) error
	}
)
