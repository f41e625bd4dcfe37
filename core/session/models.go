package session

import (
	"context"
	"errors"
	"time"
)

// Session statuses
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

var ErrNotFound = errors.New("session not found")

type (
	// Session is one live play room bound to a game. Artifacts are only
	// reachable through a session of their game.
	Session struct {
		ID        string    `json:"id"`
		GameID    string    `json:"game_id"`
		Name      string    `json:"name"`
		HostID    string    `json:"host_id"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// Participant is the opaque identity the authentication layer yields for
	// a connected client.
	Participant struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}

	Repository interface {
		GetSession(ctx context.Context, id string) (Session, error)
	}
)
