package broadcastsvc

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/trezcool/michezo/core"
)

// consoleBroadcaster prints events to stdout; DEV convenience.
type consoleBroadcaster struct{}

var _ core.Broadcaster = (*consoleBroadcaster)(nil)

func NewConsoleBroadcaster() *consoleBroadcaster {
	return &consoleBroadcaster{}
}

func (b *consoleBroadcaster) Publish(_ context.Context, evt core.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	log.Printf("broadcast [%s]: %s", evt.SessionID, raw)
	return nil
}

// RecorderBroadcaster captures published events for assertions in tests.
type RecorderBroadcaster struct {
	mu     sync.Mutex
	events []core.Event

	// FailPublishes makes Publish fail; the attempt must still succeed.
	FailPublishes error
}

var _ core.Broadcaster = (*RecorderBroadcaster)(nil)

func NewRecorderBroadcaster() *RecorderBroadcaster {
	return &RecorderBroadcaster{}
}

func (b *RecorderBroadcaster) Publish(_ context.Context, evt core.Event) error {
	if b.FailPublishes != nil {
		return b.FailPublishes
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return nil
}

func (b *RecorderBroadcaster) Events() []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Event, len(b.events))
	copy(out, b.events)
	return out
}
