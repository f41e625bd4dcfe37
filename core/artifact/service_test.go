package artifact

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/session"
	"github.com/trezcool/michezo/services/broadcast"
)

// fakeRepo mirrors the real store's concurrency semantics: versioned
// compare-and-swap updates and insert-once state rows.
type fakeRepo struct {
	mu        sync.Mutex
	artifacts map[string]Artifact
	states    map[string]State
	variants  map[string][]Variant
	reveals   map[string]bool // "<sessionID>/<variantID>"
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo(artifacts ...Artifact) *fakeRepo {
	repo := &fakeRepo{
		artifacts: make(map[string]Artifact),
		states:    make(map[string]State),
		variants:  make(map[string][]Variant),
		reveals:   make(map[string]bool),
	}
	for _, art := range artifacts {
		repo.artifacts[art.ID] = art
	}
	return repo
}

func stKey(sessionID, artifactID string) string { return sessionID + "/" + artifactID }

func (r *fakeRepo) GetArtifact(_ context.Context, id string) (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if art, ok := r.artifacts[id]; ok {
		return art, nil
	}
	return Artifact{}, ErrNotFound
}

func (r *fakeRepo) GetState(_ context.Context, sessionID, artifactID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[stKey(sessionID, artifactID)]; ok {
		return st, nil
	}
	return State{}, ErrStateNotFound
}

func (r *fakeRepo) CreateState(_ context.Context, st State) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stKey(st.SessionID, st.ArtifactID)
	if _, ok := r.states[key]; ok {
		return State{}, ErrStateExists
	}
	st.Version = 1
	r.states[key] = st
	return st, nil
}

func (r *fakeRepo) UpdateState(_ context.Context, st State, expectedVersion int) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stKey(st.SessionID, st.ArtifactID)
	cur, ok := r.states[key]
	if !ok || cur.Version != expectedVersion {
		return State{}, ErrVersionConflict
	}
	st.Version = expectedVersion + 1
	r.states[key] = st
	return st, nil
}

func (r *fakeRepo) ListPublicVariants(_ context.Context, artifactID string) ([]Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var public []Variant
	for _, v := range r.variants[artifactID] {
		if v.Visibility == VisibilityPublic {
			public = append(public, v)
		}
	}
	return public, nil
}

func (r *fakeRepo) RevealVariants(_ context.Context, sessionID string, variantIDs []string, _ time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var revealed []string
	for _, id := range variantIDs {
		key := sessionID + "/" + id
		if r.reveals[key] {
			continue
		}
		r.reveals[key] = true
		revealed = append(revealed, id)
	}
	return revealed, nil
}

type fakeSessionRepo struct {
	sessions map[string]session.Session
}

var _ session.Repository = (*fakeSessionRepo)(nil)

func (r *fakeSessionRepo) GetSession(_ context.Context, id string) (session.Session, error) {
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return session.Session{}, session.ErrNotFound
}

type nopLogger struct{}

var _ core.Logger = (*nopLogger)(nil)

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

const secretCode = "4912"

func testKeypad(maxAttempts int, lockOnFail bool) Artifact {
	cfg := &KeypadConfig{
		CorrectCode: secretCode,
		CodeLength:  4,
		LockOnFail:  lockOnFail,
	}
	if maxAttempts > 0 {
		cfg.MaxAttempts = null.IntFrom(maxAttempts)
	}
	return Artifact{ID: "art1", GameID: "game1", Kind: KindKeypad, Title: "Treasure Chest", Keypad: cfg}
}

func newTestService(repo *fakeRepo) (*Service, *broadcastsvc.RecorderBroadcaster) {
	sessRepo := &fakeSessionRepo{sessions: map[string]session.Session{
		"sess1": {ID: "sess1", GameID: "game1", Name: "Friday Night"},
		"sess2": {ID: "sess2", GameID: "game1", Name: "Saturday Night"},
		"other": {ID: "other", GameID: "game9"},
	}}
	rec := broadcastsvc.NewRecorderBroadcaster()
	return NewService(repo, sessRepo, rec, nopLogger{}), rec
}

var actor = session.Participant{ID: "usr1", DisplayName: "Asha"}

func TestServiceAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong code counts and broadcasts a failure", func(t *testing.T) {
		svc, rec := newTestService(newFakeRepo(testKeypad(3, true)))

		res, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}

		assert.Equal(t, OutcomeFail, res.Status)
		assert.Equal(t, "Wrong code, try again.", res.Message)
		assert.Equal(t, 1, res.State.AttemptCount)
		assert.False(t, res.State.IsUnlocked)
		assert.False(t, res.State.IsLockedOut)
		if assert.NotNil(t, res.AttemptsLeft) {
			assert.Equal(t, 2, *res.AttemptsLeft)
		}

		events := rec.Events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, core.EventKeypadAttemptFailed, events[0].Type)
			assert.Equal(t, "sess1", events[0].SessionID)
			assert.Equal(t, "Asha", events[0].ParticipantName)
			assert.Equal(t, 1, events[0].AttemptCount)
		}
	})

	t.Run("correct code unlocks and stamps the winner", func(t *testing.T) {
		repo := newFakeRepo(testKeypad(3, true))
		svc, rec := newTestService(repo)

		res, err := svc.Attempt(ctx, "sess1", "art1", secretCode, actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}

		assert.Equal(t, OutcomeSuccess, res.Status)
		assert.Equal(t, "Unlocked!", res.Message)
		assert.True(t, res.State.IsUnlocked)
		assert.True(t, res.State.UnlockedAt.Valid)
		assert.Equal(t, 1, res.State.AttemptCount)

		st, err := repo.GetState(ctx, "sess1", "art1")
		if err != nil {
			t.Fatalf("GetState(): %v", err)
		}
		assert.Equal(t, "usr1", st.UnlockedBy)

		events := rec.Events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, core.EventKeypadUnlocked, events[0].Type)
		}
	})

	t.Run("attempts against an unlocked keypad mutate nothing", func(t *testing.T) {
		repo := newFakeRepo(testKeypad(3, true))
		svc, rec := newTestService(repo)

		if _, err := svc.Attempt(ctx, "sess1", "art1", secretCode, actor); err != nil {
			t.Fatalf("Attempt(): %v", err)
		}

		res, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeAlreadyUnlocked, res.Status)
		assert.Equal(t, 1, res.State.AttemptCount) // unchanged
		assert.Len(t, rec.Events(), 1)             // only the original unlock
	})

	t.Run("lockout triggers exactly at the limit and never overshoots", func(t *testing.T) {
		repo := newFakeRepo(testKeypad(3, true))
		svc, rec := newTestService(repo)

		first, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeFail, first.Status)

		second, err := svc.Attempt(ctx, "sess1", "art1", "1111", actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeFail, second.Status)
		if assert.NotNil(t, second.AttemptsLeft) {
			assert.Equal(t, 1, *second.AttemptsLeft)
		}

		third, err := svc.Attempt(ctx, "sess1", "art1", "2222", actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeLocked, third.Status)
		assert.Equal(t, "The keypad is locked.", third.Message)
		assert.True(t, third.State.IsLockedOut)
		assert.Equal(t, 3, third.State.AttemptCount)
		if assert.NotNil(t, third.AttemptsLeft) {
			assert.Equal(t, 0, *third.AttemptsLeft)
		}

		// terminal: further pokes neither count nor broadcast, even with the right code
		fourth, err := svc.Attempt(ctx, "sess1", "art1", secretCode, actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeLocked, fourth.Status)
		assert.Equal(t, 3, fourth.State.AttemptCount)
		assert.False(t, fourth.State.IsUnlocked)
		assert.Len(t, rec.Events(), 3)
	})

	t.Run("limit without lock-on-fail keeps failing instead of locking", func(t *testing.T) {
		svc, _ := newTestService(newFakeRepo(testKeypad(2, false)))

		var res AttemptResult
		var err error
		for i := 0; i < 4; i++ {
			res, err = svc.Attempt(ctx, "sess1", "art1", "0000", actor)
			if err != nil {
				t.Fatalf("Attempt(): %v", err)
			}
		}
		assert.Equal(t, OutcomeFail, res.Status)
		assert.False(t, res.State.IsLockedOut)
		assert.Equal(t, 4, res.State.AttemptCount)
		if assert.NotNil(t, res.AttemptsLeft) {
			assert.Equal(t, 0, *res.AttemptsLeft) // clamped, never negative
		}
	})

	t.Run("unlimited attempts report no attempts-left", func(t *testing.T) {
		svc, _ := newTestService(newFakeRepo(testKeypad(0, false)))

		res, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeFail, res.Status)
		assert.Nil(t, res.AttemptsLeft)
	})

	t.Run("unlock reveals public variants once per session", func(t *testing.T) {
		repo := newFakeRepo(testKeypad(0, false))
		repo.variants["art1"] = []Variant{
			{ID: "var1", ArtifactID: "art1", Title: "Bonus Round", Visibility: VisibilityPublic},
			{ID: "var2", ArtifactID: "art1", Title: "Host Notes", Visibility: VisibilityRoleRestricted},
			{ID: "var3", ArtifactID: "art1", Title: "Secret Map", Visibility: VisibilityPublic},
		}
		svc, rec := newTestService(repo)

		res, err := svc.Attempt(ctx, "sess1", "art1", secretCode, actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.ElementsMatch(t, []string{"var1", "var3"}, res.RevealedVariantIDs)

		events := rec.Events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, 2, events[0].RevealedCount)
		}

		// a different session gets its own reveals
		res2, err := svc.Attempt(ctx, "sess2", "art1", secretCode, actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.ElementsMatch(t, []string{"var1", "var3"}, res2.RevealedVariantIDs)

		// re-revealing to sess1 yields nothing new
		revealed, err := repo.RevealVariants(ctx, "sess1", []string{"var1", "var3"}, time.Now())
		if err != nil {
			t.Fatalf("RevealVariants(): %v", err)
		}
		assert.Empty(t, revealed)
	})

	t.Run("broadcast failure does not fail the attempt", func(t *testing.T) {
		svc, rec := newTestService(newFakeRepo(testKeypad(0, false)))
		rec.FailPublishes = errors.New("redis down")

		res, err := svc.Attempt(ctx, "sess1", "art1", secretCode, actor)
		if err != nil {
			t.Fatalf("Attempt(): %v", err)
		}
		assert.Equal(t, OutcomeSuccess, res.Status)
	})

	t.Run("session and artifact must match", func(t *testing.T) {
		svc, _ := newTestService(newFakeRepo(testKeypad(0, false)))

		tests := []struct {
			name      string
			sessionID string
			artID     string
			wantErr   error
		}{
			{name: "unknown session", sessionID: "ghost", artID: "art1", wantErr: session.ErrNotFound},
			{name: "unknown artifact", sessionID: "sess1", artID: "ghost", wantErr: ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := svc.Attempt(ctx, tt.sessionID, tt.artID, "0000", actor); errors.Cause(err) != tt.wantErr {
					t.Errorf("Attempt() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}

		// session bound to another game
		_, err := svc.Attempt(ctx, "other", "art1", "0000", actor)
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr), "Attempt() error = %v, want *core.ValidationError", err)
	})

	t.Run("non-keypad artifact is rejected", func(t *testing.T) {
		repo := newFakeRepo(Artifact{ID: "art1", GameID: "game1", Kind: "poster", Title: "Poster"})
		svc, _ := newTestService(repo)

		_, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor)
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr), "Attempt() error = %v, want *core.ValidationError", err)
	})
}

func TestServiceAttemptConcurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("single attempt limit cannot be overshot by a race", func(t *testing.T) {
		repo := newFakeRepo(testKeypad(1, true))
		svc, rec := newTestService(repo)

		const racers = 8
		results := make([]AttemptResult, racers)
		errs := make([]error, racers)

		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.Attempt(ctx, "sess1", "art1", secretCode, actor)
			}(i)
		}
		wg.Wait()

		var successes, already int
		for i := 0; i < racers; i++ {
			if errs[i] != nil {
				t.Fatalf("Attempt() [%d]: %v", i, errs[i])
			}
			switch results[i].Status {
			case OutcomeSuccess:
				successes++
			case OutcomeAlreadyUnlocked:
				already++
			default:
				t.Errorf("unexpected outcome %q", results[i].Status)
			}
		}
		assert.Equal(t, 1, successes, "exactly one racer may win the unlock")
		assert.Equal(t, racers-1, already)

		st, err := repo.GetState(ctx, "sess1", "art1")
		if err != nil {
			t.Fatalf("GetState(): %v", err)
		}
		assert.Equal(t, 1, st.AttemptCount)
		assert.Len(t, rec.Events(), 1)
	})

	t.Run("concurrent failures never exceed the limit", func(t *testing.T) {
		repo := newFakeRepo(testKeypad(3, true))
		svc, _ := newTestService(repo)

		const racers = 10
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Attempt(ctx, "sess1", "art1", "0000", actor)
			}()
		}
		wg.Wait()

		st, err := repo.GetState(ctx, "sess1", "art1")
		if err != nil {
			t.Fatalf("GetState(): %v", err)
		}
		assert.True(t, st.IsLockedOut)
		assert.Equal(t, 3, st.AttemptCount, "counted attempts must stop at the limit")
	})
}

func TestServiceKeypadState(t *testing.T) {
	ctx := context.Background()

	t.Run("pristine keypad reports a zero state", func(t *testing.T) {
		svc, _ := newTestService(newFakeRepo(testKeypad(3, true)))

		view, err := svc.KeypadState(ctx, "sess1", "art1")
		if err != nil {
			t.Fatalf("KeypadState(): %v", err)
		}
		assert.Equal(t, "art1", view.ArtifactID)
		assert.Equal(t, 4, view.CodeLength)
		assert.Equal(t, 0, view.State.AttemptCount)
		assert.False(t, view.State.IsUnlocked)
		if assert.NotNil(t, view.AttemptsLeft) {
			assert.Equal(t, 3, *view.AttemptsLeft)
		}
	})

	t.Run("reflects attempts made so far", func(t *testing.T) {
		svc, _ := newTestService(newFakeRepo(testKeypad(3, true)))

		if _, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor); err != nil {
			t.Fatalf("Attempt(): %v", err)
		}

		view, err := svc.KeypadState(ctx, "sess1", "art1")
		if err != nil {
			t.Fatalf("KeypadState(): %v", err)
		}
		assert.Equal(t, 1, view.State.AttemptCount)
		if assert.NotNil(t, view.AttemptsLeft) {
			assert.Equal(t, 2, *view.AttemptsLeft)
		}
	})
}

// the secret code must never appear in anything that leaves the service
func TestNoSecretLeakage(t *testing.T) {
	ctx := context.Background()
	art := testKeypad(3, true)
	svc, rec := newTestService(newFakeRepo(art))

	res, err := svc.Attempt(ctx, "sess1", "art1", "0000", actor)
	if err != nil {
		t.Fatalf("Attempt(): %v", err)
	}
	view, err := svc.KeypadState(ctx, "sess1", "art1")
	if err != nil {
		t.Fatalf("KeypadState(): %v", err)
	}

	payloads := []interface{}{res, view, art, *art.Keypad}
	for _, evt := range rec.Events() {
		evt.Timestamp = time.Time{} // timestamp digits are noise for a substring check
		payloads = append(payloads, evt)
	}
	for _, p := range payloads {
		raw, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("json.Marshal(%T): %v", p, err)
		}
		if strings.Contains(string(raw), secretCode) {
			t.Errorf("secret code leaked in %T: %s", p, raw)
		}
	}
}
