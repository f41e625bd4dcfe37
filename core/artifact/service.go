package artifact

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/session"
)

// casRetries bounds the optimistic concurrency loop; conflicts only happen
// when participants race on the same (session, artifact) row, so a handful
// of retries is plenty.
const casRetries = 5

type (
	// AttemptResult reports one unlock attempt's terminal outcome. It never
	// carries the secret code.
	AttemptResult struct {
		Status             string   `json:"status"`
		Message            string   `json:"message"`
		AttemptsLeft       *int     `json:"attempts_left,omitempty"`
		RevealedVariantIDs []string `json:"reveal_variant_ids,omitempty"`
		State              State    `json:"keypad_state"`
	}

	// KeypadView is the participant-safe read model of a keypad.
	KeypadView struct {
		ArtifactID     string   `json:"artifact_id"`
		Title          string   `json:"title"`
		CodeLength     int      `json:"code_length"`
		MaxAttempts    null.Int `json:"max_attempts"`
		AttemptsLeft   *int     `json:"attempts_left,omitempty"`
		SuccessMessage string   `json:"success_message"`
		FailMessage    string   `json:"fail_message"`
		LockedMessage  string   `json:"locked_message"`
		State          State    `json:"keypad_state"`
	}

	Service struct {
		repo        Repository
		sessionRepo session.Repository
		broadcaster core.Broadcaster
		logger      core.Logger
	}
)

func NewService(repo Repository, sessionRepo session.Repository, broadcaster core.Broadcaster, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		sessionRepo: sessionRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Attempt runs one keypad unlock attempt for actor against the
// (sessionID, artifactID) state row.
//
// The increment-compare-transition is linearized through an optimistic
// concurrency loop on the state row's version column, so concurrent
// participants can neither overshoot a bounded attempt limit nor both win
// the unlock. Attempts against terminal states (unlocked, locked out) never
// mutate anything.
func (svc *Service) Attempt(ctx context.Context, sessionID, artifactID, enteredCode string, actor session.Participant) (AttemptResult, error) {
	art, err := svc.resolveKeypad(ctx, sessionID, artifactID)
	if err != nil {
		return AttemptResult{}, err
	}
	cfg := *art.Keypad

	var st State
	var outcome string
	for i := 0; ; i++ {
		st, err = svc.loadOrCreateState(ctx, sessionID, artifactID)
		if err != nil {
			return AttemptResult{}, err
		}

		// terminal states short-circuit: no count mutation, no code comparison
		if st.IsUnlocked {
			return AttemptResult{
				Status:       OutcomeAlreadyUnlocked,
				Message:      cfg.successMessage(),
				AttemptsLeft: cfg.AttemptsLeft(st.AttemptCount),
				State:        st,
			}, nil
		}
		if st.IsLockedOut {
			return AttemptResult{
				Status:       OutcomeLocked,
				Message:      cfg.lockedMessage(),
				AttemptsLeft: cfg.AttemptsLeft(st.AttemptCount),
				State:        st,
			}, nil
		}

		next := st
		next.AttemptCount++
		switch {
		case enteredCode == cfg.CorrectCode:
			next.IsUnlocked = true
			next.UnlockedAt = null.TimeFrom(time.Now().UTC())
			next.UnlockedBy = actor.ID
			outcome = OutcomeSuccess
		case cfg.MaxAttempts.Valid && cfg.LockOnFail && next.AttemptCount >= cfg.MaxAttempts.Int:
			next.IsLockedOut = true
			outcome = OutcomeLocked
		default:
			outcome = OutcomeFail
		}

		st, err = svc.repo.UpdateState(ctx, next, st.Version)
		if err == nil {
			break
		}
		if errors.Cause(err) != ErrVersionConflict || i >= casRetries {
			return AttemptResult{}, errors.Wrap(err, "persisting attempt")
		}
		// lost the race; reload and re-decide
	}

	res := AttemptResult{
		Status:       outcome,
		AttemptsLeft: cfg.AttemptsLeft(st.AttemptCount),
		State:        st,
	}
	switch outcome {
	case OutcomeSuccess:
		res.Message = cfg.successMessage()
		res.RevealedVariantIDs = svc.revealVariants(ctx, sessionID, art)
	case OutcomeLocked:
		res.Message = cfg.lockedMessage()
	default:
		res.Message = cfg.failMessage()
	}

	svc.broadcastOutcome(ctx, sessionID, art.ID, actor, res)
	return res, nil
}

// KeypadState is the participant-safe read path; it never exposes the code.
func (svc *Service) KeypadState(ctx context.Context, sessionID, artifactID string) (KeypadView, error) {
	art, err := svc.resolveKeypad(ctx, sessionID, artifactID)
	if err != nil {
		return KeypadView{}, err
	}
	cfg := *art.Keypad

	st, err := svc.repo.GetState(ctx, sessionID, artifactID)
	if err != nil {
		if errors.Cause(err) != ErrStateNotFound {
			return KeypadView{}, errors.Wrap(err, "loading keypad state")
		}
		st = State{SessionID: sessionID, ArtifactID: artifactID}
	}

	return KeypadView{
		ArtifactID:     art.ID,
		Title:          art.Title,
		CodeLength:     cfg.CodeLength,
		MaxAttempts:    cfg.MaxAttempts,
		AttemptsLeft:   cfg.AttemptsLeft(st.AttemptCount),
		SuccessMessage: cfg.successMessage(),
		FailMessage:    cfg.failMessage(),
		LockedMessage:  cfg.lockedMessage(),
		State:          st,
	}, nil
}

// resolveKeypad checks the artifact exists, is bound to the session's game
// and is of the gated kind. No state is touched on rejection.
func (svc *Service) resolveKeypad(ctx context.Context, sessionID, artifactID string) (Artifact, error) {
	sess, err := svc.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return Artifact{}, session.ErrNotFound
		}
		return Artifact{}, errors.Wrap(err, "resolving session")
	}

	art, err := svc.repo.GetArtifact(ctx, artifactID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, errors.Wrap(err, "resolving artifact")
	}

	if art.GameID != sess.GameID {
		return Artifact{}, core.NewValidationError(errors.New("artifact does not belong to this session's game"))
	}
	if art.Kind != KindKeypad || art.Keypad == nil {
		return Artifact{}, core.NewValidationError(errors.New("artifact is not a keypad"))
	}
	if err := art.Keypad.Validate(); err != nil {
		return Artifact{}, errors.Wrap(err, "invalid keypad config")
	}
	return art, nil
}

func (svc *Service) loadOrCreateState(ctx context.Context, sessionID, artifactID string) (State, error) {
	st, err := svc.repo.GetState(ctx, sessionID, artifactID)
	if err == nil {
		return st, nil
	}
	if errors.Cause(err) != ErrStateNotFound {
		return State{}, errors.Wrap(err, "loading artifact state")
	}

	st, err = svc.repo.CreateState(ctx, State{SessionID: sessionID, ArtifactID: artifactID})
	if err == nil {
		return st, nil
	}
	if errors.Cause(err) != ErrStateExists {
		return State{}, errors.Wrap(err, "creating artifact state")
	}
	// another participant created it first
	st, err = svc.repo.GetState(ctx, sessionID, artifactID)
	if err != nil {
		return State{}, errors.Wrap(err, "reloading artifact state")
	}
	return st, nil
}

// revealVariants is the reveal gate: on unlock, every public variant not yet
// revealed to this session becomes visible, at most once per
// (session, variant) pair. Only the ids revealed by this call are returned.
// The unlock itself is already durable, so reveal failures are flagged
// rather than surfaced.
func (svc *Service) revealVariants(ctx context.Context, sessionID string, art Artifact) []string {
	variants, err := svc.repo.ListPublicVariants(ctx, art.ID)
	if err != nil {
		svc.logger.Error("listing public variants", errors.Wrap(err, art.ID))
		return nil
	}
	if len(variants) == 0 {
		return nil
	}

	ids := make([]string, 0, len(variants))
	for _, v := range variants {
		ids = append(ids, v.ID)
	}

	revealed, err := svc.repo.RevealVariants(ctx, sessionID, ids, time.Now().UTC())
	if err != nil {
		svc.logger.Error("revealing variants", errors.Wrap(err, art.ID))
		return nil
	}
	return revealed
}

// broadcastOutcome fans the outcome out to the session channel. Exactly one
// event per terminal outcome; publish failures never fail the attempt.
func (svc *Service) broadcastOutcome(ctx context.Context, sessionID, artifactID string, actor session.Participant, res AttemptResult) {
	evt := core.Event{
		SessionID:       sessionID,
		ArtifactID:      artifactID,
		Timestamp:       time.Now().UTC(),
		ParticipantName: actor.DisplayName,
		AttemptCount:    res.State.AttemptCount,
		AttemptsLeft:    res.AttemptsLeft,
	}
	switch res.Status {
	case OutcomeSuccess:
		evt.Type = core.EventKeypadUnlocked
		evt.RevealedCount = len(res.RevealedVariantIDs)
	case OutcomeLocked:
		evt.Type = core.EventKeypadLockedOut
	case OutcomeFail:
		evt.Type = core.EventKeypadAttemptFailed
	default:
		return
	}

	if err := svc.broadcaster.Publish(ctx, evt); err != nil {
		svc.logger.Warn("broadcasting keypad event", errors.Wrap(err, evt.Type))
	}
}
