package run

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/plan"
)

type (
	Repository interface {
		// CreateRun persists a run and its embedded steps.
		CreateRun(ctx context.Context, r Run) (Run, error)
		GetRunByID(ctx context.Context, id string) (Run, error)
	}

	Service struct {
		planRepo plan.Repository
		repo     Repository
		logger   core.Logger
		mailSvc  core.EmailService
	}
)

var ErrNotFound = errors.New("run not found")

func NewService(planRepo plan.Repository, repo Repository, logger core.Logger, mailSvc core.EmailService) *Service {
	return &Service{
		planRepo: planRepo,
		repo:     repo,
		logger:   logger,
		mailSvc:  mailSvc,
	}
}

// Start resolves the plan, compiles its blocks and creates an in-progress Run
// owned by userID.
//
// Persistence failures on the published-version path degrade to a virtual
// (non-persisted) run instead of failing the request: availability over
// durability at start time. The degradation is flagged to operators.
// Plans without a published version compile from their draft blocks and
// always return an ephemeral draft run; there is no version to reference.
func (svc *Service) Start(ctx context.Context, planID, userID string) (Run, error) {
	p, err := svc.planRepo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Cause(err) == plan.ErrNotFound {
			return Run{}, plan.ErrNotFound
		}
		return Run{}, errors.Wrap(err, "resolving plan")
	}

	version, err := svc.planRepo.GetCurrentVersion(ctx, p.ID)
	if err != nil {
		if errors.Cause(err) == plan.ErrNoPublishedVersion {
			return svc.startFromDraft(ctx, p, userID)
		}
		return Run{}, errors.Wrap(err, "resolving current version")
	}

	blocks, err := svc.planRepo.GetVersionBlocks(ctx, version.ID)
	if err != nil {
		return Run{}, errors.Wrap(err, "loading version blocks")
	}

	steps, err := Compile(blocks)
	if err != nil {
		return Run{}, core.NewValidationError(err)
	}

	r := svc.newRun(p, steps, blocks, userID)
	r.PlanVersionID = version.ID
	r.VersionNumber = version.Number
	if version.TotalDurationMinutes > 0 {
		r.TotalDurationMinutes = version.TotalDurationMinutes
	}

	created, err := svc.repo.CreateRun(ctx, r)
	if err != nil {
		// the store being unavailable must not block play; hand back a
		// virtual run and flag the degradation to operators
		r.ID = "virtual-" + uuid.New().String()
		r.Kind = KindVirtual
		svc.flagDegradation(p, err)
		return r, nil
	}
	return created, nil
}

// Get looks a persisted run up by id. Virtual and draft runs are never
// stored, so they cannot be retrieved.
func (svc *Service) Get(ctx context.Context, id string) (Run, error) {
	r, err := svc.repo.GetRunByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Run{}, ErrNotFound
		}
		return Run{}, errors.Wrap(err, "retrieving run")
	}
	return r, nil
}

func (svc *Service) startFromDraft(ctx context.Context, p plan.Plan, userID string) (Run, error) {
	blocks, err := svc.planRepo.GetDraftBlocks(ctx, p.ID)
	if err != nil {
		return Run{}, errors.Wrap(err, "loading draft blocks")
	}

	steps, err := Compile(blocks)
	if err != nil {
		return Run{}, core.NewValidationError(err)
	}

	r := svc.newRun(p, steps, blocks, userID)
	r.ID = "draft-" + uuid.New().String()
	r.Kind = KindDraft
	return r, nil
}

func (svc *Service) newRun(p plan.Plan, steps []Step, blocks []plan.Block, userID string) Run {
	return Run{
		ID:                   uuid.New().String(),
		Kind:                 KindPersisted,
		PlanID:               p.ID,
		Name:                 p.Name,
		Status:               StatusInProgress,
		Steps:                steps,
		BlockCount:           len(blocks),
		TotalDurationMinutes: TotalDuration(steps),
		CurrentStepIndex:     0,
		StartedBy:            userID,
		StartedAt:            time.Now().UTC(),
	}
}

func (svc *Service) flagDegradation(p plan.Plan, cause error) {
	msg := fmt.Sprintf("run persistence unavailable; served virtual run for plan %s", p.ID)
	svc.logger.Error(msg, errors.Wrap(cause, msg))

	if svc.mailSvc == nil || core.Conf.OpsEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: core.Conf.OpsEmail}},
		Subject: "run persistence degraded",
		BodyStr: fmt.Sprintf("%s\ncause: %v", msg, cause),
	})
}
