package periodlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

// Service manages accounting period locks.
type Service interface {
	Lock(ctx context.Context, actorID string, input LockInput) (*models.FinancePeriodLock, error)
	Unlock(ctx context.Context, actorID string, lockID uuid.UUID) error
	List(ctx context.Context) ([]models.FinancePeriodLock, error)
}

// LockInput holds the validated payload to close a period.
type LockInput struct {
	StartsOn time.Time
	EndsOn   time.Time
	Reason   string
}

type service struct {
	repo    Repository
	auditor *audit.Recorder
}

// NewService constructs a period lock service instance.
func NewService(repo Repository, auditor *audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("period lock repository required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, auditor: auditor}, nil
}

// DateOf truncates a timestamp to its calendar date in UTC. All lock windows
// and posting dates compare on this form.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AssertUnlocked fails with PERIOD_LOCKED when the date falls inside a closed
// window. Pass a repository bound with WithTx to check inside a transaction.
func AssertUnlocked(ctx context.Context, repo Repository, date time.Time) error {
	lock, err := repo.FindCovering(ctx, DateOf(date))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: look up period lock")
	}
	if lock != nil {
		return pkgerrors.New(pkgerrors.CodePeriodLocked, "period is locked: "+lock.Reason)
	}
	return nil
}

func (s *service) Lock(ctx context.Context, actorID string, input LockInput) (*models.FinancePeriodLock, error) {
	startsOn := DateOf(input.StartsOn)
	endsOn := DateOf(input.EndsOn)
	reason := strings.TrimSpace(input.Reason)

	if endsOn.Before(startsOn) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ends_on must not precede starts_on")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	existing, err := s.repo.FindOverlapping(ctx, startsOn, endsOn)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check overlapping locks")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "window overlaps an existing lock")
	}

	lock := &models.FinancePeriodLock{
		ID:        uuid.New(),
		StartsOn:  startsOn,
		EndsOn:    endsOn,
		Reason:    reason,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, lock); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert period lock")
	}

	s.auditor.Record(ctx, actorID, audit.PeriodLockChanged{
		ID:       lock.ID,
		Verb:     enums.AuditActionCreate,
		StartsOn: lock.StartsOn,
		EndsOn:   lock.EndsOn,
		Reason:   lock.Reason,
	})
	return lock, nil
}

func (s *service) Unlock(ctx context.Context, actorID string, lockID uuid.UUID) error {
	lock, err := s.repo.FindByID(ctx, lockID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load period lock")
	}
	if lock == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "period lock not found")
	}
	if err := s.repo.Delete(ctx, lockID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete period lock")
	}

	s.auditor.Record(ctx, actorID, audit.PeriodLockChanged{
		ID:       lock.ID,
		Verb:     enums.AuditActionDelete,
		StartsOn: lock.StartsOn,
		EndsOn:   lock.EndsOn,
		Reason:   lock.Reason,
	})
	return nil
}

func (s *service) List(ctx context.Context) ([]models.FinancePeriodLock, error) {
	locks, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list period locks")
	}
	return locks, nil
}
