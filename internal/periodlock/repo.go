package periodlock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
)

// Repository manages accounting period locks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, lock *models.FinancePeriodLock) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FinancePeriodLock, error)
	List(ctx context.Context) ([]models.FinancePeriodLock, error)
	FindCovering(ctx context.Context, date time.Time) (*models.FinancePeriodLock, error)
	FindOverlapping(ctx context.Context, startsOn, endsOn time.Time) (*models.FinancePeriodLock, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a period lock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, lock *models.FinancePeriodLock) error {
	return r.db.WithContext(ctx).Create(lock).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.FinancePeriodLock{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FinancePeriodLock, error) {
	var lock models.FinancePeriodLock
	err := r.db.WithContext(ctx).First(&lock, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

func (r *repository) List(ctx context.Context) ([]models.FinancePeriodLock, error) {
	var locks []models.FinancePeriodLock
	err := r.db.WithContext(ctx).Order("starts_on ASC").Find(&locks).Error
	return locks, err
}

func (r *repository) FindCovering(ctx context.Context, date time.Time) (*models.FinancePeriodLock, error) {
	var lock models.FinancePeriodLock
	err := r.db.WithContext(ctx).
		Where("starts_on <= ? AND ends_on >= ?", date, date).
		Order("starts_on ASC").
		First(&lock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

func (r *repository) FindOverlapping(ctx context.Context, startsOn, endsOn time.Time) (*models.FinancePeriodLock, error) {
	var lock models.FinancePeriodLock
	err := r.db.WithContext(ctx).
		Where("starts_on <= ? AND ends_on >= ?", endsOn, startsOn).
		Order("starts_on ASC").
		First(&lock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}
