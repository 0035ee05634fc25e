package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

// ListFilter narrows a ledger listing. Nil fields are skipped.
type ListFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	Kind       *enums.TxnKind
	Status     *enums.ApprovalStatus
	AccountID  *uuid.UUID
	CashBankID *uuid.UUID
}

// Repository manages operational ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, txn *models.OperationalTxn) error
	CreateAll(ctx context.Context, txns []*models.OperationalTxn) error
	Update(ctx context.Context, txn *models.OperationalTxn) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OperationalTxn, error)
	FindByReferenceNo(ctx context.Context, referenceNo string) (*models.OperationalTxn, error)
	CountForDate(ctx context.Context, date time.Time) (int64, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.OperationalTxn, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.OperationalTxn) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) CreateAll(ctx context.Context, txns []*models.OperationalTxn) error {
	return r.db.WithContext(ctx).Create(&txns).Error
}

func (r *repository) Update(ctx context.Context, txn *models.OperationalTxn) error {
	return r.db.WithContext(ctx).Save(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OperationalTxn, error) {
	var txn models.OperationalTxn
	err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByReferenceNo(ctx context.Context, referenceNo string) (*models.OperationalTxn, error) {
	var txn models.OperationalTxn
	err := r.db.WithContext(ctx).First(&txn, "reference_no = ?", referenceNo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OperationalTxn{}).
		Where("txn_date = ?", date).
		Count(&count).Error
	return count, err
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when exhausted.
func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.OperationalTxn, string, error) {
	query := r.db.WithContext(ctx).Model(&models.OperationalTxn{})

	if filter.DateFrom != nil {
		query = query.Where("txn_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("txn_date <= ?", *filter.DateTo)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("approval_status = ?", *filter.Status)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.CashBankID != nil {
		query = query.Where("cash_bank_id = ?", *filter.CashBankID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.OperationalTxn
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}
