package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/robertrullyp/drsis-finance/internal/accounts"
	"github.com/robertrullyp/drsis-finance/internal/audit"
	"github.com/robertrullyp/drsis-finance/internal/periodlock"
	"github.com/robertrullyp/drsis-finance/pkg/db"
	"github.com/robertrullyp/drsis-finance/pkg/db/models"
	"github.com/robertrullyp/drsis-finance/pkg/enums"
	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
	"github.com/robertrullyp/drsis-finance/pkg/outbox"
	"github.com/robertrullyp/drsis-finance/pkg/outbox/payloads"
	"github.com/robertrullyp/drsis-finance/pkg/pagination"
)

// errRefNoRaced signals that an auto-allocated reference number lost the
// race to a concurrent insert. Creates retry once with a fresh allocation
// before surfacing a conflict.
var errRefNoRaced = errors.New("allocated reference number was taken")

// Actor identifies the authenticated caller of a ledger operation.
type Actor struct {
	ID   string
	Role enums.ActorRole
}

// Service exposes the operational ledger: maker/checker entry recording with
// idempotent reference numbers and balance settlement on approval.
type Service interface {
	CreateTransaction(ctx context.Context, actor Actor, input CreateTxnInput) (*models.OperationalTxn, error)
	CreateTransfer(ctx context.Context, actor Actor, input CreateTransferInput) (*TransferPair, error)
	UpdatePending(ctx context.Context, actor Actor, txnID uuid.UUID, input UpdateTxnInput) (*models.OperationalTxn, error)
	Approve(ctx context.Context, actor Actor, txnID uuid.UUID) (*models.OperationalTxn, error)
	Reject(ctx context.Context, actor Actor, txnID uuid.UUID) (*models.OperationalTxn, error)
	Get(ctx context.Context, txnID uuid.UUID) (*models.OperationalTxn, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.OperationalTxn, string, error)
}

// CreateTxnInput holds the validated payload for a single income or expense
// entry. ReferenceNo is optional; when supplied and already present, the
// existing entry is returned unchanged.
type CreateTxnInput struct {
	Kind        enums.TxnKind
	Amount      int64
	AccountID   uuid.UUID
	CashBankID  uuid.UUID
	TxnDate     time.Time
	Description string
	ReferenceNo string
}

// CreateTransferInput holds the validated payload for a two-leg transfer.
type CreateTransferInput struct {
	FromAccountID  uuid.UUID
	FromCashBankID uuid.UUID
	ToAccountID    uuid.UUID
	ToCashBankID   uuid.UUID
	Amount         int64
	TxnDate        time.Time
	Description    string
}

// TransferPair carries both legs of a created transfer.
type TransferPair struct {
	Out *models.OperationalTxn
	In  *models.OperationalTxn
}

// UpdateTxnInput holds optional mutation values for a pending entry.
type UpdateTxnInput struct {
	Amount      *int64
	AccountID   *uuid.UUID
	CashBankID  *uuid.UUID
	TxnDate     *time.Time
	Description *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo         Repository
	accountsRepo accounts.Repository
	lockRepo     periodlock.Repository
	tx           txRunner
	outbox       outboxEmitter
	auditor      *audit.Recorder
}

// NewService constructs a ledger service instance.
func NewService(repo Repository, accountsRepo accounts.Repository, lockRepo periodlock.Repository, tx txRunner, emitter outboxEmitter, auditor *audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if lockRepo == nil {
		return nil, fmt.Errorf("period lock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:         repo,
		accountsRepo: accountsRepo,
		lockRepo:     lockRepo,
		tx:           tx,
		outbox:       emitter,
		auditor:      auditor,
	}, nil
}

// CreateTransaction records a pending income or expense entry. Transfers go
// through CreateTransfer.
func (s *service) CreateTransaction(ctx context.Context, actor Actor, input CreateTxnInput) (*models.OperationalTxn, error) {
	if input.Kind != enums.TxnKindIncome && input.Kind != enums.TxnKindExpense {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kind must be income or expense")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	input.ReferenceNo = strings.TrimSpace(input.ReferenceNo)
	date := periodlock.DateOf(input.TxnDate)

	var created *models.OperationalTxn
	createOnce := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			txAccounts := s.accountsRepo.WithTx(tx)

			if input.ReferenceNo != "" {
				existing, err := txRepo.FindByReferenceNo(ctx, input.ReferenceNo)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: look up reference number")
				}
				if existing != nil {
					created = existing
					return nil
				}
			}

			if _, err := accounts.ValidateFinanceAccount(ctx, txAccounts, input.AccountID); err != nil {
				return err
			}
			if _, err := accounts.ValidateCashBank(ctx, txAccounts, input.CashBankID); err != nil {
				return err
			}
			if err := periodlock.AssertUnlocked(ctx, s.lockRepo.WithTx(tx), date); err != nil {
				return err
			}

			referenceNo := input.ReferenceNo
			if referenceNo == "" {
				allocated, err := nextReferenceNos(ctx, txRepo, date, 1)
				if err != nil {
					return err
				}
				referenceNo = allocated[0]
			}

			txn := &models.OperationalTxn{
				ID:             uuid.New(),
				TxnDate:        date,
				Kind:           input.Kind,
				Amount:         input.Amount,
				AccountID:      input.AccountID,
				CashBankID:     input.CashBankID,
				ReferenceNo:    referenceNo,
				Description:    input.Description,
				ApprovalStatus: enums.ApprovalStatusPending,
				CreatedBy:      actor.ID,
			}
			if err := txRepo.Create(ctx, txn); err != nil {
				if db.IsUniqueViolation(err, "idx_operational_txns_reference_no") {
					if input.ReferenceNo == "" {
						return errRefNoRaced
					}
					return pkgerrors.New(pkgerrors.CodeConflict, "reference number "+referenceNo+" already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert ledger entry")
			}
			created = txn
			return nil
		})
	}

	err := createOnce()
	if errors.Is(err, errRefNoRaced) {
		err = createOnce()
	}
	if err != nil {
		if errors.Is(err, errRefNoRaced) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a reference number for "+date.Format("2006-01-02"))
		}
		return nil, err
	}

	s.auditor.Record(ctx, actor.ID, audit.TxnChanged{
		ID:          created.ID,
		Verb:        enums.AuditActionCreate,
		ReferenceNo: created.ReferenceNo,
		Kind:        created.Kind,
		Amount:      created.Amount,
		Status:      created.ApprovalStatus,
	})
	return created, nil
}

// CreateTransfer records both legs of a cash movement atomically. The legs
// cross-link through TransferPairID and settle together on approval.
func (s *service) CreateTransfer(ctx context.Context, actor Actor, input CreateTransferInput) (*TransferPair, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.FromCashBankID == input.ToCashBankID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer requires two distinct cash/bank accounts")
	}
	date := periodlock.DateOf(input.TxnDate)

	var pair *TransferPair
	createOnce := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			txAccounts := s.accountsRepo.WithTx(tx)

			for _, accountID := range []uuid.UUID{input.FromAccountID, input.ToAccountID} {
				if _, err := accounts.ValidateFinanceAccount(ctx, txAccounts, accountID); err != nil {
					return err
				}
			}
			for _, cashBankID := range []uuid.UUID{input.FromCashBankID, input.ToCashBankID} {
				if _, err := accounts.ValidateCashBank(ctx, txAccounts, cashBankID); err != nil {
					return err
				}
			}
			if err := periodlock.AssertUnlocked(ctx, s.lockRepo.WithTx(tx), date); err != nil {
				return err
			}

			refNos, err := nextReferenceNos(ctx, txRepo, date, 2)
			if err != nil {
				return err
			}

			outID := uuid.New()
			inID := uuid.New()
			out := &models.OperationalTxn{
				ID:             outID,
				TxnDate:        date,
				Kind:           enums.TxnKindTransferOut,
				Amount:         input.Amount,
				AccountID:      input.FromAccountID,
				CashBankID:     input.FromCashBankID,
				ReferenceNo:    refNos[0],
				Description:    input.Description,
				ApprovalStatus: enums.ApprovalStatusPending,
				TransferPairID: &inID,
				CreatedBy:      actor.ID,
			}
			in := &models.OperationalTxn{
				ID:             inID,
				TxnDate:        date,
				Kind:           enums.TxnKindTransferIn,
				Amount:         input.Amount,
				AccountID:      input.ToAccountID,
				CashBankID:     input.ToCashBankID,
				ReferenceNo:    refNos[1],
				Description:    input.Description,
				ApprovalStatus: enums.ApprovalStatusPending,
				TransferPairID: &outID,
				CreatedBy:      actor.ID,
			}
			if err := txRepo.CreateAll(ctx, []*models.OperationalTxn{out, in}); err != nil {
				if db.IsUniqueViolation(err, "idx_operational_txns_reference_no") {
					return errRefNoRaced
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert transfer legs")
			}
			pair = &TransferPair{Out: out, In: in}
			return nil
		})
	}

	err := createOnce()
	if errors.Is(err, errRefNoRaced) {
		err = createOnce()
	}
	if err != nil {
		if errors.Is(err, errRefNoRaced) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a reference number for "+date.Format("2006-01-02"))
		}
		return nil, err
	}

	for _, leg := range []*models.OperationalTxn{pair.Out, pair.In} {
		s.auditor.Record(ctx, actor.ID, audit.TxnChanged{
			ID:          leg.ID,
			Verb:        enums.AuditActionCreate,
			ReferenceNo: leg.ReferenceNo,
			Kind:        leg.Kind,
			Amount:      leg.Amount,
			Status:      leg.ApprovalStatus,
		})
	}
	return pair, nil
}

// UpdatePending edits an entry that has not been decided yet. Only the
// creator or a finance admin may edit; date moves re-check the period lock
// for both the old and the new date. Amount and date changes on a transfer
// leg mirror to the paired leg so the legs keep equal amounts and move
// between periods together.
func (s *service) UpdatePending(ctx context.Context, actor Actor, txnID uuid.UUID, input UpdateTxnInput) (*models.OperationalTxn, error) {
	if input.Amount != nil && *input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var updated *models.OperationalTxn
	var pairUpdated *models.OperationalTxn
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txAccounts := s.accountsRepo.WithTx(tx)
		txLocks := s.lockRepo.WithTx(tx)

		txn, err := txRepo.FindByID(ctx, txnID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load ledger entry")
		}
		if txn == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		if txn.ApprovalStatus != enums.ApprovalStatusPending {
			return pkgerrors.New(pkgerrors.CodeNotEditable, "only pending entries can be edited")
		}
		if txn.CreatedBy != actor.ID && !actor.Role.Elevated() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator or a finance admin may edit this entry")
		}

		var pair *models.OperationalTxn
		if txn.TransferPairID != nil {
			pair, err = txRepo.FindByID(ctx, *txn.TransferPairID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load transfer pair")
			}
			if pair == nil {
				return pkgerrors.New(pkgerrors.CodeDependency, "transfer pair is missing")
			}
		}

		if err := periodlock.AssertUnlocked(ctx, txLocks, txn.TxnDate); err != nil {
			return err
		}
		if input.TxnDate != nil {
			newDate := periodlock.DateOf(*input.TxnDate)
			if !newDate.Equal(txn.TxnDate) {
				if err := periodlock.AssertUnlocked(ctx, txLocks, newDate); err != nil {
					return err
				}
				txn.TxnDate = newDate
				if pair != nil {
					pair.TxnDate = newDate
				}
			}
		}
		if input.Amount != nil {
			txn.Amount = *input.Amount
			if pair != nil {
				pair.Amount = *input.Amount
			}
		}
		if input.AccountID != nil {
			if _, err := accounts.ValidateFinanceAccount(ctx, txAccounts, *input.AccountID); err != nil {
				return err
			}
			txn.AccountID = *input.AccountID
		}
		if input.CashBankID != nil {
			if pair != nil && *input.CashBankID == pair.CashBankID {
				return pkgerrors.New(pkgerrors.CodeValidation, "transfer requires two distinct cash/bank accounts")
			}
			if _, err := accounts.ValidateCashBank(ctx, txAccounts, *input.CashBankID); err != nil {
				return err
			}
			txn.CashBankID = *input.CashBankID
		}
		if input.Description != nil {
			txn.Description = *input.Description
		}

		if err := txRepo.Update(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update ledger entry")
		}
		if pair != nil && (input.Amount != nil || input.TxnDate != nil) {
			if err := txRepo.Update(ctx, pair); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update transfer pair")
			}
			pairUpdated = pair
		}
		updated = txn
		return nil
	}); err != nil {
		return nil, err
	}

	for _, leg := range []*models.OperationalTxn{updated, pairUpdated} {
		if leg == nil {
			continue
		}
		s.auditor.Record(ctx, actor.ID, audit.TxnChanged{
			ID:          leg.ID,
			Verb:        enums.AuditActionUpdate,
			ReferenceNo: leg.ReferenceNo,
			Kind:        leg.Kind,
			Amount:      leg.Amount,
			Status:      leg.ApprovalStatus,
		})
	}
	return updated, nil
}

// Approve settles a pending entry: the signed amount lands on the cash/bank
// balance inside the same transaction. Approving either transfer leg settles
// both.
func (s *service) Approve(ctx context.Context, actor Actor, txnID uuid.UUID) (*models.OperationalTxn, error) {
	if !actor.Role.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "approval requires finance admin rights")
	}

	now := time.Now()
	var decided *models.OperationalTxn
	var settled []*models.OperationalTxn
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txAccounts := s.accountsRepo.WithTx(tx)

		legs, err := s.loadDecisionLegs(ctx, txRepo, txnID)
		if err != nil {
			return err
		}

		for _, leg := range legs {
			if _, err := accounts.ValidateCashBank(ctx, txAccounts, leg.CashBankID); err != nil {
				return err
			}
		}

		settled = settled[:0]
		for _, leg := range legs {
			delta := leg.Kind.BalanceSign() * leg.Amount
			if err := txAccounts.AdjustCashBankBalance(ctx, leg.CashBankID, delta); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust cash/bank balance")
			}

			leg.ApprovalStatus = enums.ApprovalStatusApproved
			leg.CheckedBy = &actor.ID
			leg.CheckedAt = &now
			leg.ApprovedBy = &actor.ID
			leg.ApprovedAt = &now
			if err := txRepo.Update(ctx, leg); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update ledger entry")
			}

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTxnApproved,
				AggregateType: enums.AggregateOperationalTxn,
				AggregateID:   leg.ID,
				Actor:         &outbox.ActorRef{ActorID: actor.ID, Role: actor.Role},
				Version:       1,
				Data: payloads.TxnApprovedEvent{
					TxnID:        leg.ID,
					ReferenceNo:  leg.ReferenceNo,
					Kind:         leg.Kind,
					Amount:       leg.Amount,
					BalanceDelta: delta,
					CashBankID:   leg.CashBankID,
					ApprovedBy:   actor.ID,
					ApprovedAt:   now,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit approval event")
			}
			settled = append(settled, leg)
		}
		decided = legs[0]
		return nil
	}); err != nil {
		return nil, err
	}

	for _, leg := range settled {
		s.auditor.Record(ctx, actor.ID, audit.TxnChanged{
			ID:          leg.ID,
			Verb:        enums.AuditActionApprove,
			ReferenceNo: leg.ReferenceNo,
			Kind:        leg.Kind,
			Amount:      leg.Amount,
			Status:      leg.ApprovalStatus,
		})
	}
	return decided, nil
}

// Reject declines a pending entry without touching balances. Rejecting
// either transfer leg rejects both.
func (s *service) Reject(ctx context.Context, actor Actor, txnID uuid.UUID) (*models.OperationalTxn, error) {
	if !actor.Role.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rejection requires finance admin rights")
	}

	now := time.Now()
	var decided *models.OperationalTxn
	var rejected []*models.OperationalTxn
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		legs, err := s.loadDecisionLegs(ctx, txRepo, txnID)
		if err != nil {
			return err
		}

		rejected = rejected[:0]
		for _, leg := range legs {
			leg.ApprovalStatus = enums.ApprovalStatusRejected
			leg.CheckedBy = &actor.ID
			leg.CheckedAt = &now
			if err := txRepo.Update(ctx, leg); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update ledger entry")
			}

			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTxnRejected,
				AggregateType: enums.AggregateOperationalTxn,
				AggregateID:   leg.ID,
				Actor:         &outbox.ActorRef{ActorID: actor.ID, Role: actor.Role},
				Version:       1,
				Data: payloads.TxnRejectedEvent{
					TxnID:       leg.ID,
					ReferenceNo: leg.ReferenceNo,
					Kind:        leg.Kind,
					Amount:      leg.Amount,
					RejectedBy:  actor.ID,
					RejectedAt:  now,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit rejection event")
			}
			rejected = append(rejected, leg)
		}
		decided = legs[0]
		return nil
	}); err != nil {
		return nil, err
	}

	for _, leg := range rejected {
		s.auditor.Record(ctx, actor.ID, audit.TxnChanged{
			ID:          leg.ID,
			Verb:        enums.AuditActionReject,
			ReferenceNo: leg.ReferenceNo,
			Kind:        leg.Kind,
			Amount:      leg.Amount,
			Status:      leg.ApprovalStatus,
		})
	}
	return decided, nil
}

func (s *service) Get(ctx context.Context, txnID uuid.UUID) (*models.OperationalTxn, error) {
	txn, err := s.repo.FindByID(ctx, txnID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load ledger entry")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	return txn, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.OperationalTxn, string, error) {
	rows, next, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list ledger entries")
	}
	return rows, next, nil
}

// loadDecisionLegs returns the pending entry plus its pending transfer pair,
// target leg first.
func (s *service) loadDecisionLegs(ctx context.Context, repo Repository, txnID uuid.UUID) ([]*models.OperationalTxn, error) {
	txn, err := repo.FindByID(ctx, txnID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load ledger entry")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	if txn.ApprovalStatus != enums.ApprovalStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeNotEditable, "entry has already been decided")
	}

	legs := []*models.OperationalTxn{txn}
	if txn.TransferPairID != nil {
		pair, err := repo.FindByID(ctx, *txn.TransferPairID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load transfer pair")
		}
		if pair == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "transfer pair row missing")
		}
		if pair.ApprovalStatus != enums.ApprovalStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeNotEditable, "transfer pair has already been decided")
		}
		legs = append(legs, pair)
	}
	return legs, nil
}
