package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sand/crypto-wallet-admin/backend/internal/core/ports"
	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
	"github.com/sand/crypto-wallet-admin/backend/internal/usecases/repository"
)

type DepositsRepository interface {
	InsertDeposit(ctx context.Context, d *entities.Deposit) error
	FindDepositByID(ctx context.Context, depositID int64) (*entities.Deposit, error)
	LockDepositByID(ctx context.Context, depositID int64) (*entities.Deposit, error)
	MarkDepositCancelled(ctx context.Context, depositID int64) error
	FindManualDeposits(ctx context.Context, filter repository.DepositFilter, limit, offset int) ([]entities.DepositWithUser, error)
	CountManualDeposits(ctx context.Context, filter repository.DepositFilter) (int64, error)
	ManualDepositStats(ctx context.Context) (*entities.DepositStats, error)
}

type AuditRepository interface {
	AppendEvent(ctx context.Context, ev *entities.AuditEvent) error
	FindEventsByDeposit(ctx context.Context, depositID int64) ([]entities.AuditEvent, error)
}

// DepositService implements the admin manual deposit operations. Every
// balance-affecting path runs the deposit mutation, the audit event and the
// ledger operation inside one transaction; notifications go out only after
// that unit has committed.
type DepositService struct {
	logger     *slog.Logger
	transactor ports.Transactor
	users      UsersRepository
	deposits   DepositsRepository
	audit      AuditRepository
	ledger     ports.LedgerService
	notifier   ports.Notifier
	feed       ports.ActivityPublisher
}

func NewDepositService(
	logger *slog.Logger,
	transactor ports.Transactor,
	users UsersRepository,
	deposits DepositsRepository,
	audit AuditRepository,
	ledger ports.LedgerService,
	notifier ports.Notifier,
	feed ports.ActivityPublisher,
) *DepositService {
	return &DepositService{
		logger:     logger,
		transactor: transactor,
		users:      users,
		deposits:   deposits,
		audit:      audit,
		ledger:     ledger,
		notifier:   notifier,
		feed:       feed,
	}
}

// CreateManualDeposit credits a user's wallet with an admin-initiated
// deposit. The deposit row, the audit event and the ledger mutation commit
// atomically; the returned balance comes from the ledger, not from any
// pre-transaction read.
func (s *DepositService) CreateManualDeposit(ctx context.Context, in ports.CreateManualDepositInput) (*ports.ManualDepositResult, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, entities.ErrUserInactive
	}

	deposit := &entities.Deposit{
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Network:     in.Network,
		Status:      entities.DepositStatusConfirmed,
		DepositType: entities.DepositTypeManualAdmin,
		AdminNotes:  in.Notes,
		TxHash:      in.TxHash,
	}

	var wallet *entities.Wallet
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.deposits.InsertDeposit(ctx, deposit); err != nil {
			return err
		}

		if err := s.audit.AppendEvent(ctx, &entities.AuditEvent{
			DepositID:  deposit.ID,
			Kind:       entities.AuditManualCredit,
			AdminID:    in.Admin.ID,
			AdminEmail: in.Admin.Email,
			Notes:      in.Notes,
		}); err != nil {
			return err
		}

		memo := fmt.Sprintf("manual deposit by %s", in.Admin.Email)
		wallet, err = s.ledger.ApplyWalletOperation(ctx, in.UserID, in.Amount, entities.LedgerDeposit, memo, &deposit.ID)
		return err
	})
	if err != nil {
		s.logger.Error("Manual deposit failed",
			"user_id", in.UserID,
			"amount", in.Amount.String(),
			"admin_id", in.Admin.ID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Manual deposit created",
		"deposit_id", deposit.ID,
		"user_id", in.UserID,
		"amount", in.Amount.String(),
		"currency", string(in.Currency),
		"network", string(in.Network),
		"admin_id", in.Admin.ID,
	)

	if in.SendEmail {
		s.notifier.NotifyDepositCreated(user, deposit, wallet.Balance)
	}
	s.feed.PublishDepositCreated(deposit, user)

	return &ports.ManualDepositResult{
		Deposit:    deposit,
		User:       user,
		NewBalance: wallet.Balance,
	}, nil
}

// CancelManualDeposit transitions a manual deposit to CANCELLED and, when a
// positive refund amount is supplied, applies a compensating REFUND to the
// depositor's wallet in the same transaction.
func (s *DepositService) CancelManualDeposit(ctx context.Context, in ports.CancelDepositInput) (*entities.Deposit, error) {
	if in.Reason == "" {
		return nil, entities.NewValidationError("reason", "cancellation reason is required")
	}
	if len(in.Reason) > ports.MaxNotesLength {
		return nil, entities.NewValidationError("reason", "cancellation reason is too long")
	}
	if in.RefundAmount != nil && in.RefundAmount.Sign() < 0 {
		return nil, entities.NewValidationError("refundAmount", "refund amount cannot be negative")
	}

	var deposit *entities.Deposit
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		deposit, err = s.deposits.LockDepositByID(ctx, in.DepositID)
		if err != nil {
			return err
		}
		if deposit == nil {
			return entities.ErrDepositNotFound
		}
		if deposit.DepositType != entities.DepositTypeManualAdmin {
			return entities.ErrDepositNotManual
		}
		if deposit.Status == entities.DepositStatusCancelled {
			return entities.ErrDepositAlreadyCancelled
		}

		if err = s.deposits.MarkDepositCancelled(ctx, deposit.ID); err != nil {
			return err
		}

		if err = s.audit.AppendEvent(ctx, &entities.AuditEvent{
			DepositID:  deposit.ID,
			Kind:       entities.AuditCancellation,
			AdminID:    in.Admin.ID,
			AdminEmail: in.Admin.Email,
			Notes:      in.Reason,
		}); err != nil {
			return err
		}

		if in.RefundAmount != nil && in.RefundAmount.Sign() > 0 {
			memo := fmt.Sprintf("refund for cancelled deposit %d by %s", deposit.ID, in.Admin.Email)
			if _, err = s.ledger.ApplyWalletOperation(ctx, deposit.UserID, *in.RefundAmount, entities.LedgerRefund, memo, &deposit.ID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	deposit.Status = entities.DepositStatusCancelled

	s.logger.Info("Manual deposit cancelled",
		"deposit_id", deposit.ID,
		"user_id", deposit.UserID,
		"admin_id", in.Admin.ID,
		"reason", in.Reason,
	)

	if user, err := s.users.FindUserByID(ctx, deposit.UserID); err == nil && user != nil {
		s.notifier.NotifyDepositCancelled(user, deposit, in.Reason)
	}
	s.feed.PublishDepositCancelled(deposit, in.Reason)

	return deposit, nil
}

// ListManualDeposits returns a page of manual admin deposits.
func (s *DepositService) ListManualDeposits(ctx context.Context, params ports.ListDepositsParams) ([]entities.DepositWithUser, entities.Pagination, error) {
	if params.Limit == 0 {
		params.Limit = ports.DefaultDepositsPageSize
	}
	if err := validatePageParams(params.Page, params.Limit); err != nil {
		return nil, entities.Pagination{}, err
	}

	filter := repository.DepositFilter{
		UserID:   params.UserID,
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	}

	total, err := s.deposits.CountManualDeposits(ctx, filter)
	if err != nil {
		return nil, entities.Pagination{}, err
	}

	offset := (params.Page - 1) * params.Limit
	deposits, err := s.deposits.FindManualDeposits(ctx, filter, params.Limit, offset)
	if err != nil {
		return nil, entities.Pagination{}, err
	}

	return deposits, entities.NewPagination(params.Page, params.Limit, total), nil
}

// GetManualDeposit returns one manual deposit together with its audit
// trail.
func (s *DepositService) GetManualDeposit(ctx context.Context, depositID int64) (*ports.ManualDepositDetail, error) {
	deposit, err := s.deposits.FindDepositByID(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		return nil, entities.ErrDepositNotFound
	}
	if deposit.DepositType != entities.DepositTypeManualAdmin {
		return nil, entities.ErrDepositNotManual
	}

	trail, err := s.audit.FindEventsByDeposit(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if trail == nil {
		trail = []entities.AuditEvent{}
	}

	return &ports.ManualDepositDetail{Deposit: deposit, AuditTrail: trail}, nil
}

// GetManualDepositStats aggregates manual deposits overall and per
// currency/network.
func (s *DepositService) GetManualDepositStats(ctx context.Context) (*entities.DepositStats, error) {
	return s.deposits.ManualDepositStats(ctx)
}

func validateCreateInput(in ports.CreateManualDepositInput) error {
	if in.Amount.Sign() <= 0 {
		return entities.NewValidationError("amount", "amount must be greater than zero")
	}
	if !in.Currency.IsValid() {
		return entities.NewValidationError("currency", "unsupported currency")
	}
	if !in.Network.IsValid() {
		return entities.NewValidationError("network", "unsupported network")
	}
	if len(in.Notes) > ports.MaxNotesLength {
		return entities.NewValidationError("notes", "notes are too long")
	}
	if in.TxHash != nil && in.Network.IsEVM() && !isValidEVMTxHash(*in.TxHash) {
		return entities.NewValidationError("txHash", "transaction hash must be a 32-byte 0x-hex string")
	}
	return nil
}

func isValidEVMTxHash(h string) bool {
	b, err := hexutil.Decode(h)
	return err == nil && len(b) == common.HashLength
}
