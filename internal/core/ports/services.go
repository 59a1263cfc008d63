package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

// Transactor runs a function inside a single database transaction.
// *tx.Transactor from Thiht/transactor satisfies it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerService applies balance-affecting operations to a user's wallet and
// records an immutable ledger entry for each one. It must be invoked inside
// the same transaction as the record change that justifies the operation.
type LedgerService interface {
	// ApplyWalletOperation mutates the wallet under a row lock and returns
	// the updated wallet so callers never need a second read.
	ApplyWalletOperation(ctx context.Context, userID int64, amount decimal.Decimal, kind entities.LedgerKind, memo string, depositID *int64) (*entities.Wallet, error)
}

type ListUsersParams struct {
	Page   int
	Limit  int
	Search string
}

type UserService interface {
	ListUsers(ctx context.Context, params ListUsersParams) ([]entities.UserWithWallet, entities.Pagination, error)
	GetUserDetail(ctx context.Context, userID int64) (*entities.UserDetail, error)
}

type CreateManualDepositInput struct {
	UserID    int64
	Amount    decimal.Decimal
	Currency  entities.Currency
	Network   entities.Network
	Notes     string
	TxHash    *string
	SendEmail bool
	Admin     entities.AdminPrincipal
}

// ManualDepositResult carries the created deposit together with the wallet
// state reported by the ledger, which is the single source of truth for the
// post-operation balance.
type ManualDepositResult struct {
	Deposit    *entities.Deposit
	User       *entities.User
	NewBalance decimal.Decimal
}

type ListDepositsParams struct {
	Page     int
	Limit    int
	UserID   *int64
	DateFrom *time.Time
	DateTo   *time.Time
}

type CancelDepositInput struct {
	DepositID    int64
	Reason       string
	RefundAmount *decimal.Decimal
	Admin        entities.AdminPrincipal
}

// ManualDepositDetail is the single-deposit admin view: the deposit and
// the admin actions recorded against it, oldest first.
type ManualDepositDetail struct {
	Deposit    *entities.Deposit     `json:"deposit"`
	AuditTrail []entities.AuditEvent `json:"audit_trail"`
}

type DepositService interface {
	CreateManualDeposit(ctx context.Context, in CreateManualDepositInput) (*ManualDepositResult, error)
	ListManualDeposits(ctx context.Context, params ListDepositsParams) ([]entities.DepositWithUser, entities.Pagination, error)
	GetManualDeposit(ctx context.Context, depositID int64) (*ManualDepositDetail, error)
	GetManualDepositStats(ctx context.Context) (*entities.DepositStats, error)
	CancelManualDeposit(ctx context.Context, in CancelDepositInput) (*entities.Deposit, error)
}

// Notifier dispatches best-effort notifications. Implementations must never
// block the caller on delivery; failures are logged, not returned.
type Notifier interface {
	NotifyDepositCreated(user *entities.User, deposit *entities.Deposit, newBalance decimal.Decimal)
	NotifyDepositCancelled(user *entities.User, deposit *entities.Deposit, reason string)
}

// MailSender delivers a single email message.
type MailSender interface {
	Send(to, subject, body string) error
}

// ActivityPublisher broadcasts admin activity events to connected
// dashboards. Best-effort, fire-and-forget.
type ActivityPublisher interface {
	PublishDepositCreated(deposit *entities.Deposit, user *entities.User)
	PublishDepositCancelled(deposit *entities.Deposit, reason string)
}
