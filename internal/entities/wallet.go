package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's running balance together with cumulative deposit
// and withdrawal totals. The balance always equals the net of all applied
// ledger entries; the totals only ever grow.
type Wallet struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// WalletSummary is the read-only projection returned in API responses.
type WalletSummary struct {
	Balance          decimal.Decimal `json:"balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
}

// LedgerKind classifies a balance-affecting operation.
type LedgerKind string

const (
	LedgerDeposit    LedgerKind = "DEPOSIT"
	LedgerWithdrawal LedgerKind = "WITHDRAWAL"
	LedgerRefund     LedgerKind = "REFUND"
)

// LedgerEntry is the immutable record of a single wallet operation.
// DepositID links the entry back to the deposit that justified it.
type LedgerEntry struct {
	ID        int64           `json:"id"`
	WalletID  int64           `json:"wallet_id"`
	Kind      LedgerKind      `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
	DepositID *int64          `json:"deposit_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
