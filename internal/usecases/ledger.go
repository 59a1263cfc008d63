package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

// WalletLedgerRepository is the persistence surface the ledger needs: a
// locked read, a balance write and an immutable entry insert.
type WalletLedgerRepository interface {
	LockWalletByUserID(ctx context.Context, userID int64) (*entities.Wallet, error)
	UpdateWalletBalances(ctx context.Context, wallet *entities.Wallet) error
	InsertLedgerEntry(ctx context.Context, entry *entities.LedgerEntry) error
}

// LedgerService applies balance-affecting operations against a user's
// wallet. It does not open transactions itself: callers run it inside
// WithinTransaction so the wallet mutation commits or rolls back together
// with the record change that justified it.
type LedgerService struct {
	logger  *slog.Logger
	wallets WalletLedgerRepository
}

func NewLedgerService(logger *slog.Logger, wallets WalletLedgerRepository) *LedgerService {
	return &LedgerService{logger: logger, wallets: wallets}
}

// ApplyWalletOperation credits or debits a wallet under a row lock and
// records the matching ledger entry. DEPOSIT and REFUND increase the
// balance, WITHDRAWAL decreases it. Aggregates: DEPOSIT grows
// total_deposits, WITHDRAWAL grows total_withdrawals, REFUND touches the
// balance only. Returns the updated wallet, which is the caller's single
// source of truth for the post-operation balance.
func (s *LedgerService) ApplyWalletOperation(ctx context.Context, userID int64, amount decimal.Decimal, kind entities.LedgerKind, memo string, depositID *int64) (*entities.Wallet, error) {
	if amount.Sign() <= 0 {
		return nil, entities.ErrNonPositiveAmount
	}

	wallet, err := s.wallets.LockWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("no wallet found for user %d", userID)
	}

	switch kind {
	case entities.LedgerDeposit:
		wallet.Balance = wallet.Balance.Add(amount)
		wallet.TotalDeposits = wallet.TotalDeposits.Add(amount)
	case entities.LedgerWithdrawal:
		wallet.Balance = wallet.Balance.Sub(amount)
		wallet.TotalWithdrawals = wallet.TotalWithdrawals.Add(amount)
	case entities.LedgerRefund:
		wallet.Balance = wallet.Balance.Add(amount)
	default:
		return nil, fmt.Errorf("unknown ledger operation kind: %s", kind)
	}

	if err = s.wallets.UpdateWalletBalances(ctx, wallet); err != nil {
		return nil, err
	}

	entry := &entities.LedgerEntry{
		WalletID:  wallet.ID,
		Kind:      kind,
		Amount:    amount,
		Memo:      memo,
		DepositID: depositID,
	}
	if err = s.wallets.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet operation applied",
		"user_id", userID,
		"kind", string(kind),
		"amount", amount.String(),
		"balance", wallet.Balance.String(),
	)

	return wallet, nil
}
