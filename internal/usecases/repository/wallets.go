package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
	"github.com/sand/crypto-wallet-admin/backend/pkg/database"
)

// WalletsRepository handles wallet state and the immutable ledger.
type WalletsRepository struct {
	logger     *slog.Logger
	db         tx.DBGetter
	transactor *tx.Transactor
}

// NewWalletsRepository creates a new wallets repository.
func NewWalletsRepository(logger *slog.Logger, pg *database.Postgres) *WalletsRepository {
	return &WalletsRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
	}
}

// FindWalletByUserID retrieves a wallet without locking it. Returns nil
// when the user has no wallet.
func (r *WalletsRepository) FindWalletByUserID(ctx context.Context, userID int64) (*entities.Wallet, error) {
	query := `SELECT id, user_id, balance::text, total_deposits::text, total_withdrawals::text, updated_at
                FROM wallets
               WHERE user_id = $1`

	return r.scanWallet(r.db(ctx).QueryRow(ctx, query, userID))
}

// LockWalletByUserID retrieves a wallet under a row lock. Concurrent
// balance updates on the same wallet serialize on this lock, so the
// read-modify-write in the ledger service is free of lost updates. Must be
// called inside WithinTransaction.
func (r *WalletsRepository) LockWalletByUserID(ctx context.Context, userID int64) (*entities.Wallet, error) {
	query := `SELECT id, user_id, balance::text, total_deposits::text, total_withdrawals::text, updated_at
                FROM wallets
               WHERE user_id = $1
                 FOR UPDATE`

	return r.scanWallet(r.db(ctx).QueryRow(ctx, query, userID))
}

// UpdateWalletBalances persists the balance and cumulative totals of a
// locked wallet.
func (r *WalletsRepository) UpdateWalletBalances(ctx context.Context, wallet *entities.Wallet) error {
	query := `UPDATE wallets
                 SET balance = $2, total_deposits = $3, total_withdrawals = $4, updated_at = NOW()
               WHERE id = $1`

	_, err := r.db(ctx).Exec(ctx, query,
		wallet.ID,
		wallet.Balance.String(),
		wallet.TotalDeposits.String(),
		wallet.TotalWithdrawals.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balances: %w", err)
	}

	return nil
}

// InsertLedgerEntry records an immutable ledger entry for a wallet
// operation.
func (r *WalletsRepository) InsertLedgerEntry(ctx context.Context, entry *entities.LedgerEntry) error {
	query := `INSERT INTO wallet_ledger (wallet_id, kind, amount, memo, deposit_id)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`

	err := r.db(ctx).QueryRow(ctx, query,
		entry.WalletID,
		string(entry.Kind),
		entry.Amount.String(),
		entry.Memo,
		entry.DepositID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

func (r *WalletsRepository) scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var wallet entities.Wallet
	var balance, totalDeposits, totalWithdrawals string

	err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&balance,
		&totalDeposits,
		&totalWithdrawals,
		&wallet.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	if wallet.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("invalid balance in database: %w", err)
	}
	if wallet.TotalDeposits, err = decimal.NewFromString(totalDeposits); err != nil {
		return nil, fmt.Errorf("invalid total_deposits in database: %w", err)
	}
	if wallet.TotalWithdrawals, err = decimal.NewFromString(totalWithdrawals); err != nil {
		return nil, fmt.Errorf("invalid total_withdrawals in database: %w", err)
	}

	return &wallet, nil
}
