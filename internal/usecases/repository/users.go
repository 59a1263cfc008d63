package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
	"github.com/sand/crypto-wallet-admin/backend/pkg/database"
)

// UsersRepository handles user reads for the admin views.
type UsersRepository struct {
	logger     *slog.Logger
	db         tx.DBGetter
	transactor *tx.Transactor
	builder    sq.StatementBuilderType
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(logger *slog.Logger, pg *database.Postgres) *UsersRepository {
	return &UsersRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
		builder:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func searchPredicate(search string) sq.Sqlizer {
	pattern := "%" + search + "%"
	return sq.Or{
		sq.ILike{"u.full_name": pattern},
		sq.ILike{"u.email": pattern},
		sq.ILike{"u.phone": pattern},
	}
}

// FindActiveUsers returns a page of active users joined with their wallet
// summaries, optionally filtered by a case-insensitive substring match on
// name, email or phone.
func (r *UsersRepository) FindActiveUsers(ctx context.Context, search string, limit, offset int) ([]entities.UserWithWallet, error) {
	qb := r.builder.
		Select(
			"u.id", "u.full_name", "u.email", "u.phone", "u.is_active", "u.created_at",
			"w.balance::text", "w.total_deposits::text", "w.total_withdrawals::text",
		).
		From("users u").
		Join("wallets w ON w.user_id = u.id").
		Where(sq.Eq{"u.is_active": true}).
		OrderBy("u.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if search != "" {
		qb = qb.Where(searchPredicate(search))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build users query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []entities.UserWithWallet
	for rows.Next() {
		var u entities.UserWithWallet
		var balance, totalDeposits, totalWithdrawals string

		if err = rows.Scan(
			&u.ID, &u.FullName, &u.Email, &u.Phone, &u.IsActive, &u.CreatedAt,
			&balance, &totalDeposits, &totalWithdrawals,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if u.Wallet, err = scanWalletSummary(balance, totalDeposits, totalWithdrawals); err != nil {
			return nil, err
		}

		users = append(users, u)
	}

	return users, rows.Err()
}

// CountActiveUsers returns the total number of active users matching the
// optional search term.
func (r *UsersRepository) CountActiveUsers(ctx context.Context, search string) (int64, error) {
	qb := r.builder.
		Select("COUNT(*)").
		From("users u").
		Where(sq.Eq{"u.is_active": true})

	if search != "" {
		qb = qb.Where(searchPredicate(search))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build users count query: %w", err)
	}

	var total int64
	if err = r.db(ctx).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return total, nil
}

// FindUserByID retrieves a user by id. Returns nil when no user exists.
func (r *UsersRepository) FindUserByID(ctx context.Context, userID int64) (*entities.User, error) {
	query := `SELECT id, full_name, email, phone, is_active, created_at
                FROM users
               WHERE id = $1`

	var user entities.User
	err := r.db(ctx).QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.Phone,
		&user.IsActive,
		&user.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}

	return &user, nil
}

func scanWalletSummary(balance, totalDeposits, totalWithdrawals string) (entities.WalletSummary, error) {
	var s entities.WalletSummary
	var err error

	if s.Balance, err = decimal.NewFromString(balance); err != nil {
		return s, fmt.Errorf("invalid balance in database: %w", err)
	}
	if s.TotalDeposits, err = decimal.NewFromString(totalDeposits); err != nil {
		return s, fmt.Errorf("invalid total_deposits in database: %w", err)
	}
	if s.TotalWithdrawals, err = decimal.NewFromString(totalWithdrawals); err != nil {
		return s, fmt.Errorf("invalid total_withdrawals in database: %w", err)
	}

	return s, nil
}
