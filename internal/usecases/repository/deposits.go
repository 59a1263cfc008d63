package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
	"github.com/sand/crypto-wallet-admin/backend/pkg/database"
)

// DepositFilter holds the optional filters of the manual deposit listing.
// Date bounds are inclusive.
type DepositFilter struct {
	UserID   *int64
	DateFrom *time.Time
	DateTo   *time.Time
}

// DepositsRepository handles deposit records.
type DepositsRepository struct {
	logger     *slog.Logger
	db         tx.DBGetter
	transactor *tx.Transactor
	builder    sq.StatementBuilderType
}

// NewDepositsRepository creates a new deposits repository.
func NewDepositsRepository(logger *slog.Logger, pg *database.Postgres) *DepositsRepository {
	return &DepositsRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
		builder:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// InsertDeposit stores a new deposit and fills in its generated id and
// timestamps.
func (r *DepositsRepository) InsertDeposit(ctx context.Context, d *entities.Deposit) error {
	query := `INSERT INTO deposits (user_id, amount, currency, network, status, deposit_type, admin_notes, tx_hash)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, created_at, updated_at`

	err := r.db(ctx).QueryRow(ctx, query,
		d.UserID,
		d.Amount.String(),
		string(d.Currency),
		string(d.Network),
		string(d.Status),
		string(d.DepositType),
		d.AdminNotes,
		d.TxHash,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert deposit: %w", err)
	}

	r.logger.Info("Deposit recorded", "deposit_id", d.ID, "user_id", d.UserID, "amount", d.Amount.String())
	return nil
}

// FindDepositByID retrieves a deposit by id. Returns nil when no deposit
// exists.
func (r *DepositsRepository) FindDepositByID(ctx context.Context, depositID int64) (*entities.Deposit, error) {
	query := `SELECT id, user_id, amount::text, currency, network, status, deposit_type, admin_notes, tx_hash, created_at, updated_at
                FROM deposits
               WHERE id = $1`

	d, err := scanDeposit(r.db(ctx).QueryRow(ctx, query, depositID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query deposit by id: %w", err)
	}

	return d, nil
}

// LockDepositByID retrieves a deposit under a row lock so that concurrent
// cancellations of the same deposit serialize. Must be called inside
// WithinTransaction.
func (r *DepositsRepository) LockDepositByID(ctx context.Context, depositID int64) (*entities.Deposit, error) {
	query := `SELECT id, user_id, amount::text, currency, network, status, deposit_type, admin_notes, tx_hash, created_at, updated_at
                FROM deposits
               WHERE id = $1
                 FOR UPDATE`

	d, err := scanDeposit(r.db(ctx).QueryRow(ctx, query, depositID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock deposit: %w", err)
	}

	return d, nil
}

// MarkDepositCancelled transitions a deposit to CANCELLED.
func (r *DepositsRepository) MarkDepositCancelled(ctx context.Context, depositID int64) error {
	query := `UPDATE deposits SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db(ctx).Exec(ctx, query, depositID, string(entities.DepositStatusCancelled))
	if err != nil {
		return fmt.Errorf("failed to cancel deposit: %w", err)
	}

	r.logger.Info("Deposit cancelled", "deposit_id", depositID)
	return nil
}

// FindRecentDepositsByUser returns a user's most recent deposits of any
// type, newest first.
func (r *DepositsRepository) FindRecentDepositsByUser(ctx context.Context, userID int64, limit int) ([]entities.Deposit, error) {
	query := `SELECT id, user_id, amount::text, currency, network, status, deposit_type, admin_notes, tx_hash, created_at, updated_at
                FROM deposits
               WHERE user_id = $1
               ORDER BY created_at DESC
               LIMIT $2`

	rows, err := r.db(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent deposits: %w", err)
	}
	defer rows.Close()

	var deposits []entities.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, *d)
	}

	return deposits, rows.Err()
}

func (r *DepositsRepository) manualDepositsWhere(qb sq.SelectBuilder, filter DepositFilter) sq.SelectBuilder {
	qb = qb.Where(sq.Eq{"d.deposit_type": string(entities.DepositTypeManualAdmin)})

	if filter.UserID != nil {
		qb = qb.Where(sq.Eq{"d.user_id": *filter.UserID})
	}
	if filter.DateFrom != nil {
		qb = qb.Where(sq.GtOrEq{"d.created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		qb = qb.Where(sq.LtOrEq{"d.created_at": *filter.DateTo})
	}

	return qb
}

// FindManualDeposits returns a page of manual admin deposits joined with
// the owning user's identity, newest first.
func (r *DepositsRepository) FindManualDeposits(ctx context.Context, filter DepositFilter, limit, offset int) ([]entities.DepositWithUser, error) {
	qb := r.builder.
		Select(
			"d.id", "d.user_id", "d.amount::text", "d.currency", "d.network", "d.status",
			"d.deposit_type", "d.admin_notes", "d.tx_hash", "d.created_at", "d.updated_at",
			"u.full_name", "u.email",
		).
		From("deposits d").
		Join("users u ON u.id = d.user_id").
		OrderBy("d.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	qb = r.manualDepositsWhere(qb, filter)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build deposits query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual deposits: %w", err)
	}
	defer rows.Close()

	var deposits []entities.DepositWithUser
	for rows.Next() {
		var d entities.DepositWithUser
		var amount string

		if err = rows.Scan(
			&d.ID, &d.UserID, &amount, &d.Currency, &d.Network, &d.Status,
			&d.DepositType, &d.AdminNotes, &d.TxHash, &d.CreatedAt, &d.UpdatedAt,
			&d.UserFullName, &d.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deposit row: %w", err)
		}

		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount in database: %w", err)
		}

		deposits = append(deposits, d)
	}

	return deposits, rows.Err()
}

// CountManualDeposits returns the total number of manual admin deposits
// matching the filter.
func (r *DepositsRepository) CountManualDeposits(ctx context.Context, filter DepositFilter) (int64, error) {
	qb := r.builder.Select("COUNT(*)").From("deposits d")
	qb = r.manualDepositsWhere(qb, filter)

	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build deposits count query: %w", err)
	}

	var total int64
	if err = r.db(ctx).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count manual deposits: %w", err)
	}

	return total, nil
}

// ManualDepositStats aggregates manual admin deposits overall and per
// currency/network.
func (r *DepositsRepository) ManualDepositStats(ctx context.Context) (*entities.DepositStats, error) {
	stats := &entities.DepositStats{
		ByCurrency: make(map[string]entities.DepositStatsBucket),
		ByNetwork:  make(map[string]entities.DepositStatsBucket),
	}

	totalQuery, totalArgs, err := r.builder.
		Select("COALESCE(SUM(d.amount), 0)::text", "COUNT(*)").
		From("deposits d").
		Where(sq.Eq{"d.deposit_type": string(entities.DepositTypeManualAdmin)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stats query: %w", err)
	}

	var totalAmount string
	if err = r.db(ctx).QueryRow(ctx, totalQuery, totalArgs...).Scan(&totalAmount, &stats.Total.Count); err != nil {
		return nil, fmt.Errorf("failed to query deposit totals: %w", err)
	}
	if stats.Total.Amount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("invalid total amount in database: %w", err)
	}

	if err = r.statsBreakdown(ctx, "d.currency", stats.ByCurrency); err != nil {
		return nil, err
	}
	if err = r.statsBreakdown(ctx, "d.network", stats.ByNetwork); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *DepositsRepository) statsBreakdown(ctx context.Context, column string, out map[string]entities.DepositStatsBucket) error {
	query, args, err := r.builder.
		Select(column, "COALESCE(SUM(d.amount), 0)::text", "COUNT(*)").
		From("deposits d").
		Where(sq.Eq{"d.deposit_type": string(entities.DepositTypeManualAdmin)}).
		GroupBy(column).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build stats breakdown query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query stats breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, amount string
		var bucket entities.DepositStatsBucket

		if err = rows.Scan(&key, &amount, &bucket.Count); err != nil {
			return fmt.Errorf("failed to scan stats bucket: %w", err)
		}
		if bucket.Amount, err = decimal.NewFromString(amount); err != nil {
			return fmt.Errorf("invalid bucket amount in database: %w", err)
		}

		out[key] = bucket
	}

	return rows.Err()
}

func scanDeposit(row pgx.Row) (*entities.Deposit, error) {
	var d entities.Deposit
	var amount string

	err := row.Scan(
		&d.ID, &d.UserID, &amount, &d.Currency, &d.Network, &d.Status,
		&d.DepositType, &d.AdminNotes, &d.TxHash, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount in database: %w", err)
	}

	return &d, nil
}
