package repository

import (
	"context"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/google/uuid"

	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
	"github.com/sand/crypto-wallet-admin/backend/pkg/database"
)

// AuditRepository stores the append-only audit trail of admin actions.
type AuditRepository struct {
	logger *slog.Logger
	db     tx.DBGetter
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(logger *slog.Logger, pg *database.Postgres) *AuditRepository {
	return &AuditRepository{
		logger: logger,
		db:     pg.DBGetter,
	}
}

// AppendEvent records an audit event. The id is generated here if unset.
func (r *AuditRepository) AppendEvent(ctx context.Context, ev *entities.AuditEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.SchemaVersion == 0 {
		ev.SchemaVersion = entities.AuditEventSchemaVersion
	}

	query := `INSERT INTO audit_events (id, deposit_id, kind, schema_version, admin_id, admin_email, notes)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING created_at`

	err := r.db(ctx).QueryRow(ctx, query,
		ev.ID,
		ev.DepositID,
		string(ev.Kind),
		ev.SchemaVersion,
		ev.AdminID,
		ev.AdminEmail,
		ev.Notes,
	).Scan(&ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

// FindEventsByDeposit returns the audit trail of a deposit, oldest first.
func (r *AuditRepository) FindEventsByDeposit(ctx context.Context, depositID int64) ([]entities.AuditEvent, error) {
	query := `SELECT id, deposit_id, kind, schema_version, admin_id, admin_email, notes, created_at
                FROM audit_events
               WHERE deposit_id = $1
               ORDER BY created_at`

	rows, err := r.db(ctx).Query(ctx, query, depositID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []entities.AuditEvent
	for rows.Next() {
		var ev entities.AuditEvent
		var kind string

		if err = rows.Scan(&ev.ID, &ev.DepositID, &kind, &ev.SchemaVersion, &ev.AdminID, &ev.AdminEmail, &ev.Notes, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		ev.Kind = entities.AuditKind(kind)

		events = append(events, ev)
	}

	return events, rows.Err()
}
