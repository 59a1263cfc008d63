package entities

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventSchemaVersion is bumped whenever the shape of an audit event
// changes, so historical events stay interpretable.
const AuditEventSchemaVersion = 1

type AuditKind string

const (
	AuditManualCredit AuditKind = "MANUAL_CREDIT"
	AuditCancellation AuditKind = "CANCELLATION"
)

// AuditEvent is an append-only record of an admin action on a deposit.
type AuditEvent struct {
	ID            uuid.UUID `json:"id"`
	DepositID     int64     `json:"deposit_id"`
	Kind          AuditKind `json:"kind"`
	SchemaVersion int       `json:"schema_version"`
	AdminID       int64     `json:"admin_id"`
	AdminEmail    string    `json:"admin_email"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdminPrincipal identifies the authenticated administrator performing a
// request; it is stamped into every audit event.
type AdminPrincipal struct {
	ID    int64
	Email string
}
