package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to call_audit_events (INSERT-only).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO call_audit_events (id, type, member_id, call_id, provider_call_id, schedule_id, message, created_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,0),$7,$8)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Type, e.MemberID, e.CallID, e.ProviderCallID, e.ScheduleID, e.Message, e.CreatedAt)
	return err
}
