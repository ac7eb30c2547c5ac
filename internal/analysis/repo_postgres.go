package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// NOTE: This repository assumes the following table exists:
//
//	member_status (member_id PK FK members, status_tag TEXT, analyzed_at TIMESTAMPTZ)

type PostgresStatusRepo struct {
	db *sql.DB
}

func NewPostgresStatusRepo(db *sql.DB) *PostgresStatusRepo { return &PostgresStatusRepo{db: db} }

func (r *PostgresStatusRepo) Upsert(ctx context.Context, s MemberStatus) error {
	const q = `
INSERT INTO member_status (member_id, status_tag, analyzed_at)
VALUES ($1, $2, $3)
ON CONFLICT (member_id) DO UPDATE
SET status_tag = EXCLUDED.status_tag, analyzed_at = EXCLUDED.analyzed_at
`
	if _, err := r.db.ExecContext(ctx, q, s.MemberID, string(s.Tag), s.AnalyzedAt); err != nil {
		return fmt.Errorf("analysis: upsert status: %w", err)
	}
	return nil
}

func (r *PostgresStatusRepo) Get(ctx context.Context, memberID string) (MemberStatus, error) {
	const q = `SELECT member_id, status_tag, analyzed_at FROM member_status WHERE member_id = $1`
	var (
		s   MemberStatus
		tag string
	)
	err := r.db.QueryRowContext(ctx, q, memberID).Scan(&s.MemberID, &tag, &s.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MemberStatus{}, ErrNotFound
	}
	if err != nil {
		return MemberStatus{}, fmt.Errorf("analysis: get status: %w", err)
	}
	s.Tag = Tag(tag)
	return s, nil
}
