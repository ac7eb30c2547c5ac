package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carecall-platform/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the following tables exist:
//
//	members     (member_id PK, phone_number UNIQUE, created_at)
//	call_logs   (id PK, member_id FK, kind, status, provider_call_id UNIQUE NULL,
//	             requested_at, transcript JSONB NULL, result_sentiment NULL, summary NULL)
//
// The finalize write is conditional on transcript IS NULL, so two terminal
// signals racing on the same call cannot both commit.

const pgUniqueViolation = "23505"

// PostgresRepo implements Repository on database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `id, member_id, kind, status, provider_call_id, requested_at, transcript, result_sentiment, summary`

func (r *PostgresRepo) Create(ctx context.Context, rec CallRecord) error {
	if rec.ID == "" || rec.MemberID == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO call_logs (id, member_id, kind, status, provider_call_id, requested_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6)
`
	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.MemberID, rec.Kind, rec.Status, rec.ProviderCallID, rec.RequestedAt)
	return mapPgErr(err)
}

func (r *PostgresRepo) SetProviderCallID(ctx context.Context, id, providerCallID string) error {
	const q = `UPDATE call_logs SET provider_call_id = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, providerCallID)
	if err != nil {
		return mapPgErr(err)
	}
	return expectRow(res)
}

func (r *PostgresRepo) MarkPlacementFailed(ctx context.Context, id string) error {
	const q = `
UPDATE call_logs SET status = $2
WHERE id = $1 AND status = $3 AND provider_call_id IS NULL
`
	_, err := r.db.ExecContext(ctx, q, id, StatusFailed, StatusQueued)
	return err
}

func (r *PostgresRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (CallRecord, error) {
	q := `SELECT ` + callColumns + ` FROM call_logs WHERE provider_call_id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, providerCallID))
	if errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *PostgresRepo) FinalizeTranscript(ctx context.Context, id string, status Status, transcript string) (bool, error) {
	const q = `
UPDATE call_logs SET status = $2, transcript = $3
WHERE id = $1 AND transcript IS NULL
`
	res, err := r.db.ExecContext(ctx, q, id, status, transcript)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepo) ListByMemberBetween(ctx context.Context, memberID string, from, to time.Time) ([]CallRecord, error) {
	q := `SELECT ` + callColumns + ` FROM call_logs
WHERE member_id = $1 AND requested_at BETWEEN $2 AND $3
ORDER BY requested_at ASC`
	return r.list(ctx, r.db, q, memberID, from, to)
}

func (r *PostgresRepo) ListRecentByMember(ctx context.Context, memberID string, kind Kind, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + callColumns + ` FROM call_logs
WHERE member_id = $1 AND ($2 = '' OR kind = $2)
ORDER BY requested_at DESC
LIMIT $3`
	return r.list(ctx, r.db, q, memberID, string(kind), limit)
}

func (r *PostgresRepo) list(ctx context.Context, db utils.Querier, q string, args ...any) ([]CallRecord, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (CallRecord, error) {
	var (
		rec                         CallRecord
		providerID                  sql.NullString
		transcript, sentiment, summ sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&rec.MemberID,
		&rec.Kind,
		&rec.Status,
		&providerID,
		&rec.RequestedAt,
		&transcript,
		&sentiment,
		&summ,
	); err != nil {
		return CallRecord{}, err
	}
	rec.ProviderCallID = providerID.String
	rec.Transcript = utils.StringPtr(transcript)
	rec.ResultSentiment = utils.StringPtr(sentiment)
	rec.Summary = utils.StringPtr(summ)
	return rec, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// PostgresMemberDirectory reads member phone numbers from the members table.
type PostgresMemberDirectory struct {
	db *sql.DB
}

func NewPostgresMemberDirectory(db *sql.DB) *PostgresMemberDirectory {
	return &PostgresMemberDirectory{db: db}
}

func (d *PostgresMemberDirectory) PhoneNumber(ctx context.Context, memberID string) (string, error) {
	const q = `SELECT phone_number FROM members WHERE member_id = $1`
	var phone string
	if err := d.db.QueryRowContext(ctx, q, memberID).Scan(&phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return phone, nil
}
