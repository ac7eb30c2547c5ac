package schedules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carecall-platform/pkg/utils"
)

// NOTE: This repository assumes the following table exists:
//
//	call_schedules (schedule_id BIGSERIAL PK, member_id FK members, start_date DATE,
//	                frequency TEXT, call_time TIME, is_active BOOLEAN)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const scheduleColumns = `s.schedule_id, s.member_id, s.start_date, s.frequency, to_char(s.call_time, 'HH24:MI:SS'), s.is_active`

func (r *PostgresRepo) ListActive(ctx context.Context) ([]Schedule, error) {
	const q = `
SELECT ` + scheduleColumns + `, m.phone_number
FROM call_schedules s
JOIN members m ON m.member_id = s.member_id
WHERE s.is_active = TRUE
ORDER BY s.schedule_id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("schedules: list active: %w", err)
	}
	defer rows.Close()

	out := make([]Schedule, 0)
	for rows.Next() {
		var (
			s     Schedule
			phone sql.NullString
		)
		if err := scanSchedule(rows, &s, &phone); err != nil {
			return nil, err
		}
		s.PhoneNumber = phone.String
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (Schedule, error) {
	return r.get(ctx, r.db, id, false)
}

func (r *PostgresRepo) get(ctx context.Context, q utils.Querier, id int64, forUpdate bool) (Schedule, error) {
	stmt := `SELECT ` + scheduleColumns + ` FROM call_schedules s WHERE s.schedule_id = $1`
	if forUpdate {
		stmt += ` FOR UPDATE`
	}
	var s Schedule
	err := scanSchedule(q.QueryRowContext(ctx, stmt, id), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return Schedule{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresRepo) Create(ctx context.Context, s Schedule) (Schedule, error) {
	const q = `
INSERT INTO call_schedules (member_id, start_date, frequency, call_time, is_active)
VALUES ($1, $2, $3, $4::time, $5)
RETURNING schedule_id
`
	if err := r.db.QueryRowContext(ctx, q, s.MemberID, s.StartDate.Time(), string(s.Frequency), s.CallTime.String(), s.Active).Scan(&s.ID); err != nil {
		return Schedule{}, fmt.Errorf("schedules: create: %w", err)
	}
	s.PhoneNumber = ""
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, fn func(*Schedule) error) (Schedule, error) {
	var out Schedule
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		s, err := r.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		const q = `
UPDATE call_schedules
SET start_date = $2, frequency = $3, call_time = $4::time, is_active = $5
WHERE schedule_id = $1
`
		if _, err := tx.ExecContext(ctx, q, id, s.StartDate.Time(), string(s.Frequency), s.CallTime.String(), s.Active); err != nil {
			return fmt.Errorf("schedules: update: %w", err)
		}
		s.ID = id
		out = s
		return nil
	})
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner, s *Schedule, extra ...any) error {
	var (
		start    time.Time
		freq     string
		callTime string
	)
	dest := append([]any{&s.ID, &s.MemberID, &start, &freq, &callTime, &s.Active}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	ct, err := ParseClockTime(callTime)
	if err != nil {
		return err
	}
	s.StartDate = DateOf(start)
	s.Frequency = Frequency(freq)
	s.CallTime = ct
	return nil
}
