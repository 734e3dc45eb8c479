package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/turnos/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, date, time_of_day, patient_id, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var tod string
	err := row.Scan(&a.ID, &a.Date, &tod, &a.PatientID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.TimeOfDay, err = ParseTimeOfDay(tod)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new appointment while holding a per-date advisory lock,
// so the capacity count and the insert are atomic against concurrent
// bookings of the same date.
func (r *repoPG) Create(ctx context.Context, a *Appointment, cap int) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusPending
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, a.Date.Format("2006-01-02")); err != nil {
		return fmt.Errorf("lock booking date: %w", err)
	}

	if cap > 0 {
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE date = $1`, a.Date).Scan(&count); err != nil {
			return err
		}
		if count >= cap {
			return ErrCapacityExceeded
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO appointment (id, date, time_of_day, patient_id, status)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.Date, a.TimeOfDay.String(), a.PatientID, a.Status); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET date=$2, time_of_day=$3, status=$4, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Date, a.TimeOfDay.String(), a.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.ExactDate != nil {
		query += fmt.Sprintf(` AND date = $%d`, idx)
		countQuery += fmt.Sprintf(` AND date = $%d`, idx)
		args = append(args, DateOnly(*f.ExactDate))
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY date ASC, time_of_day ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountForDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE date = $1`, DateOnly(date)).Scan(&count)
	return count, err
}

func (r *repoPG) OccupiedTimes(ctx context.Context, date time.Time) ([]TimeOfDay, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT time_of_day FROM appointment WHERE date = $1 ORDER BY time_of_day`, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var times []TimeOfDay
	for rows.Next() {
		var tod string
		if err := rows.Scan(&tod); err != nil {
			return nil, err
		}
		t, err := ParseTimeOfDay(tod)
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *repoPG) DaySchedule(ctx context.Context, date time.Time) ([]*DayEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.date, a.time_of_day, a.patient_id, a.status, a.created_at, a.updated_at,
			p.full_name, p.insurance
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.date = $1
		ORDER BY a.time_of_day ASC`, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*DayEntry
	for rows.Next() {
		var e DayEntry
		var tod string
		if err := rows.Scan(&e.ID, &e.Date, &tod, &e.PatientID, &e.Status, &e.CreatedAt, &e.UpdatedAt,
			&e.PatientName, &e.PatientInsurance); err != nil {
			return nil, err
		}
		if e.TimeOfDay, err = ParseTimeOfDay(tod); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
