package patients

import (
	"context"
	"errors"
	"fmt"

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

const patientCols = `id, dni, full_name, phone, address, insurance, note, document_file, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.DNI, &p.FullName, &p.Phone, &p.Address, &p.Insurance,
		&p.Note, &p.DocumentFile, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, dni, full_name, phone, address, insurance, note, document_file)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.DNI, p.FullName, p.Phone, p.Address, p.Insurance, p.Note, p.DocumentFile)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateDNI
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByDNI(ctx context.Context, dni string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE dni = $1`, dni))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET dni=$2, full_name=$3, phone=$4, address=$5, insurance=$6,
			note=$7, document_file=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DNI, p.FullName, p.Phone, p.Address, p.Insurance, p.Note, p.DocumentFile)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		c := r.conn(ctx)
		if _, err := c.Exec(ctx, `DELETE FROM appointment WHERE patient_id = $1`, id); err != nil {
			return fmt.Errorf("cascade appointments: %w", err)
		}
		tag, err := c.Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

var searchColumns = map[string]string{
	SearchByName:  "full_name",
	SearchByDNI:   "dni",
	SearchByPhone: "phone",
}

func (r *repoPG) Search(ctx context.Context, query, field string, limit int) ([]*Patient, error) {
	sql := `SELECT ` + patientCols + ` FROM patient`
	var args []interface{}

	if query != "" {
		col, ok := searchColumns[field]
		if !ok {
			col = searchColumns[SearchByName]
		}
		sql += fmt.Sprintf(` WHERE %s ILIKE $1`, col)
		args = append(args, "%"+query+"%")
	}
	sql += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.DNI, &p.FullName, &p.Phone, &p.Address, &p.Insurance,
			&p.Note, &p.DocumentFile, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}
