package availability

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/medibook/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const windowCols = `id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	created_at, updated_at`

func (r *repoPG) scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	err := row.Scan(&w.ID, &w.DoctorID, &w.DayOfWeek, &w.StartTime, &w.EndTime,
		&w.CreatedAt, &w.UpdatedAt)
	return &w, err
}

func (r *repoPG) Create(ctx context.Context, w *Window) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5)`,
		w.ID, w.DoctorID, w.DayOfWeek, w.StartTime, w.EndTime)
	return err
}

// CreateBatch inserts all windows in a single transaction. Any failure rolls
// back the whole batch.
func (r *repoPG) CreateBatch(ctx context.Context, ws []*Window) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		for _, w := range ws {
			if err := r.Create(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Window, error) {
	return r.scanWindow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+windowCols+` FROM doctor_availability WHERE id = $1`, id))
}

func (r *repoPG) GetByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day string) (*Window, error) {
	return r.scanWindow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+windowCols+` FROM doctor_availability WHERE doctor_id = $1 AND day_of_week = $2`,
		doctorID, day))
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Window, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+windowCols+` FROM doctor_availability WHERE doctor_id = $1 ORDER BY day_of_week`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Window
	for rows.Next() {
		w, err := r.scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, nil
}

func (r *repoPG) Update(ctx context.Context, w *Window) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_availability SET day_of_week=$2, start_time=$3, end_time=$4, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.DayOfWeek, w.StartTime, w.EndTime)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_availability WHERE id = $1`, id)
	return err
}
