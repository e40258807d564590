package doctor

import (
	"context"
	"fmt"

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

const doctorCols = `id, user_id, first_name, last_name, email, phone, specialty, bio, created_at, updated_at`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
		&d.Specialty, &d.Bio, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, user_id, first_name, last_name, email, phone, specialty, bio)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.UserID, d.FirstName, d.LastName, d.Email, d.Phone, d.Specialty, d.Bio)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET first_name=$2, last_name=$3, email=$4, phone=$5, specialty=$6, bio=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Email, d.Phone, d.Specialty, d.Bio)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctors WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["specialty"]; ok {
		query += fmt.Sprintf(` AND specialty = $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialty = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d)`, idx, idx)
		countQuery += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d)`, idx, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}
