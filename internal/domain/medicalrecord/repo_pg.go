package medicalrecord

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

const recordCols = `id, patient_id, doctor_id, appointment_id, title, diagnosis, prescription, notes,
	created_at, updated_at`

func (r *repoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.AppointmentID, &rec.Title,
		&rec.Diagnosis, &rec.Prescription, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_records (id, patient_id, doctor_id, appointment_id, title, diagnosis, prescription, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.AppointmentID, rec.Title,
		rec.Diagnosis, rec.Prescription, rec.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_records SET title=$2, diagnosis=$3, prescription=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Title, rec.Diagnosis, rec.Prescription, rec.Notes)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	return err
}
