package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/medibook/internal/platform/db"
)

// exclusionViolation is the SQLSTATE raised when the appointments exclusion
// constraint rejects an overlapping range.
const exclusionViolation = "23P01"

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

const apptCols = `id, doctor_id, patient_id, start_time, end_time, status, reason, notes, is_virtual,
	created_at, updated_at`

func (r *repoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartTime, &a.EndTime, &a.Status,
		&a.Reason, &a.Notes, &a.IsVirtual, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

// mapOverlapErr translates an exclusion-constraint violation into
// ErrOverlapConflict. The constraint fires on INSERT and on UPDATE, so both
// write paths go through here.
func mapOverlapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return ErrOverlapConflict
	}
	return err
}

func (r *repoPG) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, start_time, end_time, status, reason, notes, is_virtual)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.DoctorID, a.PatientID, a.StartTime, a.EndTime, a.Status, a.Reason, a.Notes, a.IsVirtual)
	if err != nil {
		return mapOverlapErr(err)
	}
	return nil
}

// FindOverlapping returns the doctor's appointments whose half-open interval
// intersects [start, end). No status filter: cancelled appointments still
// block the slot.
func (r *repoPG) FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE doctor_id = $1 AND start_time < $3 AND $2 < end_time
		ORDER BY start_time`,
		doctorID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET start_time=$2, end_time=$3, status=$4, reason=$5, notes=$6, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.StartTime, a.EndTime, a.Status, a.Reason, a.Notes)
	return mapOverlapErr(err)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["doctor_id"]; ok {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["patient_id"]; ok {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["from"]; ok {
		query += fmt.Sprintf(` AND start_time >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND start_time >= $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["to"]; ok {
		query += fmt.Sprintf(` AND start_time < $%d`, idx)
		countQuery += fmt.Sprintf(` AND start_time < $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

// FindUpcoming returns scheduled appointments starting in [from, to) joined
// with the patient and doctor contact details for reminder emails.
func (r *repoPG) FindUpcoming(ctx context.Context, from, to time.Time) ([]*ReminderItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.doctor_id, a.patient_id, a.start_time, a.end_time, a.status, a.reason, a.notes,
			a.is_virtual, a.created_at, a.updated_at,
			p.first_name || ' ' || p.last_name, p.email,
			d.first_name || ' ' || d.last_name, d.email
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.status = $1 AND a.start_time >= $2 AND a.start_time < $3
		ORDER BY a.start_time`,
		StatusScheduled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ReminderItem
	for rows.Next() {
		var a Appointment
		var item ReminderItem
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartTime, &a.EndTime, &a.Status,
			&a.Reason, &a.Notes, &a.IsVirtual, &a.CreatedAt, &a.UpdatedAt,
			&item.PatientName, &item.PatientEmail, &item.DoctorName, &item.DoctorEmail); err != nil {
			return nil, err
		}
		item.Appointment = &a
		items = append(items, &item)
	}
	return items, nil
}
