package teleconsultation

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

const tcCols = `id, appointment_id, status, started_at, ended_at, created_at, updated_at`

func (r *repoPG) scanTC(row pgx.Row) (*Teleconsultation, error) {
	var tc Teleconsultation
	err := row.Scan(&tc.ID, &tc.AppointmentID, &tc.Status, &tc.StartedAt, &tc.EndedAt,
		&tc.CreatedAt, &tc.UpdatedAt)
	return &tc, err
}

func (r *repoPG) Create(ctx context.Context, tc *Teleconsultation) error {
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO teleconsultations (id, appointment_id, status, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5)`,
		tc.ID, tc.AppointmentID, tc.Status, tc.StartedAt, tc.EndedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Teleconsultation, error) {
	return r.scanTC(r.conn(ctx).QueryRow(ctx, `SELECT `+tcCols+` FROM teleconsultations WHERE id = $1`, id))
}

func (r *repoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Teleconsultation, error) {
	return r.scanTC(r.conn(ctx).QueryRow(ctx,
		`SELECT `+tcCols+` FROM teleconsultations WHERE appointment_id = $1`, appointmentID))
}

func (r *repoPG) Update(ctx context.Context, tc *Teleconsultation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE teleconsultations SET status=$2, started_at=$3, ended_at=$4, updated_at=NOW()
		WHERE id = $1`,
		tc.ID, tc.Status, tc.StartedAt, tc.EndedAt)
	return err
}

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository { return &messageRepoPG{pool: pool} }

func (r *messageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO messages (id, teleconsultation_id, sender_id, content)
		VALUES ($1,$2,$3,$4) RETURNING sent_at`,
		m.ID, m.TeleconsultationID, m.SenderID, m.Content).Scan(&m.SentAt)
}

func (r *messageRepoPG) ListByTeleconsultation(ctx context.Context, tcID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE teleconsultation_id = $1`, tcID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, teleconsultation_id, sender_id, content, sent_at
		FROM messages WHERE teleconsultation_id = $1
		ORDER BY sent_at LIMIT $2 OFFSET $3`,
		tcID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TeleconsultationID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, nil
}
