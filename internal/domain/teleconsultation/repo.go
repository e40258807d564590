package teleconsultation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for teleconsultations.
type Repository interface {
	Create(ctx context.Context, tc *Teleconsultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Teleconsultation, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Teleconsultation, error)
	Update(ctx context.Context, tc *Teleconsultation) error
}

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListByTeleconsultation(ctx context.Context, tcID uuid.UUID, limit, offset int) ([]*Message, int, error)
}
