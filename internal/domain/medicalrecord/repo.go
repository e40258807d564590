package medicalrecord

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for medical records.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
}
