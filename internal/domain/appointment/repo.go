package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReminderItem is an upcoming appointment joined with the contact details
// needed to send reminder emails.
type ReminderItem struct {
	Appointment  *Appointment
	PatientName  string
	PatientEmail string
	DoctorName   string
	DoctorEmail  string
}

// Repository defines persistence operations for appointments. It includes the
// scheduler's AppointmentStore methods.
type Repository interface {
	AppointmentStore
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	FindUpcoming(ctx context.Context, from, to time.Time) ([]*ReminderItem, error)
}
