package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusCompleted: true, StatusCancelled: true, StatusNoShow: true,
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Status    string    `db:"status" json:"status"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	IsVirtual bool      `db:"is_virtual" json:"is_virtual"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BookingRequest is the input to the scheduler.
type BookingRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Reason    *string   `json:"reason,omitempty"`
	IsVirtual bool      `json:"is_virtual"`
}

// UpdateRequest carries a partial appointment update. Nil fields are left
// unchanged. Updates are applied as a plain field merge without re-running
// booking validation.
type UpdateRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// Overlaps reports whether two half-open intervals [a1,a2) and [b1,b2)
// intersect. Touching endpoints do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}
