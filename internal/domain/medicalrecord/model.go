package medicalrecord

import (
	"time"

	"github.com/google/uuid"
)

// Record maps to the medical_records table.
type Record struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Title         string     `db:"title" json:"title"`
	Diagnosis     *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription  *string    `db:"prescription" json:"prescription,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
