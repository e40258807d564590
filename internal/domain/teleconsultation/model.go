package teleconsultation

import (
	"time"

	"github.com/google/uuid"
)

// Teleconsultation statuses.
const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusEnded      = "ended"
)

var validStatuses = map[string]bool{
	StatusWaiting: true, StatusInProgress: true, StatusEnded: true,
}

// Teleconsultation maps to the teleconsultations table. Each row is the chat
// room attached to one virtual appointment.
type Teleconsultation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	Status        string     `db:"status" json:"status"`
	StartedAt     *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt       *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Message maps to the messages table.
type Message struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	TeleconsultationID uuid.UUID `db:"teleconsultation_id" json:"teleconsultation_id"`
	SenderID           uuid.UUID `db:"sender_id" json:"sender_id"`
	Content            string    `db:"content" json:"content"`
	SentAt             time.Time `db:"sent_at" json:"sent_at"`
}
