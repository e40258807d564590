package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Email       string     `db:"email" json:"email"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the display name used in notifications.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
