package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table.
type Doctor struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Email     string     `db:"email" json:"email"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Specialty string     `db:"specialty" json:"specialty"`
	Bio       *string    `db:"bio" json:"bio,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the display name used in notifications.
func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}
