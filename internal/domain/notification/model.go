package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message shown to a user, created when
// something happens to an appointment they are part of.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
