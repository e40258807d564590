package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	notifications Repository
}

func NewService(notifications Repository) *Service {
	return &Service{notifications: notifications}
}

func (s *Service) CreateForUser(ctx context.Context, userID uuid.UUID, title, body string) (*Notification, error) {
	title = strings.TrimSpace(title)
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user_id is required")
	}
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	n := &Notification{UserID: userID, Title: title, Body: body}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.ListByUser(ctx, userID, limit, offset)
}

// MarkRead flips the read flag. Only the notification's owner may mark it.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("notification does not belong to user")
	}
	return s.notifications.MarkRead(ctx, id)
}
