package notification

import "context"

// Repository persists the in-app copies of notifications.
type Repository interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id string, userID string) error
}
