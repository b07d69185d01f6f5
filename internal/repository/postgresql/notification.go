package postgresql

import (
	"context"
	"fmt"

	"github.com/gradbridge/presence-backend-go/internal/domain/notification"
	"github.com/gradbridge/presence-backend-go/internal/pkg/database"
)

type notificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// Create implements notification.Repository.
func (r *notificationRepository) Create(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	query := `
		INSERT INTO notifications (id, user_id, kind, title, message, data, channels)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	channels := make([]string, 0, len(n.Channels))
	for _, c := range n.Channels {
		channels = append(channels, string(c))
	}

	err := r.db.QueryRow(ctx, query,
		n.ID, n.UserID, string(n.Kind), n.Title, n.Message, n.Data, channels,
	).Scan(&n.CreatedAt)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// ListByUser implements notification.Repository.
func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, kind, title, message, data, channels, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []notification.Notification
	for rows.Next() {
		var n notification.Notification
		var channels []string
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message,
			&n.Data, &channels, &n.IsRead, &n.ReadAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		for _, c := range channels {
			n.Channels = append(n.Channels, notification.Channel(c))
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkRead implements notification.Repository.
func (r *notificationRepository) MarkRead(ctx context.Context, id string, userID string) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s not found for user", id)
	}
	return nil
}
