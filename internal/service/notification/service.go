package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gradbridge/presence-backend-go/internal/domain/notification"
	"github.com/gradbridge/presence-backend-go/internal/domain/user"
	"github.com/gradbridge/presence-backend-go/internal/pkg/email"
	"github.com/gradbridge/presence-backend-go/internal/pkg/sse"
)

type service struct {
	repo   notification.Repository
	users  user.Repository
	hub    *sse.Hub
	mailer email.Service
}

// NewNotificationService wires the delivery channels. The in-app row is the
// system of record; SSE and email are best-effort transports on top of it.
func NewNotificationService(repo notification.Repository, users user.Repository, hub *sse.Hub, mailer email.Service) notification.Service {
	return &service{
		repo:   repo,
		users:  users,
		hub:    hub,
		mailer: mailer,
	}
}

// Notify implements notification.Service. Each requested channel is attempted
// independently: a failing transport is logged and skipped, never aborting
// the others and never surfacing to the attendance mutation that triggered
// the message.
func (s *service) Notify(ctx context.Context, req notification.Request) (notification.Result, error) {
	channels := req.Channels
	if len(channels) == 0 {
		channels = []notification.Channel{notification.ChannelInApp}
	}

	var used []notification.Channel
	n := notification.Notification{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Kind:      req.Kind,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		Channels:  channels,
		CreatedAt: time.Now(),
	}

	for _, ch := range channels {
		switch ch {
		case notification.ChannelInApp:
			if _, err := s.repo.Create(ctx, n); err != nil {
				slog.Error("in-app notification failed", "user_id", req.UserID, "kind", req.Kind, "error", err)
				continue
			}
			used = append(used, notification.ChannelInApp)

		case notification.ChannelSSE:
			if s.hub.SubscriberCount(req.UserID) == 0 {
				// No open streams; the in-app row still carries the message.
				continue
			}
			s.hub.Publish(req.UserID, sse.Event{
				UserID: req.UserID,
				Event:  string(req.Kind),
				Data: map[string]any{
					"title":   req.Title,
					"message": req.Message,
					"data":    req.Data,
				},
			})
			used = append(used, notification.ChannelSSE)

		case notification.ChannelEmail:
			u, err := s.users.GetByID(ctx, req.UserID)
			if err != nil {
				slog.Error("email notification failed: user lookup", "user_id", req.UserID, "error", err)
				continue
			}
			if err := s.mailer.SendNotification(u.Email, req.Title, req.Message); err != nil {
				slog.Error("email notification failed", "user_id", req.UserID, "kind", req.Kind, "error", err)
				continue
			}
			used = append(used, notification.ChannelEmail)

		default:
			slog.Warn("unknown notification channel", "channel", ch)
		}
	}

	return notification.Result{ChannelsUsed: used}, nil
}
