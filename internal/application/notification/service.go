package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/pkg/id"
)

type Service interface {
	ListUnread(ctx context.Context, p domain.Principal) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, p domain.Principal, notificationID string) (*domain.Notification, error)
	// MarkAllAsRead clears the caller's unread list and returns how many rows changed.
	MarkAllAsRead(ctx context.Context, p domain.Principal) (int, error)
	// Notify records a notification for userID. Failures are logged, never returned.
	Notify(ctx context.Context, userID string, videoID *string, kind, message string)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

func (s *service) ListUnread(ctx context.Context, p domain.Principal) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, p.UserID)
}

func (s *service) MarkAsRead(ctx context.Context, p domain.Principal, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != p.UserID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if n.Read == 1 {
		return n, nil
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.Read = 1
	n.UpdatedAt = time.Now().UTC()
	return n, nil
}

func (s *service) MarkAllAsRead(ctx context.Context, p domain.Principal) (int, error) {
	unread, err := s.repo.ListUnread(ctx, p.UserID)
	if err != nil {
		return 0, err
	}
	var errs []error
	marked := 0
	for _, n := range unread {
		if err := s.repo.MarkAsRead(ctx, n.NotificationID); err != nil {
			errs = append(errs, fmt.Errorf("mark %s: %w", n.NotificationID, err))
			continue
		}
		marked++
	}
	return marked, errors.Join(errs...)
}

func (s *service) Notify(ctx context.Context, userID string, videoID *string, kind, message string) {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		VideoID:        videoID,
		Kind:           kind,
		Message:        message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		slog.Warn("failed to store notification", "user_id", userID, "kind", kind, "err", err)
	}
}
