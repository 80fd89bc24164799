// Package notification persists notifications and fans them out to the
// realtime channels.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/localization"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
)

const pushTimeout = 10 * time.Second

// Pusher delivers a stored notification over one channel.
type Pusher interface {
	Name() string
	Push(ctx context.Context, n *models.Notification) error
}

// Payload carries the references and template values of a notification.
type Payload struct {
	ActorID    string
	RequestID  string
	ChatRoomID string
	ProfileID  string
	Args       map[string]string
}

// Service persists notifications and pushes them best effort.
type Service struct {
	store     storage.Storage
	localizer *localization.Localizer
	lang      string
	pushers   []Pusher
	now       func() time.Time

	// wg tracks in-flight pushes so tests and shutdown can wait for them.
	wg sync.WaitGroup
}

func NewService(store storage.Storage, localizer *localization.Localizer, lang string, pushers ...Pusher) *Service {
	return &Service{
		store:     store,
		localizer: localizer,
		lang:      lang,
		pushers:   pushers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddPusher registers another delivery channel. Call before serving traffic.
func (s *Service) AddPusher(p Pusher) {
	s.pushers = append(s.pushers, p)
}

// Notify stores a notification for recipientID and pushes it asynchronously.
// Only the insert can fail the call.
func (s *Service) Notify(ctx context.Context, recipientID string, typ models.NotificationType, p Payload) (*models.Notification, error) {
	n := &models.Notification{
		RecipientID: recipientID,
		Type:        typ,
		Title:       s.localizer.Format(s.lang, string(typ)+".title", p.Args),
		Body:        s.localizer.Format(s.lang, string(typ)+".body", p.Args),
		ActorID:     optional(p.ActorID),
		RequestID:   optional(p.RequestID),
		ChatRoomID:  optional(p.ChatRoomID),
		ProfileID:   optional(p.ProfileID),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	s.push(ctx, n)
	return n, nil
}

// NotifyAfter logs instead of returning the error. Workflow code calls it
// after its own transaction has committed, when failing the caller would
// misreport the already applied change.
func (s *Service) NotifyAfter(ctx context.Context, recipientID string, typ models.NotificationType, p Payload) {
	if _, err := s.Notify(ctx, recipientID, typ, p); err != nil {
		logger.Error().Err(err).
			Str("recipient_id", recipientID).
			Str("type", string(typ)).
			Msg("failed to create notification")
	}
}

func (s *Service) push(ctx context.Context, n *models.Notification) {
	detached := context.WithoutCancel(ctx)
	for _, p := range s.pushers {
		s.wg.Add(1)
		go func(p Pusher) {
			defer s.wg.Done()

			pushCtx, cancel := context.WithTimeout(detached, pushTimeout)
			defer cancel()

			if err := p.Push(pushCtx, n); err != nil {
				logger.Warn().Err(err).
					Str("channel", p.Name()).
					Str("notification_id", n.ID).
					Str("recipient_id", n.RecipientID).
					Msg("notification push failed")
			}
		}(p)
	}
}

// Wait blocks until every started push has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// List pages the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, p paging.Params) ([]models.Notification, int64, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly, p)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkAsRead marks one notification of userID as read. Marking an already
// read notification succeeds without changes.
func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, apperr.Forbidden("notification belongs to another user")
	}
	if n.IsRead {
		return n, nil
	}

	now := s.now()
	if err := s.store.MarkNotificationRead(ctx, n.ID, now); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	n.ReadAt = &now
	return n, nil
}

// MarkAllAsRead marks every unread notification of userID and returns how
// many changed.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID, s.now())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
