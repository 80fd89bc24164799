package storage

import (
	"context"
	"time"

	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
)

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db(ctx).Create(n).Error
}

func (s *Service) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := first(s.db(ctx).Where("id = ?", id), &n, "notification"); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool, p paging.Params) ([]models.Notification, int64, error) {
	q := s.db(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []models.Notification
	total, err := page(q, p, "created_at DESC", &out)
	return out, total, err
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead sets the read flag; an already read row keeps its
// original ReadAt.
func (s *Service) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	return s.db(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at}).Error
}

// MarkAllNotificationsRead marks every unread notification of the user and
// returns how many changed.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := s.db(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
