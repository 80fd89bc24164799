package storage

import (
	"context"
	"fmt"

	"zawaj/backend/internal/analysis"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
)

func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ModerationStatus == "" {
		msg.ModerationStatus = models.ModerationPending
	}
	return s.db(ctx).Create(msg).Error
}

func (s *Service) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := first(s.db(ctx).Where("id = ?", id), &msg, "message"); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListRoomMessages returns the room history visible to viewerID: approved
// messages plus the viewer's own messages in any moderation state.
func (s *Service) ListRoomMessages(ctx context.Context, roomID, viewerID string, p paging.Params) ([]models.Message, int64, error) {
	q := s.db(ctx).Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Where("moderation_status = ? OR sender_id = ?", models.ModerationApproved, viewerID)

	var out []models.Message
	total, err := page(q, p, "created_at ASC", &out)
	return out, total, err
}

// UpdateMessageIfStatus is the moderation CAS for messages.
func (s *Service) UpdateMessageIfStatus(ctx context.Context, id uint, expected models.ModerationStatus, updates map[string]any) (bool, error) {
	res := s.db(ctx).Model(&models.Message{}).
		Where("id = ? AND moderation_status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update message %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListPendingMessages is the message moderation queue. Messages whose sender,
// receiver or room no longer exists are left out.
func (s *Service) ListPendingMessages(ctx context.Context, filter ModerationFilter, p paging.Params) ([]models.Message, int64, error) {
	q := s.db(ctx).Model(&models.Message{}).
		Joins("JOIN users AS sender ON sender.id = messages.sender_id AND sender.deleted_at IS NULL").
		Joins("JOIN users AS receiver ON receiver.id = messages.receiver_id AND receiver.deleted_at IS NULL").
		Joins("JOIN chat_rooms ON chat_rooms.room_id = messages.room_id").
		Where("messages.moderation_status = ?", models.ModerationPending)
	q = applyModerationFilter(q, "messages", filter, "sender_id", "receiver_id")

	var out []models.Message
	total, err := page(q, p, "messages.created_at ASC", &out, "Sender", "Receiver")
	return out, total, err
}

func (s *Service) CreateReport(ctx context.Context, report *models.Report) error {
	return s.db(ctx).Create(report).Error
}

func (s *Service) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := first(s.db(ctx).Where("id = ?", id), &report, "report"); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) UpdateReportIfStatus(ctx context.Context, id string, expected models.ReportStatus, updates map[string]any) (bool, error) {
	res := s.db(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update report %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListPendingReports is the report moderation queue. Reports about deleted
// profiles or from deleted reporters are left out.
func (s *Service) ListPendingReports(ctx context.Context, filter ModerationFilter, p paging.Params) ([]models.Report, int64, error) {
	q := s.db(ctx).Model(&models.Report{}).
		Joins("JOIN users AS reporter ON reporter.id = reports.reporter_id AND reporter.deleted_at IS NULL").
		Joins("JOIN users AS reported ON reported.id = reports.reported_user_id AND reported.deleted_at IS NULL").
		Where("reports.status = ?", models.ReportPending)
	q = applyModerationFilter(q, "reports", filter, "reporter_id", "reported_user_id")
	if filter.Reason != "" {
		q = q.Where("reports.reason = ?", filter.Reason)
	}

	var out []models.Report
	order := analysis.SeverityOrder("reports.reason", "reports.created_at ASC")
	total, err := page(q, p, order, &out, "Reporter", "ReportedUser")
	return out, total, err
}

func (s *Service) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	return s.db(ctx).Create(entry).Error
}

func (s *Service) ListAuditEntries(ctx context.Context, p paging.Params) ([]models.AuditEntry, int64, error) {
	var out []models.AuditEntry
	total, err := page(s.db(ctx).Model(&models.AuditEntry{}), p, "created_at DESC", &out)
	return out, total, err
}
