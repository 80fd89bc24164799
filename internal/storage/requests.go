package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"

	"gorm.io/gorm"
)

const participantJoins = "JOIN users AS sender ON sender.id = marriage_requests.sender_id AND sender.deleted_at IS NULL " +
	"JOIN users AS receiver ON receiver.id = marriage_requests.receiver_id AND receiver.deleted_at IS NULL"

// CreateRequest inserts a pending request. The unique ActivePairKey turns a
// concurrent duplicate into DuplicateRequest.
func (s *Service) CreateRequest(ctx context.Context, req *models.MarriageRequest) error {
	err := s.db(ctx).Create(req).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.DuplicateRequest()
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (s *Service) GetRequest(ctx context.Context, id string) (*models.MarriageRequest, error) {
	var req models.MarriageRequest
	q := s.db(ctx).Preload("Sender").Preload("Receiver").Where("id = ?", id)
	if err := first(q, &req, "request"); err != nil {
		return nil, err
	}
	return &req, nil
}

// FindActiveRequest returns the pending or accepted request between the pair,
// or nil when there is none.
func (s *Service) FindActiveRequest(ctx context.Context, senderID, receiverID string, bothDirections bool) (*models.MarriageRequest, error) {
	q := s.db(ctx).Where("status IN ?", []models.RequestStatus{models.RequestPending, models.RequestAccepted})
	if bothDirections {
		q = q.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			senderID, receiverID, receiverID, senderID)
	} else {
		q = q.Where("sender_id = ? AND receiver_id = ?", senderID, receiverID)
	}

	var req models.MarriageRequest
	res := q.Limit(1).Find(&req)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &req, nil
}

// UpdateRequestIfStatus applies updates only while the row still has the
// expected status. It reports whether the row was changed. Moving to a
// terminal status also releases the pair key.
func (s *Service) UpdateRequestIfStatus(ctx context.Context, id string, expected models.RequestStatus, updates map[string]any) (bool, error) {
	if st, ok := updates["status"].(models.RequestStatus); ok && !st.IsActive() {
		updates["active_pair_key"] = nil
	}
	res := s.db(ctx).Model(&models.MarriageRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update request %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MeetingGuard is the meeting state a conditional meeting update expects.
// Zero fields are not checked.
type MeetingGuard struct {
	NotStatus  models.MeetingStatus
	Status     models.MeetingStatus
	ProposedBy string
	ProposedAt *time.Time
}

// UpdateMeetingIf applies updates to an accepted request only while its
// meeting still matches guard. It reports whether the row was changed.
func (s *Service) UpdateMeetingIf(ctx context.Context, id string, guard MeetingGuard, updates map[string]any) (bool, error) {
	q := s.db(ctx).Model(&models.MarriageRequest{}).
		Where("id = ? AND status = ?", id, models.RequestAccepted)
	if guard.NotStatus != "" {
		q = q.Where("(meeting_status IS NULL OR meeting_status <> ?)", guard.NotStatus)
	}
	if guard.Status != "" {
		q = q.Where("meeting_status = ?", guard.Status)
	}
	if guard.ProposedBy != "" {
		q = q.Where("meeting_proposed_by = ?", guard.ProposedBy)
	}
	if guard.ProposedAt != nil {
		q = q.Where("meeting_proposed_at = ?", *guard.ProposedAt)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update meeting of request %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ExpireIfPending moves a request to expired only if it is still pending and
// its deadline has passed at now.
func (s *Service) ExpireIfPending(ctx context.Context, id string, now time.Time) (bool, error) {
	res := s.db(ctx).Model(&models.MarriageRequest{}).
		Where("id = ? AND status = ? AND expires_at <= ?", id, models.RequestPending, now).
		Updates(map[string]any{
			"status":          models.RequestExpired,
			"active_pair_key": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("expire request %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListRequests pages requests for the sent/received views, newest first.
func (s *Service) ListRequests(ctx context.Context, filter RequestFilter, p paging.Params) ([]models.MarriageRequest, int64, error) {
	q := s.db(ctx).Model(&models.MarriageRequest{}).Joins(participantJoins)
	if filter.SenderID != "" {
		q = q.Where("marriage_requests.sender_id = ?", filter.SenderID)
	}
	if filter.ReceiverID != "" {
		q = q.Where("marriage_requests.receiver_id = ?", filter.ReceiverID)
	}
	if filter.Status != "" {
		q = q.Where("marriage_requests.status = ?", filter.Status)
	}

	var out []models.MarriageRequest
	total, err := page(q, p, "marriage_requests.created_at DESC", &out, "Sender", "Receiver")
	return out, total, err
}

// CountRequestsByStatus counts the user's sent (sent=true) or received
// requests per status. Every status is present in the result.
func (s *Service) CountRequestsByStatus(ctx context.Context, userID string, sent bool) (map[models.RequestStatus]int64, error) {
	column := "receiver_id"
	if sent {
		column = "sender_id"
	}

	var rows []struct {
		Status models.RequestStatus
		Count  int64
	}
	err := s.db(ctx).Model(&models.MarriageRequest{}).
		Select("status, COUNT(*) AS count").
		Where(column+" = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.RequestStatus]int64, len(models.AllRequestStatuses))
	for _, st := range models.AllRequestStatuses {
		out[st] = 0
	}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// ListExpiredPending returns up to limit pending requests whose deadline is
// at or before now, oldest deadline first. IDs in exclude are left out.
func (s *Service) ListExpiredPending(ctx context.Context, now time.Time, exclude []string, limit int) ([]models.MarriageRequest, error) {
	q := s.db(ctx).Where("status = ? AND expires_at <= ?", models.RequestPending, now)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}

	var out []models.MarriageRequest
	err := q.Order("expires_at ASC, id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// ListPendingReview is the moderation queue of pending requests that have not
// been approved yet. Requests whose sender or receiver is gone are left out.
func (s *Service) ListPendingReview(ctx context.Context, filter ModerationFilter, p paging.Params) ([]models.MarriageRequest, int64, error) {
	q := s.db(ctx).Model(&models.MarriageRequest{}).
		Joins(participantJoins).
		Where("marriage_requests.status = ? AND marriage_requests.review_status = ?", models.RequestPending, models.ReviewPending)
	q = applyModerationFilter(q, "marriage_requests", filter, "sender_id", "receiver_id")

	var out []models.MarriageRequest
	total, err := page(q, p, "marriage_requests.created_at ASC", &out, "Sender", "Receiver")
	return out, total, err
}

// CancelPendingRequestsForUser cancels every pending request the user sent or
// received. Used when a profile is deleted.
func (s *Service) CancelPendingRequestsForUser(ctx context.Context, userID string) (int64, error) {
	res := s.db(ctx).Model(&models.MarriageRequest{}).
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", models.RequestPending, userID, userID).
		Updates(map[string]any{
			"status":          models.RequestCancelled,
			"active_pair_key": nil,
		})
	return res.RowsAffected, res.Error
}

func (s *Service) CreateRoom(ctx context.Context, room *models.ChatRoom) error {
	return s.db(ctx).Create(room).Error
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := first(s.db(ctx).Where("room_id = ?", roomID), &room, "chat room"); err != nil {
		return nil, err
	}
	return &room, nil
}

// CloseRoomsForUser deactivates every open room the user belongs to.
func (s *Service) CloseRoomsForUser(ctx context.Context, userID string, at time.Time) error {
	return s.db(ctx).Model(&models.ChatRoom{}).
		Where("is_active = ? AND (user1_id = ? OR user2_id = ?)", true, userID, userID).
		Updates(map[string]any{
			"is_active": false,
			"ended_at":  at,
		}).Error
}
