// Package workflow implements the marriage request lifecycle: sending,
// responding, cancelling, meeting arrangement and expiry.
//
// Every status transition is a conditional update on the current status, so
// two concurrent transitions of the same request cannot both succeed.
package workflow

import (
	"context"
	"fmt"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/validation"

	"github.com/google/uuid"
)

// Decision is a receiver's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Notifier records and pushes notifications after a change is committed.
type Notifier interface {
	NotifyAfter(ctx context.Context, recipientID string, typ models.NotificationType, p notification.Payload)
}

// Service runs the request workflow.
type Service struct {
	store     storage.Storage
	notifier  Notifier
	validator *validation.Validator
	policy    config.RequestPolicy
	now       func() time.Time
}

func NewService(store storage.Storage, notifier Notifier, validator *validation.Validator, policy config.RequestPolicy) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		validator: validator,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Tests use it to move past deadlines.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SendRequest creates a pending request from senderID and notifies the
// receiver.
func (s *Service) SendRequest(ctx context.Context, senderID string, in validation.RequestInput) (*models.MarriageRequest, error) {
	if err := s.validator.Request(in); err != nil {
		return nil, err
	}
	if senderID == in.ReceiverID {
		return nil, apperr.Validation("invalid marriage request",
			apperr.FieldError{Field: "receiverId", Message: "cannot send a request to yourself"})
	}

	now := s.now()
	sender, err := s.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.IsSuspendedAt(now) {
		return nil, apperr.Forbidden("your account is suspended")
	}

	receiver, err := s.store.GetUser(ctx, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !receiver.IsReachableAt(now) {
		return nil, apperr.NotFound("member not found")
	}

	existing, err := s.store.FindActiveRequest(ctx, senderID, receiver.ID, s.policy.CheckBothDirections)
	if err != nil {
		return nil, fmt.Errorf("check active request: %w", err)
	}
	if existing != nil {
		return nil, apperr.DuplicateRequest()
	}

	key := models.PairKey(senderID, receiver.ID, s.policy.CheckBothDirections)
	req := &models.MarriageRequest{
		SenderID:      senderID,
		ReceiverID:    receiver.ID,
		Message:       in.Message,
		Contact:       in.Contact.Info(),
		Status:        models.RequestPending,
		ReviewStatus:  models.ReviewPending,
		ExpiresAt:     now.Add(s.policy.Expiry),
		ActivePairKey: &key,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	req.Sender, req.Receiver = sender, receiver

	logger.Info().
		Str("request_id", req.ID).
		Str("sender_id", senderID).
		Str("receiver_id", receiver.ID).
		Msg("marriage request sent")

	s.notifier.NotifyAfter(ctx, receiver.ID, models.NotificationRequestReceived, notification.Payload{
		ActorID:   senderID,
		RequestID: req.ID,
		ProfileID: senderID,
		Args:      map[string]string{"name": sender.FullName},
	})
	return req, nil
}

// RespondToRequest lets the receiver accept or reject a pending request.
// Accepting opens the chat room in the same transaction.
func (s *Service) RespondToRequest(ctx context.Context, requestID, responderID string, decision Decision, reason, message string) (*models.MarriageRequest, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, apperr.Validation("invalid response",
			apperr.FieldError{Field: "action", Message: "must be one of: accept, reject"})
	}
	if len([]rune(message)) > config.MaxRequestMessageLength {
		return nil, apperr.Validation("invalid response",
			apperr.FieldError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", config.MaxRequestMessageLength)})
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != responderID {
		return nil, apperr.Forbidden("only the receiver can respond to this request")
	}
	if req.Status != models.RequestPending {
		return nil, apperr.InvalidState("request is no longer pending")
	}

	now := s.now()
	if !now.Before(req.ExpiresAt) {
		return nil, apperr.InvalidState("request has expired")
	}

	updates := map[string]any{
		"responded_at":     now,
		"response_message": message,
	}
	var roomID string
	if decision == DecisionAccept {
		roomID = uuid.New().String()
		updates["status"] = models.RequestAccepted
		updates["chat_room_id"] = roomID
	} else {
		updates["status"] = models.RequestRejected
		updates["response_reason"] = reason
	}

	err = s.store.InTransaction(ctx, func(tx storage.Storage) error {
		ok, err := tx.UpdateRequestIfStatus(ctx, req.ID, models.RequestPending, updates)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("request is no longer pending")
		}
		if decision != DecisionAccept {
			return nil
		}
		return tx.CreateRoom(ctx, &models.ChatRoom{
			RoomID:    roomID,
			RequestID: req.ID,
			User1ID:   req.SenderID,
			User2ID:   req.ReceiverID,
			IsActive:  true,
			StartedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("request_id", req.ID).
		Str("decision", string(decision)).
		Msg("marriage request answered")

	typ := models.NotificationRequestRejected
	if decision == DecisionAccept {
		typ = models.NotificationRequestAccepted
	}
	s.notifier.NotifyAfter(ctx, req.SenderID, typ, notification.Payload{
		ActorID:    responderID,
		RequestID:  req.ID,
		ChatRoomID: roomID,
		Args:       map[string]string{"name": displayName(updated.Receiver)},
	})
	return updated, nil
}

// CancelRequest withdraws a pending request. Only the sender may cancel.
func (s *Service) CancelRequest(ctx context.Context, requestID, requesterID string) (*models.MarriageRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.SenderID != requesterID {
		return nil, apperr.Forbidden("only the sender can cancel this request")
	}
	if req.Status != models.RequestPending {
		return nil, apperr.InvalidState("only pending requests can be cancelled")
	}

	ok, err := s.store.UpdateRequestIfStatus(ctx, req.ID, models.RequestPending, map[string]any{
		"status": models.RequestCancelled,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("only pending requests can be cancelled")
	}
	req.Status = models.RequestCancelled
	req.ActivePairKey = nil

	s.notifier.NotifyAfter(ctx, req.ReceiverID, models.NotificationRequestCancelled, notification.Payload{
		ActorID:   requesterID,
		RequestID: req.ID,
		Args:      map[string]string{"name": displayName(req.Sender)},
	})
	return req, nil
}

// Get returns a request visible to viewerID. Staff may view any request.
func (s *Service) Get(ctx context.Context, requestID, viewerID string, isStaff bool) (*models.MarriageRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !isStaff && !req.IsParticipant(viewerID) {
		return nil, apperr.Forbidden("you are not a participant of this request")
	}
	return req, nil
}

// ListReceived pages the requests userID received, optionally by status.
func (s *Service) ListReceived(ctx context.Context, userID string, status models.RequestStatus, p paging.Params) ([]models.MarriageRequest, int64, error) {
	if err := checkStatusFilter(status); err != nil {
		return nil, 0, err
	}
	return s.store.ListRequests(ctx, storage.RequestFilter{ReceiverID: userID, Status: status}, p)
}

// ListSent pages the requests userID sent, optionally by status.
func (s *Service) ListSent(ctx context.Context, userID string, status models.RequestStatus, p paging.Params) ([]models.MarriageRequest, int64, error) {
	if err := checkStatusFilter(status); err != nil {
		return nil, 0, err
	}
	return s.store.ListRequests(ctx, storage.RequestFilter{SenderID: userID, Status: status}, p)
}

// Stats counts the user's requests by status in both directions.
func (s *Service) Stats(ctx context.Context, userID string) (*models.RequestStats, error) {
	sent, err := s.store.CountRequestsByStatus(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	received, err := s.store.CountRequestsByStatus(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return &models.RequestStats{Sent: sent, Received: received}, nil
}

func checkStatusFilter(status models.RequestStatus) error {
	if status == "" || status.Valid() {
		return nil
	}
	return apperr.Validation("invalid filter",
		apperr.FieldError{Field: "status", Message: "unknown request status"})
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.FullName
}
