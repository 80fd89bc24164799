package workflow

import (
	"context"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/validation"
)

const meetingTimeLayout = "2006-01-02 15:04 MST"

// ArrangeMeeting proposes a meeting on an accepted request. Either
// participant may propose; a new proposal replaces an unconfirmed one.
func (s *Service) ArrangeMeeting(ctx context.Context, requestID, actorID string, in validation.MeetingInput) (*models.MarriageRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actorID) {
		return nil, apperr.Forbidden("you are not a participant of this request")
	}
	if req.Status != models.RequestAccepted {
		return nil, apperr.InvalidState("meetings can only be arranged for accepted requests")
	}
	if req.Meeting.Status == models.MeetingConfirmed {
		return nil, apperr.InvalidState("the meeting is already confirmed")
	}

	now := s.now()
	if err := s.validator.Meeting(in, now); err != nil {
		return nil, err
	}

	proposedAt := in.ProposedAt.UTC()
	guard := storage.MeetingGuard{NotStatus: models.MeetingConfirmed}
	ok, err := s.store.UpdateMeetingIf(ctx, req.ID, guard, map[string]any{
		"meeting_status":            models.MeetingProposed,
		"meeting_type":              in.Type,
		"meeting_proposed_at":       proposedAt,
		"meeting_location":          in.Location,
		"meeting_includes_guardian": in.IncludesGuardian,
		"meeting_guardian_name":     in.GuardianName,
		"meeting_guardian_phone":    in.GuardianPhone,
		"meeting_notes":             in.Notes,
		"meeting_proposed_by":       actorID,
		"meeting_confirmed_at":      nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("the request is no longer accepted or the meeting was confirmed meanwhile")
	}

	updated, err := s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAfter(ctx, req.Counterpart(actorID), models.NotificationMeetingProposed, notification.Payload{
		ActorID:    actorID,
		RequestID:  req.ID,
		ChatRoomID: req.ChatRoomID,
		Args: map[string]string{
			"name": participantName(updated, actorID),
			"when": proposedAt.Format(meetingTimeLayout),
		},
	})
	return updated, nil
}

// ConfirmMeeting accepts the proposed meeting. Only the participant who did
// not propose it may confirm, and only while the time is still ahead.
func (s *Service) ConfirmMeeting(ctx context.Context, requestID, actorID string) (*models.MarriageRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actorID) {
		return nil, apperr.Forbidden("you are not a participant of this request")
	}
	if req.Status != models.RequestAccepted || req.Meeting.Status != models.MeetingProposed {
		return nil, apperr.InvalidState("there is no proposed meeting to confirm")
	}
	if req.Meeting.ProposedBy == actorID {
		return nil, apperr.Forbidden("the proposer cannot confirm their own meeting")
	}

	now := s.now()
	if req.Meeting.ProposedAt == nil || !req.Meeting.ProposedAt.After(now) {
		return nil, apperr.InvalidState("the proposed meeting time has passed")
	}

	// Confirm exactly the proposal that was read; a newer one needs a fresh look.
	guard := storage.MeetingGuard{
		Status:     models.MeetingProposed,
		ProposedBy: req.Meeting.ProposedBy,
		ProposedAt: req.Meeting.ProposedAt,
	}
	ok, err := s.store.UpdateMeetingIf(ctx, req.ID, guard, map[string]any{
		"meeting_status":       models.MeetingConfirmed,
		"meeting_confirmed_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("the proposed meeting changed, review it before confirming")
	}

	updated, err := s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAfter(ctx, req.Meeting.ProposedBy, models.NotificationMeetingConfirmed, notification.Payload{
		ActorID:    actorID,
		RequestID:  req.ID,
		ChatRoomID: req.ChatRoomID,
		Args: map[string]string{
			"name": participantName(updated, actorID),
			"when": req.Meeting.ProposedAt.UTC().Format(meetingTimeLayout),
		},
	})
	return updated, nil
}

func participantName(req *models.MarriageRequest, userID string) string {
	if req.SenderID == userID {
		return displayName(req.Sender)
	}
	return displayName(req.Receiver)
}
