package workflow

import (
	"context"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/validation"
)

// SendMessage stores a chat message in the room opened by an accepted
// request. Messages wait for moderation before the receiver sees them.
func (s *Service) SendMessage(ctx context.Context, roomID, senderID string, in validation.MessageInput) (*models.Message, error) {
	if err := s.validator.Message(in); err != nil {
		return nil, err
	}

	room, err := s.memberRoom(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, apperr.InvalidState("this conversation is closed")
	}

	sender, err := s.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.IsSuspendedAt(s.now()) {
		return nil, apperr.Forbidden("your account is suspended")
	}

	msg := &models.Message{
		RoomID:           room.RoomID,
		SenderID:         senderID,
		ReceiverID:       room.Other(senderID),
		Content:          in.Content,
		ModerationStatus: models.ModerationPending,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages pages the room history visible to viewerID.
func (s *Service) ListMessages(ctx context.Context, roomID, viewerID string, p paging.Params) ([]models.Message, int64, error) {
	if _, err := s.memberRoom(ctx, roomID, viewerID); err != nil {
		return nil, 0, err
	}
	return s.store.ListRoomMessages(ctx, roomID, viewerID, p)
}

func (s *Service) memberRoom(ctx context.Context, roomID, userID string) (*models.ChatRoom, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, apperr.Forbidden("you are not a member of this conversation")
	}
	return room, nil
}
