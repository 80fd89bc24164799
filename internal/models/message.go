package models

import (
	"time"

	"gorm.io/gorm"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Message is a chat message between the members of a room. Messages are held
// for moderation and delivered to the receiver only once approved.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt and DeletedAt.
type Message struct {
	gorm.Model

	RoomID     string `gorm:"type:text;not null;index:idx_room_msg"`
	SenderID   string `gorm:"type:text;not null;index:idx_room_msg"`
	ReceiverID string `gorm:"type:text;not null;index"`
	Content    string `gorm:"type:text;not null"`

	ModerationStatus ModerationStatus `gorm:"type:text;not null;index"`
	ModeratedBy      string           `gorm:"type:text"`
	ModeratedAt      *time.Time

	Sender   *User     `gorm:"foreignKey:SenderID"`
	Receiver *User     `gorm:"foreignKey:ReceiverID"`
	Room     *ChatRoom `gorm:"foreignKey:RoomID;references:RoomID"`
}

// MessageView is the API shape of a message.
type MessageView struct {
	ID               uint             `json:"id"`
	RoomID           string           `json:"roomId"`
	SenderID         string           `json:"senderId"`
	ReceiverID       string           `json:"receiverId"`
	Content          string           `json:"content"`
	ModerationStatus ModerationStatus `json:"moderationStatus"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func (m *Message) View() MessageView {
	return MessageView{
		ID:               m.ID,
		RoomID:           m.RoomID,
		SenderID:         m.SenderID,
		ReceiverID:       m.ReceiverID,
		Content:          m.Content,
		ModerationStatus: m.ModerationStatus,
		CreatedAt:        m.CreatedAt,
	}
}
