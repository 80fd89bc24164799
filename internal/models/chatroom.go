package models

import "time"

// ChatRoom is the private conversation opened when a request is accepted.
type ChatRoom struct {
	// RoomID is the unique identifier for the chat room (UUID).
	RoomID string `gorm:"primaryKey;type:text" json:"roomId"`
	// RequestID is the accepted request that opened the room.
	RequestID string `gorm:"type:text;uniqueIndex" json:"requestId"`
	// User1ID is the request sender.
	User1ID string `gorm:"type:text;index" json:"user1Id"`
	// User2ID is the request receiver.
	User2ID string `gorm:"type:text;index" json:"user2Id"`
	// IsActive is false once the room is closed by moderation.
	IsActive bool `json:"isActive"`
	// StartedAt is the timestamp when the chat room was created.
	StartedAt time.Time `json:"startedAt"`
	// EndedAt is the timestamp when the chat room was closed.
	EndedAt *time.Time `json:"endedAt,omitempty"`
}

// HasMember reports whether userID belongs to the room.
func (r *ChatRoom) HasMember(userID string) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// Other returns the member that is not userID.
func (r *ChatRoom) Other(userID string) string {
	if r.User1ID == userID {
		return r.User2ID
	}
	return r.User1ID
}
