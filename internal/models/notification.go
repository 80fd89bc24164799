package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationRequestReceived  NotificationType = "request_received"
	NotificationRequestAccepted  NotificationType = "request_accepted"
	NotificationRequestRejected  NotificationType = "request_rejected"
	NotificationRequestCancelled NotificationType = "request_cancelled"
	NotificationRequestExpired   NotificationType = "request_expired"
	NotificationMeetingProposed  NotificationType = "meeting_proposed"
	NotificationMeetingConfirmed NotificationType = "meeting_confirmed"
	NotificationMessageReceived  NotificationType = "message_received"
	NotificationMessageRejected  NotificationType = "message_rejected"
	NotificationAccountWarning   NotificationType = "account_warning"
	NotificationAccountSuspended NotificationType = "account_suspended"
	NotificationReportResolved   NotificationType = "report_resolved"
)

// Notification is a persisted event for one recipient. Users only change the
// read state; rows are never deleted through the API.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:text" json:"id"`
	RecipientID string           `gorm:"type:text;not null;index:idx_recipient_read" json:"recipientId"`
	Type        NotificationType `gorm:"type:text;not null" json:"type"`
	Title       string           `json:"title"`
	Body        string           `gorm:"type:text" json:"body"`

	ActorID    *string `gorm:"type:text" json:"actorId,omitempty"`
	RequestID  *string `gorm:"type:text" json:"requestId,omitempty"`
	ChatRoomID *string `gorm:"type:text" json:"chatRoomId,omitempty"`
	ProfileID  *string `gorm:"type:text" json:"profileId,omitempty"`

	IsRead    bool       `gorm:"not null;default:false;index:idx_recipient_read" json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
