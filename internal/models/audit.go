package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntry records one moderation action. Entries are written in the same
// transaction as the action they describe.
type AuditEntry struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	ActorID      string    `gorm:"type:text;not null;index" json:"actorId"`
	ActorRole    Role      `gorm:"type:text;not null" json:"actorRole"`
	Action       string    `gorm:"type:text;not null" json:"action"`
	ResourceType string    `gorm:"type:text;not null" json:"resourceType"`
	ResourceID   string    `gorm:"type:text;not null;index" json:"resourceId"`
	TargetUserID string    `gorm:"type:text;index" json:"targetUserId,omitempty"`
	Notes        string    `gorm:"type:text" json:"notes,omitempty"`
	Details      string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

func (a *AuditEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}
