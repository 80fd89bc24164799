package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report reasons accepted from members.
var ReportReasons = []string{
	"fake_profile", "harassment", "inappropriate_content", "spam", "scam", "other",
}

// Report is a member's complaint about another member. Only moderation
// actions change it after creation.
type Report struct {
	ID             string       `gorm:"primaryKey;type:text" json:"id"`
	ReporterID     string       `gorm:"type:text;not null;index" json:"reporterId"`
	ReportedUserID string       `gorm:"type:text;not null;index" json:"reportedUserId"`
	Reason         string       `gorm:"type:text;not null" json:"reason"`
	Details        string       `gorm:"type:text" json:"details,omitempty"`
	Status         ReportStatus `gorm:"type:text;not null;index" json:"status"`
	ActionTaken    string       `gorm:"type:text" json:"actionTaken,omitempty"`
	AdminNotes     string       `gorm:"type:text" json:"adminNotes,omitempty"`
	ResolvedBy     string       `gorm:"type:text" json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time   `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`

	Reporter     *User `gorm:"foreignKey:ReporterID" json:"-"`
	ReportedUser *User `gorm:"foreignKey:ReportedUserID" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = ReportPending
	}
	return
}
