package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsStaff reports whether the role may use the moderation endpoints.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleModerator
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountDeleted   AccountStatus = "deleted"
)

// User is a registered member or staff account.
// Deleting a profile sets Status to deleted and soft-deletes the row.
type User struct {
	ID           string `gorm:"primaryKey;type:text" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	FullName  string     `gorm:"not null" json:"fullName"`
	Gender    Gender     `gorm:"type:text;not null" json:"gender"`
	Age       int        `json:"age"`
	City      string     `json:"city"`
	Country   string     `json:"country"`
	Bio       string     `gorm:"type:text" json:"bio"`
	Languages StringList `json:"languages"`
	Phone     string     `json:"phone,omitempty"`

	Role            Role          `gorm:"type:text;not null;default:'user'" json:"role"`
	Status          AccountStatus `gorm:"type:text;not null;default:'active';index" json:"status"`
	IsEmailVerified bool          `json:"isEmailVerified"`
	IsPhoneVerified bool          `json:"isPhoneVerified"`

	WarningCount    int        `json:"warningCount"`
	SuspensionLevel int        `json:"-"`
	SuspendedUntil  *time.Time `json:"suspendedUntil,omitempty"`
	LastSuspendedAt *time.Time `json:"-"`

	TelegramChatID int64 `gorm:"index" json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID when ID is empty and fills the defaults the
// zero values would otherwise hide.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = AccountActive
	}
	return
}

// IsSuspendedAt reports whether the account is suspended at t. A suspension
// without an end time lasts until lifted.
func (u *User) IsSuspendedAt(t time.Time) bool {
	if u.Status != AccountSuspended {
		return false
	}
	return u.SuspendedUntil == nil || u.SuspendedUntil.After(t)
}

// IsReachableAt reports whether other members can see and contact the
// account at t. A suspension whose end time has passed no longer hides it.
func (u *User) IsReachableAt(t time.Time) bool {
	return u.Status != AccountDeleted && !u.IsSuspendedAt(t)
}

// Ref returns the denormalized reference used in API payloads.
func (u *User) Ref() UserRef {
	return UserRef{
		ID:       u.ID,
		FullName: u.FullName,
		Gender:   u.Gender,
		Age:      u.Age,
		City:     u.City,
		Country:  u.Country,
	}
}

// UserRef is the single concrete shape used wherever another member is
// referenced (request sender/receiver, bookmark target, moderation rows).
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Gender   Gender `json:"gender"`
	Age      int    `json:"age"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
}

// PublicProfile is what other members see.
type PublicProfile struct {
	UserRef
	Bio             string     `json:"bio"`
	Languages       StringList `json:"languages"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsPhoneVerified bool       `json:"isPhoneVerified"`
	MemberSince     time.Time  `json:"memberSince"`
}

func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		UserRef:         u.Ref(),
		Bio:             u.Bio,
		Languages:       u.Languages,
		IsEmailVerified: u.IsEmailVerified,
		IsPhoneVerified: u.IsPhoneVerified,
		MemberSince:     u.CreatedAt,
	}
}
