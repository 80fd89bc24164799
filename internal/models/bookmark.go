package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bookmark is a saved profile. The (UserID, BookmarkedUserID) pair is unique.
type Bookmark struct {
	ID               string    `gorm:"primaryKey;type:text" json:"id"`
	UserID           string    `gorm:"type:text;not null;uniqueIndex:idx_bookmark_pair" json:"userId"`
	BookmarkedUserID string    `gorm:"type:text;not null;uniqueIndex:idx_bookmark_pair" json:"bookmarkedUserId"`
	Note             string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`

	BookmarkedUser *User `gorm:"foreignKey:BookmarkedUserID" json:"-"`
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

// BookmarkView is the API shape of a bookmark.
type BookmarkView struct {
	ID        string    `json:"id"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Profile   *UserRef  `json:"profile,omitempty"`
}

func (b *Bookmark) View() BookmarkView {
	v := BookmarkView{ID: b.ID, Note: b.Note, CreatedAt: b.CreatedAt}
	if b.BookmarkedUser != nil {
		ref := b.BookmarkedUser.Ref()
		v.Profile = &ref
	}
	return v
}
