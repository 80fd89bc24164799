package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateUser inserts a new account. A taken email is a Conflict.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := s.db(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("email is already registered")
	}
	return err
}

// SaveUser writes every column of user.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.db(ctx).Save(user).Error
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := first(s.db(ctx).Where("id = ?", id), &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate loads the user and locks the row until the surrounding
// transaction ends, so read-modify-write updates of counters do not race.
func (s *Service) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	q := s.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	if err := first(q, &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	q := s.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if err := first(q, &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	if err := first(s.db(ctx).Where("telegram_chat_id = ?", chatID), &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserFields applies a partial update; zero values in updates are written.
func (s *Service) UpdateUserFields(ctx context.Context, id string, updates map[string]any) error {
	res := s.db(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// DeleteUser marks the profile deleted and soft-deletes the row.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.UpdateUserFields(ctx, id, map[string]any{"status": models.AccountDeleted}); err != nil {
		return err
	}
	return s.db(ctx).Where("id = ?", id).Delete(&models.User{}).Error
}

// AddBookmark saves a profile. Bookmarking the same profile twice is a Conflict.
func (s *Service) AddBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	err := s.db(ctx).Create(bookmark).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("profile is already bookmarked")
	}
	return err
}

func (s *Service) RemoveBookmark(ctx context.Context, userID, bookmarkedUserID string) error {
	res := s.db(ctx).
		Where("user_id = ? AND bookmarked_user_id = ?", userID, bookmarkedUserID).
		Delete(&models.Bookmark{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("bookmark not found")
	}
	return nil
}

// ListBookmarks returns the user's bookmarks with the bookmarked profiles.
// Bookmarks of deleted profiles are skipped.
func (s *Service) ListBookmarks(ctx context.Context, userID string, p paging.Params) ([]models.Bookmark, int64, error) {
	var out []models.Bookmark
	q := s.db(ctx).Model(&models.Bookmark{}).
		Joins("JOIN users ON users.id = bookmarks.bookmarked_user_id AND users.deleted_at IS NULL").
		Where("bookmarks.user_id = ?", userID)
	total, err := page(q, p, "bookmarks.created_at DESC", &out, "BookmarkedUser")
	return out, total, err
}
