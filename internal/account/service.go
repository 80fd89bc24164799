// Package account handles registration, login, profiles, bookmarks and
// Telegram link codes.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/validation"

	"github.com/google/uuid"
)

var errInvalidCredentials = apperr.Unauthenticated("invalid email or password")

// Service implements the member account operations.
type Service struct {
	store     storage.Storage
	tokens    *auth.TokenManager
	validator *validation.Validator
	now       func() time.Time
}

func NewService(store storage.Storage, tokens *auth.TokenManager, validator *validation.Validator) *Service {
	return &Service{
		store:     store,
		tokens:    tokens,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a member account and signs it in.
func (s *Service) Register(ctx context.Context, in validation.RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validator.Register(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Gender:       in.Gender,
		Age:          in.Age,
		City:         strings.TrimSpace(in.City),
		Country:      strings.TrimSpace(in.Country),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         models.RoleUser,
		Status:       models.AccountActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.signIn(user)
}

// Login verifies credentials. Suspended accounts cannot sign in until the
// suspension ends.
func (s *Service) Login(ctx context.Context, in validation.LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Login(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, errInvalidCredentials
	}
	if user.IsSuspendedAt(s.now()) {
		return nil, apperr.Forbidden("your account is suspended")
	}
	return s.signIn(user)
}

func (s *Service) signIn(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

// Profile returns the public view of another member.
func (s *Service) Profile(ctx context.Context, userID string) (models.PublicProfile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return models.PublicProfile{}, err
	}
	if !user.IsReachableAt(s.now()) || user.Role.IsStaff() {
		return models.PublicProfile{}, apperr.NotFound("profile not found")
	}
	return user.PublicProfile(), nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in validation.ProfileUpdate) (*models.User, error) {
	if err := s.validator.Profile(in); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setString := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	setString("full_name", in.FullName)
	setString("city", in.City)
	setString("country", in.Country)
	setString("bio", in.Bio)
	setString("phone", in.Phone)
	if in.Age != nil {
		updates["age"] = *in.Age
	}
	if in.Languages != nil {
		updates["languages"] = models.StringList(in.Languages)
	}

	if len(updates) > 0 {
		if err := s.store.UpdateUserFields(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.store.GetUser(ctx, userID)
}

// AddBookmark saves another member's profile.
func (s *Service) AddBookmark(ctx context.Context, userID, bookmarkedUserID string, in validation.BookmarkInput) (*models.Bookmark, error) {
	if err := s.validator.Bookmark(in); err != nil {
		return nil, err
	}
	if userID == bookmarkedUserID {
		return nil, apperr.Validation("invalid bookmark",
			apperr.FieldError{Field: "userId", Message: "cannot bookmark yourself"})
	}
	target, err := s.store.GetUser(ctx, bookmarkedUserID)
	if err != nil {
		return nil, err
	}

	bookmark := &models.Bookmark{
		UserID:           userID,
		BookmarkedUserID: bookmarkedUserID,
		Note:             strings.TrimSpace(in.Note),
	}
	if err := s.store.AddBookmark(ctx, bookmark); err != nil {
		return nil, err
	}
	bookmark.BookmarkedUser = target
	return bookmark, nil
}

func (s *Service) RemoveBookmark(ctx context.Context, userID, bookmarkedUserID string) error {
	return s.store.RemoveBookmark(ctx, userID, bookmarkedUserID)
}

func (s *Service) ListBookmarks(ctx context.Context, userID string, p paging.Params) ([]models.BookmarkView, int64, error) {
	rows, total, err := s.store.ListBookmarks(ctx, userID, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.BookmarkView, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].View())
	}
	return out, total, nil
}

// LinkCode is a one-time code the member sends to the Telegram bot.
type LinkCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueTelegramLinkCode creates a code valid for TelegramLinkCodeTTL.
func (s *Service) IssueTelegramLinkCode(ctx context.Context, userID string) (*LinkCode, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if err := s.store.SaveTelegramLinkCode(ctx, code, userID, config.TelegramLinkCodeTTL); err != nil {
		if errors.Is(err, storage.ErrNoBroker) {
			return nil, apperr.NotFound("telegram linking is not available")
		}
		return nil, fmt.Errorf("save link code: %w", err)
	}
	return &LinkCode{Code: code, ExpiresAt: s.now().Add(config.TelegramLinkCodeTTL)}, nil
}
