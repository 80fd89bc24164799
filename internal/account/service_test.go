package account_test

import (
	"context"
	"testing"
	"time"

	"zawaj/backend/internal/account"
	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/testutil"
	"zawaj/backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*account.Service, *storage.Service, *auth.TokenManager) {
	t.Helper()
	store := testutil.NewStorage(t)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return account.NewService(store, tokens, validation.New(config.DefaultRequestPolicy())), store, tokens
}

func registration() validation.RegisterInput {
	return validation.RegisterInput{
		Email:    " Fatima@Example.com ",
		Password: "Str0ngPass!",
		FullName: "Fatima Zahra",
		Gender:   models.GenderFemale,
		Age:      26,
		City:     "Jeddah",
		Country:  "SA",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, tokens := newService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, "fatima@example.com", res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEqual(t, "Str0ngPass!", res.User.PasswordHash)

	session, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.UserID)

	_, err = svc.Register(ctx, registration())
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "email is unique")

	login, err := svc.Login(ctx, validation.LoginInput{Email: "FATIMA@example.com", Password: "Str0ngPass!"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, validation.LoginInput{Email: "fatima@example.com", Password: "wrong-password"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated))

	_, err = svc.Login(ctx, validation.LoginInput{Email: "nobody@example.com", Password: "Str0ngPass!"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated))
}

func TestLogin_SuspendedAccount(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, registration())
	require.NoError(t, err)
	require.NoError(t, store.UpdateUserFields(ctx, res.User.ID, map[string]any{
		"status":          models.AccountSuspended,
		"suspended_until": time.Now().UTC().Add(time.Hour),
	}))

	_, err = svc.Login(ctx, validation.LoginInput{Email: "fatima@example.com", Password: "Str0ngPass!"})
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
}

func TestUpdateProfile_OnlyGivenFields(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, store, "Omar", models.GenderMale)

	bio := "  Engineer, loves reading  "
	updated, err := svc.UpdateProfile(ctx, user.ID, validation.ProfileUpdate{
		Bio:       &bio,
		Languages: []string{"ar", "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Engineer, loves reading", updated.Bio)
	assert.Equal(t, models.StringList{"ar", "en"}, updated.Languages)
	assert.Equal(t, "Riyadh", updated.City)

	age := 12
	_, err = svc.UpdateProfile(ctx, user.ID, validation.ProfileUpdate{Age: &age})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestProfile_HidesStaffAndInactive(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	member := testutil.CreateUser(t, store, "Omar", models.GenderMale)
	admin := testutil.CreateUserWithRole(t, store, "Admin", models.GenderMale, models.RoleAdmin)

	profile, err := svc.Profile(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "Omar", profile.FullName)

	_, err = svc.Profile(ctx, admin.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	require.NoError(t, store.UpdateUserFields(ctx, member.ID, map[string]any{
		"status":          models.AccountSuspended,
		"suspended_until": time.Now().UTC().Add(time.Hour),
	}))
	_, err = svc.Profile(ctx, member.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	require.NoError(t, store.UpdateUserFields(ctx, member.ID, map[string]any{
		"suspended_until": time.Now().UTC().Add(-time.Hour),
	}))
	profile, err = svc.Profile(ctx, member.ID)
	require.NoError(t, err, "a lapsed suspension no longer hides the profile")
	assert.Equal(t, "Omar", profile.FullName)
}

func TestBookmarks(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	me := testutil.CreateUser(t, store, "Omar", models.GenderMale)
	her := testutil.CreateUser(t, store, "Huda", models.GenderFemale)

	_, err := svc.AddBookmark(ctx, me.ID, me.ID, validation.BookmarkInput{})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	b, err := svc.AddBookmark(ctx, me.ID, her.ID, validation.BookmarkInput{Note: "kind"})
	require.NoError(t, err)
	assert.Equal(t, "kind", b.Note)

	_, err = svc.AddBookmark(ctx, me.ID, her.ID, validation.BookmarkInput{})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	list, total, err := svc.ListBookmarks(ctx, me.ID, paging.New(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NotNil(t, list[0].Profile)
	assert.Equal(t, "Huda", list[0].Profile.FullName)

	require.NoError(t, svc.RemoveBookmark(ctx, me.ID, her.ID))
	_, total, err = svc.ListBookmarks(ctx, me.ID, paging.New(1, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIssueTelegramLinkCode_WithoutRedis(t *testing.T) {
	svc, store, _ := newService(t)
	user := testutil.CreateUser(t, store, "Omar", models.GenderMale)

	_, err := svc.IssueTelegramLinkCode(context.Background(), user.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
