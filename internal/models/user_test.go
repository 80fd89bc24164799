package models_test

import (
	"reflect"
	"testing"
	"time"

	"zawaj/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{
		Email:    "amina@example.com",
		FullName: "Amina",
		Gender:   models.GenderFemale,
		Age:      26,
	}
	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	// Act - call the hook directly (GORM would call this automatically)
	err := user.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, models.AccountActive, user.Status)
}

// TestUserBeforeCreate_PreservesExisting verifies that the hook doesn't overwrite set values.
func TestUserBeforeCreate_PreservesExisting(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Role: models.RoleAdmin}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUserIsSuspendedAt(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		user models.User
		want bool
	}{
		{"active", models.User{Status: models.AccountActive}, false},
		{"suspended indefinitely", models.User{Status: models.AccountSuspended}, true},
		{"suspended until later", models.User{Status: models.AccountSuspended, SuspendedUntil: &later}, true},
		{"suspension elapsed", models.User{Status: models.AccountSuspended, SuspendedUntil: &earlier}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.IsSuspendedAt(now))
		})
	}
}

func TestUserIsReachableAt(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	assert.True(t, (&models.User{Status: models.AccountActive}).IsReachableAt(now))
	assert.True(t, (&models.User{Status: models.AccountSuspended, SuspendedUntil: &earlier}).IsReachableAt(now))
	assert.False(t, (&models.User{Status: models.AccountSuspended, SuspendedUntil: &later}).IsReachableAt(now))
	assert.False(t, (&models.User{Status: models.AccountSuspended}).IsReachableAt(now))
	assert.False(t, (&models.User{Status: models.AccountDeleted}).IsReachableAt(now))
}

func TestRoleIsStaff(t *testing.T) {
	assert.True(t, models.RoleAdmin.IsStaff())
	assert.True(t, models.RoleModerator.IsStaff())
	assert.False(t, models.RoleUser.IsStaff())
	assert.False(t, models.Role("").IsStaff())
}

// TestUserStructTags verifies that struct tags are correctly defined for GORM and JSON.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	emailField, found := userType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, emailField.Tag.Get("gorm"), "uniqueIndex", "Email should have unique index")

	pwField, found := userType.FieldByName("PasswordHash")
	assert.True(t, found)
	assert.Equal(t, "-", pwField.Tag.Get("json"), "PasswordHash must never be serialized")
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "a:b", models.PairKey("a", "b", true))
	assert.Equal(t, "a:b", models.PairKey("b", "a", true), "both directions share one key")
	assert.Equal(t, "b:a", models.PairKey("b", "a", false))
}

func TestStringList_ScanValue(t *testing.T) {
	in := models.StringList{"arabic", "english"}

	v, err := in.Value()
	assert.NoError(t, err)

	var out models.StringList
	assert.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)
}

func TestRequestStatusIsActive(t *testing.T) {
	assert.True(t, models.RequestPending.IsActive())
	assert.True(t, models.RequestAccepted.IsActive())
	assert.False(t, models.RequestRejected.IsActive())
	assert.False(t, models.RequestCancelled.IsActive())
	assert.False(t, models.RequestExpired.IsActive())
}
