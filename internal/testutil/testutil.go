// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"zawaj/backend/internal/models"
	"zawaj/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), storage.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return db
}

// NewStorage returns a Storage over NewDB without Redis.
func NewStorage(t *testing.T) *storage.Service {
	t.Helper()
	return storage.NewStorageService(NewDB(t), nil)
}

// CreateUser inserts an active member with the given name and gender.
func CreateUser(t *testing.T, store storage.Storage, name string, gender models.Gender) *models.User {
	t.Helper()
	return CreateUserWithRole(t, store, name, gender, models.RoleUser)
}

// CreateUserWithRole inserts an active account with role.
func CreateUserWithRole(t *testing.T, store storage.Storage, name string, gender models.Gender, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("%s-%d@example.com", name, dbSeq.Add(1)),
		PasswordHash: "x",
		FullName:     name,
		Gender:       gender,
		Age:          28,
		City:         "Riyadh",
		Country:      "SA",
		Role:         role,
		Status:       models.AccountActive,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}
