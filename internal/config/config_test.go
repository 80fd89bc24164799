package config_test

import (
	"testing"
	"time"

	"zawaj/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.RequestExpiry)
	assert.True(t, cfg.DuplicateCheckBothDirections)
	assert.Contains(t, cfg.GreetingTokens, "السلام عليكم")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REQUEST_EXPIRY", "48h")
	t.Setenv("DUPLICATE_CHECK_BOTH_DIRECTIONS", "false")
	t.Setenv("GREETING_TOKENS", "salam, hello")
	t.Setenv("SWEEP_BATCH_SIZE", "25")

	cfg, err := config.Load()
	require.NoError(t, err)

	policy := cfg.RequestPolicy()
	assert.Equal(t, 48*time.Hour, policy.Expiry)
	assert.False(t, policy.CheckBothDirections)
	assert.Equal(t, []string{"salam", "hello"}, policy.GreetingTokens)
	assert.Equal(t, 25, policy.SweepBatchSize)
}

func TestLoad_RejectsEmptySweepBatch(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SWEEP_BATCH_SIZE", "0")

	_, err := config.Load()
	assert.ErrorContains(t, err, "SWEEP_BATCH_SIZE")
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestSuspensionDuration_Escalates(t *testing.T) {
	assert.Less(t, config.SuspensionDuration(1), config.SuspensionDuration(2))
	assert.Less(t, config.SuspensionDuration(2), config.SuspensionDuration(3))
	assert.Equal(t, config.SuspensionDuration(3), config.SuspensionDuration(7))
}
