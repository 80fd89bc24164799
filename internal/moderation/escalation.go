package moderation

import (
	"time"

	"zawaj/backend/internal/config"
	"zawaj/backend/internal/models"
)

// suspension is the computed outcome of suspending a user at some time.
type suspension struct {
	level int
	until time.Time
}

// nextSuspension picks the escalation level for user. A user suspended within
// RecentSuspensionWindow moves one level up, capped at MaxSuspensionLevel;
// anyone else starts over at level 1. A positive override replaces the
// level's duration but not the level itself.
func nextSuspension(user *models.User, now time.Time, override time.Duration) suspension {
	level := 1
	if user.LastSuspendedAt != nil && now.Sub(*user.LastSuspendedAt) < config.RecentSuspensionWindow {
		level = min(user.SuspensionLevel+1, config.MaxSuspensionLevel)
	}

	duration := config.SuspensionDuration(level)
	if override > 0 {
		duration = override
	}
	return suspension{level: level, until: now.Add(duration)}
}

func (s suspension) updates(now time.Time) map[string]any {
	return map[string]any{
		"status":            models.AccountSuspended,
		"suspended_until":   s.until,
		"suspension_level":  s.level,
		"last_suspended_at": now,
	}
}

// warningOutcome applies one more warning. Reaching WarningsBeforeSuspension
// suspends the user and starts the warning count over.
func warningOutcome(user *models.User, now time.Time) (map[string]any, *suspension) {
	warnings := user.WarningCount + 1
	if warnings < config.WarningsBeforeSuspension {
		return map[string]any{"warning_count": warnings}, nil
	}

	next := nextSuspension(user, now, 0)
	updates := next.updates(now)
	updates["warning_count"] = 0
	return updates, &next
}
