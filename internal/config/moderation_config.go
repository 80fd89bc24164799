package config

import "time"

const (
	// Warnings
	WarningsBeforeSuspension = 3

	// Suspension escalation
	SuspensionLevel1Duration = 24 * time.Hour
	SuspensionLevel2Duration = 7 * 24 * time.Hour
	SuspensionLevel3Duration = 30 * 24 * time.Hour
	RecentSuspensionWindow   = 90 * 24 * time.Hour
	MaxSuspensionLevel       = 3
	MaxSuspensionHours       = 365 * 24 // longest explicit duration a moderator may set

	// Requests
	MaxRequestMessageLength = 1000
	MaxMeetingNotesLength   = 500
	ExpirySweepBatchSize    = 200

	// Telegram account linking
	TelegramLinkCodeTTL = 15 * time.Minute
)

// ReportSeverity ranks report reasons; higher is reviewed first.
var ReportSeverity = map[string]int{
	"scam":                  5,
	"harassment":            4,
	"fake_profile":          3,
	"inappropriate_content": 3,
	"spam":                  2,
	"other":                 1,
}

// SuspensionDuration returns the suspension length for an escalation level.
func SuspensionDuration(level int) time.Duration {
	switch level {
	case 1:
		return SuspensionLevel1Duration
	case 2:
		return SuspensionLevel2Duration
	default:
		return SuspensionLevel3Duration
	}
}
