// Package moderation is the staff side of the platform: review queues,
// moderation actions with warning escalation, and the audit trail.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/validation"
)

// Resource types accepted by ListPending and PerformAction.
const (
	ResourceUsers    = "users"
	ResourceReports  = "reports"
	ResourceRequests = "requests"
	ResourceMessages = "messages"
)

// Moderation actions.
const (
	ActionSuspendUser   = "suspend_user"
	ActionWarnUser      = "warn_user"
	ActionDeleteProfile = "delete_profile"
	ActionApprove       = "approve"
	ActionReject        = "reject"
	ActionUnsuspendUser = "unsuspend_user"
	ActionChangeRole    = "change_role"
)

var allowedActions = map[string][]string{
	ResourceUsers:    {ActionSuspendUser, ActionWarnUser, ActionDeleteProfile},
	ResourceReports:  {ActionSuspendUser, ActionWarnUser, ActionDeleteProfile, ActionReject},
	ResourceRequests: {ActionApprove, ActionReject},
	ResourceMessages: {ActionApprove, ActionReject},
}

// IsAllowed reports whether action may be applied to resourceType.
func IsAllowed(resourceType, action string) bool {
	for _, a := range allowedActions[resourceType] {
		if a == action {
			return true
		}
	}
	return false
}

// Notifier records and pushes notifications after a change is committed.
type Notifier interface {
	NotifyAfter(ctx context.Context, recipientID string, typ models.NotificationType, p notification.Payload)
}

// Deliverer pushes approved chat messages to the receiver's live sessions.
type Deliverer interface {
	Publish(ctx context.Context, event models.RealtimeEvent) error
}

// Service applies moderation actions.
type Service struct {
	store     storage.Storage
	notifier  Notifier
	deliverer Deliverer
	validator *validation.Validator
	now       func() time.Time
}

// NewService builds the moderation service. deliverer may be nil.
func NewService(store storage.Storage, notifier Notifier, deliverer Deliverer, validator *validation.Validator) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		deliverer: deliverer,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func requireStaff(actor auth.Session) error {
	if !actor.IsStaff() {
		return apperr.Forbidden("moderation requires an admin or moderator role")
	}
	return nil
}

// ListAudit pages the audit trail, newest first.
func (s *Service) ListAudit(ctx context.Context, actor auth.Session, p paging.Params) ([]models.AuditEntry, int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	return s.store.ListAuditEntries(ctx, p)
}

// CreateReport files a member's report about another member.
func (s *Service) CreateReport(ctx context.Context, reporterID string, in validation.ReportInput) (*models.Report, error) {
	if err := s.validator.Report(in); err != nil {
		return nil, err
	}
	if in.ReportedUserID == reporterID {
		return nil, apperr.Validation("invalid report",
			apperr.FieldError{Field: "reportedUserId", Message: "cannot report yourself"})
	}
	if _, err := s.store.GetUser(ctx, in.ReportedUserID); err != nil {
		return nil, err
	}

	report := &models.Report{
		ReporterID:     reporterID,
		ReportedUserID: in.ReportedUserID,
		Reason:         in.Reason,
		Details:        strings.TrimSpace(in.Details),
		Status:         models.ReportPending,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}
