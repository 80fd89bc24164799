package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/storage"
)

// ActionInput is one moderation action on one resource.
type ActionInput struct {
	ResourceType  string `json:"resourceType"`
	ResourceID    string `json:"resourceId"`
	Action        string `json:"action"`
	Notes         string `json:"notes"`
	DurationHours int    `json:"durationHours"`
}

// ActionResult describes what an action changed.
type ActionResult struct {
	ResourceType   string     `json:"resourceType"`
	ResourceID     string     `json:"resourceId"`
	Action         string     `json:"action"`
	TargetUserID   string     `json:"targetUserId,omitempty"`
	WarningCount   *int       `json:"warningCount,omitempty"`
	AutoSuspended  bool       `json:"autoSuspended,omitempty"`
	SuspendedUntil *time.Time `json:"suspendedUntil,omitempty"`
}

// afterCommit collects side effects that must only run once the action's
// transaction has committed.
type afterCommit []func(ctx context.Context)

func (a *afterCommit) add(fn func(ctx context.Context)) {
	*a = append(*a, fn)
}

func (a afterCommit) run(ctx context.Context) {
	for _, fn := range a {
		fn(ctx)
	}
}

// PerformAction applies in on behalf of actor. The resource change and its
// audit entry commit together; notifications and cache updates follow.
func (s *Service) PerformAction(ctx context.Context, actor auth.Session, in ActionInput) (*ActionResult, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if !IsAllowed(in.ResourceType, in.Action) {
		return nil, apperr.InvalidAction(in.Action, in.ResourceType)
	}
	if strings.TrimSpace(in.ResourceID) == "" {
		return nil, apperr.Validation("invalid action",
			apperr.FieldError{Field: "resourceId", Message: "is required"})
	}
	if in.DurationHours < 0 || in.DurationHours > config.MaxSuspensionHours {
		return nil, apperr.Validation("invalid action",
			apperr.FieldError{Field: "durationHours", Message: fmt.Sprintf("must be between 0 and %d", config.MaxSuspensionHours)})
	}

	now := s.now()
	res := &ActionResult{ResourceType: in.ResourceType, ResourceID: in.ResourceID, Action: in.Action}
	var effects afterCommit

	err := s.store.InTransaction(ctx, func(tx storage.Storage) error {
		var err error
		switch in.ResourceType {
		case ResourceUsers:
			err = s.actOnUser(ctx, tx, actor, in.ResourceID, in, now, res, &effects)
		case ResourceReports:
			err = s.actOnReport(ctx, tx, actor, in, now, res, &effects)
		case ResourceRequests:
			err = s.actOnRequest(ctx, tx, actor, in, now, res, &effects)
		case ResourceMessages:
			err = s.actOnMessage(ctx, tx, actor, in, now, res, &effects)
		}
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, in, res.TargetUserID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Bool("audit", true).
		Str("actor_id", actor.UserID).
		Str("actor_role", string(actor.Role)).
		Str("action", in.Action).
		Str("resource_type", in.ResourceType).
		Str("resource_id", in.ResourceID).
		Str("target_user_id", res.TargetUserID).
		Msg("moderation action applied")

	effects.run(ctx)
	return res, nil
}

func (s *Service) audit(ctx context.Context, tx storage.Storage, actor auth.Session, in ActionInput, targetUserID string) error {
	entry := &models.AuditEntry{
		ActorID:      actor.UserID,
		ActorRole:    actor.Role,
		Action:       in.Action,
		ResourceType: in.ResourceType,
		ResourceID:   in.ResourceID,
		TargetUserID: targetUserID,
		Notes:        strings.TrimSpace(in.Notes),
	}
	if in.DurationHours > 0 {
		entry.Details = fmt.Sprintf("duration_hours=%d", in.DurationHours)
	}
	if err := tx.CreateAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// checkTarget enforces who may act on whom.
func checkTarget(actor auth.Session, target *models.User, action string) error {
	if target.ID == actor.UserID {
		return apperr.Forbidden("you cannot moderate your own account")
	}
	if actor.Role != models.RoleAdmin {
		if target.Role.IsStaff() {
			return apperr.Forbidden("moderators cannot act on staff accounts")
		}
		if action == ActionDeleteProfile {
			return apperr.Forbidden("only admins can delete profiles")
		}
	}
	return nil
}

func (s *Service) actOnUser(ctx context.Context, tx storage.Storage, actor auth.Session, userID string, in ActionInput, now time.Time, res *ActionResult, effects *afterCommit) error {
	target, err := tx.GetUserForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkTarget(actor, target, in.Action); err != nil {
		return err
	}
	res.TargetUserID = target.ID

	switch in.Action {
	case ActionWarnUser:
		updates, suspended := warningOutcome(target, now)
		if err := tx.UpdateUserFields(ctx, target.ID, updates); err != nil {
			return err
		}
		count := updates["warning_count"].(int)
		res.WarningCount = &count

		reason := strings.TrimSpace(in.Notes)
		effects.add(func(ctx context.Context) {
			s.notifier.NotifyAfter(ctx, target.ID, models.NotificationAccountWarning, notification.Payload{
				ActorID: actor.UserID,
				Args:    map[string]string{"reason": reason},
			})
		})
		if suspended != nil {
			res.AutoSuspended = true
			res.SuspendedUntil = &suspended.until
			s.afterSuspension(effects, actor, target.ID, *suspended, now)
		}

	case ActionSuspendUser:
		next := nextSuspension(target, now, time.Duration(in.DurationHours)*time.Hour)
		if err := tx.UpdateUserFields(ctx, target.ID, next.updates(now)); err != nil {
			return err
		}
		res.SuspendedUntil = &next.until
		s.afterSuspension(effects, actor, target.ID, next, now)

	case ActionDeleteProfile:
		if _, err := tx.CancelPendingRequestsForUser(ctx, target.ID); err != nil {
			return fmt.Errorf("cancel requests of %s: %w", target.ID, err)
		}
		if err := tx.CloseRoomsForUser(ctx, target.ID, now); err != nil {
			return fmt.Errorf("close rooms of %s: %w", target.ID, err)
		}
		if err := tx.DeleteUser(ctx, target.ID); err != nil {
			return fmt.Errorf("delete user %s: %w", target.ID, err)
		}
	}
	return nil
}

func (s *Service) afterSuspension(effects *afterCommit, actor auth.Session, userID string, next suspension, now time.Time) {
	effects.add(func(ctx context.Context) {
		if err := s.store.SetSuspensionFlag(ctx, userID, next.until.Sub(now)); err != nil {
			logger.Warn().Err(err).Str("user_id", userID).Msg("failed to cache suspension")
		}
		s.notifier.NotifyAfter(ctx, userID, models.NotificationAccountSuspended, notification.Payload{
			ActorID: actor.UserID,
			Args:    map[string]string{"until": next.until.Format("2006-01-02 15:04 MST")},
		})
	})
}

func (s *Service) actOnReport(ctx context.Context, tx storage.Storage, actor auth.Session, in ActionInput, now time.Time, res *ActionResult, effects *afterCommit) error {
	report, err := tx.GetReport(ctx, in.ResourceID)
	if err != nil {
		return err
	}
	if report.Status != models.ReportPending {
		return apperr.InvalidState("report has already been reviewed")
	}

	status := models.ReportResolved
	if in.Action == ActionReject {
		status = models.ReportDismissed
		res.TargetUserID = report.ReportedUserID
	} else if err := s.actOnUser(ctx, tx, actor, report.ReportedUserID, in, now, res, effects); err != nil {
		return err
	}

	ok, err := tx.UpdateReportIfStatus(ctx, report.ID, models.ReportPending, map[string]any{
		"status":       status,
		"action_taken": in.Action,
		"admin_notes":  strings.TrimSpace(in.Notes),
		"resolved_by":  actor.UserID,
		"resolved_at":  now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("report has already been reviewed")
	}

	effects.add(func(ctx context.Context) {
		s.notifier.NotifyAfter(ctx, report.ReporterID, models.NotificationReportResolved, notification.Payload{
			ProfileID: report.ReportedUserID,
		})
	})
	return nil
}

func (s *Service) actOnRequest(ctx context.Context, tx storage.Storage, actor auth.Session, in ActionInput, now time.Time, res *ActionResult, effects *afterCommit) error {
	req, err := tx.GetRequest(ctx, in.ResourceID)
	if err != nil {
		return err
	}
	res.TargetUserID = req.SenderID
	if req.Status != models.RequestPending {
		return apperr.InvalidState(fmt.Sprintf("request is %s, not pending", req.Status))
	}

	var updates map[string]any
	switch in.Action {
	case ActionApprove:
		if req.ReviewStatus == models.ReviewApproved {
			return apperr.InvalidState("request is already approved")
		}
		updates = map[string]any{"review_status": models.ReviewApproved}
	case ActionReject:
		updates = map[string]any{
			"status":          models.RequestRejected,
			"response_reason": strings.TrimSpace(in.Notes),
			"responded_at":    now,
		}
	}

	ok, err := tx.UpdateRequestIfStatus(ctx, req.ID, models.RequestPending, updates)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("request is no longer pending")
	}

	if in.Action == ActionReject {
		name := ""
		if req.Receiver != nil {
			name = req.Receiver.FullName
		}
		effects.add(func(ctx context.Context) {
			s.notifier.NotifyAfter(ctx, req.SenderID, models.NotificationRequestRejected, notification.Payload{
				RequestID: req.ID,
				Args:      map[string]string{"name": name},
			})
		})
	}
	return nil
}

func (s *Service) actOnMessage(ctx context.Context, tx storage.Storage, actor auth.Session, in ActionInput, now time.Time, res *ActionResult, effects *afterCommit) error {
	id, err := strconv.ParseUint(in.ResourceID, 10, 64)
	if err != nil {
		return apperr.Validation("invalid action",
			apperr.FieldError{Field: "resourceId", Message: "must be a message id"})
	}
	msg, err := tx.GetMessage(ctx, uint(id))
	if err != nil {
		return err
	}
	res.TargetUserID = msg.SenderID

	status := models.ModerationApproved
	if in.Action == ActionReject {
		status = models.ModerationRejected
	}
	ok, err := tx.UpdateMessageIfStatus(ctx, msg.ID, models.ModerationPending, map[string]any{
		"moderation_status": status,
		"moderated_by":      actor.UserID,
		"moderated_at":      now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("message has already been moderated")
	}
	msg.ModerationStatus = status

	if status == models.ModerationRejected {
		effects.add(func(ctx context.Context) {
			s.notifier.NotifyAfter(ctx, msg.SenderID, models.NotificationMessageRejected, notification.Payload{
				ChatRoomID: msg.RoomID,
			})
		})
		return nil
	}

	sender, err := tx.GetUser(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	effects.add(func(ctx context.Context) {
		s.deliver(ctx, msg)
		s.notifier.NotifyAfter(ctx, msg.ReceiverID, models.NotificationMessageReceived, notification.Payload{
			ActorID:    msg.SenderID,
			ChatRoomID: msg.RoomID,
			ProfileID:  msg.SenderID,
			Args:       map[string]string{"name": sender.FullName},
		})
	})
	return nil
}

// deliver pushes an approved message to the receiver's live sessions.
func (s *Service) deliver(ctx context.Context, msg *models.Message) {
	if s.deliverer == nil {
		return
	}
	event, err := models.NewRealtimeEvent(msg.ReceiverID, models.EventMessage, msg.View())
	if err != nil {
		logger.Error().Err(err).Uint("message_id", msg.ID).Msg("failed to encode message event")
		return
	}
	if err := s.deliverer.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Uint("message_id", msg.ID).Msg("failed to deliver approved message")
	}
}
