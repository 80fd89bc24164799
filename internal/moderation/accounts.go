package moderation

import (
	"context"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/storage"
)

// Unsuspend lifts a suspension early. The escalation level is kept so a
// later suspension still counts as a repeat.
func (s *Service) Unsuspend(ctx context.Context, actor auth.Session, userID string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}

	err := s.store.InTransaction(ctx, func(tx storage.Storage) error {
		target, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := checkTarget(actor, target, ActionUnsuspendUser); err != nil {
			return err
		}
		if target.Status != models.AccountSuspended {
			return apperr.InvalidState("user is not suspended")
		}
		if err := tx.UpdateUserFields(ctx, userID, map[string]any{
			"status":          models.AccountActive,
			"suspended_until": nil,
		}); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActionInput{
			ResourceType: ResourceUsers,
			ResourceID:   userID,
			Action:       ActionUnsuspendUser,
		}, userID)
	})
	if err != nil {
		return err
	}

	if err := s.store.ClearSuspensionFlag(ctx, userID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("failed to clear suspension cache")
	}
	logger.Info().Bool("audit", true).
		Str("actor_id", actor.UserID).
		Str("action", ActionUnsuspendUser).
		Str("target_user_id", userID).
		Msg("moderation action applied")
	return nil
}

// SetRole changes a user's role. Only admins may do this.
func (s *Service) SetRole(ctx context.Context, actor auth.Session, userID string, role models.Role) error {
	if actor.Role != models.RoleAdmin {
		return apperr.Forbidden("only admins can change roles")
	}
	switch role {
	case models.RoleUser, models.RoleModerator, models.RoleAdmin:
	default:
		return apperr.Validation("invalid role",
			apperr.FieldError{Field: "role", Message: "must be one of: user, moderator, admin"})
	}

	err := s.store.InTransaction(ctx, func(tx storage.Storage) error {
		target, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if target.ID == actor.UserID {
			return apperr.Forbidden("you cannot change your own role")
		}
		if err := tx.UpdateUserFields(ctx, userID, map[string]any{"role": role}); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ActionInput{
			ResourceType: ResourceUsers,
			ResourceID:   userID,
			Action:       ActionChangeRole,
			Notes:        "role=" + string(role),
		}, userID)
	})
	if err != nil {
		return err
	}

	logger.Info().Bool("audit", true).
		Str("actor_id", actor.UserID).
		Str("action", ActionChangeRole).
		Str("target_user_id", userID).
		Str("role", string(role)).
		Msg("moderation action applied")
	return nil
}
