package helper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
)

// TouchInterval bounds how often last_activity_at is written.
const TouchInterval = time.Minute

const (
	RevokeReasonIdle          = "idle_timeout"
	RevokeReasonLogout        = "logout"
	RevokeReasonPasswordReset = "password_reset"
	RevokeReasonDeactivated   = "deactivated"
)

var (
	ErrSessionRevoked = errors.New("session has been revoked")
	ErrSessionIdle    = errors.New("session expired due to inactivity")
)

// IsSessionRejected reports whether err from CheckSession means the session
// can no longer be used, as opposed to a failed lookup.
func IsSessionRejected(err error) bool {
	return errors.Is(err, ErrSessionRevoked) || errors.Is(err, ErrSessionIdle)
}

// CheckSession enforces the inactivity window. An idle session is revoked
// on the spot so a later request with the same token also fails.
func CheckSession(ctx context.Context, db *gorm.DB, sid, userID uuid.UUID, now time.Time, idle time.Duration) error {
	var s authModel.UserSessionModel
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", sid, userID).Take(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionRevoked
		}
		return fmt.Errorf("load session: %w", err)
	}
	if !s.IsLive(now) {
		return ErrSessionRevoked
	}

	if idle > 0 && now.Sub(s.LastActivityAt) > idle {
		if err := RevokeSession(ctx, db, s.ID, RevokeReasonIdle, now); err != nil {
			zap.L().Warn("revoke idle session failed", zap.String("session_id", s.ID.String()), zap.Error(err))
		}
		return ErrSessionIdle
	}

	if now.Sub(s.LastActivityAt) >= TouchInterval {
		if err := db.WithContext(ctx).Model(&authModel.UserSessionModel{}).
			Where("id = ?", s.ID).
			Update("last_activity_at", now).Error; err != nil {
			zap.L().Warn("touch session failed", zap.Error(err))
		}
	}
	return nil
}

// RevokeSession closes one session and every refresh token bound to it.
func RevokeSession(ctx context.Context, db *gorm.DB, sid uuid.UUID, reason string, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&authModel.UserSessionModel{}).
			Where("id = ? AND revoked_at IS NULL", sid).
			Updates(map[string]any{"revoked_at": now, "revoke_reason": reason}).Error; err != nil {
			return err
		}
		return tx.Model(&authModel.RefreshTokenModel{}).
			Where("session_id = ? AND revoked_at IS NULL", sid).
			Update("revoked_at", now).Error
	})
}

// RevokeUserSessions signs a user out everywhere.
func RevokeUserSessions(ctx context.Context, db *gorm.DB, userID uuid.UUID, reason string, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&authModel.UserSessionModel{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Updates(map[string]any{"revoked_at": now, "revoke_reason": reason}).Error; err != nil {
			return err
		}
		return tx.Model(&authModel.RefreshTokenModel{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Update("revoked_at", now).Error
	})
}
