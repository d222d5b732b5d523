package helper

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
)

// Blacklist stores HMAC(access_token) so a leaked table cannot replay tokens.
func Blacklist(ctx context.Context, db *gorm.DB, rawAccessToken, secret string, expiresAt time.Time) error {
	if db == nil || strings.TrimSpace(rawAccessToken) == "" {
		return nil
	}
	row := authModel.TokenBlacklistModel{
		Token:     HashToken(rawAccessToken, secret),
		ExpiredAt: expiresAt.UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"expired_at"}),
	}).Create(&row).Error
}

func IsBlacklisted(ctx context.Context, db *gorm.DB, rawAccessToken, secret string) (bool, error) {
	if db == nil || strings.TrimSpace(rawAccessToken) == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).
		Model(&authModel.TokenBlacklistModel{}).
		Where("token = ? AND expired_at > ?", HashToken(rawAccessToken, secret), time.Now().UTC()).
		Count(&n).Error
	return n > 0, err
}

// PurgeBlacklist drops rows that expired before cutoff.
func PurgeBlacklist(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expired_at <= ?", cutoff.UTC()).
		Delete(&authModel.TokenBlacklistModel{})
	return res.RowsAffected, res.Error
}
