package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
)

/* ====================== USER ====================== */

// FindUserByIdentifier matches an email (case-insensitive) or a user name.
func FindUserByIdentifier(db *gorm.DB, identifier string) (*userModel.UserModel, error) {
	identifier = strings.TrimSpace(identifier)
	var user userModel.UserModel
	if err := db.Where("LOWER(email) = ? OR user_name = ?", strings.ToLower(identifier), identifier).
		Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByEmail(db *gorm.DB, email string) (*userModel.UserModel, error) {
	var user userModel.UserModel
	if err := db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByGoogleID(db *gorm.DB, googleID string) (*userModel.UserModel, error) {
	var user userModel.UserModel
	if err := db.Where("google_id = ?", googleID).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByID(db *gorm.DB, userID uuid.UUID) (*userModel.UserModel, error) {
	var user userModel.UserModel
	if err := db.Where("id = ?", userID).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func CreateUser(db *gorm.DB, user *userModel.UserModel) error {
	return db.Create(user).Error
}

func UpdateUserPassword(db *gorm.DB, userID uuid.UUID, hashed string) error {
	return db.Model(&userModel.UserModel{}).Where("id = ?", userID).Update("password", hashed).Error
}

func IsUsernameTaken(db *gorm.DB, username string) (bool, error) {
	if username == "" {
		return false, errors.New("username cannot be empty")
	}
	var n int64
	err := db.Model(&userModel.UserModel{}).Where("user_name = ?", username).Count(&n).Error
	return n > 0, err
}

func IsEmailTaken(db *gorm.DB, email string) (bool, error) {
	var n int64
	err := db.Model(&userModel.UserModel{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&n).Error
	return n > 0, err
}

/* ====================== REFRESH TOKEN ====================== */

func CreateRefreshToken(db *gorm.DB, token *authModel.RefreshTokenModel) error {
	return db.Create(token).Error
}

// FindActiveRefreshToken looks a token up by its stored hash.
func FindActiveRefreshToken(db *gorm.DB, hash string, now time.Time) (*authModel.RefreshTokenModel, error) {
	var rt authModel.RefreshTokenModel
	if err := db.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, now).
		Take(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// RevokeRefreshTokenByID returns gorm.ErrRecordNotFound when the token was
// already revoked, which callers treat as reuse.
func RevokeRefreshTokenByID(db *gorm.DB, id uuid.UUID, now time.Time) error {
	res := db.Model(&authModel.RefreshTokenModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

/* ====================== SESSIONS ====================== */

func CreateSession(db *gorm.DB, s *authModel.UserSessionModel) error {
	return db.Create(s).Error
}

func FindSession(db *gorm.DB, id uuid.UUID) (*authModel.UserSessionModel, error) {
	var s authModel.UserSessionModel
	if err := db.Where("id = ?", id).Take(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func TouchSession(db *gorm.DB, id uuid.UUID, now time.Time) error {
	return db.Model(&authModel.UserSessionModel{}).Where("id = ?", id).Update("last_activity_at", now).Error
}

/* ====================== CLEANUP ====================== */

func PurgeOTPCodes(db *gorm.DB, before time.Time) (int64, error) {
	res := db.Where("expires_at < ?", before).Delete(&authModel.OTPCodeModel{})
	return res.RowsAffected, res.Error
}

func PurgeLoginChallenges(db *gorm.DB, before time.Time) (int64, error) {
	res := db.Where("expires_at < ?", before).Delete(&authModel.LoginChallengeModel{})
	return res.RowsAffected, res.Error
}

func PurgeRefreshTokens(db *gorm.DB, before time.Time) (int64, error) {
	res := db.Where("expires_at < ? OR revoked_at < ?", before, before).Delete(&authModel.RefreshTokenModel{})
	return res.RowsAffected, res.Error
}

func PurgeSessions(db *gorm.DB, before time.Time) (int64, error) {
	res := db.Where("expires_at < ? OR revoked_at < ?", before, before).Delete(&authModel.UserSessionModel{})
	return res.RowsAffected, res.Error
}
