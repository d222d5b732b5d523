package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/dto"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

var errChallengeInvalid = errors.New("invalid or expired login challenge")

func challengeHash(raw string) string {
	return helperAuth.HashToken(raw, configs.JWTSecret)
}

// openChallenge stores the hash of a fresh opaque token for stage.
func openChallenge(db *gorm.DB, userID uuid.UUID, stage authModel.LoginStage, now time.Time) (*dto.ChallengeResponse, error) {
	raw, err := authHelper.RandomToken(32)
	if err != nil {
		return nil, err
	}
	ttl := configs.Conf.LoginChallengeTTL
	row := authModel.LoginChallengeModel{
		UserID:    userID,
		TokenHash: challengeHash(raw),
		Stage:     stage,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}
	return &dto.ChallengeResponse{
		Step:           string(stage),
		ChallengeToken: raw,
		ExpiresIn:      int64(ttl.Seconds()),
	}, nil
}

// findChallenge only returns a live challenge opened for stage.
func findChallenge(db *gorm.DB, raw string, stage authModel.LoginStage, now time.Time) (*authModel.LoginChallengeModel, error) {
	var ch authModel.LoginChallengeModel
	err := db.Where("token_hash = ? AND consumed_at IS NULL", challengeHash(raw)).Take(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errChallengeInvalid
	}
	if err != nil {
		return nil, err
	}
	if ch.Stage != stage || !now.Before(ch.ExpiresAt) {
		return nil, errChallengeInvalid
	}
	return &ch, nil
}

func consumeChallenge(db *gorm.DB, id uuid.UUID, now time.Time) error {
	res := db.Model(&authModel.LoginChallengeModel{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errChallengeInvalid
	}
	return nil
}
