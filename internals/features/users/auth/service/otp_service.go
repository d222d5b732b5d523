package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/helpers/mail"
)

var (
	errOTPInvalid = errors.New("invalid verification code")
	errOTPExpired = errors.New("verification code has expired")
	errOTPLocked  = errors.New("too many failed attempts, request a new code")
)

var otpLabels = map[authModel.OTPPurpose]string{
	authModel.OTPPurposeLogin:             "login verification",
	authModel.OTPPurposeEmailVerification: "email verification",
	authModel.OTPPurposePasswordReset:     "password reset",
}

// issueOTP burns any live code for the same purpose and stores a new one.
func issueOTP(db *gorm.DB, userID uuid.UUID, purpose authModel.OTPPurpose, now time.Time) (string, error) {
	code, err := authHelper.GenerateOTP()
	if err != nil {
		return "", err
	}
	hash, err := authHelper.HashPassword(code)
	if err != nil {
		return "", err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&authModel.OTPCodeModel{}).
			Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
			Update("consumed_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&authModel.OTPCodeModel{
			UserID:    userID,
			Purpose:   purpose,
			CodeHash:  hash,
			ExpiresAt: now.Add(configs.Conf.OTPTTL),
		}).Error
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// sendOTP delivers synchronously so the code is out before the response.
// Delivery failures are logged, the code stays valid for a resend.
func sendOTP(ctx context.Context, user *userModel.UserModel, code string, purpose authModel.OTPPurpose) {
	msg := mail.OTPMessage(user.Email, user.FullName, code, otpLabels[purpose], configs.Conf.OTPTTL)
	if err := mail.Default().Send(ctx, msg); err != nil {
		zap.L().Warn("otp mail failed",
			zap.String("user_id", user.ID.String()),
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
	}
}

// issueAndSendOTP is issueOTP followed by sendOTP.
func issueAndSendOTP(ctx context.Context, db *gorm.DB, user *userModel.UserModel, purpose authModel.OTPPurpose, now time.Time) error {
	code, err := issueOTP(db, user.ID, purpose, now)
	if err != nil {
		return err
	}
	sendOTP(ctx, user, code, purpose)
	return nil
}

// verifyOTP consumes the live code on success. A wrong guess counts as an
// attempt and the last allowed attempt burns the code.
func verifyOTP(db *gorm.DB, userID uuid.UUID, purpose authModel.OTPPurpose, code string, now time.Time) error {
	var otp authModel.OTPCodeModel
	err := db.Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Order("created_at DESC").
		Take(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errOTPInvalid
	}
	if err != nil {
		return err
	}

	if !now.Before(otp.ExpiresAt) {
		if err := burnOTP(db, otp.ID, now); err != nil {
			return err
		}
		return errOTPExpired
	}

	if authHelper.CheckPasswordHash(otp.CodeHash, code) != nil {
		attempts := otp.Attempts + 1
		updates := map[string]any{"attempts": attempts}
		locked := configs.Conf.OTPMaxAttempts > 0 && attempts >= configs.Conf.OTPMaxAttempts
		if locked {
			updates["consumed_at"] = now
		}
		if err := db.Model(&authModel.OTPCodeModel{}).Where("id = ?", otp.ID).Updates(updates).Error; err != nil {
			return err
		}
		if locked {
			return errOTPLocked
		}
		return errOTPInvalid
	}

	res := db.Model(&authModel.OTPCodeModel{}).
		Where("id = ? AND consumed_at IS NULL", otp.ID).
		Update("consumed_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errOTPInvalid
	}
	return nil
}

func burnOTP(db *gorm.DB, id uuid.UUID, now time.Time) error {
	return db.Model(&authModel.OTPCodeModel{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now).Error
}

// otpError maps OTP failures to status and passes anything else on as 500.
func otpError(err error, status int) error {
	if errors.Is(err, errOTPInvalid) || errors.Is(err, errOTPExpired) || errors.Is(err, errOTPLocked) {
		return fiber.NewError(status, err.Error())
	}
	zap.L().Error("otp verification failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
}
