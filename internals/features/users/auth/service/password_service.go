package service

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/dto"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	authRepo "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/repository"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// POST /api/auth/forgot-password
// Always answers 200 so the endpoint cannot be used to probe accounts.
func ForgotPassword(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.EmailRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if user, err := authRepo.FindUserByEmail(db, req.Email); err == nil && user.IsActive {
		if err := issueAndSendOTP(c.UserContext(), db, user, authModel.OTPPurposePasswordReset, time.Now().UTC()); err != nil {
			zap.L().Error("issue reset code failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
	return helper.JsonOK(c, "if the email is registered, a reset code has been sent", nil)
}

// POST /api/auth/forgot-password/reset
func ResetPassword(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.ResetPasswordRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	user, err := authRepo.FindUserByEmail(db, req.Email)
	if err != nil || !user.IsActive {
		return fiber.NewError(fiber.StatusBadRequest, errOTPInvalid.Error())
	}

	now := time.Now().UTC()
	if err := verifyOTP(db, user.ID, authModel.OTPPurposePasswordReset, req.Code, now); err != nil {
		return otpError(err, fiber.StatusBadRequest)
	}

	hashed, err := authHelper.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}
	if err := authRepo.UpdateUserPassword(db, user.ID, hashed); err != nil {
		return helper.DBError(err)
	}
	if err := helperAuth.RevokeUserSessions(c.UserContext(), db, user.ID, helperAuth.RevokeReasonPasswordReset, now); err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "password has been reset, please log in again", nil)
}

// POST /api/auth/change-password
func ChangePassword(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	user, err := authRepo.FindUserByID(db, userID)
	if err != nil {
		return helper.DBError(err)
	}
	if authHelper.CheckPasswordHash(user.Password, req.OldPassword) != nil {
		return fiber.NewError(fiber.StatusBadRequest, "old password is incorrect")
	}
	if req.OldPassword == req.NewPassword {
		return fiber.NewError(fiber.StatusBadRequest, "new password must differ from the old password")
	}

	hashed, err := authHelper.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}
	if err := authRepo.UpdateUserPassword(db, user.ID, hashed); err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "password changed", nil)
}
