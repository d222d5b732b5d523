package service

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"regexp"
	"strings"
	"time"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	barangayModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/model"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/dto"
	authHelper "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/helper"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	authRepo "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/repository"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

var validate = helper.NewValidator()

// maxKeyFileSize bounds the USB key upload.
const maxKeyFileSize = 1 << 20

const msgInvalidCredentials = "invalid credentials"

// ========================== REGISTER ==========================
// POST /api/auth/register
func Register(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.RegisterRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	req.Normalize()

	if taken, err := authRepo.IsEmailTaken(db, req.Email); err != nil {
		return helper.DBError(err)
	} else if taken {
		return fiber.NewError(fiber.StatusConflict, "email already registered")
	}
	if taken, err := authRepo.IsUsernameTaken(db, req.UserName); err != nil {
		return helper.DBError(err)
	} else if taken {
		return fiber.NewError(fiber.StatusConflict, "username already taken")
	}

	var barangayID *uuid.UUID
	if req.BarangayID != nil && *req.BarangayID != "" {
		id, _ := uuid.Parse(*req.BarangayID)
		var n int64
		if err := db.Model(&barangayModel.BarangayProfileModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return helper.DBError(err)
		}
		if n == 0 {
			return helper.NewFieldError("barangay_id", "barangay not found")
		}
		barangayID = &id
	}

	hashed, err := authHelper.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := userModel.UserModel{
		UserName:   req.UserName,
		Email:      req.Email,
		Password:   hashed,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Role:       constants.RoleParticipant,
		BarangayID: barangayID,
		IsActive:   true,
	}
	if err := authRepo.CreateUser(db, &user); err != nil {
		return helper.DBError(err)
	}

	if err := issueAndSendOTP(c.UserContext(), db, &user, authModel.OTPPurposeEmailVerification, time.Now().UTC()); err != nil {
		zap.L().Error("issue verification code failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return helper.JsonCreated(c, "registration successful, check your email for the verification code", dto.ToUserSummary(&user))
}

// ========================== EMAIL VERIFICATION ==========================
// POST /api/auth/verify-email
func VerifyEmail(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.VerifyEmailRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	user, err := authRepo.FindUserByEmail(db, req.Email)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, errOTPInvalid.Error())
	}
	if user.IsEmailVerified() {
		return helper.JsonOK(c, "email already verified", dto.ToUserSummary(user))
	}

	now := time.Now().UTC()
	if err := verifyOTP(db, user.ID, authModel.OTPPurposeEmailVerification, req.Code, now); err != nil {
		return otpError(err, fiber.StatusBadRequest)
	}
	if err := db.Model(user).Update("email_verified_at", now).Error; err != nil {
		return helper.DBError(err)
	}
	user.EmailVerifiedAt = &now
	return helper.JsonOK(c, "email verified", dto.ToUserSummary(user))
}

// POST /api/auth/resend-verification
func ResendVerification(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.EmailRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if user, err := authRepo.FindUserByEmail(db, req.Email); err == nil && !user.IsEmailVerified() {
		if err := issueAndSendOTP(c.UserContext(), db, user, authModel.OTPPurposeEmailVerification, time.Now().UTC()); err != nil {
			return helper.DBError(err)
		}
	}
	return helper.JsonOK(c, "if the account needs verification, a new code has been sent", nil)
}

// ========================== LOGIN ==========================
// POST /api/auth/login
func Login(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.LoginRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	user, err := authRepo.FindUserByIdentifier(db, req.Identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, msgInvalidCredentials)
	}
	if err != nil {
		return helper.DBError(err)
	}
	if authHelper.CheckPasswordHash(user.Password, req.Password) != nil {
		return fiber.NewError(fiber.StatusUnauthorized, msgInvalidCredentials)
	}
	if !user.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "account is deactivated")
	}
	if !user.IsEmailVerified() {
		return fiber.NewError(fiber.StatusForbidden, "email not verified")
	}

	return nextStep(db, c, user, "")
}

// stageExternal marks logins vouched for by an identity provider. They skip
// the password and OTP steps but still face the USB key check.
const stageExternal = authModel.LoginStageOTP

// nextStep answers with the next challenge after stage done, or with tokens
// once every required factor has passed. done is empty after a password.
func nextStep(db *gorm.DB, c *fiber.Ctx, user *userModel.UserModel, done authModel.LoginStage) error {
	now := time.Now().UTC()

	if done == "" && configs.Conf.AuthOTPEnabled {
		if err := issueAndSendOTP(c.UserContext(), db, user, authModel.OTPPurposeLogin, now); err != nil {
			return helper.DBError(err)
		}
		ch, err := openChallenge(db, user.ID, authModel.LoginStageOTP, now)
		if err != nil {
			return helper.DBError(err)
		}
		return helper.JsonOK(c, "verification code sent to your email", ch)
	}

	if done != authModel.LoginStageUSBKey && user.USBKeyRequired {
		if user.USBKeyHash == nil {
			return fiber.NewError(fiber.StatusForbidden, "usb key is required but not enrolled, contact an administrator")
		}
		ch, err := openChallenge(db, user.ID, authModel.LoginStageUSBKey, now)
		if err != nil {
			return helper.DBError(err)
		}
		return helper.JsonOK(c, "usb key verification required", ch)
	}

	tokens, err := issueTokens(db, c, user)
	if err != nil {
		zap.L().Error("issue tokens failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to issue tokens")
	}
	return helper.JsonOK(c, "login successful", tokens)
}

// loadChallengeUser resolves the user behind a challenge and re-checks status.
func loadChallengeUser(db *gorm.DB, ch *authModel.LoginChallengeModel) (*userModel.UserModel, error) {
	user, err := authRepo.FindUserByID(db, ch.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusUnauthorized, errChallengeInvalid.Error())
	}
	if err != nil {
		return nil, helper.DBError(err)
	}
	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "account is deactivated")
	}
	return user, nil
}

func challengeError(err error) error {
	if errors.Is(err, errChallengeInvalid) {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	return helper.DBError(err)
}

// POST /api/auth/login/verify-otp
func VerifyLoginOTP(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.VerifyOTPRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	now := time.Now().UTC()
	ch, err := findChallenge(db, req.ChallengeToken, authModel.LoginStageOTP, now)
	if err != nil {
		return challengeError(err)
	}
	if err := verifyOTP(db, ch.UserID, authModel.OTPPurposeLogin, req.Code, now); err != nil {
		return otpError(err, fiber.StatusUnauthorized)
	}
	if err := consumeChallenge(db, ch.ID, now); err != nil {
		return challengeError(err)
	}

	user, err := loadChallengeUser(db, ch)
	if err != nil {
		return err
	}
	return nextStep(db, c, user, authModel.LoginStageOTP)
}

// POST /api/auth/login/resend-otp
func ResendLoginOTP(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.ChallengeRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}

	now := time.Now().UTC()
	ch, err := findChallenge(db, req.ChallengeToken, authModel.LoginStageOTP, now)
	if err != nil {
		return challengeError(err)
	}
	user, err := loadChallengeUser(db, ch)
	if err != nil {
		return err
	}
	if err := issueAndSendOTP(c.UserContext(), db, user, authModel.OTPPurposeLogin, now); err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "a new verification code has been sent", fiber.Map{
		"expires_in": int64(configs.Conf.OTPTTL.Seconds()),
	})
}

// POST /api/auth/login/verify-usb-key (multipart: challenge_token, key_file)
func VerifyUSBKey(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	token := strings.TrimSpace(c.FormValue("challenge_token"))
	if token == "" {
		return helper.NewFieldError("challenge_token", "is required")
	}
	fh, err := c.FormFile("key_file")
	if err != nil {
		return helper.NewFieldError("key_file", "is required")
	}
	if fh.Size > maxKeyFileSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "key file too large")
	}

	now := time.Now().UTC()
	ch, err := findChallenge(db, token, authModel.LoginStageUSBKey, now)
	if err != nil {
		return challengeError(err)
	}
	user, err := loadChallengeUser(db, ch)
	if err != nil {
		return err
	}

	data, err := readKeyFile(fh)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read key file")
	}
	if user.USBKeyHash == nil || !authHelper.SameFingerprint(authHelper.FileFingerprint(data), *user.USBKeyHash) {
		zap.L().Info("usb key mismatch", zap.String("user_id", user.ID.String()))
		return fiber.NewError(fiber.StatusUnauthorized, "usb key does not match")
	}

	if err := consumeChallenge(db, ch.ID, now); err != nil {
		return challengeError(err)
	}
	return nextStep(db, c, user, authModel.LoginStageUSBKey)
}

func readKeyFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxKeyFileSize))
}

// ========================== CENTRAL LOGIN (SSO) ==========================

var ssoTimeout = 10 * time.Second

// validateSSOToken asks the central login service whether token is valid.
func validateSSOToken(url, token string) (*dto.SSOValidation, error) {
	a := fiber.Post(url).
		Set(fiber.HeaderAuthorization, "Bearer "+token).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(ssoTimeout)
	if err := a.Parse(); err != nil {
		return nil, err
	}

	var out dto.SSOValidation
	code, body, errs := a.Struct(&out)
	switch {
	case code == fiber.StatusUnauthorized || code == fiber.StatusForbidden:
		return &dto.SSOValidation{}, nil
	case len(errs) > 0:
		return nil, fmt.Errorf("central login: %w", errors.Join(errs...))
	case code != fiber.StatusOK:
		return nil, fmt.Errorf("central login: status %d: %s", code, body)
	}
	return &out, nil
}

// POST /api/auth/login/sso
func LoginSSO(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.SSORequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	url := strings.TrimSpace(configs.Conf.CentralLoginValidateURL)
	if url == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "central login is not configured")
	}

	res, err := validateSSOToken(url, req.Token)
	if err != nil {
		zap.L().Warn("central login callout failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "central login is unavailable")
	}
	email := dto.NormalizeEmail(res.Email)
	if !res.Valid || email == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "sso token rejected")
	}

	user, err := authRepo.FindUserByEmail(db, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = createExternalUser(db, email, res.Name, nil)
	}
	if err != nil {
		return helper.DBError(err)
	}
	if !user.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "account is deactivated")
	}
	return nextStep(db, c, user, stageExternal)
}

// ========================== GOOGLE LOGIN ==========================

type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// VerifyGoogleIDToken checks the token against GOOGLE_CLIENT_ID.
var VerifyGoogleIDToken = func(idToken string) (*GoogleIdentity, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(idToken, []string{configs.GoogleClientID}); err != nil {
		return nil, err
	}
	claimSet, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, err
	}
	return &GoogleIdentity{Subject: claimSet.Sub, Email: claimSet.Email, Name: claimSet.Name}, nil
}

// POST /api/auth/login/google
func LoginGoogle(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.GoogleLoginRequest
	if err := helper.BindAndValidate(c, validate, &req); err != nil {
		return err
	}
	if configs.GoogleClientID == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "google login is not configured")
	}

	id, err := VerifyGoogleIDToken(req.IDToken)
	if err != nil || id.Subject == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid google id token")
	}
	email := dto.NormalizeEmail(id.Email)

	user, err := authRepo.FindUserByGoogleID(db, id.Subject)
	if errors.Is(err, gorm.ErrRecordNotFound) && email != "" {
		user, err = authRepo.FindUserByEmail(db, email)
		if err == nil {
			sub := id.Subject
			if err = db.Model(user).Update("google_id", sub).Error; err == nil {
				user.GoogleID = &sub
			}
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			sub := id.Subject
			user, err = createExternalUser(db, email, id.Name, &sub)
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "google account has no email")
	}
	if err != nil {
		return helper.DBError(err)
	}
	if !user.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "account is deactivated")
	}
	return nextStep(db, c, user, stageExternal)
}

// createExternalUser provisions a verified participant for an identity
// vouched for by SSO or Google. The password is random and unknown.
func createExternalUser(db *gorm.DB, email, name string, googleID *string) (*userModel.UserModel, error) {
	userName, err := uniqueUserName(db, strings.SplitN(email, "@", 2)[0])
	if err != nil {
		return nil, err
	}
	hashed, err := authHelper.HashPassword(authHelper.RandomPassword())
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = userName
	}
	now := time.Now().UTC()
	user := userModel.UserModel{
		UserName:        userName,
		Email:           email,
		Password:        hashed,
		FullName:        name,
		Role:            constants.RoleParticipant,
		IsActive:        true,
		EmailVerifiedAt: &now,
		GoogleID:        googleID,
	}
	if err := authRepo.CreateUser(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

var reNotAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// uniqueUserName derives an unused alphanumeric user name from base.
func uniqueUserName(db *gorm.DB, base string) (string, error) {
	base = reNotAlnum.ReplaceAllString(strings.ToLower(base), "")
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 40 {
		base = base[:40]
	}
	candidate := base
	for i := 0; i < 10; i++ {
		taken, err := authRepo.IsUsernameTaken(db, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%04d", base, rand.IntN(10000))
	}
	return base + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}

// ========================== ME ==========================
// GET /api/auth/me
func Me(db *gorm.DB, c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return err
	}
	user, err := authRepo.FindUserByID(db.WithContext(c.UserContext()), userID)
	if err != nil {
		return helper.DBError(err)
	}
	return helper.JsonOK(c, "ok", user)
}
