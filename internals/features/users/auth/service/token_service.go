package service

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/dto"
	authModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/model"
	authRepo "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/repository"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

func strptr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// issueTokens opens a session for user and signs the first token pair.
func issueTokens(db *gorm.DB, c *fiber.Ctx, user *userModel.UserModel) (*dto.TokenResponse, error) {
	now := time.Now().UTC()
	sess := authModel.UserSessionModel{
		UserID:         user.ID,
		LastActivityAt: now,
		ExpiresAt:      now.Add(configs.Conf.RefreshTokenTTL),
		IP:             strptr(c.IP()),
		UserAgent:      strptr(c.Get(fiber.HeaderUserAgent)),
	}
	if err := authRepo.CreateSession(db, &sess); err != nil {
		return nil, err
	}

	resp, err := signPair(db, c, user, sess.ID, now, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := db.Model(&userModel.UserModel{}).Where("id = ?", user.ID).Update("last_login_at", now).Error; err != nil {
		zap.L().Warn("update last_login_at failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return resp, nil
}

// signPair signs access and refresh tokens bound to sid, stores the refresh
// hash and mirrors both into cookies.
func signPair(db *gorm.DB, c *fiber.Ctx, user *userModel.UserModel, sid uuid.UUID, now, refreshUntil time.Time) (*dto.TokenResponse, error) {
	conf := configs.Conf

	accessClaims := helperAuth.NewClaims(helperAuth.TokenTypeAccess, user.ID, sid, now, conf.AccessTokenTTL)
	accessClaims.Role = user.Role
	accessClaims.UserName = user.UserName
	access, err := helperAuth.SignToken(configs.JWTSecret, accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := helperAuth.NewClaims(helperAuth.TokenTypeRefresh, user.ID, sid, now, refreshUntil.Sub(now))
	refresh, err := helperAuth.SignToken(configs.JWTRefreshSecret, refreshClaims)
	if err != nil {
		return nil, err
	}

	if err := authRepo.CreateRefreshToken(db, &authModel.RefreshTokenModel{
		UserID:    user.ID,
		SessionID: &sid,
		TokenHash: helperAuth.HashToken(refresh, configs.JWTRefreshSecret),
		ExpiresAt: refreshUntil,
		UserAgent: strptr(c.Get(fiber.HeaderUserAgent)),
		IP:        strptr(c.IP()),
	}); err != nil {
		return nil, err
	}

	helperAuth.SetAuthCookies(c, access, refresh, now.Add(conf.AccessTokenTTL), refreshUntil, conf.IsProduction())

	return &dto.TokenResponse{
		Step:         "complete",
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(conf.AccessTokenTTL.Seconds()),
		User:         dto.ToUserSummary(user),
	}, nil
}

// ========================== REFRESH TOKEN ==========================
// POST /api/auth/refresh-token
func RefreshToken(db *gorm.DB, c *fiber.Ctx) error {
	db = db.WithContext(c.UserContext())

	var req dto.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		raw = helperAuth.GetRefreshTokenFromCookie(c)
	}
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "refresh token is missing")
	}

	claims, err := helperAuth.ParseToken(raw, configs.JWTRefreshSecret, helperAuth.TokenTypeRefresh)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	now := time.Now().UTC()
	rt, err := authRepo.FindActiveRefreshToken(db, helperAuth.HashToken(raw, configs.JWTRefreshSecret), now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "refresh token has been revoked")
	}
	if err != nil {
		return helper.DBError(err)
	}
	if rt.SessionID == nil || rt.SessionID.String() != claims.SID {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	user, err := authRepo.FindUserByID(db, rt.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "user not found")
	}
	if !user.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "account is deactivated")
	}

	sid := *rt.SessionID
	if err := helperAuth.CheckSession(c.UserContext(), db, sid, user.ID, now, configs.Conf.SessionIdleTimeout); err != nil {
		if helperAuth.IsSessionRejected(err) {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		zap.L().Error("session lookup failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}

	// rotate: the old token is dead even if signing below fails
	if err := authRepo.RevokeRefreshTokenByID(db, rt.ID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "refresh token has been revoked")
		}
		return helper.DBError(err)
	}

	sess, err := authRepo.FindSession(db, sid)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, helperAuth.ErrSessionRevoked.Error())
	}
	if err := authRepo.TouchSession(db, sid, now); err != nil {
		zap.L().Warn("touch session failed", zap.Error(err))
	}

	resp, err := signPair(db, c, user, sid, now, sess.ExpiresAt)
	if err != nil {
		zap.L().Error("sign token pair failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to issue tokens")
	}
	return helper.JsonOK(c, "token refreshed", resp)
}

// ========================== LOGOUT ==========================
// POST /api/auth/logout
func Logout(db *gorm.DB, c *fiber.Ctx) error {
	ctx := c.UserContext()
	now := time.Now().UTC()

	raw, _ := c.Locals(helperAuth.LocRawToken).(string)
	if raw == "" {
		raw = helperAuth.GetRawAccessToken(c)
	}
	if raw != "" {
		expiresAt := now.Add(configs.Conf.AccessTokenTTL)
		if claims, err := helperAuth.ParseToken(raw, configs.JWTSecret, helperAuth.TokenTypeAccess); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := helperAuth.Blacklist(ctx, db, raw, configs.JWTSecret, expiresAt); err != nil {
			return helper.DBError(err)
		}
	}

	if sid, ok := helperAuth.GetSessionID(c); ok {
		if err := helperAuth.RevokeSession(ctx, db, sid, helperAuth.RevokeReasonLogout, now); err != nil {
			return helper.DBError(err)
		}
	}

	helperAuth.ClearAuthCookies(c)
	return helper.JsonOK(c, "logout successful", nil)
}
