package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	userModel "github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/model"
	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

var (
	errNoToken     = errors.New("unauthorized - no token provided")
	errBlacklisted = errors.New("unauthorized - token is blacklisted")
)

type principal struct {
	UserID    uuid.UUID
	Role      string
	UserName  string
	SessionID uuid.UUID
	RawToken  string
}

// authenticate runs the full check chain and returns a *fiber.Error on failure.
func authenticate(c *fiber.Ctx, db *gorm.DB) (*principal, error) {
	raw := helperAuth.GetRawAccessToken(c)
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, errNoToken.Error())
	}
	raw = strings.Trim(raw, "\"'")

	secret := configs.JWTSecret
	if secret == "" {
		zap.L().Error("JWT_SECRET is empty")
		return nil, fiber.NewError(fiber.StatusInternalServerError, "missing jwt secret")
	}

	ctx := c.UserContext()
	black, err := helperAuth.IsBlacklisted(ctx, db, raw, secret)
	if err != nil {
		zap.L().Error("blacklist lookup failed", zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
	if black {
		return nil, fiber.NewError(fiber.StatusUnauthorized, errBlacklisted.Error())
	}

	claims, err := helperAuth.ParseToken(raw, secret, helperAuth.TokenTypeAccess)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized - invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized - invalid user id")
	}

	user, err := loadActiveUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	sid, err := claims.SessionID()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized - missing session")
	}
	if err := helperAuth.CheckSession(ctx, db, sid, userID, time.Now().UTC(), configs.Conf.SessionIdleTimeout); err != nil {
		if helperAuth.IsSessionRejected(err) {
			return nil, fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		zap.L().Error("session lookup failed", zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}

	return &principal{
		UserID:    user.ID,
		Role:      user.Role,
		UserName:  user.UserName,
		SessionID: sid,
		RawToken:  raw,
	}, nil
}

// loadActiveUser reads the role from the database so role changes apply
// without waiting for the token to expire.
func loadActiveUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*userModel.UserModel, error) {
	var u userModel.UserModel
	err := db.WithContext(ctx).
		Select("id", "user_name", "role", "is_active").
		Where("id = ?", userID).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized - user not found")
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
	if !u.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "account is deactivated")
	}
	return &u, nil
}

func storeToLocals(c *fiber.Ctx, p *principal) {
	c.Locals(helperAuth.LocUserID, p.UserID.String())
	c.Locals(helperAuth.LocRole, p.Role)
	c.Locals(helperAuth.LocUserName, p.UserName)
	c.Locals(helperAuth.LocSessionID, p.SessionID.String())
	c.Locals(helperAuth.LocRawToken, p.RawToken)
}

func describe(c *fiber.Ctx) string {
	return fmt.Sprintf("%s %s", c.Method(), c.Path())
}
