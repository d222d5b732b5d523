package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthMiddleware rejects the request unless it carries a live access token
// bound to an active user and a non-idle session.
func AuthMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := authenticate(c, db)
		if err != nil {
			zap.L().Debug("auth rejected", zap.String("route", describe(c)), zap.Error(err))
			return err
		}
		storeToLocals(c, p)
		return c.Next()
	}
}
