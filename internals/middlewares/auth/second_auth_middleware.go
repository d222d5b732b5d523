package auth

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// OptionalAuthMiddleware fills the user locals when a valid token is present
// and otherwise lets the request through as anonymous.
func OptionalAuthMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if helperAuth.GetRawAccessToken(c) == "" {
			return c.Next()
		}
		if p, err := authenticate(c, db); err == nil {
			storeToLocals(c, p)
		}
		return c.Next()
	}
}
