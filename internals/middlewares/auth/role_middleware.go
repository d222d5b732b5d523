package auth

import (
	"github.com/gofiber/fiber/v2"

	helperAuth "github.com/JBFaner/DisasterTraining-sub003/internals/helpers/auth"
)

// OnlyRoles lets the request through when the caller has one of roles.
func OnlyRoles(message string, roles ...string) fiber.Handler {
	if message == "" {
		message = "forbidden: you are not authorized to access this resource"
	}
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := helperAuth.GetRole(c)
		if role == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized: missing role information")
		}
		if _, ok := allowed[role]; !ok {
			return fiber.NewError(fiber.StatusForbidden, message)
		}
		return c.Next()
	}
}
