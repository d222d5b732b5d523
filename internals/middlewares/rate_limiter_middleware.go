package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/JBFaner/DisasterTraining-sub003/internals/configs"
	helper "github.com/JBFaner/DisasterTraining-sub003/internals/helpers"
)

func newIPLimiter(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return configs.Conf.AppEnv == "test"
		},
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, message)
		},
	})
}

// Global limiter for every endpoint.
func GlobalRateLimiter() fiber.Handler {
	return newIPLimiter(100, time.Minute, "too many requests, please try again later")
}

// Login and its verification steps share this stricter budget.
func LoginRateLimiter() fiber.Handler {
	return newIPLimiter(5, time.Minute, "too many login attempts, please wait a moment")
}

func RegisterRateLimiter() fiber.Handler {
	return newIPLimiter(3, 5*time.Minute, "too many registration attempts, please wait a few minutes")
}

func ForgotPasswordRateLimiter() fiber.Handler {
	return newIPLimiter(2, 10*time.Minute, "too many password reset requests, try again in 10 minutes")
}

// Scenario generation calls a paid model.
func GenerateRateLimiter() fiber.Handler {
	return newIPLimiter(10, time.Hour, "scenario generation limit reached, try again later")
}
