package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/controller"
	rateLimiter "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

// AuthRoutes mounts /api/auth. Login steps share the login limiter.
func AuthRoutes(app fiber.Router, db *gorm.DB) {
	authController := controller.NewAuthController(db)
	loginLimiter := rateLimiter.LoginRateLimiter()

	baseAuth := app.Group("/api/auth")

	// public
	baseAuth.Post("/register", rateLimiter.RegisterRateLimiter(), authController.Register)
	baseAuth.Post("/verify-email", authController.VerifyEmail)
	baseAuth.Post("/resend-verification", rateLimiter.ForgotPasswordRateLimiter(), authController.ResendVerification)

	baseAuth.Post("/login", loginLimiter, authController.Login)
	baseAuth.Post("/login/verify-otp", loginLimiter, authController.VerifyLoginOTP)
	baseAuth.Post("/login/resend-otp", loginLimiter, authController.ResendLoginOTP)
	baseAuth.Post("/login/verify-usb-key", loginLimiter, authController.VerifyUSBKey)
	baseAuth.Post("/login/sso", loginLimiter, authController.LoginSSO)
	baseAuth.Post("/login/google", loginLimiter, authController.LoginGoogle)

	baseAuth.Post("/refresh-token", authController.RefreshToken)
	baseAuth.Post("/forgot-password", rateLimiter.ForgotPasswordRateLimiter(), authController.ForgotPassword)
	baseAuth.Post("/forgot-password/reset", authController.ResetPassword)

	// protected
	protected := authMiddleware.AuthMiddleware(db)
	baseAuth.Post("/logout", protected, authController.Logout)
	baseAuth.Post("/change-password", protected, authController.ChangePassword)
	baseAuth.Get("/me", protected, authController.Me)
}
