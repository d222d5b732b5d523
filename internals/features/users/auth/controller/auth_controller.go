package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/auth/service"
)

type AuthController struct {
	DB *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	return service.Register(ac.DB, c)
}

func (ac *AuthController) VerifyEmail(c *fiber.Ctx) error {
	return service.VerifyEmail(ac.DB, c)
}

func (ac *AuthController) ResendVerification(c *fiber.Ctx) error {
	return service.ResendVerification(ac.DB, c)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	return service.Login(ac.DB, c)
}

func (ac *AuthController) VerifyLoginOTP(c *fiber.Ctx) error {
	return service.VerifyLoginOTP(ac.DB, c)
}

func (ac *AuthController) ResendLoginOTP(c *fiber.Ctx) error {
	return service.ResendLoginOTP(ac.DB, c)
}

func (ac *AuthController) VerifyUSBKey(c *fiber.Ctx) error {
	return service.VerifyUSBKey(ac.DB, c)
}

func (ac *AuthController) LoginSSO(c *fiber.Ctx) error {
	return service.LoginSSO(ac.DB, c)
}

func (ac *AuthController) LoginGoogle(c *fiber.Ctx) error {
	return service.LoginGoogle(ac.DB, c)
}

func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	return service.RefreshToken(ac.DB, c)
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	return service.Logout(ac.DB, c)
}

func (ac *AuthController) ForgotPassword(c *fiber.Ctx) error {
	return service.ForgotPassword(ac.DB, c)
}

func (ac *AuthController) ResetPassword(c *fiber.Ctx) error {
	return service.ResetPassword(ac.DB, c)
}

func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	return service.ChangePassword(ac.DB, c)
}

func (ac *AuthController) Me(c *fiber.Ctx) error {
	return service.Me(ac.DB, c)
}
