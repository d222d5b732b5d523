package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
)

// Locals keys written by the auth middleware.
const (
	LocUserID    = "user_id"
	LocRole      = "userRole"
	LocSessionID = "session_id"
	LocUserName  = "user_name"
	LocRawToken  = "raw_access_token"
)

func GetUserIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	s, _ := c.Locals(LocUserID).(string)
	if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil && id != uuid.Nil {
		return id, nil
	}
	return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "user id missing from token")
}

// OptionalUserID is for routes that also serve anonymous callers.
func OptionalUserID(c *fiber.Ctx) *uuid.UUID {
	id, err := GetUserIDFromToken(c)
	if err != nil {
		return nil
	}
	return &id
}

func GetRole(c *fiber.Ctx) string {
	r, _ := c.Locals(LocRole).(string)
	return strings.ToLower(strings.TrimSpace(r))
}

func GetSessionID(c *fiber.Ctx) (uuid.UUID, bool) {
	s, _ := c.Locals(LocSessionID).(string)
	id, err := uuid.Parse(s)
	return id, err == nil && id != uuid.Nil
}

func IsAdmin(c *fiber.Ctx) bool { return GetRole(c) == constants.RoleAdmin }

// IsStaff is admin or trainer.
func IsStaff(c *fiber.Ctx) bool {
	r := GetRole(c)
	return r == constants.RoleAdmin || r == constants.RoleTrainer
}

func CanEvaluate(c *fiber.Ctx) bool {
	return IsStaff(c) || GetRole(c) == constants.RoleEvaluator
}
