package helper

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MapDBError maps driver errors to an HTTP status and message.
// 23505 unique_violation -> 409, 23503 foreign_key_violation -> 400.
func MapDBError(err error) (int, string) {
	if err == nil {
		return fiber.StatusOK, ""
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, "record not found"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.StatusConflict, "duplicate data (unique violation)"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fiber.StatusBadRequest, "referenced record does not exist"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fiber.StatusConflict, "duplicate data (unique violation)"
		case "23503":
			return fiber.StatusBadRequest, "referenced record does not exist"
		case "23514":
			return fiber.StatusBadRequest, "check constraint violated"
		}
	}

	if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
		return fiber.StatusConflict, "duplicate data (unique violation)"
	}
	return fiber.StatusInternalServerError, "database error"
}

func WriteDBError(c *fiber.Ctx, err error) error {
	code, msg := MapDBError(err)
	if code >= 500 {
		zap.L().Error("db error",
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("reqid")),
			zap.Error(err),
		)
	}
	return JsonError(c, code, msg)
}

// DBError is MapDBError as a *fiber.Error for handlers that return errors.
func DBError(err error) error {
	code, msg := MapDBError(err)
	if code >= 500 {
		zap.L().Error("db error", zap.Error(err))
	}
	return fiber.NewError(code, msg)
}
