package helper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapDBError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), fiber.StatusNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, fiber.StatusConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, fiber.StatusBadRequest},
		{"pg unique", &pgconn.PgError{Code: "23505"}, fiber.StatusConflict},
		{"pg check", &pgconn.PgError{Code: "23514"}, fiber.StatusBadRequest},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), fiber.StatusConflict},
		{"other", errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := MapDBError(tc.err)
			assert.Equal(t, tc.code, code)
		})
	}

	var fe *fiber.Error
	assert.True(t, errors.As(DBError(gorm.ErrRecordNotFound), &fe))
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}
