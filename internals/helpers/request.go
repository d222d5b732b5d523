package helper

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	idStr := strings.TrimSpace(c.Params(name))
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid uuid", name)
	}
	return id, nil
}

// ParseUUIDQuery returns nil when the query key is absent.
func ParseUUIDQuery(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid uuid", name)
	}
	return &id, nil
}

func ParseBoolQuery(c *fiber.Ctx, name string) *bool {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

// ParseDateQuery accepts YYYY-MM-DD or RFC3339.
func ParseDateQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD or RFC3339", name)
	}
	return &t, nil
}

/* ===============================
   Validation
=================================*/

// NewValidator returns a validator with the project's custom tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// IsStrongPassword wants at least 8 characters with a letter and a digit.
func IsStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// ValidationErrors flattens validator errors into field -> messages.
func ValidationErrors(err error) map[string][]string {
	out := map[string][]string{}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		out["_"] = []string{err.Error()}
		return out
	}
	for _, fe := range ves {
		field := fe.Field()
		out[field] = append(out[field], fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "len":
		return "must have length " + fe.Param()
	case "password":
		return "must be at least 8 characters with a letter and a digit"
	case "alphanum":
		return "must contain only letters and digits"
	case "numeric":
		return "must contain only digits"
	case "gtfield":
		return "must be after " + fe.Param()
	default:
		return "is invalid"
	}
}

// FieldErrors carries per-field messages up to ErrorHandler.
type FieldErrors struct {
	Fields map[string][]string
}

func (e *FieldErrors) Error() string { return "validation failed" }

func NewFieldError(field, msg string) *FieldErrors {
	return &FieldErrors{Fields: map[string][]string{field: {msg}}}
}

// BindAndValidate parses the body into dst and validates it.
func BindAndValidate(c *fiber.Ctx, v *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return Validate(v, dst)
}

func Validate(v *validator.Validate, dst any) error {
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		return &FieldErrors{Fields: ValidationErrors(err)}
	}
	return nil
}
